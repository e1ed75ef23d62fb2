package imaging

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func testEngine(t *testing.T, binDeg, widthDeg float64, workers int) *Backprojector {
	t.Helper()
	g, err := NewAngularGrid(binDeg, ForwardPole)
	require.NoError(t, err)
	b, err := NewBackprojector(g, Params{IntersectionWidthDeg: widthDeg, Workers: workers})
	require.NoError(t, err)
	return b
}

func TestNewBackprojectorValidation(t *testing.T) {
	t.Parallel()

	g, err := NewAngularGrid(10, ForwardPole)
	require.NoError(t, err)

	_, err = NewBackprojector(nil, Params{IntersectionWidthDeg: 0.5})
	assert.Error(t, err)

	_, err = NewBackprojector(g, Params{IntersectionWidthDeg: 0})
	assert.Error(t, err)

	_, err = NewBackprojector(g, Params{IntersectionWidthDeg: -1})
	assert.Error(t, err)
}

func TestSelfAlignmentPeak(t *testing.T) {
	t.Parallel()

	b := testEngine(t, 5, 5, 0)
	g := b.Grid()

	// A zero-opening cone whose axis is a grid direction peaks at exactly
	// that cell with score 1, and every other cell follows the Gaussian
	// falloff of its angular distance to the axis.
	i0 := g.Index(18, 0) // theta=90, phi=0
	axis := g.Direction(i0)

	img, err := b.BackprojectOne(axis, 0)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, img.Data[i0], 1e-12)

	row, col, peak := img.Peak()
	assert.Equal(t, i0, g.Index(row, col))
	assert.InDelta(t, 1.0, peak, 1e-12)

	for i := 0; i < g.Len(); i++ {
		sep := AngularSeparationDeg(g.Direction(i).Dot(axis))
		want := GaussianOverlap(sep, b.IntersectionWidthDeg())
		if math.Abs(want-img.Data[i]) > 1e-12 {
			t.Fatalf("cell %d: want %.15f got %.15f", i, want, img.Data[i])
		}
	}
}

func TestAdditivity(t *testing.T) {
	t.Parallel()

	b := testEngine(t, 10, 3, 0)
	axes := []Vec3{
		{0, 0, 1},
		{0, 1, 0},
	}
	angles := []float64{20, 45}

	imgA, err := b.Backproject(axes[:1], angles[:1])
	require.NoError(t, err)
	imgB, err := b.Backproject(axes[1:], angles[1:])
	require.NoError(t, err)
	imgBoth, err := b.Backproject(axes, angles)
	require.NoError(t, err)

	sum := make([]float64, len(imgA.Data))
	copy(sum, imgA.Data)
	floats.Add(sum, imgB.Data)

	assert.True(t, floats.EqualApprox(sum, imgBoth.Data, 1e-12),
		"batched backprojection must equal the sum of the individual images")
}

func TestSingleVersusBatch(t *testing.T) {
	t.Parallel()

	b := testEngine(t, 10, 2, 0)
	axis := Vec3{0, 0, 1}

	one, err := b.BackprojectOne(axis, 30)
	require.NoError(t, err)
	batch, err := b.Backproject([]Vec3{axis}, []float64{30})
	require.NoError(t, err)

	assert.Equal(t, batch.Data, one.Data)
}

func TestClearingIsUnconditional(t *testing.T) {
	t.Parallel()

	b := testEngine(t, 10, 2, 0)
	axes := []Vec3{{0, 1, 0}}
	angles := []float64{25}

	// An empty call first, then real data, must match a single real call.
	_, err := b.Backproject(nil, nil)
	require.NoError(t, err)
	after, err := b.Backproject(axes, angles)
	require.NoError(t, err)

	fresh := testEngine(t, 10, 2, 0)
	want, err := fresh.Backproject(axes, angles)
	require.NoError(t, err)

	assert.Equal(t, want.Data, after.Data)
}

func TestAccumulateVariant(t *testing.T) {
	t.Parallel()

	b := testEngine(t, 10, 2, 0)
	axes := []Vec3{{0, 0, 1}, {1, 0, 0}}
	angles := []float64{15, 60}

	_, err := b.Backproject(axes[:1], angles[:1])
	require.NoError(t, err)
	acc, err := b.BackprojectAccumulate(axes[1:], angles[1:])
	require.NoError(t, err)

	both, err := b.Backproject(axes, angles)
	require.NoError(t, err)

	assert.True(t, floats.EqualApprox(both.Data, acc.Data, 1e-12))
}

func TestLifetimeConeCounter(t *testing.T) {
	t.Parallel()

	b := testEngine(t, 10, 2, 0)
	axes := []Vec3{{0, 0, 1}, {0, 1, 0}, {1, 0, 0}}
	angles := []float64{10, 20, 30}

	_, err := b.Backproject(axes, angles)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), b.ConeCount())

	// Clearing, implicit or explicit, never resets the counter.
	b.ClearImage()
	_, err = b.Backproject(axes[:2], angles[:2])
	require.NoError(t, err)
	assert.Equal(t, uint64(5), b.ConeCount())

	_, err = b.Backproject(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), b.ConeCount())
}

func TestBatchShapeMismatch(t *testing.T) {
	t.Parallel()

	b := testEngine(t, 10, 2, 0)
	_, err := b.Backproject([]Vec3{{0, 0, 1}}, []float64{10, 20})
	assert.Error(t, err)
}

func TestMalformedConeIsLocal(t *testing.T) {
	t.Parallel()

	b := testEngine(t, 10, 2, 0)
	good := Vec3{0, 0, 1}
	bad := Vec3{math.NaN(), 0, 0}

	img, err := b.Backproject([]Vec3{bad, good}, []float64{30, 30})
	require.NoError(t, err)

	// The NaN axis masks to zero separation everywhere, adding a constant
	// layer; the good cone's contribution stays intact on top of it.
	layer := GaussianOverlap(30, b.IntersectionWidthDeg())
	g := b.Grid()
	for i := 0; i < g.Len(); i++ {
		sep := AngularSeparationDeg(g.Direction(i).Dot(good))
		want := layer + GaussianOverlap(math.Abs(sep-30), b.IntersectionWidthDeg())
		if math.Abs(want-img.Data[i]) > 1e-12 {
			t.Fatalf("cell %d: want %.15f got %.15f", i, want, img.Data[i])
		}
	}
}

func TestParallelMatchesSerial(t *testing.T) {
	t.Parallel()

	axes := make([]Vec3, 0, 24)
	angles := make([]float64, 0, 24)
	for i := 0; i < 24; i++ {
		th := float64(i) * math.Pi / 12
		axes = append(axes, Vec3{math.Cos(th), math.Sin(th), 0.5}.Unit())
		angles = append(angles, float64(5+i*3))
	}

	serial := testEngine(t, 5, 2, 0)
	parallel := testEngine(t, 5, 2, 4)

	wantImg, err := serial.Backproject(axes, angles)
	require.NoError(t, err)
	gotImg, err := parallel.Backproject(axes, angles)
	require.NoError(t, err)

	assert.True(t, floats.EqualApprox(wantImg.Data, gotImg.Data, 1e-10),
		"parallel reduction must match serial within rounding")
	assert.Equal(t, serial.ConeCount(), parallel.ConeCount())
}

func TestImageIsNotAliased(t *testing.T) {
	t.Parallel()

	b := testEngine(t, 10, 2, 0)
	img, err := b.BackprojectOne(Vec3{0, 0, 1}, 20)
	require.NoError(t, err)

	// Mutating a returned image must not touch the engine's accumulator.
	img.Data[0] += 1000
	again := b.Image()
	assert.NotEqual(t, img.Data[0], again.Data[0])
}
