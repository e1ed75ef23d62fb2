package kinematics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/compton.report/internal/imaging"
)

const cs137KeV = 661.657

func TestOpeningAngleRoundTrip(t *testing.T) {
	t.Parallel()

	// Any deposit below the Compton edge survives the angle -> deposit
	// inversion.
	for eDep := 25.0; eDep < 475; eDep += 25 {
		angle, clamped := OpeningAngle(cs137KeV, eDep)
		require.False(t, clamped, "eDep %g should be in domain", eDep)
		back := DepositedEnergy(cs137KeV, angle)
		assert.InDelta(t, eDep, back, 1e-9, "eDep %g", eDep)
	}
}

func TestOpeningAngleBoundaries(t *testing.T) {
	t.Parallel()

	// Zero deposit means no scatter.
	angle, clamped := OpeningAngle(cs137KeV, 0)
	assert.InDelta(t, 0, angle, 1e-12)
	assert.False(t, clamped)

	// Full absorption is past the Compton edge; the cosine diverges to
	// -inf and clamps to the backscatter limit.
	angle, clamped = OpeningAngle(cs137KeV, cs137KeV)
	assert.Equal(t, 180.0, angle)
	assert.True(t, clamped)

	// Deposits past the edge but below full absorption clamp too.
	angle, clamped = OpeningAngle(cs137KeV, 600)
	assert.Equal(t, 180.0, angle)
	assert.True(t, clamped)
}

func TestConeAngles(t *testing.T) {
	t.Parallel()

	angles, clampedCount := ConeAngles(cs137KeV, []float64{0, 100, 200, cs137KeV})
	require.Len(t, angles, 4)
	assert.Equal(t, 1, clampedCount)
	assert.InDelta(t, 0, angles[0], 1e-12)
	assert.Equal(t, 180.0, angles[3])

	// Monotonically increasing below the edge.
	assert.Greater(t, angles[2], angles[1])
	assert.Greater(t, angles[1], angles[0])
}

func TestScatterAxis(t *testing.T) {
	t.Parallel()

	first := imaging.Vec3{X: 1, Y: 2, Z: 3}
	second := imaging.Vec3{X: 1, Y: 2, Z: 1}

	axis := ScatterAxis(first, second)
	assert.InDelta(t, 1, axis.Norm(), 1e-12)
	assert.InDelta(t, 0, axis.X, 1e-12)
	assert.InDelta(t, 0, axis.Y, 1e-12)
	assert.InDelta(t, 1, axis.Z, 1e-12)
}

func TestScatterAxes(t *testing.T) {
	t.Parallel()

	firsts := []imaging.Vec3{{X: 2}, {Y: -3}}
	seconds := []imaging.Vec3{{X: 1}, {Y: 0}}

	axes, err := ScatterAxes(firsts, seconds)
	require.NoError(t, err)
	require.Len(t, axes, 2)
	for i, a := range axes {
		assert.InDelta(t, 1, a.Norm(), 1e-12, "axis %d", i)
	}
	assert.InDelta(t, -1, axes[1].Y, 1e-12)

	_, err = ScatterAxes(firsts, seconds[:1])
	assert.Error(t, err)
}

func TestScatterAxisDegenerate(t *testing.T) {
	t.Parallel()

	// Coincident interactions have no defined axis; the zero vector comes
	// back unchanged rather than NaN.
	axis := ScatterAxis(imaging.Vec3{X: 1}, imaging.Vec3{X: 1})
	assert.False(t, math.IsNaN(axis.X))
	assert.Equal(t, 0.0, axis.Norm())
}
