package imaging

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/compton.report/internal/monitoring"
)

// progressLogInterval is how often the serial cone loop reports progress.
const progressLogInterval = 1000

// Params configures a Backprojector.
type Params struct {
	// IntersectionWidthDeg is the standard deviation of the Gaussian
	// surface-intersection kernel, in degrees. Must be positive.
	IntersectionWidthDeg float64

	// Workers sets the number of goroutines for the per-cone loop.
	// 0 or 1 runs serially. Parallel runs accumulate into per-worker
	// buffers merged once at the end, so only the floating-point
	// reduction order differs from a serial run.
	Workers int
}

// Backprojector accumulates Compton cone surface intersections into an
// intensity image over a shared angular grid.
//
// The image buffer is owned exclusively by the Backprojector and is reset
// at the start of every Backproject call; BackprojectAccumulate keeps it.
// The lifetime cone counter is monotonic and survives clears. A
// Backprojector is not safe for concurrent use.
type Backprojector struct {
	grid     *AngularGrid
	widthDeg float64
	workers  int

	img       []float64
	coneCount uint64
}

// NewBackprojector creates an engine over the given grid.
func NewBackprojector(grid *AngularGrid, p Params) (*Backprojector, error) {
	if grid == nil {
		return nil, fmt.Errorf("backprojector requires a grid")
	}
	if p.IntersectionWidthDeg <= 0 {
		return nil, fmt.Errorf("intersection kernel width must be positive, got %g", p.IntersectionWidthDeg)
	}
	return &Backprojector{
		grid:     grid,
		widthDeg: p.IntersectionWidthDeg,
		workers:  p.Workers,
		img:      make([]float64, grid.Len()),
	}, nil
}

// Grid returns the shared angular grid.
func (b *Backprojector) Grid() *AngularGrid { return b.grid }

// IntersectionWidthDeg returns the configured kernel width in degrees.
func (b *Backprojector) IntersectionWidthDeg() float64 { return b.widthDeg }

// ConeCount returns the number of cones processed over the object's
// lifetime. It is never reset, not even by ClearImage.
func (b *Backprojector) ConeCount() uint64 { return b.coneCount }

// ClearImage zeroes the accumulator buffer.
func (b *Backprojector) ClearImage() {
	for i := range b.img {
		b.img[i] = 0
	}
}

// Image returns a copy of the current accumulator reshaped to the grid
// dimensions. Callers get their own buffer; the internal accumulator is
// never aliased out.
func (b *Backprojector) Image() *Image {
	data := make([]float64, len(b.img))
	copy(data, b.img)
	return &Image{Rows: b.grid.Rows, Cols: b.grid.Cols, Data: data}
}

// Backproject clears the image and accumulates the given cone batch into
// it. Axes must already be unit vectors; they are not re-normalized, and a
// malformed cone corrupts only its own contribution (see
// AngularSeparationDeg). Opening angles are in degrees, nominally [0, 180],
// and are not validated for compatibility with the established numerical
// behavior.
func (b *Backprojector) Backproject(axes []Vec3, openingAnglesDeg []float64) (*Image, error) {
	b.ClearImage()
	return b.BackprojectAccumulate(axes, openingAnglesDeg)
}

// BackprojectAccumulate accumulates the given cone batch on top of the
// current image without clearing first.
func (b *Backprojector) BackprojectAccumulate(axes []Vec3, openingAnglesDeg []float64) (*Image, error) {
	if len(axes) != len(openingAnglesDeg) {
		return nil, fmt.Errorf("cone batch shape mismatch: %d axes, %d angles", len(axes), len(openingAnglesDeg))
	}

	if b.workers > 1 && len(axes) > 1 {
		b.accumulateParallel(axes, openingAnglesDeg)
	} else {
		for i := range axes {
			b.projectCone(b.img, axes[i], openingAnglesDeg[i])
			if (i+1)%progressLogInterval == 0 {
				monitoring.Logf("backprojected %d/%d cones", i+1, len(axes))
			}
		}
	}

	b.coneCount += uint64(len(axes))
	return b.Image(), nil
}

// BackprojectOne is the single-cone convenience form of Backproject; it
// behaves exactly like a length-1 batch.
func (b *Backprojector) BackprojectOne(axis Vec3, openingAngleDeg float64) (*Image, error) {
	return b.Backproject([]Vec3{axis}, []float64{openingAngleDeg})
}

// projectCone scores every grid cell against one cone and adds the scores
// into dst. Accumulation is a plain element-wise sum, so overlapping cones
// reinforce.
func (b *Backprojector) projectCone(dst []float64, axis Vec3, openingAngleDeg float64) {
	n := b.grid.Len()
	for i := 0; i < n; i++ {
		sep := AngularSeparationDeg(b.grid.Direction(i).Dot(axis))
		gap := sep - openingAngleDeg
		if gap < 0 {
			gap = -gap
		}
		dst[i] += GaussianOverlap(gap, b.widthDeg)
	}
}

// accumulateParallel splits the cone batch across workers, each with a
// private partial image, and merges the partials by addition. Cone
// application is associative and commutative up to rounding, so the result
// matches a serial run within floating-point tolerance.
func (b *Backprojector) accumulateParallel(axes []Vec3, openingAnglesDeg []float64) {
	workers := min(b.workers, len(axes))
	chunk := (len(axes) + workers - 1) / workers

	partials := make([][]float64, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := min(start+chunk, len(axes))
		if start >= end {
			break
		}
		partials[w] = make([]float64, b.grid.Len())
		wg.Add(1)
		go func(dst []float64, axes []Vec3, angles []float64) {
			defer wg.Done()
			for i := range axes {
				b.projectCone(dst, axes[i], angles[i])
			}
		}(partials[w], axes[start:end], openingAnglesDeg[start:end])
	}
	wg.Wait()

	for _, p := range partials {
		if p != nil {
			floats.Add(b.img, p)
		}
	}
}
