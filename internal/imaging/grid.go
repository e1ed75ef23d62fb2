// Package imaging builds the discretized angular imaging space and
// backprojects Compton cones onto it.
package imaging

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/compton.report/internal/monitoring"
)

// normToleranceDeviation is the maximum deviation from unit length allowed
// for a grid direction before construction fails.
const normTolerance = 1e-7

// AngularGrid discretizes the full sphere of candidate source directions
// into an azimuth x polar-angle grid. It is built once, validated, and
// shared read-only by every backprojection call.
//
// Rows sample the polar angle [0, 180] degrees, columns the azimuth
// [0, 360] degrees, both with endpoints included. Cells are flattened
// row-major, so index = row*Cols + col. Near the poles many cells map to
// nearly the same direction; that oversampling is accepted and rotated away
// from the region of interest by the Orientation.
type AngularGrid struct {
	BinSizeDeg float64
	Rows       int
	Cols       int

	// dirs holds one unit vector per cell, xyz-interleaved, len Rows*Cols*3.
	dirs   []float64
	orient Orientation
}

// NewAngularGrid discretizes the sphere with the given angular bin size in
// degrees and applies the orientation transform to every direction.
// Construction fails if the orientation is inconsistent or any resulting
// direction is not unit length within tolerance.
func NewAngularGrid(binSizeDeg float64, orient Orientation) (*AngularGrid, error) {
	if binSizeDeg <= 0 {
		return nil, fmt.Errorf("angular bin size must be positive, got %g", binSizeDeg)
	}
	if err := orient.Validate(); err != nil {
		return nil, fmt.Errorf("orientation check failed: %w", err)
	}

	rows := int(180/binSizeDeg) + 1
	cols := int(360/binSizeDeg) + 1
	n := rows * cols

	thetas := linspace(0, 180, rows)
	phis := linspace(0, 360, cols)

	raw := make([]float64, n*3)
	for r := 0; r < rows; r++ {
		sinTh, cosTh := math.Sincos(thetas[r] * math.Pi / 180)
		for c := 0; c < cols; c++ {
			sinPhi, cosPhi := math.Sincos(phis[c] * math.Pi / 180)
			i := (r*cols + c) * 3
			raw[i] = sinTh * cosPhi
			raw[i+1] = sinTh * sinPhi
			raw[i+2] = cosTh
		}
	}

	// Re-orient: each direction is a row vector, transformed in one multiply.
	dirs := make([]float64, n*3)
	oriented := mat.NewDense(n, 3, dirs)
	oriented.Mul(mat.NewDense(n, 3, raw), orient.dense())

	for i := 0; i < n; i++ {
		if math.Abs(floats.Norm(dirs[i*3:i*3+3], 2)-1) > normTolerance {
			return nil, fmt.Errorf("imaging space normalization failure at cell %d", i)
		}
	}

	monitoring.Logf("imaging space ready: %d cells (%d x %d, %.3g deg bins)", n, rows, cols, binSizeDeg)
	return &AngularGrid{
		BinSizeDeg: binSizeDeg,
		Rows:       rows,
		Cols:       cols,
		dirs:       dirs,
		orient:     orient,
	}, nil
}

// linspace returns n evenly spaced samples from start to stop inclusive.
func linspace(start, stop float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

// Len returns the number of grid cells.
func (g *AngularGrid) Len() int { return g.Rows * g.Cols }

// Index returns the flat cell index for a (row, col) pair.
func (g *AngularGrid) Index(row, col int) int { return row*g.Cols + col }

// Direction returns the unit direction vector for flat cell index i.
func (g *AngularGrid) Direction(i int) Vec3 {
	d := g.dirs[i*3 : i*3+3]
	return Vec3{d[0], d[1], d[2]}
}

// Orientation returns the orientation the grid was built with.
func (g *AngularGrid) Orientation() Orientation { return g.orient }

// Extent returns the display bounding box [phi_min, phi_max, theta_min,
// theta_max] in degrees for images built on this grid. It is declared by
// the grid's Orientation, not derived from the direction table.
func (g *AngularGrid) Extent() [4]float64 { return g.orient.Extent() }

// DisplayAngles maps a cell to its display coordinates within Extent.
// Column 0 maps to phi_min and the last column to phi_max; row 0 maps to
// theta_max (top of the display) and the last row to theta_min.
func (g *AngularGrid) DisplayAngles(row, col int) (phiDeg, thetaDeg float64) {
	e := g.orient.Extent()
	phiDeg = e[0]
	if g.Cols > 1 {
		phiDeg += (e[1] - e[0]) * float64(col) / float64(g.Cols-1)
	}
	thetaDeg = e[3]
	if g.Rows > 1 {
		thetaDeg -= (e[3] - e[2]) * float64(row) / float64(g.Rows-1)
	}
	return phiDeg, thetaDeg
}
