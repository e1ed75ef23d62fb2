package imaging

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Orientation couples a fixed re-orientation of the imaging space with the
// display extent that belongs to it. The two must never drift independently:
// the extent declares where the re-oriented grid lands on a 2D display, so a
// changed transform with a stale extent silently breaks every consumer of
// the image. Orientations are therefore versioned by name and validated as
// a pair at grid construction.
type Orientation struct {
	name string
	// matrix is the row-major 3x3 transform applied as row-vector * matrix
	// to every grid direction.
	matrix [9]float64
	// extent is the display bounding box [phi_min, phi_max, theta_min,
	// theta_max] in degrees for images built on this orientation.
	extent [4]float64
}

// ForwardPole aligns the grid with the detector coordinate convention used
// by the cone kinematics: the sampling-dense sphere poles are rotated away
// from the forward direction, so a point source ahead of the detector lands
// in the middle of the display rather than on an oversampled seam.
var ForwardPole = Orientation{
	name: "forward-pole-v1",
	matrix: [9]float64{
		0, 0, 1,
		1, 0, 0,
		0, 1, 0,
	},
	extent: [4]float64{-180, 180, -90, 90},
}

// knownExtents registers the display extent belonging to each orientation
// version. Validate refuses an Orientation whose extent disagrees with its
// registered value, which is the construction-time assertion linking the
// transform and the extent.
var knownExtents = map[string][4]float64{
	"forward-pole-v1": {-180, 180, -90, 90},
}

// Name returns the orientation version identifier.
func (o Orientation) Name() string { return o.name }

// Extent returns the display bounding box [phi_min, phi_max, theta_min,
// theta_max] in degrees.
func (o Orientation) Extent() [4]float64 { return o.extent }

// dense returns the transform as a gonum matrix.
func (o Orientation) dense() *mat.Dense {
	m := make([]float64, 9)
	copy(m, o.matrix[:])
	return mat.NewDense(3, 3, m)
}

// Validate checks that the transform is orthogonal (so it cannot change
// vector norms) and that the extent matches the one registered for this
// orientation version.
func (o Orientation) Validate() error {
	if o.name == "" {
		return fmt.Errorf("orientation has no version name")
	}
	want, ok := knownExtents[o.name]
	if !ok {
		return fmt.Errorf("unknown orientation version %q", o.name)
	}
	if o.extent != want {
		return fmt.Errorf("orientation %q extent %v does not match registered extent %v",
			o.name, o.extent, want)
	}

	// M^T M must be the identity.
	m := o.dense()
	var mtm mat.Dense
	mtm.Mul(m.T(), m)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			want := 0.0
			if r == c {
				want = 1.0
			}
			if math.Abs(mtm.At(r, c)-want) > 1e-12 {
				return fmt.Errorf("orientation %q transform is not orthogonal", o.name)
			}
		}
	}
	return nil
}
