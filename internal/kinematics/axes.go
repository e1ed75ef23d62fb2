package kinematics

import (
	"fmt"

	"github.com/banshee-data/compton.report/internal/imaging"
)

// ScatterAxis returns the unit cone axis for one double-interaction event:
// the normalized difference of the first and second interaction positions.
// Interactions are assumed to be time-sequenced.
func ScatterAxis(first, second imaging.Vec3) imaging.Vec3 {
	return first.Sub(second).Unit()
}

// ScatterAxes maps first/second interaction position slices pairwise to
// unit cone axes.
func ScatterAxes(firsts, seconds []imaging.Vec3) ([]imaging.Vec3, error) {
	if len(firsts) != len(seconds) {
		return nil, fmt.Errorf("interaction position shape mismatch: %d firsts, %d seconds", len(firsts), len(seconds))
	}
	axes := make([]imaging.Vec3, len(firsts))
	for i := range firsts {
		axes[i] = ScatterAxis(firsts[i], seconds[i])
	}
	return axes, nil
}
