package imaging

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGaussianOverlap(t *testing.T) {
	t.Parallel()

	// Exact surface intersection scores 1.
	assert.Equal(t, 1.0, GaussianOverlap(0, 0.5))

	// One standard deviation out scores exp(-1/2).
	assert.InDelta(t, math.Exp(-0.5), GaussianOverlap(0.5, 0.5), 1e-15)
	assert.InDelta(t, math.Exp(-0.5), GaussianOverlap(3, 3), 1e-15)

	// Strictly decreasing in the gap.
	prev := math.Inf(1)
	for gap := 0.0; gap <= 10; gap += 0.25 {
		v := GaussianOverlap(gap, 0.5)
		assert.Less(t, v, prev, "gap %g", gap)
		prev = v
	}
}

func TestAngularSeparationDeg(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0, AngularSeparationDeg(1), 1e-12)
	assert.InDelta(t, 90, AngularSeparationDeg(0), 1e-12)
	assert.InDelta(t, 180, AngularSeparationDeg(-1), 1e-12)
	assert.InDelta(t, 60, AngularSeparationDeg(0.5), 1e-12)
}

// The arccos domain tolerance: dot products outside [-1,1], which only
// rounding or a malformed axis can produce, collapse to zero separation
// instead of propagating NaN.
func TestAngularSeparationDegTolerance(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.0, AngularSeparationDeg(1+1e-9))
	assert.Equal(t, 0.0, AngularSeparationDeg(-1-1e-9))
	assert.Equal(t, 0.0, AngularSeparationDeg(math.NaN()))
	assert.Equal(t, 0.0, AngularSeparationDeg(math.Inf(1)))
	assert.Equal(t, 0.0, AngularSeparationDeg(math.Inf(-1)))
}
