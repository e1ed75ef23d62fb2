// Package kinematics derives backprojection cone parameters from raw
// double-interaction event data: opening angles from Compton scattering
// kinematics and scatter axes from interaction positions.
package kinematics

import "math"

// ElectronRestMassKeV is the electron rest mass in keV.
const ElectronRestMassKeV = 511.0

// OpeningAngle computes the Compton scatter angle in degrees for a photon
// of initial energy e0 that deposited eDep in its first interaction, both
// in keV.
//
// The scatter cosine 1 + me/e0 - me/(e0-eDep) leaves [-1, 1] when eDep
// approaches or exceeds the Compton edge, where a plain Acos would return
// NaN. Out-of-domain cosines are clamped to the nearest bound and reported
// through the second return value, so eDep == e0 yields the 180 degree
// backscatter limit rather than NaN. A NaN input still propagates.
func OpeningAngle(e0, eDep float64) (angleDeg float64, clamped bool) {
	a0 := e0 / ElectronRestMassKeV
	ad := (e0 - eDep) / ElectronRestMassKeV
	mu := 1 + 1/a0 - 1/ad
	if mu > 1 {
		mu, clamped = 1, true
	} else if mu < -1 {
		mu, clamped = -1, true
	}
	return math.Acos(mu) * 180 / math.Pi, clamped
}

// ConeAngles computes opening angles for a batch of first-interaction
// deposits against a common initial energy. It returns the angles in
// degrees and how many cosines had to be clamped into the arccos domain.
func ConeAngles(e0 float64, eDeps []float64) (anglesDeg []float64, clampedCount int) {
	anglesDeg = make([]float64, len(eDeps))
	for i, eDep := range eDeps {
		angle, clamped := OpeningAngle(e0, eDep)
		anglesDeg[i] = angle
		if clamped {
			clampedCount++
		}
	}
	return anglesDeg, clampedCount
}

// DepositedEnergy inverts OpeningAngle: it returns the first-interaction
// deposit in keV that produces the given scatter angle for a photon of
// initial energy e0.
func DepositedEnergy(e0, angleDeg float64) float64 {
	a0 := e0 / ElectronRestMassKeV
	mu := math.Cos(angleDeg * math.Pi / 180)
	ad := 1 / (1 + 1/a0 - mu)
	return e0 - ad*ElectronRestMassKeV
}
