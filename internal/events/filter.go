package events

import (
	"github.com/banshee-data/compton.report/internal/imaging"
	"github.com/banshee-data/compton.report/internal/kinematics"
	"github.com/banshee-data/compton.report/internal/monitoring"
)

// PhotopeakDoubles selects the events usable for backprojection: exactly
// two interactions (one Compton scatter plus full absorption) whose summed
// energy clears the photopeak threshold, meaning the photon deposited its
// full energy in the detector.
func PhotopeakDoubles(evs []Event, thresholdKeV float64) []Event {
	var out []Event
	for _, e := range evs {
		if e.IsDouble() && e.TotalEnergyKeV() > thresholdKeV {
			out = append(out, e)
		}
	}
	monitoring.Logf("photopeak filter: %d of %d events kept (threshold %.1f keV)", len(out), len(evs), thresholdKeV)
	return out
}

// Cones converts filtered double-interaction events into backprojection
// inputs: scatter axes from the interaction positions and opening angles
// from the first-interaction deposit against the source energy e0. The
// clamped count reports how many deposits were past the Compton edge (see
// kinematics.OpeningAngle).
func Cones(evs []Event, e0 float64) (axes []imaging.Vec3, anglesDeg []float64, clamped int) {
	axes = make([]imaging.Vec3, 0, len(evs))
	eDeps := make([]float64, 0, len(evs))
	for _, e := range evs {
		if len(e.Interactions) < 2 {
			continue
		}
		axes = append(axes, kinematics.ScatterAxis(e.Interactions[0].Pos(), e.Interactions[1].Pos()))
		eDeps = append(eDeps, e.Interactions[0].EnergyKeV)
	}
	anglesDeg, clamped = kinematics.ConeAngles(e0, eDeps)
	return axes, anglesDeg, clamped
}
