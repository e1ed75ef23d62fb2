// Package events persists gamma-ray interaction records and selects the
// double-interaction photopeak events used for cone backprojection.
package events

import "github.com/banshee-data/compton.report/internal/imaging"

// Interaction is one energy deposit inside the detector. Seq orders the
// interactions of an event in time: 0 is the first scatter.
type Interaction struct {
	EventID   int64   `json:"event_id"`
	Seq       int     `json:"seq"`
	XMm       float64 `json:"x_mm"`
	YMm       float64 `json:"y_mm"`
	ZMm       float64 `json:"z_mm"`
	EnergyKeV float64 `json:"energy_kev"`
}

// Pos returns the interaction position as a vector in detector space.
func (in Interaction) Pos() imaging.Vec3 {
	return imaging.Vec3{X: in.XMm, Y: in.YMm, Z: in.ZMm}
}

// Event is one recorded gamma-ray history: an ordered set of interactions
// sharing an event ID.
type Event struct {
	ID           int64
	Interactions []Interaction
}

// TotalEnergyKeV sums the deposits of all interactions.
func (e Event) TotalEnergyKeV() float64 {
	var sum float64
	for _, in := range e.Interactions {
		sum += in.EnergyKeV
	}
	return sum
}

// IsDouble reports whether the event has exactly two interactions.
func (e Event) IsDouble() bool { return len(e.Interactions) == 2 }
