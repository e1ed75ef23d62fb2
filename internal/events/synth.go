package events

import (
	"math"
	"math/rand"

	"github.com/banshee-data/compton.report/internal/imaging"
	"github.com/banshee-data/compton.report/internal/kinematics"
)

// SynthesizeSource generates n double-interaction photopeak events from a
// far-field point source in direction src, for a source line energy of e0
// keV. Each event scatters at a random angle within the forward Compton
// range; the interaction geometry is laid out so the reconstructed cone
// exactly contains src. Intended for demo archives and integration tests.
func SynthesizeSource(rng *rand.Rand, src imaging.Vec3, e0 float64, n int, startEventID int64) []Interaction {
	src = src.Unit()
	u, v := orthonormalBasis(src)

	ins := make([]Interaction, 0, 2*n)
	for i := 0; i < n; i++ {
		// Scatter angle well inside the arccos domain.
		openingDeg := 15 + rng.Float64()*45
		eDep := kinematics.DepositedEnergy(e0, openingDeg)

		// Cone axis at the opening angle from the source, random azimuth.
		openingRad := openingDeg * math.Pi / 180
		psi := rng.Float64() * 2 * math.Pi
		sinO, cosO := math.Sincos(openingRad)
		axis := imaging.Vec3{
			X: cosO*src.X + sinO*(math.Cos(psi)*u.X+math.Sin(psi)*v.X),
			Y: cosO*src.Y + sinO*(math.Cos(psi)*u.Y+math.Sin(psi)*v.Y),
			Z: cosO*src.Z + sinO*(math.Cos(psi)*u.Z+math.Sin(psi)*v.Z),
		}

		first := imaging.Vec3{
			X: (rng.Float64() - 0.5) * 40,
			Y: (rng.Float64() - 0.5) * 40,
			Z: (rng.Float64() - 0.5) * 40,
		}
		travel := 5 + rng.Float64()*25 // mm between interactions
		second := imaging.Vec3{
			X: first.X - axis.X*travel,
			Y: first.Y - axis.Y*travel,
			Z: first.Z - axis.Z*travel,
		}

		id := startEventID + int64(i)
		ins = append(ins,
			Interaction{EventID: id, Seq: 0, XMm: first.X, YMm: first.Y, ZMm: first.Z, EnergyKeV: eDep},
			Interaction{EventID: id, Seq: 1, XMm: second.X, YMm: second.Y, ZMm: second.Z, EnergyKeV: e0 - eDep},
		)
	}
	return ins
}

// orthonormalBasis returns two unit vectors perpendicular to w and to each
// other.
func orthonormalBasis(w imaging.Vec3) (u, v imaging.Vec3) {
	ref := imaging.Vec3{X: 1}
	if math.Abs(w.X) > 0.9 {
		ref = imaging.Vec3{Y: 1}
	}
	u = imaging.Vec3{
		X: w.Y*ref.Z - w.Z*ref.Y,
		Y: w.Z*ref.X - w.X*ref.Z,
		Z: w.X*ref.Y - w.Y*ref.X,
	}.Unit()
	v = imaging.Vec3{
		X: w.Y*u.Z - w.Z*u.Y,
		Y: w.Z*u.X - w.X*u.Z,
		Z: w.X*u.Y - w.Y*u.X,
	}
	return u, v
}
