// Command gen-hits synthesizes a point-source interaction archive for
// exercising the backprojection pipeline without detector hardware.
package main

import (
	"flag"
	"log"
	"math/rand"

	"github.com/banshee-data/compton.report/internal/events"
	"github.com/banshee-data/compton.report/internal/imaging"
)

var (
	dbPath = flag.String("db", "hits.db", "Path to the interaction archive to create or append to")
	n      = flag.Int("n", 1000, "Number of double-interaction events to synthesize")
	seed   = flag.Int64("seed", 1, "Random seed")
	energy = flag.Float64("energy", 661.657, "Source line energy in keV")
	srcX   = flag.Float64("src-x", 0, "Source direction x component")
	srcY   = flag.Float64("src-y", 0, "Source direction y component")
	srcZ   = flag.Float64("src-z", 1, "Source direction z component")
)

func main() {
	flag.Parse()

	src := imaging.Vec3{X: *srcX, Y: *srcY, Z: *srcZ}
	if src.Norm() == 0 {
		log.Fatal("source direction must be non-zero")
	}
	if *n <= 0 {
		log.Fatal("-n must be positive")
	}

	store, err := events.Open(*dbPath)
	if err != nil {
		log.Fatalf("failed to open archive %s: %v", *dbPath, err)
	}
	defer store.Close()

	// Continue event IDs past whatever is already in the archive.
	existing, err := store.EventCount()
	if err != nil {
		log.Fatalf("failed to count existing events: %v", err)
	}

	rng := rand.New(rand.NewSource(*seed))
	ins := events.SynthesizeSource(rng, src, *energy, *n, int64(existing))
	if err := store.InsertInteractions(ins); err != nil {
		log.Fatalf("failed to insert interactions: %v", err)
	}

	log.Printf("wrote %d interactions (%d events) to %s, source direction (%.3f, %.3f, %.3f) at %.1f keV",
		len(ins), *n, *dbPath, src.X, src.Y, src.Z, *energy)
}
