// Package pipeline runs the full reconstruction chain: load events from the
// archive, select photopeak doubles, derive cones, backproject, and record
// the run.
package pipeline

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/banshee-data/compton.report/internal/config"
	"github.com/banshee-data/compton.report/internal/events"
	"github.com/banshee-data/compton.report/internal/imaging"
	"github.com/banshee-data/compton.report/internal/monitoring"
)

// Result is one completed backprojection with everything a caller needs to
// render or persist it.
type Result struct {
	Run   *events.Run
	Image *imaging.Image
	Grid  *imaging.AngularGrid
}

// runParams is the parameter snapshot stored with each run record.
type runParams struct {
	AngularBinSizeDeg     float64 `json:"angular_bin_size_deg"`
	IntersectionWidthDeg  float64 `json:"intersection_width_deg"`
	SourceEnergyKeV       float64 `json:"source_energy_kev"`
	PhotopeakThresholdKeV float64 `json:"photopeak_threshold_kev"`
	MaxEvents             int     `json:"max_events"`
	Workers               int     `json:"workers"`
}

// Run executes one backprojection over the archive with the given tuning
// and persists a run record. runs may be nil to skip persistence.
func Run(store *events.Store, runs *events.RunStore, cfg *config.TuningConfig) (*Result, error) {
	evs, err := store.ListEvents(cfg.GetMaxEvents())
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	kept := events.PhotopeakDoubles(evs, cfg.GetPhotopeakThresholdKeV())
	if len(kept) == 0 {
		return nil, fmt.Errorf("no photopeak double-interaction events in archive (threshold %.1f keV)", cfg.GetPhotopeakThresholdKeV())
	}

	axes, angles, clamped := events.Cones(kept, cfg.GetSourceEnergyKeV())
	if clamped > 0 {
		monitoring.Logf("cone preparation: %d of %d opening angles clamped at the Compton edge", clamped, len(angles))
	}

	grid, err := imaging.NewAngularGrid(cfg.GetAngularBinSizeDeg(), imaging.ForwardPole)
	if err != nil {
		return nil, fmt.Errorf("build imaging space: %w", err)
	}
	bp, err := imaging.NewBackprojector(grid, imaging.Params{
		IntersectionWidthDeg: cfg.GetIntersectionWidthDeg(),
		Workers:              cfg.GetWorkers(),
	})
	if err != nil {
		return nil, fmt.Errorf("build backprojector: %w", err)
	}

	start := time.Now()
	img, err := bp.Backproject(axes, angles)
	if err != nil {
		return nil, fmt.Errorf("backproject: %w", err)
	}
	elapsed := time.Since(start)

	row, col, peak := img.Peak()
	phi, theta := grid.DisplayAngles(row, col)
	monitoring.Logf("backprojection done: %d cones in %s, peak %.2f at (phi %.1f, theta %.1f)",
		len(axes), elapsed.Round(time.Millisecond), peak, phi, theta)

	params, err := json.Marshal(runParams{
		AngularBinSizeDeg:     cfg.GetAngularBinSizeDeg(),
		IntersectionWidthDeg:  cfg.GetIntersectionWidthDeg(),
		SourceEnergyKeV:       cfg.GetSourceEnergyKeV(),
		PhotopeakThresholdKeV: cfg.GetPhotopeakThresholdKeV(),
		MaxEvents:             cfg.GetMaxEvents(),
		Workers:               cfg.GetWorkers(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal run params: %w", err)
	}

	run := &events.Run{
		ParamsJSON:    params,
		ConeCount:     len(axes),
		ClampedAngles: clamped,
		PeakPhiDeg:    phi,
		PeakThetaDeg:  theta,
		PeakValue:     peak,
		DurationMs:    elapsed.Milliseconds(),
	}
	if runs != nil {
		if err := runs.Insert(run); err != nil {
			return nil, fmt.Errorf("record run: %w", err)
		}
	}

	return &Result{Run: run, Image: img, Grid: grid}, nil
}
