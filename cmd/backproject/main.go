// Command backproject reconstructs a 2D angular image from the Compton
// cones of an interaction archive, writing the image as PNG/CSV/HTML or
// serving it over HTTP.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/banshee-data/compton.report/internal/api"
	"github.com/banshee-data/compton.report/internal/config"
	"github.com/banshee-data/compton.report/internal/events"
	"github.com/banshee-data/compton.report/internal/pipeline"
	"github.com/banshee-data/compton.report/internal/render"
	"github.com/banshee-data/compton.report/internal/version"
)

var (
	dbPath     = flag.String("db", "hits.db", "Path to the interaction archive")
	configPath = flag.String("config", "", "Optional tuning config JSON (see config/tuning.defaults.json)")
	outDir     = flag.String("out", "out", "Output directory for image artifacts")
	listen     = flag.String("listen", "", "Serve the HTTP API on this address instead of running once")

	binSize   = flag.Float64("bin", 0, "Angular bin size in degrees (overrides config)")
	width     = flag.Float64("width", 0, "Intersection kernel width in degrees (overrides config)")
	sourceKeV = flag.Float64("source-kev", 0, "Source line energy in keV (overrides config)")
	threshold = flag.Float64("threshold-kev", -1, "Photopeak threshold in keV (overrides config)")
	maxEvents = flag.Int("max-events", -1, "Maximum events to load, 0 = all (overrides config)")
	workers   = flag.Int("workers", -1, "Backprojection worker count, 0 = serial (overrides config)")
)

func loadConfig() (*config.TuningConfig, error) {
	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		loaded, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	// Explicit flags override the config file.
	if *binSize > 0 {
		cfg.AngularBinSizeDeg = binSize
	}
	if *width > 0 {
		cfg.IntersectionWidthDeg = width
	}
	if *sourceKeV > 0 {
		cfg.SourceEnergyKeV = sourceKeV
	}
	if *threshold >= 0 {
		cfg.PhotopeakThresholdKeV = threshold
	}
	if *maxEvents >= 0 {
		cfg.MaxEvents = maxEvents
	}
	if *workers >= 0 {
		cfg.Workers = workers
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	store, err := events.Open(*dbPath)
	if err != nil {
		log.Fatalf("failed to open archive %s: %v", *dbPath, err)
	}
	defer store.Close()
	runs := events.NewRunStore(store.DB())

	if *listen != "" {
		srv := api.NewServer(store, runs, cfg)
		log.Printf("backproject %s serving API on %s", version.String(), *listen)
		if err := http.ListenAndServe(*listen, api.LoggingMiddleware(srv.ServeMux())); err != nil {
			log.Fatalf("http server: %v", err)
		}
		return
	}

	res, err := pipeline.Run(store, runs, cfg)
	if err != nil {
		log.Fatalf("backprojection failed: %v", err)
	}

	if err := writeArtifacts(res); err != nil {
		log.Fatalf("failed to write outputs: %v", err)
	}

	log.Printf("run %s: %d cones, peak %.2f at (phi %.1f, theta %.1f), %d ms",
		res.Run.RunID, res.Run.ConeCount, res.Run.PeakValue,
		res.Run.PeakPhiDeg, res.Run.PeakThetaDeg, res.Run.DurationMs)
}

func writeArtifacts(res *pipeline.Result) error {
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	extent := res.Grid.Extent()
	title := fmt.Sprintf("Compton backprojection: %d cones", res.Run.ConeCount)

	pngPath := filepath.Join(*outDir, res.Run.RunID+".png")
	if err := render.SavePNG(res.Image, extent, title, pngPath); err != nil {
		return err
	}

	csvPath := filepath.Join(*outDir, res.Run.RunID+".csv")
	f, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()
	if err := render.WriteCSV(f, res.Image); err != nil {
		return err
	}

	htmlPath := filepath.Join(*outDir, res.Run.RunID+".html")
	hf, err := os.Create(htmlPath)
	if err != nil {
		return fmt.Errorf("create html: %w", err)
	}
	defer hf.Close()
	subtitle := fmt.Sprintf("run=%s cones=%d", res.Run.RunID, res.Run.ConeCount)
	if err := render.HeatmapHTML(hf, res.Image, extent, subtitle, 0); err != nil {
		return err
	}

	log.Printf("wrote %s, %s, %s", pngPath, csvPath, htmlPath)
	return nil
}
