// Package api exposes the backprojection pipeline over HTTP: triggering
// runs against the event archive and fetching the reconstructed image in
// several formats.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/banshee-data/compton.report/internal/config"
	"github.com/banshee-data/compton.report/internal/events"
	"github.com/banshee-data/compton.report/internal/imaging"
	"github.com/banshee-data/compton.report/internal/monitoring"
	"github.com/banshee-data/compton.report/internal/pipeline"
	"github.com/banshee-data/compton.report/internal/render"
	"github.com/banshee-data/compton.report/internal/version"
)

// Server serves the reconstruction API. The most recent result is held in
// memory so image endpoints can serve it without re-running the pipeline.
type Server struct {
	store *events.Store
	runs  *events.RunStore
	cfg   *config.TuningConfig

	mu   sync.Mutex
	last *pipeline.Result
}

// NewServer creates a Server over an opened archive.
func NewServer(store *events.Store, runs *events.RunStore, cfg *config.TuningConfig) *Server {
	return &Server{store: store, runs: runs, cfg: cfg}
}

// ServeMux returns the route table.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/backproject", s.handleBackproject)
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/image.csv", s.handleImageCSV)
	mux.HandleFunc("/api/image.png", s.handleImagePNG)
	mux.HandleFunc("/debug/heatmap", s.handleHeatmap)
	return mux
}

// loggingResponseWriter captures the status code for request logging.
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf("[%d] %s %s %vms", lrw.statusCode, r.Method, r.RequestURI,
			float64(time.Since(start).Nanoseconds())/1e6)
	})
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		monitoring.Logf("failed to encode response: %v", err)
	}
}

// requestConfig applies per-request query overrides on top of the server's
// tuning config.
func (s *Server) requestConfig(r *http.Request) (*config.TuningConfig, error) {
	cfg := *s.cfg
	q := r.URL.Query()

	if v := q.Get("max_events"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid max_events %q", v)
		}
		cfg.MaxEvents = &n
	}
	if v := q.Get("workers"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid workers %q", v)
		}
		cfg.Workers = &n
	}
	if v := q.Get("bin_size_deg"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bin_size_deg %q", v)
		}
		cfg.AngularBinSizeDeg = &f
	}
	if v := q.Get("width_deg"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid width_deg %q", v)
		}
		cfg.IntersectionWidthDeg = &f
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *Server) handleBackproject(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cfg, err := s.requestConfig(r)
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := pipeline.Run(s.store, s.runs, cfg)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.mu.Lock()
	s.last = res
	s.mu.Unlock()

	s.writeJSON(w, res.Run)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = n
	}

	runs, err := s.runs.List(limit)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []*events.Run{}
	}
	s.writeJSON(w, runs)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"angular_bin_size_deg":    s.cfg.GetAngularBinSizeDeg(),
		"intersection_width_deg":  s.cfg.GetIntersectionWidthDeg(),
		"source_energy_kev":       s.cfg.GetSourceEnergyKeV(),
		"photopeak_threshold_kev": s.cfg.GetPhotopeakThresholdKeV(),
		"max_events":              s.cfg.GetMaxEvents(),
		"workers":                 s.cfg.GetWorkers(),
		"orientation":             imaging.ForwardPole.Name(),
		"extent":                  imaging.ForwardPole.Extent(),
		"version":                 version.Version,
	})
}

// lastResult returns the most recent pipeline result, or nil.
func (s *Server) lastResult() *pipeline.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Server) handleImageCSV(w http.ResponseWriter, r *http.Request) {
	res := s.lastResult()
	if res == nil {
		s.writeJSONError(w, http.StatusNotFound, "no backprojection has been run yet")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	if err := render.WriteCSV(w, res.Image); err != nil {
		monitoring.Logf("csv write failed: %v", err)
	}
}

func (s *Server) handleImagePNG(w http.ResponseWriter, r *http.Request) {
	res := s.lastResult()
	if res == nil {
		s.writeJSONError(w, http.StatusNotFound, "no backprojection has been run yet")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	title := fmt.Sprintf("Compton backprojection: %d cones", res.Run.ConeCount)
	if err := render.WritePNG(w, res.Image, res.Grid.Extent(), title); err != nil {
		monitoring.Logf("png write failed: %v", err)
	}
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	res := s.lastResult()
	if res == nil {
		s.writeJSONError(w, http.StatusNotFound, "no backprojection has been run yet")
		return
	}

	maxPoints := 8000
	if v := r.URL.Query().Get("max_points"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 100 && n <= 50000 {
			maxPoints = n
		}
	}

	subtitle := fmt.Sprintf("run=%s cones=%d peak=%.1f", res.Run.RunID, res.Run.ConeCount, res.Run.PeakValue)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render.HeatmapHTML(w, res.Image, res.Grid.Extent(), subtitle, maxPoints); err != nil {
		monitoring.Logf("heatmap render failed: %v", err)
	}
}
