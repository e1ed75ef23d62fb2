package events

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run records one completed backprojection over the archive: the parameters
// it was run with and where the reconstructed image peaked.
type Run struct {
	RunID         string          `json:"run_id"`
	CreatedAtNs   int64           `json:"created_at_ns"`
	ParamsJSON    json.RawMessage `json:"params_json,omitempty"`
	ConeCount     int             `json:"cone_count"`
	ClampedAngles int             `json:"clamped_angles"`
	PeakPhiDeg    float64         `json:"peak_phi_deg"`
	PeakThetaDeg  float64         `json:"peak_theta_deg"`
	PeakValue     float64         `json:"peak_value"`
	DurationMs    int64           `json:"duration_ms"`
}

// RunStore provides persistence for backprojection run records.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a RunStore on an already-migrated database.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// Insert persists a run record. If RunID is empty, a UUID is generated.
func (s *RunStore) Insert(run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.CreatedAtNs == 0 {
		run.CreatedAtNs = time.Now().UnixNano()
	}

	var paramsStr interface{}
	if len(run.ParamsJSON) > 0 {
		paramsStr = string(run.ParamsJSON)
	}

	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO backprojection_runs (
				run_id, created_at_ns, params_json, cone_count, clamped_angles,
				peak_phi_deg, peak_theta_deg, peak_value, duration_ms
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, run.CreatedAtNs, paramsStr, run.ConeCount, run.ClampedAngles,
			run.PeakPhiDeg, run.PeakThetaDeg, run.PeakValue, run.DurationMs,
		)
		return err
	})
}

// Get returns one run by ID, or sql.ErrNoRows if it does not exist.
func (s *RunStore) Get(runID string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT run_id, created_at_ns, params_json, cone_count, clamped_angles,
		       peak_phi_deg, peak_theta_deg, peak_value, duration_ms
		FROM backprojection_runs
		WHERE run_id = ?`, runID)
	return scanRun(row)
}

// List returns runs ordered by creation time descending. limit bounds the
// result; 0 means all.
func (s *RunStore) List(limit int) ([]*Run, error) {
	query := `
		SELECT run_id, created_at_ns, params_json, cone_count, clamped_angles,
		       peak_phi_deg, peak_theta_deg, peak_value, duration_ms
		FROM backprojection_runs
		ORDER BY created_at_ns DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var paramsStr sql.NullString
	err := row.Scan(
		&run.RunID, &run.CreatedAtNs, &paramsStr, &run.ConeCount, &run.ClampedAngles,
		&run.PeakPhiDeg, &run.PeakThetaDeg, &run.PeakValue, &run.DurationMs,
	)
	if err != nil {
		return nil, err
	}
	if paramsStr.Valid && paramsStr.String != "" {
		run.ParamsJSON = json.RawMessage(paramsStr.String)
	}
	return &run, nil
}
