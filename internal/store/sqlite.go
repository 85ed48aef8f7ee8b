package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/powdercast/powdercast/internal/models"
)

// Store is the serving cache between orchestration runs: the latest
// LocationForecast per location, superseded wholesale each run, plus a log
// of provider fetch outcomes for degradation visibility.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// SaveRun replaces the stored forecasts with one run's result map. Stale
// rows for locations absent from this run are deleted, so a location whose
// every adapter failed disappears rather than serving zero snow.
func (s *Store) SaveRun(results map[string]models.LocationForecast) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM forecast_runs`); err != nil {
		return fmt.Errorf("clear previous run: %w", err)
	}

	for id, fc := range results {
		payload, err := json.Marshal(fc)
		if err != nil {
			return fmt.Errorf("marshal forecast %s: %w", id, err)
		}
		if _, err := tx.Exec(`
			INSERT INTO forecast_runs (location_id, payload, updated_at)
			VALUES (?, ?, ?)
		`, id, string(payload), fc.LastUpdated); err != nil {
			return fmt.Errorf("insert forecast %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// GetForecast returns the stored forecast for one location, or nil when the
// last run had no data for it.
func (s *Store) GetForecast(locationID string) (*models.LocationForecast, error) {
	row := s.db.QueryRow(`SELECT payload FROM forecast_runs WHERE location_id = ?`, locationID)

	var payload string
	err := row.Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var fc models.LocationForecast
	if err := json.Unmarshal([]byte(payload), &fc); err != nil {
		return nil, fmt.Errorf("unmarshal forecast %s: %w", locationID, err)
	}
	return &fc, nil
}

// GetAllForecasts returns the whole stored result map keyed by location id.
func (s *Store) GetAllForecasts() (map[string]models.LocationForecast, error) {
	rows, err := s.db.Query(`SELECT location_id, payload FROM forecast_runs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make(map[string]models.LocationForecast)
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		var fc models.LocationForecast
		if err := json.Unmarshal([]byte(payload), &fc); err != nil {
			return nil, fmt.Errorf("unmarshal forecast %s: %w", id, err)
		}
		results[id] = fc
	}
	return results, rows.Err()
}

// LogFetch records one provider call outcome for the degradation view.
// created_at is bound explicitly so retention comparisons see the same
// timestamp format the driver writes.
func (s *Store) LogFetch(provider, locationID string, ok bool, errorKind, errMsg string) error {
	_, err := s.db.Exec(`
		INSERT INTO fetch_log (provider, location_id, ok, error_kind, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, provider, locationID, ok, errorKind, errMsg, time.Now().UTC())
	return err
}

// PruneFetchLog deletes log rows older than the retention window.
func (s *Store) PruneFetchLog(olderThan time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM fetch_log WHERE created_at < ?`, olderThan)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// FetchFailureCounts reports failures per provider since a cutoff, for the
// degradation view.
func (s *Store) FetchFailureCounts(since time.Time) (map[string]int, error) {
	rows, err := s.db.Query(`
		SELECT provider, COUNT(*) FROM fetch_log
		WHERE ok = FALSE AND created_at >= ?
		GROUP BY provider
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var provider string
		var n int
		if err := rows.Scan(&provider, &n); err != nil {
			return nil, err
		}
		counts[provider] = n
	}
	return counts, rows.Err()
}
