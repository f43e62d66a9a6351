package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lox/weatherpanel/internal/openweather"
)

// FetchRunRecord is one stored upstream call.
type FetchRunRecord struct {
	ID                int64          `json:"id"`
	StartedAt         time.Time      `json:"startedAt"`
	Endpoint          string         `json:"endpoint"`
	DurationMS        int64          `json:"durationMs"`
	HTTPStatus        sql.NullInt64  `json:"-"`
	ResponseSizeBytes int64          `json:"responseSizeBytes"`
	Success           bool           `json:"success"`
	ErrorMessage      sql.NullString `json:"-"`
}

// RecordFetch implements openweather.Recorder.
func (s *Store) RecordFetch(run openweather.FetchRun) error {
	var status sql.NullInt64
	if run.HTTPStatus > 0 {
		status = sql.NullInt64{Int64: int64(run.HTTPStatus), Valid: true}
	}
	var errMsg sql.NullString
	if run.Err != nil {
		errMsg = sql.NullString{String: run.Err.Error(), Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT INTO fetch_runs (started_at, endpoint, duration_ms, http_status, response_size_bytes, success, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.StartedAt.UTC(), run.Endpoint, run.Duration.Milliseconds(), status, run.ResponseSize, run.Err == nil, errMsg)
	return err
}

// RecentFetchRuns returns the latest fetch runs, newest first.
func (s *Store) RecentFetchRuns(limit int) ([]FetchRunRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, endpoint, duration_ms, http_status, response_size_bytes, success, error_message
		FROM fetch_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []FetchRunRecord
	for rows.Next() {
		var r FetchRunRecord
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.Endpoint, &r.DurationMS, &r.HTTPStatus, &r.ResponseSizeBytes, &r.Success, &r.ErrorMessage); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// FetchStats summarizes fetch runs since the given time.
type FetchStats struct {
	Total    int `json:"total"`
	Failures int `json:"failures"`
}

// FetchStatsSince counts runs started at or after since. Timestamps are
// stored in UTC so they compare correctly as text.
func (s *Store) FetchStatsSince(since time.Time) (FetchStats, error) {
	var stats FetchStats
	var failures sql.NullInt64
	err := s.db.QueryRow(`
		SELECT COUNT(*), SUM(CASE WHEN success THEN 0 ELSE 1 END)
		FROM fetch_runs
		WHERE started_at >= ?
	`, since.UTC()).Scan(&stats.Total, &failures)
	if err != nil {
		return FetchStats{}, err
	}
	stats.Failures = int(failures.Int64)
	return stats, nil
}

// PruneFetchRuns deletes runs started before the cutoff and returns the
// number of rows removed.
func (s *Store) PruneFetchRuns(before time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM fetch_runs WHERE started_at < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune fetch runs: %w", err)
	}
	return res.RowsAffected()
}
