package store

import (
	"database/sql"
	"time"
)

// ActionRecord is one dispatched action and its outcome.
type ActionRecord struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	Gesture   string    `json:"gesture"`
	Detail    string    `json:"detail,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ActionLogRepository records dispatched actions.
type ActionLogRepository struct {
	db *sql.DB
}

// ActionLog returns the action log repository for this store.
func (s *Store) ActionLog() *ActionLogRepository {
	return &ActionLogRepository{db: s.db}
}

// Append records rec and sets its ID. A zero CreatedAt is set to now.
func (r *ActionLogRepository) Append(rec *ActionRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	result, err := r.db.Exec(
		`INSERT INTO action_log (kind, gesture, detail, success, error, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Kind, rec.Gesture, rec.Detail, rec.Success, rec.Error, rec.CreatedAt,
	)
	if err != nil {
		return err
	}
	rec.ID, err = result.LastInsertId()
	return err
}

// Recent returns up to limit records, newest first.
func (r *ActionLogRepository) Recent(limit int) ([]ActionRecord, error) {
	rows, err := r.db.Query(
		`SELECT id, kind, gesture, detail, success, error, created_at
		 FROM action_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ActionRecord
	for rows.Next() {
		var rec ActionRecord
		var success int
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.Gesture, &rec.Detail, &success, &rec.Error, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Success = success != 0
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Prune keeps only the newest keep records.
func (r *ActionLogRepository) Prune(keep int) error {
	_, err := r.db.Exec(
		`DELETE FROM action_log WHERE id NOT IN (SELECT id FROM action_log ORDER BY id DESC LIMIT ?)`, keep)
	return err
}
