package store

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Sample is one recorded hand frame of a pose, as JSON landmarks.
type Sample struct {
	ID          int64           `json:"id"`
	PoseID      string          `json:"pose_id"`
	SampleIndex int             `json:"sample_index"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SampleRepository stores recorded pose samples.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// Append adds samples to a pose in one transaction, numbering them after the
// existing ones, and refreshes the pose's sample count.
func (r *SampleRepository) Append(poseID string, samples []json.RawMessage) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var next int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM pose_samples WHERE pose_id = ?`, poseID).Scan(&next); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO pose_samples (pose_id, sample_index, data) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, data := range samples {
		if _, err := stmt.Exec(poseID, next+i, string(data)); err != nil {
			return err
		}
	}

	result, err := tx.Exec(`UPDATE poses SET samples = ?, updated_at = ? WHERE id = ?`,
		next+len(samples), time.Now(), poseID)
	if err != nil {
		return err
	}
	if err := expectRow(result); err != nil {
		return err
	}

	return tx.Commit()
}

// ForPose retrieves all samples of a pose in recording order.
func (r *SampleRepository) ForPose(poseID string) ([]Sample, error) {
	rows, err := r.db.Query(
		`SELECT id, pose_id, sample_index, data, created_at
		 FROM pose_samples
		 WHERE pose_id = ?
		 ORDER BY sample_index`,
		poseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var s Sample
		var data string
		if err := rows.Scan(&s.ID, &s.PoseID, &s.SampleIndex, &data, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.Data = json.RawMessage(data)
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}

// DeleteForPose removes all samples of a pose and resets its count.
func (r *SampleRepository) DeleteForPose(poseID string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM pose_samples WHERE pose_id = ?`, poseID); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE poses SET samples = 0, updated_at = ? WHERE id = ?`, time.Now(), poseID); err != nil {
		return err
	}
	return tx.Commit()
}
