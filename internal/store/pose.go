package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Pose is a user-recorded hand pose bound to a gesture name.
type Pose struct {
	ID        string
	Name      string
	Gesture   string
	Tolerance float64
	Samples   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Landmark is one trained template point.
type Landmark struct {
	X, Y, Z float64
}

// PoseRepository provides CRUD operations for poses.
type PoseRepository struct {
	db *sql.DB
}

// Poses returns the pose repository for this store.
func (s *Store) Poses() *PoseRepository {
	return &PoseRepository{db: s.db}
}

const poseColumns = `id, name, gesture, tolerance, samples, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanPose(row scanner) (*Pose, error) {
	p := &Pose{}
	if err := row.Scan(&p.ID, &p.Name, &p.Gesture, &p.Tolerance, &p.Samples, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a new pose.
func (r *PoseRepository) Create(p *Pose) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO poses (`+poseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Gesture, p.Tolerance, p.Samples, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert pose %s: %w", p.Name, err)
	}
	return nil
}

// GetByID retrieves a pose by its ID.
func (r *PoseRepository) GetByID(id string) (*Pose, error) {
	p, err := scanPose(r.db.QueryRow(`SELECT `+poseColumns+` FROM poses WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// GetByName retrieves a pose by its name.
func (r *PoseRepository) GetByName(name string) (*Pose, error) {
	p, err := scanPose(r.db.QueryRow(`SELECT `+poseColumns+` FROM poses WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// List retrieves all poses, newest first.
func (r *PoseRepository) List() ([]*Pose, error) {
	rows, err := r.db.Query(`SELECT ` + poseColumns + ` FROM poses ORDER BY created_at DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var poses []*Pose
	for rows.Next() {
		p, err := scanPose(rows)
		if err != nil {
			return nil, err
		}
		poses = append(poses, p)
	}
	return poses, rows.Err()
}

// Update saves the name, gesture and tolerance of an existing pose.
func (r *PoseRepository) Update(p *Pose) error {
	p.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE poses SET name = ?, gesture = ?, tolerance = ?, samples = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.Gesture, p.Tolerance, p.Samples, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return err
	}
	return expectRow(result)
}

// Delete removes a pose and, by cascade, its samples and landmarks.
func (r *PoseRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM poses WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectRow(result)
}

// SetLandmarks replaces the trained template of a pose.
func (r *PoseRepository) SetLandmarks(id string, landmarks []Landmark) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM poses WHERE id = ?`, id).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(`DELETE FROM pose_landmarks WHERE pose_id = ?`, id); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO pose_landmarks (pose_id, landmark_index, x, y, z) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, l := range landmarks {
		if _, err := stmt.Exec(id, i, l.X, l.Y, l.Z); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(`UPDATE poses SET updated_at = ? WHERE id = ?`, time.Now(), id); err != nil {
		return err
	}
	return tx.Commit()
}

// GetLandmarks returns the trained template of a pose in landmark order. An
// untrained pose has none.
func (r *PoseRepository) GetLandmarks(id string) ([]Landmark, error) {
	rows, err := r.db.Query(
		`SELECT x, y, z FROM pose_landmarks WHERE pose_id = ? ORDER BY landmark_index`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Landmark
	for rows.Next() {
		var l Landmark
		if err := rows.Scan(&l.X, &l.Y, &l.Z); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func expectRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
