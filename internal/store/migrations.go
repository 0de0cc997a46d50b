package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// User-recorded hand poses, each bound to one gesture of the closed set
		`CREATE TABLE IF NOT EXISTS poses (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			gesture TEXT NOT NULL,
			tolerance REAL NOT NULL DEFAULT 0.15,
			samples INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Trained template landmarks of a pose
		`CREATE TABLE IF NOT EXISTS pose_landmarks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			pose_id TEXT NOT NULL REFERENCES poses(id) ON DELETE CASCADE,
			landmark_index INTEGER NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			z REAL NOT NULL
		)`,

		// Raw recorded samples used for training
		`CREATE TABLE IF NOT EXISTS pose_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			pose_id TEXT NOT NULL REFERENCES poses(id) ON DELETE CASCADE,
			sample_index INTEGER NOT NULL,
			data TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Runtime settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Dispatched actions and their outcome
		`CREATE TABLE IF NOT EXISTS action_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			gesture TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			success INTEGER NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_pose_landmarks_pose_id ON pose_landmarks(pose_id)`,
		`CREATE INDEX IF NOT EXISTS idx_pose_samples_pose_id ON pose_samples(pose_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
