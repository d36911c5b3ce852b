package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Mappings table - user-defined gesture label to spoken word overrides
		`CREATE TABLE IF NOT EXISTS mappings (
			id TEXT PRIMARY KEY,
			gesture TEXT NOT NULL UNIQUE,
			word TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Translations table - history of dispatched sentences
		`CREATE TABLE IF NOT EXISTS translations (
			id INTEGER PRIMARY KEY,
			raw_text TEXT NOT NULL,
			translated_text TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			completed_at DATETIME
		)`,

		`CREATE INDEX IF NOT EXISTS idx_translations_created_at ON translations(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
