package store

import (
	"database/sql"
	"errors"
	"time"
)

// Translation is one row of the dispatched-sentence history. The ID comes
// from the dispatch queue's monotonic counter.
type Translation struct {
	ID             int64
	RawText        string
	TranslatedText string
	Status         string
	Error          string
	CreatedAt      time.Time
	CompletedAt    time.Time
}

// TranslationRepository persists the translation history.
type TranslationRepository struct {
	db *sql.DB
}

// Translations returns the translation repository for this store.
func (s *Store) Translations() *TranslationRepository {
	return &TranslationRepository{db: s.db}
}

// Save upserts a translation snapshot. Workers call this on every status
// change, so the row always reflects the latest state.
func (r *TranslationRepository) Save(t *Translation) error {
	var completedAt any
	if !t.CompletedAt.IsZero() {
		completedAt = t.CompletedAt
	}

	_, err := r.db.Exec(
		`INSERT INTO translations (id, raw_text, translated_text, status, error, created_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			raw_text = excluded.raw_text,
			translated_text = excluded.translated_text,
			status = excluded.status,
			error = excluded.error,
			completed_at = excluded.completed_at`,
		t.ID, t.RawText, t.TranslatedText, t.Status, t.Error, t.CreatedAt, completedAt,
	)
	return err
}

// GetByID retrieves one translation.
func (r *TranslationRepository) GetByID(id int64) (*Translation, error) {
	t := &Translation{}
	var completedAt sql.NullTime

	err := r.db.QueryRow(
		`SELECT id, raw_text, translated_text, status, error, created_at, completed_at
		 FROM translations WHERE id = ?`,
		id,
	).Scan(&t.ID, &t.RawText, &t.TranslatedText, &t.Status, &t.Error, &t.CreatedAt, &completedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if completedAt.Valid {
		t.CompletedAt = completedAt.Time
	}
	return t, nil
}

// Recent returns up to limit translations, newest first. limit <= 0 returns
// everything.
func (r *TranslationRepository) Recent(limit int) ([]*Translation, error) {
	query := `SELECT id, raw_text, translated_text, status, error, created_at, completed_at
		 FROM translations ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var translations []*Translation
	for rows.Next() {
		t := &Translation{}
		var completedAt sql.NullTime
		if err := rows.Scan(&t.ID, &t.RawText, &t.TranslatedText, &t.Status, &t.Error, &t.CreatedAt, &completedAt); err != nil {
			return nil, err
		}
		if completedAt.Valid {
			t.CompletedAt = completedAt.Time
		}
		translations = append(translations, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return translations, nil
}

// Clear deletes the entire translation history.
func (r *TranslationRepository) Clear() error {
	_, err := r.db.Exec(`DELETE FROM translations`)
	return err
}
