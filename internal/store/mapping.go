package store

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Mapping overrides the spoken word for a recognized gesture label, so a
// user can remap e.g. PEACE to "goodbye".
type Mapping struct {
	ID        string
	Gesture   string
	Word      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MappingRepository provides CRUD operations for gesture-word mappings.
type MappingRepository struct {
	db *sql.DB
}

// Mappings returns the mapping repository for this store.
func (s *Store) Mappings() *MappingRepository {
	return &MappingRepository{db: s.db}
}

// Create inserts a new mapping into the database.
func (r *MappingRepository) Create(m *Mapping) error {
	now := time.Now()
	m.CreatedAt = now
	m.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO mappings (id, gesture, word, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.Gesture, m.Word, m.CreatedAt, m.UpdatedAt,
	)
	return err
}

// GetByID retrieves a mapping by its ID.
func (r *MappingRepository) GetByID(id string) (*Mapping, error) {
	m := &Mapping{}

	err := r.db.QueryRow(
		`SELECT id, gesture, word, created_at, updated_at
		 FROM mappings WHERE id = ?`,
		id,
	).Scan(&m.ID, &m.Gesture, &m.Word, &m.CreatedAt, &m.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return m, nil
}

// GetByGesture retrieves the mapping for a gesture label.
func (r *MappingRepository) GetByGesture(gesture string) (*Mapping, error) {
	m := &Mapping{}

	err := r.db.QueryRow(
		`SELECT id, gesture, word, created_at, updated_at
		 FROM mappings WHERE gesture = ?`,
		gesture,
	).Scan(&m.ID, &m.Gesture, &m.Word, &m.CreatedAt, &m.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return m, nil
}

// List retrieves all mappings from the database.
func (r *MappingRepository) List() ([]*Mapping, error) {
	rows, err := r.db.Query(
		`SELECT id, gesture, word, created_at, updated_at
		 FROM mappings ORDER BY gesture`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mappings []*Mapping
	for rows.Next() {
		m := &Mapping{}
		if err := rows.Scan(&m.ID, &m.Gesture, &m.Word, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return mappings, nil
}

// Update updates an existing mapping in the database.
func (r *MappingRepository) Update(m *Mapping) error {
	m.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE mappings SET gesture = ?, word = ?, updated_at = ? WHERE id = ?`,
		m.Gesture, m.Word, m.UpdatedAt, m.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a mapping from the database by its ID.
func (r *MappingRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM mappings WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// AsOverrides returns all mappings as a gesture-to-word lookup table.
func (r *MappingRepository) AsOverrides() (map[string]string, error) {
	mappings, err := r.List()
	if err != nil {
		return nil, err
	}

	overrides := make(map[string]string, len(mappings))
	for _, m := range mappings {
		overrides[m.Gesture] = m.Word
	}
	return overrides, nil
}
