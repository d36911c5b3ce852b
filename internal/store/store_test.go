package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "insync_test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_OpenAndMigrate(t *testing.T) {
	s := newTestStore(t)

	// Migrations are idempotent
	if err := s.runMigrations(); err != nil {
		t.Errorf("second migration run failed: %v", err)
	}
}

func TestMappingRepository_CRUD(t *testing.T) {
	repo := newTestStore(t).Mappings()

	m := &Mapping{
		ID:      uuid.New().String(),
		Gesture: "PEACE",
		Word:    "goodbye",
	}
	if err := repo.Create(m); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	t.Run("get by id", func(t *testing.T) {
		got, err := repo.GetByID(m.ID)
		if err != nil {
			t.Fatalf("GetByID() failed: %v", err)
		}
		if got.Gesture != "PEACE" || got.Word != "goodbye" {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("get by gesture", func(t *testing.T) {
		got, err := repo.GetByGesture("PEACE")
		if err != nil {
			t.Fatalf("GetByGesture() failed: %v", err)
		}
		if got.ID != m.ID {
			t.Errorf("id = %q, want %q", got.ID, m.ID)
		}
	})

	t.Run("duplicate gesture rejected", func(t *testing.T) {
		dup := &Mapping{ID: uuid.New().String(), Gesture: "PEACE", Word: "other"}
		if err := repo.Create(dup); err == nil {
			t.Error("expected unique constraint violation")
		}
	})

	t.Run("update", func(t *testing.T) {
		m.Word = "farewell"
		if err := repo.Update(m); err != nil {
			t.Fatalf("Update() failed: %v", err)
		}
		got, _ := repo.GetByID(m.ID)
		if got.Word != "farewell" {
			t.Errorf("word = %q after update", got.Word)
		}
	})

	t.Run("overrides lookup", func(t *testing.T) {
		overrides, err := repo.AsOverrides()
		if err != nil {
			t.Fatalf("AsOverrides() failed: %v", err)
		}
		if overrides["PEACE"] != "farewell" {
			t.Errorf("overrides = %v", overrides)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := repo.Delete(m.ID); err != nil {
			t.Fatalf("Delete() failed: %v", err)
		}
		if _, err := repo.GetByID(m.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		if err := repo.Delete(m.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("second delete should be ErrNotFound, got %v", err)
		}
	})
}

func TestMappingRepository_UpdateMissing(t *testing.T) {
	repo := newTestStore(t).Mappings()

	m := &Mapping{ID: uuid.New().String(), Gesture: "HELLO", Word: "hi"}
	if err := repo.Update(m); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTranslationRepository_SaveIsUpsert(t *testing.T) {
	repo := newTestStore(t).Translations()

	created := time.Now().Round(time.Second)
	tr := &Translation{
		ID:        7,
		RawText:   "I WANT WATER",
		Status:    "translating",
		CreatedAt: created,
	}
	if err := repo.Save(tr); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	// Second save for the same id updates in place
	tr.TranslatedText = "I want water."
	tr.Status = "translated"
	tr.CompletedAt = created.Add(2 * time.Second)
	if err := repo.Save(tr); err != nil {
		t.Fatalf("second Save() failed: %v", err)
	}

	got, err := repo.GetByID(7)
	if err != nil {
		t.Fatalf("GetByID() failed: %v", err)
	}
	if got.Status != "translated" {
		t.Errorf("status = %q", got.Status)
	}
	if got.TranslatedText != "I want water." {
		t.Errorf("translated text = %q", got.TranslatedText)
	}
	if got.CompletedAt.IsZero() {
		t.Error("completed_at not persisted")
	}

	all, err := repo.Recent(0)
	if err != nil {
		t.Fatalf("Recent() failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 row after upsert, got %d", len(all))
	}
}

func TestTranslationRepository_RecentOrderAndLimit(t *testing.T) {
	repo := newTestStore(t).Translations()

	for i := int64(1); i <= 5; i++ {
		err := repo.Save(&Translation{
			ID:        i,
			RawText:   "sentence",
			Status:    "spoken",
			CreatedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("Save(%d) failed: %v", i, err)
		}
	}

	recent, err := repo.Recent(3)
	if err != nil {
		t.Fatalf("Recent() failed: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("Recent(3) returned %d rows", len(recent))
	}
	for i, want := range []int64{5, 4, 3} {
		if recent[i].ID != want {
			t.Errorf("recent[%d].ID = %d, want %d", i, recent[i].ID, want)
		}
	}
}

func TestTranslationRepository_Clear(t *testing.T) {
	repo := newTestStore(t).Translations()

	repo.Save(&Translation{ID: 1, RawText: "a", Status: "spoken", CreatedAt: time.Now()})
	repo.Save(&Translation{ID: 2, RawText: "b", Status: "failed", CreatedAt: time.Now()})

	if err := repo.Clear(); err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}

	rows, err := repo.Recent(0)
	if err != nil {
		t.Fatalf("Recent() failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected empty history, got %d rows", len(rows))
	}

	if _, err := repo.GetByID(1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
