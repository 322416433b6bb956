package postgres

import (
	"context"
	"testing"

	"docsmill/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestResolvePriority_Match(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectQuery(`SELECT pattern, priority`).
		WithArgs("foo-bar").
		WillReturnRows(sqlmock.NewRows([]string{"pattern", "priority"}).AddRow("foo-%", 2))

	priority, err := s.ResolvePriority(context.Background(), "foo-bar")
	if err != nil {
		t.Fatalf("ResolvePriority failed: %v", err)
	}
	if priority != 2 {
		t.Errorf("got priority %d, want 2", priority)
	}
}

func TestResolvePriority_NoMatchUsesDefault(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectQuery(`SELECT pattern, priority`).
		WithArgs("unmatched").
		WillReturnRows(sqlmock.NewRows([]string{"pattern", "priority"}))

	priority, err := s.ResolvePriority(context.Background(), "unmatched")
	if err != nil {
		t.Fatalf("ResolvePriority failed: %v", err)
	}
	if priority != store.DefaultPriority {
		t.Errorf("got priority %d, want default %d", priority, store.DefaultPriority)
	}
}

func TestRemovePriority_Existing(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectQuery(`DELETE FROM crate_priorities`).
		WithArgs("foo-%").
		WillReturnRows(sqlmock.NewRows([]string{"priority"}).AddRow(2))

	prev, err := s.RemovePriority(context.Background(), "foo-%")
	if err != nil {
		t.Fatalf("RemovePriority failed: %v", err)
	}
	if prev == nil || *prev != 2 {
		t.Errorf("got previous priority %v, want 2", prev)
	}
}

func TestRemovePriority_Missing(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectQuery(`DELETE FROM crate_priorities`).
		WithArgs("nope-%").
		WillReturnRows(sqlmock.NewRows([]string{"priority"}))

	prev, err := s.RemovePriority(context.Background(), "nope-%")
	if err != nil {
		t.Fatalf("RemovePriority failed: %v", err)
	}
	if prev != nil {
		t.Errorf("expected nil for a missing pattern, got %v", *prev)
	}
}

func TestListPriorities(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectQuery(`SELECT pattern, priority FROM crate_priorities`).
		WillReturnRows(sqlmock.NewRows([]string{"pattern", "priority"}).
			AddRow("foo-%", 2).
			AddRow("winapi-%", 10))

	patterns, err := s.ListPriorities(context.Background())
	if err != nil {
		t.Fatalf("ListPriorities failed: %v", err)
	}
	if len(patterns) != 2 {
		t.Fatalf("got %d patterns, want 2", len(patterns))
	}
	if patterns[0].Pattern != "foo-%" || patterns[0].Priority != 2 {
		t.Errorf("unexpected first pattern: %+v", patterns[0])
	}
}
