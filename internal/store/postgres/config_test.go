package postgres

import (
	"context"
	"testing"

	"docsmill/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestSetConfigValue_Toolchain(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectExec(`INSERT INTO config`).
		WithArgs("toolchain", "nightly-2026-08-01").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.SetConfigValue(context.Background(), store.ConfigToolchain, "nightly-2026-08-01")
	if err != nil {
		t.Fatalf("SetConfigValue failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetConfigValue_Toolchain(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectQuery(`SELECT value FROM config`).
		WithArgs("toolchain").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("nightly-2026-08-01"))

	value, err := s.GetConfigValue(context.Background(), store.ConfigToolchain)
	if err != nil {
		t.Fatalf("GetConfigValue failed: %v", err)
	}
	if value == nil || *value != "nightly-2026-08-01" {
		t.Errorf("unexpected value: %v", value)
	}
}

func TestGetConfigValue_Unset(t *testing.T) {
	s, mock := newMockStore(t)
	defer s.db.Close()

	mock.ExpectQuery(`SELECT value FROM config`).
		WithArgs("toolchain").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	value, err := s.GetConfigValue(context.Background(), store.ConfigToolchain)
	if err != nil {
		t.Fatalf("GetConfigValue failed: %v", err)
	}
	if value != nil {
		t.Errorf("expected nil for an unset name, got %q", *value)
	}
}
