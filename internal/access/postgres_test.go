package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestPGStoreCreateDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("insert into access_controls").
		WithArgs(sqlmock.AnyArg(), "h1", "u1", "d1", "guest", true, sqlmock.AnyArg(), nil, sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	store := NewPGStore(db)
	err = store.Create(context.Background(), &Grant{
		ID: "g1", HomeID: "h1", UserID: "u1", DeviceID: "d1",
		Level: LevelGuest, Active: true, GrantedAt: time.Now(),
	})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGStoreMutateLocksRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	granted := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	cols := []string{"id", "home_id", "user_id", "device_id", "access_level", "is_active",
		"granted_at", "expires_at", "last_used", "access_count", "restrictions"}

	mock.ExpectBegin()
	mock.ExpectQuery("select .* from access_controls.*for update").
		WithArgs("h1", "u1", "d1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("g1", "h1", "u1", "d1", "family", true, granted, nil, nil, 4, []byte(`{}`)))
	mock.ExpectExec("update access_controls set").
		WithArgs("g1", true, nil, sqlmock.AnyArg(), 5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	store := NewPGStore(db)
	now := time.Now().UTC()
	g, err := store.Mutate(context.Background(), Key{HomeID: "h1", UserID: "u1", DeviceID: "d1"}, func(g *Grant) error {
		g.AccessCount++
		g.LastUsed = &now
		return nil
	})
	if err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	if g.AccessCount != 5 {
		t.Fatalf("AccessCount=%d, want 5", g.AccessCount)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPGStoreFindNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select .* from access_controls").
		WithArgs("h1", "u1", "nope").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	store := NewPGStore(db)
	if _, err := store.Find(context.Background(), Key{HomeID: "h1", UserID: "u1", DeviceID: "nope"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
