package ratelimit

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL. MutateOrCreate serializes per
// key with an upsert followed by a row lock inside one transaction.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const windowColumns = `id, user_id, operation, count, window_start, window_end, is_limited, created_at`

func (s *PGStore) Find(ctx context.Context, key Key) (*Window, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+windowColumns+` from security_rate_limits where user_id=$1 and operation=$2`,
		key.UserID, key.Operation)
	return scanWindow(row)
}

func (s *PGStore) MutateOrCreate(ctx context.Context, key Key, create func() *Window, fn func(*Window) error) (*Window, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	fresh := create()
	if fresh.ID == "" {
		fresh.ID = uuid.NewString()
	}
	if _, err := tx.ExecContext(ctx,
		`insert into security_rate_limits(id, user_id, operation, count, window_start, window_end, is_limited)
		 values($1,$2,$3,$4,$5,$6,$7)
		 on conflict (user_id, operation) do nothing`,
		fresh.ID, fresh.UserID, fresh.Operation, fresh.Count, fresh.WindowStart, fresh.WindowEnd, fresh.Limited,
	); err != nil {
		return nil, err
	}

	row := tx.QueryRowContext(ctx,
		`select `+windowColumns+` from security_rate_limits where user_id=$1 and operation=$2 for update`,
		key.UserID, key.Operation)
	w, err := scanWindow(row)
	if err != nil {
		return nil, err
	}
	if err := fn(w); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`update security_rate_limits set count=$2, window_start=$3, window_end=$4, is_limited=$5 where id=$1`,
		w.ID, w.Count, w.WindowStart, w.WindowEnd, w.Limited,
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return w, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWindow(row rowScanner) (*Window, error) {
	var w Window
	if err := row.Scan(&w.ID, &w.UserID, &w.Operation, &w.Count, &w.WindowStart,
		&w.WindowEnd, &w.Limited, &w.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &w, nil
}
