package access

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL. Mutate serializes per key via
// a row lock inside a transaction.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const grantColumns = `id, home_id, user_id, device_id, access_level, is_active, granted_at, expires_at, last_used, access_count, restrictions`

func (s *PGStore) Create(ctx context.Context, g *Grant) error {
	restrictions, _ := json.Marshal(g.Restrictions)
	_, err := s.db.ExecContext(ctx,
		`insert into access_controls(id, home_id, user_id, device_id, access_level, is_active, granted_at, expires_at, restrictions)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		g.ID, g.HomeID, g.UserID, g.DeviceID, string(g.Level), g.Active, g.GrantedAt, g.ExpiresAt, restrictions,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyExists
	}
	return err
}

func (s *PGStore) Find(ctx context.Context, key Key) (*Grant, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+grantColumns+` from access_controls where home_id=$1 and user_id=$2 and device_id=$3`,
		key.HomeID, key.UserID, key.DeviceID)
	return scanGrant(row)
}

func (s *PGStore) ListForUser(ctx context.Context, homeID, userID string) ([]*Grant, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+grantColumns+` from access_controls where home_id=$1 and user_id=$2 order by granted_at`,
		homeID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *PGStore) Mutate(ctx context.Context, key Key, fn func(*Grant) error) (*Grant, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`select `+grantColumns+` from access_controls
		 where home_id=$1 and user_id=$2 and device_id=$3 for update`,
		key.HomeID, key.UserID, key.DeviceID)
	g, err := scanGrant(row)
	if err != nil {
		return nil, err
	}
	if err := fn(g); err != nil {
		return nil, err
	}
	restrictions, _ := json.Marshal(g.Restrictions)
	if _, err := tx.ExecContext(ctx,
		`update access_controls set is_active=$2, expires_at=$3, last_used=$4, access_count=$5, restrictions=$6 where id=$1`,
		g.ID, g.Active, g.ExpiresAt, g.LastUsed, g.AccessCount, restrictions,
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return g, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGrant(row rowScanner) (*Grant, error) {
	var (
		g            Grant
		level        string
		restrictions []byte
	)
	if err := row.Scan(&g.ID, &g.HomeID, &g.UserID, &g.DeviceID, &level, &g.Active,
		&g.GrantedAt, &g.ExpiresAt, &g.LastUsed, &g.AccessCount, &restrictions); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	g.Level = Level(level)
	if len(restrictions) > 0 {
		_ = json.Unmarshal(restrictions, &g.Restrictions)
	}
	return &g, nil
}
