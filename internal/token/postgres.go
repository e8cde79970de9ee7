package token

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const tokenColumns = `id, user_id, token_type, token_value, encrypted_data, is_active,
	expires_at, last_used, ip_address, user_agent, device_fingerprint, created_at`

func (s *PGStore) Create(ctx context.Context, t *Token) error {
	_, err := s.db.ExecContext(ctx,
		`insert into security_tokens(id, user_id, token_type, token_value, encrypted_data, is_active, expires_at, device_fingerprint, created_at)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		t.ID, t.UserID, string(t.Type), t.Value, t.EncryptedData, t.Active, t.ExpiresAt, t.Fingerprint, t.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyExists
	}
	return err
}

func (s *PGStore) Find(ctx context.Context, id string) (*Token, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+tokenColumns+` from security_tokens where id=$1`, id)
	return scanToken(row)
}

func (s *PGStore) FindByValue(ctx context.Context, value string) (*Token, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+tokenColumns+` from security_tokens where token_value=$1`, value)
	return scanToken(row)
}

func (s *PGStore) Mutate(ctx context.Context, id string, fn func(*Token) error) (*Token, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`select `+tokenColumns+` from security_tokens where id=$1 for update`, id)
	t, err := scanToken(row)
	if err != nil {
		return nil, err
	}
	if err := fn(t); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`update security_tokens set encrypted_data=$2, is_active=$3, expires_at=$4,
		   last_used=$5, ip_address=$6, user_agent=$7 where id=$1`,
		t.ID, t.EncryptedData, t.Active, t.ExpiresAt, t.LastUsed,
		nullIfEmpty(t.IPAddress), nullIfEmpty(t.UserAgent),
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return t, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanToken(row rowScanner) (*Token, error) {
	var (
		t                Token
		typ              string
		ipAddress, agent sql.NullString
		fingerprint      sql.NullString
	)
	if err := row.Scan(&t.ID, &t.UserID, &typ, &t.Value, &t.EncryptedData, &t.Active,
		&t.ExpiresAt, &t.LastUsed, &ipAddress, &agent, &fingerprint, &t.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	t.Type = Type(typ)
	t.IPAddress = ipAddress.String
	t.UserAgent = agent.String
	t.Fingerprint = fingerprint.String
	return &t, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
