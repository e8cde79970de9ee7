package alert

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const alertColumns = `id, home_id, device_id, alert_type, priority, title, message, location,
	is_resolved, is_acknowledged, acknowledged_by, acknowledged_at, resolved_at, created_at, updated_at`

func (s *PGStore) Create(ctx context.Context, a *Alert) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Priority == "" {
		a.Priority = PriorityMedium
	}
	return s.db.QueryRowContext(ctx,
		`insert into security_alerts(id, home_id, device_id, alert_type, priority, title, message, location)
		 values($1,$2,$3,$4,$5,$6,$7,$8) returning created_at, updated_at`,
		a.ID, a.HomeID, nullable(a.DeviceID), string(a.Type), string(a.Priority), a.Title, a.Message, a.Location,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
}

func (s *PGStore) Find(ctx context.Context, id string) (*Alert, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+alertColumns+` from security_alerts where id=$1`, id)
	return scanAlert(row)
}

func (s *PGStore) ListActive(ctx context.Context, homeID string) ([]*Alert, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+alertColumns+` from security_alerts where home_id=$1 and not is_resolved order by created_at desc`,
		homeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PGStore) Mutate(ctx context.Context, id string, fn func(*Alert) error) (*Alert, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`select `+alertColumns+` from security_alerts where id=$1 for update`, id)
	a, err := scanAlert(row)
	if err != nil {
		return nil, err
	}
	if err := fn(a); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`update security_alerts set priority=$2, is_resolved=$3, is_acknowledged=$4,
		   acknowledged_by=$5, acknowledged_at=$6, resolved_at=$7, updated_at=now()
		 where id=$1`,
		a.ID, string(a.Priority), a.Resolved, a.Acknowledged,
		nullable(a.AcknowledgedBy), a.AcknowledgedAt, a.ResolvedAt,
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return a, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*Alert, error) {
	var (
		a              Alert
		deviceID       sql.NullString
		typ, priority  string
		acknowledgedBy sql.NullString
	)
	if err := row.Scan(&a.ID, &a.HomeID, &deviceID, &typ, &priority, &a.Title, &a.Message,
		&a.Location, &a.Resolved, &a.Acknowledged, &acknowledgedBy, &a.AcknowledgedAt,
		&a.ResolvedAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	a.DeviceID = deviceID.String
	a.Type = Type(typ)
	a.Priority = Priority(priority)
	a.AcknowledgedBy = acknowledgedBy.String
	return &a, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
