package policy

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

var _ Source = (*PGSource)(nil)

// PGSource loads policy snapshots from PostgreSQL. Rule mappings are
// stored as JSONB and parsed into typed rules on read.
type PGSource struct {
	db *sql.DB
}

func NewPGSource(db *sql.DB) *PGSource {
	return &PGSource{db: db}
}

const policyColumns = `id, home_id, name, policy_type, rules, is_active, is_enforced, created_by, created_at, updated_at`

func (s *PGSource) ActiveForHome(ctx context.Context, homeID string, typ Type) ([]Policy, error) {
	query := `select ` + policyColumns + ` from security_policies where home_id=$1 and is_active`
	args := []any{homeID}
	if typ != "" {
		query += ` and policy_type=$2`
		args = append(args, string(typ))
	}
	rows, err := s.db.QueryContext(ctx, query+` order by created_at`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PGSource) Find(ctx context.Context, id string) (Policy, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+policyColumns+` from security_policies where id=$1`, id)
	p, err := scanPolicy(row)
	if err == sql.ErrNoRows {
		return Policy{}, ErrNotFound
	}
	return p, err
}

func (s *PGSource) Save(ctx context.Context, p *Policy) error {
	if p.Name == "" {
		return fmt.Errorf("%w: policy name is required", ErrInvalidInput)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	raw, err := json.Marshal(encodeRules(p.Rules))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`insert into security_policies(id, home_id, name, policy_type, rules, is_active, is_enforced, created_by)
		 values($1,$2,$3,$4,$5,$6,$7,$8)
		 on conflict (id) do update set rules=excluded.rules, is_active=excluded.is_active,
		   is_enforced=excluded.is_enforced, updated_at=now()`,
		p.ID, p.HomeID, p.Name, string(p.Type), raw, p.Active, p.Enforced, p.CreatedBy,
	)
	return err
}

func (s *PGSource) Deactivate(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`update security_policies set is_active=false, updated_at=now() where id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPolicy(row rowScanner) (Policy, error) {
	var (
		p   Policy
		typ string
		raw []byte
	)
	if err := row.Scan(&p.ID, &p.HomeID, &p.Name, &typ, &raw, &p.Active, &p.Enforced,
		&p.CreatedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Policy{}, err
	}
	p.Type = Type(typ)
	var decoded map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return Policy{}, fmt.Errorf("%w: stored rules: %v", ErrInvalidInput, err)
		}
	}
	rules, err := ParseRules(decoded)
	if err != nil {
		return Policy{}, err
	}
	p.Rules = rules
	return p, nil
}

// encodeRules converts typed rules back to the stored JSON shape.
func encodeRules(rules map[string]Rule) map[string]any {
	out := make(map[string]any, len(rules))
	for name, r := range rules {
		def := map[string]any{"type": string(r.Kind)}
		switch r.Kind {
		case KindConditions:
			var conds []any
			for _, c := range r.Conditions {
				conds = append(conds, map[string]any{
					"field": c.Field, "operator": c.Operator, "value": c.Value,
				})
			}
			def["conditions"] = conds
		case KindThreshold:
			def["threshold"] = r.Threshold
			if r.Field != "0" {
				def["field"] = r.Field
			}
		case KindAllowedList:
			def["allowed_values"] = r.AllowedValues
			if r.Field != "" {
				def["field"] = r.Field
			}
		}
		out[name] = def
	}
	return out
}
