// Package policy evaluates named security rules against request contexts.
package policy

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound     = errors.New("policy: not found")
	ErrInvalidInput = errors.New("policy: invalid input")
)

// Type classifies a policy rule set.
type Type string

const (
	TypePassword   Type = "password"
	TypeAccess     Type = "access"
	TypeRetention  Type = "data_retention"
	TypeEncryption Type = "encryption"
	TypeNetwork    Type = "network"
	TypeDevice     Type = "device"
	TypeAudit      Type = "audit"
	TypeCompliance Type = "compliance"
)

// Kind selects how a rule is evaluated. Decided once at construction.
type Kind string

const (
	KindConditions  Kind = "condition"
	KindThreshold   Kind = "threshold"
	KindAllowedList Kind = "list"
)

// Condition is one field check inside a condition rule.
type Condition struct {
	Field    string
	Operator string
	Value    any
}

// Rule is one evaluable check inside a policy. Exactly one kind applies;
// only the parameters for that kind are meaningful.
type Rule struct {
	Kind Kind

	// KindConditions
	Conditions []Condition

	// KindThreshold. Field defaults to "0" when the stored rule omits it;
	// a context keyed by real field names then reads the value as zero,
	// which passes any non-negative threshold. Preserved source behavior.
	Threshold float64

	// KindAllowedList
	AllowedValues []any

	// Field names the context key for threshold and list rules.
	Field string
}

// Policy is an immutable snapshot of a named, typed rule set. Mutation
// replaces the whole rule mapping with a new version; in-flight
// evaluations always see the snapshot they were handed.
type Policy struct {
	ID        string
	HomeID    string
	Name      string
	Type      Type
	Rules     map[string]Rule
	Active    bool
	Enforced  bool
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ParseRules converts a stored JSON rule mapping into typed rules.
// Unknown kinds are kept as-is and resolve to the evaluator's default
// verdict at evaluation time.
func ParseRules(raw map[string]any) (map[string]Rule, error) {
	rules := make(map[string]Rule, len(raw))
	for name, v := range raw {
		def, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: rule %q is not an object", ErrInvalidInput, name)
		}
		rule, err := parseRule(def)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", name, err)
		}
		rules[name] = rule
	}
	return rules, nil
}

func parseRule(def map[string]any) (Rule, error) {
	kind := KindConditions
	if t, ok := def["type"].(string); ok && t != "" {
		kind = Kind(t)
	}
	rule := Rule{Kind: kind}

	switch kind {
	case KindConditions:
		list, _ := def["conditions"].([]any)
		for i, c := range list {
			obj, ok := c.(map[string]any)
			if !ok {
				return Rule{}, fmt.Errorf("%w: condition %d is not an object", ErrInvalidInput, i)
			}
			cond := Condition{Operator: "equals", Value: ""}
			if f, ok := obj["field"].(string); ok {
				cond.Field = f
			}
			if op, ok := obj["operator"].(string); ok && op != "" {
				cond.Operator = op
			}
			if v, ok := obj["value"]; ok {
				cond.Value = v
			}
			rule.Conditions = append(rule.Conditions, cond)
		}
	case KindThreshold:
		if v, ok := def["threshold"]; ok {
			f, err := toFloat(v)
			if err != nil {
				return Rule{}, fmt.Errorf("%w: threshold is not numeric", ErrInvalidInput)
			}
			rule.Threshold = f
		}
		rule.Field = "0"
		if f, ok := def["field"].(string); ok {
			rule.Field = f
		}
	case KindAllowedList:
		rule.AllowedValues, _ = def["allowed_values"].([]any)
		if f, ok := def["field"].(string); ok {
			rule.Field = f
		}
	}
	return rule, nil
}
