package policy

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Evaluator checks policy rules against a request context. It is pure:
// no I/O, no mutation, same verdict for the same (policy, context) pair.
//
// The default verdict for an unknown rule name or unknown rule kind is
// allow. That fail-open default comes from the system this replaces and
// is security-relevant; WithFailClosed flips it.
type Evaluator struct {
	failClosed bool
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithFailClosed makes unknown rule names and unknown rule kinds evaluate
// to deny instead of the historical allow.
func WithFailClosed() Option {
	return func(e *Evaluator) { e.failClosed = true }
}

// NewEvaluator constructs an Evaluator.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// FailsOpen reports whether missing rules evaluate to allow.
func (e *Evaluator) FailsOpen() bool { return !e.failClosed }

// Evaluate checks the named rule of p against context. A missing rule
// name or unrecognized rule kind yields the default verdict. A non-numeric
// value in a numeric comparison returns an ErrInvalidInput-wrapped error.
func (e *Evaluator) Evaluate(p Policy, ruleName string, context map[string]any) (bool, error) {
	rule, ok := p.Rules[ruleName]
	if !ok {
		return !e.failClosed, nil
	}

	switch rule.Kind {
	case KindConditions:
		for _, cond := range rule.Conditions {
			ok, err := evalCondition(cond, context)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil

	case KindThreshold:
		current := 0.0
		if raw, ok := context[rule.Field]; ok {
			f, err := toFloat(raw)
			if err != nil {
				return false, fmt.Errorf("%w: threshold field %q is not numeric", ErrInvalidInput, rule.Field)
			}
			current = f
		}
		return current <= rule.Threshold, nil

	case KindAllowedList:
		current := context[rule.Field]
		for _, allowed := range rule.AllowedValues {
			if looseEqual(current, allowed) {
				return true, nil
			}
		}
		return false, nil
	}

	return !e.failClosed, nil
}

func evalCondition(cond Condition, context map[string]any) (bool, error) {
	current, ok := context[cond.Field]
	if !ok {
		return false, nil
	}

	switch cond.Operator {
	case "equals":
		return looseEqual(current, cond.Value), nil
	case "not_equals":
		return !looseEqual(current, cond.Value), nil
	case "contains":
		return strings.Contains(
			strings.ToLower(fmt.Sprint(current)),
			strings.ToLower(fmt.Sprint(cond.Value)),
		), nil
	case "greater_than":
		a, b, err := numericPair(current, cond.Value)
		if err != nil {
			return false, err
		}
		return a > b, nil
	case "less_than":
		a, b, err := numericPair(current, cond.Value)
		if err != nil {
			return false, err
		}
		return a < b, nil
	case "in":
		list, ok := cond.Value.([]any)
		if !ok {
			return false, nil
		}
		for _, v := range list {
			if looseEqual(current, v) {
				return true, nil
			}
		}
		return false, nil
	}

	// Unknown operator never holds.
	return false, nil
}

func numericPair(current, value any) (float64, float64, error) {
	a, err := toFloat(current)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: context value %v is not numeric", ErrInvalidInput, current)
	}
	b, err := toFloat(value)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: rule value %v is not numeric", ErrInvalidInput, value)
	}
	return a, b, nil
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(t), 64)
	}
	return 0, fmt.Errorf("cannot coerce %T to number", v)
}

// looseEqual compares context and rule values the way decoded JSON does:
// numbers compare by value regardless of Go numeric type, everything else
// by deep equality. Strings never equal numbers.
func looseEqual(a, b any) bool {
	af, aNum := asNumber(a)
	bf, bNum := asNumber(b)
	if aNum || bNum {
		return aNum && bNum && af == bf
	}
	return reflect.DeepEqual(a, b)
}

func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	}
	return 0, false
}
