// Package alert manages security alerts and their priority ladder.
package alert

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("alert: not found")
	ErrInvalidInput = errors.New("alert: invalid input")
)

// Priority is a rung on the escalation ladder.
type Priority string

// The ladder is totally ordered; escalation only moves up, one step at a
// time. Lowering a priority is an administrative override outside this
// package.
const (
	PriorityInfo      Priority = "info"
	PriorityLow       Priority = "low"
	PriorityMedium    Priority = "medium"
	PriorityHigh      Priority = "high"
	PriorityCritical  Priority = "critical"
	PriorityEmergency Priority = "emergency"
)

var ladder = []Priority{
	PriorityInfo, PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical, PriorityEmergency,
}

// Rank returns the position of p on the ladder, or -1 for unknown values.
func (p Priority) Rank() int {
	for i, rung := range ladder {
		if rung == p {
			return i
		}
	}
	return -1
}

// AtLeast reports whether p is at or above other on the ladder.
func (p Priority) AtLeast(other Priority) bool {
	return p.Rank() >= other.Rank()
}

// Next returns the rung above p. ok is false at the top of the ladder or
// for unknown priorities.
func (p Priority) Next() (Priority, bool) {
	i := p.Rank()
	if i < 0 || i >= len(ladder)-1 {
		return p, false
	}
	return ladder[i+1], true
}

// Type classifies the detected condition.
type Type string

const (
	TypeFire        Type = "fire"
	TypeGas         Type = "gas"
	TypeIntrusion   Type = "intrusion"
	TypeTemperature Type = "temperature"
	TypeMotion      Type = "motion"
	TypeDoor        Type = "door"
	TypeWater       Type = "water"
	TypeSystem      Type = "system"
	TypeBreach      Type = "breach"
	TypeTamper      Type = "tamper"
)

// Alert is a detected security condition with severity. Resolution ends
// the active state but the record persists.
type Alert struct {
	ID             string
	HomeID         string
	DeviceID       string
	Type           Type
	Priority       Priority
	Title          string
	Message        string
	Location       string
	Resolved       bool
	Acknowledged   bool
	AcknowledgedBy string
	AcknowledgedAt *time.Time
	ResolvedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Escalate moves the alert one rung up the ladder. It reports false, and
// changes nothing, when the alert is already at emergency.
func (a *Alert) Escalate() bool {
	next, ok := a.Priority.Next()
	if !ok {
		return false
	}
	a.Priority = next
	return true
}

// Resolve marks the alert resolved at the given instant. Resolving an
// already-resolved alert is a no-op.
func (a *Alert) Resolve(now time.Time) {
	if a.Resolved {
		return
	}
	a.Resolved = true
	t := now
	a.ResolvedAt = &t
}

// Acknowledge records who acknowledged the alert. Idempotent; the first
// acknowledger wins.
func (a *Alert) Acknowledge(userID string, now time.Time) {
	if a.Acknowledged {
		return
	}
	a.Acknowledged = true
	a.AcknowledgedBy = userID
	t := now
	a.AcknowledgedAt = &t
}
