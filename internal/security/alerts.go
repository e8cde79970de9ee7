package security

import (
	"context"
	"fmt"

	"homeguard.org/internal/alert"
	"homeguard.org/internal/obs"
)

// AlertRequest raises a new alert for a home.
type AlertRequest struct {
	HomeID   string
	DeviceID string
	Type     alert.Type
	Priority alert.Priority
	Title    string
	Message  string
	Location string
}

// RaiseAlert creates an alert. Priority defaults to medium when omitted.
func (s *Service) RaiseAlert(ctx context.Context, req AlertRequest) (*alert.Alert, error) {
	if req.HomeID == "" || req.Type == "" {
		return nil, fmt.Errorf("%w: home and type are required", alert.ErrInvalidInput)
	}
	if req.Priority != "" && req.Priority.Rank() < 0 {
		return nil, fmt.Errorf("%w: unknown priority %q", alert.ErrInvalidInput, req.Priority)
	}
	a := &alert.Alert{
		HomeID:   req.HomeID,
		DeviceID: req.DeviceID,
		Type:     req.Type,
		Priority: req.Priority,
		Title:    req.Title,
		Message:  req.Message,
		Location: req.Location,
	}
	if err := s.alerts.Create(ctx, a); err != nil {
		return nil, err
	}
	s.emit(ctx, "alert", a.ID, "raise", "", map[string]string{
		"home":     a.HomeID,
		"type":     string(a.Type),
		"priority": string(a.Priority),
	})
	return a, nil
}

// EscalateAlert moves the alert one rung up the ladder. At the top the
// call is a no-op and escalated is false. Escalations into critical or
// above notify the acknowledging user (or home owner channel) best
// effort; delivery failures are logged and swallowed.
func (s *Service) EscalateAlert(ctx context.Context, id string) (a *alert.Alert, escalated bool, err error) {
	a, err = s.alerts.Mutate(ctx, id, func(a *alert.Alert) error {
		escalated = a.Escalate()
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if !escalated {
		return a, false, nil
	}

	obs.RecordEscalation(string(a.Priority))
	s.emit(ctx, "alert", a.ID, "escalate", "", map[string]string{
		"home":     a.HomeID,
		"priority": string(a.Priority),
	})

	if a.Priority.AtLeast(alert.PriorityCritical) {
		n := Notification{
			UserID:   a.HomeID,
			Subject:  fmt.Sprintf("%s alert escalated to %s", a.Type, a.Priority),
			Message:  a.Message,
			Priority: string(a.Priority),
		}
		if nerr := s.notifier.Notify(ctx, n); nerr != nil {
			s.log.Warn().Err(nerr).Str("alert", a.ID).Msg("escalation notify failed")
		}
	}
	return a, true, nil
}

// ResolveAlert marks the alert resolved. Resolving twice is a no-op.
func (s *Service) ResolveAlert(ctx context.Context, id string) (*alert.Alert, error) {
	now := s.now().UTC()
	a, err := s.alerts.Mutate(ctx, id, func(a *alert.Alert) error {
		a.Resolve(now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, "alert", a.ID, "resolve", "", map[string]string{"home": a.HomeID})
	return a, nil
}

// AcknowledgeAlert records who saw the alert first. Later calls keep the
// original acknowledger.
func (s *Service) AcknowledgeAlert(ctx context.Context, id, userID string) (*alert.Alert, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user is required", alert.ErrInvalidInput)
	}
	now := s.now().UTC()
	a, err := s.alerts.Mutate(ctx, id, func(a *alert.Alert) error {
		a.Acknowledge(userID, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emit(ctx, "alert", a.ID, "acknowledge", "", map[string]string{
		"home": a.HomeID,
		"by":   a.AcknowledgedBy,
	})
	return a, nil
}

// ActiveAlerts lists unresolved alerts for a home.
func (s *Service) ActiveAlerts(ctx context.Context, homeID string) ([]*alert.Alert, error) {
	return s.alerts.ListActive(ctx, homeID)
}
