// Package security composes the decision core: grants, rate limits,
// policies, alerts, tokens, and credentials behind one facade that a
// request-handling layer calls as single units of work.
package security

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"homeguard.org/internal/access"
	"homeguard.org/internal/alert"
	"homeguard.org/internal/credential"
	"homeguard.org/internal/obs"
	"homeguard.org/internal/policy"
	"homeguard.org/internal/ratelimit"
	"homeguard.org/internal/token"
)

// Denial reasons reported in decisions and audit events.
const (
	ReasonGrantMissing = "grant_missing"
	ReasonGrantInvalid = "grant_invalid"
	ReasonRateLimited  = "rate_limited"
	ReasonPolicyDenied = "policy_denied"
)

// Config wires the facade's collaborators.
type Config struct {
	Grants   *access.Tracker
	Limiter  *ratelimit.Limiter
	Alerts   alert.Store
	Tokens   *token.Manager
	Policies policy.Source
}

// Service is the security decision facade.
type Service struct {
	grants    *access.Tracker
	limiter   *ratelimit.Limiter
	alerts    alert.Store
	tokens    *token.Manager
	policies  policy.Source
	eval      *policy.Evaluator
	audit     Sink
	notifier  Notifier
	biometric credential.BiometricVerifier
	log       zerolog.Logger
	now       func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithAuditSink overrides the audit event sink.
func WithAuditSink(sink Sink) Option {
	return func(s *Service) {
		if sink != nil {
			s.audit = sink
		}
	}
}

// WithNotifier overrides the notification collaborator.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithEvaluator overrides the policy evaluator (for fail-closed setups).
func WithEvaluator(e *policy.Evaluator) Option {
	return func(s *Service) {
		if e != nil {
			s.eval = e
		}
	}
}

// WithBiometricVerifier overrides the biometric matching capability.
func WithBiometricVerifier(v credential.BiometricVerifier) Option {
	return func(s *Service) {
		if v != nil {
			s.biometric = v
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the facade.
func NewService(cfg Config, opts ...Option) (*Service, error) {
	if cfg.Grants == nil || cfg.Limiter == nil || cfg.Alerts == nil || cfg.Tokens == nil || cfg.Policies == nil {
		return nil, errors.New("security: all collaborators are required")
	}
	s := &Service{
		grants:    cfg.Grants,
		limiter:   cfg.Limiter,
		alerts:    cfg.Alerts,
		tokens:    cfg.Tokens,
		policies:  cfg.Policies,
		eval:      policy.NewEvaluator(),
		audit:     NewLogSink(obs.Logger()),
		notifier:  NopNotifier{},
		biometric: credential.HashVerifier{},
		log:       obs.Logger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AccessRequest asks whether a user may perform an operation on a device
// right now.
type AccessRequest struct {
	HomeID    string
	UserID    string
	DeviceID  string
	Operation string
	// Context is handed to policy rules named after the operation.
	Context map[string]any
}

// Decision is the outcome of one facade check. A denial is a normal
// result, not an error; Reason names the sub-check that denied.
type Decision struct {
	Allowed bool
	Reason  string
	// Policy names the denying policy when Reason is ReasonPolicyDenied.
	Policy string
	// RetryAt hints when a rate-limited caller may retry, if known.
	RetryAt *time.Time
}

// EvaluateAccess runs the full decision chain: grant validity, rate
// limit, then every active and enforced policy rule named after the
// operation. It short-circuits on the first denial and, on allow, records
// the grant usage. Every outcome is audited.
func (s *Service) EvaluateAccess(ctx context.Context, req AccessRequest) (Decision, error) {
	subject := fmt.Sprintf("%s/%s/%s", req.HomeID, req.UserID, req.DeviceID)
	key := access.Key{HomeID: req.HomeID, UserID: req.UserID, DeviceID: req.DeviceID}

	grant, err := s.grants.Find(ctx, key)
	if err != nil {
		if errors.Is(err, access.ErrNotFound) {
			return s.deny(ctx, subject, req.Operation, Decision{Reason: ReasonGrantMissing}), nil
		}
		return Decision{}, err
	}
	if !grant.Valid(s.now()) {
		return s.deny(ctx, subject, req.Operation, Decision{Reason: ReasonGrantInvalid}), nil
	}

	admit, err := s.limiter.Admit(ctx, req.UserID, req.Operation)
	if err != nil {
		return Decision{}, err
	}
	if !admit.Admitted {
		obs.RecordRateLimitTrip(req.Operation)
		return s.deny(ctx, subject, req.Operation, Decision{Reason: ReasonRateLimited, RetryAt: admit.ResetAt}), nil
	}

	policies, err := s.policies.ActiveForHome(ctx, req.HomeID, "")
	if err != nil {
		return Decision{}, err
	}
	for _, p := range policies {
		if !p.Enforced {
			continue
		}
		ok, err := s.eval.Evaluate(p, req.Operation, req.Context)
		if err != nil {
			return Decision{}, fmt.Errorf("policy %q: %w", p.Name, err)
		}
		if !ok {
			return s.deny(ctx, subject, req.Operation, Decision{Reason: ReasonPolicyDenied, Policy: p.Name}), nil
		}
	}

	if _, err := s.grants.RecordAccess(ctx, key); err != nil {
		return Decision{}, err
	}

	obs.RecordDecision(true, "")
	s.emit(ctx, "access", subject, "allow", "", map[string]string{"operation": req.Operation})
	return Decision{Allowed: true}, nil
}

func (s *Service) deny(ctx context.Context, subject, operation string, d Decision) Decision {
	obs.RecordDecision(false, d.Reason)
	meta := map[string]string{"operation": operation}
	if d.Policy != "" {
		meta["policy"] = d.Policy
	}
	s.emit(ctx, "access", subject, "deny", d.Reason, meta)
	return d
}

// CreateGrant records a new device grant and audits the issuance.
func (s *Service) CreateGrant(ctx context.Context, g *access.Grant) error {
	if err := s.grants.Grant(ctx, g); err != nil {
		return err
	}
	subject := fmt.Sprintf("%s/%s/%s", g.HomeID, g.UserID, g.DeviceID)
	s.emit(ctx, "grant", subject, "create", "", map[string]string{"level": string(g.Level)})
	return nil
}

// RevokeGrant deactivates a grant, keeping the record for the audit trail.
func (s *Service) RevokeGrant(ctx context.Context, key access.Key) (*access.Grant, error) {
	g, err := s.grants.Revoke(ctx, key)
	if err != nil {
		return nil, err
	}
	subject := fmt.Sprintf("%s/%s/%s", key.HomeID, key.UserID, key.DeviceID)
	s.emit(ctx, "grant", subject, "revoke", "", nil)
	return g, nil
}

// CheckRate records one API call against the (user, operation) window and
// reports the admission outcome. Rate-limit trips are audited.
func (s *Service) CheckRate(ctx context.Context, userID, operation string) (ratelimit.Result, error) {
	res, err := s.limiter.Admit(ctx, userID, operation)
	if err != nil {
		return ratelimit.Result{}, err
	}
	if !res.Admitted {
		obs.RecordRateLimitTrip(operation)
		s.emit(ctx, "rate_limit", userID, "deny", ReasonRateLimited, map[string]string{"operation": operation})
	}
	return res, nil
}

// ResetRate restarts the (user, operation) window. Intended for an
// external sweeper or explicit admin action.
func (s *Service) ResetRate(ctx context.Context, userID, operation string) error {
	if err := s.limiter.Reset(ctx, userID, operation); err != nil {
		return err
	}
	s.emit(ctx, "rate_limit", userID, "reset", "", map[string]string{"operation": operation})
	return nil
}
