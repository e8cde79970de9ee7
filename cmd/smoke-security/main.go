// Command smoke-security runs the decision core end to end against
// in-memory stores and fails loudly when any invariant breaks.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"homeguard.org/internal/access"
	"homeguard.org/internal/alert"
	"homeguard.org/internal/obs"
	"homeguard.org/internal/policy"
	"homeguard.org/internal/ratelimit"
	"homeguard.org/internal/security"
	"homeguard.org/internal/token"
)

func main() {
	obs.Init()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tokens := token.NewManager(token.NewMemory())
	svc, err := security.NewService(security.Config{
		Grants:   access.NewTracker(access.NewMemory()),
		Limiter:  ratelimit.NewLimiter(ratelimit.NewMemory()),
		Alerts:   alert.NewMemory(),
		Tokens:   tokens,
		Policies: policy.NewMemory(),
	})
	if err != nil {
		log.Fatalf("build service: %v", err)
	}

	// An ungranted user is denied before any other check runs.
	d, err := svc.EvaluateAccess(ctx, security.AccessRequest{
		HomeID: "home-1", UserID: "intruder", DeviceID: "front-door", Operation: "unlock_door",
	})
	if err != nil {
		log.Fatalf("evaluate ungranted: %v", err)
	}
	if d.Allowed || d.Reason != security.ReasonGrantMissing {
		log.Fatalf("ungranted user not denied: %+v", d)
	}

	// Granted users are admitted until the rate window fills.
	req := security.AccessRequest{
		HomeID: "home-1", UserID: "alice", DeviceID: "front-door", Operation: "unlock_door",
	}
	err = svc.CreateGrant(ctx, &access.Grant{
		HomeID: req.HomeID, UserID: req.UserID, DeviceID: req.DeviceID, Level: access.LevelOwner,
	})
	if err != nil {
		log.Fatalf("create grant: %v", err)
	}
	admitted := 0
	for i := 0; i < 10; i++ {
		d, err := svc.EvaluateAccess(ctx, req)
		if err != nil {
			log.Fatalf("evaluate call %d: %v", i+1, err)
		}
		if d.Allowed {
			admitted++
		} else if d.Reason != security.ReasonRateLimited {
			log.Fatalf("call %d denied for %s, expected rate limit", i+1, d.Reason)
		}
	}
	if admitted != 4 {
		log.Fatalf("rate window admitted %d calls, want 4", admitted)
	}
	if err := svc.ResetRate(ctx, req.UserID, req.Operation); err != nil {
		log.Fatalf("reset rate: %v", err)
	}
	if d, err = svc.EvaluateAccess(ctx, req); err != nil || !d.Allowed {
		log.Fatalf("post-reset call denied: %+v err=%v", d, err)
	}

	// Alerts climb the ladder one rung at a time and stop at the top.
	a, err := svc.RaiseAlert(ctx, security.AlertRequest{
		HomeID: "home-1", Type: alert.TypeIntrusion, Priority: alert.PriorityInfo,
	})
	if err != nil {
		log.Fatalf("raise alert: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, escalated, err := svc.EscalateAlert(ctx, a.ID); err != nil || !escalated {
			log.Fatalf("escalation %d: escalated=%v err=%v", i+1, escalated, err)
		}
	}
	got, escalated, err := svc.EscalateAlert(ctx, a.ID)
	if err != nil {
		log.Fatalf("escalate at top: %v", err)
	}
	if escalated || got.Priority != alert.PriorityEmergency {
		log.Fatalf("ladder overran the top: %+v", got)
	}

	// Token round trip: issue, authenticate, encrypt, revoke.
	issued, err := svc.IssueToken(ctx, token.IssueRequest{UserID: "alice", Type: token.TypeAPI})
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	auth, err := svc.AuthenticateToken(ctx, issued.Value, "127.0.0.1", "smoke")
	if err != nil || !auth.OK {
		log.Fatalf("authenticate: ok=%v err=%v", auth.OK, err)
	}
	key, err := tokens.EncryptPayload(ctx, issued.ID, map[string]string{"zone": "perimeter"})
	if err != nil {
		log.Fatalf("encrypt payload: %v", err)
	}
	var payload map[string]string
	if err := tokens.DecryptPayload(ctx, issued.ID, key, &payload); err != nil {
		log.Fatalf("decrypt payload: %v", err)
	}
	if payload["zone"] != "perimeter" {
		log.Fatalf("payload mangled: %+v", payload)
	}
	if _, err := svc.RevokeToken(ctx, issued.ID); err != nil {
		log.Fatalf("revoke token: %v", err)
	}
	if auth, err = svc.AuthenticateToken(ctx, issued.Value, "", ""); err != nil || auth.OK {
		log.Fatalf("revoked token authenticated: ok=%v err=%v", auth.OK, err)
	}

	fmt.Println("✅ security core smoke test passed")
}
