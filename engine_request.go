package mvauth

import (
	"context"
	"errors"

	"github.com/mvplatform/mvauth/internal/rate"
)

// RequestChallenge resolves the payload's identity and asks the named
// provider to initiate its challenge. For the built-in OTP provider that
// means a fresh emailed code, which revokes every pending challenge for the
// caller's (ip, user) pair.
//
// Unlike Login, no attempt accounting happens here: requesting codes is not
// a guessing vector. The stall still covers every exit path so unknown and
// known emails are indistinguishable by timing.
func (e *Engine) RequestChallenge(ctx context.Context, providerName string, payload Payload) error {
	if e == nil || e.directory == nil {
		return ErrEngineNotReady
	}

	start := e.clock.Now()
	err := e.requestChallenge(ctx, providerName, payload)
	e.stall(start)

	return err
}

func (e *Engine) requestChallenge(ctx context.Context, providerName string, payload Payload) error {
	acc := accountabilityFromContext(ctx)

	provider, ok := e.providers[providerName]
	if !ok {
		return ErrInvalidProvider
	}

	if err := e.allowRequest(ctx, "ip", acc.IP); err != nil {
		e.emitAudit(ctx, auditChallengeRequest, "", providerName, acc, err)
		return err
	}

	userID, err := provider.ResolveIdentity(ctx, clonePayload(payload))
	if err != nil {
		e.emitAudit(ctx, auditChallengeRequest, "", providerName, acc, err)
		return err
	}

	user, err := e.directory.GetUserByID(ctx, userID)
	if err != nil || user == nil {
		e.emitAudit(ctx, auditChallengeRequest, userID, providerName, acc, ErrInvalidCredentials)
		return ErrInvalidCredentials
	}

	if err := e.allowRequest(ctx, "user", user.ID); err != nil {
		e.emitAudit(ctx, auditChallengeRequest, user.ID, providerName, acc, err)
		return err
	}

	if _, err := e.hooks.EmitFilter(ctx, EventLogin, clonePayload(payload), HookMeta{
		Status:   "pending",
		UserID:   user.ID,
		Provider: providerName,
	}); err != nil {
		return err
	}

	emitStatus := func(status string) {
		e.hooks.EmitAction(ctx, EventLogin, clonePayload(payload), HookMeta{
			Status:   status,
			UserID:   user.ID,
			Provider: providerName,
		})
	}

	if user.Status != StatusActive {
		emitStatus("fail")
		if user.Status == StatusSuspended {
			e.emitAudit(ctx, auditChallengeRequest, user.ID, providerName, acc, ErrUserSuspended)
			return ErrUserSuspended
		}
		e.emitAudit(ctx, auditChallengeRequest, user.ID, providerName, acc, ErrInvalidCredentials)
		return ErrInvalidCredentials
	}

	if err := provider.Request(ctx, user, acc); err != nil {
		emitStatus("fail")
		e.emitAudit(ctx, auditChallengeRequest, user.ID, providerName, acc, err)
		return err
	}

	emitStatus("success")
	e.metrics.Inc(MetricChallengeRequested)
	e.emitAudit(ctx, auditChallengeRequest, user.ID, providerName, acc, nil)

	return nil
}

// allowRequest applies the fixed-window challenge throttle when configured.
func (e *Engine) allowRequest(ctx context.Context, scope, key string) error {
	if e.throttle == nil {
		return nil
	}
	if err := e.throttle.Allow(ctx, scope, key); err != nil {
		if errors.Is(err, rate.ErrLimited) {
			return ErrTooManyRequests
		}
		return err
	}
	return nil
}
