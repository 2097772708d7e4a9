package mvauth

import (
	"context"
	"errors"

	"github.com/mvplatform/mvauth/session"
)

// Refresh exchanges a live refresh token for a new access token and a
// rotated refresh token. Rotation reuses the login replacement path, so the
// presented token and any stray siblings are gone once the new session
// lands. Unknown and expired tokens report [ErrInvalidCredentials].
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}
	if refreshToken == "" {
		return nil, ErrInvalidPayload
	}

	acc := accountabilityFromContext(ctx)

	sess, err := e.sessions.Get(ctx, refreshToken)
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		if errors.Is(err, session.ErrNotFound) {
			e.emitAudit(ctx, auditRefreshFailure, "", "", acc, ErrInvalidCredentials)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	user, err := e.directory.GetUserByID(ctx, sess.UserID)
	if err != nil || user == nil {
		e.metrics.Inc(MetricRefreshFailure)
		e.emitAudit(ctx, auditRefreshFailure, sess.UserID, "", acc, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	if user.Status != StatusActive {
		// A session held by a deactivated account is dead weight; drop
		// it rather than letting the token idle until expiry.
		if derr := e.sessions.Delete(ctx, refreshToken); derr == nil {
			e.metrics.Inc(MetricSessionInvalidated)
		}
		e.metrics.Inc(MetricRefreshFailure)
		if user.Status == StatusSuspended {
			e.emitAudit(ctx, auditRefreshFailure, user.ID, "", acc, ErrUserSuspended)
			return nil, ErrUserSuspended
		}
		e.emitAudit(ctx, auditRefreshFailure, user.ID, "", acc, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	result, err := e.issueSession(ctx, user, "", "refresh", acc)
	if err != nil {
		e.metrics.Inc(MetricRefreshFailure)
		e.emitAudit(ctx, auditRefreshFailure, user.ID, "", acc, err)
		return nil, err
	}

	e.metrics.Inc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditRefreshSuccess, user.ID, "", acc, nil)

	return result, nil
}

// Logout invalidates the session addressed by a refresh token. An unknown
// token reports [ErrInvalidCredentials], indistinguishable from a session
// that was already logged out.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}
	if refreshToken == "" {
		return ErrInvalidPayload
	}

	acc := accountabilityFromContext(ctx)

	sess, err := e.sessions.Get(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}

	if err := e.sessions.Delete(ctx, refreshToken); err != nil {
		return err
	}

	e.metrics.Inc(MetricLogout)
	e.metrics.Inc(MetricSessionInvalidated)
	e.emitAudit(ctx, auditLogout, sess.UserID, "", acc, nil)

	return nil
}

// Validate parses an access token and returns its claims. Malformed,
// expired, and mis-signed tokens all report [ErrTokenInvalid].
func (e *Engine) Validate(ctx context.Context, accessToken string) (Payload, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.jwtManager.Parse(accessToken)
	if err != nil {
		return nil, errors.Join(ErrTokenInvalid, err)
	}

	return Payload(claims), nil
}
