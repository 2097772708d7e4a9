package mvauth

import (
	"context"
	"log"
	"time"

	clock "github.com/filecoin-project/go-clock"

	"github.com/mvplatform/mvauth/internal"
	"github.com/mvplatform/mvauth/internal/rate"
	"github.com/mvplatform/mvauth/jwt"
	"github.com/mvplatform/mvauth/session"
	"github.com/mvplatform/mvauth/verification"
)

// Audit event types emitted by the engine.
const (
	auditLoginSuccess     = "auth.login.success"
	auditLoginFailure     = "auth.login.failure"
	auditChallengeRequest = "auth.challenge.request"
	auditUserSuspended    = "auth.user.suspended"
	auditRefreshSuccess   = "auth.refresh.success"
	auditRefreshFailure   = "auth.refresh.failure"
	auditLogout           = "auth.logout"
)

// Engine is the authentication core. Construct it through [Builder.Build];
// all methods are safe for concurrent use afterwards.
type Engine struct {
	config Config
	clock  clock.Clock

	directory IdentityDirectory
	settings  SettingsReader
	providers map[string]Provider

	verifications *verification.Store
	sessions      *session.Store
	jwtManager    *jwt.Manager
	attempts      *attemptLimiter
	throttle      *rate.Limiter
	hooks         *Emitter

	audit   *auditDispatcher
	metrics *Metrics
}

// Login authenticates a payload against the named provider and, on success,
// replaces the user's sessions with a fresh one.
//
// The call never returns before Config.Login.StallTime has elapsed,
// regardless of outcome, so response timing does not reveal whether the
// email exists, the code matched, or anything in between.
func (e *Engine) Login(ctx context.Context, providerName string, payload Payload) (*LoginResult, error) {
	if e == nil || e.directory == nil {
		return nil, ErrEngineNotReady
	}

	start := e.clock.Now()
	result, err := e.login(ctx, providerName, payload)
	e.stall(start)
	e.metrics.Observe(MetricLoginLatency, e.clock.Since(start))

	return result, err
}

func (e *Engine) login(ctx context.Context, providerName string, payload Payload) (*LoginResult, error) {
	acc := accountabilityFromContext(ctx)

	provider, ok := e.providers[providerName]
	if !ok {
		return nil, ErrInvalidProvider
	}

	if v, ok := provider.(PayloadValidator); ok {
		if err := v.ValidateLoginPayload(payload); err != nil {
			e.metrics.Inc(MetricLoginFailure)
			e.emitAudit(ctx, auditLoginFailure, "", providerName, acc, err)
			return nil, err
		}
	}

	userID, err := provider.ResolveIdentity(ctx, clonePayload(payload))
	if err != nil {
		e.metrics.Inc(MetricLoginFailure)
		e.emitAudit(ctx, auditLoginFailure, "", providerName, acc, err)
		return nil, err
	}

	user, err := e.directory.GetUserByID(ctx, userID)
	if err != nil || user == nil {
		e.metrics.Inc(MetricLoginFailure)
		e.emitAudit(ctx, auditLoginFailure, userID, providerName, acc, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	updatedPayload, err := e.hooks.EmitFilter(ctx, EventLogin, clonePayload(payload), HookMeta{
		Status:   "pending",
		UserID:   user.ID,
		Provider: providerName,
	})
	if err != nil {
		return nil, err
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
		e.metrics.Inc(MetricLoginFailure)
		if user.Status == StatusSuspended {
			e.emitAudit(ctx, auditLoginFailure, user.ID, providerName, acc, ErrUserSuspended)
			return nil, ErrUserSuspended
		}
		e.emitAudit(ctx, auditLoginFailure, user.ID, providerName, acc, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	limit, err := e.settings.LoginAttemptLimit(ctx)
	if err != nil {
		return nil, err
	}

	if limit > 0 {
		if err := e.attempts.Consume(user.ID, limit); err != nil {
			// Ceiling reached: suspend the account and forgive the
			// counter. The request itself still falls through to
			// verification.
			e.metrics.Inc(MetricAttemptsExceeded)
			if uerr := e.directory.UpdateStatus(ctx, user.ID, StatusSuspended); uerr != nil {
				log.Printf("mvauth: suspend user %s: %v", user.ID, uerr)
			} else {
				e.metrics.Inc(MetricUserSuspended)
				e.emitAudit(ctx, auditUserSuspended, user.ID, providerName, acc, ErrAttemptsExceeded)
			}
			e.attempts.Reset(user.ID)
		}
	}

	if err := provider.Verify(ctx, user, updatedPayload); err != nil {
		emitStatus("fail")
		e.metrics.Inc(MetricLoginFailure)
		switch err {
		case ErrInvalidOTP:
			e.metrics.Inc(MetricOTPMismatch)
		case ErrOTPExpired:
			e.metrics.Inc(MetricOTPExpired)
		}
		e.emitAudit(ctx, auditLoginFailure, user.ID, providerName, acc, err)
		return nil, err
	}

	result, err := e.issueSession(ctx, user, providerName, "login", acc)
	if err != nil {
		emitStatus("fail")
		e.metrics.Inc(MetricLoginFailure)
		e.emitAudit(ctx, auditLoginFailure, user.ID, providerName, acc, err)
		return nil, err
	}

	e.emitAudit(ctx, auditLoginSuccess, user.ID, providerName, acc, nil)

	if err := e.directory.UpdateLastAccess(ctx, user.ID, e.clock.Now()); err != nil {
		log.Printf("mvauth: update last access for %s: %v", user.ID, err)
	}

	emitStatus("success")
	if limit > 0 {
		e.attempts.Reset(user.ID)
	}
	e.metrics.Inc(MetricLoginSuccess)

	return result, nil
}

// issueSession signs an access token over the filtered claim set, mints an
// opaque refresh token, and atomically swaps it in as the user's only
// session.
func (e *Engine) issueSession(ctx context.Context, user *User, providerName, tokenType string, acc Accountability) (*LoginResult, error) {
	claims := Payload{
		"id":           user.ID,
		"role":         user.Role,
		"app_access":   user.AppAccess,
		"admin_access": user.AdminAccess,
	}

	custom, err := e.hooks.EmitFilter(ctx, EventJWT, claims, HookMeta{
		Status:   "pending",
		UserID:   user.ID,
		Provider: providerName,
		Type:     tokenType,
	})
	if err != nil {
		return nil, err
	}

	access, err := e.jwtManager.Sign(custom)
	if err != nil {
		return nil, err
	}

	refresh, err := internal.NewRefreshToken()
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	sess := &session.Session{
		Token:     refresh,
		UserID:    user.ID,
		IP:        acc.IP,
		UserAgent: acc.UserAgent,
		Origin:    acc.Origin,
		CreatedAt: now.UnixMilli(),
		ExpiresAt: now.Add(e.config.JWT.RefreshTTL).UnixMilli(),
	}

	removed, err := e.sessions.Replace(ctx, sess, e.config.JWT.RefreshTTL)
	if err != nil {
		return nil, err
	}
	e.metrics.Add(MetricSessionInvalidated, uint64(removed))
	e.metrics.Inc(MetricSessionCreated)

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    e.config.JWT.AccessTTL,
		UserID:       user.ID,
	}, nil
}

func (e *Engine) stall(start time.Time) {
	stallUntil(e.clock, e.config.Login.StallTime, start)
}

func (e *Engine) emitAudit(ctx context.Context, eventType, userID, provider string, acc Accountability, opErr error) {
	if e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: e.clock.Now(),
		EventType: eventType,
		UserID:    userID,
		Provider:  provider,
		IP:        acc.IP,
		UserAgent: acc.UserAgent,
		Origin:    acc.Origin,
		Success:   opErr == nil,
	}
	if opErr != nil {
		event.Error = opErr.Error()
	}

	e.audit.Emit(ctx, event)
}

// Hooks returns the engine's event bus for filter and action registration.
func (e *Engine) Hooks() *Emitter {
	return e.hooks
}

// LoginAttempts returns the current consecutive-attempt counter for a user.
func (e *Engine) LoginAttempts(userID string) int {
	if e == nil || e.attempts == nil {
		return 0
	}
	return e.attempts.Attempts(userID)
}

// MetricsSnapshot returns a point-in-time copy of all metrics.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// MetricValue reads a single counter.
func (e *Engine) MetricValue(id MetricID) uint64 {
	if e == nil {
		return 0
	}
	return e.metrics.Value(id)
}

// AuditDropped reports how many audit events were discarded under
// backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Close drains the audit dispatcher. The engine must not be used after
// Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

func clonePayload(p Payload) Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
