package mvauth

import (
	"context"
	"time"

	"github.com/mvplatform/mvauth/verification"
)

// UserStatus is the lifecycle state of a user account. Only StatusActive
// accounts can authenticate; the remaining states all fail the status gate.
type UserStatus string

const (
	// StatusActive is an account allowed to authenticate.
	StatusActive UserStatus = "active"
	// StatusSuspended is set automatically when the attempt ceiling is
	// reached and must be cleared out of band.
	StatusSuspended UserStatus = "suspended"
	// StatusInvited is an account that has not completed onboarding.
	StatusInvited UserStatus = "invited"
	// StatusDraft is an account that has been created but not activated.
	StatusDraft UserStatus = "draft"
	// StatusArchived is a soft-deleted account.
	StatusArchived UserStatus = "archived"
)

// Payload is the free-form request body handed to providers and filter
// hooks. The engine copies it before mutation so hook transforms never leak
// back into caller-owned maps.
type Payload map[string]any

// User is the account record the engine operates on. Role is an opaque
// reference; AppAccess and AdminAccess are carried into access-token claims
// unmodified.
type User struct {
	ID          string
	Email       string
	Status      UserStatus
	Role        string
	AppAccess   bool
	AdminAccess bool
}

// Accountability describes the caller of an authentication operation. It is
// derived from context values attached via [WithClientIP], [WithUserAgent],
// and [WithOrigin], and flows into session binding and audit records.
type Accountability struct {
	IP        string
	UserAgent string
	Origin    string
}

// LoginResult is returned by [Engine.Login] and [Engine.Refresh].
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
	UserID       string
}

// IdentityDirectory is the user-database interface callers must implement.
// Lookups return [ErrUserNotFound] (possibly wrapped) when no account
// matches.
type IdentityDirectory interface {
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, userID string) (*User, error)
	UpdateStatus(ctx context.Context, userID string, status UserStatus) error
	UpdateLastAccess(ctx context.Context, userID string, at time.Time) error
}

// SettingsReader supplies runtime-tunable settings. LoginAttemptLimit is
// read once per login; zero or negative disables attempt limiting.
type SettingsReader interface {
	LoginAttemptLimit(ctx context.Context) (int, error)
}

// Mailer delivers challenge codes over email.
type Mailer = verification.Mailer

// MailMessage is a single outbound mail handed to a [Mailer].
type MailMessage = verification.Message
