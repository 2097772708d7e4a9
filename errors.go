package mvauth

import "errors"

var (
	// ErrInvalidCredentials is returned for unknown emails, non-active
	// accounts, and unknown refresh tokens. Callers must not distinguish
	// these cases to the end user.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserSuspended is returned when the target account is suspended.
	ErrUserSuspended = errors.New("user suspended")
	// ErrUserNotFound is returned by IdentityDirectory implementations
	// when no account matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidPayload is returned when a login or challenge payload is
	// missing required fields.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrInvalidProvider is returned when the named provider is not
	// registered with the engine.
	ErrInvalidProvider = errors.New("invalid provider")
	// ErrProviderDuplicateIdentifier is returned by Build when two
	// providers register under the same name.
	ErrProviderDuplicateIdentifier = errors.New("provider duplicate identifier")
	// ErrVerificationNotFound is returned when no pending challenge exists
	// for the user, channel, and purpose.
	ErrVerificationNotFound = errors.New("verification challenge not found")
	// ErrInvalidOTP is returned when the submitted code does not match the
	// pending challenge.
	ErrInvalidOTP = errors.New("invalid one-time password")
	// ErrOTPExpired is returned when the submitted code matches a
	// challenge whose validity window has passed.
	ErrOTPExpired = errors.New("one-time password expired")
	// ErrAttemptsExceeded is returned by the attempt limiter when the
	// consecutive-attempt ceiling is reached. The engine converts it into
	// an account suspension rather than surfacing it to callers.
	ErrAttemptsExceeded = errors.New("login attempts exceeded")
	// ErrTokenInvalid is returned by Validate for malformed, expired, or
	// mis-signed access tokens.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrMailDeliveryFailed wraps mail collaborator failures during
	// challenge issuance.
	ErrMailDeliveryFailed = errors.New("mail delivery failed")
	// ErrTooManyRequests is returned when challenge requests exceed the
	// configured throttle window.
	ErrTooManyRequests = errors.New("too many requests")
	// ErrEngineNotReady is returned when Engine methods are called on a
	// zero or partially constructed engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
