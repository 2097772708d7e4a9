package mvauth

import (
	"context"
	"errors"
	"strings"

	"github.com/mvplatform/mvauth/verification"
)

// otpProvider is the built-in email OTP mechanism. It resolves users by
// case-insensitive email and verifies codes against the challenge store
// under the fixed (email, login) channel/purpose tuple.
type otpProvider struct {
	directory IdentityDirectory
	store     *verification.Store
	metrics   *Metrics
}

func newOTPProvider(directory IdentityDirectory, store *verification.Store, metrics *Metrics) *otpProvider {
	return &otpProvider{
		directory: directory,
		store:     store,
		metrics:   metrics,
	}
}

func (p *otpProvider) Name() string {
	return DefaultProvider
}

// ValidateLoginPayload rejects payloads missing the email or code fields.
// It runs before attempt accounting, so a malformed request can never
// consume the attempt budget or trip a suspension.
func (p *otpProvider) ValidateLoginPayload(payload Payload) error {
	if email, _ := payload["email"].(string); strings.TrimSpace(email) == "" {
		return ErrInvalidPayload
	}
	if code, _ := payload["otp"].(string); code == "" {
		return ErrInvalidPayload
	}
	return nil
}

// ResolveIdentity maps the payload's email to a user ID. Unknown emails
// report [ErrInvalidCredentials]; the distinction from directory errors is
// never surfaced.
func (p *otpProvider) ResolveIdentity(ctx context.Context, payload Payload) (string, error) {
	email, _ := payload["email"].(string)
	email = strings.TrimSpace(email)
	if email == "" {
		return "", ErrInvalidPayload
	}

	user, err := p.directory.FindUserByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if user == nil {
		return "", ErrInvalidCredentials
	}

	return user.ID, nil
}

// Verify consumes the user's pending login challenge against the submitted
// code.
func (p *otpProvider) Verify(ctx context.Context, user *User, payload Payload) error {
	code, _ := payload["otp"].(string)
	if code == "" {
		return ErrInvalidPayload
	}

	err := p.store.Verify(ctx, user.ID, ChannelEmail, PurposeLogin, code)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, verification.ErrNotFound):
		return ErrVerificationNotFound
	case errors.Is(err, verification.ErrCodeMismatch):
		return ErrInvalidOTP
	case errors.Is(err, verification.ErrCodeExpired):
		return ErrOTPExpired
	default:
		return err
	}
}

// Request issues a fresh challenge and emails it to the user. Challenges
// revoked by the reissue are counted before any delivery error is reported.
func (p *otpProvider) Request(ctx context.Context, user *User, acc Accountability) error {
	revoked, err := p.store.Issue(ctx, acc.IP, user.ID, ChannelEmail, PurposeLogin, user.Email)
	p.metrics.Add(MetricChallengeRevoked, uint64(revoked))
	if err != nil {
		if errors.Is(err, verification.ErrMailFailed) {
			return errors.Join(ErrMailDeliveryFailed, err)
		}
		return err
	}
	return nil
}
