package mvauth

import "context"

// DefaultProvider is the name the built-in OTP provider registers under.
const DefaultProvider = "otp"

// Challenge routing constants used by the built-in OTP provider.
const (
	ChannelEmail = "email"
	PurposeLogin = "Request Login"
)

// PayloadValidator is an optional [Provider] extension. When implemented,
// the engine rejects malformed login payloads up front, before attempt
// accounting or any other stateful work runs. The built-in OTP provider
// implements it.
type PayloadValidator interface {
	ValidateLoginPayload(payload Payload) error
}

// Provider is one authentication mechanism dispatched by name.
//
// ResolveIdentity maps a request payload to a user ID without touching
// credential state. Verify checks the payload's credential against the
// resolved user. Request initiates a challenge for providers that need one;
// providers without a challenge step return nil.
type Provider interface {
	Name() string
	ResolveIdentity(ctx context.Context, payload Payload) (string, error)
	Verify(ctx context.Context, user *User, payload Payload) error
	Request(ctx context.Context, user *User, acc Accountability) error
}
