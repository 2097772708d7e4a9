package mvauth

import (
	"errors"
	"time"
)

// Config holds all engine tunables. Instances are treated as immutable
// after [Builder.Build]; the builder clones key material on the way in.
type Config struct {
	JWT      JWTConfig
	Login    LoginConfig
	OTP      OTPConfig
	Throttle ThrottleConfig
	Session  SessionConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
	Security SecurityConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures access-token signing and session lifetimes.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "hs256" (default), "ed25519" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
}

/*
====================================
LOGIN CONFIG
====================================
*/

// LoginConfig configures the login state machine. StallTime is the minimum
// duration of every Login and RequestChallenge call, outcome-independent;
// zero disables the stall (tests only).
type LoginConfig struct {
	StallTime time.Duration
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig configures challenge generation and storage. Retention bounds
// how long consumed and revoked records stay readable; it is clamped up to
// TTL when shorter.
type OTPConfig struct {
	CodeLength   int
	TTL          time.Duration
	Retention    time.Duration
	RedisPrefix  string
	MailSubject  string
	MailTemplate string
}

/*
====================================
THROTTLE CONFIG
====================================
*/

// ThrottleConfig bounds challenge requests per user and per caller IP over a
// fixed window. Disabled by default.
type ThrottleConfig struct {
	Enabled     bool
	MaxRequests int
	Window      time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig configures session storage.
type SessionConfig struct {
	RedisPrefix string
}

// AuditConfig configures the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig configures in-process metrics.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig tightens validation for production deployments.
type SecurityConfig struct {
	ProductionMode bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration [New] seeds a builder with.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "hs256",
			Issuer:        "mvauth",
		},
		Login: LoginConfig{
			StallTime: 500 * time.Millisecond,
		},
		OTP: OTPConfig{
			CodeLength:   4,
			TTL:          10 * time.Minute,
			Retention:    24 * time.Hour,
			RedisPrefix:  "vc",
			MailSubject:  "One-time login code",
			MailTemplate: "otp",
		},
		Throttle: ThrottleConfig{
			Enabled:     false,
			MaxRequests: 10,
			Window:      15 * time.Minute,
		},
		Session: SessionConfig{
			RedisPrefix: "ms",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Security: SecurityConfig{
			ProductionMode: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for internal consistency. It is called
// by [Builder.Build] and may be called directly on hand-built configs.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}

	if c.JWT.SigningMethod != "ed25519" && c.JWT.SigningMethod != "hs256" {
		return errors.New("unsupported JWT signing method")
	}

	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("ed25519 requires PrivateKey")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PublicKey) == 0 {
		return errors.New("ed25519 requires PublicKey")
	}
	if c.JWT.SigningMethod == "hs256" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("hs256 requires PrivateKey")
	}

	// Login
	if c.Login.StallTime < 0 {
		return errors.New("Login StallTime must be >= 0")
	}

	// OTP
	if c.OTP.CodeLength < 1 || c.OTP.CodeLength > 32 {
		return errors.New("OTP CodeLength must be between 1 and 32")
	}
	if c.OTP.TTL <= 0 {
		return errors.New("OTP TTL must be > 0")
	}
	if c.OTP.Retention < 0 {
		return errors.New("OTP Retention must be >= 0")
	}

	// Throttle
	if c.Throttle.Enabled {
		if c.Throttle.MaxRequests <= 0 {
			return errors.New("Throttle MaxRequests must be > 0 when throttling is enabled")
		}
		if c.Throttle.Window <= 0 {
			return errors.New("Throttle Window must be > 0 when throttling is enabled")
		}
	}

	// Audit
	if c.Audit.Enabled {
		if c.Audit.BufferSize <= 0 {
			return errors.New("Audit BufferSize must be > 0 when audit is enabled")
		}
	}

	// Production hardening
	if c.Security.ProductionMode {
		if c.Login.StallTime < 100*time.Millisecond {
			return errors.New("ProductionMode requires Login StallTime >= 100ms")
		}
		if c.JWT.SigningMethod == "hs256" && len(c.JWT.PrivateKey) < 32 {
			return errors.New("ProductionMode requires hs256 PrivateKey >= 32 bytes")
		}
		if c.OTP.CodeLength < 4 {
			return errors.New("ProductionMode requires OTP CodeLength >= 4")
		}
		if c.OTP.TTL > 15*time.Minute {
			return errors.New("ProductionMode requires OTP TTL <= 15m")
		}
	}

	return nil
}
