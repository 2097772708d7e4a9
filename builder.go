package mvauth

import (
	"errors"

	clock "github.com/filecoin-project/go-clock"
	"github.com/redis/go-redis/v9"

	"github.com/mvplatform/mvauth/internal/rate"
	"github.com/mvplatform/mvauth/jwt"
	"github.com/mvplatform/mvauth/session"
	"github.com/mvplatform/mvauth/verification"
)

// Builder assembles an [Engine]. Each builder is single-use: Build returns
// an error when called twice.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	directory IdentityDirectory
	settings  SettingsReader
	mailer    Mailer
	clock     clock.Clock
	auditSink AuditSink
	providers []Provider

	built bool
}

// New creates a [Builder] seeded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the full configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing verification and session storage.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithDirectory sets the user database integration.
func (b *Builder) WithDirectory(d IdentityDirectory) *Builder {
	b.directory = d
	return b
}

// WithSettings sets the runtime settings source.
func (b *Builder) WithSettings(s SettingsReader) *Builder {
	b.settings = s
	return b
}

// WithMailer sets the outbound mail collaborator used for email challenges.
func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

// WithClock overrides the engine's time source. All expiry comparisons and
// the login stall read from this clock. Defaults to the wall clock.
func (b *Builder) WithClock(c clock.Clock) *Builder {
	b.clock = c
	return b
}

// WithAuditSink sets the audit destination. Ignored unless
// Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithProvider registers an additional authentication provider. The
// built-in OTP provider is always registered under [DefaultProvider].
func (b *Builder) WithProvider(p Provider) *Builder {
	if p != nil {
		b.providers = append(b.providers, p)
	}
	return b
}

// WithMetricsEnabled toggles in-process metrics.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the login latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine. The builder is
// consumed; the returned engine is safe for concurrent use.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.directory == nil {
		return nil, errors.New("identity directory required")
	}
	if b.settings == nil {
		return nil, errors.New("settings reader required")
	}
	if b.mailer == nil {
		return nil, errors.New("mailer required")
	}

	clk := b.clock
	if clk == nil {
		clk = clock.New()
	}

	// -------- STORES --------
	verifications := verification.NewStore(b.redis, verification.StoreConfig{
		Prefix:       cfg.OTP.RedisPrefix,
		CodeLength:   cfg.OTP.CodeLength,
		TTL:          cfg.OTP.TTL,
		Retention:    cfg.OTP.Retention,
		MailSubject:  cfg.OTP.MailSubject,
		MailTemplate: cfg.OTP.MailTemplate,
	}, clk, b.mailer)

	sessions := session.NewStore(b.redis, cfg.Session.RedisPrefix, clk)

	engine := &Engine{
		config:        cfg,
		clock:         clk,
		directory:     b.directory,
		settings:      b.settings,
		verifications: verifications,
		sessions:      sessions,
		attempts:      newAttemptLimiter(),
		hooks:         NewEmitter(),
		providers:     make(map[string]Provider),
	}

	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	if cfg.Throttle.Enabled {
		engine.throttle = rate.New(b.redis, rate.Config{
			MaxRequests: cfg.Throttle.MaxRequests,
			Window:      cfg.Throttle.Window,
		})
	}

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Now:           clk.Now,
	})
	if err != nil {
		return nil, err
	}
	engine.jwtManager = jm

	// -------- PROVIDERS --------
	registered := append([]Provider{newOTPProvider(b.directory, verifications, engine.metrics)}, b.providers...)
	for _, p := range registered {
		if _, exists := engine.providers[p.Name()]; exists {
			return nil, ErrProviderDuplicateIdentifier
		}
		engine.providers[p.Name()] = p
	}

	b.built = true

	return engine, nil
}
