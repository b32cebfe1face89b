package jwtAuth

import (
	"errors"
	"time"

	"github.com/MrEthical07/jwtAuth/account"
	"github.com/MrEthical07/jwtAuth/jwt"
	"github.com/MrEthical07/jwtAuth/password"
	"go.uber.org/zap"
)

// Builder assembles an Engine. A Builder is single-use: Build fails on the
// second call.
type Builder struct {
	config Config

	repository account.Repository
	notifier   Notifier
	auditSink  AuditSink
	logger     *zap.Logger
	now        func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The Builder keeps a copy.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRepository sets the account store. Required.
func (b *Builder) WithRepository(repo account.Repository) *Builder {
	b.repository = repo
	return b
}

// WithNotifier sets the out-of-band message sink. Defaults to NoOpNotifier.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger. Defaults to zap.NewNop().
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source used for token timestamps and expiry
// checks.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine. It fails when no
// repository is set, when the config is invalid, or when the password or
// signing key material is unusable.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.repository == nil {
		return nil, errors.New("account repository required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := b.notifier
	if notifier == nil {
		notifier = NoOpNotifier{}
	}

	ph, err := password.New(password.Config{
		Algorithm:   cfg.Password.Algorithm,
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
		BcryptCost:  cfg.Password.BcryptCost,
	})
	if err != nil {
		return nil, err
	}

	var jm *jwt.Manager
	if cfg.JWT.Enabled {
		jm, err = jwt.NewManager(jwt.Config{
			TTL:           cfg.JWT.TTL,
			SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
			PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
			PublicKey:     cloneBytes(cfg.JWT.PublicKey),
			Issuer:        cfg.JWT.Issuer,
			Audience:      cfg.JWT.Audience,
			Leeway:        cfg.JWT.Leeway,
			RequireIAT:    true,
			Now:           now,
		})
		if err != nil {
			return nil, err
		}
	}

	// Nothing below may fail: the audit dispatcher starts a goroutine.
	engine := &Engine{
		config:       cloneConfig(cfg),
		repository:   b.repository,
		notifier:     notifier,
		logger:       logger.Named("jwtauth"),
		clock:        now,
		passwordHash: ph,
		jwtManager:   jm,
		audit:        newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:      NewMetrics(cfg.Metrics),
	}

	b.built = true

	return engine, nil
}
