package jwtAuth

import (
	"errors"
	"time"

	"github.com/MrEthical07/jwtAuth/password"
)

// Config holds every engine option. Build one with DefaultConfig, adjust it,
// and pass it to Builder.WithConfig; the engine keeps its own copy.
type Config struct {
	Sessions      SessionsConfig      `mapstructure:"sessions"`
	Confirmation  ConfirmationConfig  `mapstructure:"confirmation"`
	Recovery      RecoveryConfig      `mapstructure:"recovery"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Password      PasswordConfig      `mapstructure:"password"`
	Audit         AuditConfig         `mapstructure:"audit"`
	Metrics       MetricsConfig       `mapstructure:"metrics"`
}

/*
====================================
SESSIONS CONFIG
====================================
*/

// SessionsConfig bounds the opaque session tokens kept per account.
//
// MaxSimultaneousSessions selects the session mode: 0 disables session tokens
// (payloads carry the account id), 1 keeps a single token, N > 1 keeps the N
// most recent tokens.
type SessionsConfig struct {
	MaxSimultaneousSessions int `mapstructure:"max_simultaneous_sessions"`
	ConflictRetries         int `mapstructure:"conflict_retries"`
}

/*
====================================
CONFIRMATION CONFIG
====================================
*/

type ConfirmationConfig struct {
	ExpirationWindow time.Duration `mapstructure:"expiration_window"`
	// SendOnRegister sends instructions right after Register for accounts
	// that are neither confirmed nor already stamped.
	SendOnRegister  bool `mapstructure:"send_on_register"`
	RequireForLogin bool `mapstructure:"require_for_login"`
}

/*
====================================
RECOVERY CONFIG
====================================
*/

type RecoveryConfig struct {
	ExpirationWindow      time.Duration `mapstructure:"expiration_window"`
	RequireConfirmation   bool          `mapstructure:"require_confirmation"`
	RevokeSessionsOnReset bool          `mapstructure:"revoke_sessions_on_reset"`
}

/*
====================================
NOTIFICATIONS CONFIG
====================================
*/

type NotificationsConfig struct {
	SendCredentialChanged bool `mapstructure:"send_credential_changed"`
	SendEmailChanged      bool `mapstructure:"send_email_changed"`
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures signed bearer credentials wrapping the session
// payload. Keys are raw bytes and are never read from a config file.
type JWTConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	TTL           time.Duration `mapstructure:"ttl"`
	SigningMethod string        `mapstructure:"signing_method"` // "ed25519" (default), "hs256" optional
	PrivateKey    []byte        `mapstructure:"-"`
	PublicKey     []byte        `mapstructure:"-"`
	Issuer        string        `mapstructure:"issuer"`
	Audience      string        `mapstructure:"audience"`
	Leeway        time.Duration `mapstructure:"leeway"`
}

/*
====================================
PASSWORD CONFIG
====================================
*/

type PasswordConfig struct {
	Algorithm   string `mapstructure:"algorithm"` // "argon2id" (default) or "bcrypt"
	Memory      uint32 `mapstructure:"memory"`    // in KB
	Time        uint32 `mapstructure:"time"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
	BcryptCost  int    `mapstructure:"bcrypt_cost"`
}

type AuditConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	BufferSize int  `mapstructure:"buffer_size"`
	DropIfFull bool `mapstructure:"drop_if_full"`
}

type MetricsConfig struct {
	Enabled                 bool `mapstructure:"enabled"`
	EnableLatencyHistograms bool `mapstructure:"enable_latency_histograms"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the defaults Build starts from.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Sessions: SessionsConfig{
			MaxSimultaneousSessions: 2,
			ConflictRetries:         3,
		},
		Confirmation: ConfirmationConfig{
			ExpirationWindow: 24 * time.Hour,
			SendOnRegister:   true,
			RequireForLogin:  false,
		},
		Recovery: RecoveryConfig{
			ExpirationWindow:      24 * time.Hour,
			RequireConfirmation:   true,
			RevokeSessionsOnReset: true,
		},
		Notifications: NotificationsConfig{
			SendCredentialChanged: true,
			SendEmailChanged:      true,
		},
		JWT: JWTConfig{
			Enabled:       false,
			TTL:           15 * time.Minute,
			SigningMethod: "ed25519",
			Leeway:        30 * time.Second,
		},
		Password: PasswordConfig{
			Algorithm:   password.AlgorithmArgon2id,
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
			BcryptCost:  password.DefaultBcryptCost,
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

// Validate rejects configurations the engine cannot run with. It does not
// fill in defaults.
func (c *Config) Validate() error {
	// Sessions
	if c.Sessions.MaxSimultaneousSessions < 0 {
		return errors.New("Sessions MaxSimultaneousSessions must be >= 0")
	}
	if c.Sessions.ConflictRetries < 0 {
		return errors.New("Sessions ConflictRetries must be >= 0")
	}

	// Confirmation / Recovery
	if c.Confirmation.ExpirationWindow <= 0 {
		return errors.New("Confirmation ExpirationWindow must be > 0")
	}
	if c.Recovery.ExpirationWindow <= 0 {
		return errors.New("Recovery ExpirationWindow must be > 0")
	}

	// JWT
	if c.JWT.Enabled {
		if c.JWT.TTL <= 0 {
			return errors.New("JWT TTL must be > 0")
		}
		if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
			return errors.New("JWT Leeway must be between 0 and 2m")
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
		if c.JWT.SigningMethod == "hs256" && len(c.JWT.PrivateKey) < 32 {
			return errors.New("hs256 requires a PrivateKey of at least 32 bytes")
		}
	}

	// Password
	switch c.Password.Algorithm {
	case "", password.AlgorithmArgon2id:
		if c.Password.Memory < 8*1024 {
			return errors.New("Password Memory must be >= 8192 KB")
		}
		if c.Password.Time < 1 {
			return errors.New("Password Time must be >= 1")
		}
		if c.Password.Parallelism < 1 {
			return errors.New("Password Parallelism must be >= 1")
		}
		if c.Password.SaltLength < 16 {
			return errors.New("Password SaltLength must be >= 16")
		}
		if c.Password.KeyLength < 16 {
			return errors.New("Password KeyLength must be >= 16")
		}
	case password.AlgorithmBcrypt:
		if c.Password.BcryptCost < 4 || c.Password.BcryptCost > 31 {
			return errors.New("Password BcryptCost must be between 4 and 31")
		}
	default:
		return errors.New("unsupported Password Algorithm")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}
