// Package config loads engine and backend settings from a YAML file and
// environment variables with viper.
//
// Every key has a default taken from jwtAuth.DefaultConfig, so an empty file
// yields a working engine configuration. Environment variables override the
// file: with prefix "JWTAUTH", "auth.sessions.max_simultaneous_sessions" is
// read from JWTAUTH_AUTH_SESSIONS_MAX_SIMULTANEOUS_SESSIONS.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	jwtAuth "github.com/MrEthical07/jwtAuth"
	"github.com/MrEthical07/jwtAuth/notify"
	"github.com/spf13/viper"
)

const DefaultEnvPrefix = "JWTAUTH"

// Backend names accepted in Settings.Store.
const (
	StoreRedis = "redis"
	StoreSQL   = "sql"
)

// Settings is the full process configuration.
type Settings struct {
	Auth  jwtAuth.Config     `mapstructure:"auth"`
	Keys  KeySettings        `mapstructure:"keys"`
	Store string             `mapstructure:"store"`
	Redis RedisSettings      `mapstructure:"redis"`
	SQL   SQLSettings        `mapstructure:"sql"`
	Kafka notify.KafkaConfig `mapstructure:"kafka"`
	Log   LogSettings        `mapstructure:"log"`
}

// KeySettings carries base64-encoded JWT key material. Decoded keys are
// copied into Auth.JWT.
type KeySettings struct {
	PrivateKey string `mapstructure:"private_key"`
	PublicKey  string `mapstructure:"public_key"`
}

type RedisSettings struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type SQLSettings struct {
	DSN string `mapstructure:"dsn"`
}

type LogSettings struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Load reads path (skipped when empty) and the environment, then validates
// the engine section. envPrefix defaults to DefaultEnvPrefix.
func Load(path, envPrefix string) (*Settings, error) {
	if envPrefix == "" {
		envPrefix = DefaultEnvPrefix
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(envPrefix)
	setDefaults(v)

	// AutomaticEnv only sees keys viper already knows; defaults register
	// all of them except these.
	if err := bindEnvs(v, []string{
		"keys.private_key",
		"keys.public_key",
		"redis.password",
	}); err != nil {
		return nil, err
	}
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := s.decodeKeys(); err != nil {
		return nil, err
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) decodeKeys() error {
	if s.Keys.PrivateKey != "" {
		key, err := base64.StdEncoding.DecodeString(s.Keys.PrivateKey)
		if err != nil {
			return fmt.Errorf("decode keys.private_key: %w", err)
		}
		s.Auth.JWT.PrivateKey = key
	}
	if s.Keys.PublicKey != "" {
		key, err := base64.StdEncoding.DecodeString(s.Keys.PublicKey)
		if err != nil {
			return fmt.Errorf("decode keys.public_key: %w", err)
		}
		s.Auth.JWT.PublicKey = key
	}
	return nil
}

func (s *Settings) validate() error {
	switch s.Store {
	case StoreRedis:
		if s.Redis.Addr == "" {
			return errors.New("config: redis.addr is required for the redis store")
		}
	case StoreSQL:
		if s.SQL.DSN == "" {
			return errors.New("config: sql.dsn is required for the sql store")
		}
	default:
		return fmt.Errorf("config: unknown store %q", s.Store)
	}
	if err := s.Auth.Validate(); err != nil {
		return fmt.Errorf("config: auth: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := jwtAuth.DefaultConfig()

	v.SetDefault("auth.sessions.max_simultaneous_sessions", d.Sessions.MaxSimultaneousSessions)
	v.SetDefault("auth.sessions.conflict_retries", d.Sessions.ConflictRetries)

	v.SetDefault("auth.confirmation.expiration_window", d.Confirmation.ExpirationWindow)
	v.SetDefault("auth.confirmation.send_on_register", d.Confirmation.SendOnRegister)
	v.SetDefault("auth.confirmation.require_for_login", d.Confirmation.RequireForLogin)

	v.SetDefault("auth.recovery.expiration_window", d.Recovery.ExpirationWindow)
	v.SetDefault("auth.recovery.require_confirmation", d.Recovery.RequireConfirmation)
	v.SetDefault("auth.recovery.revoke_sessions_on_reset", d.Recovery.RevokeSessionsOnReset)

	v.SetDefault("auth.notifications.send_credential_changed", d.Notifications.SendCredentialChanged)
	v.SetDefault("auth.notifications.send_email_changed", d.Notifications.SendEmailChanged)

	v.SetDefault("auth.jwt.enabled", d.JWT.Enabled)
	v.SetDefault("auth.jwt.ttl", d.JWT.TTL)
	v.SetDefault("auth.jwt.signing_method", d.JWT.SigningMethod)
	v.SetDefault("auth.jwt.issuer", d.JWT.Issuer)
	v.SetDefault("auth.jwt.audience", d.JWT.Audience)
	v.SetDefault("auth.jwt.leeway", d.JWT.Leeway)

	v.SetDefault("auth.password.algorithm", d.Password.Algorithm)
	v.SetDefault("auth.password.memory", d.Password.Memory)
	v.SetDefault("auth.password.time", d.Password.Time)
	v.SetDefault("auth.password.parallelism", d.Password.Parallelism)
	v.SetDefault("auth.password.salt_length", d.Password.SaltLength)
	v.SetDefault("auth.password.key_length", d.Password.KeyLength)
	v.SetDefault("auth.password.bcrypt_cost", d.Password.BcryptCost)

	v.SetDefault("auth.audit.enabled", d.Audit.Enabled)
	v.SetDefault("auth.audit.buffer_size", d.Audit.BufferSize)
	v.SetDefault("auth.audit.drop_if_full", d.Audit.DropIfFull)

	v.SetDefault("auth.metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("auth.metrics.enable_latency_histograms", d.Metrics.EnableLatencyHistograms)

	v.SetDefault("store", StoreRedis)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "ja")
	v.SetDefault("sql.dsn", "")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "auth.notifications")
	v.SetDefault("kafka.links.confirmation_url", "")
	v.SetDefault("kafka.links.recovery_url", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}
