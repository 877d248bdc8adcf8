// Package config loads the interview assistant configuration from an
// optional YAML file and INTERVIEW_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonathan/interview-assistant/internal/llm"
)

// EnvPrefix prefixes every environment override, e.g. INTERVIEW_SERVER_PORT.
const EnvPrefix = "INTERVIEW"

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "interview.yaml"

// Store backends.
const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config is the full application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Assessment AssessmentConfig `mapstructure:"assessment"`
	Store      StoreConfig      `mapstructure:"store"`
	Auth       AuthConfig       `mapstructure:"auth"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	JSON  bool `mapstructure:"json"`
	Debug bool `mapstructure:"debug"`
}

// LLMConfig configures the Gemini client. An empty APIKey runs offline.
type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Models      ModelsConfig  `mapstructure:"models"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

// ModelsConfig maps model tiers to Gemini model names.
type ModelsConfig struct {
	Lite     string `mapstructure:"lite"`
	Standard string `mapstructure:"standard"`
	Advanced string `mapstructure:"advanced"`
}

// AssessmentConfig configures the assessment gateway.
type AssessmentConfig struct {
	RecheckInterval time.Duration  `mapstructure:"recheck_interval"`
	Throttle        ThrottleConfig `mapstructure:"throttle"`
}

// ThrottleConfig holds the pause taken before each kind of external call.
type ThrottleConfig struct {
	Extract   time.Duration `mapstructure:"extract"`
	Generate  time.Duration `mapstructure:"generate"`
	Evaluate  time.Duration `mapstructure:"evaluate"`
	Summarize time.Duration `mapstructure:"summarize"`
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Backend  string         `mapstructure:"backend"`
	FilePath string         `mapstructure:"file_path"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

// PostgresConfig configures the postgres backend.
type PostgresConfig struct {
	URL string `mapstructure:"url"`
	Key string `mapstructure:"key"`
}

// AuthConfig configures the interviewer dashboard login.
type AuthConfig struct {
	JWTSecret               string `mapstructure:"jwt_secret"`
	JWTExpirationHours      int    `mapstructure:"jwt_expiration_hours"`
	InterviewerPasswordHash string `mapstructure:"interviewer_password_hash"`
	BcryptCost              int    `mapstructure:"bcrypt_cost"`
	Pepper                  string `mapstructure:"pepper"`
}

// RateLimitConfig toggles the per-IP rate limiter.
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func setDefaults(v *viper.Viper) {
	models := llm.DefaultGeminiConfig().Models

	v.SetDefault("server.port", 8080)
	v.SetDefault("log.json", false)
	v.SetDefault("log.debug", false)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.models.lite", models[llm.TierLite])
	v.SetDefault("llm.models.standard", models[llm.TierStandard])
	v.SetDefault("llm.models.advanced", models[llm.TierAdvanced])
	v.SetDefault("llm.call_timeout", "30s")
	v.SetDefault("assessment.recheck_interval", "5m")
	v.SetDefault("assessment.throttle.extract", "1s")
	v.SetDefault("assessment.throttle.generate", "2s")
	v.SetDefault("assessment.throttle.evaluate", "1500ms")
	v.SetDefault("assessment.throttle.summarize", "2500ms")
	v.SetDefault("store.backend", BackendFile)
	v.SetDefault("store.file_path", "interview-data.json")
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.key", "interview-assistant:candidates")
	v.SetDefault("store.postgres.url", "")
	v.SetDefault("store.postgres.key", "interview-assistant:candidates")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_expiration_hours", 24)
	v.SetDefault("auth.interviewer_password_hash", "")
	v.SetDefault("auth.bcrypt_cost", 12)
	v.SetDefault("auth.pepper", "")
	v.SetDefault("rate_limit.enabled", true)
}

// Load reads configuration from path (or ./interview.yaml when path is
// empty and the file exists), then applies environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("llm.api_key", EnvPrefix+"_LLM_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind GEMINI_API_KEY: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else if _, err := os.Stat(DefaultFile); err == nil {
		v.SetConfigFile(DefaultFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", DefaultFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("config error: 'server.port' out of range: %d", c.Server.Port))
	}
	if c.LLM.CallTimeout <= 0 {
		errs = append(errs, fmt.Errorf("config error: 'llm.call_timeout' must be positive"))
	}
	if c.Assessment.RecheckInterval <= 0 {
		errs = append(errs, fmt.Errorf("config error: 'assessment.recheck_interval' must be positive"))
	}
	t := c.Assessment.Throttle
	if t.Extract < 0 || t.Generate < 0 || t.Evaluate < 0 || t.Summarize < 0 {
		errs = append(errs, fmt.Errorf("config error: 'assessment.throttle' delays must be non-negative"))
	}

	switch c.Store.Backend {
	case BackendFile:
		if c.Store.FilePath == "" {
			errs = append(errs, fmt.Errorf("config error: 'store.file_path' is required for the file backend"))
		}
	case BackendRedis:
		if c.Store.Redis.Addr == "" {
			errs = append(errs, fmt.Errorf("config error: 'store.redis.addr' is required for the redis backend"))
		}
	case BackendPostgres:
		if c.Store.Postgres.URL == "" {
			errs = append(errs, fmt.Errorf("config error: 'store.postgres.url' is required for the postgres backend"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("config error: unknown 'store.backend' %q (want file, redis, postgres or memory)", c.Store.Backend))
	}

	if c.Auth.JWTExpirationHours < 1 {
		errs = append(errs, fmt.Errorf("config error: 'auth.jwt_expiration_hours' must be at least 1"))
	}

	return errors.Join(errs...)
}

// LLMClientConfig returns the Gemini client configuration.
func (c *Config) LLMClientConfig() *llm.Config {
	cfg := llm.DefaultGeminiConfig()
	cfg = cfg.WithModel(llm.TierLite, c.LLM.Models.Lite)
	cfg = cfg.WithModel(llm.TierStandard, c.LLM.Models.Standard)
	cfg = cfg.WithModel(llm.TierAdvanced, c.LLM.Models.Advanced)
	return cfg
}

// Offline reports whether no Gemini key is configured.
func (c *Config) Offline() bool {
	return strings.TrimSpace(c.LLM.APIKey) == ""
}

// DashboardEnabled reports whether interviewer login is configured.
func (c *Config) DashboardEnabled() bool {
	return c.Auth.JWTSecret != "" && c.Auth.InterviewerPasswordHash != ""
}

// JWT returns the token configuration for the interviewer dashboard.
func (c *Config) JWT() (*JWTConfig, error) {
	return NewJWTConfig(c.Auth.JWTSecret, c.Auth.JWTExpirationHours)
}

// Password returns the password hashing configuration.
func (c *Config) Password() (*PasswordConfig, error) {
	return NewPasswordConfig(c.Auth.BcryptCost, c.Auth.Pepper)
}
