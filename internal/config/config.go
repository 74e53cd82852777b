// Package config loads HypeShelf settings from layered sources.
//
// PRECEDENCE (lowest to highest):
//  1. Built-in defaults (defaultConfig)
//  2. Optional YAML file: CONFIG_PATH, then hypeshelf.yaml, then
//     /etc/hypeshelf/config.yaml
//  3. Environment variables prefixed with HYPESHELF_. A double underscore
//     separates sections: HYPESHELF_AUTH__TOKEN_SECRET -> auth.token_secret
//
// List values such as cors.allowed_origins accept a comma separated string
// when they come from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix marks environment variables that belong to HypeShelf.
	EnvPrefix = "HYPESHELF_"
	// ConfigPathEnvVar names an explicit YAML file to load.
	ConfigPathEnvVar = "CONFIG_PATH"
)

// DefaultConfigPaths are searched in order when no explicit path is given.
var DefaultConfigPaths = []string{
	"hypeshelf.yaml",
	"hypeshelf.yml",
	"/etc/hypeshelf/config.yaml",
}

// Config is the complete runtime configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Auth      AuthConfig      `koanf:"auth"`
	Webhook   WebhookConfig   `koanf:"webhook"`
	Seed      SeedConfig      `koanf:"seed"`
	Feed      FeedConfig      `koanf:"feed"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	CORS      CORSConfig      `koanf:"cors"`
	Logging   LoggingConfig   `koanf:"logging"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path string `koanf:"path"`
}

// AuthConfig holds the identity provider's session token settings.
// TokenSecret is the HS256 key shared with the provider.
type AuthConfig struct {
	TokenSecret string `koanf:"token_secret"`
	Issuer      string `koanf:"issuer"`
}

// WebhookConfig holds the "whsec_" signing secret for user sync events.
// Empty means the webhook endpoint refuses every delivery.
type WebhookConfig struct {
	Secret string `koanf:"secret"`
}

// SeedConfig holds the bcrypt hash of the seed endpoint secret. Empty
// disables GET /seed.
type SeedConfig struct {
	SecretHash string `koanf:"secret_hash"`
}

type FeedConfig struct {
	CacheSize int           `koanf:"cache_size"`
	CacheTTL  time.Duration `koanf:"cache_ttl"`
}

// RateLimitConfig limits API requests per client IP. Requests <= 0 disables it.
type RateLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
}

type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "data/hypeshelf.db",
		},
		Feed: FeedConfig{
			CacheSize: 16,
			CacheTTL:  5 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Requests: 120,
			Window:   time.Minute,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration. configPath overrides the file search; pass
// "" to use CONFIG_PATH and DefaultConfigPaths. A configPath that does not
// exist is an error, a missing default file is not.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: loading defaults: %w", err)
	}

	if configPath == "" {
		configPath = findConfigFile()
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: loading %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: loading environment: %w", err)
	}

	if err := splitOrigins(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshalling: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges. It does not require secrets: commands that
// need one check for it themselves.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 || c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server timeouts must be positive"))
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Feed.CacheSize < 0 || c.Feed.CacheTTL < 0 {
		errs = append(errs, errors.New("feed cache settings must not be negative"))
	}
	if c.RateLimit.Requests > 0 && c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate_limit.window must be positive when rate limiting is enabled"))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be text or json", c.Logging.Format))
	}

	return errors.Join(errs...)
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envKey maps HYPESHELF_RATE_LIMIT__REQUESTS to rate_limit.requests.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// splitOrigins turns a comma separated environment value into a list.
func splitOrigins(k *koanf.Koanf) error {
	const path = "cors.allowed_origins"

	raw, ok := k.Get(path).(string)
	if !ok {
		return nil
	}

	origins := []string{}
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if err := k.Set(path, origins); err != nil {
		return fmt.Errorf("config: setting %s: %w", path, err)
	}
	return nil
}
