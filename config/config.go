package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// The configuration for primon.
//
// Values are read from the yaml config file first and then overridden by
// PRIMON_* environment variables.
type Config struct {
	// Command prefix characters. Every character is a valid prefix on its own.
	Handler string `yaml:"handler" env:"PRIMON_HANDLER" jsonschema:"description=Command prefix characters, each one is a prefix"`
	// Comma separated phone numbers or jids allowed to run commands.
	Sudo     string `yaml:"sudo" env:"PRIMON_SUDO" jsonschema:"description=Comma separated sudo identities"`
	Language string `yaml:"language" env:"PRIMON_LANGUAGE" jsonschema:"enum=en,enum=tr"`
	Workers  int    `yaml:"workers" env:"PRIMON_WORKERS" jsonschema:"minimum=1"`

	Session SessionConfig `yaml:"session"`
	Storage StorageConfig `yaml:"storage"`
	Media   MediaConfig   `yaml:"media"`
	Logging LoggingConfig `yaml:"logging"`
}

type SessionConfig struct {
	// sqlite file holding the paired device credentials.
	StorePath string `yaml:"store_path" env:"PRIMON_SESSION_STORE_PATH"`
	// Files removed together with the credentials on logout or bad session.
	EraseGlobs []string `yaml:"erase_globs" env:"PRIMON_SESSION_ERASE_GLOBS"`
	// A session open for longer than this resets the restart backoff.
	StableAfter time.Duration `yaml:"stable_after" env:"PRIMON_SESSION_STABLE_AFTER"`
	Backoff     BackoffConfig `yaml:"backoff"`
}

type BackoffConfig struct {
	// Zero restarts immediately after every recoverable disconnect.
	Initial    time.Duration `yaml:"initial" env:"PRIMON_SESSION_BACKOFF_INITIAL"`
	Max        time.Duration `yaml:"max" env:"PRIMON_SESSION_BACKOFF_MAX"`
	Multiplier float64       `yaml:"multiplier" env:"PRIMON_SESSION_BACKOFF_MULTIPLIER"`
}

type StorageConfig struct {
	// sqlite file holding greeting templates.
	DSN string `yaml:"dsn" env:"PRIMON_STORAGE_DSN"`
}

type MediaConfig struct {
	// Scratch directory for downloaded videos.
	Dir             string        `yaml:"dir" env:"PRIMON_MEDIA_DIR"`
	Timeout         time.Duration `yaml:"timeout" env:"PRIMON_MEDIA_TIMEOUT"`
	MaxBytes        int64         `yaml:"max_bytes" env:"PRIMON_MEDIA_MAX_BYTES"`
	CleanupSchedule string        `yaml:"cleanup_schedule" env:"PRIMON_MEDIA_CLEANUP_SCHEDULE"`
	MaxAge          time.Duration `yaml:"max_age" env:"PRIMON_MEDIA_MAX_AGE"`
}

func BootstrapConfig() Config {
	return Config{
		Handler:  ".",
		Sudo:     "",
		Language: "en",
		Workers:  64,
		Session: SessionConfig{
			StorePath:   "session.db",
			EraseGlobs:  []string{"session.db-*"},
			StableAfter: time.Minute,
			Backoff: BackoffConfig{
				Initial:    time.Second,
				Max:        time.Minute,
				Multiplier: 2,
			},
		},
		Storage: StorageConfig{
			DSN: "primon.db",
		},
		Media: MediaConfig{
			Dir:             "media",
			Timeout:         60 * time.Second,
			MaxBytes:        64 << 20,
			CleanupSchedule: "@every 10m",
			MaxAge:          time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig reads the workspace config file. A missing file is not an
// error: the bootstrap defaults plus the environment are used instead.
func LoadConfig() (c Config, err error) {
	configPath, err := GetWorkspaceConfigPath()
	if err != nil {
		err = fmt.Errorf("failed to get config path: %w", err)
		return
	}

	return LoadConfigFrom(configPath)
}

func LoadConfigFrom(configPath string) (c Config, err error) {
	c = BootstrapConfig()

	content, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		err = nil
	case err != nil:
		err = fmt.Errorf("failed to read config file: %w", err)
		return
	default:
		err = yaml.Unmarshal(content, &c)
		if err != nil {
			err = fmt.Errorf("failed to unmarshal config file: %w", err)
			return
		}
	}

	err = env.Parse(&c)
	if err != nil {
		err = fmt.Errorf("failed to parse environment: %w", err)
		return
	}

	c.resolvePaths(filepath.Dir(configPath))

	err = c.Validate()
	return
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Handler) == "" {
		return fmt.Errorf("handler must contain at least one prefix character")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.Session.StorePath == "" {
		return fmt.Errorf("session.store_path is required")
	}
	if c.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is required")
	}
	if c.Session.Backoff.Initial < 0 || c.Session.Backoff.Max < 0 {
		return fmt.Errorf("session.backoff intervals must not be negative")
	}
	if c.Session.Backoff.Multiplier != 0 && c.Session.Backoff.Multiplier < 1 {
		return fmt.Errorf("session.backoff.multiplier must be >= 1")
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// relative paths in the config are relative to the workspace directory
func (c *Config) resolvePaths(base string) {
	c.Session.StorePath = resolve(base, c.Session.StorePath)
	for i, g := range c.Session.EraseGlobs {
		c.Session.EraseGlobs[i] = resolve(base, g)
	}
	c.Storage.DSN = resolve(base, c.Storage.DSN)
	c.Media.Dir = resolve(base, c.Media.Dir)
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) || strings.HasPrefix(p, "file:") || p == ":memory:" {
		return p
	}
	return filepath.Join(base, p)
}
