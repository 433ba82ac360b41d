// Package config loads twin settings from a config file, TWIN_* environment
// variables and a local .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. TWIN_DB_PATH.
const EnvPrefix = "TWIN"

// Config is the full twin configuration.
type Config struct {
	DB            DBConfig            `mapstructure:"db"`
	Inference     InferenceConfig     `mapstructure:"inference"`
	Embedding     EmbeddingConfig     `mapstructure:"embedding"`
	Working       WorkingConfig       `mapstructure:"working"`
	Context       ContextConfig       `mapstructure:"context"`
	Personality   PersonalityConfig   `mapstructure:"personality"`
	Memory        MemoryConfig        `mapstructure:"memory"`
	Consolidation ConsolidationConfig `mapstructure:"consolidation"`
	Log           LogConfig           `mapstructure:"log"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type InferenceConfig struct {
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	MaxTokens int    `mapstructure:"max_tokens"`
	Timeout   string `mapstructure:"timeout"`
}

type EmbeddingConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`
	Dims     int    `mapstructure:"dims"`
}

type WorkingConfig struct {
	MaxTurns int    `mapstructure:"max_turns"`
	TTL      string `mapstructure:"ttl"`
}

type ContextConfig struct {
	MaxTokens     int     `mapstructure:"max_tokens"`
	MemoryLimit   int     `mapstructure:"memory_limit"`
	RecentTurns   int     `mapstructure:"recent_turns"`
	MinSimilarity float64 `mapstructure:"min_similarity"`
}

type PersonalityConfig struct {
	File     string `mapstructure:"file"`
	Location string `mapstructure:"location"`
}

// MemoryConfig decides which turns become episodic memories.
type MemoryConfig struct {
	Importance   float64 `mapstructure:"importance"`
	MinSentiment float64 `mapstructure:"min_sentiment"`
}

type ConsolidationConfig struct {
	Schedule string `mapstructure:"schedule"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Dir returns the twin's home directory, ~/.my-twin.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".my-twin"
	}
	return filepath.Join(home, ".my-twin")
}

// Load reads configuration. An explicit path must exist; otherwise
// config.{yaml,toml,json} in Dir() is used when present. Environment
// variables override the file, and .env in the working directory is loaded
// into the environment first without replacing variables already set.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(Dir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	cfg.DB.Path = expandHome(cfg.DB.Path)
	cfg.Personality.File = expandHome(cfg.Personality.File)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.path", filepath.Join(Dir(), "twin.db"))

	v.SetDefault("inference.provider", "anthropic")
	v.SetDefault("inference.model", "")
	v.SetDefault("inference.base_url", "")
	v.SetDefault("inference.api_key", "")
	v.SetDefault("inference.max_tokens", 1000)
	v.SetDefault("inference.timeout", "60s")

	v.SetDefault("embedding.provider", "hash")
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.dims", 0)

	v.SetDefault("working.max_turns", 50)
	v.SetDefault("working.ttl", "24h")

	v.SetDefault("context.max_tokens", 4000)
	v.SetDefault("context.memory_limit", 5)
	v.SetDefault("context.recent_turns", 5)
	v.SetDefault("context.min_similarity", 0.0)

	v.SetDefault("personality.file", "")
	v.SetDefault("personality.location", "neutral")

	v.SetDefault("memory.importance", 0.7)
	v.SetDefault("memory.min_sentiment", 0.5)

	v.SetDefault("consolidation.schedule", "@every 5m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

func validate(cfg *Config) error {
	var errs []error

	switch strings.ToLower(cfg.Inference.Provider) {
	case "anthropic", "claude", "openai", "ollama":
	default:
		errs = append(errs, fmt.Errorf("inference.provider: unsupported %q", cfg.Inference.Provider))
	}
	switch strings.ToLower(cfg.Embedding.Provider) {
	case "", "hash", "ollama", "openai":
	default:
		errs = append(errs, fmt.Errorf("embedding.provider: unsupported %q", cfg.Embedding.Provider))
	}
	if cfg.DB.Path == "" {
		errs = append(errs, errors.New("db.path: required"))
	}
	if cfg.Working.MaxTurns <= 0 {
		errs = append(errs, fmt.Errorf("working.max_turns: must be positive, got %d", cfg.Working.MaxTurns))
	}
	if _, err := ParseDuration(cfg.Working.TTL); err != nil {
		errs = append(errs, fmt.Errorf("working.ttl: %w", err))
	}
	if _, err := ParseDuration(cfg.Inference.Timeout); err != nil {
		errs = append(errs, fmt.Errorf("inference.timeout: %w", err))
	}
	if cfg.Context.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("context.max_tokens: must be positive, got %d", cfg.Context.MaxTokens))
	}
	if cfg.Context.MemoryLimit < 0 || cfg.Context.RecentTurns < 0 {
		errs = append(errs, errors.New("context.memory_limit and context.recent_turns must not be negative"))
	}
	if cfg.Memory.Importance < 0 || cfg.Memory.Importance > 1 {
		errs = append(errs, fmt.Errorf("memory.importance: must be in [0,1], got %g", cfg.Memory.Importance))
	}
	if _, err := ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// WorkingTTL returns the parsed working-memory TTL.
func (c *Config) WorkingTTL() time.Duration {
	d, _ := ParseDuration(c.Working.TTL)
	return d
}

// InferenceTimeout returns the parsed per-call inference timeout.
func (c *Config) InferenceTimeout() time.Duration {
	d, _ := ParseDuration(c.Inference.Timeout)
	return d
}

var shortDuration = regexp.MustCompile(`^(\d+)([dhms])$`)

// ParseDuration accepts a count with a d, h, m or s suffix ("7d", "24h")
// as well as any Go duration string ("1h30m").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if m := shortDuration.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n == 0 {
			return 0, fmt.Errorf("invalid duration %q (use e.g. 7d, 24h, 30m, 60s)", s)
		}
		switch m[2] {
		case "d":
			return time.Duration(n) * 24 * time.Hour, nil
		case "h":
			return time.Duration(n) * time.Hour, nil
		case "m":
			return time.Duration(n) * time.Minute, nil
		default:
			return time.Duration(n) * time.Second, nil
		}
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid duration %q (use e.g. 7d, 24h, 30m, 60s)", s)
	}
	return d, nil
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown level %q", s)
}

// Logger builds a stderr logger for the configured level and format.
func (c *Config) Logger() *slog.Logger {
	level, _ := ParseLevel(c.Log.Level)
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if strings.EqualFold(c.Log.Format, "json") {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(h)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
