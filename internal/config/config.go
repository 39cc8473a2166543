package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/stellarlinkco/wamonitor/internal/refresh"
)

const (
	DefaultMessagesFile = "data/messages.json"
	DefaultCacheTTL     = "5s"
	DefaultTimezone     = "UTC"
	DefaultRecentLimit  = 20
	DefaultTopSenders   = 10
	DefaultHost         = "127.0.0.1"
	DefaultPort         = 8501
)

const envConfigPath = "WAMONITOR_CONFIG"

type Config struct {
	MessagesFile string           `json:"messagesFile" yaml:"messagesFile" validate:"required"`
	CacheTTL     string           `json:"cacheTTL" yaml:"cacheTTL" validate:"required,duration"`
	Timezone     string           `json:"timezone" yaml:"timezone" validate:"required,timezone"`
	Refresh      refresh.Settings `json:"refresh" yaml:"refresh"`
	Feed         FeedConfig       `json:"feed" yaml:"feed"`
	Gateway      GatewayConfig    `json:"gateway" yaml:"gateway"`
	WatchFile    bool             `json:"watchFile" yaml:"watchFile"`
}

type FeedConfig struct {
	RecentLimit int `json:"recentLimit" yaml:"recentLimit" validate:"min=1,max=500"`
	TopSenders  int `json:"topSenders" yaml:"topSenders" validate:"min=1,max=100"`
}

type GatewayConfig struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port" validate:"min=1,max=65535"`
}

func DefaultConfig() *Config {
	return &Config{
		MessagesFile: DefaultMessagesFile,
		CacheTTL:     DefaultCacheTTL,
		Timezone:     DefaultTimezone,
		Refresh:      refresh.DefaultSettings(),
		Feed: FeedConfig{
			RecentLimit: DefaultRecentLimit,
			TopSenders:  DefaultTopSenders,
		},
		Gateway: GatewayConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
	}
}

// TTL is the parsed cache lifetime. Call after Validate.
func (c *Config) TTL() time.Duration {
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Gateway.Host, strconv.Itoa(c.Gateway.Port))
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d >= 0
	})
	return v
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func ConfigDir() string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, ".wamonitor")
}

// ConfigPath is WAMONITOR_CONFIG when set, else config.json in ConfigDir.
func ConfigPath() string {
	if p := os.Getenv(envConfigPath); p != "" {
		return p
	}
	return filepath.Join(ConfigDir(), "config.json")
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// LoadConfig reads .env files, the config file and WAMONITOR_* overrides,
// in that order of increasing precedence, and validates the result.
func LoadConfig() (*Config, error) {
	loadDotEnv()
	cfg := DefaultConfig()

	path := ConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if isYAML(path) {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)

	if strings.TrimSpace(cfg.MessagesFile) == "" {
		cfg.MessagesFile = DefaultMessagesFile
	}
	if cfg.CacheTTL == "" {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.Timezone == "" {
		cfg.Timezone = DefaultTimezone
	}
	if cfg.Refresh.IntervalSeconds == 0 {
		cfg.Refresh.IntervalSeconds = refresh.DefaultSettings().IntervalSeconds
	}
	if cfg.Feed.RecentLimit == 0 {
		cfg.Feed.RecentLimit = DefaultRecentLimit
	}
	if cfg.Feed.TopSenders == 0 {
		cfg.Feed.TopSenders = DefaultTopSenders
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = DefaultPort
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv never overrides variables that are already set.
func loadDotEnv() {
	for _, p := range []string{".env", filepath.Join(ConfigDir(), ".env")} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("WAMONITOR_MESSAGES_FILE"); v != "" {
		cfg.MessagesFile = v
	}
	if v := os.Getenv("WAMONITOR_CACHE_TTL"); v != "" {
		cfg.CacheTTL = v
	}
	if v := os.Getenv("WAMONITOR_TIMEZONE"); v != "" {
		cfg.Timezone = v
	}
	if v := os.Getenv("WAMONITOR_REFRESH_ENABLED"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			cfg.Refresh.Enabled = parsed
		}
	}
	if v := os.Getenv("WAMONITOR_REFRESH_INTERVAL"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Refresh.IntervalSeconds = parsed
		}
	}
	if v := os.Getenv("WAMONITOR_RECENT_LIMIT"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Feed.RecentLimit = parsed
		}
	}
	if v := os.Getenv("WAMONITOR_TOP_SENDERS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Feed.TopSenders = parsed
		}
	}
	if v := os.Getenv("WAMONITOR_HOST"); v != "" {
		cfg.Gateway.Host = v
	}
	if v := os.Getenv("WAMONITOR_PORT"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Gateway.Port = parsed
		}
	}
	if v := os.Getenv("WAMONITOR_WATCH_FILE"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			cfg.WatchFile = parsed
		}
	}
}

// SaveConfig writes cfg to ConfigPath, as YAML when the path asks for it.
func SaveConfig(cfg *Config) error {
	path := ConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}
