package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const envPrefix = "SALESDASH_"

const (
	SourceFile   = "file"
	SourceSheets = "sheets"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Data      DataConfig      `koanf:"data"`
	Logger    LoggerConfig    `koanf:"logger"`
	Security  SecurityConfig  `koanf:"security"`
	Dashboard DashboardConfig `koanf:"dashboard"`

	// File is the config file that was read, if any.
	File string `koanf:"-"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DataConfig struct {
	Source   string `koanf:"source"`
	File     string `koanf:"file"`
	Sheet    string `koanf:"sheet"`
	Strict   bool   `koanf:"strict"`
	Watch    bool   `koanf:"watch"`
	CacheDir string `koanf:"cache_dir"`

	SpreadsheetID   string `koanf:"spreadsheet_id"`
	Range           string `koanf:"range"`
	CredentialsFile string `koanf:"credentials_file"`
}

type LoggerConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type SecurityConfig struct {
	EnableRateLimit bool     `koanf:"rate_limit_enabled"`
	RateLimitRPS    int      `koanf:"rate_limit_rps"`
	RateLimitBurst  int      `koanf:"rate_limit_burst"`
	AllowedOrigins  []string `koanf:"allowed_origins"`
	TrustedProxies  []string `koanf:"trusted_proxies"`
}

type DashboardConfig struct {
	TopN      int           `koanf:"top_n"`
	CacheSize int           `koanf:"cache_size"`
	CacheTTL  time.Duration `koanf:"cache_ttl"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.host":             "localhost",
		"server.port":             8084,
		"server.read_timeout":     10 * time.Second,
		// SSE streams stay open, so writes are not bounded by default.
		"server.write_timeout":    time.Duration(0),
		"server.idle_timeout":     60 * time.Second,
		"server.shutdown_timeout": 30 * time.Second,

		"data.source":    SourceFile,
		"data.file":      "data.xlsx",
		"data.strict":    false,
		"data.watch":     false,
		"data.cache_dir": "",
		"data.range":     "A:H",

		"logger.level":  "info",
		"logger.format": "json",

		"security.rate_limit_enabled": true,
		"security.rate_limit_rps":     100,
		"security.rate_limit_burst":   10,
		"security.allowed_origins":    []string{"http://localhost:8084"},
		"security.trusted_proxies":    []string{"127.0.0.1"},

		"dashboard.top_n":      5,
		"dashboard.cache_size": 256,
		"dashboard.cache_ttl":  5 * time.Minute,
	}
}

// flagKeys maps command line flag names onto config keys.
var flagKeys = map[string]string{
	"host":        "server.host",
	"port":        "server.port",
	"source":      "data.source",
	"data":        "data.file",
	"sheet":       "data.sheet",
	"strict":      "data.strict",
	"watch":       "data.watch",
	"cache-dir":   "data.cache_dir",
	"spreadsheet": "data.spreadsheet_id",
	"range":       "data.range",
	"credentials": "data.credentials_file",
	"log-level":   "logger.level",
	"log-format":  "logger.format",
	"top":         "dashboard.top_n",
}

func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"salesdash.yaml", "salesdash.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// envKey turns SALESDASH_SERVER_READ_TIMEOUT into server.read_timeout.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.Replace(key, "_", ".", 1)
}

// listKeys are read from the environment as comma-separated lists.
var listKeys = map[string]bool{
	"security.allowed_origins": true,
	"security.trusted_proxies": true,
}

func envValue(s, v string) (string, interface{}) {
	key := envKey(s)
	if !listKeys[key] {
		return key, v
	}
	var items []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return key, items
}

// Load builds the configuration from defaults, the config file, SALESDASH_
// environment variables and explicitly set flags, in increasing precedence.
// flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(envPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server write timeout must not be negative")
	}

	switch c.Data.Source {
	case SourceFile:
		if strings.TrimSpace(c.Data.File) == "" {
			return fmt.Errorf("data file path cannot be empty")
		}
	case SourceSheets:
		if c.Data.SpreadsheetID == "" {
			return fmt.Errorf("spreadsheet id is required for the sheets source")
		}
		if c.Data.Watch {
			return fmt.Errorf("watch is only supported for the file source")
		}
	default:
		return fmt.Errorf("invalid data source %q, must be one of: %s, %s", c.Data.Source, SourceFile, SourceSheets)
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !slices.Contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	if c.Dashboard.TopN <= 0 {
		return fmt.Errorf("dashboard top n must be positive, got %d", c.Dashboard.TopN)
	}

	return nil
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
