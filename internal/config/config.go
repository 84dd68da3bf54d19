// Package config loads carbonfocus settings from defaults, a YAML file in
// the carbonfocus home directory, an optional .env file and CARBONFOCUS_*
// environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/rshade/carbonfocus/internal/advisor"
	"github.com/rshade/carbonfocus/internal/cache"
	"github.com/rshade/carbonfocus/internal/climate"
	"github.com/rshade/carbonfocus/internal/greenops"
	"github.com/rshade/carbonfocus/internal/history"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Environment variables.
const (
	EnvHome           = "CARBONFOCUS_HOME"
	EnvLogLevel       = "CARBONFOCUS_LOG_LEVEL"
	EnvLogFormat      = "CARBONFOCUS_LOG_FORMAT"
	EnvLogFile        = "CARBONFOCUS_LOG_FILE"
	EnvOutputFormat   = "CARBONFOCUS_OUTPUT_FORMAT"
	EnvOutputUnit     = "CARBONFOCUS_OUTPUT_UNIT"
	EnvHistoryBackend = "CARBONFOCUS_HISTORY_BACKEND"
	EnvHistoryPath    = "CARBONFOCUS_HISTORY_PATH"
	EnvFactorsFile    = "CARBONFOCUS_FACTORS_FILE"
	EnvOffline        = "CARBONFOCUS_OFFLINE"
	EnvAdvisorBackend = "CARBONFOCUS_ADVISOR_BACKEND"
	EnvAdvisorModel   = "CARBONFOCUS_ADVISOR_MODEL"
	EnvAdvisorURL     = "CARBONFOCUS_ADVISOR_ENDPOINT"
	EnvAdvisorTimeout = "CARBONFOCUS_ADVISOR_TIMEOUT"
	EnvGeminiAPIKey   = "GEMINI_API_KEY"
	EnvServerAddr     = "CARBONFOCUS_SERVER_ADDR"
)

const (
	configDirName  = ".carbonfocus"
	configFileName = "config.yaml"
	outputTable    = "table"
	outputJSON     = "json"
	outputTypeFile = "file"
	maxPrecision   = 6
)

// Config is the complete carbonfocus configuration.
type Config struct {
	Output  OutputConfig  `yaml:"output"  json:"output"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Data    DataConfig    `yaml:"data"    json:"data"`
	Climate ClimateConfig `yaml:"climate" json:"climate"`
	Advisor AdvisorConfig `yaml:"advisor" json:"advisor"`
	Server  ServerConfig  `yaml:"server"  json:"server"`
	Goals   GoalsConfig   `yaml:"goals"   json:"goals"`

	configPath string
}

// OutputConfig controls how results are printed.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format" json:"default_format"`
	Precision     int    `yaml:"precision"      json:"precision"`
	// Unit is the display unit for carbon amounts: kg, g, t or lb.
	Unit string `yaml:"unit" json:"unit"`
}

// LoggingConfig controls log level, format and destination.
type LoggingConfig struct {
	Level  string `yaml:"level"          json:"level"`
	Format string `yaml:"format"         json:"format"`
	File   string `yaml:"file,omitempty" json:"file,omitempty"`
}

// DataConfig locates the history ledger and the optional factors file.
type DataConfig struct {
	HistoryBackend string `yaml:"history_backend"        json:"history_backend"`
	HistoryPath    string `yaml:"history_path"           json:"history_path"`
	FactorsFile    string `yaml:"factors_file,omitempty" json:"factors_file,omitempty"`
}

// ClimateConfig controls the live climate provider.
type ClimateConfig struct {
	Offline   bool              `yaml:"offline"   json:"offline"`
	Timeout   time.Duration     `yaml:"timeout"   json:"timeout"`
	Endpoints climate.Endpoints `yaml:"endpoints" json:"endpoints"`
	Cache     CacheConfig       `yaml:"cache"     json:"cache"`
}

// CacheConfig controls the climate reading cache.
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled"     json:"enabled"`
	Directory  string `yaml:"directory"   json:"directory"`
	TTLSeconds int    `yaml:"ttl_seconds" json:"ttl_seconds"`
}

// AdvisorConfig selects the language model backend.
type AdvisorConfig struct {
	Backend  string        `yaml:"backend"           json:"backend"`
	Model    string        `yaml:"model"             json:"model"`
	Endpoint string        `yaml:"endpoint"          json:"endpoint"`
	APIKey   string        `yaml:"api_key,omitempty" json:"-"`
	Timeout  time.Duration `yaml:"timeout"           json:"timeout"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr           string        `yaml:"addr"            json:"addr"`
	AllowedOrigins []string      `yaml:"allowed_origins" json:"allowed_origins"`
	ReadTimeout    time.Duration `yaml:"read_timeout"    json:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"   json:"write_timeout"`
}

// GoalsConfig holds the user's reduction goal and the default trend window.
type GoalsConfig struct {
	ReductionPercent float64 `yaml:"reduction_percent" json:"reduction_percent"`
	TrendDays        int     `yaml:"trend_days"        json:"trend_days"`
}

// HomeDir returns $CARBONFOCUS_HOME, or ~/.carbonfocus.
func HomeDir() string {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return configDirName
	}
	return filepath.Join(home, configDirName)
}

// DefaultConfigPath returns the config file inside HomeDir.
func DefaultConfigPath() string {
	return filepath.Join(HomeDir(), configFileName)
}

// Default returns the built-in configuration rooted at HomeDir.
func Default() *Config {
	home := HomeDir()
	return &Config{
		Output: OutputConfig{
			DefaultFormat: outputTable,
			Precision:     2,
			Unit:          "kg",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Data: DataConfig{
			HistoryBackend: history.BackendFile,
			HistoryPath:    filepath.Join(home, "history.json"),
		},
		Climate: ClimateConfig{
			Timeout: climate.DefaultTimeout,
			Endpoints: climate.Endpoints{
				GridURL: climate.DefaultGridURL,
				CO2URL:  climate.DefaultCO2URL,
				NewsURL: climate.DefaultNewsURL,
			},
			Cache: CacheConfig{
				Enabled:    true,
				Directory:  filepath.Join(home, "cache"),
				TTLSeconds: cache.DefaultTTLSeconds,
			},
		},
		Advisor: AdvisorConfig{
			Backend:  advisor.BackendOllama,
			Model:    advisor.DefaultOllamaModel,
			Endpoint: advisor.DefaultOllamaEndpoint,
			Timeout:  advisor.DefaultTimeout,
		},
		Server: ServerConfig{
			Addr:           "127.0.0.1:8080",
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   advisor.DefaultTimeout + 15*time.Second,
		},
		Goals: GoalsConfig{
			ReductionPercent: 20,
			TrendDays:        30,
		},
		configPath: DefaultConfigPath(),
	}
}

// New builds the layered configuration. A missing config file is not an
// error; an unreadable one is logged and skipped.
func New() *Config {
	cfg := Default()

	if err := cfg.loadFile(cfg.configPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("path", cfg.configPath).Msg("ignoring unreadable config file")
	}
	if err := loadEnvIfExists(".env"); err != nil {
		log.Warn().Err(err).Msg("ignoring unreadable .env file")
	}
	cfg.applyEnv()
	return cfg
}

// Load reads path onto the defaults and applies environment overrides.
// Unlike New, a missing or malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.configPath = path
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// loadEnvIfExists loads a dotenv file without overriding variables that
// are already set.
func loadEnvIfExists(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil //nolint:nilerr // absent .env is the common case
	}
	return godotenv.Load(path)
}

func (c *Config) applyEnv() {
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setString(&c.Logging.Level, EnvLogLevel)
	setString(&c.Logging.Format, EnvLogFormat)
	setString(&c.Logging.File, EnvLogFile)
	setString(&c.Output.DefaultFormat, EnvOutputFormat)
	setString(&c.Output.Unit, EnvOutputUnit)
	setString(&c.Data.HistoryBackend, EnvHistoryBackend)
	setString(&c.Data.HistoryPath, EnvHistoryPath)
	setString(&c.Data.FactorsFile, EnvFactorsFile)
	setString(&c.Advisor.Backend, EnvAdvisorBackend)
	setString(&c.Advisor.Model, EnvAdvisorModel)
	setString(&c.Advisor.Endpoint, EnvAdvisorURL)
	setString(&c.Advisor.APIKey, EnvGeminiAPIKey)
	setString(&c.Server.Addr, EnvServerAddr)

	if v := os.Getenv(EnvOffline); v != "" {
		if offline, err := strconv.ParseBool(v); err == nil {
			c.Climate.Offline = offline
		}
	}
	if v := os.Getenv(EnvAdvisorTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Advisor.Timeout = d
		}
	}

	s := cache.SettingsFromEnv(c.CacheSettings())
	c.Climate.Cache = CacheConfig{Enabled: s.Enabled, Directory: s.Directory, TTLSeconds: s.TTLSeconds}
}

// Path returns the file this configuration was loaded from or will be saved to.
func (c *Config) Path() string {
	return c.configPath
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	switch c.Output.DefaultFormat {
	case outputTable, outputJSON:
	default:
		add("output.default_format must be %q or %q, got %q", outputTable, outputJSON, c.Output.DefaultFormat)
	}
	if c.Output.Precision < 0 || c.Output.Precision > maxPrecision {
		add("output.precision must be between 0 and %d", maxPrecision)
	}
	if !greenops.IsRecognizedUnit(c.Output.Unit) {
		add("output.unit %q is not one of kg, g, t, lb", c.Output.Unit)
	}

	if _, err := zerolog.ParseLevel(strings.ToLower(c.Logging.Level)); err != nil {
		add("logging.level %q is not a valid level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json", "text":
	default:
		add("logging.format must be console, json or text, got %q", c.Logging.Format)
	}

	if _, err := history.ParseBackend(c.Data.HistoryBackend); err != nil {
		add("data.history_backend: %v", err)
	}
	if strings.TrimSpace(c.Data.HistoryPath) == "" {
		add("data.history_path is required")
	}

	if c.Climate.Timeout <= 0 {
		add("climate.timeout must be positive")
	}
	if c.Climate.Cache.Enabled {
		if ttl := c.Climate.Cache.TTLSeconds; ttl < cache.MinTTLSeconds || ttl > cache.MaxTTLSeconds {
			add("climate.cache.ttl_seconds: %v", cache.ErrInvalidTTL)
		}
		if strings.TrimSpace(c.Climate.Cache.Directory) == "" {
			add("climate.cache.directory is required when the cache is enabled")
		}
	}

	switch strings.ToLower(c.Advisor.Backend) {
	case advisor.BackendOllama:
	case advisor.BackendGemini:
		if c.Advisor.APIKey == "" {
			add("advisor.api_key (or %s) is required for the gemini backend", EnvGeminiAPIKey)
		}
	default:
		add("advisor.backend must be %q or %q, got %q", advisor.BackendOllama, advisor.BackendGemini, c.Advisor.Backend)
	}
	if c.Advisor.Timeout <= 0 {
		add("advisor.timeout must be positive")
	}

	if strings.TrimSpace(c.Server.Addr) == "" {
		add("server.addr is required")
	}

	if p := c.Goals.ReductionPercent; p <= 0 || p > 100 {
		add("goals.reduction_percent must be in (0, 100], got %g", p)
	}
	if c.Goals.TrendDays <= 0 {
		add("goals.trend_days must be positive")
	}

	return errors.Join(errs...)
}

// Save writes the configuration as YAML to path, or to Path() when path is
// empty. The file is private because it may hold an API key.
func (c *Config) Save(path string) error {
	if path == "" {
		path = c.configPath
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file %s: %w", path, err)
	}
	c.configPath = path
	return nil
}

// CacheSettings converts the climate cache section for cache.NewFileStore.
func (c *Config) CacheSettings() cache.Settings {
	return cache.Settings{
		Enabled:    c.Climate.Cache.Enabled,
		Directory:  c.Climate.Cache.Directory,
		TTLSeconds: c.Climate.Cache.TTLSeconds,
	}
}

// AdvisorSettings converts the advisor section for advisor.New. The Ollama
// default model is dropped for other backends so they pick their own.
func (c *Config) AdvisorSettings() advisor.Settings {
	model := c.Advisor.Model
	if !strings.EqualFold(c.Advisor.Backend, advisor.BackendOllama) && model == advisor.DefaultOllamaModel {
		model = ""
	}
	return advisor.Settings{
		Backend:  c.Advisor.Backend,
		Model:    model,
		Endpoint: c.Advisor.Endpoint,
		APIKey:   c.Advisor.APIKey,
		Timeout:  c.Advisor.Timeout,
	}
}
