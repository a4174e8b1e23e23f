package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config is the complete analyzer configuration.
type Config struct {
	Server     ServerConfig     `toml:"server" yaml:"server"`
	Logging    LoggingConfig    `toml:"logging" yaml:"logging"`
	Limits     LimitsConfig     `toml:"limits" yaml:"limits"`
	Vocabulary VocabularyConfig `toml:"vocabulary" yaml:"vocabulary"`
	Thresholds ThresholdsConfig `toml:"thresholds" yaml:"thresholds"`
	Sheets     SheetsConfig     `toml:"sheets" yaml:"sheets"`
	Storage    StorageConfig    `toml:"storage" yaml:"storage"`
	Narrator   NarratorConfig   `toml:"narrator" yaml:"narrator"`
	Tracing    TracingConfig    `toml:"tracing" yaml:"tracing"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port         string  `toml:"port" yaml:"port"`
	ReadTimeout  string  `toml:"read_timeout" yaml:"read_timeout"`
	WriteTimeout string  `toml:"write_timeout" yaml:"write_timeout"`
	RateLimit    float64 `toml:"rate_limit" yaml:"rate_limit"` // uploads per second
	RateBurst    int     `toml:"rate_burst" yaml:"rate_burst"`
	QueueSize    int     `toml:"queue_size" yaml:"queue_size"`
	Workers      int     `toml:"workers" yaml:"workers"`
	SessionTTL   string  `toml:"session_ttl" yaml:"session_ttl"`
}

// GetReadTimeout parses the read timeout, defaulting to 15s.
func (c *ServerConfig) GetReadTimeout() time.Duration {
	return parseDuration(c.ReadTimeout, 15*time.Second)
}

// GetWriteTimeout parses the write timeout, defaulting to 90s.
func (c *ServerConfig) GetWriteTimeout() time.Duration {
	return parseDuration(c.WriteTimeout, 90*time.Second)
}

// GetSessionTTL parses how long an idle session is kept, defaulting to 1h.
func (c *ServerConfig) GetSessionTTL() time.Duration {
	return parseDuration(c.SessionTTL, time.Hour)
}

// LoggingConfig configures zerolog.
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"` // console or json
}

// LimitsConfig bounds a single analysis.
type LimitsConfig struct {
	MaxFileMB int    `toml:"max_file_mb" yaml:"max_file_mb"`
	MaxRows   int    `toml:"max_rows" yaml:"max_rows"`
	Timeout   string `toml:"timeout" yaml:"timeout"`
}

// MaxBytes returns the file size cap in bytes.
func (c *LimitsConfig) MaxBytes() int64 {
	return int64(c.MaxFileMB) * 1024 * 1024
}

// GetTimeout parses the soft analysis timeout, defaulting to 60s.
func (c *LimitsConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 60*time.Second)
}

// VocabularyConfig holds every keyword list used for column inference and
// row classification. Matching is case-insensitive substring containment.
type VocabularyConfig struct {
	Timestamp  []string `toml:"timestamp" yaml:"timestamp"`
	Amount     []string `toml:"amount" yaml:"amount"`
	Type       []string `toml:"type" yaml:"type"`
	Asset      []string `toml:"asset" yaml:"asset"`
	PnL        []string `toml:"pnl" yaml:"pnl"`
	Exclusions []string `toml:"exclusions" yaml:"exclusions"`
	Trading    []string `toml:"trading" yaml:"trading"`
}

// WinRateThresholds are percentages.
type WinRateThresholds struct {
	Excellent float64 `toml:"excellent" yaml:"excellent"`
	Good      float64 `toml:"good" yaml:"good"`
	Poor      float64 `toml:"poor" yaml:"poor"`
}

// PnLThresholds mark a portfolio total as significant.
type PnLThresholds struct {
	SignificantProfit float64 `toml:"significant_profit" yaml:"significant_profit"`
	SignificantLoss   float64 `toml:"significant_loss" yaml:"significant_loss"`
}

// ThresholdsConfig drives alerts and recommendations.
type ThresholdsConfig struct {
	WinRate           WinRateThresholds `toml:"win_rate" yaml:"win_rate"`
	PnL               PnLThresholds     `toml:"pnl" yaml:"pnl"`
	DrawdownReview    float64           `toml:"drawdown_review" yaml:"drawdown_review"`
	InactivityGapDays int               `toml:"inactivity_gap_days" yaml:"inactivity_gap_days"`
	MinRows           int               `toml:"min_rows" yaml:"min_rows"`
}

// SheetsConfig selects which sheets of a workbook are analysed.
type SheetsConfig struct {
	Include      []string `toml:"include" yaml:"include"`
	Exclude      []string `toml:"exclude" yaml:"exclude"`
	Patterns     []string `toml:"patterns" yaml:"patterns"`
	AccountTypes []string `toml:"account_types" yaml:"account_types"`
	AutoDetect   bool     `toml:"auto_detect" yaml:"auto_detect"`
}

// StorageConfig locates exports in Cloud Storage.
type StorageConfig struct {
	Bucket string `toml:"bucket" yaml:"bucket"`
	Prefix string `toml:"prefix" yaml:"prefix"`
}

// NarratorConfig configures optional Gemini commentary.
type NarratorConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Model   string `toml:"model" yaml:"model"`
	APIKey  string `toml:"api_key" yaml:"api_key"`
	Timeout string `toml:"timeout" yaml:"timeout"`
}

// GetTimeout parses the narrator timeout, defaulting to 30s.
func (c *NarratorConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// TracingConfig enables the stdout OpenTelemetry exporter.
type TracingConfig struct {
	Enabled     bool   `toml:"enabled" yaml:"enabled"`
	ServiceName string `toml:"service_name" yaml:"service_name"`
	PrettyPrint bool   `toml:"pretty_print" yaml:"pretty_print"`
}

// NewDefaultConfig returns the built-in configuration.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  "15s",
			WriteTimeout: "90s",
			RateLimit:    2,
			RateBurst:    5,
			QueueSize:    100,
			Workers:      5,
			SessionTTL:   "1h",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Limits: LimitsConfig{
			MaxFileMB: 50,
			MaxRows:   1_000_000,
			Timeout:   "60s",
		},
		Vocabulary: DefaultVocabulary(),
		Thresholds: ThresholdsConfig{
			WinRate:           WinRateThresholds{Excellent: 70, Good: 50, Poor: 40},
			PnL:               PnLThresholds{SignificantProfit: 1000, SignificantLoss: -500},
			DrawdownReview:    500,
			InactivityGapDays: 3,
			MinRows:           10,
		},
		Narrator: NarratorConfig{
			Model:   "gemini-2.5-flash",
			Timeout: "30s",
		},
		Tracing: TracingConfig{
			ServiceName: "trading-analyzer",
		},
	}
}

// DefaultVocabulary returns the built-in keyword lists.
func DefaultVocabulary() VocabularyConfig {
	return VocabularyConfig{
		Timestamp: []string{"time", "date", "utc", "timestamp"},
		Amount:    []string{"amount", "pnl", "balance", "profit", "loss", "realized", "unrealized", "total", "net"},
		Type:      []string{"type", "side", "action", "operation"},
		Asset:     []string{"asset", "symbol", "coin", "currency", "pair", "instrument"},
		PnL:       []string{"realized_pnl", "realized pnl", "pnl", "profit_loss", "net_profit", "amount"},
		Exclusions: []string{
			"transfer", "deposit", "withdrawal", "funding", "commission", "fee",
			"bonus", "rebate", "cashback", "interest", "staking", "reward", "airdrop",
			"transferencia", "depósito", "deposito", "retiro", "comisión", "comision",
			"financiación", "financiacion", "bono", "reembolso", "interés", "interes", "recompensa",
		},
		Trading: []string{"realized", "pnl", "fee", "trade", "buy", "sell", "long", "short", "open", "close"},
	}
}

// Load builds the configuration from defaults, then each existing file in
// order, then environment overrides. Files ending in .yaml or .yml are read
// as YAML, everything else as TOML.
func Load(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("Load: reading config file %s: %w", path, err)
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, config)
		default:
			err = toml.Unmarshal(data, config)
		}
		if err != nil {
			return nil, fmt.Errorf("Load: parsing config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("Load: %w", err)
	}

	return config, nil
}

// applyEnvOverrides applies ANALYZER_* environment variables.
func applyEnvOverrides(config *Config) {
	if port := os.Getenv("ANALYZER_PORT"); port != "" {
		config.Server.Port = port
	}

	if level := os.Getenv("ANALYZER_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if mb := os.Getenv("ANALYZER_MAX_FILE_MB"); mb != "" {
		if v, err := strconv.Atoi(mb); err == nil {
			config.Limits.MaxFileMB = v
		}
	}

	if rows := os.Getenv("ANALYZER_MAX_ROWS"); rows != "" {
		if v, err := strconv.Atoi(rows); err == nil {
			config.Limits.MaxRows = v
		}
	}

	if timeout := os.Getenv("ANALYZER_TIMEOUT"); timeout != "" {
		config.Limits.Timeout = timeout
	}

	if bucket := os.Getenv("ANALYZER_GCS_BUCKET"); bucket != "" {
		config.Storage.Bucket = bucket
	} else if bucket := os.Getenv("GCS_BUCKET"); bucket != "" {
		config.Storage.Bucket = bucket
	}

	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Narrator.APIKey = key
	}

	if v := os.Getenv("ANALYZER_NARRATOR"); v != "" {
		config.Narrator.Enabled = parseBool(v)
	}

	if v := os.Getenv("ANALYZER_TRACING"); v != "" {
		config.Tracing.Enabled = parseBool(v)
	}
}

// Validate checks that limits and thresholds are usable.
func (c *Config) Validate() error {
	if c.Limits.MaxFileMB <= 0 {
		return fmt.Errorf("limits.max_file_mb must be positive, got %d", c.Limits.MaxFileMB)
	}
	if c.Limits.MaxRows <= 0 {
		return fmt.Errorf("limits.max_rows must be positive, got %d", c.Limits.MaxRows)
	}
	if _, err := time.ParseDuration(c.Limits.Timeout); err != nil {
		return fmt.Errorf("limits.timeout: %w", err)
	}
	wr := c.Thresholds.WinRate
	if !(wr.Poor <= wr.Good && wr.Good <= wr.Excellent) {
		return fmt.Errorf("thresholds.win_rate must satisfy poor <= good <= excellent")
	}
	if c.Thresholds.PnL.SignificantLoss > 0 {
		return fmt.Errorf("thresholds.pnl.significant_loss must not be positive")
	}
	if len(c.Vocabulary.PnL) == 0 && len(c.Vocabulary.Amount) == 0 {
		return fmt.Errorf("vocabulary needs pnl or amount keywords")
	}
	return nil
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parseBool(s string) bool {
	v, err := strconv.ParseBool(s)
	return err == nil && v
}
