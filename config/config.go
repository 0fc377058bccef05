// Package config manages application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// File locations
	InputList string `json:"input_list"`
	DestDir   string `json:"dest_dir"`
	StateFile string `json:"state_file"`

	// TopN caps how many listed videos are processed.
	// "all", "0", and "-1" mean unlimited; a positive integer means
	// "the first N".
	TopN string `json:"top_n"`

	// yt-dlp settings
	YtdlpPath          string        `json:"ytdlp_path"`
	YtdlpTimeout       time.Duration `json:"ytdlp_timeout"`
	SubLangs           []string      `json:"sub_langs"`
	CookieFile         string        `json:"cookie_file"`
	CookiesFromBrowser string        `json:"cookies_from_browser"`
	RateLimit          string        `json:"rate_limit"`

	// RequestsPerSecond paces successive yt-dlp invocations.
	RequestsPerSecond float64 `json:"requests_per_second"`

	// Text output settings
	WriteMetadataJSON   bool   `json:"write_metadata_json"`
	RemoveInlineFillers bool   `json:"remove_inline_fillers"`
	Fillers             string `json:"fillers"`
	FillersFile         string `json:"fillers_file"`

	// APIKey enables the YouTube Data API lister when set.
	APIKey string `json:"api_key"`

	// Retry settings
	MaxRetries        int           `json:"max_retries"`
	InitialBackoff    time.Duration `json:"initial_backoff"`
	MaxBackoff        time.Duration `json:"max_backoff"`
	BackoffMultiplier float64       `json:"backoff_multiplier"`
}

// DefaultConfig returns configuration with safe defaults.
func DefaultConfig() *Config {
	return &Config{
		InputList:         "video_list.txt",
		DestDir:           "captions",
		TopN:              "all",
		YtdlpPath:         "yt-dlp",
		YtdlpTimeout:      10 * time.Minute,
		SubLangs:          []string{"en", "en-*"},
		RequestsPerSecond: 0.5,
		WriteMetadataJSON: true,
		MaxRetries:        3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// Load loads configuration from a .env file, environment variables, a
// JSON config file, and defaults.
// Priority: env vars > config file > defaults.
func Load() (*Config, error) {
	// Optional .env support; absence is not an error.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if err := cfg.loadFromFile(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if cfg.StateFile == "" {
		cfg.StateFile = filepath.Join(cfg.DestDir, ".captext-state.json")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile attempts to load config from captext.json in the current
// directory or the user config directory.
func (c *Config) loadFromFile() error {
	paths := []string{
		"captext.json",
		filepath.Join(os.Getenv("HOME"), ".config", "captext", "captext.json"),
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		return nil
	}
	return os.ErrNotExist
}

// loadFromEnv overrides config with CAPTEXT_* environment variables.
func (c *Config) loadFromEnv() {
	if v := os.Getenv("CAPTEXT_INPUT_LIST"); v != "" {
		c.InputList = v
	}
	if v := os.Getenv("CAPTEXT_DEST_DIR"); v != "" {
		c.DestDir = v
	}
	if v := os.Getenv("CAPTEXT_STATE_FILE"); v != "" {
		c.StateFile = v
	}
	if v := os.Getenv("CAPTEXT_TOP_N"); v != "" {
		c.TopN = v
	}
	if v := os.Getenv("CAPTEXT_YTDLP_PATH"); v != "" {
		c.YtdlpPath = v
	}
	if v := os.Getenv("CAPTEXT_YTDLP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.YtdlpTimeout = d
		}
	}
	if v := os.Getenv("CAPTEXT_SUB_LANGS"); v != "" {
		c.SubLangs = splitCSV(v)
	}
	if v := os.Getenv("CAPTEXT_COOKIE_FILE"); v != "" {
		c.CookieFile = v
	}
	if v := os.Getenv("CAPTEXT_COOKIES_FROM_BROWSER"); v != "" {
		c.CookiesFromBrowser = v
	}
	if v := os.Getenv("CAPTEXT_RATE_LIMIT"); v != "" {
		c.RateLimit = v
	}
	if v := os.Getenv("CAPTEXT_REQUESTS_PER_SECOND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RequestsPerSecond = f
		}
	}
	if v := os.Getenv("CAPTEXT_WRITE_METADATA_JSON"); v != "" {
		c.WriteMetadataJSON = parseBool(v)
	}
	if v := os.Getenv("CAPTEXT_REMOVE_INLINE_FILLERS"); v != "" {
		c.RemoveInlineFillers = parseBool(v)
	}
	if v := os.Getenv("CAPTEXT_FILLERS"); v != "" {
		c.Fillers = v
	}
	if v := os.Getenv("CAPTEXT_FILLERS_FILE"); v != "" {
		c.FillersFile = v
	}
	if v := os.Getenv("CAPTEXT_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("CAPTEXT_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxRetries = n
		}
	}
	if v := os.Getenv("CAPTEXT_INITIAL_BACKOFF"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.InitialBackoff = d
		}
	}
	if v := os.Getenv("CAPTEXT_MAX_BACKOFF"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.MaxBackoff = d
		}
	}
	if v := os.Getenv("CAPTEXT_BACKOFF_MULTIPLIER"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.BackoffMultiplier = f
		}
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.InputList == "" {
		return fmt.Errorf("input_list must not be empty")
	}
	if c.DestDir == "" {
		return fmt.Errorf("dest_dir must not be empty")
	}
	if _, err := c.TopNLimit(); err != nil {
		return err
	}
	if c.YtdlpTimeout <= 0 {
		return fmt.Errorf("ytdlp_timeout must be positive")
	}
	if c.RateLimit != "" {
		if _, err := ParseRateLimit(c.RateLimit); err != nil {
			return err
		}
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must be non-negative")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	if c.InitialBackoff <= 0 {
		return fmt.Errorf("initial_backoff must be positive")
	}
	if c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("max_backoff must be >= initial_backoff")
	}
	if c.BackoffMultiplier <= 1 {
		return fmt.Errorf("backoff_multiplier must be > 1")
	}
	return nil
}

// TopNLimit resolves the TopN setting into a numeric cap.
// 0 means unlimited.
func (c *Config) TopNLimit() (int, error) {
	v := strings.ToLower(strings.TrimSpace(c.TopN))
	switch v {
	case "", "all", "0", "-1":
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("top_n must be a positive integer, 0, -1, or %q (got %q)", "all", c.TopN)
	}
	return n, nil
}

var rateLimitRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)([KMG]?)$`)

// ParseRateLimit parses a human-friendly rate like "500K" or "1M" into
// bytes per second.
func ParseRateLimit(value string) (int64, error) {
	m := rateLimitRe.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(value)))
	if m == nil {
		return 0, fmt.Errorf("rate_limit must look like 500K or 1M (got %q)", value)
	}
	number, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("rate_limit must look like 500K or 1M (got %q)", value)
	}
	factor := 1.0
	switch m[2] {
	case "K":
		factor = 1024
	case "M":
		factor = 1024 * 1024
	case "G":
		factor = 1024 * 1024 * 1024
	}
	return int64(number * factor), nil
}

func splitCSV(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
