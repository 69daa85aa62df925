package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Notion struct {
		Token      string        `yaml:"token"`
		DatabaseID string        `yaml:"database_id"`
		BaseURL    string        `yaml:"base_url"`
		Version    string        `yaml:"version"`
		RateLimit  float64       `yaml:"rate_limit"`
		Timeout    time.Duration `yaml:"timeout"`
	} `yaml:"notion"`

	OpenLibrary struct {
		BaseURL           string        `yaml:"base_url"`
		CoversURL         string        `yaml:"covers_url"`
		UserAgent         string        `yaml:"user_agent"`
		RequestsPerSecond float64       `yaml:"requests_per_second"`
		Timeout           time.Duration `yaml:"timeout"`
		CacheTTL          time.Duration `yaml:"cache_ttl"`
	} `yaml:"openlibrary"`

	Retry struct {
		Attempts int           `yaml:"attempts"`
		Delay    time.Duration `yaml:"delay"`
	} `yaml:"retry"`

	// Properties are the Notion property labels of the book database
	Properties struct {
		Title         string `yaml:"title"`
		ISBN          string `yaml:"isbn"`
		Author        string `yaml:"author"`
		Cover         string `yaml:"cover"`
		OriginalTitle string `yaml:"original_title"`
		PublishDate   string `yaml:"publish_date"`
		Publisher     string `yaml:"publisher"`
		Description   string `yaml:"description"`
		Language      string `yaml:"language"`
		Pages         string `yaml:"pages"`
	} `yaml:"properties"`

	// Languages are the select options written into the language property
	Languages struct {
		German  string `yaml:"german"`
		English string `yaml:"english"`
	} `yaml:"languages"`

	App struct {
		DryRun     bool   `yaml:"dry_run"`
		ReportFile string `yaml:"report_file"`
	} `yaml:"app"`

	Database struct {
		Type     string `yaml:"type"`
		Path     string `yaml:"path"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Name     string `yaml:"name"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		SSLMode  string `yaml:"ssl_mode"`
	} `yaml:"database"`
}

// Default returns the configuration used when nothing else is set
func Default() *Config {
	cfg := &Config{}
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "console"
	cfg.Notion.BaseURL = "https://api.notion.com/v1"
	cfg.Notion.Version = "2025-09-03"
	cfg.Notion.RateLimit = 3
	cfg.Notion.Timeout = 30 * time.Second
	cfg.OpenLibrary.BaseURL = "https://openlibrary.org"
	cfg.OpenLibrary.CoversURL = "https://covers.openlibrary.org"
	cfg.OpenLibrary.RequestsPerSecond = 1
	cfg.OpenLibrary.Timeout = 15 * time.Second
	cfg.OpenLibrary.CacheTTL = time.Hour
	cfg.Retry.Attempts = 3
	cfg.Retry.Delay = time.Second
	cfg.Languages.German = "German"
	cfg.Languages.English = "English"
	cfg.App.ReportFile = "./failed_books.json"
	cfg.Database.Type = "sqlite"
	cfg.Database.Path = "./data/notion-book-sync.db"
	return cfg
}

// Load builds the configuration from defaults, then the YAML file (if one
// is given), then environment variables. It does not validate.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		fileCfg, err := LoadFromFile(configFile)
		if err != nil {
			return nil, err
		}
		mergeConfigs(cfg, fileCfg)
	}

	loadFromEnv(cfg)
	return cfg, nil
}

// LoadFromFile reads a YAML config file without applying defaults
func LoadFromFile(path string) (*Config, error) {
	if !filepath.IsAbs(path) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = abs
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the configuration needed for any run
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Notion.Token) == "" {
		return &ConfigError{Field: "NOTION_TOKEN", Msg: "no Notion API token configured"}
	}
	if c.Retry.Attempts < 1 {
		return &ConfigError{Field: "retry.attempts", Msg: "must be at least 1"}
	}
	switch strings.ToLower(c.Database.Type) {
	case "sqlite", "postgres", "postgresql", "mysql", "mariadb":
	default:
		return &ConfigError{Field: "database.type", Msg: fmt.Sprintf("unsupported database type %q", c.Database.Type)}
	}
	return nil
}

// ValidateBulk checks the configuration needed to complete a whole database
func (c *Config) ValidateBulk() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Notion.DatabaseID) == "" {
		return &ConfigError{Field: "NOTION_DATABASE_ID", Msg: "no Notion database configured"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Field + " " + e.Msg
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getBoolFromEnv(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fallback
		}
		return b
	}
	return fallback
}

func getIntFromEnv(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		i, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fallback
		}
		return i
	}
	return fallback
}

func getFloat64FromEnv(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fallback
		}
		return f
	}
	return fallback
}

func getDurationFromEnv(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			return fallback
		}
		return d
	}
	return fallback
}

// loadFromEnv overrides cfg with environment variables
func loadFromEnv(cfg *Config) {
	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)

	cfg.Notion.Token = getEnv("NOTION_TOKEN", cfg.Notion.Token)
	cfg.Notion.DatabaseID = getEnv("NOTION_DATABASE_ID", cfg.Notion.DatabaseID)
	cfg.Notion.BaseURL = strings.TrimSuffix(getEnv("NOTION_BASE_URL", cfg.Notion.BaseURL), "/")
	cfg.Notion.Version = getEnv("NOTION_VERSION", cfg.Notion.Version)
	cfg.Notion.RateLimit = getFloat64FromEnv("NOTION_RATE_LIMIT", cfg.Notion.RateLimit)
	cfg.Notion.Timeout = getDurationFromEnv("NOTION_TIMEOUT", cfg.Notion.Timeout)

	cfg.OpenLibrary.BaseURL = strings.TrimSuffix(getEnv("OPENLIBRARY_BASE_URL", cfg.OpenLibrary.BaseURL), "/")
	cfg.OpenLibrary.CoversURL = strings.TrimSuffix(getEnv("OPENLIBRARY_COVERS_URL", cfg.OpenLibrary.CoversURL), "/")
	cfg.OpenLibrary.UserAgent = getEnv("OPENLIBRARY_USER_AGENT", cfg.OpenLibrary.UserAgent)
	cfg.OpenLibrary.RequestsPerSecond = getFloat64FromEnv("OPENLIBRARY_REQUESTS_PER_SECOND", cfg.OpenLibrary.RequestsPerSecond)
	cfg.OpenLibrary.CacheTTL = getDurationFromEnv("OPENLIBRARY_CACHE_TTL", cfg.OpenLibrary.CacheTTL)

	cfg.Retry.Attempts = getIntFromEnv("RETRY_ATTEMPTS", cfg.Retry.Attempts)
	cfg.Retry.Delay = getDurationFromEnv("RETRY_DELAY", cfg.Retry.Delay)

	cfg.App.DryRun = getBoolFromEnv("DRY_RUN", cfg.App.DryRun)
	cfg.App.ReportFile = getEnv("REPORT_FILE", cfg.App.ReportFile)

	cfg.Database.Type = getEnv("DATABASE_TYPE", cfg.Database.Type)
	cfg.Database.Path = getEnv("DATABASE_PATH", cfg.Database.Path)
	cfg.Database.Host = getEnv("DATABASE_HOST", cfg.Database.Host)
	cfg.Database.Port = getIntFromEnv("DATABASE_PORT", cfg.Database.Port)
	cfg.Database.Name = getEnv("DATABASE_NAME", cfg.Database.Name)
	cfg.Database.User = getEnv("DATABASE_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DATABASE_PASSWORD", cfg.Database.Password)
	cfg.Database.SSLMode = getEnv("DATABASE_SSL_MODE", cfg.Database.SSLMode)
}

// mergeConfigs copies every non-zero value of src into dst
func mergeConfigs(dst, src *Config) {
	mergeValue(reflect.ValueOf(dst).Elem(), reflect.ValueOf(src).Elem())
}

func mergeValue(dst, src reflect.Value) {
	for i := 0; i < dst.NumField(); i++ {
		dstField := dst.Field(i)
		srcField := src.Field(i)
		if !dstField.CanSet() {
			continue
		}

		switch dstField.Kind() {
		case reflect.Struct:
			mergeValue(dstField, srcField)
		case reflect.String:
			if srcField.String() != "" {
				dstField.SetString(srcField.String())
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			// covers time.Duration
			if srcField.Int() != 0 {
				dstField.SetInt(srcField.Int())
			}
		case reflect.Float32, reflect.Float64:
			if srcField.Float() != 0 {
				dstField.SetFloat(srcField.Float())
			}
		case reflect.Bool:
			// a file can only switch flags on
			if srcField.Bool() {
				dstField.SetBool(true)
			}
		}
	}
}
