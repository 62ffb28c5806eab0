package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/skinlens/backend/internal/domain"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Vectorize VectorizeConfig
	OpenAI    OpenAIConfig
	OCR       OCRConfig
	Analysis  AnalysisConfig
	Cache     CacheConfig
	Export    ExportConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxUploadBytes int64    `mapstructure:"max_upload_bytes"`
}

// LogConfig holds zerolog settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "console" or "json"
}

// VectorizeConfig holds retrieval pipeline configuration
type VectorizeConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	OrganizationID    string        `mapstructure:"org_id"`
	PipelineID        string        `mapstructure:"pipeline_id"`
	BaseURL           string        `mapstructure:"base_url"`
	NumResults        int           `mapstructure:"num_results"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

// OpenAIConfig holds language model configuration
type OpenAIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// OCRConfig holds Tesseract settings
type OCRConfig struct {
	Languages   []string `mapstructure:"languages"`
	PageSegMode int      `mapstructure:"page_seg_mode"`
}

// AnalysisConfig holds orchestrator limits
type AnalysisConfig struct {
	Concurrency    int           `mapstructure:"concurrency"`
	MaxIngredients int           `mapstructure:"max_ingredients"`
	SnapshotTTL    time.Duration `mapstructure:"snapshot_ttl"`
}

// CacheConfig holds record cache configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "none", "memory" or "redis"
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// ExportConfig holds object storage settings for CSV exports
type ExportConfig struct {
	Type      string        `mapstructure:"type"` // "none" or "minio"
	Endpoint  string        `mapstructure:"endpoint"`
	AccessKey string        `mapstructure:"access_key"`
	SecretKey string        `mapstructure:"secret_key"`
	Bucket    string        `mapstructure:"bucket"`
	Region    string        `mapstructure:"region"`
	UseSSL    bool          `mapstructure:"use_ssl"`
	URLExpiry time.Duration `mapstructure:"url_expiry"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
}

// Load loads configuration from .env, environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/skinlens/")

	v.SetEnvPrefix("SKINLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindCredentials(v); err != nil {
		return nil, err
	}

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})
	v.SetDefault("server.max_upload_bytes", 10<<20)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("vectorize.base_url", "https://api.vectorize.io/v1")
	v.SetDefault("vectorize.num_results", 3)
	v.SetDefault("vectorize.timeout", "30s")
	v.SetDefault("vectorize.requests_per_second", 5.0)

	v.SetDefault("openai.model", "gpt-4-turbo-preview")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.timeout", "60s")

	v.SetDefault("ocr.languages", []string{"eng"})
	v.SetDefault("ocr.page_seg_mode", 3)

	v.SetDefault("analysis.concurrency", 1)
	v.SetDefault("analysis.max_ingredients", 100)
	v.SetDefault("analysis.snapshot_ttl", "1h")

	v.SetDefault("cache.type", "none")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "168h") // 7 days

	v.SetDefault("export.type", "none")
	v.SetDefault("export.endpoint", "")
	v.SetDefault("export.access_key", "")
	v.SetDefault("export.secret_key", "")
	v.SetDefault("export.bucket", "ingredient-analyses")
	v.SetDefault("export.region", "us-east-1")
	v.SetDefault("export.use_ssl", true)
	v.SetDefault("export.url_expiry", "24h")

	v.SetDefault("ratelimit.per_ip", 30)
}

// bindCredentials accepts both the prefixed and the conventional variable names
func bindCredentials(v *viper.Viper) error {
	bindings := [][]string{
		{"vectorize.api_key", "SKINLENS_VECTORIZE_API_KEY", "VECTORIZE_API_KEY"},
		{"vectorize.org_id", "SKINLENS_VECTORIZE_ORG_ID", "VECTORIZE_ORG_ID"},
		{"vectorize.pipeline_id", "SKINLENS_VECTORIZE_PIPELINE_ID", "VECTORIZE_PIPELINE_ID"},
		{"openai.api_key", "SKINLENS_OPENAI_API_KEY", "OPENAI_API_KEY"},
	}
	for _, b := range bindings {
		if err := v.BindEnv(b...); err != nil {
			return fmt.Errorf("bind %s: %w", b[0], err)
		}
	}
	return nil
}

// validate validates the configuration
func validate(config *Config) error {
	var missing []string
	if config.Vectorize.APIKey == "" {
		missing = append(missing, "VECTORIZE_API_KEY")
	}
	if config.Vectorize.OrganizationID == "" {
		missing = append(missing, "VECTORIZE_ORG_ID")
	}
	if config.Vectorize.PipelineID == "" {
		missing = append(missing, "VECTORIZE_PIPELINE_ID")
	}
	if config.OpenAI.APIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", domain.ErrConfiguration, strings.Join(missing, ", "))
	}

	if config.Vectorize.NumResults < 1 {
		return fmt.Errorf("%w: vectorize.num_results must be positive, got %d", domain.ErrConfiguration, config.Vectorize.NumResults)
	}

	if config.Analysis.MaxIngredients < 1 {
		return fmt.Errorf("%w: analysis.max_ingredients must be at least 1, got %d", domain.ErrConfiguration, config.Analysis.MaxIngredients)
	}

	if config.Analysis.Concurrency < 1 {
		return fmt.Errorf("%w: analysis.concurrency must be at least 1, got %d", domain.ErrConfiguration, config.Analysis.Concurrency)
	}

	switch config.Cache.Type {
	case "none", "memory":
	case "redis":
		if config.Cache.RedisURL == "" {
			return fmt.Errorf("%w: Redis URL is required when cache type is 'redis'", domain.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: cache type must be 'none', 'memory' or 'redis', got: %s", domain.ErrConfiguration, config.Cache.Type)
	}

	switch config.Export.Type {
	case "none":
	case "minio":
		if config.Export.Endpoint == "" || config.Export.AccessKey == "" || config.Export.SecretKey == "" {
			return fmt.Errorf("%w: export endpoint and keys are required when export type is 'minio'", domain.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: export type must be 'none' or 'minio', got: %s", domain.ErrConfiguration, config.Export.Type)
	}

	return nil
}

// loadEnvFile loads KEY=VALUE pairs from ./.env without overriding variables
// that are already set. A missing file is not an error.
func loadEnvFile() error {
	f, err := os.Open(".env")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return scanner.Err()
}
