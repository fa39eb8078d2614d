package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	S3         S3Config
	CORS       CORSConfig
	OCR        OCRConfig
	Extractor  ExtractorConfig
	Validation ValidationConfig
	Scoring    ScoringConfig
	Routing    RoutingConfig
	Schema     SchemaConfig
	Queue      QueueConfig
	Email      EmailConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	User        string        `mapstructure:"user"`
	Password    string        `mapstructure:"password"`
	Name        string        `mapstructure:"name"`
	SSLMode     string        `mapstructure:"sslmode"`
	MaxOpen     int           `mapstructure:"max_open"`
	MaxIdle     int           `mapstructure:"max_idle"`
	ConnMaxLife time.Duration `mapstructure:"conn_max_life"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds AWS S3 settings.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// OCRConfig holds page rasterization and tesseract settings.
type OCRConfig struct {
	Tesseract       string `mapstructure:"tesseract"`
	Pdftoppm        string `mapstructure:"pdftoppm"`
	Lang            string `mapstructure:"lang"`
	DPI             int    `mapstructure:"dpi"`
	PSM             int    `mapstructure:"psm"`
	OEM             int    `mapstructure:"oem"`
	MaxPages        int    `mapstructure:"max_pages"`
	PageConcurrency int    `mapstructure:"page_concurrency"`
}

// ExtractorProviderConfig holds settings for a single model-extraction provider.
type ExtractorProviderConfig struct {
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	MaxRetries   int    `mapstructure:"max_retries"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`
}

// ExtractorConfig holds field-extraction settings: the model providers
// tried in order, and the deterministic fallback's constants.
type ExtractorConfig struct {
	Primary   ExtractorProviderConfig `mapstructure:"primary"`
	Secondary ExtractorProviderConfig `mapstructure:"secondary"`

	ContextCharLimit   int     `mapstructure:"context_char_limit"`
	FallbackConfidence float64 `mapstructure:"fallback_confidence"`
	FallbackCeiling    float64 `mapstructure:"fallback_ceiling"`
	LineItemConfidence float64 `mapstructure:"line_item_confidence"`
	MaxLineItems       int     `mapstructure:"max_line_items"`
}

// PrimaryConfig returns the primary provider config, or nil if none is set.
func (e *ExtractorConfig) PrimaryConfig() *ExtractorProviderConfig {
	if e.Primary.Provider != "" {
		return &e.Primary
	}
	return nil
}

// SecondaryConfig returns the secondary provider config, or nil if not configured.
func (e *ExtractorConfig) SecondaryConfig() *ExtractorProviderConfig {
	if e.Secondary.Provider != "" {
		return &e.Secondary
	}
	return nil
}

// ValidationConfig holds the field-validation knobs.
type ValidationConfig struct {
	SumTolerance float64 `mapstructure:"sum_tolerance"`
}

// ScoringConfig holds the confidence-scoring constants.
type ScoringConfig struct {
	InvalidPenalty float64 `mapstructure:"invalid_penalty"`
	FieldWeight    float64 `mapstructure:"field_weight"`
	LineItemWeight float64 `mapstructure:"line_item_weight"`
}

// RoutingConfig holds the review-routing policy knobs.
type RoutingConfig struct {
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
}

// SchemaConfig holds per-type critical-field overrides as comma-separated
// field names; empty keeps the built-in defaults.
type SchemaConfig struct {
	InsuranceCriticalFields []string `mapstructure:"insurance_critical_fields"`
	MedicalCriticalFields   []string `mapstructure:"medical_critical_fields"`
}

// QueueConfig holds processing queue worker settings.
type QueueConfig struct {
	PollIntervalSecs   int `mapstructure:"poll_interval_secs"`
	ProcessTimeoutSecs int `mapstructure:"process_timeout_secs"`
	Concurrency        int `mapstructure:"concurrency"`
}

// EmailConfig holds review-notification delivery settings.
type EmailConfig struct {
	Provider      string `mapstructure:"provider"`
	Region        string `mapstructure:"region"`
	FromAddress   string `mapstructure:"from_address"`
	FromName      string `mapstructure:"from_name"`
	ReviewAddress string `mapstructure:"review_address"`
	ReviewURL     string `mapstructure:"review_url"`
}

// Load reads configuration from environment variables with the CLAIMLENS_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CLAIMLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	// Write timeout covers synchronous document processing, which can run
	// OCR and a model call per page.
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "claimlens")
	v.SetDefault("db.password", "claimlens_secret")
	v.SetDefault("db.name", "claimlens_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)
	v.SetDefault("db.conn_max_life", "30m")

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "claimlens-documents")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.max_file_size_mb", 50)
	v.SetDefault("s3.presign_expiry", 3600)

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// OCR defaults
	v.SetDefault("ocr.tesseract", "tesseract")
	v.SetDefault("ocr.pdftoppm", "pdftoppm")
	v.SetDefault("ocr.lang", "eng")
	v.SetDefault("ocr.dpi", 220)
	v.SetDefault("ocr.psm", 6)
	v.SetDefault("ocr.oem", 0)
	v.SetDefault("ocr.max_pages", 20)
	v.SetDefault("ocr.page_concurrency", 4)

	// Extractor defaults
	v.SetDefault("extractor.primary.provider", "openai")
	v.SetDefault("extractor.primary.api_key", "")
	v.SetDefault("extractor.primary.default_model", "gpt-4o-mini")
	v.SetDefault("extractor.primary.max_retries", 1)
	v.SetDefault("extractor.primary.timeout_secs", 60)
	v.SetDefault("extractor.secondary.provider", "")
	v.SetDefault("extractor.secondary.api_key", "")
	v.SetDefault("extractor.secondary.default_model", "")
	v.SetDefault("extractor.secondary.max_retries", 1)
	v.SetDefault("extractor.secondary.timeout_secs", 60)
	v.SetDefault("extractor.context_char_limit", 12000)
	v.SetDefault("extractor.fallback_confidence", 0.55)
	v.SetDefault("extractor.fallback_ceiling", 0.6)
	v.SetDefault("extractor.line_item_confidence", 0.5)
	v.SetDefault("extractor.max_line_items", 20)

	// Validation defaults
	v.SetDefault("validation.sum_tolerance", 0.01)

	// Scoring defaults
	v.SetDefault("scoring.invalid_penalty", 0.5)
	v.SetDefault("scoring.field_weight", 0.8)
	v.SetDefault("scoring.line_item_weight", 0.2)

	// Routing defaults
	v.SetDefault("routing.confidence_threshold", 0.8)

	// Schema defaults (empty keeps built-in critical sets)
	v.SetDefault("schema.insurance_critical_fields", "")
	v.SetDefault("schema.medical_critical_fields", "")

	// Queue defaults
	v.SetDefault("queue.poll_interval_secs", 10)
	v.SetDefault("queue.process_timeout_secs", 300)
	v.SetDefault("queue.concurrency", 4)

	// Email defaults
	v.SetDefault("email.provider", "noop")
	v.SetDefault("email.region", "us-east-1")
	v.SetDefault("email.from_address", "noreply@claimlens.io")
	v.SetDefault("email.from_name", "ClaimLens")
	v.SetDefault("email.review_address", "")
	v.SetDefault("email.review_url", "http://localhost:3000/review")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":          "CLAIMLENS_SERVER_PORT",
		"server.read_timeout":  "CLAIMLENS_SERVER_READ_TIMEOUT",
		"server.write_timeout": "CLAIMLENS_SERVER_WRITE_TIMEOUT",
		"server.environment":   "CLAIMLENS_SERVER_ENVIRONMENT",
		"db.host":              "CLAIMLENS_DB_HOST",
		"db.port":              "CLAIMLENS_DB_PORT",
		"db.user":              "CLAIMLENS_DB_USER",
		"db.password":          "CLAIMLENS_DB_PASSWORD",
		"db.name":              "CLAIMLENS_DB_NAME",
		"db.sslmode":           "CLAIMLENS_DB_SSLMODE",
		"db.max_open":          "CLAIMLENS_DB_MAX_OPEN",
		"db.max_idle":          "CLAIMLENS_DB_MAX_IDLE",
		"db.conn_max_life":     "CLAIMLENS_DB_CONN_MAX_LIFE",
		"s3.region":            "CLAIMLENS_S3_REGION",
		"s3.bucket":            "CLAIMLENS_S3_BUCKET",
		"s3.endpoint":          "CLAIMLENS_S3_ENDPOINT",
		"s3.access_key":        "CLAIMLENS_S3_ACCESS_KEY",
		"s3.secret_key":        "CLAIMLENS_S3_SECRET_KEY",
		"s3.max_file_size_mb":  "CLAIMLENS_S3_MAX_FILE_SIZE_MB",
		"s3.presign_expiry":    "CLAIMLENS_S3_PRESIGN_EXPIRY",
		"cors.allowed_origins": "CLAIMLENS_CORS_ALLOWED_ORIGINS",
		"ocr.tesseract":        "CLAIMLENS_OCR_TESSERACT",
		"ocr.pdftoppm":         "CLAIMLENS_OCR_PDFTOPPM",
		"ocr.lang":             "CLAIMLENS_OCR_LANG",
		"ocr.dpi":              "CLAIMLENS_OCR_DPI",
		"ocr.psm":              "CLAIMLENS_OCR_PSM",
		"ocr.oem":              "CLAIMLENS_OCR_OEM",
		"ocr.max_pages":        "CLAIMLENS_OCR_MAX_PAGES",
		"ocr.page_concurrency": "CLAIMLENS_OCR_PAGE_CONCURRENCY",
		"extractor.primary.provider":        "CLAIMLENS_EXTRACTOR_PRIMARY_PROVIDER",
		"extractor.primary.api_key":         "CLAIMLENS_EXTRACTOR_PRIMARY_API_KEY",
		"extractor.primary.default_model":   "CLAIMLENS_EXTRACTOR_PRIMARY_DEFAULT_MODEL",
		"extractor.primary.max_retries":     "CLAIMLENS_EXTRACTOR_PRIMARY_MAX_RETRIES",
		"extractor.primary.timeout_secs":    "CLAIMLENS_EXTRACTOR_PRIMARY_TIMEOUT_SECS",
		"extractor.secondary.provider":      "CLAIMLENS_EXTRACTOR_SECONDARY_PROVIDER",
		"extractor.secondary.api_key":       "CLAIMLENS_EXTRACTOR_SECONDARY_API_KEY",
		"extractor.secondary.default_model": "CLAIMLENS_EXTRACTOR_SECONDARY_DEFAULT_MODEL",
		"extractor.secondary.max_retries":   "CLAIMLENS_EXTRACTOR_SECONDARY_MAX_RETRIES",
		"extractor.secondary.timeout_secs":  "CLAIMLENS_EXTRACTOR_SECONDARY_TIMEOUT_SECS",
		"extractor.context_char_limit":      "CLAIMLENS_EXTRACTOR_CONTEXT_CHAR_LIMIT",
		"extractor.fallback_confidence":     "CLAIMLENS_EXTRACTOR_FALLBACK_CONFIDENCE",
		"extractor.fallback_ceiling":        "CLAIMLENS_EXTRACTOR_FALLBACK_CEILING",
		"extractor.line_item_confidence":    "CLAIMLENS_EXTRACTOR_LINE_ITEM_CONFIDENCE",
		"extractor.max_line_items":          "CLAIMLENS_EXTRACTOR_MAX_LINE_ITEMS",
		"validation.sum_tolerance":          "CLAIMLENS_VALIDATION_SUM_TOLERANCE",
		"scoring.invalid_penalty":           "CLAIMLENS_SCORING_INVALID_PENALTY",
		"scoring.field_weight":              "CLAIMLENS_SCORING_FIELD_WEIGHT",
		"scoring.line_item_weight":          "CLAIMLENS_SCORING_LINE_ITEM_WEIGHT",
		"routing.confidence_threshold":      "CLAIMLENS_ROUTING_CONFIDENCE_THRESHOLD",
		"schema.insurance_critical_fields":  "CLAIMLENS_SCHEMA_INSURANCE_CRITICAL_FIELDS",
		"schema.medical_critical_fields":    "CLAIMLENS_SCHEMA_MEDICAL_CRITICAL_FIELDS",
		"queue.poll_interval_secs":          "CLAIMLENS_QUEUE_POLL_INTERVAL_SECS",
		"queue.process_timeout_secs":        "CLAIMLENS_QUEUE_PROCESS_TIMEOUT_SECS",
		"queue.concurrency":                 "CLAIMLENS_QUEUE_CONCURRENCY",
		"email.provider":                    "CLAIMLENS_EMAIL_PROVIDER",
		"email.region":                      "CLAIMLENS_EMAIL_REGION",
		"email.from_address":                "CLAIMLENS_EMAIL_FROM_ADDRESS",
		"email.from_name":                   "CLAIMLENS_EMAIL_FROM_NAME",
		"email.review_address":              "CLAIMLENS_EMAIL_REVIEW_ADDRESS",
		"email.review_url":                  "CLAIMLENS_EMAIL_REVIEW_URL",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if CLAIMLENS_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("CLAIMLENS_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:        v.GetString("db.host"),
		Port:        v.GetInt("db.port"),
		User:        v.GetString("db.user"),
		Password:    v.GetString("db.password"),
		Name:        v.GetString("db.name"),
		SSLMode:     v.GetString("db.sslmode"),
		MaxOpen:     v.GetInt("db.max_open"),
		MaxIdle:     v.GetInt("db.max_idle"),
		ConnMaxLife: v.GetDuration("db.conn_max_life"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		MaxFileSizeMB: v.GetInt64("s3.max_file_size_mb"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: splitAndTrim(v.GetString("cors.allowed_origins")),
	}
	cfg.OCR = OCRConfig{
		Tesseract:       v.GetString("ocr.tesseract"),
		Pdftoppm:        v.GetString("ocr.pdftoppm"),
		Lang:            v.GetString("ocr.lang"),
		DPI:             v.GetInt("ocr.dpi"),
		PSM:             v.GetInt("ocr.psm"),
		OEM:             v.GetInt("ocr.oem"),
		MaxPages:        v.GetInt("ocr.max_pages"),
		PageConcurrency: v.GetInt("ocr.page_concurrency"),
	}
	cfg.Extractor = ExtractorConfig{
		Primary: ExtractorProviderConfig{
			Provider:     v.GetString("extractor.primary.provider"),
			APIKey:       v.GetString("extractor.primary.api_key"),
			DefaultModel: v.GetString("extractor.primary.default_model"),
			MaxRetries:   v.GetInt("extractor.primary.max_retries"),
			TimeoutSecs:  v.GetInt("extractor.primary.timeout_secs"),
		},
		Secondary: ExtractorProviderConfig{
			Provider:     v.GetString("extractor.secondary.provider"),
			APIKey:       v.GetString("extractor.secondary.api_key"),
			DefaultModel: v.GetString("extractor.secondary.default_model"),
			MaxRetries:   v.GetInt("extractor.secondary.max_retries"),
			TimeoutSecs:  v.GetInt("extractor.secondary.timeout_secs"),
		},
		ContextCharLimit:   v.GetInt("extractor.context_char_limit"),
		FallbackConfidence: v.GetFloat64("extractor.fallback_confidence"),
		FallbackCeiling:    v.GetFloat64("extractor.fallback_ceiling"),
		LineItemConfidence: v.GetFloat64("extractor.line_item_confidence"),
		MaxLineItems:       v.GetInt("extractor.max_line_items"),
	}
	cfg.Validation = ValidationConfig{
		SumTolerance: v.GetFloat64("validation.sum_tolerance"),
	}
	cfg.Scoring = ScoringConfig{
		InvalidPenalty: v.GetFloat64("scoring.invalid_penalty"),
		FieldWeight:    v.GetFloat64("scoring.field_weight"),
		LineItemWeight: v.GetFloat64("scoring.line_item_weight"),
	}
	cfg.Routing = RoutingConfig{
		ConfidenceThreshold: v.GetFloat64("routing.confidence_threshold"),
	}
	cfg.Schema = SchemaConfig{
		InsuranceCriticalFields: splitAndTrim(v.GetString("schema.insurance_critical_fields")),
		MedicalCriticalFields:   splitAndTrim(v.GetString("schema.medical_critical_fields")),
	}
	cfg.Queue = QueueConfig{
		PollIntervalSecs:   v.GetInt("queue.poll_interval_secs"),
		ProcessTimeoutSecs: v.GetInt("queue.process_timeout_secs"),
		Concurrency:        v.GetInt("queue.concurrency"),
	}
	cfg.Email = EmailConfig{
		Provider:      v.GetString("email.provider"),
		Region:        v.GetString("email.region"),
		FromAddress:   v.GetString("email.from_address"),
		FromName:      v.GetString("email.from_name"),
		ReviewAddress: v.GetString("email.review_address"),
		ReviewURL:     v.GetString("email.review_url"),
	}

	return cfg, nil
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
