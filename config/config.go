package config

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var (
	ErrMissingJWTSecret     = errors.New("AUTH_JWT_SECRET is required in production")
	ErrInvalidEncryptionKey = errors.New("IIN_ENCRYPTION_KEY must be 32 bytes in base64 (44 chars) or hex (64 chars)")
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	CORS       CORSConfig
	App        AppConfig
	SMTP       SMTPConfig
	Encryption EncryptionConfig
	Redis      RedisConfig
	RateLimit  RateLimitConfig
	S3         S3Config
	Scheduler  SchedulerConfig
	PDF        PDFConfig
	Upload     UploadConfig
}

type ServerConfig struct {
	Port         string
	GinMode      string
	Environment  string
	CookieSecure bool
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type JWTConfig struct {
	Secret        string
	SessionExpiry time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

// AppConfig carries the business constants shared by the engines.
type AppConfig struct {
	TrainingCenterName  string
	Qualification       string
	CertificateValidity time.Duration
	TrainingURL         string
	PublicURL           string
	BootstrapKey        string
	DefaultActor        string
}

type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
	Secure   bool
}

type EncryptionConfig struct {
	IINKey string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Enabled      bool
	Window       time.Duration
	AuthLimit    int
	GeneralLimit int
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	ImportPrefix    string
}

type SchedulerConfig struct {
	ExpiryCron     string
	ReminderLead   time.Duration
	NotifyWorkers  int
	NotifyQueueLen int
}

type PDFConfig struct {
	TemplatePath string
	FontPath     string
}

type UploadConfig struct {
	MaxImportSize int64
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "4000"),
			GinMode:      getEnv("GIN_MODE", "debug"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			CookieSecure: parseBool(getEnv("COOKIE_SECURE", "false")),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "academia"),
			Password: getEnv("DB_PASSWORD", "academia"),
			DBName:   getEnv("DB_NAME", "academia"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:        getEnv("AUTH_JWT_SECRET", ""),
			SessionExpiry: parseDuration(getEnv("AUTH_SESSION_EXPIRY", "168h"), 168*time.Hour),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("CORS_ORIGIN", "http://localhost:5173")),
		},
		App: AppConfig{
			TrainingCenterName:  getEnv("TRAINING_CENTER_NAME", "WinterGreen Academia"),
			Qualification:       getEnv("CERTIFICATE_QUALIFICATION", "Кальянный мастер"),
			CertificateValidity: parseDuration(getEnv("CERTIFICATE_VALIDITY", "8760h"), 365*24*time.Hour),
			TrainingURL:         getEnv("GETCOURSE_URL", "https://getcourse.example"),
			PublicURL:           strings.TrimRight(getEnv("PUBLIC_APP_URL", "http://localhost:5173"), "/"),
			BootstrapKey:        getEnv("ADMIN_BOOTSTRAP_KEY", ""),
			DefaultActor:        getEnv("DEFAULT_ACTOR", "system"),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnv("SMTP_PORT", "587"),
			User:     getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASS", ""),
			From:     getEnv("SMTP_FROM", ""),
			Secure:   parseBool(getEnv("SMTP_SECURE", "false")),
		},
		Encryption: EncryptionConfig{
			IINKey: getEnv("IIN_ENCRYPTION_KEY", ""),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
		},
		RateLimit: RateLimitConfig{
			Enabled:      parseBool(getEnv("RATE_LIMIT_ENABLED", "true")),
			Window:       parseDuration(getEnv("RATE_LIMIT_WINDOW", "15m"), 15*time.Minute),
			AuthLimit:    parseInt(getEnv("RATE_LIMIT_AUTH", "30"), 30),
			GeneralLimit: parseInt(getEnv("RATE_LIMIT_GENERAL", "300"), 300),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "eu-central-1"),
			Bucket:          getEnv("AWS_S3_BUCKET", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			ImportPrefix:    getEnv("AWS_S3_IMPORT_PREFIX", "imports"),
		},
		Scheduler: SchedulerConfig{
			ExpiryCron:     getEnv("EXPIRY_REMINDER_CRON", "0 9 * * *"),
			ReminderLead:   parseDuration(getEnv("EXPIRY_REMINDER_LEAD", "720h"), 30*24*time.Hour),
			NotifyWorkers:  parseInt(getEnv("NOTIFY_WORKERS", "2"), 2),
			NotifyQueueLen: parseInt(getEnv("NOTIFY_QUEUE", "256"), 256),
		},
		PDF: PDFConfig{
			TemplatePath: getEnv("CERTIFICATE_TEMPLATE_PATH", "assets/cert-template.png"),
			FontPath:     getEnv("CERTIFICATE_FONT_PATH", "assets/arial-unicode.ttf"),
		},
		Upload: UploadConfig{
			MaxImportSize: int64(parseInt(getEnv("IMPORT_MAX_BYTES", "10485760"), 10<<20)),
		},
	}

	return cfg, nil
}

// Validate reports configuration errors that must stop the process.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		if c.IsProduction() {
			return ErrMissingJWTSecret
		}
		log.Println("AUTH_JWT_SECRET is not set, using an insecure development secret")
		c.JWT.Secret = "dev-insecure-secret"
	}
	if c.Encryption.IINKey != "" {
		if _, err := c.Encryption.Key(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Key decodes the national-ID encryption key.
func (e EncryptionConfig) Key() ([]byte, error) {
	var (
		key []byte
		err error
	)
	switch len(e.IINKey) {
	case 44:
		key, err = base64.StdEncoding.DecodeString(e.IINKey)
	case 64:
		key, err = hex.DecodeString(e.IINKey)
	default:
		return nil, ErrInvalidEncryptionKey
	}
	if err != nil || len(key) != 32 {
		return nil, ErrInvalidEncryptionKey
	}
	return key, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

func (s SMTPConfig) Configured() bool {
	return s.Host != "" && s.From != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return n
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(s)
	return b
}

func parseSlice(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
