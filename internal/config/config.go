package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Data backends
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendAPI    = "api"
)

// Proof storages
const (
	ProofStorageLocal = "local"
	ProofStorageS3    = "s3"
)

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath string

	// Remote store, for the api backend
	StoreAPIURL     string
	StoreAPITimeout time.Duration

	// Proofs
	ProofStorage    string
	ProofDir        string
	ProofBaseURL    string
	MaxProofBytes   int64
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3AccessKeyID   string
	S3SecretKey     string
	S3PublicBaseURL string
	S3Prefix        string

	// AMQP, optional for the server
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Worker
	SyncBatchSize   int
	SyncInterval    time.Duration
	SyncConcurrency int

	// Web
	DraftTTL           time.Duration
	RateLimitPerMinute int
}

func Load() *Config {
	port := getEnv("PORT", "8080")
	return &Config{
		Port:     port,
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataBackend: getEnv("DATA_BACKEND", BackendMemory),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/billed.db"),

		StoreAPIURL:     getEnv("STORE_API_URL", ""),
		StoreAPITimeout: getEnvDuration("STORE_API_TIMEOUT", 10*time.Second),

		ProofStorage:    getEnv("PROOF_STORAGE", ProofStorageLocal),
		ProofDir:        getEnv("PROOF_DIR", "./data/proofs"),
		ProofBaseURL:    getEnv("PROOF_BASE_URL", "http://localhost:"+port+"/proofs"),
		MaxProofBytes:   int64(getEnvInt("MAX_PROOF_BYTES", 10<<20)),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Region:        getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:      getEnv("S3_ENDPOINT", ""),
		S3AccessKeyID:   getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretKey:     getEnv("S3_SECRET_ACCESS_KEY", ""),
		S3PublicBaseURL: getEnv("S3_PUBLIC_BASE_URL", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "billed"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "sync_bills"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", ""),

		SyncBatchSize:   getEnvInt("SYNC_BATCH_SIZE", 10),
		SyncInterval:    getEnvDuration("SYNC_INTERVAL", 30*time.Second),
		SyncConcurrency: getEnvInt("SYNC_CONCURRENCY", 2),

		DraftTTL:           getEnvDuration("DRAFT_TTL", time.Hour),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
	}
}

// Validate checks the server configuration and reports every problem at once
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{BackendMemory, BackendSQLite, BackendAPI}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendSQLite:
		errors = append(errors, c.validateSQLite()...)
		errors = append(errors, c.validateProofs()...)
	case BackendAPI:
		if c.StoreAPIURL == "" {
			errors = append(errors, "STORE_API_URL is required when using api backend")
		} else if msg := validateHTTPURL("store API URL", c.StoreAPIURL); msg != "" {
			errors = append(errors, msg)
		}
		if c.StoreAPITimeout <= 0 {
			errors = append(errors, fmt.Sprintf("invalid store API timeout %v: must be positive", c.StoreAPITimeout))
		}
	}

	errors = append(errors, c.validateAMQP()...)

	if c.DraftTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid draft TTL %v: must be at least 1 minute", c.DraftTTL))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitPerMinute))
	}

	return joinErrors(errors)
}

// ValidateWorker checks the configuration of the export worker
func (c *Config) ValidateWorker() error {
	var errors []string

	errors = append(errors, c.validateSQLite()...)

	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required by the sync worker")
	}

	errors = append(errors, c.validateAMQP()...)

	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if c.SyncConcurrency < 1 || c.SyncConcurrency > 16 {
		errors = append(errors, fmt.Sprintf("invalid sync concurrency %d: must be between 1 and 16", c.SyncConcurrency))
	}

	return joinErrors(errors)
}

func (c *Config) validateSQLite() []string {
	if c.SQLiteDBPath == "" {
		return []string{"SQLite database path cannot be empty when using sqlite backend"}
	}
	dir := filepath.Dir(c.SQLiteDBPath)
	if dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return []string{fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err)}
			}
		}
	}
	return nil
}

func (c *Config) validateProofs() []string {
	var errors []string
	switch c.ProofStorage {
	case ProofStorageLocal:
		if c.ProofDir == "" {
			errors = append(errors, "proof directory cannot be empty when using local proof storage")
		}
		if msg := validateHTTPURL("proof base URL", c.ProofBaseURL); msg != "" {
			errors = append(errors, msg)
		}
	case ProofStorageS3:
		if c.S3Bucket == "" {
			errors = append(errors, "S3 bucket is required when using s3 proof storage")
		}
		if c.S3Endpoint != "" {
			if msg := validateHTTPURL("S3 endpoint", c.S3Endpoint); msg != "" {
				errors = append(errors, msg)
			}
		}
		if (c.S3AccessKeyID == "") != (c.S3SecretKey == "") {
			errors = append(errors, "S3 access key id and secret must be set together")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid proof storage '%s': must be one of [%s %s]", c.ProofStorage, ProofStorageLocal, ProofStorageS3))
	}
	if c.MaxProofBytes < 1 {
		errors = append(errors, fmt.Sprintf("invalid max proof size %d: must be positive", c.MaxProofBytes))
	}
	return errors
}

func (c *Config) validateAMQP() []string {
	if c.AMQPURL == "" {
		return nil
	}
	var errors []string
	if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
	} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
		errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
	}
	if c.AMQPExchange == "" {
		errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
	}
	if c.AMQPQueue == "" {
		errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
	}
	return errors
}

func validateHTTPURL(name, raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Sprintf("invalid %s '%s': %v", name, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Sprintf("invalid %s scheme '%s': must be 'http' or 'https'", name, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Sprintf("invalid %s '%s': missing host", name, raw)
	}
	return ""
}

func joinErrors(errors []string) error {
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
