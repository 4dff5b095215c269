package backend

import (
	"fmt"
	"time"

	"billed/internal/config"
	"billed/internal/proofs"
)

// Config holds what the factory needs to build a backend
type Config struct {
	Type BackendType

	// sqlite
	SQLiteDBPath string
	ProofStorage string
	ProofDir     string
	ProofBaseURL string
	S3           proofs.S3Config
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// api
	StoreAPIURL     string
	StoreAPITimeout time.Duration

	// memory
	Seed bool
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		SQLiteDBPath: appConfig.SQLiteDBPath,
		ProofStorage: appConfig.ProofStorage,
		ProofDir:     appConfig.ProofDir,
		ProofBaseURL: appConfig.ProofBaseURL,
		S3: proofs.S3Config{
			Bucket:          appConfig.S3Bucket,
			Region:          appConfig.S3Region,
			Endpoint:        appConfig.S3Endpoint,
			AccessKeyID:     appConfig.S3AccessKeyID,
			SecretAccessKey: appConfig.S3SecretKey,
			PublicBaseURL:   appConfig.S3PublicBaseURL,
			Prefix:          appConfig.S3Prefix,
		},
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		StoreAPIURL:     appConfig.StoreAPIURL,
		StoreAPITimeout: appConfig.StoreAPITimeout,

		Seed: true,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
		switch c.ProofStorage {
		case config.ProofStorageLocal:
			if c.ProofDir == "" {
				return fmt.Errorf("proof directory is required for local proof storage")
			}
		case config.ProofStorageS3:
			if c.S3.Bucket == "" {
				return fmt.Errorf("S3 bucket is required for s3 proof storage")
			}
		default:
			return fmt.Errorf("invalid proof storage: %q", c.ProofStorage)
		}
	case APIBackend:
		if c.StoreAPIURL == "" {
			return fmt.Errorf("store API URL is required for api backend")
		}
	}

	return nil
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	return []string{MemoryBackend.String(), SQLiteBackend.String(), APIBackend.String()}
}
