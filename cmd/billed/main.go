// Command billed serves the employee bill screens and the store REST API.
package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"time"

	"billed/internal/backend"
	"billed/internal/cli"
	"billed/internal/config"
	apphttp "billed/internal/http"
	"billed/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Store:              res.Resource,
		Proofs:             res.Proofs,
		Ready:              res.Ready,
		ProofOrigin:        proofOrigin(cfg),
		MaxProofBytes:      cfg.MaxProofBytes,
		DraftTTL:           cfg.DraftTTL,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting billed server",
		"port", cfg.Port,
		"backend", res.Type,
		log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

// proofOrigin is the origin proofs are served from when it is not this
// server, so the page may load them.
func proofOrigin(cfg *config.Config) string {
	raw := cfg.ProofBaseURL
	if cfg.ProofStorage == config.ProofStorageS3 {
		raw = cfg.S3PublicBaseURL
		if raw == "" {
			raw = cfg.S3Endpoint
		}
	}
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
