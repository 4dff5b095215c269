package proofs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"billed/internal/core"
	"billed/internal/log"
)

// Local keeps proofs on the filesystem under a base directory.
type Local struct {
	baseDir string
	baseURL string
	logger  *log.Logger
}

var _ Storage = (*Local)(nil)

// NewLocal stores proofs in baseDir; saved proofs are served from baseURL.
func NewLocal(baseDir, baseURL string, logger *log.Logger) (*Local, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("create proof directory: %w", err)
	}
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	return &Local{
		baseDir: baseDir,
		baseURL: baseURL,
		logger:  logger.WithComponent(log.ComponentProofs),
	}, nil
}

func (s *Local) Save(ctx context.Context, key string, file core.ProofFile) (string, error) {
	full, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		s.logger.ErrorContext(ctx, "Failed to create proof directory",
			log.FieldPath, filepath.Dir(full),
			log.FieldError, err.Error())
		return "", fmt.Errorf("create directories: %w", err)
	}
	if err := os.WriteFile(full, file.Data, 0644); err != nil {
		s.logger.ErrorContext(ctx, "Failed to write proof",
			log.FieldPath, full,
			log.FieldError, err.Error())
		return "", fmt.Errorf("write proof: %w", err)
	}

	s.logger.DebugContext(ctx, "Proof saved",
		log.FieldPath, full,
		"size", len(file.Data))
	return joinURL(s.baseURL, key), nil
}

func (s *Local) Open(_ context.Context, key string) (io.ReadCloser, string, error) {
	full, err := s.path(key)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", fmt.Errorf("open %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", key, err)
	}
	return f, ContentType(full), nil
}

// path resolves key inside baseDir, refusing anything that escapes it.
func (s *Local) path(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return "", fmt.Errorf("resolve base path: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(absBase, filepath.FromSlash(key)))
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q escapes base directory", ErrInvalidKey, key)
	}
	return absPath, nil
}
