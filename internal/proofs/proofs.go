// Package proofs stores the receipt images attached to bills.
package proofs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"

	"billed/internal/core"
)

var (
	ErrNotFound   = errors.New("proof not found")
	ErrInvalidKey = errors.New("invalid proof key")
)

// Storage saves proofs under a key and returns the URL they are served from.
type Storage interface {
	Save(ctx context.Context, key string, file core.ProofFile) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
}

// Key builds the storage key of a bill's proof.
func Key(billID, fileName string) string {
	return billID + "/" + core.ProofFileName(fileName)
}

// ValidateKey rejects keys that could escape the storage root.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

// ContentType guesses a proof's media type from its name.
func ContentType(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// joinURL appends an escaped key to base.
func joinURL(base, key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(parts, "/")
}
