package backend

import (
	"context"
	"io"

	"billed/internal/store"
)

// BackendType names the implementation behind the bills resource
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	APIBackend    BackendType = "api"
)

func (t BackendType) IsValid() bool {
	switch t {
	case MemoryBackend, SQLiteBackend, APIBackend:
		return true
	}
	return false
}

func (t BackendType) String() string {
	return string(t)
}

// ProofOpener serves uploaded proofs back to the browser
type ProofOpener interface {
	Proof(ctx context.Context, key string) (io.ReadCloser, string, error)
}

// CleanupFunc releases the resources held by a backend
type CleanupFunc func() error

// BackendResult is what the server is wired with. Proofs and Ready may be
// nil when the backend has nothing to offer for them.
type BackendResult struct {
	Type     BackendType
	Resource store.BillsResource
	Proofs   ProofOpener
	Ready    func(ctx context.Context) error
	Cleanup  CleanupFunc
}

// Close runs Cleanup when there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}
