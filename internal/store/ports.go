package store

import (
	"context"

	"billed/internal/core"
)

// Resource names the store exposes.
const ResourceBills = "bills"

type (
	// BillsResource is the whole boundary the UI containers depend on.
	BillsResource interface {
		// List returns every raw bill record.
		List(ctx context.Context) ([]core.Bill, error)
		// Create uploads a proof for a new bill and returns where it lives.
		Create(ctx context.Context, file core.ProofFile, meta CreateMeta) (UploadResult, error)
		// Update persists the JSON-serialized bill under the given selector.
		Update(ctx context.Context, selector string, data []byte) error
	}

	// CreateMeta travels with an upload.
	CreateMeta struct {
		Email string
	}

	// UploadResult is returned by Create. Key identifies the new bill.
	UploadResult struct {
		FileURL string `json:"fileUrl"`
		Key     string `json:"key"`
	}
)
