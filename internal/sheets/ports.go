package sheets

import (
	"context"

	"billed/internal/core"
)

// Ports for the accounting export.
type (
	// BillExporter appends one bill to the accounting sheet.
	BillExporter interface {
		AppendBill(ctx context.Context, b core.Bill) (rowRef string, err error)
	}

	// ExportedBillLister reports which bills already have a row, so redelivered
	// messages do not produce duplicates.
	ExportedBillLister interface {
		ExportedBillIDs(ctx context.Context) (map[string]struct{}, error)
	}
)
