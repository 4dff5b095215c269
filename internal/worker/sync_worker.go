package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"billed/internal/amqp"
	"billed/internal/core"
	"billed/internal/sheets"
	"billed/internal/storage"

	"golang.org/x/sync/errgroup"
)

// BillSource is the part of the repository the worker needs.
type BillSource interface {
	GetBillVersion(ctx context.Context, id string) (storage.PendingSyncBill, error)
	GetPendingSyncBills(ctx context.Context, limit int) ([]storage.PendingSyncBill, error)
	MarkSynced(ctx context.Context, id string, version int64) error
	MarkSyncError(ctx context.Context, id string, cause error) error
}

// SyncWorker exports submitted bills from SQLite to the accounting sheet
type SyncWorker struct {
	source      BillSource
	exporter    sheets.BillExporter
	lister      sheets.ExportedBillLister
	batchSize   int
	concurrency int
}

// NewSyncWorker creates a worker. lister may be nil, in which case a bill
// whose export was not recorded gets appended again.
func NewSyncWorker(source BillSource, exporter sheets.BillExporter, lister sheets.ExportedBillLister, batchSize, concurrency int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &SyncWorker{
		source:      source,
		exporter:    exporter,
		lister:      lister,
		batchSize:   batchSize,
		concurrency: concurrency,
	}
}

// BatchResult summarises a catch-up pass.
type BatchResult struct {
	Total  int
	Synced int64
	Errors int64
}

// HandleSyncMessage exports the bill named by msg. A bill that no longer
// exists or is already exported is acknowledged without work.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.BillSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "id", msg.ID)

	pending, err := w.source.GetBillVersion(ctx, msg.ID)
	if errors.Is(err, core.ErrBillNotFound) {
		slog.WarnContext(ctx, "Bill to sync not found, dropping message", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get bill from storage: %w", err)
	}
	switch pending.SyncStatus {
	case storage.SyncSynced:
		slog.InfoContext(ctx, "Bill already synced", "id", msg.ID)
		return nil
	case storage.SyncDraft:
		slog.WarnContext(ctx, "Bill is still a draft, skipping", "id", msg.ID)
		return nil
	}

	exported, err := w.exportedIDs(ctx)
	if err != nil {
		return err
	}
	if err := w.syncBill(ctx, pending, exported); err != nil {
		return fmt.Errorf("sync bill to sheets: %w", err)
	}
	return nil
}

// ProcessPendingBills exports one batch of bills still waiting for export.
// It is the backup path for lost AMQP messages.
func (w *SyncWorker) ProcessPendingBills(ctx context.Context) (BatchResult, error) {
	return w.processBatch(ctx, w.batchSize)
}

// StartupSyncCheck catches up a larger batch when the worker starts.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	res, err := w.processBatch(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync: %w", err)
	}
	if res.Total == 0 {
		slog.InfoContext(ctx, "No pending bills found on startup")
		return nil
	}
	slog.InfoContext(ctx, "Startup sync completed",
		"total", res.Total,
		"synced", res.Synced,
		"errors", res.Errors)
	return nil
}

func (w *SyncWorker) processBatch(ctx context.Context, limit int) (BatchResult, error) {
	pending, err := w.source.GetPendingSyncBills(ctx, limit)
	if err != nil {
		return BatchResult{}, fmt.Errorf("get pending bills: %w", err)
	}
	res := BatchResult{Total: len(pending)}
	if len(pending) == 0 {
		return res, nil
	}

	slog.InfoContext(ctx, "Processing pending bills", "count", len(pending))

	exported, err := w.exportedIDs(ctx)
	if err != nil {
		return res, err
	}

	var synced, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, p := range pending {
		g.Go(func() error {
			if err := w.syncBill(gctx, p, exported); err != nil {
				slog.ErrorContext(gctx, "Failed to sync bill", "id", p.Bill.ID, "error", err)
				failed.Add(1)
				return nil
			}
			synced.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	res.Synced = synced.Load()
	res.Errors = failed.Load()
	return res, nil
}

func (w *SyncWorker) exportedIDs(ctx context.Context) (map[string]struct{}, error) {
	if w.lister == nil {
		return nil, nil
	}
	ids, err := w.lister.ExportedBillIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("read exported bills: %w", err)
	}
	return ids, nil
}

func (w *SyncWorker) syncBill(ctx context.Context, p storage.PendingSyncBill, exported map[string]struct{}) error {
	id := p.Bill.ID

	ref := "existing row"
	if _, done := exported[id]; !done {
		var err error
		ref, err = w.exporter.AppendBill(ctx, p.Bill)
		if err != nil {
			if markErr := w.source.MarkSyncError(ctx, id, err); markErr != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
			}
			return fmt.Errorf("append to sheets: %w", err)
		}
	}

	if err := w.source.MarkSynced(ctx, id, p.Version); err != nil {
		// The row exists; a stale version is re-exported on the next pass.
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Successfully synced bill",
		"id", id,
		"sheets_ref", ref,
		"amount", p.Bill.Amount)
	return nil
}
