package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"billed/internal/core"
)

func newTestRepo(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "billed.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func TestMigrationsApplied(t *testing.T) {
	_, path := newTestRepo(t)
	version, dirty, err := SchemaVersion(path)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if version != 1 || dirty {
		t.Errorf("version = %d dirty = %v, want 1 clean", version, dirty)
	}
	// Running again is a no-op.
	if err := RunMigrations(path); err != nil {
		t.Fatalf("second RunMigrations: %v", err)
	}
}

func TestCreateGetUpdate(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	draft, err := repo.CreateBill(ctx, core.Bill{
		Email:    "a@a",
		FileURL:  "http://localhost/proofs/x/test.jpg",
		FileName: "test.jpg",
	})
	if err != nil {
		t.Fatalf("CreateBill: %v", err)
	}
	if draft.ID == "" || draft.Status != core.StatusPending {
		t.Fatalf("unexpected draft %+v", draft)
	}

	draft.Name = "Taxi"
	draft.Amount = 42.5
	draft.Date = "2024-03-01"
	draft.Pct = 20
	if err := repo.UpdateBill(ctx, draft); err != nil {
		t.Fatalf("UpdateBill: %v", err)
	}

	got, err := repo.GetBill(ctx, draft.ID)
	if err != nil {
		t.Fatalf("GetBill: %v", err)
	}
	if got != draft {
		t.Errorf("got %+v, want %+v", got, draft)
	}

	bills, err := repo.ListBillsByEmail(ctx, "a@a")
	if err != nil || len(bills) != 1 {
		t.Fatalf("ListBillsByEmail = %v, %v", bills, err)
	}
}

func TestGetAndUpdateMissing(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	if _, err := repo.GetBill(ctx, "nope"); !errors.Is(err, core.ErrBillNotFound) {
		t.Errorf("GetBill: expected ErrBillNotFound, got %v", err)
	}
	err := repo.UpdateBill(ctx, core.Bill{ID: "nope", Email: "a@a", Status: core.StatusPending})
	if !errors.Is(err, core.ErrBillNotFound) {
		t.Errorf("UpdateBill: expected ErrBillNotFound, got %v", err)
	}
}

func TestSyncLifecycle(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	draft, err := repo.CreateBill(ctx, core.Bill{Email: "a@a"})
	if err != nil {
		t.Fatalf("CreateBill: %v", err)
	}
	pending, err := repo.GetPendingSyncBills(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncBills: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("drafts must not be exported, got %d", len(pending))
	}

	draft.Name = "Hotel"
	if err := repo.UpdateBill(ctx, draft); err != nil {
		t.Fatalf("UpdateBill: %v", err)
	}
	pending, _ = repo.GetPendingSyncBills(ctx, 10)
	if len(pending) != 1 || pending[0].Bill.ID != draft.ID {
		t.Fatalf("expected the submitted bill pending, got %+v", pending)
	}
	version := pending[0].Version

	if err := repo.MarkSyncError(ctx, draft.ID, errors.New("sheets down")); err != nil {
		t.Fatalf("MarkSyncError: %v", err)
	}
	pending, _ = repo.GetPendingSyncBills(ctx, 10)
	if len(pending) != 1 {
		t.Fatalf("errored bills are retried, got %d", len(pending))
	}

	// A concurrent edit makes the read version stale.
	if err := repo.UpdateBill(ctx, draft); err != nil {
		t.Fatalf("UpdateBill: %v", err)
	}
	if err := repo.MarkSynced(ctx, draft.ID, version); !errors.Is(err, ErrStaleVersion) {
		t.Fatalf("expected ErrStaleVersion, got %v", err)
	}

	current, err := repo.GetBillVersion(ctx, draft.ID)
	if err != nil {
		t.Fatalf("GetBillVersion: %v", err)
	}
	if err := repo.MarkSynced(ctx, draft.ID, current.Version); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}

	stats, err := repo.SyncStats(ctx)
	if err != nil {
		t.Fatalf("SyncStats: %v", err)
	}
	if stats[SyncSynced] != 1 || stats[SyncPending] != 0 {
		t.Errorf("unexpected stats %v", stats)
	}
}
