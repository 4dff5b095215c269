package worker

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"billed/internal/amqp"
	"billed/internal/core"
	"billed/internal/storage"
)

type fakeExporter struct {
	mu   sync.Mutex
	rows []core.Bill
	err  error
}

func (f *fakeExporter) AppendBill(_ context.Context, b core.Bill) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.rows = append(f.rows, b)
	return "Sheet!A2:L2", nil
}

func (f *fakeExporter) ExportedBillIDs(context.Context) (map[string]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := map[string]struct{}{}
	for _, b := range f.rows {
		ids[b.ID] = struct{}{}
	}
	return ids, nil
}

func (f *fakeExporter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

func newRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "billed.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

// submitted creates a bill and updates it, as the NewBill form does.
func submitted(t *testing.T, repo *storage.SQLiteRepository, name string) core.Bill {
	t.Helper()
	ctx := context.Background()
	b, err := repo.CreateBill(ctx, core.Bill{Email: "a@a"})
	if err != nil {
		t.Fatalf("CreateBill: %v", err)
	}
	b.Name = name
	b.Amount = 10
	if err := repo.UpdateBill(ctx, b); err != nil {
		t.Fatalf("UpdateBill: %v", err)
	}
	return b
}

func TestHandleSyncMessage(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	exp := &fakeExporter{}
	w := NewSyncWorker(repo, exp, exp, 10, 2)

	b := submitted(t, repo, "Taxi")
	if err := w.HandleSyncMessage(ctx, amqp.NewBillSyncMessage(b.ID)); err != nil {
		t.Fatalf("HandleSyncMessage: %v", err)
	}
	if exp.count() != 1 {
		t.Fatalf("expected one exported row, got %d", exp.count())
	}

	// Redelivery is a no-op.
	if err := w.HandleSyncMessage(ctx, amqp.NewBillSyncMessage(b.ID)); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if exp.count() != 1 {
		t.Fatalf("redelivery exported again: %d rows", exp.count())
	}

	// Unknown bills are dropped.
	if err := w.HandleSyncMessage(ctx, amqp.NewBillSyncMessage("missing")); err != nil {
		t.Fatalf("unknown bill: %v", err)
	}
}

func TestHandleSyncMessageSkipsDrafts(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	exp := &fakeExporter{}
	w := NewSyncWorker(repo, exp, nil, 10, 1)

	draft, _ := repo.CreateBill(ctx, core.Bill{Email: "a@a"})
	if err := w.HandleSyncMessage(ctx, amqp.NewBillSyncMessage(draft.ID)); err != nil {
		t.Fatalf("HandleSyncMessage: %v", err)
	}
	if exp.count() != 0 {
		t.Fatal("drafts must not be exported")
	}
}

func TestHandleSyncMessageExportFailure(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	exp := &fakeExporter{err: errors.New("quota exceeded")}
	w := NewSyncWorker(repo, exp, nil, 10, 1)

	b := submitted(t, repo, "Hotel")
	if err := w.HandleSyncMessage(ctx, amqp.NewBillSyncMessage(b.ID)); err == nil {
		t.Fatal("expected error so the message is requeued")
	}
	stats, _ := repo.SyncStats(ctx)
	if stats[storage.SyncError] != 1 {
		t.Errorf("expected bill marked with sync error, got %v", stats)
	}
}

func TestProcessPendingBills(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	exp := &fakeExporter{}
	w := NewSyncWorker(repo, exp, exp, 10, 3)

	for _, name := range []string{"a", "b", "c", "d"} {
		submitted(t, repo, name)
	}
	repo.CreateBill(ctx, core.Bill{Email: "a@a"}) // draft, ignored

	res, err := w.ProcessPendingBills(ctx)
	if err != nil {
		t.Fatalf("ProcessPendingBills: %v", err)
	}
	if res.Total != 4 || res.Synced != 4 || res.Errors != 0 {
		t.Errorf("unexpected result %+v", res)
	}
	if exp.count() != 4 {
		t.Errorf("expected 4 rows, got %d", exp.count())
	}

	res, _ = w.ProcessPendingBills(ctx)
	if res.Total != 0 {
		t.Errorf("second pass should find nothing, got %+v", res)
	}
}

func TestStartupSyncCheckCountsErrors(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	exp := &fakeExporter{err: errors.New("sheets down")}
	w := NewSyncWorker(repo, exp, nil, 1, 1)

	submitted(t, repo, "a")
	submitted(t, repo, "b")

	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatalf("StartupSyncCheck: %v", err)
	}
	stats, _ := repo.SyncStats(ctx)
	if stats[storage.SyncError] != 2 {
		t.Errorf("expected both bills in error, got %v", stats)
	}
}
