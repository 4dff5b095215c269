package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"billed/internal/core"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Sync states of a stored bill. Drafts hold an uploaded proof only and are
// never exported.
const (
	SyncDraft   = "draft"
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncError   = "error"
)

// ErrStaleVersion is returned by MarkSynced when the bill changed since it was read.
var ErrStaleVersion = errors.New("bill changed since it was read")

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

// PendingSyncBill is a bill waiting for export, with the version it was read at.
type PendingSyncBill struct {
	Bill       core.Bill
	Version    int64
	SyncStatus string
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

// dsn waits on locks instead of failing when the server and the worker write
// at the same time.
func dsn(dbPath string) string {
	return dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateBill inserts b as a draft. An empty ID gets a fresh one.
func (r *SQLiteRepository) CreateBill(ctx context.Context, b core.Bill) (core.Bill, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = core.StatusPending
	}
	if err := b.Validate(); err != nil {
		return core.Bill{}, err
	}
	row, err := r.queries.CreateBill(ctx, CreateBillParams{
		ID:         b.ID,
		Email:      b.Email,
		Type:       b.Type,
		Name:       b.Name,
		Amount:     b.Amount,
		Date:       b.Date,
		Vat:        b.VAT,
		Pct:        int64(b.Pct),
		Commentary: b.Commentary,
		FileUrl:    b.FileURL,
		FileName:   b.FileName,
		Status:     string(b.Status),
	})
	if err != nil {
		return core.Bill{}, fmt.Errorf("create bill: %w", err)
	}

	slog.DebugContext(ctx, "Bill saved to SQLite",
		"id", row.ID,
		"email", row.Email,
		"file_name", row.FileName)

	return toCore(row), nil
}

// GetBill returns the bill stored under id or core.ErrBillNotFound.
func (r *SQLiteRepository) GetBill(ctx context.Context, id string) (core.Bill, error) {
	row, err := r.queries.GetBill(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Bill{}, fmt.Errorf("get bill %s: %w", id, core.ErrBillNotFound)
	}
	if err != nil {
		return core.Bill{}, fmt.Errorf("get bill %s: %w", id, err)
	}
	return toCore(row), nil
}

// ListBills returns every bill in creation order.
func (r *SQLiteRepository) ListBills(ctx context.Context) ([]core.Bill, error) {
	rows, err := r.queries.ListBills(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	return toCoreSlice(rows), nil
}

// ListBillsByEmail returns the bills of one employee in creation order.
func (r *SQLiteRepository) ListBillsByEmail(ctx context.Context, email string) ([]core.Bill, error) {
	rows, err := r.queries.ListBillsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("list bills for %s: %w", email, err)
	}
	return toCoreSlice(rows), nil
}

// UpdateBill overwrites the stored bill and queues it for export.
func (r *SQLiteRepository) UpdateBill(ctx context.Context, b core.Bill) error {
	if err := b.Validate(); err != nil {
		return err
	}
	n, err := r.queries.UpdateBill(ctx, UpdateBillParams{
		Email:      b.Email,
		Type:       b.Type,
		Name:       b.Name,
		Amount:     b.Amount,
		Date:       b.Date,
		Vat:        b.VAT,
		Pct:        int64(b.Pct),
		Commentary: b.Commentary,
		FileUrl:    b.FileURL,
		FileName:   b.FileName,
		Status:     string(b.Status),
		ID:         b.ID,
	})
	if err != nil {
		return fmt.Errorf("update bill %s: %w", b.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("update bill %s: %w", b.ID, core.ErrBillNotFound)
	}
	return nil
}

// GetPendingSyncBills returns up to limit bills waiting for export, oldest first.
func (r *SQLiteRepository) GetPendingSyncBills(ctx context.Context, limit int) ([]PendingSyncBill, error) {
	rows, err := r.queries.GetPendingSyncBills(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync bills: %w", err)
	}

	bills := make([]PendingSyncBill, len(rows))
	for i, row := range rows {
		bills[i] = PendingSyncBill{Bill: toCore(row), Version: row.Version, SyncStatus: row.SyncStatus}
	}
	return bills, nil
}

// GetBillVersion returns a bill together with its current version.
func (r *SQLiteRepository) GetBillVersion(ctx context.Context, id string) (PendingSyncBill, error) {
	row, err := r.queries.GetBill(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return PendingSyncBill{}, fmt.Errorf("get bill %s: %w", id, core.ErrBillNotFound)
	}
	if err != nil {
		return PendingSyncBill{}, fmt.Errorf("get bill %s: %w", id, err)
	}
	return PendingSyncBill{Bill: toCore(row), Version: row.Version, SyncStatus: row.SyncStatus}, nil
}

// MarkSynced marks a bill as exported, provided it is still at version.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, version int64) error {
	n, err := r.queries.MarkBillSynced(ctx, id, version)
	if err != nil {
		return fmt.Errorf("mark bill synced: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("mark bill %s synced: %w", id, ErrStaleVersion)
	}

	slog.InfoContext(ctx, "Bill marked as synced", "id", id, "version", version)
	return nil
}

// MarkSyncError records an export failure.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if err := r.queries.MarkBillSyncError(ctx, id, msg); err != nil {
		return fmt.Errorf("mark bill sync error: %w", err)
	}

	slog.WarnContext(ctx, "Bill marked with sync error", "id", id, "error", msg)
	return nil
}

// SyncStats counts bills per sync state.
func (r *SQLiteRepository) SyncStats(ctx context.Context) (map[string]int64, error) {
	rows, err := r.queries.CountBillsBySyncStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count bills by sync status: %w", err)
	}
	stats := map[string]int64{SyncDraft: 0, SyncPending: 0, SyncSynced: 0, SyncError: 0}
	for _, row := range rows {
		stats[row.SyncStatus] = row.Count
	}
	return stats, nil
}

func toCore(row Bill) core.Bill {
	return core.Bill{
		ID:         row.ID,
		Email:      row.Email,
		Type:       row.Type,
		Name:       row.Name,
		Amount:     row.Amount,
		Date:       row.Date,
		VAT:        row.Vat,
		Pct:        int(row.Pct),
		Commentary: row.Commentary,
		FileURL:    row.FileUrl,
		FileName:   row.FileName,
		Status:     core.Status(row.Status),
	}
}

func toCoreSlice(rows []Bill) []core.Bill {
	bills := make([]core.Bill, len(rows))
	for i, row := range rows {
		bills[i] = toCore(row)
	}
	return bills
}
