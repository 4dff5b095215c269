package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Bill is a row of the bills table.
type Bill struct {
	ID         string
	Email      string
	Type       string
	Name       string
	Amount     float64
	Date       string
	Vat        string
	Pct        int64
	Commentary string
	FileUrl    string
	FileName   string
	Status     string
	SyncStatus string
	SyncError  string
	Version    int64
}

const billColumns = `id, email, type, name, amount, date, vat, pct, commentary, file_url, file_name, status, sync_status, sync_error, version`

func scanBill(row interface{ Scan(...any) error }) (Bill, error) {
	var b Bill
	err := row.Scan(
		&b.ID,
		&b.Email,
		&b.Type,
		&b.Name,
		&b.Amount,
		&b.Date,
		&b.Vat,
		&b.Pct,
		&b.Commentary,
		&b.FileUrl,
		&b.FileName,
		&b.Status,
		&b.SyncStatus,
		&b.SyncError,
		&b.Version,
	)
	return b, err
}

const createBill = `
INSERT INTO bills (id, email, type, name, amount, date, vat, pct, commentary, file_url, file_name, status)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + billColumns

type CreateBillParams struct {
	ID         string
	Email      string
	Type       string
	Name       string
	Amount     float64
	Date       string
	Vat        string
	Pct        int64
	Commentary string
	FileUrl    string
	FileName   string
	Status     string
}

func (q *Queries) CreateBill(ctx context.Context, arg CreateBillParams) (Bill, error) {
	row := q.db.QueryRowContext(ctx, createBill,
		arg.ID,
		arg.Email,
		arg.Type,
		arg.Name,
		arg.Amount,
		arg.Date,
		arg.Vat,
		arg.Pct,
		arg.Commentary,
		arg.FileUrl,
		arg.FileName,
		arg.Status,
	)
	return scanBill(row)
}

const getBill = `SELECT ` + billColumns + ` FROM bills WHERE id = ?`

func (q *Queries) GetBill(ctx context.Context, id string) (Bill, error) {
	return scanBill(q.db.QueryRowContext(ctx, getBill, id))
}

const listBills = `SELECT ` + billColumns + ` FROM bills ORDER BY created_at, rowid`

func (q *Queries) ListBills(ctx context.Context) ([]Bill, error) {
	return q.queryBills(ctx, listBills)
}

const listBillsByEmail = `SELECT ` + billColumns + ` FROM bills WHERE email = ? ORDER BY created_at, rowid`

func (q *Queries) ListBillsByEmail(ctx context.Context, email string) ([]Bill, error) {
	return q.queryBills(ctx, listBillsByEmail, email)
}

const updateBill = `
UPDATE bills
SET email = ?, type = ?, name = ?, amount = ?, date = ?, vat = ?, pct = ?,
    commentary = ?, file_url = ?, file_name = ?, status = ?,
    sync_status = 'pending', sync_error = '',
    version = version + 1, updated_at = CURRENT_TIMESTAMP
WHERE id = ?`

type UpdateBillParams struct {
	Email      string
	Type       string
	Name       string
	Amount     float64
	Date       string
	Vat        string
	Pct        int64
	Commentary string
	FileUrl    string
	FileName   string
	Status     string
	ID         string
}

func (q *Queries) UpdateBill(ctx context.Context, arg UpdateBillParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateBill,
		arg.Email,
		arg.Type,
		arg.Name,
		arg.Amount,
		arg.Date,
		arg.Vat,
		arg.Pct,
		arg.Commentary,
		arg.FileUrl,
		arg.FileName,
		arg.Status,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getPendingSyncBills = `
SELECT ` + billColumns + ` FROM bills
WHERE sync_status IN ('pending', 'error')
ORDER BY updated_at, rowid
LIMIT ?`

func (q *Queries) GetPendingSyncBills(ctx context.Context, limit int64) ([]Bill, error) {
	return q.queryBills(ctx, getPendingSyncBills, limit)
}

const markBillSynced = `
UPDATE bills
SET sync_status = 'synced', sync_error = '', synced_at = CURRENT_TIMESTAMP
WHERE id = ? AND version = ?`

func (q *Queries) MarkBillSynced(ctx context.Context, id string, version int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, markBillSynced, id, version)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const markBillSyncError = `
UPDATE bills
SET sync_status = 'error', sync_error = ?
WHERE id = ?`

func (q *Queries) MarkBillSyncError(ctx context.Context, id, message string) error {
	_, err := q.db.ExecContext(ctx, markBillSyncError, message, id)
	return err
}

const countBillsBySyncStatus = `SELECT sync_status, COUNT(*) FROM bills GROUP BY sync_status`

type SyncStatusCount struct {
	SyncStatus string
	Count      int64
}

func (q *Queries) CountBillsBySyncStatus(ctx context.Context) ([]SyncStatusCount, error) {
	rows, err := q.db.QueryContext(ctx, countBillsBySyncStatus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SyncStatusCount
	for rows.Next() {
		var i SyncStatusCount
		if err := rows.Scan(&i.SyncStatus, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (q *Queries) queryBills(ctx context.Context, query string, args ...interface{}) ([]Bill, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Bill
	for rows.Next() {
		i, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
