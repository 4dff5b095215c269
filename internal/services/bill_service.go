package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"billed/internal/core"
	"billed/internal/proofs"
	"billed/internal/store"

	"github.com/google/uuid"
)

// BillRepository persists bills.
type BillRepository interface {
	CreateBill(ctx context.Context, b core.Bill) (core.Bill, error)
	GetBill(ctx context.Context, id string) (core.Bill, error)
	ListBills(ctx context.Context) ([]core.Bill, error)
	UpdateBill(ctx context.Context, b core.Bill) error
}

// SyncPublisher announces bills ready for export.
type SyncPublisher interface {
	PublishBillSync(ctx context.Context, id string) error
}

// BillService is the server side of the bills resource: proofs go to proof
// storage, records to the repository, and submitted bills are announced for
// export.
type BillService struct {
	repo      BillRepository
	proofs    proofs.Storage
	publisher SyncPublisher
}

var _ store.BillsResource = (*BillService)(nil)

// NewBillService wires the service. publisher may be nil when no broker is
// configured; bills are then exported by the worker's periodic catch-up.
func NewBillService(repo BillRepository, proofStorage proofs.Storage, publisher SyncPublisher) *BillService {
	return &BillService{
		repo:      repo,
		proofs:    proofStorage,
		publisher: publisher,
	}
}

// List returns every bill.
func (s *BillService) List(ctx context.Context) ([]core.Bill, error) {
	bills, err := s.repo.ListBills(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	return bills, nil
}

// Create stores the proof and a pending draft bill pointing at it.
func (s *BillService) Create(ctx context.Context, file core.ProofFile, meta store.CreateMeta) (store.UploadResult, error) {
	if err := file.Validate(); err != nil {
		return store.UploadResult{}, err
	}
	if meta.Email == "" {
		return store.UploadResult{}, core.ErrEmptyEmail
	}

	id := uuid.NewString()
	fileName := core.ProofFileName(file.Name)
	url, err := s.proofs.Save(ctx, proofs.Key(id, fileName), file)
	if err != nil {
		return store.UploadResult{}, fmt.Errorf("save proof: %w", err)
	}

	draft, err := s.repo.CreateBill(ctx, core.Bill{
		ID:       id,
		Email:    meta.Email,
		FileURL:  url,
		FileName: fileName,
		Pct:      core.DefaultPct,
		Status:   core.StatusPending,
	})
	if err != nil {
		return store.UploadResult{}, fmt.Errorf("save draft bill: %w", err)
	}

	slog.InfoContext(ctx, "Proof uploaded",
		"id", draft.ID,
		"email", draft.Email,
		"file_name", fileName)

	return store.UploadResult{FileURL: url, Key: draft.ID}, nil
}

// Update merges the JSON bill in data into the bill stored under selector.
// Fields absent from data keep their stored value.
func (s *BillService) Update(ctx context.Context, selector string, data []byte) error {
	current, err := s.repo.GetBill(ctx, selector)
	if err != nil {
		return err
	}

	merged := current
	if err := json.Unmarshal(data, &merged); err != nil {
		return fmt.Errorf("decode bill: %w", err)
	}
	merged.ID = current.ID
	if merged.Email == "" {
		merged.Email = current.Email
	}
	if merged.Status == "" {
		merged.Status = current.Status
	}
	if err := merged.Validate(); err != nil {
		return err
	}

	if err := s.repo.UpdateBill(ctx, merged); err != nil {
		return fmt.Errorf("save bill: %w", err)
	}

	// The bill is saved; a lost message is recovered by the worker's catch-up.
	if err := s.publishSyncMessage(ctx, merged.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", merged.ID, "error", err)
	}
	return nil
}

// Proof opens a stored proof for serving.
func (s *BillService) Proof(ctx context.Context, key string) (io.ReadCloser, string, error) {
	return s.proofs.Open(ctx, key)
}

func (s *BillService) publishSyncMessage(ctx context.Context, id string) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping sync message", "id", id)
		return nil
	}
	return s.publisher.PublishBillSync(ctx, id)
}

// Close closes the repository and publisher when they hold resources.
func (s *BillService) Close() error {
	var errs []error

	if c, ok := s.repo.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.publisher.(io.Closer); ok && c != nil {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close bill service: %w", errors.Join(errs...))
	}
	return nil
}
