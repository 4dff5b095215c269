package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"billed/internal/core"
	"billed/internal/store"

	"github.com/google/uuid"
)

// ProofBaseURL prefixes the URLs of proofs kept by the in-memory store.
const ProofBaseURL = "https://localhost:3456/proofs/"

// Store is an in-memory bills resource. Safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	bills  []core.Bill
	proofs map[string][]byte
}

var _ store.BillsResource = (*Store)(nil)

func New(bills ...core.Bill) *Store {
	s := &Store{proofs: map[string][]byte{}}
	s.bills = append(s.bills, bills...)
	return s
}

// NewSeeded returns a store holding the sample bills used in development.
func NewSeeded() *Store {
	return New(Fixtures()...)
}

// List returns a copy of every stored bill in insertion order.
func (s *Store) List(_ context.Context) ([]core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Bill(nil), s.bills...), nil
}

// Create keeps the proof and inserts a pending draft bill for meta.Email.
func (s *Store) Create(_ context.Context, file core.ProofFile, meta store.CreateMeta) (store.UploadResult, error) {
	if err := file.Validate(); err != nil {
		return store.UploadResult{}, err
	}
	if meta.Email == "" {
		return store.UploadResult{}, core.ErrEmptyEmail
	}
	id := uuid.NewString()
	name := core.ProofFileName(file.Name)
	url := ProofBaseURL + id + "/" + name

	s.mu.Lock()
	defer s.mu.Unlock()
	s.proofs[id] = append([]byte(nil), file.Data...)
	s.bills = append(s.bills, core.Bill{
		ID:       id,
		Email:    meta.Email,
		FileURL:  url,
		FileName: name,
		Status:   core.StatusPending,
	})
	return store.UploadResult{FileURL: url, Key: id}, nil
}

// Update decodes data as a bill and replaces the one stored under selector.
func (s *Store) Update(_ context.Context, selector string, data []byte) error {
	var b core.Bill
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("decode bill: %w", err)
	}
	b.ID = selector

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.bills {
		if s.bills[i].ID == selector {
			s.bills[i] = b
			return nil
		}
	}
	return fmt.Errorf("update %s: %w", selector, core.ErrBillNotFound)
}

// Proof returns the bytes uploaded for the bill id.
func (s *Store) Proof(id string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.proofs[id]
	return data, ok
}
