package memory

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"billed/internal/core"
	"billed/internal/store"
)

func TestSeededList(t *testing.T) {
	s := NewSeeded()
	bills, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(bills) != 4 {
		t.Fatalf("expected 4 fixtures, got %d", len(bills))
	}
	// Callers get a copy.
	bills[0].Name = "changed"
	again, _ := s.List(context.Background())
	if again[0].Name == "changed" {
		t.Fatalf("List leaked internal slice")
	}
}

func TestCreateThenUpdate(t *testing.T) {
	ctx := context.Background()
	s := New()

	res, err := s.Create(ctx, core.ProofFile{Name: `C:\fakepath\test.jpg`, Data: []byte("img")}, store.CreateMeta{Email: "e@x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.Key == "" || !strings.HasSuffix(res.FileURL, "/test.jpg") {
		t.Fatalf("unexpected upload result: %+v", res)
	}
	if data, ok := s.Proof(res.Key); !ok || string(data) != "img" {
		t.Fatalf("proof not kept: %q %v", data, ok)
	}

	bill := core.Bill{Email: "e@x", Name: "Taxi", Amount: 12, Date: "2024-01-02", Pct: 20, Status: core.StatusPending, FileURL: res.FileURL, FileName: "test.jpg"}
	payload, _ := json.Marshal(bill)
	if err := s.Update(ctx, res.Key, payload); err != nil {
		t.Fatalf("update: %v", err)
	}
	bills, _ := s.List(ctx)
	if len(bills) != 1 || bills[0].Name != "Taxi" || bills[0].ID != res.Key {
		t.Fatalf("unexpected bills after update: %+v", bills)
	}
}

func TestCreateRejectsInvalidProof(t *testing.T) {
	s := New()
	_, err := s.Create(context.Background(), core.ProofFile{Name: "test.pdf", Data: []byte("x")}, store.CreateMeta{Email: "e@x"})
	if !errors.Is(err, core.ErrInvalidProofType) {
		t.Fatalf("expected ErrInvalidProofType, got %v", err)
	}
}

func TestUpdateUnknownSelector(t *testing.T) {
	s := New()
	err := s.Update(context.Background(), "missing", []byte(`{"email":"a@a"}`))
	if !errors.Is(err, core.ErrBillNotFound) {
		t.Fatalf("expected ErrBillNotFound, got %v", err)
	}
	if err := s.Update(context.Background(), "missing", []byte(`{`)); err == nil {
		t.Fatalf("expected decode error")
	}
}
