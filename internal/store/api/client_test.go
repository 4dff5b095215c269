package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"billed/internal/core"
	"billed/internal/store"
	"billed/internal/store/memory"
)

func newTestClient(t *testing.T, resource store.BillsResource) *Client {
	t.Helper()
	srv := httptest.NewServer(NewHandler(resource, 1<<20, nil))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL+"/", time.Second, WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestClient_RoundTrip(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewSeeded()
	c := newTestClient(t, mem)

	bills, err := c.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(bills) != len(memory.Fixtures()) {
		t.Fatalf("List returned %d bills, want %d", len(bills), len(memory.Fixtures()))
	}

	res, err := c.Create(ctx, core.ProofFile{Name: `C:\fakepath\ticket.png`, Data: []byte("png")},
		store.CreateMeta{Email: "employee@test.tld"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.Key == "" || !strings.HasSuffix(res.FileURL, "/ticket.png") {
		t.Fatalf("unexpected upload result %+v", res)
	}
	if data, ok := mem.Proof(res.Key); !ok || string(data) != "png" {
		t.Errorf("proof not stored: %q %v", data, ok)
	}

	payload := `{"email":"employee@test.tld","type":"Transports","name":"Taxi","amount":12.5,"date":"2024-03-01","status":"pending"}`
	if err := c.Update(ctx, res.Key, []byte(payload)); err != nil {
		t.Fatalf("Update: %v", err)
	}

	bills, _ = mem.List(ctx)
	var got core.Bill
	for _, b := range bills {
		if b.ID == res.Key {
			got = b
		}
	}
	if got.Name != "Taxi" || got.Amount != 12.5 {
		t.Errorf("update not applied: %+v", got)
	}
}

func TestClient_Errors(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, memory.New())

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{
			name: "invalid extension",
			call: func() error {
				_, err := c.Create(ctx, core.ProofFile{Name: "doc.pdf", Data: []byte("x")}, store.CreateMeta{Email: "a@a"})
				return err
			},
			want: core.ErrInvalidProofType,
		},
		{
			name: "missing email",
			call: func() error {
				_, err := c.Create(ctx, core.ProofFile{Name: "a.jpg", Data: []byte("x")}, store.CreateMeta{})
				return err
			},
			want: core.ErrEmptyEmail,
		},
		{
			name: "unknown bill",
			call: func() error { return c.Update(ctx, "nope", []byte(`{"email":"a@a"}`)) },
			want: core.ErrBillNotFound,
		},
		{
			name: "empty selector",
			call: func() error { return c.Update(ctx, "", []byte(`{}`)) },
			want: core.ErrBillNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestHandler_BadRequests(t *testing.T) {
	h := NewHandler(memory.New(), 16, nil)

	tests := []struct {
		name        string
		method      string
		path        string
		body        string
		contentType string
		want        int
	}{
		{"invalid JSON", http.MethodPatch, "/api/bills/x", "{", "application/json", http.StatusBadRequest},
		{"not multipart", http.MethodPost, "/api/bills", "a=b", "application/x-www-form-urlencoded", http.StatusBadRequest},
		{"unknown method", http.MethodDelete, "/api/bills/x", "", "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.contentType != "" {
				r.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestHandler_ListEmptyIsArray(t *testing.T) {
	h := NewHandler(memory.New(), 16, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bills", nil))
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestNew_RejectsBadURL(t *testing.T) {
	if _, err := New("ftp://host", time.Second); err == nil {
		t.Error("expected error for ftp scheme")
	}
}
