package http

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"billed/internal/ui"
)

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trims whitespace", "  Taxi  ", "Taxi"},
		{"removes control characters", "Ta\x00xi\x07", "Taxi"},
		{"keeps newlines and tabs", "a\tb\nc", "a\tb\nc"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeInput(tt.input); got != tt.want {
				t.Errorf("sanitizeInput(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseModalWidth(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", defaultModalWidth},
		{"width=600", 600},
		{"width=abc", defaultModalWidth},
		{"width=-5", defaultModalWidth},
		{"width=999999", maxModalWidth},
	}

	for _, tt := range tests {
		q, _ := url.ParseQuery(tt.query)
		if got := parseModalWidth(q); got != tt.want {
			t.Errorf("parseModalWidth(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}

func TestParseProofURL(t *testing.T) {
	tests := []struct {
		raw     string
		wantErr bool
	}{
		{"/proofs/b-1/ticket.jpg", false},
		{"https://bucket.example.com/b-1/ticket.jpg", false},
		{"http://localhost:8080/proofs/x.png", false},
		{"", true},
		{"javascript:alert(1)", true},
		{"//evil.example.com/x.png", true},
		{"ftp://host/x.png", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			_, err := parseProofURL(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseProofURL(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errInvalidProofURL) {
				t.Errorf("error %v does not wrap errInvalidProofURL", err)
			}
		})
	}
}

func TestNewBillDocument(t *testing.T) {
	form := url.Values{
		"expense-type": {"Transports"},
		"expense-name": {"  Taxi\x00 "},
		"amount":       {"12.5"},
		"commentary":   {"airport"},
	}
	page := newBillDocument(form)

	if page.Query(ui.SelectorNewBillForm) == nil {
		t.Fatal("form element missing")
	}
	checks := map[string]string{
		ui.SelectorExpenseType: "Transports",
		ui.SelectorExpenseName: "Taxi",
		ui.SelectorAmount:      "12.5",
		ui.SelectorCommentary:  "airport",
		ui.SelectorVAT:         "",
	}
	for sel, want := range checks {
		n := page.Query(sel)
		if n == nil {
			t.Errorf("%s missing", sel)
			continue
		}
		if n.Value() != want {
			t.Errorf("%s = %q, want %q", sel, n.Value(), want)
		}
	}
}

func multipartRequest(t *testing.T, field, name string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		part, err := mw.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		_, _ = part.Write(data)
	}
	_ = mw.WriteField("note", "x")
	_ = mw.Close()

	r := httptest.NewRequest(http.MethodPost, "/bills/new/proof", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestReadProofFile(t *testing.T) {
	t.Run("reads the file", func(t *testing.T) {
		r := multipartRequest(t, "file", "ticket.png", []byte("png-data"))
		f, err := readProofFile(httptest.NewRecorder(), r, 1024)
		if err != nil {
			t.Fatalf("readProofFile: %v", err)
		}
		if f.Name != "ticket.png" || string(f.Data) != "png-data" {
			t.Errorf("unexpected file %+v", f)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		r := multipartRequest(t, "", "", nil)
		if _, err := readProofFile(httptest.NewRecorder(), r, 1024); !errors.Is(err, errMissingProof) {
			t.Errorf("err = %v, want errMissingProof", err)
		}
	})

	t.Run("too large", func(t *testing.T) {
		r := multipartRequest(t, "file", "big.jpg", bytes.Repeat([]byte("x"), 64))
		if _, err := readProofFile(httptest.NewRecorder(), r, 16); !errors.Is(err, errProofTooLarge) {
			t.Errorf("err = %v, want errProofTooLarge", err)
		}
	})

	t.Run("not multipart", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/bills/new/proof", strings.NewReader("a=b"))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if _, err := readProofFile(httptest.NewRecorder(), r, 1024); err == nil {
			t.Error("expected error")
		}
	})
}

func TestParseFormOrFail(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/session", strings.NewReader("email=a%40b.c"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if resp := ParseFormOrFail(r); resp != nil {
		t.Fatal("unexpected error response")
	}
	if r.Form.Get("email") != "a@b.c" {
		t.Errorf("email = %q", r.Form.Get("email"))
	}

	bad := httptest.NewRequest(http.MethodPost, "/session", strings.NewReader("%zz"))
	bad.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := ParseFormOrFail(bad)
	if resp == nil {
		t.Fatal("expected error response")
	}
	w := httptest.NewRecorder()
	resp.Write(w)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
