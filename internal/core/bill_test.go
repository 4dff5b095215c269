package core

import (
	"errors"
	"testing"
)

func TestValidateProofName(t *testing.T) {
	cases := []struct {
		name string
		ok   bool
	}{
		{"test.jpg", true},
		{"test.jpeg", true},
		{"test.png", true},
		{"TEST.JPG", true},
		{"Scan.PnG", true},
		{`C:\fakepath\receipt.jpeg`, true},
		{"test.pdf", false},
		{"test.txt", false},
		{"jpg", false},
		{"archive.jpg.zip", false},
		{"noext.", false},
		{"", false},
	}
	for _, tc := range cases {
		err := ValidateProofName(tc.name)
		if tc.ok && err != nil {
			t.Errorf("ValidateProofName(%q) unexpected error: %v", tc.name, err)
		}
		if !tc.ok {
			if err == nil {
				t.Errorf("ValidateProofName(%q) expected error", tc.name)
			} else if !errors.Is(err, ErrInvalidProofType) {
				t.Errorf("ValidateProofName(%q) error %v is not ErrInvalidProofType", tc.name, err)
			}
		}
	}
}

func TestProofFileName(t *testing.T) {
	cases := map[string]string{
		"test.jpg":                  "test.jpg",
		`C:\fakepath\test.jpg`:      "test.jpg",
		"/home/me/receipts/a.png":   "a.png",
		"uploads/2024/01/scan.jpeg": "scan.jpeg",
	}
	for in, want := range cases {
		if got := ProofFileName(in); got != want {
			t.Errorf("ProofFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBillValidate(t *testing.T) {
	good := Bill{Email: "a@a", Status: StatusPending}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Bill{Status: StatusPending}).Validate(); !errors.Is(err, ErrEmptyEmail) {
		t.Fatalf("expected ErrEmptyEmail, got %v", err)
	}
	if err := (Bill{Email: "a@a", Status: "lost"}).Validate(); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestProofFileValidate(t *testing.T) {
	if err := (ProofFile{Name: "a.png"}).Validate(); !errors.Is(err, ErrEmptyProof) {
		t.Fatalf("expected ErrEmptyProof, got %v", err)
	}
	if err := (ProofFile{Name: "a.gif", Data: []byte("x")}).Validate(); !errors.Is(err, ErrInvalidProofType) {
		t.Fatalf("expected ErrInvalidProofType, got %v", err)
	}
	if err := (ProofFile{Name: "a.png", Data: []byte("x")}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}
