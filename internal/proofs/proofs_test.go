package proofs

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"billed/internal/core"
	"billed/internal/log"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"abc/test.jpg", false},
		{"abc/déjà vu.png", false},
		{"", true},
		{"/etc/passwd", true},
		{"../secret.jpg", true},
		{"abc/../../x.jpg", true},
		{`abc\x.jpg`, true},
		{"abc//x.jpg", true},
	}
	for _, tt := range tests {
		err := ValidateKey(tt.key)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateKey(%q) err = %v, wantErr %v", tt.key, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidKey) {
			t.Errorf("ValidateKey(%q) should wrap ErrInvalidKey", tt.key)
		}
	}
}

func TestKeyStripsPath(t *testing.T) {
	if got := Key("b1", `C:\fakepath\receipt.jpg`); got != "b1/receipt.jpg" {
		t.Errorf("Key = %q", got)
	}
}

func TestLocalSaveOpen(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocal(t.TempDir(), "http://localhost:8080/proofs/", log.Discard())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	url, err := store.Save(ctx, "b1/my receipt.png", core.ProofFile{Name: "my receipt.png", Data: []byte("png")})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if url != "http://localhost:8080/proofs/b1/my%20receipt.png" {
		t.Errorf("url = %q", url)
	}

	rc, contentType, err := store.Open(ctx, "b1/my receipt.png")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "png" || contentType != "image/png" {
		t.Errorf("got %q %q", data, contentType)
	}

	if _, _, err := store.Open(ctx, "b1/missing.png"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Save(ctx, "../escape.png", core.ProofFile{Data: []byte("x")}); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}

// fakeS3 answers PutObject and GetObject for path-style requests.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.Method {
	case http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = data
		f.types[r.URL.Path] = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		data, ok := f.objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", f.types[r.URL.Path])
		w.Write(data)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestS3SaveOpen(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	ctx := context.Background()
	store, err := NewS3(ctx, S3Config{
		Bucket:          "proofs",
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		PublicBaseURL:   "https://cdn.example.com",
		Prefix:          "bills",
	}, log.Discard())
	if err != nil {
		t.Fatalf("NewS3: %v", err)
	}

	url, err := store.Save(ctx, "b1/test.jpg", core.ProofFile{Name: "test.jpg", ContentType: "image/jpeg", Data: []byte("jpg")})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if url != "https://cdn.example.com/bills/b1/test.jpg" {
		t.Errorf("url = %q", url)
	}
	if _, ok := fake.objects["/proofs/bills/b1/test.jpg"]; !ok {
		t.Fatalf("object not stored, have %v", fake.objects)
	}

	rc, contentType, err := store.Open(ctx, "b1/test.jpg")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "jpg" || contentType != "image/jpeg" {
		t.Errorf("got %q %q", data, contentType)
	}

	if _, _, err := store.Open(ctx, "b1/missing.jpg"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestS3PresignedURL(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	ctx := context.Background()
	store, err := NewS3(ctx, S3Config{
		Bucket:          "proofs",
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
	}, log.Discard())
	if err != nil {
		t.Fatalf("NewS3: %v", err)
	}
	url, err := store.Save(ctx, "b2/test.png", core.ProofFile{Name: "test.png", Data: []byte("png")})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(url, srv.URL+"/proofs/b2/test.png?") || !strings.Contains(url, "X-Amz-Signature=") {
		t.Errorf("expected a presigned URL, got %q", url)
	}
}

func TestNewS3RequiresBucket(t *testing.T) {
	if _, err := NewS3(context.Background(), S3Config{}, nil); err == nil {
		t.Fatal("expected an error without bucket")
	}
}
