package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"billed/internal/config"
	"billed/internal/core"
	"billed/internal/store"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("expected error for unknown backend")
	}

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:  "sqlite",
		SQLiteDBPath: "x.db",
		ProofStorage: "s3",
		S3Bucket:     "proofs",
		S3Region:     "eu-west-3",
	})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.S3.Bucket != "proofs" || cfg.S3.Region != "eu-west-3" {
		t.Errorf("unexpected config %+v", cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"unknown", Config{Type: "sheets"}, true},
		{"sqlite without path", Config{Type: SQLiteBackend, ProofStorage: "local", ProofDir: "p"}, true},
		{"sqlite without proof dir", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db", ProofStorage: "local"}, true},
		{"sqlite s3 without bucket", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db", ProofStorage: "s3"}, true},
		{"sqlite bad proof storage", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db", ProofStorage: "ftp"}, true},
		{"api without url", Config{Type: APIBackend}, true},
		{"api", Config{Type: APIBackend, StoreAPIURL: "http://x"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	t.Run("memory", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: MemoryBackend, Seed: true})
		if err != nil {
			t.Fatalf("CreateBackend: %v", err)
		}
		bills, _ := res.Resource.List(ctx)
		if len(bills) == 0 {
			t.Error("seeded memory backend is empty")
		}
		if res.Proofs != nil || res.Close() != nil {
			t.Error("memory backend has no proofs and nothing to close")
		}
	})

	t.Run("api", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: APIBackend, StoreAPIURL: "http://localhost:1", StoreAPITimeout: time.Second})
		if err != nil {
			t.Fatalf("CreateBackend: %v", err)
		}
		if res.Type != APIBackend || res.Resource == nil {
			t.Errorf("unexpected result %+v", res)
		}
	})

	t.Run("sqlite with local proofs", func(t *testing.T) {
		dir := t.TempDir()
		res, err := f.CreateBackend(ctx, Config{
			Type:         SQLiteBackend,
			SQLiteDBPath: filepath.Join(dir, "billed.db"),
			ProofStorage: config.ProofStorageLocal,
			ProofDir:     filepath.Join(dir, "proofs"),
			ProofBaseURL: "http://localhost:8080/proofs",
		})
		if err != nil {
			t.Fatalf("CreateBackend: %v", err)
		}
		defer res.Close()

		if err := res.Ready(ctx); err != nil {
			t.Fatalf("Ready: %v", err)
		}
		up, err := res.Resource.Create(ctx, core.ProofFile{Name: "t.jpg", Data: []byte("jpg")}, store.CreateMeta{Email: "a@a"})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		rc, _, err := res.Proofs.Proof(ctx, up.Key+"/t.jpg")
		if err != nil {
			t.Fatalf("Proof: %v", err)
		}
		rc.Close()
	})
}
