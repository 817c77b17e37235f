package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charlie0129/rtdconv/pkg/store"
)

func TestFileDefaults(t *testing.T) {
	f, err := NewFile(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}

	if got := f.ReferenceResistance(); got != 100 {
		t.Errorf("ReferenceResistance() = %v, want 100", got)
	}
	if got := f.Degree(); got != 5 {
		t.Errorf("Degree() = %v, want 5", got)
	}
	if got := f.MaxFiles(); got != 3 {
		t.Errorf("MaxFiles() = %v, want 3", got)
	}
	if got := f.Storage(); got != StorageLocal {
		t.Errorf("Storage() = %v, want %v", got, StorageLocal)
	}
	if got := f.RetentionSchedule(); got != "" {
		t.Errorf("RetentionSchedule() = %q, want empty", got)
	}
	if got := f.RetentionMaxAge(); got != 720*time.Hour {
		t.Errorf("RetentionMaxAge() = %v, want 720h", got)
	}
}

func TestFileSaveLoad(t *testing.T) {
	p := filepath.Join(t.TempDir(), "rtdconv.json")
	f, err := NewFile(p)
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}

	f.SetDegree(3)
	f.SetReferenceResistance(1000)
	if err := f.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	g, err := NewFile(p)
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}
	if g.Degree() != 3 || g.ReferenceResistance() != 1000 {
		t.Fatalf("reloaded config = %v", g.LogrusFields())
	}
	// Unset keys keep their defaults.
	if g.Listen() != "127.0.0.1:5000" {
		t.Errorf("Listen() = %v", g.Listen())
	}
}

func TestFileLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{name: "empty", content: "  \n", wantErr: false},
		{name: "valid", content: `{"degree": 4, "storage": "s3", "s3": {"endpoint": "localhost:9000", "bucket": "rtd"}}`, wantErr: false},
		{name: "malformed", content: `{"degree": `, wantErr: true},
		{name: "bad degree", content: `{"degree": 0}`, wantErr: true},
		{name: "bad reference", content: `{"referenceResistance": 5}`, wantErr: true},
		{name: "bad storage", content: `{"storage": "ftp"}`, wantErr: true},
		{name: "retention", content: `{"retentionSchedule": "@daily", "retentionMaxAge": "24h"}`, wantErr: false},
		{name: "bad retention schedule", content: `{"retentionSchedule": "daily"}`, wantErr: true},
		{name: "bad retention age", content: `{"retentionMaxAge": "a month"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), "rtdconv.json")
			if err := os.WriteFile(p, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			_, err := NewFile(p)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewFile() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewRawFileConfigFromConfigHidesCredentials(t *testing.T) {
	storage := StorageS3
	f := NewFileFromConfig(&RawFileConfig{
		Storage: &storage,
		S3:      &store.S3Options{Endpoint: "localhost:9000", Bucket: "rtd", AccessKey: "ak", SecretKey: "sk"},
	}, "")

	raw, err := NewRawFileConfigFromConfig(f)
	if err != nil {
		t.Fatalf("NewRawFileConfigFromConfig() error = %v", err)
	}
	if raw.S3 == nil || raw.S3.Bucket != "rtd" || raw.S3.AccessKey != "" || raw.S3.SecretKey != "" {
		t.Fatalf("S3 = %+v, want present without secret", raw.S3)
	}
}
