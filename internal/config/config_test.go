package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigRoundTrip(t *testing.T) {
	cfg := &Config{
		LogDir: "/var/log/zengallery",
		Server: ServerConfig{Addr: ":9090"},
		Blob: BlobConfig{
			Type:     "s3",
			S3Bucket: "gallery",
			S3Prefix: "prod",
			S3Region: "us-east-1",
		},
		Metadata: MetadataConfig{Type: "sqlite", DataDir: "/var/lib/zengallery"},
		Transform: TransformConfig{
			Type:           "remote",
			Endpoint:       "http://localhost:9000/compress",
			TimeoutSeconds: 15,
		},
		Limits: LimitsConfig{MaxSingleUpload: 1024},
	}

	var buf bytes.Buffer
	m := &Manager{}
	if err := m.Write(&buf, cfg); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.Server.Addr != cfg.Server.Addr {
		t.Errorf("addr = %q, want %q", got.Server.Addr, cfg.Server.Addr)
	}
	if got.Blob != cfg.Blob {
		t.Errorf("blob = %+v, want %+v", got.Blob, cfg.Blob)
	}
	if got.Metadata != cfg.Metadata {
		t.Errorf("metadata = %+v, want %+v", got.Metadata, cfg.Metadata)
	}
	if got.Transform != cfg.Transform {
		t.Errorf("transform = %+v, want %+v", got.Transform, cfg.Transform)
	}
	if got.Limits.MaxSingleUpload != 1024 {
		t.Errorf("max_single_upload = %d", got.Limits.MaxSingleUpload)
	}
}

func TestLimitsDefaults(t *testing.T) {
	var l LimitsConfig
	if got := l.MaxSingleUploadBytes(); got != DefaultMaxSingleUpload {
		t.Errorf("MaxSingleUploadBytes() = %d, want default %d", got, DefaultMaxSingleUpload)
	}
	if got := l.DeriveCeilingBytes(); got != DefaultDeriveCeiling {
		t.Errorf("DeriveCeilingBytes() = %d, want default %d", got, DefaultDeriveCeiling)
	}
	if got := l.MaxSliceSizeBytes(); got != DefaultMaxSliceSize {
		t.Errorf("MaxSliceSizeBytes() = %d, want default %d", got, DefaultMaxSliceSize)
	}

	l = LimitsConfig{MaxSingleUpload: 7, DeriveCeiling: 8, MaxSliceSize: 9}
	if l.MaxSingleUploadBytes() != 7 || l.DeriveCeilingBytes() != 8 || l.MaxSliceSizeBytes() != 9 {
		t.Error("configured limits not honored")
	}
}

func TestReadMissingFields(t *testing.T) {
	input := `
log_dir = "/tmp/log"

[blob]
type = "memory"
`
	m := &Manager{}
	cfg, err := m.Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if cfg.Blob.Type != "memory" {
		t.Errorf("blob type = %q", cfg.Blob.Type)
	}
	if cfg.Transform.Type != "" {
		t.Errorf("transform type = %q, want empty", cfg.Transform.Type)
	}
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "zengallery.toml")
	cfg := NewConfig(dir)

	if err := Init(path, cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	// Refuses to overwrite.
	if err := Init(path, cfg); err == nil {
		t.Error("Init() overwrote an existing config")
	}

	got, err := ReadFromFile(path)
	if err != nil {
		t.Fatalf("ReadFromFile() error = %v", err)
	}
	if got.Blob.Type != "filesystem" {
		t.Errorf("default blob type = %q, want filesystem", got.Blob.Type)
	}
	if got.Metadata.Type != "sqlite" {
		t.Errorf("default metadata type = %q, want sqlite", got.Metadata.Type)
	}
}
