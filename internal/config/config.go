package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Default limit values, matching the behavior of the hosted deployment.
const (
	DefaultMaxSingleUpload int64 = 50 * 1024 * 1024 // larger uploads must go multipart
	DefaultDeriveCeiling   int64 = 10 * 1024 * 1024 // larger images are never transcoded
	DefaultMaxSliceSize    int64 = 50 * 1024 * 1024 // bound for in-memory range slicing
)

// Config is the main configuration for zengallery.
type Config struct {
	LogDir    string          `toml:"log_dir"`
	Server    ServerConfig    `toml:"server"`
	Blob      BlobConfig      `toml:"blob"`
	Metadata  MetadataConfig  `toml:"metadata"`
	Transform TransformConfig `toml:"transform"`
	Limits    LimitsConfig    `toml:"limits"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// BlobConfig selects and configures the object storage backend.
// This uses a tagged union pattern - the Type field determines which other
// fields are relevant.
type BlobConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"

	// S3-specific fields (only used when Type == "s3")
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3Endpoint  string `toml:"s3_endpoint,omitempty"` // custom endpoint for S3-compatible stores
	S3AccessKey string `toml:"s3_access_key,omitempty"`
	S3SecretKey string `toml:"s3_secret_key,omitempty"`

	// Filesystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`
}

// MetadataConfig selects and configures the metadata database.
// This uses a tagged union pattern - the Type field determines which other
// fields are relevant.
type MetadataConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// TransformConfig selects and configures the image transform service.
type TransformConfig struct {
	Type           string `toml:"type"`               // "remote" or "none"
	Endpoint       string `toml:"endpoint,omitempty"` // only used for type=remote
	TimeoutSeconds int    `toml:"timeout_seconds,omitempty"`
}

// LimitsConfig holds the size ceilings for uploads and in-memory processing.
// Zero values fall back to the package defaults.
type LimitsConfig struct {
	MaxSingleUpload int64 `toml:"max_single_upload"`
	DeriveCeiling   int64 `toml:"derive_ceiling"`
	MaxSliceSize    int64 `toml:"max_slice_size"`
}

// MaxSingleUploadBytes returns the configured single-shot upload cap.
func (l LimitsConfig) MaxSingleUploadBytes() int64 {
	if l.MaxSingleUpload > 0 {
		return l.MaxSingleUpload
	}
	return DefaultMaxSingleUpload
}

// DeriveCeilingBytes returns the configured variant generation ceiling.
func (l LimitsConfig) DeriveCeilingBytes() int64 {
	if l.DeriveCeiling > 0 {
		return l.DeriveCeiling
	}
	return DefaultDeriveCeiling
}

// MaxSliceSizeBytes returns the configured in-memory slicing bound.
func (l LimitsConfig) MaxSliceSizeBytes() int64 {
	if l.MaxSliceSize > 0 {
		return l.MaxSliceSize
	}
	return DefaultMaxSliceSize
}

// NewConfig creates a Config with development defaults rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		LogDir: filepath.Join(baseDir, "log"),
		Server: ServerConfig{Addr: ":8080"},
		Blob: BlobConfig{
			Type:   "filesystem",
			FSRoot: filepath.Join(baseDir, "blobs"),
		},
		Metadata: MetadataConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "data"),
		},
		Transform: TransformConfig{Type: "none"},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided
// Config. It refuses to overwrite an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
