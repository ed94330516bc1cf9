package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	UploadDir string `toml:"upload_dir"`
	SlicesDir string `toml:"slices_dir"`
	LogDir    string `toml:"log_dir"`
	APIBind   string `toml:"api_bind"`
}

// Redis contains connection settings for the job status store.
type Redis struct {
	URL            string `toml:"url"`
	DialTimeout    int    `toml:"dial_timeout"`
	StatusTTLHours int    `toml:"status_ttl_hours"`
	SweepInterval  int    `toml:"sweep_interval"`
}

// ObjectStore contains configuration for the artifact storage backend.
type ObjectStore struct {
	BaseURL        string `toml:"base_url"`
	Bucket         string `toml:"bucket"`
	Token          string `toml:"token"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Records contains configuration for the external report record system.
type Records struct {
	BaseURL        string `toml:"base_url"`
	Token          string `toml:"token"`
	Table          string `toml:"table"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Ingest contains limits applied at the ingestion boundary.
type Ingest struct {
	MaxFileSizeMiB    int      `toml:"max_file_size_mib"`
	AllowedExtensions []string `toml:"allowed_extensions"`
}

// Workflow contains configuration for daemon timing, worker counts, and stage ceilings.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	Workers            int `toml:"workers"`
	StageSoftTimeout   int `toml:"stage_soft_timeout"`
	StageHardTimeout   int `toml:"stage_hard_timeout"`
}

// Export contains slice export tuning.
type Export struct {
	JPEGQuality      int     `toml:"jpeg_quality"`
	StdDevThreshold  float64 `toml:"stddev_threshold"`
	ProgressInterval int     `toml:"progress_interval"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for reslice.
//
// Configuration sections by subsystem:
//   - Paths: directories and API bind address
//   - Redis: job status store connection and TTL
//   - ObjectStore: artifact storage for exported slices and reports
//   - Records: external report record system (fire-and-forget updates)
//   - Ingest: upload limits and extension allow-list
//   - Workflow: worker pool sizing, polling, and stage time ceilings
//   - Export: slice export encoding and filtering
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Redis       Redis       `toml:"redis"`
	ObjectStore ObjectStore `toml:"object_store"`
	Records     Records     `toml:"records"`
	Ingest      Ingest      `toml:"ingest"`
	Workflow    Workflow    `toml:"workflow"`
	Export      Export      `toml:"export"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reslice/config.toml")
}

// ExpandPath resolves a leading ~ to the current user's home directory.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// WriteSample writes the embedded sample configuration to the given path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("ensure config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists: %s", expanded)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the directories the daemon writes into.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.UploadDir, c.Paths.SlicesDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.UploadDir, err = expandPath(c.Paths.UploadDir); err != nil {
		return err
	}
	if c.Paths.SlicesDir, err = expandPath(c.Paths.SlicesDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	normalized := make([]string, 0, len(c.Ingest.AllowedExtensions))
	for _, ext := range c.Ingest.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	if len(normalized) > 0 {
		c.Ingest.AllowedExtensions = normalized
	}
	return nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", path, err)
	}
	return abs, nil
}
