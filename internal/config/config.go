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

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	// WorkDir holds temporary chunk media downloaded per task. Cleared on
	// every task exit path.
	WorkDir string `toml:"work_dir"`
}

// Storage configures the S3-compatible object store holding source video
// chunk objects (MinIO in the reference deployment).
type Storage struct {
	Endpoint     string `toml:"endpoint"`
	Region       string `toml:"region"`
	Bucket       string `toml:"bucket"`
	AccessKey    string `toml:"access_key"`
	SecretKey    string `toml:"secret_key"`
	UsePathStyle bool   `toml:"use_path_style"`
}

// Broker configures the NATS connection used for task consumption and
// progress publishing.
type Broker struct {
	URL             string `toml:"url"`
	RegisterSubject string `toml:"register_subject"`
	VerifySubject   string `toml:"verify_subject"`
	Durable         string `toml:"durable"`
	// StatusPrefixes for published progress events; the task id or video id
	// is appended as the final subject token.
	TaskStatusPrefix  string `toml:"task_status_prefix"`
	VideoStatusPrefix string `toml:"video_status_prefix"`
}

// Media contains extraction tunables shared by registration and verification.
type Media struct {
	// ExtractFPS is the frame sampling rate handed to ffmpeg.
	ExtractFPS float64 `toml:"extract_fps"`
	// ChunkSeconds is the chunk span used when splitting a source video
	// for submission.
	ChunkSeconds int `toml:"chunk_seconds"`
}

// Embedder configures the HTTP embedding service that turns frames into
// fixed-length vectors.
type Embedder struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Dimension      int    `toml:"dimension"`
}

// Thresholds contains the similarity cutoffs applied when a verification
// session finalizes.
type Thresholds struct {
	Image float64 `toml:"image"`
	Audio float64 `toml:"audio"`
}

// Notifications configures optional ntfy push alerts sent when a job
// finalizes.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for reprintd.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Storage       Storage       `toml:"storage"`
	Broker        Broker        `toml:"broker"`
	Media         Media         `toml:"media"`
	Embedder      Embedder      `toml:"embedder"`
	Thresholds    Thresholds    `toml:"thresholds"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reprint/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. When no file exists at
// the resolved path, defaults are used and exists is false.
func Load(path string) (cfg *Config, resolvedPath string, exists bool, err error) {
	loaded := Default()

	resolvedPath, exists, err = resolveConfigPath(path)
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
		if err := decoder.Decode(&loaded); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loaded.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := loaded.Validate(); err != nil {
		return nil, "", false, err
	}
	return &loaded, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
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

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the directories the daemon needs at runtime.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.WorkDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the sqlite database location under the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "reprint.db")
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "reprintd.lock")
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = filepath.Join(os.TempDir(), "reprint")
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}

	if c.Storage.AccessKey == "" {
		if value, ok := os.LookupEnv("REPRINT_STORAGE_ACCESS_KEY"); ok {
			c.Storage.AccessKey = value
		}
	}
	if c.Storage.SecretKey == "" {
		if value, ok := os.LookupEnv("REPRINT_STORAGE_SECRET_KEY"); ok {
			c.Storage.SecretKey = value
		}
	}
	c.Storage.Endpoint = strings.TrimSpace(c.Storage.Endpoint)
	c.Storage.Bucket = strings.TrimSpace(c.Storage.Bucket)

	c.Broker.URL = strings.TrimSpace(c.Broker.URL)
	if c.Broker.URL == "" {
		if value, ok := os.LookupEnv("REPRINT_BROKER_URL"); ok {
			c.Broker.URL = strings.TrimSpace(value)
		}
	}
	if c.Broker.RegisterSubject == "" {
		c.Broker.RegisterSubject = defaultRegisterSubject
	}
	if c.Broker.VerifySubject == "" {
		c.Broker.VerifySubject = defaultVerifySubject
	}
	if c.Broker.Durable == "" {
		c.Broker.Durable = defaultDurable
	}
	if c.Broker.TaskStatusPrefix == "" {
		c.Broker.TaskStatusPrefix = defaultTaskStatusPrefix
	}
	if c.Broker.VideoStatusPrefix == "" {
		c.Broker.VideoStatusPrefix = defaultVideoStatusPrefix
	}

	if c.Media.ExtractFPS == 0 {
		c.Media.ExtractFPS = defaultExtractFPS
	}
	if c.Media.ChunkSeconds == 0 {
		c.Media.ChunkSeconds = defaultChunkSeconds
	}

	c.Embedder.BaseURL = strings.TrimSpace(c.Embedder.BaseURL)
	if c.Embedder.TimeoutSeconds == 0 {
		c.Embedder.TimeoutSeconds = defaultEmbedderTimeoutSeconds
	}

	if c.Thresholds.Image == 0 {
		c.Thresholds.Image = defaultImageThreshold
	}
	if c.Thresholds.Audio == 0 {
		c.Thresholds.Audio = defaultAudioThreshold
	}

	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.TimeoutSeconds == 0 {
		c.Notifications.TimeoutSeconds = defaultNtfyTimeoutSeconds
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Media.ExtractFPS <= 0 {
		return errors.New("media.extract_fps must be positive")
	}
	if c.Media.ChunkSeconds <= 0 {
		return errors.New("media.chunk_seconds must be positive")
	}
	if c.Thresholds.Image < 0 || c.Thresholds.Image > 1 {
		return errors.New("thresholds.image must be between 0 and 1")
	}
	if c.Thresholds.Audio < 0 || c.Thresholds.Audio > 1 {
		return errors.New("thresholds.audio must be between 0 and 1")
	}
	if c.Embedder.TimeoutSeconds <= 0 {
		return errors.New("embedder.timeout_seconds must be positive")
	}
	if c.Notifications.TimeoutSeconds <= 0 {
		return errors.New("notifications.timeout_seconds must be positive")
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
