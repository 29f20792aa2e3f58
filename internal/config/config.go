package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	MinIO    MinIOConfig    `yaml:"minio"`
	Masking  MaskingConfig  `yaml:"masking"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type MaskingConfig struct {
	SegmentURL          string        `yaml:"segment_url"`
	OpenposeURL         string        `yaml:"openpose_url"`
	RequestTimeout      time.Duration `yaml:"request_timeout"`
	RetryAttempts       int           `yaml:"retry_attempts"`
	ModelsDir           string        `yaml:"models_dir"`
	DetectionThreshold  float64       `yaml:"detection_threshold"`
	IoUThreshold        float64       `yaml:"iou_threshold"`
	ConfidenceThreshold float64       `yaml:"confidence_threshold"`
	WorkDir             string        `yaml:"work_dir"`
	WorkerCount         int           `yaml:"worker_count"`
	MaxVideoDuration    time.Duration `yaml:"max_video_duration"`
	MaskLevel           int           `yaml:"mask_level"`
	ObjectBorders       bool          `yaml:"object_borders"`
	DebugBoxes          bool          `yaml:"debug_boxes"`
	Smoothing           bool          `yaml:"smoothing"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.Masking.RequestTimeout == 0 {
		cfg.Masking.RequestTimeout = 5 * time.Minute
	}
	if cfg.Masking.RetryAttempts == 0 {
		cfg.Masking.RetryAttempts = 3
	}
	if cfg.Masking.DetectionThreshold == 0 {
		cfg.Masking.DetectionThreshold = 0.5
	}
	if cfg.Masking.IoUThreshold == 0 {
		cfg.Masking.IoUThreshold = 0.25
	}
	if cfg.Masking.ConfidenceThreshold == 0 {
		cfg.Masking.ConfidenceThreshold = 0.05
	}
	if cfg.Masking.WorkDir == "" {
		cfg.Masking.WorkDir = os.TempDir()
	}
	if cfg.Masking.WorkerCount == 0 {
		cfg.Masking.WorkerCount = 2
	}
	if cfg.Masking.MaxVideoDuration == 0 {
		cfg.Masking.MaxVideoDuration = 10 * time.Minute
	}
	if cfg.Masking.MaskLevel == 0 {
		cfg.Masking.MaskLevel = 3
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VM_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("VM_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("VM_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("VM_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("VM_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("VM_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("VM_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("VM_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("VM_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("VM_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("VM_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("VM_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("VM_SEGMENT_URL"); v != "" {
		cfg.Masking.SegmentURL = v
	}
	if v := os.Getenv("VM_OPENPOSE_URL"); v != "" {
		cfg.Masking.OpenposeURL = v
	}
	if v := os.Getenv("VM_MODELS_DIR"); v != "" {
		cfg.Masking.ModelsDir = v
	}
	if v := os.Getenv("VM_WORK_DIR"); v != "" {
		cfg.Masking.WorkDir = v
	}
	if v := os.Getenv("VM_WORKER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Masking.WorkerCount = n
		}
	}
}
