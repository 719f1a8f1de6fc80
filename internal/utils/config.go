package utils

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// PostgresConfig holds the connection settings for the API token store.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// Config is the full service configuration, loaded once at startup.
type Config struct {
	Server struct {
		Host    string `yaml:"host"`
		Port    string `yaml:"port"`
		Prefork bool   `yaml:"prefork"`
	} `yaml:"server"`

	Logger struct {
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
		Level      string `yaml:"level"`
	} `yaml:"logger"`

	Storage struct {
		UploadDir     string        `yaml:"upload_dir"`
		OutputDir     string        `yaml:"output_dir"`
		MaxFileSizeMB int           `yaml:"max_file_size_mb"`
		Retention     time.Duration `yaml:"-"`
		RetentionStr  string        `yaml:"retention"`
		SweepInterval time.Duration `yaml:"-"`
		SweepStr      string        `yaml:"sweep_interval"`
		BaseURL       string        `yaml:"base_url"`
	} `yaml:"storage"`

	Cache struct {
		RedisHost       string        `yaml:"redis_host"`
		RateLimitDB     int           `yaml:"rate_limit_db"`
		OCRCacheDB      int           `yaml:"ocr_cache_db"`
		JobStatusDB     int           `yaml:"job_status_db"`
		OCRCacheEnabled bool          `yaml:"ocr_cache_enabled"`
		OCRCacheTTL     time.Duration `yaml:"-"`
		OCRCacheTTLStr  string        `yaml:"ocr_cache_ttl"`
	} `yaml:"cache"`

	RateLimiter struct {
		Interval          time.Duration `yaml:"-"`
		IntervalStr       string        `yaml:"interval"`
		UserLimit         int           `yaml:"user_limit"`
		EnableUserLimiter bool          `yaml:"enable_user_limiter"`
	} `yaml:"rate_limiter"`

	Auth struct {
		Postgres PostgresConfig `yaml:"postgres"`
	} `yaml:"auth"`

	PDF struct {
		ChromePath     string        `yaml:"chrome_path"`
		HTMLTimeout    time.Duration `yaml:"-"`
		HTMLTimeoutStr string        `yaml:"html_timeout"`
	} `yaml:"pdf"`

	OCR struct {
		Languages []string `yaml:"languages"`
		DPI       int      `yaml:"dpi"`
	} `yaml:"ocr"`

	Jobs struct {
		Workers      int           `yaml:"workers"`
		QueueSize    int           `yaml:"queue_size"`
		ResultTTL    time.Duration `yaml:"-"`
		ResultTTLStr string        `yaml:"result_ttl"`
	} `yaml:"jobs"`
}

// AppConfig is the process-wide configuration. LoadConfig fills it; tests may
// mutate individual fields directly.
var AppConfig Config

func defaultConfig() Config {
	var cfg Config
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = ":8000"
	cfg.Logger.File = "logs/docbelt.log"
	cfg.Logger.MaxSizeMB = 10
	cfg.Logger.MaxBackups = 5
	cfg.Logger.MaxAgeDays = 28
	cfg.Logger.Level = "info"
	cfg.Storage.UploadDir = "uploads"
	cfg.Storage.OutputDir = "outputs"
	cfg.Storage.MaxFileSizeMB = 50
	cfg.Storage.Retention = time.Hour
	cfg.Storage.SweepInterval = 10 * time.Minute
	cfg.Storage.BaseURL = "http://localhost:8000"
	cfg.Cache.RedisHost = "localhost:6379"
	cfg.Cache.RateLimitDB = 1
	cfg.Cache.OCRCacheDB = 2
	cfg.Cache.JobStatusDB = 3
	cfg.Cache.OCRCacheTTL = time.Hour
	cfg.RateLimiter.Interval = time.Minute
	cfg.PDF.HTMLTimeout = 30 * time.Second
	cfg.OCR.Languages = []string{"eng"}
	cfg.OCR.DPI = 300
	cfg.Jobs.Workers = 2
	cfg.Jobs.QueueSize = 64
	cfg.Jobs.ResultTTL = time.Hour
	return cfg
}

// LoadConfig reads the YAML config file (CONFIG_PATH env or ./config.yaml),
// applies environment overrides and stores the result in AppConfig. Missing
// files are not an error; defaults apply.
func LoadConfig() Config {
	cfg := defaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			Error("Failed to parse config file", "path", path, "error", err)
		}
	}

	parseDurations(&cfg)
	applyEnvOverrides(&cfg)

	AppConfig = cfg
	return cfg
}

// parseDurations converts the YAML duration strings ("30m", "1h") onto their
// time.Duration counterparts. Empty or invalid values keep the defaults.
func parseDurations(cfg *Config) {
	set := func(dst *time.Duration, s, name string) {
		if s == "" {
			return
		}
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			Error("Invalid duration in config, keeping default", "field", name, "value", s)
			return
		}
		*dst = d
	}
	set(&cfg.Storage.Retention, cfg.Storage.RetentionStr, "storage.retention")
	set(&cfg.Storage.SweepInterval, cfg.Storage.SweepStr, "storage.sweep_interval")
	set(&cfg.Cache.OCRCacheTTL, cfg.Cache.OCRCacheTTLStr, "cache.ocr_cache_ttl")
	set(&cfg.RateLimiter.Interval, cfg.RateLimiter.IntervalStr, "rate_limiter.interval")
	set(&cfg.PDF.HTMLTimeout, cfg.PDF.HTMLTimeoutStr, "pdf.html_timeout")
	set(&cfg.Jobs.ResultTTL, cfg.Jobs.ResultTTLStr, "jobs.result_ttl")
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REDIS_HOST"); v != "" {
		cfg.Cache.RedisHost = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if v[0] != ':' {
			v = ":" + v
		}
		cfg.Server.Port = v
	}
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		cfg.Storage.UploadDir = v
	}
	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		cfg.Storage.OutputDir = v
	}
	if v := os.Getenv("BASE_URL"); v != "" {
		cfg.Storage.BaseURL = v
	}
	if v := os.Getenv("MAX_FILE_SIZE_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Storage.MaxFileSizeMB = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		cfg.Auth.Postgres.Host = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		cfg.Auth.Postgres.Password = v
	}
}

// GetConfig returns the loaded application config.
func GetConfig() Config {
	return AppConfig
}

// MaxFileSizeBytes returns the upload size limit in bytes.
func (c Config) MaxFileSizeBytes() int {
	return c.Storage.MaxFileSizeMB * 1024 * 1024
}
