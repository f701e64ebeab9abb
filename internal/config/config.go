// Package config loads runtime configuration for the volunteercore binaries.
//
// Values are resolved in order, later sources winning:
//
//	defaults
//	YAML file (optional)
//	environment, including a .env file when present
//
// Environment keys:
//
//	VOLUNTEERCORE_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	VOLUNTEERCORE_SQLITE_PATH: database file (default volunteercore.db)
//	VOLUNTEERCORE_POSTGRES_DSN: postgres connection string
//	VOLUNTEERCORE_NOTIFIER_DRIVER: memory|log|inbox|redis (default log)
//	VOLUNTEERCORE_INBOX_PREFIX: key prefix for the inbox notifier
//	VOLUNTEERCORE_REDIS_URL: redis://host:port/db
//	VOLUNTEERCORE_REDIS_PREFIX: key prefix for the redis notifier
//	VOLUNTEERCORE_BLOB_DRIVER: fs|s3|memory (default fs)
//	VOLUNTEERCORE_BLOB_FS_ROOT: directory root when driver=fs
//	VOLUNTEERCORE_BLOB_S3_BUCKET / _REGION / _ENDPOINT / _PATH_STYLE
//	VOLUNTEERCORE_BLOB_S3_ACCESS_KEY_ID / _SECRET_ACCESS_KEY
//	VOLUNTEERCORE_HTTP_ADDR: listen address (default :8080)
//	VOLUNTEERCORE_LOG_LEVEL / VOLUNTEERCORE_LOG_FORMAT
//	VOLUNTEERCORE_DISPATCH_CONCURRENCY: parallel sends per event
//	VOLUNTEERCORE_METRICS_DRIVER: prometheus|expvar|none (default prometheus)
//	VOLUNTEERCORE_TRACE_OUTPUT: span log destination, "stderr" or a file path
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"volunteercore/internal/blob"
	"volunteercore/internal/core"
	"volunteercore/internal/notify"
)

const envPrefix = "VOLUNTEERCORE_"

// Metrics drivers.
const (
	MetricsPrometheus = "prometheus"
	MetricsExpvar     = "expvar"
	MetricsNone       = "none"
)

// TraceStderr sends the span log to standard error instead of a file.
const TraceStderr = "stderr"

// Config is the resolved runtime configuration.
type Config struct {
	Storage             StorageConfig  `yaml:"storage"`
	Notifier            NotifierConfig `yaml:"notifier"`
	Blob                BlobConfig     `yaml:"blob"`
	HTTP                HTTPConfig     `yaml:"http"`
	Log                 LogConfig      `yaml:"log"`
	Metrics             MetricsConfig  `yaml:"metrics"`
	Trace               TraceConfig    `yaml:"trace"`
	DispatchConcurrency int            `yaml:"dispatch_concurrency"`
}

type StorageConfig struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

type NotifierConfig struct {
	Driver      string `yaml:"driver"`
	InboxPrefix string `yaml:"inbox_prefix"`
	RedisURL    string `yaml:"redis_url"`
	RedisPrefix string `yaml:"redis_prefix"`
}

type BlobConfig struct {
	Driver string   `yaml:"driver"`
	FSRoot string   `yaml:"fs_root"`
	S3     S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Driver string `yaml:"driver"`
}

// TraceConfig enables the JSON span log when Output is set.
type TraceConfig struct {
	Output string `yaml:"output"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Storage:             StorageConfig{Driver: string(core.StorageSQLite), SQLitePath: "volunteercore.db"},
		Notifier:            NotifierConfig{Driver: string(notify.DriverLog)},
		Blob:                BlobConfig{Driver: string(blob.DriverFilesystem), FSRoot: "./blobdata"},
		HTTP:                HTTPConfig{Addr: ":8080"},
		Log:                 LogConfig{Level: "info", Format: "text"},
		Metrics:             MetricsConfig{Driver: MetricsPrometheus},
		DispatchConcurrency: 4,
	}
}

// Load reads .env from the working directory (if any), then the YAML file at
// path (if non-empty) and finally the environment.
func Load(path string) (Config, error) {
	return LoadFiles(".env", path)
}

// LoadFiles is Load with an explicit .env location. A missing .env is ignored;
// a missing YAML file is an error.
func LoadFiles(envFile, yamlPath string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env (%s): %w", envFile, err)
		}
	}
	cfg := Default()
	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", yamlPath, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"STORAGE_DRIVER":            &c.Storage.Driver,
		"SQLITE_PATH":               &c.Storage.SQLitePath,
		"POSTGRES_DSN":              &c.Storage.PostgresDSN,
		"NOTIFIER_DRIVER":           &c.Notifier.Driver,
		"INBOX_PREFIX":              &c.Notifier.InboxPrefix,
		"REDIS_URL":                 &c.Notifier.RedisURL,
		"REDIS_PREFIX":              &c.Notifier.RedisPrefix,
		"BLOB_DRIVER":               &c.Blob.Driver,
		"BLOB_FS_ROOT":              &c.Blob.FSRoot,
		"BLOB_S3_BUCKET":            &c.Blob.S3.Bucket,
		"BLOB_S3_REGION":            &c.Blob.S3.Region,
		"BLOB_S3_ENDPOINT":          &c.Blob.S3.Endpoint,
		"BLOB_S3_ACCESS_KEY_ID":     &c.Blob.S3.AccessKeyID,
		"BLOB_S3_SECRET_ACCESS_KEY": &c.Blob.S3.SecretAccessKey,
		"HTTP_ADDR":                 &c.HTTP.Addr,
		"LOG_LEVEL":                 &c.Log.Level,
		"LOG_FORMAT":                &c.Log.Format,
		"METRICS_DRIVER":            &c.Metrics.Driver,
		"TRACE_OUTPUT":              &c.Trace.Output,
	}
	for key, dst := range strs {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	if v, ok := lookup(envPrefix + "BLOB_S3_PATH_STYLE"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sBLOB_S3_PATH_STYLE: %w", envPrefix, err)
		}
		c.Blob.S3.PathStyle = b
	}
	if v, ok := lookup(envPrefix + "DISPATCH_CONCURRENCY"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sDISPATCH_CONCURRENCY: %w", envPrefix, err)
		}
		c.DispatchConcurrency = n
	}
	c.Storage.Driver = strings.ToLower(c.Storage.Driver)
	c.Notifier.Driver = strings.ToLower(c.Notifier.Driver)
	c.Blob.Driver = strings.ToLower(c.Blob.Driver)
	c.Metrics.Driver = strings.ToLower(c.Metrics.Driver)
	return nil
}

// Validate rejects unknown drivers and missing values the selected drivers need.
func (c Config) Validate() error {
	var problems []string
	switch core.StorageDriver(c.Storage.Driver) {
	case core.StorageMemory, core.StorageSQLite, "":
	case core.StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			problems = append(problems, "storage.postgres_dsn is required for the postgres driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown storage driver %q", c.Storage.Driver))
	}
	switch notify.Driver(c.Notifier.Driver) {
	case notify.DriverMemory, notify.DriverLog, "":
	case notify.DriverInbox:
		switch blob.Driver(c.Blob.Driver) {
		case blob.DriverMemory, blob.DriverFilesystem, "":
		case blob.DriverS3:
			if c.Blob.S3.Bucket == "" {
				problems = append(problems, "blob.s3.bucket is required for the s3 driver")
			}
		default:
			problems = append(problems, fmt.Sprintf("unknown blob driver %q", c.Blob.Driver))
		}
	case notify.DriverRedis:
		if c.Notifier.RedisURL == "" {
			problems = append(problems, "notifier.redis_url is required for the redis driver")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown notifier driver %q", c.Notifier.Driver))
	}
	switch c.Metrics.Driver {
	case MetricsPrometheus, MetricsExpvar, MetricsNone, "":
	default:
		problems = append(problems, fmt.Sprintf("unknown metrics driver %q", c.Metrics.Driver))
	}
	if c.DispatchConcurrency < 0 {
		problems = append(problems, "dispatch_concurrency must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// StorageOptions converts the storage section for core.OpenPersistentStore.
func (c Config) StorageOptions() core.StorageOptions {
	return core.StorageOptions{
		Driver:      core.StorageDriver(c.Storage.Driver),
		SQLitePath:  c.Storage.SQLitePath,
		PostgresDSN: c.Storage.PostgresDSN,
	}
}

// NotifyConfig converts the notifier and blob sections for notify.Open.
func (c Config) NotifyConfig() notify.Config {
	return notify.Config{
		Driver: notify.Driver(c.Notifier.Driver),
		Blob: blob.Config{
			Driver: blob.Driver(c.Blob.Driver),
			FSRoot: c.Blob.FSRoot,
			S3: blob.S3Config{
				Region:          c.Blob.S3.Region,
				Bucket:          c.Blob.S3.Bucket,
				Endpoint:        c.Blob.S3.Endpoint,
				AccessKeyID:     c.Blob.S3.AccessKeyID,
				SecretAccessKey: c.Blob.S3.SecretAccessKey,
				PathStyle:       c.Blob.S3.PathStyle,
			},
		},
		InboxPrefix: c.Notifier.InboxPrefix,
		RedisURL:    c.Notifier.RedisURL,
		RedisPrefix: c.Notifier.RedisPrefix,
	}
}
