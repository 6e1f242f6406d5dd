// Package config loads the ingester's environment-driven settings.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jmespath/go-jmespath"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
	DriverDuckDB   = "duckdb"
)

// Supported line sources.
const (
	SourceFile       = "file"
	SourceCloudWatch = "cloudwatch"
)

// Config holds all settings. It is read once at startup.
type Config struct {
	// Database
	DBDriver   string
	DBName     string
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     int
	DBSSLMode  string
	DBDebug    bool

	// Logging
	ServiceName string
	InstanceID  string
	LogLevel    string
	LogPretty   bool

	// Ingest cycle
	Source        string
	LogFile       string
	Generate      bool
	GenerateCount int
	Interval      time.Duration
	Schedule      string
	HTTPAddr      string

	// S3 archive
	AWSRegion      string
	ArchiveBucket  string
	ArchivePrefix  string
	ArchiveTimeout time.Duration

	// CloudWatch source
	CloudWatchGroups      []string
	CloudWatchFilter      string
	CloudWatchMessagePath string
	CloudWatchLookback    time.Duration
}

// Load reads an optional .env file from the working directory and then the
// environment. Variables already set in the environment take precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	return LoadEnv()
}

// LoadEnv reads environment variables and returns a validated Config.
// All validation problems are reported together.
func LoadEnv() (*Config, error) {
	cfg := &Config{}
	var errs []string

	// --- Database ---
	// The lower-case names are accepted for existing .env files.
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(envStr("DB_DRIVER", DriverPostgres)))
	cfg.DBName = envStrAlias("DB_NAME", "dbname", "logs")
	cfg.DBUser = envStrAlias("DB_USER", "user", "")
	cfg.DBPassword = envStrAlias("DB_PASSWORD", "scriptpwd", "")
	cfg.DBHost = envStrAlias("DB_HOST", "scripthost", "localhost")
	cfg.DBPort = envIntAlias("DB_PORT", "scriptport", 5432, &errs)
	cfg.DBSSLMode = envStr("DB_SSLMODE", "prefer")
	cfg.DBDebug = envBool("DB_DEBUG", false, &errs)

	// --- Logging ---
	cfg.ServiceName = envStr("SERVICE_NAME", "logstore")
	cfg.InstanceID = envStr("INSTANCE_ID", hostname())
	cfg.LogLevel = envStr("LOG_LEVEL", "info")
	cfg.LogPretty = envBool("LOG_PRETTY", false, &errs)

	// --- Ingest cycle ---
	cfg.Source = strings.ToLower(strings.TrimSpace(envStr("INGEST_SOURCE", SourceFile)))
	cfg.LogFile = envStr("INGEST_LOG_FILE", "nginx_test.log")
	cfg.Generate = envBool("INGEST_GENERATE", true, &errs)
	cfg.GenerateCount = envInt("INGEST_GENERATE_COUNT", 100, &errs)
	cfg.Interval = envDuration("INGEST_INTERVAL", 24*time.Hour, &errs)
	cfg.Schedule = strings.TrimSpace(envStr("INGEST_SCHEDULE", ""))
	cfg.HTTPAddr = strings.TrimSpace(envStr("INGEST_HTTP_ADDR", ""))

	// --- S3 archive ---
	cfg.AWSRegion = envStr("AWS_REGION", "")
	cfg.ArchiveBucket = strings.TrimSpace(envStr("INGEST_ARCHIVE_BUCKET", ""))
	cfg.ArchivePrefix = strings.Trim(envStr("INGEST_ARCHIVE_PREFIX", "access-logs"), "/")
	cfg.ArchiveTimeout = envDuration("INGEST_ARCHIVE_TIMEOUT", 30*time.Second, &errs)

	// --- CloudWatch source ---
	cfg.CloudWatchGroups = envCSV("INGEST_CLOUDWATCH_GROUPS")
	cfg.CloudWatchFilter = envStr("INGEST_CLOUDWATCH_FILTER", "")
	cfg.CloudWatchMessagePath = strings.TrimSpace(envStr("INGEST_CLOUDWATCH_MESSAGE_PATH", ""))
	cfg.CloudWatchLookback = envDuration("INGEST_CLOUDWATCH_LOOKBACK", 24*time.Hour, &errs)

	// --- Validation ---
	switch cfg.DBDriver {
	case DriverPostgres, DriverSQLite, DriverDuckDB:
	default:
		errs = append(errs, fmt.Sprintf("DB_DRIVER: invalid value %q (allowed: %s, %s, %s)",
			cfg.DBDriver, DriverPostgres, DriverSQLite, DriverDuckDB))
	}
	if cfg.DBDriver == DriverPostgres {
		validatePort("DB_PORT", cfg.DBPort, &errs)
		if cfg.DBName == "" {
			errs = append(errs, "DB_NAME must not be empty")
		}
	}
	if cfg.DBDriver == DriverDuckDB && cfg.DBDebug {
		errs = append(errs, "DB_DEBUG is not supported with DB_DRIVER=duckdb")
	}

	switch cfg.Source {
	case SourceFile:
		if cfg.LogFile == "" {
			errs = append(errs, "INGEST_LOG_FILE must not be empty")
		}
		if cfg.Generate {
			validatePositive("INGEST_GENERATE_COUNT", cfg.GenerateCount, &errs)
		}
	case SourceCloudWatch:
		if len(cfg.CloudWatchGroups) == 0 {
			errs = append(errs, "INGEST_CLOUDWATCH_GROUPS is required when INGEST_SOURCE is cloudwatch")
		}
		if cfg.CloudWatchLookback <= 0 {
			errs = append(errs, "INGEST_CLOUDWATCH_LOOKBACK must be positive")
		}
		if cfg.CloudWatchMessagePath != "" {
			if _, err := jmespath.Compile(cfg.CloudWatchMessagePath); err != nil {
				errs = append(errs, fmt.Sprintf("INGEST_CLOUDWATCH_MESSAGE_PATH: invalid JMESPath %q: %v", cfg.CloudWatchMessagePath, err))
			}
		}
	default:
		errs = append(errs, fmt.Sprintf("INGEST_SOURCE: invalid value %q (allowed: %s, %s)",
			cfg.Source, SourceFile, SourceCloudWatch))
	}

	if cfg.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
			errs = append(errs, fmt.Sprintf("INGEST_SCHEDULE: invalid cron expression %q: %v", cfg.Schedule, err))
		}
	} else if cfg.Interval < time.Second {
		errs = append(errs, "INGEST_INTERVAL must be at least 1s")
	}

	if cfg.ArchiveBucket != "" && cfg.ArchiveTimeout <= 0 {
		errs = append(errs, "INGEST_ARCHIVE_TIMEOUT must be positive")
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}

	return cfg, nil
}

// --- helpers ---

func envStr(key, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultVal
}

// envStrAlias prefers key and falls back to alias.
func envStrAlias(key, alias, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return envStr(alias, defaultVal)
}

func envInt(key string, defaultVal int, errs *[]string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid integer %q", key, v))
		return defaultVal
	}
	return n
}

func envIntAlias(key, alias string, defaultVal int, errs *[]string) int {
	if strings.TrimSpace(os.Getenv(key)) != "" {
		return envInt(key, defaultVal, errs)
	}
	return envInt(alias, defaultVal, errs)
}

func envBool(key string, defaultVal bool, errs *[]string) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid boolean %q", key, v))
		return defaultVal
	}
	return b
}

func envDuration(key string, defaultVal time.Duration, errs *[]string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: invalid duration %q", key, v))
		return defaultVal
	}
	return d
}

func envCSV(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func validatePort(name string, value int, errs *[]string) {
	if value < 1 || value > 65535 {
		*errs = append(*errs, fmt.Sprintf("%s: port must be 1-65535, got %d", name, value))
	}
}

func validatePositive(name string, value int, errs *[]string) {
	if value <= 0 {
		*errs = append(*errs, fmt.Sprintf("%s: must be positive, got %d", name, value))
	}
}

func hostname() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "logstore"
}
