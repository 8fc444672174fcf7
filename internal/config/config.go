package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sevigo/ci-warden/internal/logger"
)

// DefaultFailureMarkers are matched against every output line of the test command.
// They cover Maven/Surefire summaries and the go test runner.
var DefaultFailureMarkers = []string{
	`BUILD FAILURE`,
	`Failures:\s*[1-9][0-9]*`,
	`Errors:\s*[1-9][0-9]*`,
	`^(--- )?FAIL\b`,
}

// Config holds the application's configuration values.
type Config struct {
	Server   ServerConfig
	Logging  logger.Config
	Queue    QueueConfig
	Build    BuildConfig
	GitHub   GitHubConfig
	Reporter ReporterConfig
	Database *DBConfig
}

type ServerConfig struct {
	Port      string
	PublicURL string
}

type QueueConfig struct {
	MaxWorkers     int
	Capacity       int // 0 means unbounded
	DedupeInFlight bool
}

type BuildConfig struct {
	WorkspaceRoot  string
	RunLogPath     string
	TestCommand    string
	FailureMarkers []string
	Timeout        time.Duration
	FetchTimeout   time.Duration
	MaxLogBytes    int
	GitBaseURL     string
}

type GitHubConfig struct {
	APIURL         string
	Token          string
	AppID          int64
	InstallationID int64
	PrivateKeyPath string
	WebhookSecret  string
}

type ReporterConfig struct {
	Context       string
	MaxAttempts   int
	BaseDelay     time.Duration
	ReportPending bool
}

type DBConfig struct {
	Driver          string
	Path            string
	Host            string
	Port            int
	Username        string
	Password        string
	Database        string
	SSLMode         string
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// LoadConfig reads configuration from environment variables and a .env file,
// sets sensible defaults, and validates the result. It uses the Viper
// library to handle configuration loading and precedence.
func LoadConfig() (*Config, error) {
	v := viper.GetViper()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			slog.Error("failed to read config file", "error", err)
		}
	}

	cfg := FromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("PUBLIC_URL", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("LOG_OUTPUT", "stdout")
	v.SetDefault("LOG_PATH", logger.DefaultFile)
	v.SetDefault("MAX_WORKERS", 3)
	v.SetDefault("QUEUE_CAPACITY", 0)
	v.SetDefault("DEDUPE_IN_FLIGHT", false)
	v.SetDefault("WORKSPACE_ROOT", filepath.Join(os.TempDir(), "ci-warden"))
	v.SetDefault("RUN_LOG_PATH", "test_results.log")
	v.SetDefault("TEST_COMMAND", "mvn test")
	v.SetDefault("FAILURE_MARKERS", strings.Join(DefaultFailureMarkers, ","))
	v.SetDefault("BUILD_TIMEOUT", "30m")
	v.SetDefault("FETCH_TIMEOUT", "5m")
	v.SetDefault("MAX_LOG_BYTES", 1<<20)
	v.SetDefault("GIT_BASE_URL", "https://github.com")
	v.SetDefault("GITHUB_API_URL", "")
	v.SetDefault("STATUS_CONTEXT", "ci-warden")
	v.SetDefault("REPORT_MAX_ATTEMPTS", 4)
	v.SetDefault("REPORT_BASE_DELAY", "2s")
	v.SetDefault("REPORT_PENDING", true)
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_PATH", "ci-warden.db")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "ci_warden")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", "5m")
}

// FromViper builds a Config from the values currently held by v.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:      v.GetString("SERVER_PORT"),
			PublicURL: strings.TrimSuffix(v.GetString("PUBLIC_URL"), "/"),
		},
		Logging: logger.Config{
			Level:  strings.ToLower(v.GetString("LOG_LEVEL")),
			Format: v.GetString("LOG_FORMAT"),
			Output: v.GetString("LOG_OUTPUT"),
			Path:   v.GetString("LOG_PATH"),
		},
		Queue: QueueConfig{
			MaxWorkers:     v.GetInt("MAX_WORKERS"),
			Capacity:       v.GetInt("QUEUE_CAPACITY"),
			DedupeInFlight: v.GetBool("DEDUPE_IN_FLIGHT"),
		},
		Build: BuildConfig{
			WorkspaceRoot:  v.GetString("WORKSPACE_ROOT"),
			RunLogPath:     v.GetString("RUN_LOG_PATH"),
			TestCommand:    v.GetString("TEST_COMMAND"),
			FailureMarkers: splitList(v.GetString("FAILURE_MARKERS")),
			Timeout:        v.GetDuration("BUILD_TIMEOUT"),
			FetchTimeout:   v.GetDuration("FETCH_TIMEOUT"),
			MaxLogBytes:    v.GetInt("MAX_LOG_BYTES"),
			GitBaseURL:     strings.TrimSuffix(v.GetString("GIT_BASE_URL"), "/"),
		},
		GitHub: GitHubConfig{
			APIURL:         v.GetString("GITHUB_API_URL"),
			Token:          v.GetString("GITHUB_TOKEN"),
			AppID:          v.GetInt64("GITHUB_APP_ID"),
			InstallationID: v.GetInt64("GITHUB_INSTALLATION_ID"),
			PrivateKeyPath: v.GetString("GITHUB_PRIVATE_KEY_PATH"),
			WebhookSecret:  v.GetString("GITHUB_WEBHOOK_SECRET"),
		},
		Reporter: ReporterConfig{
			Context:       v.GetString("STATUS_CONTEXT"),
			MaxAttempts:   v.GetInt("REPORT_MAX_ATTEMPTS"),
			BaseDelay:     v.GetDuration("REPORT_BASE_DELAY"),
			ReportPending: v.GetBool("REPORT_PENDING"),
		},
		Database: &DBConfig{
			Driver:          strings.ToLower(v.GetString("DB_DRIVER")),
			Path:            v.GetString("DB_PATH"),
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			Username:        v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Database:        v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime: v.GetDuration("DB_CONN_MAX_IDLE_TIME"),
		},
	}
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Queue.MaxWorkers <= 0 {
		return fmt.Errorf("MAX_WORKERS must be positive, got %d", c.Queue.MaxWorkers)
	}
	if c.Queue.Capacity < 0 {
		return fmt.Errorf("QUEUE_CAPACITY must not be negative, got %d", c.Queue.Capacity)
	}
	if c.Build.Timeout <= 0 {
		return fmt.Errorf("BUILD_TIMEOUT must be positive, got %s", c.Build.Timeout)
	}
	if c.Build.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive, got %s", c.Build.FetchTimeout)
	}
	if strings.TrimSpace(c.Build.TestCommand) == "" {
		return fmt.Errorf("TEST_COMMAND must be set")
	}
	if c.Build.WorkspaceRoot == "" {
		return fmt.Errorf("WORKSPACE_ROOT must be set")
	}
	for _, m := range c.Build.FailureMarkers {
		if _, err := regexp.Compile(m); err != nil {
			return fmt.Errorf("invalid failure marker %q: %w", m, err)
		}
	}
	if c.Reporter.MaxAttempts <= 0 {
		return fmt.Errorf("REPORT_MAX_ATTEMPTS must be positive, got %d", c.Reporter.MaxAttempts)
	}
	if c.GitHub.AppID != 0 && (c.GitHub.InstallationID == 0 || c.GitHub.PrivateKeyPath == "") {
		return fmt.Errorf("GITHUB_APP_ID requires GITHUB_INSTALLATION_ID and GITHUB_PRIVATE_KEY_PATH")
	}
	if c.Database == nil {
		return fmt.Errorf("database configuration is missing")
	}
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("DB_PATH must be set for the sqlite driver")
		}
	case "postgres":
		if c.Database.Host == "" || c.Database.Database == "" {
			return fmt.Errorf("DB_HOST and DB_NAME must be set for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
