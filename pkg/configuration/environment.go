package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/planbridge/planbridge/pkg/logging"
)

// LoadEnv loads the env files that exist and reports how many were found.
// Missing files are not an error; the environment may carry everything.
func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existingFiles = append(existingFiles, file)
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

type PlanOptions struct {
	BaseURL      string `env:"PLAN_API_URL"`
	TokenURL     string `env:"PLAN_TOKEN_URL"`
	ClientID     string `env:"PLAN_CLIENT_ID"`
	ClientSecret string `env:"PLAN_CLIENT_SECRET"`
}

func (p *PlanOptions) Validate() error {
	if p.BaseURL == "" {
		return fmt.Errorf("PLAN_API_URL is required")
	}
	if p.TokenURL == "" {
		return fmt.Errorf("PLAN_TOKEN_URL is required")
	}
	if p.ClientID == "" || p.ClientSecret == "" {
		return fmt.Errorf("PLAN_CLIENT_ID and PLAN_CLIENT_SECRET are required")
	}
	return nil
}

type SheetOptions struct {
	BaseURL string `env:"SHEET_API_URL"`
	Token   string `env:"SHEET_API_TOKEN"`
}

func (s *SheetOptions) Validate() error {
	if s.BaseURL == "" {
		return fmt.Errorf("SHEET_API_URL is required")
	}
	if s.Token == "" {
		return fmt.Errorf("SHEET_API_TOKEN is required")
	}
	return nil
}

type RetryOptions struct {
	MaxAttempts  int           `env:"RETRY_MAX_ATTEMPTS" envDefault:"5"`
	InitialDelay time.Duration `env:"RETRY_INITIAL_DELAY" envDefault:"1s"`
	MaxDelay     time.Duration `env:"RETRY_MAX_DELAY" envDefault:"30s"`
}

func (r *RetryOptions) Validate() error {
	if r.MaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1, got %d", r.MaxAttempts)
	}
	if r.InitialDelay <= 0 {
		return fmt.Errorf("RETRY_INITIAL_DELAY must be positive, got %s", r.InitialDelay)
	}
	if r.MaxDelay < r.InitialDelay {
		return fmt.Errorf("RETRY_MAX_DELAY must be at least RETRY_INITIAL_DELAY, got %s < %s", r.MaxDelay, r.InitialDelay)
	}
	return nil
}

type Configuration struct {
	Plan  PlanOptions
	Sheet SheetOptions
	Retry RetryOptions

	PageSize    int    `env:"PAGE_SIZE" envDefault:"100"`
	Concurrency int    `env:"MIGRATE_CONCURRENCY" envDefault:"1"`
	MetricsAddr string `env:"METRICS_ADDR" envDefault:""`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	// When set, logs go to this file as JSON lines in addition to stderr.
	LogPath string `env:"LOG_PATH" envDefault:""`
	// Header carrying the request ID on outgoing API calls.
	RequestIDHeader string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-Id"`

	logFile *os.File
	logger  *logrus.Logger
}

// Load reads the given env files (if present), parses the environment into a
// Configuration and wires its logger. Callers own the returned value; there
// is no process-global configuration.
func Load(envFiles ...string) (*Configuration, error) {
	c := &Configuration{}
	if err := c.load(envFiles); err != nil {
		c.Unload()
		return nil, err
	}
	return c, nil
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 && len(envFiles) > 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}

	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("retry configuration error: %w", err)
	}
	if c.PageSize < 1 {
		return fmt.Errorf("PAGE_SIZE must be at least 1, got %d", c.PageSize)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("MIGRATE_CONCURRENCY must be at least 1, got %d", c.Concurrency)
	}

	if c.LogPath != "" {
		f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
		if err != nil {
			return err
		}
		c.logFile = f
		c.logger = logger
	} else {
		c.logger = logging.ConsoleLogger(c.LogrusLogLevel())
	}

	return nil
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

// Unload releases resources held by the configuration, closing the log file
// if one was opened.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		_ = c.logFile.Close()
		c.logFile = nil
	}
}
