package configuration

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEnv_LoadsExistingFiles(t *testing.T) {
	tmp := t.TempDir()

	requireWriteFile(t, filepath.Join(tmp, ".env.local"), "PLANBRIDGE_TEST_ENV_LOAD=ok\n")

	origWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	if err := os.Chdir(tmp); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	_ = os.Unsetenv("PLANBRIDGE_TEST_ENV_LOAD")

	n, err := LoadEnv([]string{".env", ".env.local"})
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 env file loaded, got %d", n)
	}
	if got := os.Getenv("PLANBRIDGE_TEST_ENV_LOAD"); got != "ok" {
		t.Fatalf("expected env var loaded, got %q", got)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearPlanbridgeEnv(t)

	conf, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	t.Cleanup(conf.Unload)

	if conf.PageSize != 100 {
		t.Errorf("PageSize = %d, want 100", conf.PageSize)
	}
	if conf.Concurrency != 1 {
		t.Errorf("Concurrency = %d, want 1", conf.Concurrency)
	}
	if conf.Retry.MaxAttempts != 5 {
		t.Errorf("Retry.MaxAttempts = %d, want 5", conf.Retry.MaxAttempts)
	}
	if conf.Retry.InitialDelay != time.Second {
		t.Errorf("Retry.InitialDelay = %s, want 1s", conf.Retry.InitialDelay)
	}
	if conf.Retry.MaxDelay != 30*time.Second {
		t.Errorf("Retry.MaxDelay = %s, want 30s", conf.Retry.MaxDelay)
	}
	if conf.RequestIDHeader != "X-Request-Id" {
		t.Errorf("RequestIDHeader = %q, want X-Request-Id", conf.RequestIDHeader)
	}
	if conf.Logger() == nil {
		t.Error("Logger() returned nil")
	}
}

func TestLoad_RejectsInvalidRetry(t *testing.T) {
	clearPlanbridgeEnv(t)
	t.Setenv("RETRY_MAX_ATTEMPTS", "0")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for RETRY_MAX_ATTEMPTS=0")
	}
}

func TestLoad_RejectsMaxDelayBelowInitial(t *testing.T) {
	clearPlanbridgeEnv(t)
	t.Setenv("RETRY_INITIAL_DELAY", "10s")
	t.Setenv("RETRY_MAX_DELAY", "2s")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for RETRY_MAX_DELAY below RETRY_INITIAL_DELAY")
	}
}

func TestLoad_FileLogger(t *testing.T) {
	clearPlanbridgeEnv(t)
	logPath := filepath.Join(t.TempDir(), "logs", "planbridge.log")
	t.Setenv("LOG_PATH", logPath)

	conf, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	t.Cleanup(conf.Unload)

	if _, err := os.Stat(logPath); err != nil {
		t.Fatalf("expected log file at %s: %v", logPath, err)
	}
}

func TestLogrusLogLevel(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"silent", "panic"},
		{"error", "error"},
		{"warn", "warning"},
		{"info", "info"},
		{"debug", "debug"},
		{"bogus", "info"},
	}
	for _, tc := range cases {
		c := &Configuration{LogLevel: tc.in}
		if got := c.LogrusLogLevel().String(); got != tc.want {
			t.Errorf("LogrusLogLevel(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestPlanOptions_Validate(t *testing.T) {
	p := PlanOptions{}
	if err := p.Validate(); err == nil {
		t.Fatal("expected error for empty plan options")
	}
	p = PlanOptions{BaseURL: "http://plan", TokenURL: "http://plan/token", ClientID: "id", ClientSecret: "secret"}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestSheetOptions_Validate(t *testing.T) {
	s := SheetOptions{}
	if err := s.Validate(); err == nil {
		t.Fatal("expected error for empty sheet options")
	}
	s = SheetOptions{BaseURL: "http://sheet", Token: "tok"}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func clearPlanbridgeEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PLAN_API_URL", "PLAN_TOKEN_URL", "PLAN_CLIENT_ID", "PLAN_CLIENT_SECRET",
		"SHEET_API_URL", "SHEET_API_TOKEN",
		"RETRY_MAX_ATTEMPTS", "RETRY_INITIAL_DELAY", "RETRY_MAX_DELAY",
		"PAGE_SIZE", "MIGRATE_CONCURRENCY", "METRICS_ADDR",
		"LOG_LEVEL", "LOG_PATH", "REQUEST_ID_HEADER",
	} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}

func requireWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
