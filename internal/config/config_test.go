package config

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/vango-dev/interactivity/internal/errors"
	"github.com/vango-dev/interactivity/pkg/interactivity"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Prefix != "wp" {
		t.Errorf("Prefix = %q, want %q", cfg.Prefix, "wp")
	}
	if cfg.Dev.Port != DefaultPort {
		t.Errorf("Dev.Port = %d, want %d", cfg.Dev.Port, DefaultPort)
	}
	if cfg.Dev.Host != DefaultHost {
		t.Errorf("Dev.Host = %q, want %q", cfg.Dev.Host, DefaultHost)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Namespace != DefaultNamespace {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	// Test loading non-existent config
	_, err := Load(tmpDir)
	if !stderrors.Is(err, errors.New(errors.CodeConfigNotFound)) {
		t.Errorf("Load() error = %v, want E141", err)
	}

	configPath := filepath.Join(tmpDir, ConfigFileName)
	configJSON := `{
  "prefix": "shop",
  "log": {"level": "warn", "format": "json"},
  "budget": {"maxEffectRuns": 50},
  "dev": {"port": 8080, "host": "0.0.0.0", "pages": "s3://bucket/site"},
  "metrics": {"enabled": false},
  "tracing": {"tracerName": "shop"},
  "source": {"region": "eu-west-1"}
}
`
	if err := os.WriteFile(configPath, []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	want := &Config{
		Prefix:  "shop",
		Log:     LogConfig{Level: "warn", Format: "json"},
		Budget:  BudgetConfig{MaxEffectRuns: 50},
		Dev:     DevConfig{Host: "0.0.0.0", Port: 8080, Pages: "s3://bucket/site"},
		Metrics: MetricsConfig{Enabled: false, Namespace: DefaultNamespace},
		Tracing: TracingConfig{TracerName: "shop"},
		Source:  SourceConfig{Region: "eu-west-1"},
	}
	if diff := cmp.Diff(want, cfg, cmpopts.IgnoreUnexported(Config{})); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
	if cfg.Path() != configPath || cfg.Dir() != tmpDir {
		t.Errorf("Path() = %q, Dir() = %q", cfg.Path(), cfg.Dir())
	}
	if got := cfg.PagesPath(); got != "s3://bucket/site" {
		t.Errorf("PagesPath() = %q", got)
	}
}

func TestLoadFile_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	if err := os.WriteFile(configPath, []byte("not valid json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFile(configPath)
	if err == nil {
		t.Fatal("Expected error for invalid JSON")
	}
	if !strings.Contains(err.Error(), errors.CodeConfigInvalid) {
		t.Errorf("Expected %s error, got: %v", errors.CodeConfigInvalid, err)
	}
}

func TestLoadFile_SyntaxErrorLocation(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)
	content := `{
  "prefix": "wp",
  "debug": tru
}
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFile(configPath)
	var ve *errors.VangoError
	if !stderrors.As(err, &ve) {
		t.Fatalf("LoadFile() error = %v, want a VangoError", err)
	}
	if ve.Location == nil || ve.Location.File != configPath || ve.Location.Line != 3 {
		t.Fatalf("Location = %+v, want line 3 of %s", ve.Location, configPath)
	}
	if len(ve.Context) == 0 {
		t.Error("Context should hold the lines around the failure")
	}
	if !strings.HasPrefix(ve.FormatCompact(), configPath+":3:") {
		t.Errorf("FormatCompact() = %q", ve.FormatCompact())
	}
}

func TestSave(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	cfg := New()
	cfg.Dev.Port = 9000
	cfg.Metrics.Enabled = false

	// Save should fail without configPath set
	if err := cfg.Save(); err == nil {
		t.Error("Expected error when saving without path")
	}

	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("SaveTo error: %v", err)
	}

	loaded, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if loaded.Dev.Port != 9000 {
		t.Errorf("Dev.Port = %d, want %d", loaded.Dev.Port, 9000)
	}
	if loaded.Metrics.Enabled {
		t.Error("Metrics.Enabled = true, want the saved false")
	}

	loaded.Dev.Port = 9001
	if err := loaded.Save(); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	reloaded, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if reloaded.Dev.Port != 9001 {
		t.Errorf("Dev.Port = %d, want %d", reloaded.Dev.Port, 9001)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"negative port", func(c *Config) { c.Dev.Port = -1 }, true},
		{"port too large", func(c *Config) { c.Dev.Port = 70000 }, true},
		{"empty prefix", func(c *Config) { c.Prefix = "" }, true},
		{"prefix with dash", func(c *Config) { c.Prefix = "my-app" }, true},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, true},
		{"upper level", func(c *Config) { c.Log.Level = "DEBUG" }, false},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, true},
		{"json format", func(c *Config) { c.Log.Format = "json" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !stderrors.Is(err, errors.New(errors.CodeConfigInvalid)) {
				t.Errorf("Validate() error = %v, want E142", err)
			}
		})
	}
}

func TestRuntime(t *testing.T) {
	cfg := New()
	cfg.Prefix = "x"
	cfg.Budget.MaxEffectRuns = 7

	want := interactivity.Config{Prefix: "x", MaxEffectRuns: 7}
	if diff := cmp.Diff(want, cfg.Runtime()); diff != "" {
		t.Errorf("Runtime() mismatch (-want +got):\n%s", diff)
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer

	cfg := New()
	cfg.Log.Level = "warn"
	logger := cfg.Logger(&buf)
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn level output:\n%s", buf.String())
	}

	buf.Reset()
	cfg.Debug = true
	cfg.Log.Format = "json"
	cfg.Logger(&buf).Debug("detail")
	if !strings.Contains(buf.String(), `"msg":"detail"`) {
		t.Errorf("debug json output:\n%s", buf.String())
	}
}

func TestDevAddress(t *testing.T) {
	cfg := New()
	cfg.Dev.Port = 8080
	cfg.Dev.Host = "0.0.0.0"

	if addr := cfg.DevAddress(); addr != "0.0.0.0:8080" {
		t.Errorf("DevAddress = %q, want %q", addr, "0.0.0.0:8080")
	}
	if url := New().DevURL(); url != "http://localhost:3000" {
		t.Errorf("DevURL = %q, want %q", url, "http://localhost:3000")
	}
}

func TestPagesPath(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := New()
	if err := cfg.SaveTo(filepath.Join(tmpDir, ConfigFileName)); err != nil {
		t.Fatal(err)
	}

	if got := cfg.PagesPath(); got != filepath.Join(tmpDir, DefaultPages) {
		t.Errorf("PagesPath = %q", got)
	}
	cfg.Dev.Pages = "/absolute/pages"
	if got := cfg.PagesPath(); got != "/absolute/pages" {
		t.Errorf("PagesPath absolute = %q", got)
	}
}

func TestExists(t *testing.T) {
	tmpDir := t.TempDir()

	if Exists(tmpDir) {
		t.Error("Exists should be false for empty directory")
	}

	configPath := filepath.Join(tmpDir, ConfigFileName)
	if err := os.WriteFile(configPath, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	if !Exists(tmpDir) {
		t.Error("Exists should be true after creating config")
	}
}

func TestFindProjectRoot(t *testing.T) {
	tmpDir := t.TempDir()
	nestedDir := filepath.Join(tmpDir, "a", "b", "c")
	if err := os.MkdirAll(nestedDir, 0755); err != nil {
		t.Fatal(err)
	}

	if _, err := FindProjectRoot(nestedDir); err == nil {
		t.Error("FindProjectRoot should fail when no config exists")
	}

	configPath := filepath.Join(tmpDir, ConfigFileName)
	if err := os.WriteFile(configPath, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	root, err := FindProjectRoot(nestedDir)
	if err != nil {
		t.Fatalf("FindProjectRoot error: %v", err)
	}
	if root != tmpDir {
		t.Errorf("FindProjectRoot = %q, want %q", root, tmpDir)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.Prefix != "wp" {
		t.Errorf("Prefix = %q, want wp", cfg.Prefix)
	}
	if cfg.Dev.Port != DefaultPort {
		t.Errorf("Dev.Port = %d, want %d", cfg.Dev.Port, DefaultPort)
	}
	if cfg.Dev.Pages != DefaultPages {
		t.Errorf("Dev.Pages = %q, want %q", cfg.Dev.Pages, DefaultPages)
	}
	if cfg.Budget.MaxEffectRuns == 0 {
		t.Error("Budget.MaxEffectRuns should default to the runtime default")
	}
}
