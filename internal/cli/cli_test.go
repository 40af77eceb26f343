package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pgEdge/pgedge-ducklens/internal/ingest"
	"github.com/pgEdge/pgedge-ducklens/pkg/version"
)

// execute runs the root command with an empty config file so the
// working directory never leaks into the test.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "pgedge-ducklens.yaml")
	if err := os.WriteFile(cfgPath, []byte("log_level: error\n"), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		connection = ""
		logLevel = ""
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(out, version.Info()) {
		t.Errorf("Expected version info in output, got %q", out)
	}
}

func TestInvalidLogLevel(t *testing.T) {
	if _, err := execute(t, "--log-level", "verbose", "version"); err == nil {
		t.Error("Expected error for invalid log level")
	}
}

func TestGenerateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.xlsx")

	_, err := execute(t, "generate",
		"--output", path, "--rows", "120", "--stores", "3",
		"--items", "10", "--days", "4", "--seed", "7")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Generate.Rows != 120 || cfg.Generate.Seed != 7 {
		t.Errorf("Expected flags to override config, got %+v", cfg.Generate)
	}

	rows, err := ingest.ReadWorkbook(path, ingest.Options{})
	if err != nil {
		t.Fatalf("Failed to read generated workbook: %v", err)
	}
	if len(rows) == 0 {
		t.Error("Expected generated rows")
	}
}

func TestCommandsRequireConnection(t *testing.T) {
	for _, name := range []string{"init", "run", "serve", "status"} {
		t.Run(name, func(t *testing.T) {
			_, err := execute(t, name)
			if err == nil {
				t.Errorf("Expected %s to fail without a connection string", name)
			}
		})
	}
}

func TestIngestRequiresFile(t *testing.T) {
	_, err := execute(t, "--connection", "postgres://localhost/test", "ingest")
	if err == nil {
		t.Error("Expected ingest to fail without a workbook path")
	}
}
