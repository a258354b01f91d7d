package stackrun

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/slok/stackrun/test/integration/testutils"
)

// Config holds integration test configuration loaded from environment variables.
type Config struct {
	Binary string
}

func (c *Config) defaults() error {
	if c.Binary == "" {
		c.Binary = "stackrun"
	}

	// If the path is already absolute, just check it exists.
	// If relative, the caller should pass an absolute path via the env var,
	// because go test changes the CWD to the test package directory.
	if !filepath.IsAbs(c.Binary) {
		return fmt.Errorf("STACKRUN_INTEGRATION_BINARY must be an absolute path, got %q", c.Binary)
	}
	if _, err := os.Stat(c.Binary); err != nil {
		return fmt.Errorf("stackrun binary not found at %q: %w", c.Binary, err)
	}

	return nil
}

// NewConfig loads integration test configuration from environment variables.
// If the config is invalid or the activation env var is not set, the test is skipped.
func NewConfig(t *testing.T) Config {
	t.Helper()

	const (
		envActivation = "STACKRUN_INTEGRATION"
		envBinary     = "STACKRUN_INTEGRATION_BINARY"
	)

	if os.Getenv(envActivation) != "true" {
		t.Skipf("Skipping integration test: %s is not set to 'true'", envActivation)
	}

	c := Config{
		Binary: os.Getenv(envBinary),
	}

	if err := c.defaults(); err != nil {
		t.Skipf("Skipping due to invalid config: %s", err)
	}

	return c
}

// Run executes stackrun in a stack directory with an isolated history database.
func Run(ctx context.Context, config Config, dbPath, dir, cmdArgs string) (stdout, stderr []byte, err error) {
	env := []string{"STACKRUN_DB_PATH=" + dbPath, "STACKRUN_NO_COLOR=true"}
	return testutils.RunStackrun(ctx, env, config.Binary, dir, cmdArgs, false)
}

// RunPrinter executes a printer stackrun command (e.g plan, history) without logs.
func RunPrinter(ctx context.Context, config Config, dbPath, dir, cmdArgs string) (stdout, stderr []byte, err error) {
	env := []string{"STACKRUN_DB_PATH=" + dbPath, "STACKRUN_NO_COLOR=true"}
	return testutils.RunStackrun(ctx, env, config.Binary, dir, cmdArgs, true)
}

// RunArgs executes stackrun with pre-split arguments.
func RunArgs(ctx context.Context, config Config, dbPath, dir string, args []string) (stdout, stderr []byte, err error) {
	env := []string{"STACKRUN_DB_PATH=" + dbPath, "STACKRUN_NO_COLOR=true"}
	return testutils.RunStackrunArgs(ctx, env, config.Binary, dir, args, false)
}
