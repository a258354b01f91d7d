package stackrun_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	intstackrun "github.com/slok/stackrun/test/integration/stackrun"
)

// newTestStack creates a temp stack directory with the given files and a fresh history database path.
func newTestStack(t *testing.T, files map[string]string) (dir, dbPath string) {
	t.Helper()

	dir = t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	return dir, filepath.Join(t.TempDir(), "test-stackrun.db")
}

// runItem matches the JSON output of `stackrun history list -o json`.
type runItem struct {
	ID         string `json:"id"`
	ConfigFile string `json:"configFile"`
	Status     string `json:"status"`
	Processes  []struct {
		Name     string `json:"name"`
		State    string `json:"state"`
		ExitCode int    `json:"exitCode"`
	} `json:"processes"`
}

// planOutput matches the JSON output of `stackrun plan -o json`.
type planOutput struct {
	Processes []struct {
		Index   int               `json:"index"`
		Name    string            `json:"name"`
		Command string            `json:"command"`
		Env     map[string]string `json:"env"`
	} `json:"processes"`
}

func TestIntegrationRun(t *testing.T) {
	tests := map[string]struct {
		files     map[string]string
		args      string
		expErr    bool
		expOut    []string
		expStatus string
	}{
		"Running a YAML stack should run every process with its prefix.": {
			files: map[string]string{
				"stack.config.yaml": `
commands:
  - name: one
    command: echo hello-one
  - name: two
    command: echo hello-two
`,
			},
			args:      "run",
			expOut:    []string{"[one] hello-one", "[two] hello-two"},
			expStatus: "succeeded",
		},

		"Running a stack should run the hooks and load the dotenv file.": {
			files: map[string]string{
				".env": "GREETING=hi-from-dotenv\n",
				"stack.config.json": `{
  "beforeCommands": ["echo before-hook"],
  "commands": [{"name": "app", "command": "echo $GREETING"}],
  "afterCommands": ["echo after-hook"]
}`,
			},
			args:      "run",
			expOut:    []string{"before-hook", "[app] hi-from-dotenv", "after-hook"},
			expStatus: "succeeded",
		},

		"Running a stack with a custom config file should use it.": {
			files: map[string]string{
				"dev.toml": `
[[commands]]
name = "toml"
command = "echo from-toml"
`,
			},
			args:      "run -c dev.toml",
			expOut:    []string{"[toml] from-toml"},
			expStatus: "succeeded",
		},

		"Running a stack with a failing process should kill the rest and fail.": {
			files: map[string]string{
				"stack.config.yaml": `
commands:
  - name: bad
    command: exit 2
  - name: slow
    command: sleep 30
`,
			},
			args:      "run",
			expErr:    true,
			expOut:    []string{"[bad] exit 2 exited with code 2"},
			expStatus: "failed",
		},

		"Running without a config should fail.": {
			args:   "run",
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)
			config := intstackrun.NewConfig(t)

			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
			defer cancel()

			dir, dbPath := newTestStack(t, test.files)
			stdout, stderr, err := intstackrun.Run(ctx, config, dbPath, dir, test.args)
			if test.expErr {
				require.Error(err)
			} else {
				require.NoError(err, "stderr: %s", stderr)
			}

			for _, exp := range test.expOut {
				assert.Contains(string(stdout), exp)
			}

			if test.expStatus == "" {
				return
			}
			out, stderr, err := intstackrun.RunPrinter(ctx, config, dbPath, dir, "history list -o json")
			require.NoError(err, "stderr: %s", stderr)

			var runs []runItem
			require.NoError(json.Unmarshal(out, &runs))
			require.Len(runs, 1)
			assert.Equal(test.expStatus, runs[0].Status)
		})
	}
}

func TestIntegrationRunInlineJSON(t *testing.T) {
	require := require.New(t)
	config := intstackrun.NewConfig(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	dir, dbPath := newTestStack(t, nil)
	stdout, stderr, err := intstackrun.RunArgs(ctx, config, dbPath, dir, []string{
		"run", "--no-history", "--json", `{"commands": [{"name": "inline", "command": "echo from inline"}]}`,
	})
	require.NoError(err, "stderr: %s", stderr)
	require.Contains(string(stdout), "[inline] from inline")

	_, err = os.Stat(dbPath)
	require.True(os.IsNotExist(err))
}

func TestIntegrationPlan(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	config := intstackrun.NewConfig(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	dir, dbPath := newTestStack(t, map[string]string{
		"stack.config.yaml": `
cfTunnelConfig:
  cfToken: test-token
commands:
  - name: web
    command: npm run dev
    url: http://localhost:3000
    tunnelUrl: web.example.com
    tunnelEnv:
      PUBLIC_URL: https://web.example.com
  - name: worker
    command: should-not-run
`,
	})

	stdout, stderr, err := intstackrun.RunArgs(ctx, config, dbPath, dir, []string{"plan", "-o", "json", "--tunnel"})
	require.NoError(err, "stderr: %s", stderr)

	var plan planOutput
	require.NoError(json.Unmarshal(stdout, &plan), "stdout: %s", stdout)
	require.Len(plan.Processes, 3)
	assert.Equal("web", plan.Processes[0].Name)
	assert.Equal("https://web.example.com", plan.Processes[0].Env["PUBLIC_URL"])
	assert.Equal("worker", plan.Processes[1].Name)
	assert.Equal("TUNN", plan.Processes[2].Name)
	assert.Equal("<redacted>", plan.Processes[2].Env["STACKRUN_TUNNEL_PAYLOAD"])

	// Plans are never stored.
	_, err = os.Stat(dbPath)
	assert.True(os.IsNotExist(err))
}

func TestIntegrationHistoryShow(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	config := intstackrun.NewConfig(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	dir, dbPath := newTestStack(t, map[string]string{
		"stack.config.yaml": "commands:\n  - name: app\n    command: exit 0\n",
	})

	_, stderr, err := intstackrun.Run(ctx, config, dbPath, dir, "run")
	require.NoError(err, "stderr: %s", stderr)

	stdout, stderr, err := intstackrun.RunPrinter(ctx, config, dbPath, dir, "history show -o json")
	require.NoError(err, "stderr: %s", stderr)

	var got runItem
	require.NoError(json.Unmarshal(stdout, &got))
	assert.Equal("succeeded", got.Status)
	assert.Contains(got.ConfigFile, "stack.config.yaml")
	require.Len(got.Processes, 1)
	assert.Equal("app", got.Processes[0].Name)
	assert.Equal("success", got.Processes[0].State)

	_, _, err = intstackrun.RunPrinter(ctx, config, dbPath, dir, "history show 01J000000000000000000000XX")
	assert.Error(err)
}

func TestIntegrationVersionAndHelp(t *testing.T) {
	tests := map[string]struct {
		args   string
		expOut string
	}{
		"The short version flag should print the version.": {
			args:   "-V",
			expOut: "dev",
		},
		"The long version flag should print the version.": {
			args:   "--version",
			expOut: "dev",
		},
		"The short help flag should print the usage.": {
			args:   "-h",
			expOut: "usage: stackrun",
		},
		"The long help flag should print the usage.": {
			args:   "--help",
			expOut: "usage: stackrun",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			config := intstackrun.NewConfig(t)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			dir, dbPath := newTestStack(t, nil)
			stdout, stderr, err := intstackrun.RunPrinter(ctx, config, dbPath, dir, test.args)
			require.NoError(t, err, "stderr: %s", stderr)
			assert.Contains(t, string(stdout), test.expOut)
		})
	}
}
