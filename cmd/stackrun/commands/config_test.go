package commands

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/stackrun/internal/log"
	storageio "github.com/slok/stackrun/internal/storage/io"
)

func TestStackFlagsLoad(t *testing.T) {
	tests := map[string]struct {
		files      map[string]string
		flags      stackFlags
		expCommand string
		expFile    string
		expTunnel  bool
		expErr     error
	}{
		"The default config name should be discovered with an extension.": {
			files:      map[string]string{"stack.config.yaml": "commands:\n  - command: echo default\n"},
			flags:      stackFlags{configFile: "stack.config"},
			expCommand: "echo default",
			expFile:    "stack.config.yaml",
		},
		"The positional config should take precedence over the flag.": {
			files: map[string]string{
				"stack.config.yaml": "commands:\n  - command: echo default\n",
				"dev/other.json":    `{"commands": [{"command": "echo other"}]}`,
			},
			flags:      stackFlags{configFile: "stack.config", configArg: "dev/other"},
			expCommand: "echo other",
			expFile:    "dev/other.json",
		},
		"Inline JSON should be used instead of the config file.": {
			files:      map[string]string{"stack.config.yaml": "commands:\n  - command: echo default\n"},
			flags:      stackFlags{configFile: "stack.config", inlineJSON: `{"commands": [{"command": "echo inline"}]}`},
			expCommand: "echo inline",
		},
		"Dotenv variables should be available for substitution.": {
			files: map[string]string{
				".env":              "STACKRUN_TEST_GREETING=hello\n",
				"stack.config.yaml": "commands:\n  - command: echo ${STACKRUN_TEST_GREETING}\n",
			},
			flags:      stackFlags{configFile: "stack.config"},
			expCommand: "echo hello",
			expFile:    "stack.config.yaml",
		},
		"A dotenv tunnel variable should enable the tunnel.": {
			files: map[string]string{
				".env":              "TUNNEL=true\n",
				"stack.config.yaml": "commands:\n  - command: echo default\n",
			},
			flags:      stackFlags{configFile: "stack.config"},
			expCommand: "echo default",
			expFile:    "stack.config.yaml",
			expTunnel:  true,
		},
		"A disabled dotenv tunnel variable should not enable the tunnel.": {
			files: map[string]string{
				".env":              "TUNNEL=false\n",
				"stack.config.yaml": "commands:\n  - command: echo default\n",
			},
			flags:      stackFlags{configFile: "stack.config"},
			expCommand: "echo default",
			expFile:    "stack.config.yaml",
		},
		"The tunnel flag should be kept without a dotenv tunnel variable.": {
			files:      map[string]string{"stack.config.yaml": "commands:\n  - command: echo default\n"},
			flags:      stackFlags{configFile: "stack.config", tunnel: true},
			expCommand: "echo default",
			expFile:    "stack.config.yaml",
			expTunnel:  true,
		},
		"A missing config should fail.": {
			flags:  stackFlags{configFile: "stack.config"},
			expErr: storageio.ErrConfigNotFound,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range test.files {
				p := filepath.Join(dir, name)
				require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
				require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
			}
			wd, err := os.Getwd()
			require.NoError(t, err)
			require.NoError(t, os.Chdir(dir))
			t.Cleanup(func() { _ = os.Chdir(wd) })
			// The dotenv only exports unset variables.
			t.Setenv("TUNNEL", "")
			require.NoError(t, os.Unsetenv("TUNNEL"))
			t.Cleanup(func() { _ = os.Unsetenv("STACKRUN_TEST_GREETING") })

			flags := test.flags
			cfg, file, err := flags.load(context.Background(), log.Noop)
			if test.expErr != nil {
				assert.ErrorIs(t, err, test.expErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, cfg.Commands, 1)
			assert.Equal(t, test.expCommand, *cfg.Commands[0].Command)
			assert.Equal(t, test.expTunnel, flags.tunnel)

			if test.expFile == "" {
				assert.Empty(t, file)
			} else {
				// The working dir can be the resolved temp dir symlink.
				assert.True(t, strings.HasSuffix(file, string(filepath.Separator)+filepath.FromSlash(test.expFile)), file)
			}
		})
	}
}

func TestExportDotenvKeepsExistingVariables(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("STACKRUN_TEST_EXISTING=fromfile\nSTACKRUN_TEST_NEW=new\n"), 0o644))
	t.Setenv("STACKRUN_TEST_EXISTING", "fromenv")
	t.Cleanup(func() { _ = os.Unsetenv("STACKRUN_TEST_NEW") })

	require.NoError(t, exportDotenv(context.Background(), dir, log.Noop))

	assert.Equal(t, "fromenv", os.Getenv("STACKRUN_TEST_EXISTING"))
	assert.Equal(t, "new", os.Getenv("STACKRUN_TEST_NEW"))
}
