package shell_test

import (
	"bytes"
	"context"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/stackrun/internal/shell"
)

func TestExecShellRun(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell tests use sh")
	}

	tests := map[string]struct {
		command string
		stdin   string
		baseEnv []string
		expOut  string
		expErr  bool
	}{
		"A successful command should write to stdout.": {
			command: "echo hi",
			expOut:  "hi\n",
		},
		"A failing command should fail.": {
			command: "exit 2",
			expErr:  true,
		},
		"The command should read the input.": {
			command: "read l; echo got $l",
			stdin:   "hello\n",
			expOut:  "got hello\n",
		},
		"The command should have the base env and PATH.": {
			command: `echo "$FOO" && test -n "$PATH"`,
			baseEnv: []string{"FOO=bar", "PATH=/usr/bin:/bin"},
			expOut:  "bar\n",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			var stdout, stderr bytes.Buffer
			sh, err := shell.NewExecShell(shell.ExecShellConfig{
				Stdin:   strings.NewReader(test.stdin),
				Stdout:  &stdout,
				Stderr:  &stderr,
				BaseEnv: test.baseEnv,
			})
			require.NoError(err)

			err = sh.Run(context.Background(), test.command)
			if test.expErr {
				assert.Error(err)
			} else if assert.NoError(err) {
				assert.Equal(test.expOut, stdout.String())
			}
		})
	}
}
