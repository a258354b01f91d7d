package stack_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/stackrun/internal/model"
	"github.com/slok/stackrun/internal/stack"
)

func TestNormalize(t *testing.T) {
	tests := map[string]struct {
		specs         []model.CommandSpec
		tunnelEnabled bool
		prefixLength  int
		expProcesses  []model.Process
	}{
		"A single command should be normalized as a single process.": {
			specs:        []model.CommandSpec{{Command: ptr("echo hi"), Name: ptr("greet")}},
			prefixLength: 10,
			expProcesses: []model.Process{{Index: 0, Name: "greet", Command: "echo hi"}},
		},

		"Specs without command should be dropped.": {
			specs: []model.CommandSpec{
				{Name: ptr("nocmd"), Cwd: ptr("/tmp")},
				{Command: ptr("b")},
			},
			prefixLength: 10,
			expProcesses: []model.Process{{Index: 0, Command: "b"}},
		},

		"Names longer than the prefix length should be truncated.": {
			specs:        []model.CommandSpec{{Command: ptr("a"), Name: ptr("frontend-app")}},
			prefixLength: 5,
			expProcesses: []model.Process{{Index: 0, Name: "front", Command: "a"}},
		},

		"Names with the exact prefix length should be kept.": {
			specs:        []model.CommandSpec{{Command: ptr("a"), Name: ptr("front")}},
			prefixLength: 5,
			expProcesses: []model.Process{{Index: 0, Name: "front", Command: "a"}},
		},

		"Names should be truncated by characters, not bytes.": {
			specs:        []model.CommandSpec{{Command: ptr("a"), Name: ptr("ñandú-app")}},
			prefixLength: 5,
			expProcesses: []model.Process{{Index: 0, Name: "ñandú", Command: "a"}},
		},

		"Other fields should be passed through.": {
			specs: []model.CommandSpec{{
				Command:     ptr("a"),
				Cwd:         ptr("./web"),
				PrefixColor: ptr("blue.bold"),
				IPC:         ptr(1),
				Env:         model.Env{"A": ptr("1")},
			}},
			prefixLength: 10,
			expProcesses: []model.Process{{Index: 0, Command: "a", Cwd: "./web", PrefixColor: "blue.bold", IPC: 1, Env: model.Env{"A": ptr("1")}}},
		},

		"Tunnel env should be ignored when tunneling is disabled.": {
			specs: []model.CommandSpec{{
				Command:   ptr("a"),
				Env:       model.Env{"A": ptr("1"), "B": ptr("2")},
				TunnelEnv: model.Env{"B": ptr("3"), "C": ptr("4")},
			}},
			prefixLength: 10,
			expProcesses: []model.Process{{Index: 0, Command: "a", Env: model.Env{"A": ptr("1"), "B": ptr("2")}}},
		},

		"Tunnel env should override env when tunneling is enabled.": {
			specs: []model.CommandSpec{{
				Command:   ptr("a"),
				Env:       model.Env{"A": ptr("1"), "B": ptr("2")},
				TunnelEnv: model.Env{"B": ptr("3"), "C": ptr("4")},
			}},
			tunnelEnabled: true,
			prefixLength:  10,
			expProcesses:  []model.Process{{Index: 0, Command: "a", Env: model.Env{"A": ptr("1"), "B": ptr("3"), "C": ptr("4")}}},
		},

		"No specs should return no processes.": {
			prefixLength: 10,
			expProcesses: []model.Process{},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			got := stack.Normalize(test.specs, test.tunnelEnabled, test.prefixLength)
			assert.Equal(test.expProcesses, got)
		})
	}
}

func TestNormalizeIgnoresMalformedEntries(t *testing.T) {
	require := require.New(t)

	var cfg model.StackConfig
	err := json.Unmarshal([]byte(`{"commands": [
		{"name": "no-command", "cwd": {"bad": "type"}},
		{"command": ["not", "a", "string"]},
		{"command": "echo hi", "name": "greet"}
	]}`), &cfg)
	require.NoError(err)

	got := stack.Normalize(cfg.Commands, false, 10)

	require.Equal([]model.Process{{Index: 0, Name: "greet", Command: "echo hi"}}, got)
}

func TestTruncate(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("abc", stack.Truncate("abcdef", 3))
	assert.Equal("abc", stack.Truncate("abc", 3))
	assert.Equal("ab", stack.Truncate("ab", 3))
	assert.Equal("abcdef", stack.Truncate("abcdef", 0))
}
