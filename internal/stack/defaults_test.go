package stack_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slok/stackrun/internal/model"
	"github.com/slok/stackrun/internal/stack"
	"github.com/slok/stackrun/internal/utils/env"
)

func ptr[T any](v T) *T { return &v }

func defaultStack() model.Stack {
	return model.Stack{
		Commands: []model.CommandSpec{},
		Options: model.RunOptions{
			KillOthers:         model.KillConditions{model.KillOnFailure},
			HandleInput:        true,
			DefaultInputTarget: "0",
			ColorMode:          model.ColorModeAuto,
			PrefixLength:       10,
			SuccessCondition:   model.SuccessAll,
			KillSignal:         "SIGTERM",
		},
		Tunnel: model.TunnelSettings{
			Name:        "stackrun",
			ProcessName: "TUNN",
		},
		BeforeCommands: []string{},
		AfterCommands:  []string{},
	}
}

func TestResolve(t *testing.T) {
	tests := map[string]struct {
		config   model.StackConfig
		env      map[string]string
		expStack func() model.Stack
	}{
		"An empty config should be resolved with all the defaults.": {
			config:   model.StackConfig{},
			expStack: defaultStack,
		},

		"Explicit values should win over the defaults.": {
			config: model.StackConfig{
				ConcurrentlyOptions: &model.ConcurrentlyOptions{
					KillOthers:         model.KillConditions{model.KillOnSuccess},
					HandleInput:        ptr(false),
					DefaultInputTarget: ptr(model.InputTarget("api")),
					PrefixColors:       ptr(model.ColorModeManual),
					PrefixLength:       ptr(4),
					SuccessCondition:   ptr(model.SuccessFirst),
					KillSignal:         ptr("SIGKILL"),
				},
				TunnelEnabled: ptr(true),
				CFTunnelConfig: &model.TunnelConfig{
					CFToken:     ptr("cfg-token"),
					TunnelName:  ptr("my-tunnel"),
					Name:        ptr("T"),
					PrefixColor: ptr("red"),
				},
				BeforeCommands: []string{"setup"},
			},
			env: map[string]string{"CF_TOKEN": "env-token", "CF_TUNNEL_NAME": "env-tunnel"},
			expStack: func() model.Stack {
				s := defaultStack()
				s.Options = model.RunOptions{
					KillOthers:         model.KillConditions{model.KillOnSuccess},
					HandleInput:        false,
					DefaultInputTarget: "api",
					ColorMode:          model.ColorModeManual,
					PrefixLength:       4,
					SuccessCondition:   model.SuccessFirst,
					KillSignal:         "SIGKILL",
				}
				s.TunnelEnabled = true
				s.Tunnel.Token = "cfg-token"
				s.Tunnel.Name = "my-tunnel"
				s.Tunnel.ProcessName = "T"
				s.Tunnel.ProcessPrefixColor = "red"
				s.BeforeCommands = []string{"setup"}
				return s
			},
		},

		"An explicit empty kill others list should disable killing others.": {
			config: model.StackConfig{
				ConcurrentlyOptions: &model.ConcurrentlyOptions{KillOthers: model.KillConditions{}},
			},
			expStack: func() model.Stack {
				s := defaultStack()
				s.Options.KillOthers = model.KillConditions{}
				return s
			},
		},

		"Token and name should fallback to the primary env vars.": {
			env: map[string]string{
				"CF_TOKEN":               "cf-token",
				"CLOUDFLARE_TOKEN":       "cloudflare-token",
				"CF_TUNNEL_NAME":         "cf-name",
				"CLOUDFLARE_TUNNEL_NAME": "cloudflare-name",
			},
			expStack: func() model.Stack {
				s := defaultStack()
				s.Tunnel.Token = "cf-token"
				s.Tunnel.Name = "cf-name"
				return s
			},
		},

		"Token and name should fallback to the secondary env vars.": {
			env: map[string]string{
				"CLOUDFLARE_TOKEN":       "cloudflare-token",
				"CLOUDFLARE_TUNNEL_NAME": "cloudflare-name",
			},
			expStack: func() model.Stack {
				s := defaultStack()
				s.Tunnel.Token = "cloudflare-token"
				s.Tunnel.Name = "cloudflare-name"
				return s
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			got := stack.Resolve(test.config, env.MapLookup(test.env))
			assert.Equal(test.expStack(), got)
		})
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	assert := assert.New(t)

	cfg := model.StackConfig{
		Commands: []model.CommandSpec{
			{Command: ptr("serve"), Name: ptr("api"), Env: model.Env{"A": ptr("1")}, TunnelEnv: model.Env{"A": ptr("2")}},
		},
		ConcurrentlyOptions: &model.ConcurrentlyOptions{PrefixLength: ptr(3)},
		AfterCommands:       []string{"teardown"},
	}
	lookup := env.MapLookup(map[string]string{"CLOUDFLARE_TOKEN": "tkn"})

	first := stack.Resolve(cfg, lookup)
	second := stack.Resolve(first.AsConfig(), lookup)

	assert.Equal(first, second)
}

func TestResolveDoesNotMutateConfig(t *testing.T) {
	assert := assert.New(t)

	cfg := model.StackConfig{
		Commands: []model.CommandSpec{
			{Command: ptr("serve"), Env: model.Env{"A": ptr("1")}},
		},
		BeforeCommands: []string{"setup"},
	}

	got := stack.Resolve(cfg, nil)
	got.Commands[0].Env["A"] = ptr("changed")
	got.BeforeCommands[0] = "changed"

	assert.Equal("1", *cfg.Commands[0].Env["A"])
	assert.Equal("setup", cfg.BeforeCommands[0])
	assert.Nil(cfg.ConcurrentlyOptions)
}
