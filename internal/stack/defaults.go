// Package stack resolves stack configurations into runnable processes.
package stack

import (
	"github.com/slok/stackrun/internal/conventions"
	"github.com/slok/stackrun/internal/model"
	"github.com/slok/stackrun/internal/utils/env"
)

// Defaults of a stack, every optional config field default is here.
var (
	DefaultKillOthers         = model.KillConditions{model.KillOnFailure}
	DefaultHandleInput        = true
	DefaultDefaultInputTarget = model.InputTarget("0")
	DefaultColorMode          = model.ColorModeAuto
	DefaultPrefixLength       = 10
	DefaultSuccessCondition   = model.SuccessAll
	DefaultKillSignal         = "SIGTERM"

	DefaultTunnelEnabled        = false
	DefaultRemoveExistingTunnel = false
	DefaultRemoveExistingDNS    = false
	DefaultCloudflaredConfigDir = ""

	DefaultTunnelProcessName        = conventions.TunnelProcessName
	DefaultTunnelProcessPrefixColor = ""
	DefaultTunnelProcessCwd         = ""
	DefaultTunnelProcessIPC         = 0

	// TokenEnvVars are the env vars used for the tunnel token when it's not configured, in order.
	TokenEnvVars = []string{conventions.EnvCFToken, conventions.EnvCloudflareToken}
	// TunnelNameEnvVars are the env vars used for the tunnel name when it's not configured, in order.
	TunnelNameEnvVars = []string{conventions.EnvCFTunnelName, conventions.EnvCloudflareTunnelName}
)

// Resolve returns a complete stack filling every unset config field with its default.
// The env lookup is used for the tunnel token and name chains.
// The config is never mutated and explicit values always win.
func Resolve(cfg model.StackConfig, lookup env.Lookup) model.Stack {
	opts := model.ConcurrentlyOptions{}
	if cfg.ConcurrentlyOptions != nil {
		opts = *cfg.ConcurrentlyOptions
	}

	tun := model.TunnelConfig{}
	if cfg.CFTunnelConfig != nil {
		tun = *cfg.CFTunnelConfig
	}

	commands := make([]model.CommandSpec, 0, len(cfg.Commands))
	for _, c := range cfg.Commands {
		c.Env = c.Env.Clone()
		c.TunnelEnv = c.TunnelEnv.Clone()
		commands = append(commands, c)
	}

	killOthers := DefaultKillOthers
	if opts.KillOthers != nil {
		killOthers = opts.KillOthers
	}

	token := valueOr(tun.CFToken, "")
	if token == "" {
		token = env.FirstOf(lookup, TokenEnvVars...)
	}

	name := valueOr(tun.TunnelName, "")
	if name == "" {
		name = env.FirstOf(lookup, TunnelNameEnvVars...)
	}
	if name == "" {
		name = conventions.DefaultTunnelName
	}

	return model.Stack{
		Commands: commands,
		Options: model.RunOptions{
			KillOthers:         append(model.KillConditions{}, killOthers...),
			HandleInput:        valueOr(opts.HandleInput, DefaultHandleInput),
			DefaultInputTarget: valueOr(opts.DefaultInputTarget, DefaultDefaultInputTarget),
			ColorMode:          valueOr(opts.PrefixColors, DefaultColorMode),
			PrefixLength:       valueOr(opts.PrefixLength, DefaultPrefixLength),
			SuccessCondition:   valueOr(opts.SuccessCondition, DefaultSuccessCondition),
			KillSignal:         valueOr(opts.KillSignal, DefaultKillSignal),
		},
		TunnelEnabled: valueOr(cfg.TunnelEnabled, DefaultTunnelEnabled),
		Tunnel: model.TunnelSettings{
			Token:                token,
			Name:                 name,
			RemoveExistingTunnel: valueOr(tun.RemoveExistingTunnel, DefaultRemoveExistingTunnel),
			RemoveExistingDNS:    valueOr(tun.RemoveExistingDNS, DefaultRemoveExistingDNS),
			CloudflaredConfigDir: valueOr(tun.CloudflaredConfigDir, DefaultCloudflaredConfigDir),
			ProcessName:          valueOr(tun.Name, DefaultTunnelProcessName),
			ProcessPrefixColor:   valueOr(tun.PrefixColor, DefaultTunnelProcessPrefixColor),
			ProcessEnv:           tun.Env.Clone(),
			ProcessCwd:           valueOr(tun.Cwd, DefaultTunnelProcessCwd),
			ProcessIPC:           valueOr(tun.IPC, DefaultTunnelProcessIPC),
		},
		BeforeCommands: append([]string{}, cfg.BeforeCommands...),
		AfterCommands:  append([]string{}, cfg.AfterCommands...),
	}
}

func valueOr[T any](v *T, def T) T {
	if v == nil {
		return def
	}
	return *v
}
