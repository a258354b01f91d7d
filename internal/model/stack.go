package model

import "fmt"

// Stack is a resolved stack configuration, every field has a value.
type Stack struct {
	Commands       []CommandSpec
	Options        RunOptions
	TunnelEnabled  bool
	Tunnel         TunnelSettings
	BeforeCommands []string
	AfterCommands  []string
}

// RunOptions are the options of the concurrent runner.
type RunOptions struct {
	KillOthers         KillConditions
	HandleInput        bool
	DefaultInputTarget InputTarget
	ColorMode          ColorMode
	PrefixLength       int
	SuccessCondition   SuccessCondition
	KillSignal         string
}

// Validate checks the options have known values.
func (o RunOptions) Validate() error {
	if err := o.KillOthers.validate(); err != nil {
		return err
	}

	switch o.ColorMode {
	case ColorModeAuto, ColorModeManual:
	default:
		return fmt.Errorf("unknown prefix colors mode %q: %w", o.ColorMode, ErrNotValid)
	}

	switch o.SuccessCondition {
	case SuccessAll, SuccessFirst, SuccessLast:
	default:
		return fmt.Errorf("unknown success condition %q: %w", o.SuccessCondition, ErrNotValid)
	}

	return nil
}

// TunnelSettings are the resolved tunnel settings.
type TunnelSettings struct {
	Token                string
	Name                 string
	RemoveExistingTunnel bool
	RemoveExistingDNS    bool
	CloudflaredConfigDir string

	ProcessName        string
	ProcessPrefixColor string
	ProcessEnv         Env
	ProcessCwd         string
	ProcessIPC         int
}

// AsConfig returns the stack as a configuration with every field set.
func (s Stack) AsConfig() StackConfig {
	opts := s.Options
	tun := s.Tunnel

	return StackConfig{
		Commands: append([]CommandSpec{}, s.Commands...),
		ConcurrentlyOptions: &ConcurrentlyOptions{
			KillOthers:         append(KillConditions{}, opts.KillOthers...),
			HandleInput:        ptr(opts.HandleInput),
			DefaultInputTarget: ptr(opts.DefaultInputTarget),
			PrefixColors:       ptr(opts.ColorMode),
			PrefixLength:       ptr(opts.PrefixLength),
			SuccessCondition:   ptr(opts.SuccessCondition),
			KillSignal:         ptr(opts.KillSignal),
		},
		TunnelEnabled: ptr(s.TunnelEnabled),
		CFTunnelConfig: &TunnelConfig{
			CFToken:              ptr(tun.Token),
			TunnelName:           ptr(tun.Name),
			RemoveExistingTunnel: ptr(tun.RemoveExistingTunnel),
			RemoveExistingDNS:    ptr(tun.RemoveExistingDNS),
			CloudflaredConfigDir: ptr(tun.CloudflaredConfigDir),
			Name:                 ptr(tun.ProcessName),
			PrefixColor:          ptr(tun.ProcessPrefixColor),
			Env:                  tun.ProcessEnv.Clone(),
			Cwd:                  ptr(tun.ProcessCwd),
			IPC:                  ptr(tun.ProcessIPC),
		},
		BeforeCommands: append([]string{}, s.BeforeCommands...),
		AfterCommands:  append([]string{}, s.AfterCommands...),
	}
}

func ptr[T any](v T) *T { return &v }
