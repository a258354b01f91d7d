package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// StackConfig is the user supplied stack configuration.
// Every field is optional, defaults are applied when the stack is resolved.
type StackConfig struct {
	Commands            []CommandSpec        `json:"commands,omitempty" yaml:"commands,omitempty"`
	ConcurrentlyOptions *ConcurrentlyOptions `json:"concurrentlyOptions,omitempty" yaml:"concurrentlyOptions,omitempty"`
	TunnelEnabled       *bool                `json:"tunnelEnabled,omitempty" yaml:"tunnelEnabled,omitempty"`
	CFTunnelConfig      *TunnelConfig        `json:"cfTunnelConfig,omitempty" yaml:"cfTunnelConfig,omitempty"`
	BeforeCommands      []string             `json:"beforeCommands,omitempty" yaml:"beforeCommands,omitempty"`
	AfterCommands       []string             `json:"afterCommands,omitempty" yaml:"afterCommands,omitempty"`
}

// ConcurrentlyOptions are the options of the concurrent run phase.
type ConcurrentlyOptions struct {
	// KillOthers sets on what process exits the rest of the processes are killed.
	KillOthers KillConditions `json:"killOthers,omitempty" yaml:"killOthers,omitempty"`
	// HandleInput forwards the terminal input to the processes.
	HandleInput *bool `json:"handleInput,omitempty" yaml:"handleInput,omitempty"`
	// DefaultInputTarget is the process index or name that receives unprefixed input.
	DefaultInputTarget *InputTarget `json:"defaultInputTarget,omitempty" yaml:"defaultInputTarget,omitempty"`
	// PrefixColors selects how process prefix colors are assigned (auto or manual).
	PrefixColors *ColorMode `json:"prefixColors,omitempty" yaml:"prefixColors,omitempty"`
	// PrefixLength is the max length of a process display name.
	PrefixLength *int `json:"prefixLength,omitempty" yaml:"prefixLength,omitempty"`
	// SuccessCondition sets what process exits make the run successful.
	SuccessCondition *SuccessCondition `json:"successCondition,omitempty" yaml:"successCondition,omitempty"`
	// KillSignal is the signal sent to the processes that are killed.
	KillSignal *string `json:"killSignal,omitempty" yaml:"killSignal,omitempty"`
}

// TunnelConfig is the Cloudflare tunnel configuration.
type TunnelConfig struct {
	CFToken              *string `json:"cfToken,omitempty" yaml:"cfToken,omitempty"`
	TunnelName           *string `json:"tunnelName,omitempty" yaml:"tunnelName,omitempty"`
	RemoveExistingTunnel *bool   `json:"removeExistingTunnel,omitempty" yaml:"removeExistingTunnel,omitempty"`
	RemoveExistingDNS    *bool   `json:"removeExistingDns,omitempty" yaml:"removeExistingDns,omitempty"`
	CloudflaredConfigDir *string `json:"cloudflaredConfigDir,omitempty" yaml:"cloudflaredConfigDir,omitempty"`

	// Display options of the tunnel process.
	Name        *string `json:"name,omitempty" yaml:"name,omitempty"`
	PrefixColor *string `json:"prefixColor,omitempty" yaml:"prefixColor,omitempty"`
	Env         Env     `json:"env,omitempty" yaml:"env,omitempty"`
	Cwd         *string `json:"cwd,omitempty" yaml:"cwd,omitempty"`
	IPC         *int    `json:"ipc,omitempty" yaml:"ipc,omitempty"`
}

// CommandSpec is a single process of the stack.
type CommandSpec struct {
	// Command is the shell command, specs without it are ignored.
	Command     *string `json:"command,omitempty" yaml:"command,omitempty"`
	Name        *string `json:"name,omitempty" yaml:"name,omitempty"`
	Cwd         *string `json:"cwd,omitempty" yaml:"cwd,omitempty"`
	Env         Env     `json:"env,omitempty" yaml:"env,omitempty"`
	PrefixColor *string `json:"prefixColor,omitempty" yaml:"prefixColor,omitempty"`
	IPC         *int    `json:"ipc,omitempty" yaml:"ipc,omitempty"`

	// URL is the local service address exposed through the tunnel.
	URL *string `json:"url,omitempty" yaml:"url,omitempty"`
	// TunnelURL is the public hostname (or URL) of the tunnel.
	TunnelURL *string `json:"tunnelUrl,omitempty" yaml:"tunnelUrl,omitempty"`
	// TunnelEnv overrides Env when tunneling is enabled.
	TunnelEnv Env `json:"tunnelEnv,omitempty" yaml:"tunnelEnv,omitempty"`
}

// HasCommand returns true when the spec has a usable command.
func (c CommandSpec) HasCommand() bool { return c.Command != nil }

// Tunneled returns true when the spec declares both tunnel addresses.
func (c CommandSpec) Tunneled() bool {
	return c.URL != nil && *c.URL != "" && c.TunnelURL != nil && *c.TunnelURL != ""
}

// UnmarshalJSON decodes a command spec. Entries that are not objects or that
// don't have a string command are decoded as an empty spec without looking
// at the rest of the fields, so they can be dropped later.
func (c *CommandSpec) UnmarshalJSON(data []byte) error {
	*c = CommandSpec{}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	var cmd any
	if err := json.Unmarshal(raw["command"], &cmd); err != nil {
		return nil
	}
	if _, ok := cmd.(string); !ok {
		return nil
	}

	type plain CommandSpec
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = CommandSpec(p)

	return nil
}

// Env is a set of environment variable overrides. A nil value removes the variable.
type Env map[string]*string

// UnmarshalJSON accepts string, boolean, number and null values.
func (e *Env) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("env must be a mapping: %w", err)
	}
	if raw == nil {
		*e = nil
		return nil
	}

	env := make(Env, len(raw))
	for k, v := range raw {
		switch tv := v.(type) {
		case nil:
			env[k] = nil
		case string:
			env[k] = &tv
		case bool:
			s := strconv.FormatBool(tv)
			env[k] = &s
		case float64:
			s := strconv.FormatFloat(tv, 'f', -1, 64)
			env[k] = &s
		default:
			return fmt.Errorf("env %q has an unsupported value type %T: %w", k, v, ErrNotValid)
		}
	}
	*e = env

	return nil
}

// Merge returns a new env with the override keys replacing the base ones.
func (e Env) Merge(override Env) Env {
	merged := make(Env, len(e)+len(override))
	for k, v := range e {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

// Clone returns a copy of the env.
func (e Env) Clone() Env {
	if e == nil {
		return nil
	}
	return e.Merge(nil)
}

// KillCondition is a process exit that triggers killing the rest of processes.
type KillCondition string

const (
	KillOnFailure KillCondition = "failure"
	KillOnSuccess KillCondition = "success"
)

// KillConditions is a set of kill conditions, it can be set as a single value or a list.
type KillConditions []KillCondition

// UnmarshalJSON accepts a single condition or a list of them.
func (k *KillConditions) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*k = nil
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*k = KillConditions{KillCondition(single)}
		return k.validate()
	}

	var list []KillCondition
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("killOthers must be a string or a list: %w", err)
	}
	*k = list

	return k.validate()
}

func (k KillConditions) validate() error {
	for _, c := range k {
		switch c {
		case KillOnFailure, KillOnSuccess:
		default:
			return fmt.Errorf("unknown kill condition %q: %w", c, ErrNotValid)
		}
	}
	return nil
}

// Has returns true if the condition is part of the set.
func (k KillConditions) Has(c KillCondition) bool {
	for _, kc := range k {
		if kc == c {
			return true
		}
	}
	return false
}

// InputTarget is a process index or name.
type InputTarget string

// UnmarshalJSON accepts a number (process index) or a string.
func (i *InputTarget) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	switch tv := v.(type) {
	case nil:
	case string:
		*i = InputTarget(tv)
	case float64:
		*i = InputTarget(strconv.Itoa(int(tv)))
	default:
		return fmt.Errorf("input target must be a process index or name: %w", ErrNotValid)
	}

	return nil
}

// ColorMode is how prefix colors are assigned to processes.
type ColorMode string

const (
	// ColorModeAuto assigns a palette color to processes without an explicit color.
	ColorModeAuto ColorMode = "auto"
	// ColorModeManual only uses the explicit process colors.
	ColorModeManual ColorMode = "manual"
)

// SuccessCondition sets which process exits make a run successful.
type SuccessCondition string

const (
	SuccessAll   SuccessCondition = "all"
	SuccessFirst SuccessCondition = "first"
	SuccessLast  SuccessCondition = "last"
)
