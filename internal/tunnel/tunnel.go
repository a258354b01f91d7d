// Package tunnel plans the tunnel process that exposes the stack commands through a Cloudflare tunnel.
package tunnel

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/slok/stackrun/internal/conventions"
	"github.com/slok/stackrun/internal/model"
	"github.com/slok/stackrun/internal/stack"
	"github.com/slok/stackrun/internal/utils/env"
)

var (
	// ErrMissingToken is returned when no tunnel token can be resolved.
	ErrMissingToken = errors.New("cloudflare token is required for tunneling")
	// ErrNoIngress is returned when no command declares tunnel addresses.
	ErrNoIngress = errors.New("no valid tunnel configurations found")
)

// RainbowPalette is the palette of the tunnel process rainbow label.
var RainbowPalette = []lipgloss.Color{
	lipgloss.Color("1"), // Red.
	lipgloss.Color("3"), // Yellow.
	lipgloss.Color("2"), // Green.
	lipgloss.Color("6"), // Cyan.
	lipgloss.Color("4"), // Blue.
	lipgloss.Color("5"), // Magenta.
}

// PlanRequest is the input of the tunnel planner.
type PlanRequest struct {
	// Specs are the stack command specs before normalization.
	Specs    []model.CommandSpec
	Settings model.TunnelSettings
	// PrefixLength is the max length of the process label.
	PrefixLength int
	// Lookup is the env lookup chain used when the settings don't have token or name.
	Lookup env.Lookup
	// Executable is the stackrun binary that runs the tunnel agent.
	Executable string
	// WorkDir is the stackrun working dir, the agent writes its files there.
	WorkDir string
	// Renderer is used to render the rainbow label, optional.
	Renderer *lipgloss.Renderer
}

// Plan returns the tunnel process and its payload.
func Plan(req PlanRequest) (model.Process, model.TunnelPayload, error) {
	token := req.Settings.Token
	if token == "" {
		token = env.FirstOf(req.Lookup, stack.TokenEnvVars...)
	}
	if token == "" {
		return model.Process{}, model.TunnelPayload{}, ErrMissingToken
	}

	name := req.Settings.Name
	if name == "" {
		name = env.FirstOf(req.Lookup, stack.TunnelNameEnvVars...)
	}
	if name == "" {
		name = conventions.DefaultTunnelName
	}

	ingress := Ingress(req.Specs)
	if len(ingress) == 0 {
		return model.Process{}, model.TunnelPayload{}, ErrNoIngress
	}

	payload := model.TunnelPayload{
		CFToken:              token,
		TunnelName:           name,
		Ingress:              ingress,
		RemoveExistingDNS:    req.Settings.RemoveExistingDNS,
		RemoveExistingTunnel: req.Settings.RemoveExistingTunnel,
		CloudflaredConfigDir: req.Settings.CloudflaredConfigDir,
		RunDir:               req.WorkDir,
	}

	encoded, err := EncodePayload(payload)
	if err != nil {
		return model.Process{}, model.TunnelPayload{}, fmt.Errorf("could not encode tunnel payload: %w", err)
	}

	label := stack.Truncate(req.Settings.ProcessName, req.PrefixLength)
	proc := model.Process{
		Name:        label,
		Command:     "stackrun " + conventions.TunnelCommandName,
		Argv:        []string{req.Executable, conventions.TunnelCommandName},
		Cwd:         req.Settings.ProcessCwd,
		Env:         req.Settings.ProcessEnv.Merge(model.Env{conventions.EnvTunnelPayload: &encoded}),
		PrefixColor: req.Settings.ProcessPrefixColor,
		IPC:         req.Settings.ProcessIPC,
	}
	if proc.PrefixColor == "" {
		proc.DisplayName = Rainbow(req.Renderer, label)
	}

	return proc, payload, nil
}

// Ingress returns the ingress rules of the specs that declare both tunnel addresses.
func Ingress(specs []model.CommandSpec) []model.IngressRule {
	rules := []model.IngressRule{}
	for _, s := range specs {
		if !s.Tunneled() {
			continue
		}
		rules = append(rules, model.IngressRule{
			Hostname: Hostname(*s.TunnelURL),
			Service:  *s.URL,
		})
	}
	return rules
}

// Hostname returns the tunnel URL without the scheme.
func Hostname(tunnelURL string) string {
	h := strings.TrimPrefix(tunnelURL, "https://")
	return strings.TrimPrefix(h, "http://")
}

// EncodePayload serializes a payload as base64 encoded JSON.
func EncodePayload(p model.TunnelPayload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodePayload deserializes and validates a base64 encoded JSON payload.
func DecodePayload(s string) (model.TunnelPayload, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return model.TunnelPayload{}, fmt.Errorf("invalid base64 payload: %w", err)
	}

	var p model.TunnelPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return model.TunnelPayload{}, fmt.Errorf("invalid JSON payload: %w", err)
	}

	switch {
	case p.CFToken == "":
		return model.TunnelPayload{}, fmt.Errorf("payload missing token: %w", model.ErrNotValid)
	case p.TunnelName == "":
		return model.TunnelPayload{}, fmt.Errorf("payload missing tunnel name: %w", model.ErrNotValid)
	case len(p.Ingress) == 0:
		return model.TunnelPayload{}, fmt.Errorf("payload missing ingress: %w", model.ErrNotValid)
	}

	return p, nil
}

// RainbowColors returns the color of each label character.
func RainbowColors(label string) []lipgloss.Color {
	colors := []lipgloss.Color{}
	for i := range []rune(label) {
		colors = append(colors, RainbowPalette[i%len(RainbowPalette)])
	}
	return colors
}

// Rainbow renders each label character with the palette color of its position.
func Rainbow(r *lipgloss.Renderer, label string) string {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}

	colors := RainbowColors(label)
	var b strings.Builder
	for i, c := range []rune(label) {
		b.WriteString(r.NewStyle().Foreground(colors[i]).Render(string(c)))
	}
	return b.String()
}
