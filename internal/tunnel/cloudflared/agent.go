// Package cloudflared exposes local services through a Cloudflare tunnel.
// The tunnel and its DNS records are managed with the Cloudflare API and the
// connector runs with the cloudflared CLI.
package cloudflared

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/slok/stackrun/internal/conventions"
	"github.com/slok/stackrun/internal/log"
	"github.com/slok/stackrun/internal/model"
	"github.com/slok/stackrun/internal/utils/env"
)

const (
	// DefaultBinary is the cloudflared binary name.
	DefaultBinary = "cloudflared"

	catchAllService = "http_status:404"
	tunnelCNAMEHost = "cfargotunnel.com"
)

// AgentConfig is the configuration of the tunnel agent.
type AgentConfig struct {
	// Cmd runs cloudflared (required).
	Cmd Cmd
	// NewAPI creates the Cloudflare API client from the payload token (default: NewCloudflareAPI).
	NewAPI NewAPIFunc
	// WorkDir is where the run temp dir is created when the payload sets neither a config dir nor a run dir (default: current dir).
	WorkDir string
	// BaseEnv is the environment of cloudflared before setting the tunnel token (default: process env).
	BaseEnv []string
	Logger  log.Logger
}

func (c *AgentConfig) defaults() error {
	if c.Cmd == nil {
		return fmt.Errorf("cloudflared cmd is required")
	}
	if c.NewAPI == nil {
		c.NewAPI = NewCloudflareAPI
	}
	if c.WorkDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("could not get working dir: %w", err)
		}
		c.WorkDir = wd
	}
	if c.BaseEnv == nil {
		c.BaseEnv = os.Environ()
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "tunnel.Cloudflared"})
	return nil
}

// Agent sets up a Cloudflare tunnel for a payload and runs it.
type Agent struct {
	cmd     Cmd
	newAPI  NewAPIFunc
	workDir string
	baseEnv []string
	logger  log.Logger
}

// NewAgent returns a new cloudflared tunnel agent.
func NewAgent(cfg AgentConfig) (*Agent, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Agent{
		cmd:     cfg.Cmd,
		newAPI:  cfg.NewAPI,
		workDir: cfg.WorkDir,
		baseEnv: cfg.BaseEnv,
		logger:  cfg.Logger,
	}, nil
}

// Run sets up the tunnel and runs it until the context is cancelled.
func (a *Agent) Run(ctx context.Context, p model.TunnelPayload) error {
	logger := a.logger.WithValues(log.Kv{"tunnel": p.TunnelName})

	if len(p.Ingress) == 0 {
		return fmt.Errorf("tunnel without ingress: %w", model.ErrNotValid)
	}

	if _, err := a.cmd.LookPath(); err != nil {
		return fmt.Errorf("cloudflared is not installed: %w", err)
	}

	api, err := a.newAPI(p.CFToken)
	if err != nil {
		return err
	}

	// The account of the tunnel is the one owning the first hostname zone.
	zone, err := api.ZoneForHostname(ctx, p.Ingress[0].Hostname)
	if err != nil {
		return fmt.Errorf("could not resolve zone of %q: %w", p.Ingress[0].Hostname, err)
	}
	accountID := zone.AccountID

	if p.RemoveExistingTunnel {
		a.removeTunnel(ctx, logger, api, accountID, p.TunnelName)
	}

	id, err := a.ensureTunnel(ctx, logger, api, accountID, p.TunnelName)
	if err != nil {
		return err
	}
	logger = logger.WithValues(log.Kv{"tunnel-id": id})

	if err := api.ConfigureTunnel(ctx, accountID, id, p.Ingress); err != nil {
		return err
	}

	zones := map[string]Zone{p.Ingress[0].Hostname: zone}
	for _, rule := range p.Ingress {
		z, ok := zones[rule.Hostname]
		if !ok {
			z, err = api.ZoneForHostname(ctx, rule.Hostname)
			if err != nil {
				return fmt.Errorf("could not resolve zone of %q: %w", rule.Hostname, err)
			}
			zones[rule.Hostname] = z
		}

		if err := a.routeDNS(ctx, api, z.ID, rule.Hostname, id, p.RemoveExistingDNS); err != nil {
			return fmt.Errorf("could not route DNS for %q: %w", rule.Hostname, err)
		}
		logger.Infof("Routed %s to %s", rule.Hostname, rule.Service)
	}

	token, err := api.TunnelToken(ctx, accountID, id)
	if err != nil {
		return err
	}

	configPath, err := a.writeConfig(id, p)
	if err != nil {
		return fmt.Errorf("could not write cloudflared config: %w", err)
	}
	logger.Debugf("Cloudflared config written at %s", configPath)

	cfEnv := env.Environ(a.baseEnv, model.Env{
		conventions.EnvTunnelToken:        &token,
		conventions.EnvCloudflareAPIToken: nil,
	})

	logger.Infof("Starting tunnel")
	if err := a.cmd.Stream(ctx, cfEnv, "tunnel", "--config", configPath, "run"); err != nil {
		return fmt.Errorf("tunnel run failed: %w", err)
	}

	return nil
}

// removeTunnel deletes the tunnel with the name, a missing tunnel is not an error.
func (a *Agent) removeTunnel(ctx context.Context, logger log.Logger, api API, accountID, name string) {
	t, err := api.FindTunnel(ctx, accountID, name)
	if err != nil {
		logger.Warningf("Could not find existing tunnel: %v", err)
		return
	}
	if t == nil {
		logger.Debugf("No existing tunnel to remove")
		return
	}

	logger.Infof("Removing existing tunnel %s", t.ID)
	if err := api.DeleteTunnel(ctx, accountID, t.ID); err != nil {
		logger.Warningf("Could not remove existing tunnel: %v", err)
	}
}

func (a *Agent) ensureTunnel(ctx context.Context, logger log.Logger, api API, accountID, name string) (string, error) {
	t, err := api.FindTunnel(ctx, accountID, name)
	if err != nil {
		return "", err
	}
	if t != nil {
		logger.Infof("Using existing tunnel")
		return t.ID, nil
	}

	logger.Infof("Creating tunnel")
	created, err := api.CreateTunnel(ctx, accountID, name)
	if err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("could not get created tunnel id: %w", model.ErrNotFound)
	}

	return created.ID, nil
}

// routeDNS points the hostname to the tunnel with a proxied CNAME record.
// Records that point elsewhere are only replaced when overwrite is set.
func (a *Agent) routeDNS(ctx context.Context, api API, zoneID, hostname, tunnelID string, overwrite bool) error {
	target := tunnelID + "." + tunnelCNAMEHost

	records, err := api.DNSRecords(ctx, zoneID, hostname)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return api.CreateCNAME(ctx, zoneID, hostname, target)
	}

	for _, r := range records {
		if r.Type == "CNAME" && r.Content == target {
			return nil
		}
	}

	if !overwrite {
		return fmt.Errorf("a DNS record already exists: %w", model.ErrAlreadyExists)
	}

	if len(records) == 1 && records[0].Type == "CNAME" {
		return api.UpdateCNAME(ctx, zoneID, records[0].ID, hostname, target)
	}

	for _, r := range records {
		if err := api.DeleteDNSRecord(ctx, zoneID, r.ID); err != nil {
			return err
		}
	}
	return api.CreateCNAME(ctx, zoneID, hostname, target)
}

type ingressEntry struct {
	Hostname string `yaml:"hostname,omitempty"`
	Service  string `yaml:"service"`
}

type configFile struct {
	Tunnel  string         `yaml:"tunnel"`
	Ingress []ingressEntry `yaml:"ingress"`
}

// configDir is the payload config dir, or the temp dir of the stackrun run.
func (a *Agent) configDir(p model.TunnelPayload) string {
	switch {
	case p.CloudflaredConfigDir != "":
		return p.CloudflaredConfigDir
	case p.RunDir != "":
		return conventions.RunTmpPath(p.RunDir)
	default:
		return conventions.RunTmpPath(a.workDir)
	}
}

func (a *Agent) writeConfig(id string, p model.TunnelPayload) (string, error) {
	dir := a.configDir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	cfg := configFile{Tunnel: id}
	for _, rule := range p.Ingress {
		cfg.Ingress = append(cfg.Ingress, ingressEntry{Hostname: rule.Hostname, Service: rule.Service})
	}
	cfg.Ingress = append(cfg.Ingress, ingressEntry{Service: catchAllService})

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, conventions.CloudflaredConfigFile)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}

	return path, nil
}
