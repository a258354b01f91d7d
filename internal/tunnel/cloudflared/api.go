package cloudflared

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	cf "github.com/cloudflare/cloudflare-go"

	"github.com/slok/stackrun/internal/model"
)

// Zone is a Cloudflare DNS zone.
type Zone struct {
	ID        string
	Name      string
	AccountID string
}

// Tunnel is a Cloudflare tunnel.
type Tunnel struct {
	ID   string
	Name string
}

// DNSRecord is a Cloudflare DNS record.
type DNSRecord struct {
	ID      string
	Type    string
	Content string
}

// API is the Cloudflare API used to manage the tunnel and its DNS records.
type API interface {
	// ZoneForHostname returns the zone that holds the hostname.
	ZoneForHostname(ctx context.Context, hostname string) (Zone, error)
	// FindTunnel returns the active tunnel with the name, nil when missing.
	FindTunnel(ctx context.Context, accountID, name string) (*Tunnel, error)
	// CreateTunnel creates a remotely configured tunnel.
	CreateTunnel(ctx context.Context, accountID, name string) (Tunnel, error)
	// DeleteTunnel removes the tunnel connections and deletes it.
	DeleteTunnel(ctx context.Context, accountID, id string) error
	// ConfigureTunnel sets the tunnel ingress, a 404 catch-all is appended.
	ConfigureTunnel(ctx context.Context, accountID, id string, ingress []model.IngressRule) error
	// TunnelToken returns the token that cloudflared uses to run the tunnel.
	TunnelToken(ctx context.Context, accountID, id string) (string, error)
	DNSRecords(ctx context.Context, zoneID, hostname string) ([]DNSRecord, error)
	CreateCNAME(ctx context.Context, zoneID, hostname, target string) error
	UpdateCNAME(ctx context.Context, zoneID, recordID, hostname, target string) error
	DeleteDNSRecord(ctx context.Context, zoneID, recordID string) error
}

// NewAPIFunc creates an API client authenticated with a token.
type NewAPIFunc func(token string) (API, error)

type cloudflareAPI struct {
	api *cf.API
}

// NewCloudflareAPI returns an API backed by the Cloudflare v4 API.
func NewCloudflareAPI(token string) (API, error) {
	api, err := cf.NewWithAPIToken(token)
	if err != nil {
		return nil, fmt.Errorf("could not create cloudflare client: %w", err)
	}
	return cloudflareAPI{api: api}, nil
}

func (c cloudflareAPI) ZoneForHostname(ctx context.Context, hostname string) (Zone, error) {
	candidates := zoneCandidates(hostname)
	if len(candidates) == 0 {
		return Zone{}, fmt.Errorf("invalid hostname %q: %w", hostname, model.ErrNotValid)
	}

	zones, err := c.api.ListZones(ctx, candidates...)
	if err != nil {
		return Zone{}, fmt.Errorf("could not list zones: %w", err)
	}

	// Longest zone wins, subdomains can be delegated zones.
	var best *cf.Zone
	for i, z := range zones {
		if z.Name != hostname && !strings.HasSuffix(hostname, "."+z.Name) {
			continue
		}
		if best == nil || len(z.Name) > len(best.Name) {
			best = &zones[i]
		}
	}
	if best == nil {
		return Zone{}, fmt.Errorf("zone for %q: %w", hostname, model.ErrNotFound)
	}

	return Zone{ID: best.ID, Name: best.Name, AccountID: best.Account.ID}, nil
}

// zoneCandidates returns the hostname and its parent domains with at least two labels.
func zoneCandidates(hostname string) []string {
	labels := strings.Split(strings.Trim(hostname, "."), ".")
	candidates := []string{}
	for i := 0; i+2 <= len(labels); i++ {
		candidates = append(candidates, strings.Join(labels[i:], "."))
	}
	return candidates
}

func (c cloudflareAPI) FindTunnel(ctx context.Context, accountID, name string) (*Tunnel, error) {
	tunnels, _, err := c.api.ListTunnels(ctx, cf.AccountIdentifier(accountID), cf.TunnelListParams{
		Name:      name,
		IsDeleted: cf.BoolPtr(false),
	})
	if err != nil {
		return nil, fmt.Errorf("could not list tunnels: %w", err)
	}

	for _, t := range tunnels {
		if t.Name == name && t.DeletedAt == nil {
			return &Tunnel{ID: t.ID, Name: t.Name}, nil
		}
	}

	return nil, nil
}

func (c cloudflareAPI) CreateTunnel(ctx context.Context, accountID, name string) (Tunnel, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return Tunnel{}, fmt.Errorf("could not generate tunnel secret: %w", err)
	}

	t, err := c.api.CreateTunnel(ctx, cf.AccountIdentifier(accountID), cf.TunnelCreateParams{
		Name:      name,
		Secret:    base64.StdEncoding.EncodeToString(secret),
		ConfigSrc: "cloudflare",
	})
	if err != nil {
		return Tunnel{}, fmt.Errorf("could not create tunnel: %w", err)
	}

	return Tunnel{ID: t.ID, Name: t.Name}, nil
}

func (c cloudflareAPI) DeleteTunnel(ctx context.Context, accountID, id string) error {
	rc := cf.AccountIdentifier(accountID)
	if err := c.api.CleanupTunnelConnections(ctx, rc, id); err != nil {
		return fmt.Errorf("could not cleanup tunnel connections: %w", err)
	}
	if err := c.api.DeleteTunnel(ctx, rc, id); err != nil {
		return fmt.Errorf("could not delete tunnel: %w", err)
	}
	return nil
}

func (c cloudflareAPI) ConfigureTunnel(ctx context.Context, accountID, id string, ingress []model.IngressRule) error {
	rules := make([]cf.UnvalidatedIngressRule, 0, len(ingress)+1)
	for _, r := range ingress {
		rules = append(rules, cf.UnvalidatedIngressRule{Hostname: r.Hostname, Service: r.Service})
	}
	rules = append(rules, cf.UnvalidatedIngressRule{Service: catchAllService})

	_, err := c.api.UpdateTunnelConfiguration(ctx, cf.AccountIdentifier(accountID), cf.TunnelConfigurationParams{
		TunnelID: id,
		Config:   cf.TunnelConfiguration{Ingress: rules},
	})
	if err != nil {
		return fmt.Errorf("could not configure tunnel ingress: %w", err)
	}
	return nil
}

func (c cloudflareAPI) TunnelToken(ctx context.Context, accountID, id string) (string, error) {
	token, err := c.api.GetTunnelToken(ctx, cf.AccountIdentifier(accountID), id)
	if err != nil {
		return "", fmt.Errorf("could not get tunnel token: %w", err)
	}
	return token, nil
}

func (c cloudflareAPI) DNSRecords(ctx context.Context, zoneID, hostname string) ([]DNSRecord, error) {
	records, _, err := c.api.ListDNSRecords(ctx, cf.ZoneIdentifier(zoneID), cf.ListDNSRecordsParams{Name: hostname})
	if err != nil {
		return nil, fmt.Errorf("could not list DNS records: %w", err)
	}

	res := make([]DNSRecord, 0, len(records))
	for _, r := range records {
		res = append(res, DNSRecord{ID: r.ID, Type: r.Type, Content: r.Content})
	}
	return res, nil
}

func (c cloudflareAPI) CreateCNAME(ctx context.Context, zoneID, hostname, target string) error {
	_, err := c.api.CreateDNSRecord(ctx, cf.ZoneIdentifier(zoneID), cf.CreateDNSRecordParams{
		Type:    "CNAME",
		Name:    hostname,
		Content: target,
		Proxied: cf.BoolPtr(true),
		TTL:     1,
	})
	if err != nil {
		return fmt.Errorf("could not create CNAME record: %w", err)
	}
	return nil
}

func (c cloudflareAPI) UpdateCNAME(ctx context.Context, zoneID, recordID, hostname, target string) error {
	_, err := c.api.UpdateDNSRecord(ctx, cf.ZoneIdentifier(zoneID), cf.UpdateDNSRecordParams{
		ID:      recordID,
		Type:    "CNAME",
		Name:    hostname,
		Content: target,
		Proxied: cf.BoolPtr(true),
		TTL:     1,
	})
	if err != nil {
		return fmt.Errorf("could not update CNAME record: %w", err)
	}
	return nil
}

func (c cloudflareAPI) DeleteDNSRecord(ctx context.Context, zoneID, recordID string) error {
	if err := c.api.DeleteDNSRecord(ctx, cf.ZoneIdentifier(zoneID), recordID); err != nil {
		return fmt.Errorf("could not delete DNS record: %w", err)
	}
	return nil
}
