package cloudflaredmock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/slok/stackrun/internal/model"
	"github.com/slok/stackrun/internal/tunnel/cloudflared"
)

// MockAPI is a mock of cloudflared.API.
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) ZoneForHostname(ctx context.Context, hostname string) (cloudflared.Zone, error) {
	args := m.Called(ctx, hostname)
	return args.Get(0).(cloudflared.Zone), args.Error(1)
}

func (m *MockAPI) FindTunnel(ctx context.Context, accountID, name string) (*cloudflared.Tunnel, error) {
	args := m.Called(ctx, accountID, name)
	var t *cloudflared.Tunnel
	if v := args.Get(0); v != nil {
		t = v.(*cloudflared.Tunnel)
	}
	return t, args.Error(1)
}

func (m *MockAPI) CreateTunnel(ctx context.Context, accountID, name string) (cloudflared.Tunnel, error) {
	args := m.Called(ctx, accountID, name)
	return args.Get(0).(cloudflared.Tunnel), args.Error(1)
}

func (m *MockAPI) DeleteTunnel(ctx context.Context, accountID, id string) error {
	args := m.Called(ctx, accountID, id)
	return args.Error(0)
}

func (m *MockAPI) ConfigureTunnel(ctx context.Context, accountID, id string, ingress []model.IngressRule) error {
	args := m.Called(ctx, accountID, id, ingress)
	return args.Error(0)
}

func (m *MockAPI) TunnelToken(ctx context.Context, accountID, id string) (string, error) {
	args := m.Called(ctx, accountID, id)
	return args.String(0), args.Error(1)
}

func (m *MockAPI) DNSRecords(ctx context.Context, zoneID, hostname string) ([]cloudflared.DNSRecord, error) {
	args := m.Called(ctx, zoneID, hostname)
	var rs []cloudflared.DNSRecord
	if v := args.Get(0); v != nil {
		rs = v.([]cloudflared.DNSRecord)
	}
	return rs, args.Error(1)
}

func (m *MockAPI) CreateCNAME(ctx context.Context, zoneID, hostname, target string) error {
	args := m.Called(ctx, zoneID, hostname, target)
	return args.Error(0)
}

func (m *MockAPI) UpdateCNAME(ctx context.Context, zoneID, recordID, hostname, target string) error {
	args := m.Called(ctx, zoneID, recordID, hostname, target)
	return args.Error(0)
}

func (m *MockAPI) DeleteDNSRecord(ctx context.Context, zoneID, recordID string) error {
	args := m.Called(ctx, zoneID, recordID)
	return args.Error(0)
}
