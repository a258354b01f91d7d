package model

// IngressRule maps a public hostname to a local service address.
type IngressRule struct {
	Hostname string `json:"hostname" yaml:"hostname"`
	Service  string `json:"service" yaml:"service"`
}

// TunnelPayload is everything the tunnel agent needs to expose the stack.
type TunnelPayload struct {
	CFToken              string        `json:"cfToken"`
	TunnelName           string        `json:"tunnelName"`
	Ingress              []IngressRule `json:"ingress"`
	RemoveExistingDNS    bool          `json:"removeExistingDns"`
	RemoveExistingTunnel bool          `json:"removeExistingTunnel"`
	CloudflaredConfigDir string        `json:"cloudflaredConfigDir,omitempty"`
	// RunDir is the working dir of the stackrun run, independent of the tunnel process cwd.
	RunDir string `json:"runDir,omitempty"`
}
