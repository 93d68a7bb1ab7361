// Package config loads the node's network configuration from TOML.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
	ma "github.com/multiformats/go-multiaddr"
)

// Config is the networking configuration snapshot the node is built from.
type Config struct {
	ListenAddrs     []string `toml:"listen_addrs"`
	BootstrapPeers  []string `toml:"bootstrap_peers"`
	IdentityKeyFile string   `toml:"identity_key_file"`
	Topics          []string `toml:"topics"`

	// Identify handshake metadata advertised to peers.
	ProtocolVersion string `toml:"protocol_version"`
	AgentVersion    string `toml:"agent_version"`

	// Rendezvous names the discovery namespace used by mDNS and the DHT.
	Rendezvous string `toml:"rendezvous"`
	EnableMDNS bool   `toml:"enable_mdns"`

	// Outbound gossip publish rate limit (messages per second) and burst.
	PublishRateLimit float64 `toml:"publish_rate_limit"`
	PublishBurst     int     `toml:"publish_burst"`

	MetricsAddr string `toml:"metrics_addr"`
}

// Default returns the configuration used when a field is left unset.
func Default() Config {
	return Config{
		ListenAddrs:      []string{"/ip4/0.0.0.0/tcp/9000"},
		Topics:           []string{"beacon_block", "beacon_attestation"},
		ProtocolVersion:  "beaconp2p/1.0.0",
		AgentVersion:     "beaconp2p",
		Rendezvous:       "beaconp2p",
		EnableMDNS:       true,
		PublishRateLimit: 100,
		PublishBurst:     200,
		MetricsAddr:      ":9100",
	}
}

// Load reads path into a Config, applying defaults for absent fields.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("load network config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that every configured address parses as a multiaddr
// and that the rate limit is sane.
func (c Config) Validate() error {
	if len(c.ListenAddrs) == 0 {
		return fmt.Errorf("config: at least one listen address required")
	}
	for _, s := range c.ListenAddrs {
		if _, err := ma.NewMultiaddr(s); err != nil {
			return fmt.Errorf("config: invalid listen multiaddr %q: %w", s, err)
		}
	}
	for _, s := range c.BootstrapPeers {
		if _, err := ma.NewMultiaddr(s); err != nil {
			return fmt.Errorf("config: invalid bootstrap multiaddr %q: %w", s, err)
		}
	}
	if c.PublishRateLimit <= 0 {
		return fmt.Errorf("config: publish_rate_limit must be positive")
	}
	if c.PublishBurst <= 0 {
		return fmt.Errorf("config: publish_burst must be positive")
	}
	return nil
}
