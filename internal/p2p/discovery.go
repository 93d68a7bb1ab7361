package p2p

import (
	"context"
	"fmt"
	"time"

	dht "github.com/libp2p/go-libp2p-kad-dht"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/peerstore"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	"github.com/libp2p/go-libp2p/p2p/discovery/routing"
	ma "github.com/multiformats/go-multiaddr"
	"go.uber.org/zap"

	"beaconp2p/internal/behaviour"
	"beaconp2p/internal/config"
)

const findPeersInterval = 30 * time.Second

// DiscoveryService runs Kademlia-based peer discovery and records the
// addresses the identify adapter hands it. Peers found through the DHT
// surface on Events; the multiplexer currently absorbs them.
type DiscoveryService struct {
	ctx        context.Context
	host       host.Host
	dht        *dht.IpfsDHT
	log        *zap.Logger
	rendezvous string
	enableMDNS bool
	bootstrap  []ma.Multiaddr
	events     chan behaviour.RawEvent
}

func NewDiscoveryService(ctx context.Context, h host.Host, cfg config.Config, log *zap.Logger) (*DiscoveryService, error) {
	kad, err := dht.New(ctx, h, dht.Mode(dht.ModeServer))
	if err != nil {
		return nil, fmt.Errorf("create dht: %w", err)
	}
	bootstrap := make([]ma.Multiaddr, 0, len(cfg.BootstrapPeers))
	for _, s := range cfg.BootstrapPeers {
		a, err := ma.NewMultiaddr(s)
		if err != nil {
			return nil, fmt.Errorf("invalid bootstrap multiaddr %q: %w", s, err)
		}
		bootstrap = append(bootstrap, a)
	}
	return &DiscoveryService{
		ctx:        ctx,
		host:       h,
		dht:        kad,
		log:        log,
		rendezvous: cfg.Rendezvous,
		enableMDNS: cfg.EnableMDNS,
		bootstrap:  bootstrap,
		events:     make(chan behaviour.RawEvent, 64),
	}, nil
}

// Events is the stream of raw discovery events for the service loop.
func (d *DiscoveryService) Events() <-chan behaviour.RawEvent { return d.events }

// RegisterConnectedAddress records an identify-reported address for a
// connected peer so the routing layer can reach it later.
func (d *DiscoveryService) RegisterConnectedAddress(p peer.ID, addr ma.Multiaddr) {
	d.host.Peerstore().AddAddr(p, addr, peerstore.ConnectedAddrTTL)
}

// Start bootstraps the DHT, dials the configured bootstrap peers and
// begins the periodic rendezvous search.
func (d *DiscoveryService) Start() error {
	if err := d.dht.Bootstrap(d.ctx); err != nil {
		return fmt.Errorf("bootstrap dht: %w", err)
	}
	d.dialBootstrapPeers()

	if d.enableMDNS {
		service := mdns.NewMdnsService(d.host, d.rendezvous, &mdnsNotifee{svc: d})
		if err := service.Start(); err != nil {
			d.log.Warn("mdns start", zap.Error(err))
		}
	}

	rd := routing.NewRoutingDiscovery(d.dht)
	rd.Advertise(d.ctx, d.rendezvous)
	go d.findPeersLoop(rd)
	return nil
}

func (d *DiscoveryService) dialBootstrapPeers() {
	for _, addr := range d.bootstrap {
		info, err := peer.AddrInfoFromP2pAddr(addr)
		if err != nil {
			d.log.Warn("skip bootstrap addr", zap.Stringer("addr", addr), zap.Error(err))
			continue
		}
		if info.ID == d.host.ID() {
			continue
		}
		go func(info peer.AddrInfo) {
			ctx, cancel := context.WithTimeout(d.ctx, 10*time.Second)
			defer cancel()
			if err := d.host.Connect(ctx, info); err != nil {
				d.log.Warn("bootstrap connect failed", zap.Stringer("peer", info.ID), zap.Error(err))
				return
			}
			d.log.Info("connected bootstrap peer", zap.Stringer("peer", info.ID))
		}(*info)
	}
}

func (d *DiscoveryService) findPeersLoop(rd *routing.RoutingDiscovery) {
	ticker := time.NewTicker(findPeersInterval)
	defer ticker.Stop()
	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
		}
		peerCh, err := rd.FindPeers(d.ctx, d.rendezvous)
		if err != nil {
			d.log.Warn("dht find peers", zap.Error(err))
			continue
		}
		var found []peer.AddrInfo
		for info := range peerCh {
			if info.ID == d.host.ID() || len(info.Addrs) == 0 {
				continue
			}
			found = append(found, info)
			go func(info peer.AddrInfo) {
				ctx, cancel := context.WithTimeout(d.ctx, 10*time.Second)
				defer cancel()
				if err := d.host.Connect(ctx, info); err != nil {
					d.log.Debug("connect discovered peer", zap.Stringer("peer", info.ID), zap.Error(err))
				}
			}(info)
		}
		if len(found) == 0 {
			continue
		}
		select {
		case d.events <- behaviour.DiscoveryFound{Peers: found}:
		case <-d.ctx.Done():
			return
		}
	}
}

// Close shuts down the DHT.
func (d *DiscoveryService) Close() error {
	return d.dht.Close()
}

type mdnsNotifee struct {
	svc *DiscoveryService
}

func (n *mdnsNotifee) HandlePeerFound(info peer.AddrInfo) {
	if info.ID == n.svc.host.ID() {
		return
	}
	ctx, cancel := context.WithTimeout(n.svc.ctx, 10*time.Second)
	defer cancel()
	if err := n.svc.host.Connect(ctx, info); err != nil {
		n.svc.log.Debug("mdns connect failed", zap.Stringer("peer", info.ID), zap.Error(err))
	}
}
