package p2p

import (
	"context"
	"time"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/protocol/ping"
	"go.uber.org/zap"

	"beaconp2p/internal/behaviour"
)

const probeInterval = 30 * time.Second

// PingService keeps liveness probes flowing to connected peers. Inbound
// pings are answered by the underlying libp2p service; outbound probe
// results surface on Events, where the multiplexer absorbs them.
type PingService struct {
	ctx    context.Context
	host   host.Host
	svc    *ping.PingService
	log    *zap.Logger
	events chan behaviour.RawEvent
}

func NewPingService(ctx context.Context, h host.Host, log *zap.Logger) *PingService {
	s := &PingService{
		ctx:    ctx,
		host:   h,
		svc:    ping.NewPingService(h),
		log:    log,
		events: make(chan behaviour.RawEvent, 64),
	}
	go s.probeLoop()
	return s
}

// Events is the stream of raw liveness events for the service loop.
func (s *PingService) Events() <-chan behaviour.RawEvent { return s.events }

func (s *PingService) probeLoop() {
	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		}
		for _, p := range s.host.Network().Peers() {
			s.probe(p)
		}
	}
}

func (s *PingService) probe(p peer.ID) {
	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()
	res, ok := <-s.svc.Ping(ctx, p)
	if !ok {
		return
	}
	ev := behaviour.PingResult{Peer: p, RTT: res.RTT, Err: res.Error}
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}
