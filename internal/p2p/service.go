package p2p

import (
	"context"
	"fmt"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"go.uber.org/zap"

	"beaconp2p/internal/behaviour"
	"beaconp2p/internal/config"
	"beaconp2p/internal/wire"
)

// Service owns the behaviour multiplexer and every libp2p-backed
// collaborator, and runs the single loop that sequences raw event
// injection with polling. The multiplexer itself is never touched from
// more than one goroutine: outward operations are funneled through the
// loop as commands.
type Service struct {
	host      host.Host
	behaviour *behaviour.Behaviour
	gossip    *GossipService
	rpc       *RPCService
	identify  *IdentifyService
	ping      *PingService
	discovery *DiscoveryService
	log       *zap.Logger

	ctx    context.Context
	cmds   chan func()
	out    chan behaviour.OutwardEvent
	cancel context.CancelFunc
}

// New builds the host, all collaborators and the multiplexer from the
// configuration snapshot.
func New(parent context.Context, cfg config.Config, log *zap.Logger) (*Service, error) {
	ctx, cancel := context.WithCancel(parent)

	h, err := NewHost(cfg)
	if err != nil {
		cancel()
		return nil, err
	}

	gossip, err := NewGossipService(ctx, h, cfg, log)
	if err != nil {
		cancel()
		_ = h.Close()
		return nil, err
	}
	discovery, err := NewDiscoveryService(ctx, h, cfg, log)
	if err != nil {
		cancel()
		_ = h.Close()
		return nil, err
	}
	identify, err := NewIdentifyService(ctx, h, log)
	if err != nil {
		cancel()
		_ = h.Close()
		return nil, err
	}

	s := &Service{
		host:      h,
		gossip:    gossip,
		rpc:       NewRPCService(ctx, h, log),
		identify:  identify,
		ping:      NewPingService(ctx, h, log),
		discovery: discovery,
		log:       log,
		ctx:       ctx,
		cmds:      make(chan func(), 64),
		out:       make(chan behaviour.OutwardEvent, 256),
		cancel:    cancel,
	}
	s.behaviour = behaviour.New(gossip, s.rpc, discovery, log)

	log.Info("libp2p host ready",
		zap.Stringer("peer", h.ID()),
		zap.Any("listen_addrs", h.Addrs()))

	go s.run(ctx)
	return s, nil
}

// Events is the ordered stream of outward events for the node.
func (s *Service) Events() <-chan behaviour.OutwardEvent { return s.out }

// Host exposes the underlying libp2p host.
func (s *Service) Host() host.Host { return s.host }

// Start kicks off discovery.
func (s *Service) Start() error {
	if err := s.discovery.Start(); err != nil {
		return fmt.Errorf("start discovery: %w", err)
	}
	return nil
}

// Subscribe joins a gossip topic; the result reports whether the
// subscription is new.
func (s *Service) Subscribe(topic string) bool {
	res := make(chan bool, 1)
	if !s.submit(func() { res <- s.behaviour.Subscribe(topic) }) {
		return false
	}
	select {
	case ok := <-res:
		return ok
	case <-s.ctx.Done():
		return false
	}
}

// Publish encodes the message once and publishes it on every topic.
func (s *Service) Publish(topics []string, msg wire.PubsubMessage) {
	s.submit(func() { s.behaviour.Publish(topics, msg) })
}

// SendRPC schedules a request/response exchange with a peer.
func (s *Service) SendRPC(p peer.ID, ev behaviour.RPCEvent) {
	s.submit(func() { s.behaviour.SendRPC(p, ev) })
}

// submit hands a command to the service loop for execution; it reports
// false once the service is shutting down.
func (s *Service) submit(cmd func()) bool {
	select {
	case s.cmds <- cmd:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *Service) run(ctx context.Context) {
	defer close(s.out)
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-s.cmds:
			cmd()
		case ev := <-s.gossip.Events():
			s.behaviour.Inject(ev)
		case ev := <-s.rpc.Events():
			s.behaviour.Inject(ev)
		case ev := <-s.identify.Events():
			s.behaviour.Inject(ev)
		case ev := <-s.ping.Events():
			s.behaviour.Inject(ev)
		case ev := <-s.discovery.Events():
			s.behaviour.Inject(ev)
		}
		if !s.drain(ctx) {
			return
		}
	}
}

// drain forwards queued outward events in FIFO order. It reports false
// when the context ends mid-drain.
func (s *Service) drain(ctx context.Context) bool {
	for {
		ev, ok := s.behaviour.Poll()
		if !ok {
			return true
		}
		select {
		case s.out <- ev:
		case <-ctx.Done():
			return false
		}
	}
}

// Close stops the loop and tears down every collaborator and the host.
func (s *Service) Close() error {
	s.cancel()
	_ = s.identify.Close()
	_ = s.gossip.Close()
	_ = s.discovery.Close()
	return s.host.Close()
}
