package p2p

import (
	"context"
	"fmt"

	"github.com/libp2p/go-libp2p/core/event"
	"github.com/libp2p/go-libp2p/core/host"
	"go.uber.org/zap"

	"beaconp2p/internal/behaviour"
)

// IdentifyService bridges the host's built-in identify protocol onto the
// multiplexer's raw event stream.
type IdentifyService struct {
	ctx    context.Context
	host   host.Host
	log    *zap.Logger
	sub    event.Subscription
	events chan behaviour.RawEvent
}

func NewIdentifyService(ctx context.Context, h host.Host, log *zap.Logger) (*IdentifyService, error) {
	sub, err := h.EventBus().Subscribe([]interface{}{
		new(event.EvtPeerIdentificationCompleted),
		new(event.EvtPeerIdentificationFailed),
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe identify events: %w", err)
	}
	s := &IdentifyService{
		ctx:    ctx,
		host:   h,
		log:    log,
		sub:    sub,
		events: make(chan behaviour.RawEvent, 64),
	}
	go s.pump()
	return s, nil
}

// Events is the stream of raw identify events for the service loop.
func (s *IdentifyService) Events() <-chan behaviour.RawEvent { return s.events }

func (s *IdentifyService) pump() {
	for {
		var raw interface{}
		select {
		case <-s.ctx.Done():
			return
		case e, ok := <-s.sub.Out():
			if !ok {
				return
			}
			raw = e
		}

		var ev behaviour.RawEvent
		switch e := raw.(type) {
		case event.EvtPeerIdentificationCompleted:
			protocols := make([]string, 0, len(e.Protocols))
			for _, p := range e.Protocols {
				protocols = append(protocols, string(p))
			}
			ev = behaviour.PeerIdentified{
				Peer: e.Peer,
				Info: behaviour.IdentifyInfo{
					ProtocolVersion: e.ProtocolVersion,
					AgentVersion:    e.AgentVersion,
					ListenAddrs:     e.ListenAddrs,
					Protocols:       protocols,
				},
			}
		case event.EvtPeerIdentificationFailed:
			ev = behaviour.IdentifyFailed{Peer: e.Peer, Err: e.Reason}
		default:
			continue
		}

		select {
		case s.events <- ev:
		case <-s.ctx.Done():
			return
		}
	}
}

// Close cancels the event bus subscription.
func (s *IdentifyService) Close() error {
	return s.sub.Close()
}
