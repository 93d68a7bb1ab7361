package behaviour

import (
	"go.uber.org/zap"

	"beaconp2p/internal/telemetry"
	"beaconp2p/internal/wire"
)

// MaxIdentifyAddrs bounds the listen-address list a peer may advertise
// through identify. The list is remote input; anything past this limit
// is dropped before it reaches discovery or the outward queue.
const MaxIdentifyAddrs = 20

// A SubProtocolAdapter translates one collaborator's raw events into
// zero or more outward events, optionally performing side effects on
// other collaborators. Adapters never return errors: malformed remote
// input is absorbed here and must not reach the poll loop.
type SubProtocolAdapter interface {
	HandleEvent(ev RawEvent) []OutwardEvent
}

// gossipAdapter decodes gossip payloads. Undecodable messages are logged
// and dropped; subscription notifications carry no outward effect.
type gossipAdapter struct {
	log *zap.Logger
}

func (a gossipAdapter) HandleEvent(ev RawEvent) []OutwardEvent {
	msg, ok := ev.(GossipReceived)
	if !ok {
		return nil
	}
	telemetry.GossipMessagesReceived.Inc()
	decoded, _, err := wire.Decode(msg.Data, 0)
	if err != nil {
		// TODO: penalize the sender once peer scoring lands.
		telemetry.GossipDecodeFailures.Inc()
		a.log.Warn("received undecodable gossip message",
			zap.Stringer("peer", msg.Source),
			zap.Strings("topics", msg.Topics),
			zap.Error(err))
		return nil
	}
	return []OutwardEvent{GossipMessage{
		Source:  msg.Source,
		Topics:  msg.Topics,
		Message: decoded,
	}}
}

// rpcAdapter passes request/response events through unchanged.
type rpcAdapter struct{}

func (rpcAdapter) HandleEvent(ev RawEvent) []OutwardEvent {
	switch e := ev.(type) {
	case RPCPeerDialed:
		return []OutwardEvent{PeerDialed{Peer: e.Peer}}
	case RPCReceived:
		return []OutwardEvent{RPC{Peer: e.Peer, Event: e.Event}}
	}
	return nil
}

// identifyAdapter bounds the advertised address list and feeds the
// survivors into discovery before surfacing the identification.
type identifyAdapter struct {
	discovery Discovery
	log       *zap.Logger
}

func (a identifyAdapter) HandleEvent(ev RawEvent) []OutwardEvent {
	id, ok := ev.(PeerIdentified)
	if !ok {
		// Identify errors and pushes of our own info carry no outward effect.
		return nil
	}
	info := id.Info
	if len(info.ListenAddrs) > MaxIdentifyAddrs {
		a.log.Debug("truncating identify address list",
			zap.Stringer("peer", id.Peer),
			zap.Int("advertised", len(info.ListenAddrs)))
		info.ListenAddrs = info.ListenAddrs[:MaxIdentifyAddrs]
	}
	for _, addr := range info.ListenAddrs {
		a.discovery.RegisterConnectedAddress(id.Peer, addr)
	}
	return []OutwardEvent{Identified{Peer: id.Peer, Info: info}}
}

// pingAdapter absorbs liveness results; the ping service maintains
// liveness on its own.
type pingAdapter struct{}

func (pingAdapter) HandleEvent(RawEvent) []OutwardEvent { return nil }

// discoveryAdapter absorbs discovery results. Reserved for routing-table
// driven peer management.
type discoveryAdapter struct{}

func (discoveryAdapter) HandleEvent(RawEvent) []OutwardEvent { return nil }
