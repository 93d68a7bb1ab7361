// Package behaviour composes the node's network sub-protocols — gossip,
// request/response, identify, liveness probing and peer discovery — into
// a single non-blocking event source.
//
// The multiplexer is driven by exactly one loop: that loop injects raw
// collaborator events and drains the outward queue via Poll. It is not
// safe for concurrent use and holds no locks.
package behaviour

import (
	"github.com/libp2p/go-libp2p/core/peer"
	"go.uber.org/zap"

	"beaconp2p/internal/telemetry"
	"beaconp2p/internal/wire"
)

// Behaviour is the event multiplexer. It routes every raw collaborator
// event to the matching sub-protocol adapter and queues the normalized
// results for the owning service to poll.
type Behaviour struct {
	gossip   Gossip
	rpc      RPCSender
	adapters [numSubProtocols]SubProtocolAdapter
	events   eventQueue
	log      *zap.Logger
}

// New wires a multiplexer over the given collaborators. It performs no
// I/O and cannot fail.
func New(gossip Gossip, rpc RPCSender, discovery Discovery, log *zap.Logger) *Behaviour {
	b := &Behaviour{
		gossip: gossip,
		rpc:    rpc,
		log:    log,
	}
	b.adapters[SubProtocolGossip] = gossipAdapter{log: log}
	b.adapters[SubProtocolRPC] = rpcAdapter{}
	b.adapters[SubProtocolIdentify] = identifyAdapter{discovery: discovery, log: log}
	b.adapters[SubProtocolPing] = pingAdapter{}
	b.adapters[SubProtocolDiscovery] = discoveryAdapter{}
	return b
}

// Poll removes and returns the oldest queued outward event. The second
// return value is false when the queue is empty; Poll never blocks.
func (b *Behaviour) Poll() (OutwardEvent, bool) {
	ev, ok := b.events.pop()
	if ok {
		telemetry.EventsPolled.Inc()
	}
	return ev, ok
}

// Pending reports the number of queued outward events.
func (b *Behaviour) Pending() int { return b.events.len() }

// Inject routes a raw collaborator event through its adapter and queues
// whatever outward events result. Malformed input is absorbed by the
// adapter; Inject itself never fails.
func (b *Behaviour) Inject(ev RawEvent) {
	for _, out := range b.adapters[ev.SubProtocol()].HandleEvent(ev) {
		b.events.push(out)
		telemetry.EventsQueued.Inc()
	}
}

// Subscribe joins a gossip topic, reporting whether the subscription is
// new. No queue interaction.
func (b *Behaviour) Subscribe(topic string) bool {
	return b.gossip.Subscribe(topic)
}

// SendRPC forwards an exchange to the request/response collaborator.
// Fire-and-forget.
func (b *Behaviour) SendRPC(p peer.ID, ev RPCEvent) {
	b.rpc.SendRPC(p, ev)
}

// Publish encodes msg once and publishes the identical byte sequence on
// every topic in topics.
func (b *Behaviour) Publish(topics []string, msg wire.PubsubMessage) {
	data := wire.Encode(msg)
	for _, topic := range topics {
		b.gossip.Publish(topic, data)
		telemetry.GossipPublishes.Inc()
	}
}
