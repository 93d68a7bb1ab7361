package behaviour

import (
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
)

// Gossip is the publish/subscribe collaborator. Calls must not block;
// delivery failures are the collaborator's concern.
type Gossip interface {
	// Subscribe joins a topic. It reports whether the subscription is
	// new; subscribing twice to the same topic returns false.
	Subscribe(topic string) bool

	// Publish sends an already-encoded payload on a topic.
	Publish(topic string, data []byte)
}

// RPCSender is the outbound half of the request/response collaborator.
type RPCSender interface {
	// SendRPC schedules an exchange with a peer. Fire-and-forget.
	SendRPC(p peer.ID, ev RPCEvent)
}

// Discovery is the peer-discovery collaborator's address registry.
type Discovery interface {
	// RegisterConnectedAddress records an address at which a connected
	// peer reported itself reachable.
	RegisterConnectedAddress(p peer.ID, addr ma.Multiaddr)
}
