package behaviour

import (
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"

	"beaconp2p/internal/wire"
)

// OutwardEvent is a normalized notification produced by the multiplexer
// for its owning network service. Values are immutable once queued.
type OutwardEvent interface {
	isOutwardEvent()
}

// RPCEvent is a request/response exchange payload. The multiplexer passes
// it through untouched; only the request/response service interprets it.
type RPCEvent struct {
	ID     uint64
	Method string
	Body   []byte
}

// RPC carries a request/response protocol event from a remote peer.
type RPC struct {
	Peer  peer.ID
	Event RPCEvent
}

// PeerDialed reports that an outbound connection to a peer completed.
type PeerDialed struct {
	Peer peer.ID
}

// Identified carries the metadata a peer advertised during the identify
// handshake. Info.ListenAddrs holds at most MaxIdentifyAddrs entries.
type Identified struct {
	Peer peer.ID
	Info IdentifyInfo
}

// GossipMessage carries a decoded application payload received over
// gossip, together with its source and the topics it arrived on.
type GossipMessage struct {
	Source  peer.ID
	Topics  []string
	Message wire.PubsubMessage
}

func (RPC) isOutwardEvent()           {}
func (PeerDialed) isOutwardEvent()    {}
func (Identified) isOutwardEvent()    {}
func (GossipMessage) isOutwardEvent() {}

// IdentifyInfo is the peer metadata exchanged by the identify protocol.
type IdentifyInfo struct {
	ProtocolVersion string
	AgentVersion    string
	ListenAddrs     []ma.Multiaddr
	Protocols       []string
}

// SubProtocol names one of the collaborators composed by the multiplexer.
type SubProtocol uint8

const (
	SubProtocolGossip SubProtocol = iota
	SubProtocolRPC
	SubProtocolIdentify
	SubProtocolPing
	SubProtocolDiscovery

	numSubProtocols
)

// RawEvent is an event emitted by one sub-protocol collaborator before
// normalization. Each raw event names the sub-protocol it belongs to so
// the multiplexer can route it to the matching adapter.
type RawEvent interface {
	SubProtocol() SubProtocol
}

// GossipReceived is a message delivered by the gossip mesh. Data is the
// raw payload; it has not been decoded yet.
type GossipReceived struct {
	Source peer.ID
	Topics []string
	Data   []byte
}

// GossipSubscribed reports a remote peer joining a topic.
type GossipSubscribed struct {
	Peer  peer.ID
	Topic string
}

// GossipUnsubscribed reports a remote peer leaving a topic.
type GossipUnsubscribed struct {
	Peer  peer.ID
	Topic string
}

func (GossipReceived) SubProtocol() SubProtocol     { return SubProtocolGossip }
func (GossipSubscribed) SubProtocol() SubProtocol   { return SubProtocolGossip }
func (GossipUnsubscribed) SubProtocol() SubProtocol { return SubProtocolGossip }

// RPCPeerDialed reports a completed outbound dial on the request/response
// service.
type RPCPeerDialed struct {
	Peer peer.ID
}

// RPCReceived carries an inbound request/response protocol event.
type RPCReceived struct {
	Peer  peer.ID
	Event RPCEvent
}

func (RPCPeerDialed) SubProtocol() SubProtocol { return SubProtocolRPC }
func (RPCReceived) SubProtocol() SubProtocol   { return SubProtocolRPC }

// PeerIdentified reports a completed identify handshake.
type PeerIdentified struct {
	Peer peer.ID
	Info IdentifyInfo
}

// IdentifyFailed reports a failed identify handshake.
type IdentifyFailed struct {
	Peer peer.ID
	Err  error
}

// IdentifySent reports that our identify info was pushed to a peer.
type IdentifySent struct {
	Peer peer.ID
}

func (PeerIdentified) SubProtocol() SubProtocol { return SubProtocolIdentify }
func (IdentifyFailed) SubProtocol() SubProtocol { return SubProtocolIdentify }
func (IdentifySent) SubProtocol() SubProtocol   { return SubProtocolIdentify }

// PingResult reports the outcome of one liveness probe.
type PingResult struct {
	Peer peer.ID
	RTT  time.Duration
	Err  error
}

func (PingResult) SubProtocol() SubProtocol { return SubProtocolPing }

// DiscoveryFound reports peers learned through the discovery mechanism.
type DiscoveryFound struct {
	Peers []peer.AddrInfo
}

func (DiscoveryFound) SubProtocol() SubProtocol { return SubProtocolDiscovery }
