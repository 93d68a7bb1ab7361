package p2p

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"go.uber.org/zap"

	"beaconp2p/internal/behaviour"
	"beaconp2p/internal/telemetry"
)

// RPCProtocolID is the substream protocol for request/response
// exchanges between beacon nodes.
const RPCProtocolID = protocol.ID("/beaconp2p/rpc/1.0.0")

const maxRPCFrame = 1 << 20

var errFrameTooLarge = errors.New("rpc: frame exceeds limit")

// RPCService exchanges request/response events over dedicated libp2p
// streams. Inbound events and completed outbound dials surface on
// Events; SendRPC schedules outbound exchanges fire-and-forget.
type RPCService struct {
	ctx    context.Context
	host   host.Host
	log    *zap.Logger
	events chan behaviour.RawEvent
}

func NewRPCService(ctx context.Context, h host.Host, log *zap.Logger) *RPCService {
	r := &RPCService{
		ctx:    ctx,
		host:   h,
		log:    log,
		events: make(chan behaviour.RawEvent, 256),
	}
	h.SetStreamHandler(RPCProtocolID, r.handleStream)
	h.Network().Notify(&network.NotifyBundle{
		ConnectedF: func(_ network.Network, c network.Conn) {
			if c.Stat().Direction != network.DirOutbound {
				return
			}
			select {
			case r.events <- behaviour.RPCPeerDialed{Peer: c.RemotePeer()}:
			case <-ctx.Done():
			}
		},
	})
	return r
}

// Events is the stream of raw request/response events for the service loop.
func (r *RPCService) Events() <-chan behaviour.RawEvent { return r.events }

// SendRPC opens a stream to the peer and writes the event. Failures are
// logged; nothing is reported back to the caller.
func (r *RPCService) SendRPC(p peer.ID, ev behaviour.RPCEvent) {
	go func() {
		s, err := r.host.NewStream(r.ctx, p, RPCProtocolID)
		if err != nil {
			r.log.Warn("open rpc stream", zap.Stringer("peer", p), zap.Error(err))
			return
		}
		defer s.Close()
		if err := writeRPCFrame(s, ev); err != nil {
			r.log.Warn("write rpc frame", zap.Stringer("peer", p), zap.Error(err))
			return
		}
		telemetry.RPCSent.Inc()
	}()
}

func (r *RPCService) handleStream(s network.Stream) {
	defer s.Close()
	remote := s.Conn().RemotePeer()
	for {
		ev, err := readRPCFrame(s)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.log.Debug("read rpc frame", zap.Stringer("peer", remote), zap.Error(err))
			}
			return
		}
		select {
		case r.events <- behaviour.RPCReceived{Peer: remote, Event: ev}:
		case <-r.ctx.Done():
			return
		}
	}
}

// Frames are big-endian: 8-byte id, 2-byte method length, method bytes,
// 4-byte body length, body bytes.

func writeRPCFrame(w io.Writer, ev behaviour.RPCEvent) error {
	if len(ev.Method) > int(^uint16(0)) || len(ev.Body) > maxRPCFrame {
		return errFrameTooLarge
	}
	buf := make([]byte, 0, 8+2+len(ev.Method)+4+len(ev.Body))
	buf = binary.BigEndian.AppendUint64(buf, ev.ID)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(ev.Method)))
	buf = append(buf, ev.Method...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(ev.Body)))
	buf = append(buf, ev.Body...)
	_, err := w.Write(buf)
	return err
}

func readRPCFrame(r io.Reader) (behaviour.RPCEvent, error) {
	var head [10]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return behaviour.RPCEvent{}, err
	}
	ev := behaviour.RPCEvent{ID: binary.BigEndian.Uint64(head[:8])}

	methodLen := int(binary.BigEndian.Uint16(head[8:10]))
	method := make([]byte, methodLen)
	if _, err := io.ReadFull(r, method); err != nil {
		return behaviour.RPCEvent{}, fmt.Errorf("read method: %w", err)
	}
	ev.Method = string(method)

	var sizeBuf [4]byte
	if _, err := io.ReadFull(r, sizeBuf[:]); err != nil {
		return behaviour.RPCEvent{}, fmt.Errorf("read body length: %w", err)
	}
	bodyLen := binary.BigEndian.Uint32(sizeBuf[:])
	if bodyLen > maxRPCFrame {
		return behaviour.RPCEvent{}, errFrameTooLarge
	}
	if bodyLen > 0 {
		ev.Body = make([]byte, bodyLen)
		if _, err := io.ReadFull(r, ev.Body); err != nil {
			return behaviour.RPCEvent{}, fmt.Errorf("read body: %w", err)
		}
	}
	return ev, nil
}
