package p2p

import (
	"context"
	"fmt"
	"sync"

	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"beaconp2p/internal/behaviour"
	"beaconp2p/internal/config"
)

// GossipService wraps gossipsub as the multiplexer's pub/sub
// collaborator. Received messages, along with per-topic join/leave
// notices, surface on Events as raw behaviour events.
type GossipService struct {
	ctx     context.Context
	host    host.Host
	ps      *pubsub.PubSub
	log     *zap.Logger
	limiter *rate.Limiter
	events  chan behaviour.RawEvent

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
	subs   map[string]*pubsub.Subscription
}

func NewGossipService(ctx context.Context, h host.Host, cfg config.Config, log *zap.Logger) (*GossipService, error) {
	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("create gossipsub: %w", err)
	}
	return &GossipService{
		ctx:     ctx,
		host:    h,
		ps:      ps,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(cfg.PublishRateLimit), cfg.PublishBurst),
		events:  make(chan behaviour.RawEvent, 256),
		topics:  make(map[string]*pubsub.Topic),
		subs:    make(map[string]*pubsub.Subscription),
	}, nil
}

// Events is the stream of raw gossip events for the service loop.
func (g *GossipService) Events() <-chan behaviour.RawEvent { return g.events }

// Subscribe joins a topic and starts pumping its messages. It reports
// whether the subscription is new.
func (g *GossipService) Subscribe(topic string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.subs[topic]; ok {
		return false
	}
	t, err := g.getOrJoinTopicLocked(topic)
	if err != nil {
		g.log.Error("join topic", zap.String("topic", topic), zap.Error(err))
		return false
	}
	sub, err := t.Subscribe()
	if err != nil {
		g.log.Error("subscribe topic", zap.String("topic", topic), zap.Error(err))
		return false
	}
	g.subs[topic] = sub
	go g.readLoop(topic, sub)
	go g.peerEventLoop(topic, t)
	return true
}

// Publish sends an already-encoded payload on a topic, subject to the
// configured outbound rate limit.
func (g *GossipService) Publish(topic string, data []byte) {
	if !g.limiter.Allow() {
		g.log.Warn("publish rate limit exceeded, dropping message",
			zap.String("topic", topic))
		return
	}
	g.mu.Lock()
	t, err := g.getOrJoinTopicLocked(topic)
	g.mu.Unlock()
	if err != nil {
		g.log.Error("join topic for publish", zap.String("topic", topic), zap.Error(err))
		return
	}
	if err := t.Publish(g.ctx, data); err != nil {
		g.log.Error("publish", zap.String("topic", topic), zap.Error(err))
	}
}

func (g *GossipService) readLoop(topic string, sub *pubsub.Subscription) {
	for {
		msg, err := sub.Next(g.ctx)
		if err != nil {
			return
		}
		if msg.ReceivedFrom == g.host.ID() {
			continue
		}
		ev := behaviour.GossipReceived{
			Source: msg.GetFrom(),
			Topics: []string{msg.GetTopic()},
			Data:   msg.Data,
		}
		select {
		case g.events <- ev:
		case <-g.ctx.Done():
			return
		}
	}
}

func (g *GossipService) peerEventLoop(topic string, t *pubsub.Topic) {
	h, err := t.EventHandler()
	if err != nil {
		g.log.Error("topic event handler", zap.String("topic", topic), zap.Error(err))
		return
	}
	defer h.Cancel()
	for {
		pe, err := h.NextPeerEvent(g.ctx)
		if err != nil {
			return
		}
		var ev behaviour.RawEvent
		switch pe.Type {
		case pubsub.PeerJoin:
			ev = behaviour.GossipSubscribed{Peer: pe.Peer, Topic: topic}
		case pubsub.PeerLeave:
			ev = behaviour.GossipUnsubscribed{Peer: pe.Peer, Topic: topic}
		default:
			continue
		}
		select {
		case g.events <- ev:
		case <-g.ctx.Done():
			return
		}
	}
}

// Close tears down every subscription and topic handle.
func (g *GossipService) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, sub := range g.subs {
		sub.Cancel()
	}
	for _, t := range g.topics {
		_ = t.Close()
	}
	return nil
}

func (g *GossipService) getOrJoinTopicLocked(name string) (*pubsub.Topic, error) {
	if t, ok := g.topics[name]; ok {
		return t, nil
	}
	t, err := g.ps.Join(name)
	if err != nil {
		return nil, err
	}
	g.topics[name] = t
	return t, nil
}
