package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	golog "github.com/ipfs/go-log/v2"
	"go.uber.org/zap"

	"beaconp2p/internal/behaviour"
	"beaconp2p/internal/config"
	"beaconp2p/internal/p2p"
	"beaconp2p/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to network config TOML")
	libp2pLogLevel := flag.String("libp2p-log", "error", "log level for libp2p subsystems")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	if err := golog.SetLogLevel("libp2p", *libp2pLogLevel); err != nil {
		logger.Warn("set libp2p log level", zap.Error(err))
	}

	cfg := config.Default()
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			logger.Fatal("load config", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := p2p.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("create p2p service", zap.Error(err))
	}
	defer svc.Close()

	if err := svc.Start(); err != nil {
		logger.Fatal("start p2p service", zap.Error(err))
	}

	for _, topic := range cfg.Topics {
		if svc.Subscribe(topic) {
			logger.Info("subscribed", zap.String("topic", topic))
		}
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", telemetry.MetricsHandler())
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Warn("metrics server", zap.Error(err))
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case ev, ok := <-svc.Events():
			if !ok {
				return
			}
			logEvent(logger, ev)
		}
	}
}

func logEvent(logger *zap.Logger, ev behaviour.OutwardEvent) {
	switch e := ev.(type) {
	case behaviour.PeerDialed:
		logger.Info("peer dialed", zap.Stringer("peer", e.Peer))
	case behaviour.Identified:
		logger.Info("peer identified",
			zap.Stringer("peer", e.Peer),
			zap.String("agent", e.Info.AgentVersion),
			zap.Int("addrs", len(e.Info.ListenAddrs)))
	case behaviour.RPC:
		logger.Info("rpc event",
			zap.Stringer("peer", e.Peer),
			zap.String("method", e.Event.Method),
			zap.Uint64("id", e.Event.ID))
	case behaviour.GossipMessage:
		logger.Info("gossip message",
			zap.Stringer("source", e.Source),
			zap.Strings("topics", e.Topics))
	}
}
