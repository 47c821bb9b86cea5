package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"Naqqal/internal/archive"
	"Naqqal/internal/backend"
	"Naqqal/internal/config"
	"Naqqal/internal/engine"
	"Naqqal/internal/session"
	"Naqqal/internal/telemetry"
	"Naqqal/internal/transport"
)

func main() {
	gateway := flag.String("gateway", config.GatewayConsole, "Chat gateway (console|websocket)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg.Gateway = *gateway

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	logger, err := telemetry.InitLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx := context.Background()
	tracer, meter, cleanup, err := telemetry.InitTelemetry(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer cleanup()

	arc, err := archive.Open(cfg.ArchivePath, logger)
	if err != nil {
		return fmt.Errorf("failed to open transcript archive: %w", err)
	}
	defer arc.Close()

	narrator, err := backend.New(backend.Config{
		APIKey:          cfg.APIKey,
		BaseURL:         cfg.BaseURL,
		Model:           cfg.Model,
		MaxOutputTokens: cfg.MaxOutputTokens,
		Timeout:         cfg.Timeout,
		Streaming:       cfg.Streaming,
	}, tracer, meter)
	if err != nil {
		return fmt.Errorf("failed to create narration client: %w", err)
	}

	store := session.NewStore()

	switch cfg.Gateway {
	case config.GatewayConsole:
		console := transport.NewConsole(os.Stdin, os.Stdout)
		controller := engine.New(engine.Config{
			Store:    store,
			Narrator: narrator,
			Sink:     transport.NewFreshSink(console),
			Recorder: arc,
			Logger:   logger,
			Tracer:   tracer,
		})
		logger.Info("starting console gateway")
		return console.Run(ctx, controller)

	case config.GatewayWebSocket:
		gw := transport.NewWebSocketGateway(cfg.GatewayToken, logger)
		controller := engine.New(engine.Config{
			Store:       store,
			Narrator:    narrator,
			Sink:        gw,
			Recorder:    arc,
			Logger:      logger,
			Tracer:      tracer,
			Progressive: cfg.Streaming,
		})
		gw.SetHandler(controller)

		mux := http.NewServeMux()
		mux.Handle("/ws", gw)
		logger.Info("starting websocket gateway", "addr", cfg.ListenAddr)
		return http.ListenAndServe(cfg.ListenAddr, mux)

	default:
		return fmt.Errorf("unknown gateway: %s", cfg.Gateway)
	}
}
