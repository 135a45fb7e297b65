package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/odvcencio/panelsync/pkg/config"
	"github.com/odvcencio/panelsync/pkg/remote"
)

func runServeCommand(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Config file (defaults to ~/.panelsync/config.yaml and ./panelsync.yaml)")
	bind := fs.String("bind", "", "Gateway bind address (overrides gateway.bind)")
	busKind := fs.String("bus", "", "Message bus: memory or nats (overrides bus.kind)")
	natsURL := fs.String("nats-url", "", "NATS server URL (overrides bus.url)")
	slots := fs.String("slots", "", "SQLite path for output panel ids (overrides storage.slots_path)")
	sample := fs.Bool("sample", false, "Host a sample interactive query in process")
	if err := fs.Parse(args); err != nil {
		return withExitCode(err, exitUsage)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *bind != "" {
		cfg.Gateway.Bind = *bind
	}
	if *busKind != "" {
		cfg.Bus.Kind = *busKind
	}
	if *natsURL != "" {
		cfg.Bus.URL = *natsURL
	}
	if *slots != "" {
		cfg.Storage.SlotsPath = *slots
	}
	if err := cfg.Validate(); err != nil {
		return withExitCode(err, exitUsage)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	rt, err := newRuntime(ctx, cfg, nil, stderr)
	if err != nil {
		return err
	}
	defer rt.Close()

	// A memory bus has no other process on it, so it gets a reference
	// host with the sample query.
	if *sample || strings.EqualFold(cfg.Bus.Kind, "memory") {
		space := remote.NewSpace()
		if _, err := remote.InstallSampleQuery(space, "query"); err != nil {
			return err
		}
		srv := remote.NewServer(space, rt.bus, rt.logger.With("component", "host"))
		if err := srv.Start(ctx); err != nil {
			return err
		}
		rt.closeAfterUnmount(srv.Stop)
		rt.logger.Info("hosting sample interactive query", "ref", "query")
	}

	rt.logger.Info("panelsync serving", "bus", cfg.Bus.Kind, "gateway", cfg.Gateway.Enabled)
	return rt.serveGateway(ctx)
}

func loadConfig(path string) (*config.Config, error) {
	if strings.TrimSpace(path) == "" {
		return config.Load()
	}
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
