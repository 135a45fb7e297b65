package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/odvcencio/panelsync/pkg/bus"
	"github.com/odvcencio/panelsync/pkg/config"
	"github.com/odvcencio/panelsync/pkg/dashboard"
	"github.com/odvcencio/panelsync/pkg/gateway"
	"github.com/odvcencio/panelsync/pkg/host"
	"github.com/odvcencio/panelsync/pkg/logging"
	"github.com/odvcencio/panelsync/pkg/reconcile"
	"github.com/odvcencio/panelsync/pkg/remote"
	"github.com/odvcencio/panelsync/pkg/storage"
	"github.com/odvcencio/panelsync/pkg/telemetry"
)

// runtime is the dashboard side of panelsync: a plugin whose host
// capabilities are reached over the message bus.
type runtime struct {
	cfg    *config.Config
	logger *slog.Logger

	bus    bus.MessageBus
	hub    *host.Hub
	client *remote.Client
	plugin *dashboard.Plugin
	bridge *host.BusBridge

	closers []func()
	// pluginCloser is the index of plugin.Stop in closers.
	pluginCloser int
}

// newRuntime wires the runtime. A nil mb opens the bus cfg names.
func newRuntime(ctx context.Context, cfg *config.Config, mb bus.MessageBus, logOut io.Writer) (*runtime, error) {
	rt := &runtime{
		cfg:    cfg,
		logger: logging.NewWithWriter(logOut, "panelsync", cfg.Logging.Level, cfg.Logging.Format),
		hub:    host.NewHub(),
	}
	rt.closers = append(rt.closers, rt.hub.Close)

	if cfg.Telemetry.Tracing {
		tp, err := telemetry.NewTracerProvider(cfg.Telemetry.ServiceName, logOut)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(shutdownCtx)
		})
	}

	if mb == nil {
		opened, err := openBus(cfg.Bus)
		if err != nil {
			rt.Close()
			return nil, err
		}
		mb = opened
		rt.closers = append(rt.closers, func() { _ = opened.Close() })
	}
	rt.bus = mb

	var slots reconcile.SlotStore = reconcile.NewMemorySlotStore()
	if path := strings.TrimSpace(cfg.Storage.SlotsPath); path != "" {
		store, err := storage.New(path)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("open slot store: %w", err)
		}
		rt.closers = append(rt.closers, func() { _ = store.Close() })
		slots = storage.NewSlotStore(store)
	}

	rt.client = remote.NewClient(mb, cfg.Bus.Timeout, rt.logger.With("component", "remote"))
	rt.plugin = dashboard.New(dashboard.Options{
		DashboardID: cfg.Sync.DashboardID,
		Hub:         rt.hub,
		Registry:    dashboard.NewRegistry(),
		Caps: host.Capabilities{
			Subscriber: rt.client,
			Tables:     rt.client,
			Panels:     rt.hub,
			Messages:   rt.client,
		},
		Slots:         slots,
		WriteWindow:   cfg.Sync.WriteDebounce,
		RefreshWindow: cfg.Sync.RefreshDebounce,
		Policy:        cfg.Policy(),
		Logger:        rt.logger.With("component", "dashboard"),
	})
	if err := rt.plugin.Start(ctx); err != nil {
		rt.Close()
		return nil, err
	}
	// Registered after the bus and hub closers so Close unmounts first.
	rt.pluginCloser = len(rt.closers)
	rt.closers = append(rt.closers, rt.plugin.Stop)

	stopShell, err := rt.client.ListenShell(ctx, rt.hub)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.closers = append(rt.closers, stopShell)

	rt.bridge = host.NewBusBridge(rt.hub, mb, rt.logger.With("component", "bridge"))
	rt.bridge.Start(ctx)
	rt.closers = append(rt.closers, rt.bridge.Stop)

	return rt, nil
}

func openBus(cfg config.BusConfig) (bus.MessageBus, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "nats":
		nb, err := bus.NewNATSBus(bus.Config{URL: cfg.URL, Name: cfg.Name, Timeout: cfg.Timeout})
		if err != nil {
			return nil, err
		}
		return nb, nil
	default:
		return bus.NewMemoryBus(), nil
	}
}

// serveGateway blocks until ctx is done, serving the gateway when it is
// enabled.
func (rt *runtime) serveGateway(ctx context.Context) error {
	if !rt.cfg.Gateway.Enabled {
		<-ctx.Done()
		return nil
	}
	gw := gateway.New(gateway.Config{
		BindAddress: rt.cfg.Gateway.Bind,
		InputRate:   rt.cfg.Gateway.InputRate,
		InputBurst:  rt.cfg.Gateway.InputBurst,
	}, rt.plugin, rt.hub, rt.logger.With("component", "gateway"))
	return gw.Start(ctx)
}

// closeAfterUnmount registers fn to run on Close once every panel has
// unmounted and before the bus closes. A host on the bus must outlive the
// unmount flush writes.
func (rt *runtime) closeAfterUnmount(fn func()) {
	rt.closers = slices.Insert(rt.closers, rt.pluginCloser, fn)
	rt.pluginCloser++
}

// Close tears everything down in reverse order.
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}
