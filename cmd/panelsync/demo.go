package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/odvcencio/panelsync/pkg/bus"
	"github.com/odvcencio/panelsync/pkg/config"
	"github.com/odvcencio/panelsync/pkg/panel"
	"github.com/odvcencio/panelsync/pkg/remote"
)

const (
	demoQueryPanel = "demo-query"
	demoTextPanel  = "demo-note"
)

func runDemoCommand(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("demo", flag.ContinueOnError)
	fs.SetOutput(stderr)
	bind := fs.String("bind", "127.0.0.1:8642", "Gateway bind address")
	duration := fs.Duration("duration", 0, "Exit after this long (0 runs until interrupted)")
	noGateway := fs.Bool("no-gateway", false, "Skip the HTTP gateway")
	x := fs.Float64("x", -1, "Set the slider to this value once the query is ready")
	if err := fs.Parse(args); err != nil {
		return withExitCode(err, exitUsage)
	}

	cfg := config.DefaultConfig()
	cfg.Gateway.Bind = *bind
	cfg.Gateway.Enabled = !*noGateway

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if *duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}
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

	mb := bus.NewMemoryBus()
	defer mb.Close()

	space := remote.NewSpace()
	if _, err := remote.InstallSampleQuery(space, "query"); err != nil {
		return err
	}
	remote.InstallTextInput(space, "note", "hello")

	rt, err := newRuntime(ctx, cfg, mb, stderr)
	if err != nil {
		return err
	}
	defer rt.Close()

	srv := remote.NewServer(space, mb, rt.logger.With("component", "host"))
	if err := srv.Start(ctx); err != nil {
		return err
	}
	rt.closeAfterUnmount(srv.Stop)

	for _, open := range []remote.ShellOpen{
		{PanelID: demoQueryPanel, Ref: "query", Title: "query"},
		{PanelID: demoTextPanel, Ref: "note", Title: "note"},
	} {
		data, err := json.Marshal(open)
		if err != nil {
			return err
		}
		if err := mb.Publish(ctx, remote.SubjectShellOpen, data); err != nil {
			return err
		}
	}

	if *x >= 0 {
		go driveSlider(ctx, rt, *x)
	}
	if cfg.Gateway.Enabled {
		fmt.Fprintf(stdout, "gateway on http://%s (panels at /panels, events at /events)\n", cfg.Gateway.Bind)
	}

	err = rt.serveGateway(ctx)
	printPanels(stdout, rt.plugin.Panels())
	return err
}

// driveSlider sets the demo query's slider once the panel is ready.
func driveSlider(ctx context.Context, rt *runtime, x float64) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		p, ok := rt.plugin.Panel(demoQueryPanel)
		if !ok || p.Snapshot().State != panel.StateReady {
			continue
		}
		if err := p.SetInput("x", x); err != nil {
			rt.logger.Warn("demo input", "error", err)
		}
		return
	}
}

func printPanels(w io.Writer, panels []panel.Panel) {
	for _, p := range panels {
		v := p.Snapshot()
		fmt.Fprintf(w, "%s\t%s\t%s\trevision=%d refreshes=%d outputs=%d\n",
			v.ID, v.Type, v.State, v.Revision, v.Refreshes, len(v.Outputs))
		for _, in := range v.Inputs {
			fmt.Fprintf(w, "  %s = %v (writes=%d)\n", in.Name, in.Value, in.Writes)
		}
	}
}
