// Package dashboard registers the panelsync panel components with a
// dashboard shell and opens panels for the widgets the shell hands it.
package dashboard

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/odvcencio/panelsync/pkg/binding"
	"github.com/odvcencio/panelsync/pkg/clock"
	"github.com/odvcencio/panelsync/pkg/errors"
	"github.com/odvcencio/panelsync/pkg/host"
	"github.com/odvcencio/panelsync/pkg/logging"
	"github.com/odvcencio/panelsync/pkg/panel"
	"github.com/odvcencio/panelsync/pkg/reconcile"
	"github.com/odvcencio/panelsync/pkg/widget"
)

// Component names registered with the shell.
const (
	ComponentInteractiveQuery = "InteractiveQueryPanel"
	ComponentUIPanel          = "UiPanel"
	ComponentTextInput        = "TextInputPanel"
	ComponentNode             = "ComponentNode"
)

// Components lists every component the plugin registers.
var Components = []string{
	ComponentInteractiveQuery,
	ComponentUIPanel,
	ComponentTextInput,
	ComponentNode,
}

// ComponentRegistry is the shell's component registry.
type ComponentRegistry interface {
	Register(name string) (unregister func())
}

// Options configures a Plugin.
type Options struct {
	// DashboardID is reported as localDashboardId on layout opens.
	DashboardID string
	Hub         *host.Hub
	Registry    ComponentRegistry
	Caps        host.Capabilities
	Slots       reconcile.SlotStore

	Clock         clock.Clock
	WriteWindow   time.Duration
	RefreshWindow time.Duration
	Policy        binding.Policy
	Logger        *slog.Logger
}

// Plugin listens for panel open events and owns the panels it mounts.
type Plugin struct {
	opts   Options
	logger *slog.Logger

	mu         sync.Mutex
	started    bool
	stopped    bool
	ctx        context.Context
	cancel     context.CancelFunc
	panels     map[string]panel.Panel
	unregister []func()
	stopListen func()
	mounting   sync.WaitGroup
}

// New creates a plugin. Start registers it.
func New(opts Options) *Plugin {
	if opts.DashboardID == "" {
		opts.DashboardID = "default"
	}
	if opts.Slots == nil {
		opts.Slots = reconcile.NewMemorySlotStore()
	}
	if opts.Policy == "" {
		opts.Policy = binding.PolicyDrop
	}
	return &Plugin{
		opts:   opts,
		logger: logging.OrDiscard(opts.Logger).With("dashboard", opts.DashboardID),
		panels: make(map[string]panel.Panel),
	}
}

// Start registers the components and begins handling hub events. ctx
// bounds every panel the plugin mounts.
func (p *Plugin) Start(ctx context.Context) error {
	if p.opts.Hub == nil {
		return errors.New(errors.ErrCodeConfigInvalid, "dashboard plugin needs an event hub")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return errors.New(errors.ErrCodeInvalidInput, "dashboard plugin already started")
	}
	p.started = true
	p.ctx, p.cancel = context.WithCancel(ctx)

	if p.opts.Registry != nil {
		for _, name := range Components {
			p.unregister = append(p.unregister, p.opts.Registry.Register(name))
		}
	}
	p.stopListen = p.opts.Hub.Listen(p.handle)
	p.logger.Info("dashboard plugin started", "components", len(Components))
	return nil
}

// Stop unregisters the components and unmounts every panel.
func (p *Plugin) Stop() {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	stopListen := p.stopListen
	unregister := p.unregister
	p.unregister = nil
	p.mu.Unlock()

	stopListen()
	for _, fn := range unregister {
		fn()
	}
	p.cancel()
	p.mounting.Wait()

	p.mu.Lock()
	panels := p.panels
	p.panels = make(map[string]panel.Panel)
	p.mu.Unlock()

	for id, pn := range panels {
		if err := pn.Unmount(); err != nil {
			p.logger.Warn("unmount panel", "panel_id", id, "error", err)
		}
	}
	p.logger.Info("dashboard plugin stopped")
}

// Panels returns the mounted panels sorted by id.
func (p *Plugin) Panels() []panel.Panel {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]panel.Panel, 0, len(p.panels))
	for _, pn := range p.panels {
		out = append(out, pn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Panel returns the mounted panel with id.
func (p *Plugin) Panel(id string) (panel.Panel, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pn, ok := p.panels[id]
	return pn, ok
}

func (p *Plugin) handle(ev host.Event) {
	switch ev.Type {
	case host.EventPanelOpen:
		p.open(ev)
	case host.EventPanelClose:
		p.close(ev.PanelID)
	}
}

func (p *Plugin) open(ev host.Event) {
	if ev.PanelID == "" {
		ev.PanelID = reconcile.NewPanelID()
	}
	switch ev.WidgetType {
	case widget.TypeInteractiveQuery:
		p.openQuery(ev)
	case widget.TypeUITextInput:
		p.openTextInput(ev)
		p.layoutOpen(ev, ComponentTextInput)
	case widget.TypeUIPanel:
		p.layoutOpen(ev, ComponentUIPanel)
	case widget.TypeUIComponentNode:
		p.layoutOpen(ev, ComponentNode)
	default:
		p.logger.Debug("ignoring panel open", "type", ev.WidgetType)
	}
}

func (p *Plugin) openQuery(ev host.Event) {
	if ev.Widget == nil {
		p.logger.Warn("panel open without widget", "panel_id", ev.PanelID)
		return
	}
	pn := panel.NewInputPanel(panel.Options{
		ID:            ev.PanelID,
		Name:          title(ev),
		Widget:        ev.Widget,
		Caps:          p.opts.Caps,
		Slots:         p.opts.Slots,
		Clock:         p.opts.Clock,
		WriteWindow:   p.opts.WriteWindow,
		RefreshWindow: p.opts.RefreshWindow,
		Policy:        p.opts.Policy,
		Events:        p.opts.Hub,
		Logger:        p.opts.Logger,
	})

	ctx, ok := p.adopt(pn)
	if !ok {
		return
	}
	if err := pn.Mount(ctx); err != nil {
		p.logger.Warn("mount panel", "panel_id", pn.ID(), "error", err)
	}
}

func (p *Plugin) openTextInput(ev host.Event) {
	if ev.Widget == nil {
		p.logger.Warn("panel open without widget", "panel_id", ev.PanelID)
		return
	}
	pn := panel.NewTextInputPanel(panel.TextInputOptions{
		ID:       ev.PanelID,
		Name:     title(ev),
		Widget:   ev.Widget,
		Messages: p.opts.Caps.Messages,
		Clock:    p.opts.Clock,
		Window:   p.opts.WriteWindow,
		Policy:   p.opts.Policy,
		Events:   p.opts.Hub,
		Logger:   p.opts.Logger,
	})

	ctx, ok := p.adopt(pn)
	if !ok {
		return
	}
	// Mount fetches the widget; hub listeners must not block on that.
	p.mounting.Add(1)
	go func() {
		defer p.mounting.Done()
		if err := pn.Mount(ctx); err != nil {
			p.logger.Warn("mount text input", "panel_id", pn.ID(), "error", err)
		}
	}()
}

// adopt records pn, replacing and unmounting a panel with the same id.
func (p *Plugin) adopt(pn panel.Panel) (context.Context, bool) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil, false
	}
	old := p.panels[pn.ID()]
	p.panels[pn.ID()] = pn
	ctx := p.ctx
	p.mu.Unlock()

	if old != nil {
		p.logger.Debug("replacing panel", "panel_id", pn.ID())
		_ = old.Unmount()
	}
	return ctx, true
}

func (p *Plugin) close(id string) {
	p.mu.Lock()
	pn, ok := p.panels[id]
	delete(p.panels, id)
	p.mu.Unlock()
	if !ok {
		return
	}
	var err error
	if d, ok := pn.(interface{ Discard() error }); ok {
		err = d.Discard()
	} else {
		err = pn.Unmount()
	}
	if err != nil {
		p.logger.Warn("close panel", "panel_id", id, "error", err)
	}
}

func (p *Plugin) layoutOpen(ev host.Event, component string) {
	id := ev.PanelID
	p.opts.Hub.Publish(host.Event{
		Type:       host.EventLayoutOpen,
		PanelID:    id,
		Title:      ev.Title,
		WidgetType: ev.WidgetType,
		Widget:     ev.Widget,
		Data: map[string]any{
			"component":        component,
			"localDashboardId": p.opts.DashboardID,
			"id":               id,
			"metadata":         ev.Data,
			"title":            ev.Title,
		},
	})
}

func title(ev host.Event) string {
	if ev.Title != "" {
		return ev.Title
	}
	if name, ok := ev.Data["name"].(string); ok {
		return name
	}
	return "widget"
}
