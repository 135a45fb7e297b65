// Package panel owns the lifecycle of interactive dashboard panels:
// mounting, wiring inputs and outputs, error display and teardown.
package panel

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/odvcencio/panelsync/pkg/binding"
	"github.com/odvcencio/panelsync/pkg/clock"
	"github.com/odvcencio/panelsync/pkg/errors"
	"github.com/odvcencio/panelsync/pkg/host"
	"github.com/odvcencio/panelsync/pkg/logging"
	"github.com/odvcencio/panelsync/pkg/manifest"
	"github.com/odvcencio/panelsync/pkg/reconcile"
	"github.com/odvcencio/panelsync/pkg/revision"
	"github.com/odvcencio/panelsync/pkg/telemetry"
	"github.com/odvcencio/panelsync/pkg/widget"
)

// Options configures a panel.
type Options struct {
	ID     string
	Name   string
	Widget host.WidgetFetcher
	Caps   host.Capabilities
	// Slots defaults to an in-memory store.
	Slots         reconcile.SlotStore
	Clock         clock.Clock
	WriteWindow   time.Duration
	RefreshWindow time.Duration
	Policy        binding.Policy
	// Events, when set, receives lifecycle events.
	Events *host.Hub
	Logger *slog.Logger
}

// InputPanel shows an interactive query: one control per manifest input
// and one output panel per output object, refreshed whenever the
// widget's revision source changes.
type InputPanel struct {
	opts   Options
	logger *slog.Logger

	mu         sync.Mutex
	mounted    bool
	unmounted  bool
	ctx        context.Context
	cancel     context.CancelFunc
	reconciler *reconcile.Reconciler
	watcher    *revision.Watcher
	bound      bool
	specs      []manifest.InputSpec
	bindings   map[string]*binding.Binding
	manifest   *manifest.Manifest
	slots      []reconcile.Slot
	err        error
	refreshes  int64
}

// NewInputPanel creates an unmounted panel. An empty ID gets a fresh one.
func NewInputPanel(opts Options) *InputPanel {
	if opts.ID == "" {
		opts.ID = reconcile.NewPanelID()
	}
	if opts.Slots == nil {
		opts.Slots = reconcile.NewMemorySlotStore()
	}
	if opts.Policy == "" {
		opts.Policy = binding.PolicyDrop
	}
	return &InputPanel{
		opts:     opts,
		logger:   logging.WithPanel(opts.Logger, opts.ID, opts.Name),
		bindings: make(map[string]*binding.Binding),
	}
}

func (p *InputPanel) ID() string { return p.opts.ID }

// Mount starts the initial refresh and returns without waiting for it;
// failures land in the error slot. ctx bounds the panel's lifetime.
func (p *InputPanel) Mount(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mounted {
		return errors.New(errors.ErrCodeInvalidInput, "panel already mounted").WithContext("panel", p.opts.ID)
	}
	p.mounted = true
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.reconciler = reconcile.New(p.ctx, reconcile.Options{
		ParentID:    p.opts.ID,
		Name:        p.opts.Name,
		Fetcher:     p.opts.Widget,
		Panels:      p.opts.Caps.Panels,
		Slots:       p.opts.Slots,
		Clock:       p.opts.Clock,
		Window:      p.opts.RefreshWindow,
		OnRefreshed: p.commit,
		OnError:     p.fail,
		Logger:      p.opts.Logger,
	})
	p.reconciler.Refresh()

	telemetry.PanelMounted(1)
	p.logger.Info("panel mounted")
	p.publish(host.Event{Type: host.EventPanelMounted, WidgetType: widget.TypeInteractiveQuery})
	return nil
}

// Refresh re-fetches the widget now.
func (p *InputPanel) Refresh() {
	p.mu.Lock()
	r := p.reconciler
	p.mu.Unlock()
	if r != nil {
		r.Refresh()
	}
}

// Wait blocks until no refresh is running or scheduled.
func (p *InputPanel) Wait(ctx context.Context) error {
	p.mu.Lock()
	r := p.reconciler
	p.mu.Unlock()
	if r == nil {
		return nil
	}
	return r.Wait(ctx)
}

// Unmount stops the revision watch, discards in-flight refreshes and
// closes every binding according to the unmount policy. Output panel
// ids stay assigned, so a panel mounted again under the same id reuses
// them. It is idempotent; the returned error is the first flush
// failure.
func (p *InputPanel) Unmount() error {
	p.mu.Lock()
	if !p.mounted || p.unmounted {
		p.mu.Unlock()
		return nil
	}
	p.unmounted = true
	r := p.reconciler
	p.mu.Unlock()

	// Cancelling first unblocks remote calls of a refresh in progress;
	// Close then waits for its commit, so everything it created is
	// visible below.
	p.cancel()
	r.Close()

	p.mu.Lock()
	w := p.watcher
	bindings := p.bindings
	p.watcher = nil
	p.bindings = make(map[string]*binding.Binding)
	p.mu.Unlock()

	if w != nil {
		w.Stop()
	}
	var first error
	for _, b := range bindings {
		if err := b.Close(); err != nil && first == nil {
			first = err
		}
	}

	telemetry.PanelMounted(-1)
	p.logger.Info("panel unmounted")
	p.publish(host.Event{Type: host.EventPanelUnmounted})
	return first
}

// Discard unmounts the panel and releases its output panel ids.
func (p *InputPanel) Discard() error {
	err := p.Unmount()
	if ferr := p.opts.Slots.Forget(context.Background(), p.opts.ID); ferr != nil {
		p.logger.Warn("forget output slots", "error", ferr)
	}
	return err
}

// SetInput applies an edit to the named input.
func (p *InputPanel) SetInput(name string, value any) error {
	p.mu.Lock()
	b, ok := p.bindings[name]
	p.mu.Unlock()
	if !ok {
		return errors.Newf(errors.ErrCodeNotFound, "no input %q", name).WithContext("panel", p.opts.ID)
	}
	v, err := coerce(b.Spec(), value)
	if err != nil {
		return err
	}
	b.SetValue(v)
	return nil
}

// Snapshot renders the panel's current state.
func (p *InputPanel) Snapshot() View {
	p.mu.Lock()
	defer p.mu.Unlock()

	v := View{
		ID:        p.opts.ID,
		Name:      p.opts.Name,
		Type:      widget.TypeInteractiveQuery,
		Refreshes: p.refreshes,
	}
	if p.watcher != nil {
		v.Notifications = p.watcher.Notifications()
	}

	switch {
	case p.unmounted:
		v.State = StateUnmounted
		return v
	case p.err != nil:
		v.State = StateError
		v.Error = display(p.err)
		return v
	case p.manifest == nil:
		v.State = StateLoading
		return v
	}

	v.State = StateReady
	v.Revision = p.manifest.Revision
	for _, spec := range p.specs {
		b, ok := p.bindings[spec.Name]
		if !ok {
			continue
		}
		in := InputView{
			Name:    spec.Name,
			Kind:    string(spec.Kind),
			Value:   b.Value(),
			Pending: b.Pending(),
			Writes:  b.Writes(),
		}
		if spec.Slider != nil {
			lo, hi := spec.Slider.Min, spec.Slider.Max
			in.Min, in.Max = &lo, &hi
		}
		v.Inputs = append(v.Inputs, in)
	}
	for _, slot := range p.slots {
		v.Outputs = append(v.Outputs, OutputView{
			Index:   slot.Index,
			PanelID: slot.PanelID,
			Title:   slot.Title,
			Type:    slot.Object.Type(),
		})
	}
	return v
}

// commit runs on the reconciler goroutine for each successful refresh.
// Every commit replaces the input specs wholesale; bindings are rebuilt
// only when input names or kinds change.
func (p *InputPanel) commit(res reconcile.Result) {
	p.mu.Lock()
	ctx := p.ctx
	rebuild := !p.bound || !sameInputs(p.specs, res.Manifest.Inputs)
	needWatch := p.watcher == nil
	p.mu.Unlock()

	// The watch goes in before the bindings so that a binding failure is
	// retried by the next revision change.
	if needWatch {
		w, err := p.watch(ctx, res.Slices.Revision)
		if err != nil {
			p.fail(err)
			return
		}
		p.mu.Lock()
		p.watcher = w
		p.mu.Unlock()
	}

	var fresh map[string]*binding.Binding
	if rebuild {
		var err error
		fresh, err = p.createBindings(ctx, res)
		if err != nil {
			p.fail(err)
			return
		}
	}

	p.mu.Lock()
	var stale map[string]*binding.Binding
	if rebuild {
		stale = p.bindings
		p.bindings = fresh
		p.bound = true
	} else {
		for _, spec := range res.Manifest.Inputs {
			if b, ok := p.bindings[spec.Name]; ok {
				b.SetSpec(spec)
			}
		}
	}
	p.specs = res.Manifest.Inputs
	p.manifest = res.Manifest
	p.slots = res.Slots
	p.err = nil
	p.refreshes++
	p.mu.Unlock()

	closeAll(stale)
	p.logger.Debug("outputs refreshed", "revision", res.Manifest.Revision, "outputs", len(res.Slots))
	p.publish(host.Event{Type: host.EventPanelRefreshed, Data: map[string]any{
		"revision": res.Manifest.Revision,
		"outputs":  len(res.Slots),
	}})
}

func (p *InputPanel) watch(ctx context.Context, source widget.ExportedObject) (*revision.Watcher, error) {
	h, err := source.Fetch(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFetch, "fetch revision source").WithRetryable(true)
	}
	p.mu.Lock()
	r := p.reconciler
	p.mu.Unlock()
	return revision.Watch(ctx, h, p.opts.Caps.Subscriber, r.Trigger)
}

func (p *InputPanel) createBindings(ctx context.Context, res reconcile.Result) (map[string]*binding.Binding, error) {
	specs := res.Manifest.Inputs
	created := make([]*binding.Binding, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		if spec.Kind == manifest.KindUnknown {
			p.logger.Warn("unrecognized input", "input", spec.Name, "type", spec.Type)
			continue
		}
		obj := res.Slices.Inputs[i]
		g.Go(func() error {
			b, err := binding.Create(gctx, spec, obj, p.opts.Caps.Tables, binding.Options{
				Clock:   p.opts.Clock,
				Window:  p.opts.WriteWindow,
				Policy:  p.opts.Policy,
				OnError: p.fail,
				OnWrite: p.written,
				PanelID: p.opts.ID,
				Logger:  p.logger,
			})
			if err != nil {
				return err
			}
			created[i] = b
			return nil
		})
	}

	out := make(map[string]*binding.Binding, len(specs))
	err := g.Wait()
	for _, b := range created {
		if b != nil {
			out[b.Spec().Name] = b
		}
	}
	if err != nil {
		closeAll(out)
		return nil, err
	}
	return out, nil
}

func (p *InputPanel) fail(err error) {
	p.mu.Lock()
	if p.unmounted {
		p.mu.Unlock()
		return
	}
	p.err = err
	p.mu.Unlock()

	p.logger.Warn("panel error", "error", err)
	p.publish(host.Event{Type: host.EventPanelError, Data: map[string]any{
		"code":    string(errors.GetCode(err)),
		"message": display(err),
	}})
}

func (p *InputPanel) written(name string, value any) {
	p.publish(host.Event{Type: host.EventInputWritten, Data: map[string]any{
		"input": name,
		"value": value,
	}})
}

func (p *InputPanel) publish(ev host.Event) {
	if p.opts.Events == nil {
		return
	}
	ev.PanelID = p.opts.ID
	if ev.Title == "" {
		ev.Title = p.opts.Name
	}
	p.opts.Events.Publish(ev)
}

func sameInputs(a, b []manifest.InputSpec) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].Kind != b[i].Kind {
			return false
		}
	}
	return true
}

func closeAll(bindings map[string]*binding.Binding) {
	for _, b := range bindings {
		_ = b.Close()
	}
}
