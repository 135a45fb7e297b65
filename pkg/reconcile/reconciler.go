// Package reconcile keeps a panel's output panels in step with the
// widget it displays.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/odvcencio/panelsync/pkg/clock"
	"github.com/odvcencio/panelsync/pkg/debounce"
	"github.com/odvcencio/panelsync/pkg/errors"
	"github.com/odvcencio/panelsync/pkg/host"
	"github.com/odvcencio/panelsync/pkg/logging"
	"github.com/odvcencio/panelsync/pkg/manifest"
	"github.com/odvcencio/panelsync/pkg/telemetry"
	"github.com/odvcencio/panelsync/pkg/widget"
)

// State is the reconciler's refresh state.
type State int

const (
	Idle State = iota
	Refreshing
)

func (s State) String() string {
	if s == Refreshing {
		return "refreshing"
	}
	return "idle"
}

// Slot is an output object and the panel it is shown in.
type Slot struct {
	Index   int
	Object  widget.ExportedObject
	PanelID string
	Title   string
}

// Result is what a successful refresh commits.
type Result struct {
	Widget   widget.Widget
	Manifest *manifest.Manifest
	Slices   *widget.Slices
	Slots    []Slot
}

// Options configures a Reconciler.
type Options struct {
	// ParentID is the id of the panel that owns the outputs.
	ParentID string
	// Name prefixes output panel titles: "<Name>/<index>".
	Name    string
	Fetcher host.WidgetFetcher
	Panels  host.PanelOpener
	Slots   SlotStore
	Clock   clock.Clock
	// Window debounces Trigger; zero means debounce.DefaultWindow.
	Window time.Duration
	// OnRefreshed receives every committed result.
	OnRefreshed func(Result)
	// OnError receives refresh failures and per-slot open failures.
	OnError func(error)
	Logger  *slog.Logger
}

// Reconciler runs refreshes one at a time. Requests that arrive while a
// refresh is running collapse into a single follow-up refresh.
type Reconciler struct {
	opts      Options
	logger    *slog.Logger
	debouncer *debounce.Debouncer[struct{}]

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	state     State
	pending   bool
	scheduled bool
	closed    bool
	// idle is closed while nothing is running or scheduled
	idle     chan struct{}
	idleOpen bool
	runs     int64

	// held while results are delivered so Close can wait them out
	commit sync.Mutex
}

// New creates an idle reconciler. ctx bounds every remote call it makes.
func New(ctx context.Context, opts Options) *Reconciler {
	if opts.Slots == nil {
		opts.Slots = NewMemorySlotStore()
	}
	window := opts.Window
	if window == 0 {
		window = debounce.DefaultWindow
	}

	idle := make(chan struct{})
	close(idle)
	r := &Reconciler{
		opts:   opts,
		logger: logging.WithPanel(opts.Logger, opts.ParentID, opts.Name),
		idle:   idle,
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.debouncer = debounce.New(opts.Clock, window, func(struct{}) { r.request(true) })
	return r
}

// Refresh requests a refresh now, as on initial mount.
func (r *Reconciler) Refresh() {
	r.request(false)
}

// Trigger requests a refresh once triggers have been quiet for the
// debounce window.
func (r *Reconciler) Trigger() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.scheduled = true
	r.busy()
	r.mu.Unlock()

	r.debouncer.Trigger(struct{}{})
}

// State reports whether a refresh is running.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Runs is the number of refreshes started.
func (r *Reconciler) Runs() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}

// Wait blocks until no refresh is running or scheduled by Trigger, or
// until ctx is done.
func (r *Reconciler) Wait(ctx context.Context) error {
	r.mu.Lock()
	idle := r.idle
	r.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops triggers, cancels in-flight remote calls and waits for any
// result being delivered. Results that complete afterwards are dropped.
// OnRefreshed and OnError must not call Close.
func (r *Reconciler) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.pending = false
	r.mu.Unlock()

	r.debouncer.Stop()
	r.cancel()

	r.mu.Lock()
	r.scheduled = false
	r.settle()
	r.mu.Unlock()

	r.commit.Lock()
	defer r.commit.Unlock()
}

func (r *Reconciler) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Reconciler) request(fromTrigger bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if fromTrigger {
		r.scheduled = false
	}
	if r.closed {
		r.settle()
		return
	}
	if r.state == Refreshing {
		r.pending = true
		telemetry.RecordCoalesced()
		return
	}
	r.state = Refreshing
	r.busy()
	r.runs++
	go r.loop()
}

// busy opens a fresh idle channel for Wait. Callers hold r.mu.
func (r *Reconciler) busy() {
	if !r.idleOpen {
		r.idle = make(chan struct{})
		r.idleOpen = true
	}
}

// settle releases Wait once nothing is running or scheduled. Callers
// hold r.mu.
func (r *Reconciler) settle() {
	if r.idleOpen && r.state == Idle && !r.scheduled {
		close(r.idle)
		r.idleOpen = false
	}
}

func (r *Reconciler) loop() {
	for {
		start := time.Now()
		res, errs := r.refresh(r.ctx)
		r.deliver(res, errs, time.Since(start))

		r.mu.Lock()
		if r.pending && !r.closed {
			r.pending = false
			r.runs++
			r.mu.Unlock()
			continue
		}
		r.state = Idle
		r.settle()
		r.mu.Unlock()
		return
	}
}

func (r *Reconciler) deliver(res *Result, errs []error, elapsed time.Duration) {
	r.commit.Lock()
	defer r.commit.Unlock()

	if r.isClosed() {
		telemetry.RecordRefresh(telemetry.ResultDiscarded, elapsed)
		r.logger.Debug("discarding refresh after close")
		return
	}

	if res == nil {
		telemetry.RecordRefresh(telemetry.ResultError, elapsed)
	} else {
		telemetry.RecordRefresh(telemetry.ResultOK, elapsed)
	}
	if res != nil && r.opts.OnRefreshed != nil {
		r.opts.OnRefreshed(*res)
	}
	for _, err := range errs {
		r.logger.Warn("refresh", "error", err)
		if r.opts.OnError != nil {
			r.opts.OnError(err)
		}
	}
}

// refresh runs one fetch, decode, slice and open pass. A nil result
// means nothing may be committed; errs may be non-empty either way.
func (r *Reconciler) refresh(ctx context.Context) (*Result, []error) {
	ctx, span := telemetry.StartSpan(ctx, "reconcile.refresh",
		telemetry.AttrPanelID.String(r.opts.ParentID))

	res, errs := r.derive(ctx)
	var spanErr error
	if res == nil && len(errs) > 0 {
		spanErr = errs[0]
	}
	if res != nil {
		span.SetAttributes(
			telemetry.AttrRevision.Int64(res.Manifest.Revision),
			telemetry.AttrOutputCount.Int(len(res.Slots)),
		)
	}
	telemetry.EndSpan(span, spanErr)
	return res, errs
}

func (r *Reconciler) derive(ctx context.Context) (*Result, []error) {
	w, err := r.opts.Fetcher.FetchWidget(ctx)
	if err != nil {
		return nil, []error{errors.Wrap(err, errors.ErrCodeFetch, "fetch widget").
			WithContext("panel", r.opts.ParentID).
			WithRetryable(true)}
	}

	m, err := manifest.Decode(w.PayloadBase64())
	if err != nil {
		return nil, []error{err}
	}

	slices, err := widget.Slice(m, w.ExportedObjects())
	if err != nil {
		return nil, []error{err}
	}

	slots := make([]Slot, len(slices.Outputs))
	for i, obj := range slices.Outputs {
		id, err := r.opts.Slots.PanelID(ctx, r.opts.ParentID, i)
		if err != nil {
			return nil, []error{errors.Wrap(err, errors.ErrCodeStorageRead, "look up output panel id").
				WithContext("panel", r.opts.ParentID).
				WithContext("index", i)}
		}
		slots[i] = Slot{
			Index:   i,
			Object:  obj,
			PanelID: id,
			Title:   fmt.Sprintf("%s/%d", r.opts.Name, i),
		}
	}

	if r.isClosed() {
		return nil, nil
	}

	var errs []error
	for _, slot := range slots {
		if err := r.open(ctx, slot); err != nil {
			errs = append(errs, err)
		}
	}

	return &Result{Widget: w, Manifest: m, Slices: slices, Slots: slots}, errs
}

func (r *Reconciler) open(ctx context.Context, slot Slot) error {
	obj := slot.Object
	err := r.opts.Panels.OpenPanel(ctx, host.PanelRequest{
		PanelID: slot.PanelID,
		Title:   slot.Title,
		Type:    obj.Type(),
		Fetch:   obj.Fetch,
	})
	telemetry.RecordOutputOpen(telemetry.Result(err))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodePanelOpen, "open output panel").
			WithContext("panel", slot.PanelID).
			WithContext("index", slot.Index)
	}
	return nil
}
