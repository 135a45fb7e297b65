// Package binding connects one manifest input to the remote object its
// edits are written to.
package binding

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
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

// Policy decides what Close does with a write still inside its
// debounce window.
type Policy string

const (
	// PolicyDrop abandons the pending write.
	PolicyDrop Policy = "drop"
	// PolicyFlush sends the pending write before Close returns.
	PolicyFlush Policy = "flush"
)

// ParsePolicy parses a policy name. The empty string is PolicyDrop.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyDrop:
		return PolicyDrop, nil
	case PolicyFlush:
		return PolicyFlush, nil
	default:
		return "", errors.Newf(errors.ErrCodeConfigInvalid, "unknown unmount policy %q", s)
	}
}

// Options configures a Binding. The zero value is usable.
type Options struct {
	Clock clock.Clock
	// Window is the write debounce window; zero means
	// debounce.DefaultWindow and a negative window writes on every
	// SetValue.
	Window time.Duration
	Policy Policy
	// OnError receives WRITE errors. It is not called after Close.
	OnError func(error)
	// OnWrite is called after each successful write.
	OnWrite func(name string, value any)
	PanelID string
	Logger  *slog.Logger
}

type pendingWrite struct {
	seq   uint64
	value any
}

// Binding holds an input's local value and writes it, debounced, to a
// remote sink. Writes of one binding never overlap and never send a
// value older than one already sent.
type Binding struct {
	name    string
	sink    Sink
	policy  Policy
	onError func(error)
	onWrite func(string, any)
	panelID string
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	debouncer *debounce.Debouncer[pendingWrite]

	mu     sync.Mutex
	spec   manifest.InputSpec
	value  any
	seq    uint64
	closed bool

	writeMu  sync.Mutex
	lastSent uint64

	writes atomic.Int64
}

// Create resolves obj to a mutable table and binds spec to it. ctx
// bounds the resolution only; the binding lives until Close.
func Create(ctx context.Context, spec manifest.InputSpec, obj widget.ExportedObject, tables host.TableOpener, opts Options) (*Binding, error) {
	h, err := obj.Fetch(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFetch, "fetch input table").
			WithContext("input", spec.Name).
			WithRetryable(true)
	}
	table, err := tables.MutableTable(ctx, h)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFetch, "resolve input table").
			WithContext("input", spec.Name).
			WithContext("ref", h.Ref())
	}
	return New(ctx, spec, TableSink{Table: table}, opts), nil
}

// New binds spec to sink. The initial local value is the spec default.
func New(ctx context.Context, spec manifest.InputSpec, sink Sink, opts Options) *Binding {
	if opts.Policy == "" {
		opts.Policy = PolicyDrop
	}
	window := opts.Window
	if window == 0 {
		window = debounce.DefaultWindow
	}

	b := &Binding{
		name:    spec.Name,
		spec:    spec,
		sink:    sink,
		policy:  opts.Policy,
		onError: opts.OnError,
		onWrite: opts.OnWrite,
		panelID: opts.PanelID,
		logger:  logging.WithInput(opts.Logger, spec.Name, string(spec.Kind)),
		value:   spec.DefaultValue(),
	}
	b.ctx, b.cancel = context.WithCancel(context.WithoutCancel(ctx))
	b.debouncer = debounce.New(opts.Clock, window, func(p pendingWrite) {
		_ = b.write(p)
	})
	return b
}

// Spec returns the input this binding serves.
func (b *Binding) Spec() manifest.InputSpec {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.spec
}

// SetSpec replaces the input's props after a refresh. The name and the
// local value are kept.
func (b *Binding) SetSpec(spec manifest.InputSpec) {
	b.mu.Lock()
	defer b.mu.Unlock()
	spec.Name = b.name
	b.spec = spec
}

// SetValue updates the local value immediately and schedules a write.
// After Close only the local value changes.
func (b *Binding) SetValue(v any) {
	b.mu.Lock()
	b.value = v
	b.seq++
	p := pendingWrite{seq: b.seq, value: v}
	closed := b.closed
	b.mu.Unlock()

	if !closed {
		b.debouncer.Trigger(p)
	}
}

// Value returns the local value, which reflects the last SetValue even
// when its write failed.
func (b *Binding) Value() any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value
}

// Pending reports whether a write is waiting out its debounce window.
func (b *Binding) Pending() bool {
	return b.debouncer.Pending()
}

// Writes is the number of successful writes.
func (b *Binding) Writes() int64 {
	return b.writes.Load()
}

// Close stops scheduling writes and applies the unmount policy to a
// pending one. With PolicyFlush the flushed write's error is returned.
// Close is idempotent.
func (b *Binding) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	last := pendingWrite{seq: b.seq, value: b.value}
	b.mu.Unlock()

	pending := b.debouncer.Cancel()
	b.debouncer.Stop()

	var err error
	if pending && b.policy == PolicyFlush {
		err = b.write(last)
		if err != nil {
			b.logger.Warn("flush on close failed", "error", err)
		}
	} else if pending {
		b.logger.Debug("dropped pending write on close")
	}
	b.cancel()
	return err
}

func (b *Binding) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Binding) write(p pendingWrite) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if p.seq <= b.lastSent || b.ctx.Err() != nil {
		return nil
	}

	ctx, span := telemetry.StartSpan(b.ctx, "binding.write",
		telemetry.AttrPanelID.String(b.panelID),
		telemetry.AttrInputName.String(b.name),
	)
	start := time.Now()
	err := b.sink.Write(ctx, p.value)
	telemetry.EndSpan(span, err)
	telemetry.RecordWrite(telemetry.Result(err), time.Since(start))
	b.lastSent = p.seq

	if err != nil {
		werr := errors.Wrap(err, errors.ErrCodeWrite, "write input").
			WithContext("input", b.name).
			WithRetryable(true).
			WithUserMessage("Could not update " + b.name)
		if b.isClosed() {
			return werr
		}
		b.logger.Warn("input write failed", "error", err)
		if b.onError != nil {
			b.onError(werr)
		}
		return werr
	}

	b.writes.Add(1)
	b.logger.Debug("input written", "value", p.value)
	if b.onWrite != nil {
		b.onWrite(b.name, p.value)
	}
	return nil
}
