package panel

import (
	"context"
	"encoding/base64"
	"log/slog"
	"sync"
	"time"

	"github.com/odvcencio/panelsync/pkg/binding"
	"github.com/odvcencio/panelsync/pkg/clock"
	"github.com/odvcencio/panelsync/pkg/errors"
	"github.com/odvcencio/panelsync/pkg/host"
	"github.com/odvcencio/panelsync/pkg/logging"
	"github.com/odvcencio/panelsync/pkg/manifest"
	"github.com/odvcencio/panelsync/pkg/reconcile"
	"github.com/odvcencio/panelsync/pkg/widget"
)

// TextInputValue is the input name a TextInputPanel exposes.
const TextInputValue = "value"

// TextInputOptions configures a TextInputPanel.
type TextInputOptions struct {
	ID       string
	Name     string
	Widget   host.WidgetFetcher
	Messages host.MessageSender
	Clock    clock.Clock
	Window   time.Duration
	Policy   binding.Policy
	Events   *host.Hub
	Logger   *slog.Logger
}

// TextInputPanel is a single text box whose edits are sent to its widget
// as messages. The widget payload is the initial text.
type TextInputPanel struct {
	opts   TextInputOptions
	logger *slog.Logger

	mu        sync.Mutex
	mounted   bool
	unmounted bool
	binding   *binding.Binding
	err       error
}

// NewTextInputPanel creates an unmounted text input panel.
func NewTextInputPanel(opts TextInputOptions) *TextInputPanel {
	if opts.ID == "" {
		opts.ID = reconcile.NewPanelID()
	}
	return &TextInputPanel{
		opts:   opts,
		logger: logging.WithPanel(opts.Logger, opts.ID, opts.Name),
	}
}

func (p *TextInputPanel) ID() string { return p.opts.ID }

// Mount fetches the widget and binds the text box to it.
func (p *TextInputPanel) Mount(ctx context.Context) error {
	p.mu.Lock()
	if p.mounted {
		p.mu.Unlock()
		return errors.New(errors.ErrCodeInvalidInput, "panel already mounted").WithContext("panel", p.opts.ID)
	}
	p.mounted = true
	p.mu.Unlock()

	w, err := p.opts.Widget.FetchWidget(ctx)
	if err != nil {
		err = errors.Wrap(err, errors.ErrCodeFetch, "fetch text input widget").WithRetryable(true)
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()
		return err
	}

	spec := manifest.InputSpec{
		Name: TextInputValue,
		Kind: manifest.KindText,
		Type: string(manifest.KindText),
		Text: &manifest.TextProps{DefaultValue: initialText(w.PayloadBase64())},
	}
	b := binding.New(ctx, spec, binding.MessageSink{Sender: p.opts.Messages, Widget: w}, binding.Options{
		Clock:   p.opts.Clock,
		Window:  p.opts.Window,
		Policy:  p.opts.Policy,
		OnError: p.fail,
		OnWrite: p.written,
		PanelID: p.opts.ID,
		Logger:  p.logger,
	})

	p.mu.Lock()
	if p.unmounted {
		p.mu.Unlock()
		_ = b.Close()
		return nil
	}
	p.binding = b
	p.mu.Unlock()

	p.publish(host.Event{Type: host.EventPanelMounted})
	return nil
}

// SetInput sets the text. name must be TextInputValue.
func (p *TextInputPanel) SetInput(name string, value any) error {
	p.mu.Lock()
	b := p.binding
	p.mu.Unlock()
	if b == nil || name != TextInputValue {
		return errors.Newf(errors.ErrCodeNotFound, "no input %q", name).WithContext("panel", p.opts.ID)
	}
	v, err := coerce(b.Spec(), value)
	if err != nil {
		return err
	}
	b.SetValue(v)
	return nil
}

// Snapshot renders the text box.
func (p *TextInputPanel) Snapshot() View {
	p.mu.Lock()
	defer p.mu.Unlock()

	v := View{ID: p.opts.ID, Name: p.opts.Name, Type: widget.TypeUITextInput}
	switch {
	case p.unmounted:
		v.State = StateUnmounted
	case p.err != nil:
		v.State = StateError
		v.Error = display(p.err)
	case p.binding == nil:
		v.State = StateLoading
	default:
		v.State = StateReady
		v.Inputs = []InputView{{
			Name:    TextInputValue,
			Kind:    string(manifest.KindText),
			Value:   p.binding.Value(),
			Pending: p.binding.Pending(),
			Writes:  p.binding.Writes(),
		}}
	}
	return v
}

// Unmount closes the binding. It is idempotent.
func (p *TextInputPanel) Unmount() error {
	p.mu.Lock()
	if p.unmounted {
		p.mu.Unlock()
		return nil
	}
	p.unmounted = true
	b := p.binding
	p.binding = nil
	p.mu.Unlock()

	var err error
	if b != nil {
		err = b.Close()
	}
	p.publish(host.Event{Type: host.EventPanelUnmounted})
	return err
}

func (p *TextInputPanel) fail(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
	p.publish(host.Event{Type: host.EventPanelError, Data: map[string]any{
		"code":    string(errors.GetCode(err)),
		"message": display(err),
	}})
}

func (p *TextInputPanel) written(name string, value any) {
	p.mu.Lock()
	p.err = nil
	p.mu.Unlock()
	p.publish(host.Event{Type: host.EventInputWritten, Data: map[string]any{
		"input": name,
		"value": value,
	}})
}

func (p *TextInputPanel) publish(ev host.Event) {
	if p.opts.Events == nil {
		return
	}
	ev.PanelID = p.opts.ID
	ev.WidgetType = widget.TypeUITextInput
	p.opts.Events.Publish(ev)
}

func initialText(payload string) string {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return ""
	}
	return string(data)
}
