// Package revision turns change notifications on a widget's revision
// source into refresh triggers.
package revision

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/odvcencio/panelsync/pkg/errors"
	"github.com/odvcencio/panelsync/pkg/host"
	"github.com/odvcencio/panelsync/pkg/telemetry"
	"github.com/odvcencio/panelsync/pkg/widget"
)

// Watcher forwards every change on a revision source to onChange. It
// never inspects the value: any change means the outputs are stale.
type Watcher struct {
	onChange func()
	count    atomic.Int64

	mu          sync.Mutex
	stopped     bool
	unsubscribe func()

	// held while onChange runs so Stop can wait it out
	deliver sync.Mutex
}

// Watch subscribes onChange to changes of h. onChange must not call
// Stop.
func Watch(ctx context.Context, h widget.Handle, subscriber host.ChangeSubscriber, onChange func()) (*Watcher, error) {
	w := &Watcher{onChange: onChange}
	unsubscribe, err := subscriber.Subscribe(ctx, h, w.notify)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFetch, "subscribe to revision source").
			WithContext("ref", h.Ref()).
			WithRetryable(true)
	}

	w.mu.Lock()
	w.unsubscribe = unsubscribe
	w.mu.Unlock()
	return w, nil
}

func (w *Watcher) notify() {
	w.deliver.Lock()
	defer w.deliver.Unlock()

	w.mu.Lock()
	stopped := w.stopped
	w.mu.Unlock()
	if stopped {
		return
	}

	w.count.Add(1)
	telemetry.RecordRevisionChange()
	w.onChange()
}

// Notifications is the number of changes delivered so far.
func (w *Watcher) Notifications() int64 {
	return w.count.Load()
}

// Stop unsubscribes. Once it returns onChange will not be called again.
// Stop is idempotent.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	unsubscribe := w.unsubscribe
	w.unsubscribe = nil
	w.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}

	// Wait for a delivery already past the stopped check.
	w.deliver.Lock()
	defer w.deliver.Unlock()
}
