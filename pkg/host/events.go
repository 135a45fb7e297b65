package host

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/odvcencio/panelsync/pkg/widget"
)

// EventType identifies a dashboard event.
type EventType string

const (
	// EventPanelOpen is the shell asking for a widget to be shown.
	EventPanelOpen EventType = "panel.open"
	// EventPanelClose is the shell closing a panel it opened.
	EventPanelClose EventType = "panel.close"
	// EventOutputOpen is a panel asking the shell to open or refresh an output.
	EventOutputOpen EventType = "output.open"
	// EventLayoutOpen is a plugin asking the layout to open a component.
	EventLayoutOpen EventType = "layout.open"

	EventPanelMounted   EventType = "panel.mounted"
	EventPanelUnmounted EventType = "panel.unmounted"
	EventPanelRefreshed EventType = "panel.refreshed"
	EventPanelError     EventType = "panel.error"
	EventInputWritten   EventType = "input.written"
)

// Event is broadcast on the Hub. Widget and Fetch carry live callbacks
// and only travel in process.
type Event struct {
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	PanelID    string         `json:"panelId,omitempty"`
	Title      string         `json:"title,omitempty"`
	WidgetType string         `json:"widgetType,omitempty"`
	Data       map[string]any `json:"data,omitempty"`

	Widget WidgetFetcher                                    `json:"-"`
	Fetch  func(ctx context.Context) (widget.Handle, error) `json:"-"`
}

const hubSubscriberBuffer = 64

// Hub fans dashboard events out to listeners and subscribers. Listeners
// run synchronously in Publish order; subscribers get a buffered channel
// and miss events when they fall behind.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
	listeners   map[int]func(Event)
	nextID      int
	outputs     map[string]PanelRequest
	closed      bool
	now         func() time.Time
}

// NewHub constructs an event hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[chan Event]struct{}),
		listeners:   make(map[int]func(Event)),
		outputs:     make(map[string]PanelRequest),
		now:         time.Now,
	}
}

// Publish notifies every listener and subscriber of event.
func (h *Hub) Publish(event Event) {
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = h.now()
	}
	ids := make([]int, 0, len(h.listeners))
	for id := range h.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, h.listeners[id])
	}
	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
	h.mu.RUnlock()

	for _, fn := range listeners {
		fn(event)
	}
}

// Listen registers fn for every future event and returns a function
// that removes it.
func (h *Hub) Listen(fn func(Event)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return func() {}
	}
	id := h.nextID
	h.nextID++
	h.listeners[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.listeners, id)
	}
}

// Subscribe returns a channel that receives future events and a cleanup func.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		empty := make(chan Event)
		close(empty)
		return empty, func() {}
	}
	ch := make(chan Event, hubSubscriberBuffer)
	h.subscribers[ch] = struct{}{}
	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
	}
	return ch, unsubscribe
}

// OpenPanel records req as the current content of its panel and
// broadcasts an EventOutputOpen.
func (h *Hub) OpenPanel(ctx context.Context, req PanelRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHubClosed
	}
	h.outputs[req.PanelID] = req
	h.mu.Unlock()

	ev := Event{
		Type:       EventOutputOpen,
		PanelID:    req.PanelID,
		Title:      req.Title,
		WidgetType: req.Type,
		Fetch:      req.Fetch,
	}
	h.Publish(ev)
	return nil
}

// Outputs returns the open output panels sorted by panel id.
func (h *Hub) Outputs() []PanelRequest {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]PanelRequest, 0, len(h.outputs))
	for _, req := range h.outputs {
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PanelID < out[j].PanelID })
	return out
}

// ClosePanel forgets an output panel and broadcasts EventPanelClose.
func (h *Hub) ClosePanel(panelID string) {
	h.mu.Lock()
	delete(h.outputs, panelID)
	h.mu.Unlock()
	h.Publish(Event{Type: EventPanelClose, PanelID: panelID})
}

// Close unsubscribes all listeners and prevents future publications.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subscribers {
		close(ch)
		delete(h.subscribers, ch)
	}
	h.listeners = make(map[int]func(Event))
}
