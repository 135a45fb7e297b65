package host

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/odvcencio/panelsync/pkg/bus"
	"github.com/odvcencio/panelsync/pkg/logging"
)

// SubjectPrefix roots every subject the bridge publishes on.
const SubjectPrefix = "panelsync.events"

// BusBridge forwards hub events to a MessageBus so out-of-process shells
// can observe the dashboard.
type BusBridge struct {
	hub         *Hub
	messageBus  bus.MessageBus
	logger      *slog.Logger
	eventCh     <-chan Event
	unsubscribe func()
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewBusBridge creates a bridge from hub to mb.
func NewBusBridge(hub *Hub, mb bus.MessageBus, logger *slog.Logger) *BusBridge {
	eventCh, unsub := hub.Subscribe()
	return &BusBridge{
		hub:         hub,
		messageBus:  mb,
		logger:      logging.OrDiscard(logger),
		eventCh:     eventCh,
		unsubscribe: unsub,
	}
}

// Start begins forwarding events.
func (b *BusBridge) Start(ctx context.Context) {
	ctx, b.cancel = context.WithCancel(ctx)
	b.wg.Add(1)
	go b.forwardLoop(ctx)
}

// Stop ceases forwarding and cleans up the hub subscription.
func (b *BusBridge) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	if b.unsubscribe != nil {
		b.unsubscribe()
	}
	b.wg.Wait()
}

func (b *BusBridge) forwardLoop(ctx context.Context) {
	defer b.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-b.eventCh:
			if !ok {
				return
			}
			b.publishEvent(ctx, event)
		}
	}
}

func (b *BusBridge) publishEvent(ctx context.Context, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Warn("encode event", "type", event.Type, "error", err)
		return
	}
	if err := b.messageBus.Publish(ctx, EventSubject(event), data); err != nil {
		b.logger.Debug("publish event", "type", event.Type, "error", err)
	}
}

// EventSubject is the bus subject an event is mirrored on:
// panelsync.events[.panel.<id>].<type>.
func EventSubject(event Event) string {
	base := SubjectPrefix
	if event.PanelID != "" {
		base += ".panel." + event.PanelID
	}
	return base + "." + string(event.Type)
}
