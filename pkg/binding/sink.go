package binding

import (
	"context"
	"fmt"

	"github.com/odvcencio/panelsync/pkg/host"
	"github.com/odvcencio/panelsync/pkg/widget"
)

// RowKey is the key of the single row an input table holds.
const RowKey = 0

// Sink receives the values a binding writes.
type Sink interface {
	Write(ctx context.Context, value any) error
}

// TableSink replaces the row keyed RowKey of a mutable input table, so
// writing a value twice leaves the same state as writing it once.
type TableSink struct {
	Table host.MutableTable
}

func (s TableSink) Write(ctx context.Context, value any) error {
	return s.Table.WriteRow(ctx, RowKey, value)
}

// MessageSink sends each value to a widget as a message, the way the ui
// text input reports edits.
type MessageSink struct {
	Sender host.MessageSender
	Widget widget.Widget
}

func (s MessageSink) Write(ctx context.Context, value any) error {
	msg, ok := value.(string)
	if !ok {
		msg = fmt.Sprint(value)
	}
	return s.Sender.SendMessage(ctx, s.Widget, msg)
}
