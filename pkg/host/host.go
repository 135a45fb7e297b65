// Package host declares the capabilities a dashboard shell supplies to
// panels. Components receive them explicitly; nothing here is global.
package host

import (
	"context"

	"github.com/odvcencio/panelsync/pkg/widget"
)

//go:generate mockgen -source=host.go -destination=mocks/mock_host.go -package=mocks

// WidgetFetcher resolves the top-level widget a panel displays.
type WidgetFetcher interface {
	FetchWidget(ctx context.Context) (widget.Widget, error)
}

// WidgetFetchFunc adapts a function to WidgetFetcher.
type WidgetFetchFunc func(ctx context.Context) (widget.Widget, error)

func (f WidgetFetchFunc) FetchWidget(ctx context.Context) (widget.Widget, error) {
	return f(ctx)
}

// ChangeSubscriber delivers change notifications for a remote object.
// The returned function unsubscribes and is safe to call more than once.
type ChangeSubscriber interface {
	Subscribe(ctx context.Context, h widget.Handle, callback func()) (func(), error)
}

// MutableTable is a writable remote table. WriteRow replaces the row
// stored under key.
type MutableTable interface {
	WriteRow(ctx context.Context, key int, value any) error
}

// TableOpener resolves a handle to a mutable table.
type TableOpener interface {
	MutableTable(ctx context.Context, h widget.Handle) (MutableTable, error)
}

// MessageSender sends a message to a widget, as the ui text input does
// on every edit.
type MessageSender interface {
	SendMessage(ctx context.Context, w widget.Widget, message string) error
}

// PanelOpener asks the shell to open a panel. Reusing a PanelID updates
// that panel in place.
type PanelOpener interface {
	OpenPanel(ctx context.Context, req PanelRequest) error
}

// PanelRequest describes an output panel to open or refresh.
type PanelRequest struct {
	PanelID string `json:"panelId"`
	Title   string `json:"title"`
	// Type is the declared type of the object Fetch resolves.
	Type  string                                           `json:"type"`
	Fetch func(ctx context.Context) (widget.Handle, error) `json:"-"`
}

// Capabilities bundles what an interactive panel needs from its host.
type Capabilities struct {
	Subscriber ChangeSubscriber
	Tables     TableOpener
	Panels     PanelOpener
	Messages   MessageSender
}
