package remote

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/odvcencio/panelsync/pkg/bus"
	"github.com/odvcencio/panelsync/pkg/errors"
	"github.com/odvcencio/panelsync/pkg/host"
	"github.com/odvcencio/panelsync/pkg/logging"
	"github.com/odvcencio/panelsync/pkg/widget"
)

// Client implements the host capabilities against a Server.
type Client struct {
	mb      bus.MessageBus
	timeout time.Duration
	logger  *slog.Logger
}

// NewClient creates a client. A zero timeout uses the bus default.
func NewClient(mb bus.MessageBus, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{mb: mb, timeout: timeout, logger: logging.OrDiscard(logger)}
}

func (c *Client) call(ctx context.Context, subject string, req, resp any) error {
	data, err := json.Marshal(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "encode request")
	}
	raw, err := c.mb.Request(ctx, subject, data, c.timeout)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeFetch, "request "+subject).WithRetryable(true)
	}
	return decodeReply(raw, resp)
}

// Widget returns a fetcher for the widget ref.
func (c *Client) Widget(ref string) host.WidgetFetcher {
	return host.WidgetFetchFunc(func(ctx context.Context) (widget.Widget, error) {
		var resp describeResponse
		if err := c.call(ctx, SubjectDescribe, refRequest{Ref: ref}, &resp); err != nil {
			return nil, err
		}
		return newWidget(ref, resp.Type, resp.Payload, resp.Exports, c.fetch), nil
	})
}

func (c *Client) fetch(ctx context.Context, ref string) (widget.Handle, error) {
	var resp fetchResponse
	if err := c.call(ctx, SubjectFetch, refRequest{Ref: ref}, &resp); err != nil {
		return nil, err
	}
	return Handle{ID: resp.Ref, ObjectKind: widget.ParseObjectKind(resp.Type)}, nil
}

// Subscribe implements host.ChangeSubscriber. The handle must have been
// fetched through this client so the server is watching it.
func (c *Client) Subscribe(ctx context.Context, h widget.Handle, callback func()) (func(), error) {
	sub, err := c.mb.Subscribe(context.WithoutCancel(ctx), changedSubject(h.Ref()), func(*bus.Message) []byte {
		callback()
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFetch, "subscribe to changes").WithContext("ref", h.Ref())
	}
	var once sync.Once
	return func() {
		once.Do(func() { _ = sub.Unsubscribe() })
	}, nil
}

// MutableTable implements host.TableOpener.
func (c *Client) MutableTable(ctx context.Context, h widget.Handle) (host.MutableTable, error) {
	return clientTable{client: c, ref: h.Ref()}, nil
}

// SendMessage implements host.MessageSender.
func (c *Client) SendMessage(ctx context.Context, w widget.Widget, message string) error {
	return c.call(ctx, SubjectMessage, messageRequest{Ref: w.Ref(), Message: message}, nil)
}

type clientTable struct {
	client *Client
	ref    string
}

func (t clientTable) WriteRow(ctx context.Context, key int, value any) error {
	return t.client.call(ctx, SubjectWrite, writeRequest{Ref: t.ref, Key: key, Value: value}, nil)
}

// ListenShell turns shell open and close requests on the bus into hub
// events. The returned function stops listening.
func (c *Client) ListenShell(ctx context.Context, hub *host.Hub) (func(), error) {
	openSub, err := c.mb.Subscribe(ctx, SubjectShellOpen, func(msg *bus.Message) []byte {
		var req ShellOpen
		if err := json.Unmarshal(msg.Data, &req); err != nil || req.Ref == "" {
			c.logger.Warn("ignoring malformed shell open", "error", err)
			return nil
		}
		if req.Type == "" {
			var desc describeResponse
			if err := c.call(ctx, SubjectDescribe, refRequest{Ref: req.Ref}, &desc); err != nil {
				c.logger.Warn("describe widget for shell open", "ref", req.Ref, "error", err)
				return nil
			}
			req.Type = desc.Type
		}
		hub.Publish(host.Event{
			Type:       host.EventPanelOpen,
			PanelID:    req.PanelID,
			Title:      req.Title,
			WidgetType: req.Type,
			Data:       req.Meta,
			Widget:     c.Widget(req.Ref),
		})
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "subscribe shell open")
	}
	closeSub, err := c.mb.Subscribe(ctx, SubjectShellClose, func(msg *bus.Message) []byte {
		var req ShellClose
		if err := json.Unmarshal(msg.Data, &req); err != nil || req.PanelID == "" {
			c.logger.Warn("ignoring malformed shell close", "error", err)
			return nil
		}
		hub.Publish(host.Event{Type: host.EventPanelClose, PanelID: req.PanelID})
		return nil
	})
	if err != nil {
		_ = openSub.Unsubscribe()
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "subscribe shell close")
	}
	return func() {
		_ = openSub.Unsubscribe()
		_ = closeSub.Unsubscribe()
	}, nil
}
