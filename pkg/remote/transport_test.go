package remote

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/panelsync/pkg/bus"
	"github.com/odvcencio/panelsync/pkg/errors"
	"github.com/odvcencio/panelsync/pkg/host"
	"github.com/odvcencio/panelsync/pkg/widget"
)

func startTransport(t *testing.T) (*Space, *Client, bus.MessageBus) {
	t.Helper()
	mb := bus.NewMemoryBus()
	t.Cleanup(func() { mb.Close() })

	space := NewSpace()
	srv := NewServer(space, mb, nil)
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(srv.Stop)

	return space, NewClient(mb, time.Second, nil), mb
}

func TestClient_FetchWriteSubscribe(t *testing.T) {
	space, client, _ := startTransport(t)
	space.CreateTable("rev", "Table")
	space.CreateTable("in", "Table")
	space.PutWidget("w", widget.TypeInteractiveQuery, "payload", []Export{
		{Ref: "rev", Type: "Table"},
		{Ref: "in", Type: "Table"},
	})

	ctx := context.Background()
	w, err := client.Widget("w").FetchWidget(ctx)
	require.NoError(t, err)
	assert.Equal(t, "payload", w.PayloadBase64())
	require.Len(t, w.ExportedObjects(), 2)

	rev, err := w.ExportedObjects()[0].Fetch(ctx)
	require.NoError(t, err)
	changed := make(chan struct{}, 4)
	unsubscribe, err := client.Subscribe(ctx, rev, func() { changed <- struct{}{} })
	require.NoError(t, err)
	defer unsubscribe()

	in, err := w.ExportedObjects()[1].Fetch(ctx)
	require.NoError(t, err)
	table, err := client.MutableTable(ctx, in)
	require.NoError(t, err)
	require.NoError(t, table.WriteRow(ctx, 0, 4.0))

	v, ok := space.Row("in", 0)
	require.True(t, ok)
	assert.Equal(t, 4.0, v)

	require.NoError(t, space.Write("rev", 0, 1))
	select {
	case <-changed:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for change notice")
	}
}

func TestClient_ErrorsCarryCodes(t *testing.T) {
	_, client, _ := startTransport(t)

	_, err := client.Widget("missing").FetchWidget(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))

	table, _ := client.MutableTable(context.Background(), Handle{ID: "missing"})
	err = table.WriteRow(context.Background(), 0, 1)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
}

func TestClient_SendMessage(t *testing.T) {
	space, client, _ := startTransport(t)
	InstallTextInput(space, "text", "")

	ctx := context.Background()
	w, err := client.Widget("text").FetchWidget(ctx)
	require.NoError(t, err)
	require.NoError(t, client.SendMessage(ctx, w, "typed"))
	assert.Equal(t, []string{"typed"}, space.Messages("text"))
}

func TestClient_ListenShell(t *testing.T) {
	space, client, mb := startTransport(t)
	InstallTextInput(space, "text", "")

	hub := host.NewHub()
	defer hub.Close()
	events := make(chan host.Event, 2)
	hub.Listen(func(e host.Event) { events <- e })

	stop, err := client.ListenShell(context.Background(), hub)
	require.NoError(t, err)
	defer stop()

	data, _ := json.Marshal(ShellOpen{PanelID: "p1", Ref: "text", Title: "Text"})
	require.NoError(t, mb.Publish(context.Background(), SubjectShellOpen, data))

	select {
	case e := <-events:
		assert.Equal(t, host.EventPanelOpen, e.Type)
		assert.Equal(t, "p1", e.PanelID)
		assert.Equal(t, widget.TypeUITextInput, e.WidgetType, "type is looked up when the shell omits it")
		require.NotNil(t, e.Widget)
		w, err := e.Widget.FetchWidget(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "text", w.Ref())
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for panel open")
	}

	data, _ = json.Marshal(ShellClose{PanelID: "p1"})
	require.NoError(t, mb.Publish(context.Background(), SubjectShellClose, data))
	select {
	case e := <-events:
		assert.Equal(t, host.EventPanelClose, e.Type)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for panel close")
	}
}
