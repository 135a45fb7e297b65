package dashboard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/panelsync/pkg/clock"
	"github.com/odvcencio/panelsync/pkg/host"
	"github.com/odvcencio/panelsync/pkg/panel"
	"github.com/odvcencio/panelsync/pkg/remote"
	"github.com/odvcencio/panelsync/pkg/widget"
)

type harness struct {
	space    *remote.Space
	hub      *host.Hub
	registry *Registry
	plugin   *Plugin

	mu     sync.Mutex
	events []host.Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	space := remote.NewSpace()
	_, err := remote.InstallSampleQuery(space, "query")
	require.NoError(t, err)
	remote.InstallTextInput(space, "text", "hello")

	h := &harness{space: space, hub: host.NewHub(), registry: NewRegistry()}
	h.hub.Listen(func(e host.Event) {
		h.mu.Lock()
		h.events = append(h.events, e)
		h.mu.Unlock()
	})
	h.plugin = New(Options{
		DashboardID: "dash",
		Hub:         h.hub,
		Registry:    h.registry,
		Caps: host.Capabilities{
			Subscriber: space,
			Tables:     space,
			Panels:     h.hub,
			Messages:   space,
		},
		Clock: clock.Fake(time.Unix(0, 0)),
	})
	require.NoError(t, h.plugin.Start(context.Background()))
	t.Cleanup(func() {
		h.plugin.Stop()
		h.hub.Close()
	})
	return h
}

func (h *harness) open(id, ref, typ string) {
	h.hub.Publish(host.Event{
		Type:       host.EventPanelOpen,
		PanelID:    id,
		Title:      ref,
		WidgetType: typ,
		Data:       map[string]any{"source": "test"},
		Widget:     h.space.Widget(ref),
	})
}

func (h *harness) ofType(typ host.EventType) []host.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []host.Event
	for _, e := range h.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func waitReady(t *testing.T, pn panel.Panel) panel.View {
	t.Helper()
	require.Eventually(t, func() bool {
		return pn.Snapshot().State == panel.StateReady
	}, 2*time.Second, 5*time.Millisecond)
	return pn.Snapshot()
}

func TestPlugin_RegistersComponents(t *testing.T) {
	h := newHarness(t)
	assert.Len(t, h.registry.Registered(), len(Components))

	h.plugin.Stop()
	assert.Empty(t, h.registry.Registered())
	h.plugin.Stop()
}

func TestPlugin_StartNeedsHub(t *testing.T) {
	err := New(Options{}).Start(context.Background())
	require.Error(t, err)
}

func TestPlugin_OpensInteractiveQuery(t *testing.T) {
	h := newHarness(t)
	h.open("p1", "query", widget.TypeInteractiveQuery)

	pn, ok := h.plugin.Panel("p1")
	require.True(t, ok)
	v := waitReady(t, pn)
	assert.Equal(t, "query", v.Name)
	assert.Len(t, v.Inputs, 2)
	assert.Len(t, h.hub.Outputs(), 2)
}

func TestPlugin_AssignsIDWhenMissing(t *testing.T) {
	h := newHarness(t)
	h.open("", "query", widget.TypeInteractiveQuery)

	panels := h.plugin.Panels()
	require.Len(t, panels, 1)
	assert.NotEmpty(t, panels[0].ID())
	waitReady(t, panels[0])
}

func TestPlugin_ReopenReplacesPanel(t *testing.T) {
	h := newHarness(t)
	h.open("p1", "query", widget.TypeInteractiveQuery)
	first, _ := h.plugin.Panel("p1")
	waitReady(t, first)

	h.open("p1", "query", widget.TypeInteractiveQuery)
	second, _ := h.plugin.Panel("p1")
	assert.NotSame(t, first, second)
	assert.Equal(t, panel.StateUnmounted, first.Snapshot().State)
	waitReady(t, second)
	assert.Len(t, h.plugin.Panels(), 1)
}

func TestPlugin_TextInputMountsAndOpensLayout(t *testing.T) {
	h := newHarness(t)
	h.open("t1", "text", widget.TypeUITextInput)

	pn, ok := h.plugin.Panel("t1")
	require.True(t, ok)
	v := waitReady(t, pn)
	assert.Equal(t, "hello", v.Inputs[0].Value)

	layouts := h.ofType(host.EventLayoutOpen)
	require.Len(t, layouts, 1)
	assert.Equal(t, ComponentTextInput, layouts[0].Data["component"])
	assert.Equal(t, "t1", layouts[0].Data["id"])
}

func TestPlugin_UIPanelOpensLayoutOnly(t *testing.T) {
	h := newHarness(t)
	h.open("u1", "query", widget.TypeUIPanel)

	assert.Empty(t, h.plugin.Panels())
	layouts := h.ofType(host.EventLayoutOpen)
	require.Len(t, layouts, 1)
	data := layouts[0].Data
	assert.Equal(t, ComponentUIPanel, data["component"])
	assert.Equal(t, "dash", data["localDashboardId"])
	assert.Equal(t, "u1", data["id"])
	assert.Equal(t, "query", data["title"])
	assert.Equal(t, map[string]any{"source": "test"}, data["metadata"])
	assert.NotNil(t, layouts[0].Widget)
}

func TestPlugin_IgnoresOtherTypes(t *testing.T) {
	h := newHarness(t)
	h.open("x1", "query", "deephaven.plugin.Other")

	assert.Empty(t, h.plugin.Panels())
	assert.Empty(t, h.ofType(host.EventLayoutOpen))
}

func TestPlugin_CloseUnmounts(t *testing.T) {
	h := newHarness(t)
	h.open("p1", "query", widget.TypeInteractiveQuery)
	pn, _ := h.plugin.Panel("p1")
	waitReady(t, pn)

	h.hub.Publish(host.Event{Type: host.EventPanelClose, PanelID: "p1"})
	_, ok := h.plugin.Panel("p1")
	assert.False(t, ok)
	assert.Equal(t, panel.StateUnmounted, pn.Snapshot().State)
	assert.Zero(t, h.space.Subscribers("query/revision"))
}

func TestPlugin_StopUnmountsEverything(t *testing.T) {
	h := newHarness(t)
	h.open("p1", "query", widget.TypeInteractiveQuery)
	h.open("t1", "text", widget.TypeUITextInput)
	for _, pn := range h.plugin.Panels() {
		waitReady(t, pn)
	}
	panels := h.plugin.Panels()

	h.plugin.Stop()
	for _, pn := range panels {
		assert.Equal(t, panel.StateUnmounted, pn.Snapshot().State)
	}
	assert.Empty(t, h.plugin.Panels())

	h.open("p2", "query", widget.TypeInteractiveQuery)
	assert.Empty(t, h.plugin.Panels())
}
