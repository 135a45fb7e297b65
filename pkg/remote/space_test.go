package remote

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/panelsync/pkg/errors"
	"github.com/odvcencio/panelsync/pkg/manifest"
	"github.com/odvcencio/panelsync/pkg/widget"
)

func TestSpace_WriteReplacesRowAndNotifies(t *testing.T) {
	s := NewSpace()
	s.CreateTable("t", "")

	changes := 0
	cancel, err := s.Watch("t", func() { changes++ })
	require.NoError(t, err)

	require.NoError(t, s.Write("t", 0, 1.0))
	require.NoError(t, s.Write("t", 0, 2.0))

	v, ok := s.Row("t", 0)
	require.True(t, ok)
	assert.Equal(t, 2.0, v)
	assert.Equal(t, 2, changes)

	cancel()
	cancel()
	assert.Zero(t, s.Subscribers("t"))
	require.NoError(t, s.Write("t", 0, 3.0))
	assert.Equal(t, 2, changes)
}

func TestSpace_UnknownObjects(t *testing.T) {
	s := NewSpace()
	assert.True(t, errors.IsCode(s.Write("missing", 0, 1), errors.ErrCodeNotFound))
	assert.True(t, errors.IsCode(s.Send("missing", "hi"), errors.ErrCodeNotFound))
	_, err := s.Watch("missing", func() {})
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
	_, err = s.Widget("missing").FetchWidget(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
}

func TestSpace_CapabilitiesOverWidget(t *testing.T) {
	s := NewSpace()
	s.CreateTable("rev", "Table")
	s.CreateTable("out", "Figure")
	s.PutWidget("w", widget.TypeInteractiveQuery, "e30=", []Export{
		{Ref: "rev", Type: "Table"},
		{Ref: "out", Type: "Figure"},
	})

	ctx := context.Background()
	w, err := s.Widget("w").FetchWidget(ctx)
	require.NoError(t, err)
	assert.Equal(t, "w", w.Ref())
	assert.Equal(t, widget.TypeInteractiveQuery, w.Type())
	require.Len(t, w.ExportedObjects(), 2)

	h, err := w.ExportedObjects()[1].Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "out", h.Ref())
	assert.Equal(t, widget.KindFigure, h.Kind())

	table, err := s.MutableTable(ctx, h)
	require.NoError(t, err)
	require.NoError(t, table.WriteRow(ctx, 0, "v"))
	v, _ := s.Row("out", 0)
	assert.Equal(t, "v", v)

	require.NoError(t, s.SendMessage(ctx, w, "hello"))
	assert.Equal(t, []string{"hello"}, s.Messages("w"))
}

func TestSampleQuery_WriteBumpsRevision(t *testing.T) {
	s := NewSpace()
	q, err := InstallSampleQuery(s, "query")
	require.NoError(t, err)
	assert.Zero(t, q.Revision())

	revChanges := 0
	_, err = s.Watch("query/revision", func() { revChanges++ })
	require.NoError(t, err)

	require.NoError(t, s.Write("query/input/x", 0, 3.0))

	assert.EqualValues(t, 1, q.Revision())
	assert.Equal(t, 1, revChanges)
	out, _ := s.Row("query/output/0", 0)
	assert.Equal(t, map[string]any{"x": 3.0, "square": 9.0}, out)

	w, err := s.Widget("query").FetchWidget(context.Background())
	require.NoError(t, err)
	m, err := manifest.Decode(w.PayloadBase64())
	require.NoError(t, err)
	assert.EqualValues(t, 1, m.Revision)
	require.Len(t, m.Inputs, 2)
	assert.Len(t, w.ExportedObjects(), 1+2+2)
}

func TestInstallTextInput(t *testing.T) {
	s := NewSpace()
	InstallTextInput(s, "greeting", "hi")
	typ, payload, exports, err := s.Describe("greeting")
	require.NoError(t, err)
	assert.Equal(t, widget.TypeUITextInput, typ)
	assert.Equal(t, "aGk=", payload)
	assert.Empty(t, exports)
}
