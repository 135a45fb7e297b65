package panel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/panelsync/pkg/errors"
	"github.com/odvcencio/panelsync/pkg/remote"
)

func TestTextInputPanel_SendsEditsAsMessages(t *testing.T) {
	f := newFixture(t)
	remote.InstallTextInput(f.space, "greeting", "hi")

	p := NewTextInputPanel(TextInputOptions{
		Name:     "greeting",
		Widget:   f.space.Widget("greeting"),
		Messages: f.space,
		Clock:    f.clock,
		Window:   writeWindow,
		Events:   f.hub,
	})
	require.NotEmpty(t, p.ID())
	require.NoError(t, p.Mount(context.Background()))

	v := p.Snapshot()
	require.Equal(t, StateReady, v.State)
	require.Len(t, v.Inputs, 1)
	assert.Equal(t, "hi", v.Inputs[0].Value)

	require.NoError(t, p.SetInput(TextInputValue, "hel"))
	require.NoError(t, p.SetInput(TextInputValue, "hello"))
	f.clock.Advance(writeWindow)
	assert.Equal(t, []string{"hello"}, f.space.Messages("greeting"))

	assert.True(t, errors.IsCode(p.SetInput("other", "x"), errors.ErrCodeNotFound))
	assert.True(t, errors.IsCode(p.SetInput(TextInputValue, 3), errors.ErrCodeInvalidInput))

	require.NoError(t, p.Unmount())
	assert.Equal(t, StateUnmounted, p.Snapshot().State)
	require.NoError(t, p.Unmount())
}

func TestTextInputPanel_MissingWidget(t *testing.T) {
	f := newFixture(t)
	p := NewTextInputPanel(TextInputOptions{
		Widget:   f.space.Widget("missing"),
		Messages: f.space,
		Clock:    f.clock,
	})
	err := p.Mount(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeFetch))
	assert.Equal(t, StateError, p.Snapshot().State)
}

func TestInitialText(t *testing.T) {
	assert.Equal(t, "hi", initialText("aGk="))
	assert.Empty(t, initialText("%%%"))
}
