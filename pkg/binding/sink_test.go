package binding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/odvcencio/panelsync/pkg/host/mocks"
	"github.com/odvcencio/panelsync/pkg/manifest"
	"github.com/odvcencio/panelsync/pkg/widget"
)

type fakeWidget struct{}

func (fakeWidget) Ref() string                              { return "w-text" }
func (fakeWidget) Type() string                             { return widget.TypeUITextInput }
func (fakeWidget) PayloadBase64() string                    { return "" }
func (fakeWidget) ExportedObjects() []widget.ExportedObject { return nil }

func TestMessageSink_SendsLatestText(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockMessageSender(ctrl)
	sender.EXPECT().SendMessage(gomock.Any(), fakeWidget{}, "hello").Return(nil).Times(1)

	fc := newFakeClock()
	spec := manifest.InputSpec{Name: "text", Kind: manifest.KindText, Text: &manifest.TextProps{}}
	b := New(context.Background(), spec, MessageSink{Sender: sender, Widget: fakeWidget{}}, Options{Clock: fc, Window: window})
	defer b.Close()

	b.SetValue("h")
	b.SetValue("hel")
	b.SetValue("hello")
	fc.Advance(window)
}

func TestMessageSink_FormatsNonStrings(t *testing.T) {
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockMessageSender(ctrl)
	sender.EXPECT().SendMessage(gomock.Any(), gomock.Any(), "42").Return(nil)

	require.NoError(t, MessageSink{Sender: sender, Widget: fakeWidget{}}.Write(context.Background(), 42))
}
