package remote

import (
	"context"

	"github.com/odvcencio/panelsync/pkg/widget"
)

// Handle is a resolved remote object.
type Handle struct {
	ID         string            `json:"ref"`
	ObjectKind widget.ObjectKind `json:"-"`
}

func (h Handle) Ref() string             { return h.ID }
func (h Handle) Kind() widget.ObjectKind { return h.ObjectKind }

type fetchFunc func(ctx context.Context, ref string) (widget.Handle, error)

type exportedObject struct {
	export Export
	fetch  fetchFunc
}

func (o exportedObject) Type() string { return o.export.Type }

func (o exportedObject) Fetch(ctx context.Context) (widget.Handle, error) {
	return o.fetch(ctx, o.export.Ref)
}

type remoteWidget struct {
	ref     string
	typ     string
	payload string
	objects []widget.ExportedObject
}

func newWidget(ref, typ, payload string, exports []Export, fetch fetchFunc) *remoteWidget {
	objects := make([]widget.ExportedObject, len(exports))
	for i, e := range exports {
		objects[i] = exportedObject{export: e, fetch: fetch}
	}
	return &remoteWidget{ref: ref, typ: typ, payload: payload, objects: objects}
}

func (w *remoteWidget) Ref() string                              { return w.ref }
func (w *remoteWidget) Type() string                             { return w.typ }
func (w *remoteWidget) PayloadBase64() string                    { return w.payload }
func (w *remoteWidget) ExportedObjects() []widget.ExportedObject { return w.objects }
