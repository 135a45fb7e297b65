package widget

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odvcencio/panelsync/pkg/errors"
	"github.com/odvcencio/panelsync/pkg/manifest"
)

type stubObject struct {
	id  int
	typ string
}

func (o stubObject) Type() string { return o.typ }

func (o stubObject) Fetch(context.Context) (Handle, error) {
	return nil, fmt.Errorf("stub %d is not fetchable", o.id)
}

func objects(n int) []ExportedObject {
	out := make([]ExportedObject, n)
	for i := range out {
		out[i] = stubObject{id: i, typ: "Table"}
	}
	return out
}

func manifestWith(n int) *manifest.Manifest {
	m := &manifest.Manifest{Revision: 1}
	for i := 0; i < n; i++ {
		m.Inputs = append(m.Inputs, manifest.InputSpec{Name: fmt.Sprintf("in%d", i), Kind: manifest.KindText})
	}
	return m
}

func ids(objs []ExportedObject) []int {
	out := make([]int, len(objs))
	for i, o := range objs {
		out[i] = o.(stubObject).id
	}
	return out
}

func TestSlice_Partitions(t *testing.T) {
	for n := 0; n <= 3; n++ {
		for m := n + 1; m <= n+4; m++ {
			t.Run(fmt.Sprintf("inputs=%d/objects=%d", n, m), func(t *testing.T) {
				s, err := Slice(manifestWith(n), objects(m))
				require.NoError(t, err)

				assert.Equal(t, 0, s.Revision.(stubObject).id)
				require.Len(t, s.Inputs, n)
				require.Len(t, s.Outputs, m-n-1)

				for i, id := range ids(s.Inputs) {
					assert.Equal(t, i+1, id, "inputs keep manifest order")
				}
				for i, id := range ids(s.Outputs) {
					assert.Equal(t, n+1+i, id, "outputs keep remaining order")
				}
			})
		}
	}
}

func TestSlice_ZeroOutputsIsValid(t *testing.T) {
	s, err := Slice(manifestWith(2), objects(3))
	require.NoError(t, err)
	assert.Empty(t, s.Outputs)
}

func TestSlice_Mismatch(t *testing.T) {
	for n := 0; n <= 3; n++ {
		for m := 0; m < n+1; m++ {
			s, err := Slice(manifestWith(n), objects(m))
			require.Error(t, err, "inputs=%d objects=%d", n, m)
			assert.Nil(t, s)
			assert.True(t, errors.IsCode(err, errors.ErrCodeManifestMismatch))
		}
	}
}

func TestSlice_NilManifest(t *testing.T) {
	_, err := Slice(nil, objects(2))
	assert.True(t, errors.IsCode(err, errors.ErrCodeManifestMismatch))
}

func TestSlice_DoesNotAliasInput(t *testing.T) {
	objs := objects(4)
	s, err := Slice(manifestWith(1), objs)
	require.NoError(t, err)

	objs[1] = stubObject{id: 99}
	objs[3] = stubObject{id: 99}
	assert.Equal(t, []int{1}, ids(s.Inputs))
	assert.Equal(t, []int{2, 3}, ids(s.Outputs))
}

func TestParseObjectKind(t *testing.T) {
	cases := map[string]ObjectKind{
		"Table":                 KindTable,
		"TableMap":              KindTableMap,
		"Figure":                KindFigure,
		TypeUITextInput:         KindTextInput,
		TypeInteractiveQuery:    KindWidget,
		TypeUIComponentNode:     KindWidget,
		"deephaven.unknown.Foo": KindUnknown,
	}
	for typ, want := range cases {
		assert.Equal(t, want, ParseObjectKind(typ), typ)
	}
	assert.Equal(t, KindUnknown, KindOf(nil))
	assert.Equal(t, "figure", KindFigure.String())
}
