package widget

import (
	"github.com/odvcencio/panelsync/pkg/errors"
	"github.com/odvcencio/panelsync/pkg/manifest"
)

// Slices is a widget's exported object list split by role.
type Slices struct {
	// Revision is the object whose changes mean the outputs are stale.
	Revision ExportedObject
	// Inputs holds one input table per manifest input, in manifest order.
	Inputs []ExportedObject
	// Outputs holds everything after the inputs, in declaration order.
	Outputs []ExportedObject
}

// Slice partitions objects by position: slot 0 is the revision source,
// the next len(m.Inputs) slots are input tables and the remainder are
// outputs. Having no outputs is valid; having fewer than len(m.Inputs)+1
// objects is a MANIFEST_MISMATCH error and nothing is returned.
//
// This is the only place the positional convention is encoded.
func Slice(m *manifest.Manifest, objects []ExportedObject) (*Slices, error) {
	if m == nil {
		return nil, errors.New(errors.ErrCodeManifestMismatch, "no manifest to slice against")
	}

	need := len(m.Inputs) + 1
	if len(objects) < need {
		return nil, errors.Newf(errors.ErrCodeManifestMismatch,
			"widget exports %d objects, manifest needs at least %d", len(objects), need).
			WithContext("inputs", len(m.Inputs)).
			WithContext("exported", len(objects))
	}

	s := &Slices{
		Revision: objects[0],
		Inputs:   make([]ExportedObject, len(m.Inputs)),
		Outputs:  make([]ExportedObject, len(objects)-need),
	}
	copy(s.Inputs, objects[1:need])
	copy(s.Outputs, objects[need:])
	return s, nil
}
