// Package widget models the remote widget object a panel renders and
// owns the positional convention that assigns roles to its exported
// objects.
package widget

import (
	"context"
	"strings"
)

// Widget types the dashboard plugins recognise.
const (
	TypeInteractiveQuery = "deephaven.plugin.interactive.InteractiveQuery"
	TypeUIPanel          = "deephaven.ui.Panel"
	TypeUITextInput      = "deephaven.ui.TextInput"
	TypeUIComponentNode  = "deephaven.ui.component.ComponentNode"
)

// Handle is a resolved remote object. Ref is stable for the lifetime of
// the remote object and is what host capabilities key on.
type Handle interface {
	Ref() string
	Kind() ObjectKind
}

// ExportedObject is a lazily resolvable entry of a widget's exported
// object list.
type ExportedObject interface {
	Type() string
	Fetch(ctx context.Context) (Handle, error)
}

// Widget is the top-level remote object: an opaque payload plus an
// ordered list of exported objects.
type Widget interface {
	Ref() string
	Type() string
	PayloadBase64() string
	ExportedObjects() []ExportedObject
}

// ObjectKind replaces probing a fetched object for methods: the kind is
// derived once from the declared type string.
type ObjectKind int

const (
	KindUnknown ObjectKind = iota
	KindTable
	KindTableMap
	KindFigure
	KindWidget
	KindTextInput
)

func (k ObjectKind) String() string {
	switch k {
	case KindTable:
		return "table"
	case KindTableMap:
		return "table_map"
	case KindFigure:
		return "figure"
	case KindWidget:
		return "widget"
	case KindTextInput:
		return "text_input"
	default:
		return "unknown"
	}
}

// ParseObjectKind maps a declared exported-object type to its kind.
func ParseObjectKind(typ string) ObjectKind {
	switch strings.TrimSpace(typ) {
	case "Table", "PartitionedTable", "TreeTable", "HierarchicalTable":
		return KindTable
	case "TableMap":
		return KindTableMap
	case "Figure":
		return KindFigure
	case TypeUITextInput:
		return KindTextInput
	case TypeInteractiveQuery, TypeUIPanel, TypeUIComponentNode:
		return KindWidget
	default:
		return KindUnknown
	}
}

// KindOf returns the kind of an exported object.
func KindOf(obj ExportedObject) ObjectKind {
	if obj == nil {
		return KindUnknown
	}
	return ParseObjectKind(obj.Type())
}
