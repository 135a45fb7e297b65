// Package manifest decodes the widget payload that describes an
// interactive query's inputs.
//
// The payload is base64(JSON({revision, inputs:[{name, type, props}]})).
// Inputs are positional: the i-th input owns exported object i+1 of the
// widget (object 0 is the revision source).
package manifest

import (
	"encoding/json"
	"strings"
)

// InputKind identifies the control an input renders as.
type InputKind string

const (
	KindSlider  InputKind = "slider"
	KindText    InputKind = "text"
	KindUnknown InputKind = "unknown"
)

// ParseInputKind maps a payload type string to an InputKind. The
// server-side library namespaces its kinds ("dh.slider"); both spellings
// are accepted.
func ParseInputKind(raw string) InputKind {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(raw), "dh.")) {
	case "slider":
		return KindSlider
	case "text":
		return KindText
	default:
		return KindUnknown
	}
}

// Manifest is one decoded payload. It is replaced wholesale on every
// refresh and never patched.
type Manifest struct {
	Revision int64
	Inputs   []InputSpec
}

// SliderProps configures a slider input.
type SliderProps struct {
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	DefaultValue float64 `json:"defaultValue"`
}

// TextProps configures a text input.
type TextProps struct {
	DefaultValue string `json:"defaultValue"`
}

// InputSpec declares one input. Exactly one of Slider or Text is set
// for known kinds; unknown kinds keep their raw props.
type InputSpec struct {
	Name string
	Kind InputKind
	// Type is the type string as it appeared in the payload.
	Type string

	Slider *SliderProps
	Text   *TextProps
	Raw    json.RawMessage
}

// DefaultValue is the value a freshly created control displays: a
// float64 for sliders, a string for text inputs, nil otherwise.
func (s InputSpec) DefaultValue() any {
	switch {
	case s.Slider != nil:
		return s.Slider.DefaultValue
	case s.Text != nil:
		return s.Text.DefaultValue
	default:
		return nil
	}
}

// Input looks up an input by name.
func (m *Manifest) Input(name string) (InputSpec, int, bool) {
	if m == nil {
		return InputSpec{}, -1, false
	}
	for i, in := range m.Inputs {
		if in.Name == name {
			return in, i, true
		}
	}
	return InputSpec{}, -1, false
}
