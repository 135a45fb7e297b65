package panel

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/odvcencio/panelsync/pkg/errors"
	"github.com/odvcencio/panelsync/pkg/manifest"
)

// State is what a panel's view currently shows.
type State string

const (
	StateLoading   State = "loading"
	StateReady     State = "ready"
	StateError     State = "error"
	StateUnmounted State = "unmounted"
)

// View is a point-in-time rendering model of a panel. When State is
// StateError, Error replaces the normal content.
type View struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Type          string       `json:"type"`
	State         State        `json:"state"`
	Error         string       `json:"error,omitempty"`
	Revision      int64        `json:"revision"`
	Refreshes     int64        `json:"refreshes"`
	Notifications int64        `json:"notifications"`
	Inputs        []InputView  `json:"inputs,omitempty"`
	Outputs       []OutputView `json:"outputs,omitempty"`
}

// InputView is one rendered control.
type InputView struct {
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	Value   any      `json:"value"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Pending bool     `json:"pending"`
	Writes  int64    `json:"writes"`
}

// OutputView is one output panel.
type OutputView struct {
	Index   int    `json:"index"`
	PanelID string `json:"panelId"`
	Title   string `json:"title"`
	Type    string `json:"type"`
}

// Panel is a mounted dashboard panel.
type Panel interface {
	ID() string
	Snapshot() View
	SetInput(name string, value any) error
	Unmount() error
}

func display(err error) string {
	if se, ok := errors.As(err); ok {
		return se.Display()
	}
	return err.Error()
}

// coerce converts an edit to the value type of spec's control.
func coerce(spec manifest.InputSpec, value any) (any, error) {
	switch spec.Kind {
	case manifest.KindSlider:
		f, ok := toFloat(value)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, errors.Newf(errors.ErrCodeInvalidInput, "slider %s needs a number, got %v", spec.Name, value)
		}
		if p := spec.Slider; p != nil && p.Max > p.Min && (f < p.Min || f > p.Max) {
			return nil, errors.Newf(errors.ErrCodeInvalidInput, "slider %s value %v outside [%v, %v]", spec.Name, f, p.Min, p.Max)
		}
		return f, nil
	case manifest.KindText:
		s, ok := value.(string)
		if !ok {
			return nil, errors.Newf(errors.ErrCodeInvalidInput, "text input %s needs a string, got %T", spec.Name, value)
		}
		return s, nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidInput, "input %s has no control", spec.Name)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
