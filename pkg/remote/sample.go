package remote

import (
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"github.com/odvcencio/panelsync/pkg/manifest"
	"github.com/odvcencio/panelsync/pkg/widget"
)

// SampleQuery is an interactive query living in a Space. Writing either
// input recomputes both outputs and bumps the revision.
type SampleQuery struct {
	space *Space
	ref   string

	mu       sync.Mutex
	manifest *manifest.Manifest
	values   map[string]any
}

// InstallSampleQuery registers a query widget ref with a slider "x" and
// a text input "label", and a Table and Figure output.
func InstallSampleQuery(space *Space, ref string) (*SampleQuery, error) {
	q := &SampleQuery{
		space: space,
		ref:   ref,
		manifest: &manifest.Manifest{
			Inputs: []manifest.InputSpec{
				{
					Name:   "x",
					Kind:   manifest.KindSlider,
					Type:   "dh.slider",
					Slider: &manifest.SliderProps{Min: 0, Max: 100, DefaultValue: 50},
				},
				{
					Name: "label",
					Kind: manifest.KindText,
					Type: "dh.text",
					Text: &manifest.TextProps{DefaultValue: "series"},
				},
			},
		},
		values: map[string]any{"x": 50.0, "label": "series"},
	}

	space.CreateTable(q.revisionRef(), "Table")
	for _, in := range q.manifest.Inputs {
		space.CreateTable(q.inputRef(in.Name), "Table")
	}
	space.CreateTable(q.outputRef(0), "Table")
	space.CreateTable(q.outputRef(1), "Figure")

	space.OnWrite(q.onWrite)
	if err := q.publish(); err != nil {
		return nil, err
	}
	q.recompute()
	return q, nil
}

// Ref is the widget ref.
func (q *SampleQuery) Ref() string { return q.ref }

// Revision is the current manifest revision.
func (q *SampleQuery) Revision() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.manifest.Revision
}

func (q *SampleQuery) revisionRef() string         { return q.ref + "/revision" }
func (q *SampleQuery) inputRef(name string) string { return q.ref + "/input/" + name }
func (q *SampleQuery) outputRef(i int) string      { return fmt.Sprintf("%s/output/%d", q.ref, i) }

func (q *SampleQuery) exports() []Export {
	out := []Export{{Ref: q.revisionRef(), Type: "Table"}}
	for _, in := range q.manifest.Inputs {
		out = append(out, Export{Ref: q.inputRef(in.Name), Type: "Table"})
	}
	return append(out,
		Export{Ref: q.outputRef(0), Type: "Table"},
		Export{Ref: q.outputRef(1), Type: "Figure"},
	)
}

func (q *SampleQuery) publish() error {
	q.mu.Lock()
	payload, err := manifest.Encode(q.manifest)
	exports := q.exports()
	q.mu.Unlock()
	if err != nil {
		return err
	}
	q.space.PutWidget(q.ref, widget.TypeInteractiveQuery, payload, exports)
	return nil
}

func (q *SampleQuery) onWrite(ref string, key int, value any) {
	name, ok := strings.CutPrefix(ref, q.ref+"/input/")
	if !ok {
		return
	}
	q.mu.Lock()
	q.values[name] = value
	q.manifest.Revision++
	rev := q.manifest.Revision
	q.mu.Unlock()

	q.recompute()
	_ = q.publish()
	_ = q.space.Write(q.revisionRef(), 0, rev)
}

func (q *SampleQuery) recompute() {
	q.mu.Lock()
	x, _ := q.values["x"].(float64)
	label, _ := q.values["label"].(string)
	q.mu.Unlock()

	_ = q.space.Write(q.outputRef(0), 0, map[string]any{"x": x, "square": x * x})
	_ = q.space.Write(q.outputRef(1), 0, map[string]any{"series": label, "points": []float64{0, x, 2 * x}})
}

// InstallTextInput registers a ui text input widget whose initial text
// is text.
func InstallTextInput(space *Space, ref, text string) {
	space.PutWidget(ref, widget.TypeUITextInput, base64.StdEncoding.EncodeToString([]byte(text)), nil)
}
