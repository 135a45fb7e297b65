package manifest

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pserrors "github.com/odvcencio/panelsync/pkg/errors"
)

func payload(json string) string {
	return base64.StdEncoding.EncodeToString([]byte(json))
}

func TestDecode_Slider(t *testing.T) {
	m, err := Decode(payload(`{"revision":3,"inputs":[{"name":"x","type":"slider","props":{"min":0,"max":10,"defaultValue":5}}]}`))
	require.NoError(t, err)

	assert.Equal(t, int64(3), m.Revision)
	require.Len(t, m.Inputs, 1)

	in := m.Inputs[0]
	assert.Equal(t, "x", in.Name)
	assert.Equal(t, KindSlider, in.Kind)
	require.NotNil(t, in.Slider)
	assert.Equal(t, SliderProps{Min: 0, Max: 10, DefaultValue: 5}, *in.Slider)
	assert.Nil(t, in.Text)
	assert.Equal(t, float64(5), in.DefaultValue())
}

func TestDecode_NamespacedKinds(t *testing.T) {
	m, err := Decode(payload(`{"revision":1,"inputs":[
		{"name":"a","type":"dh.slider","props":{"min":-100,"max":100,"defaultValue":0}},
		{"name":"b","type":"dh.text","props":{"defaultValue":"hello"}}
	]}`))
	require.NoError(t, err)
	require.Len(t, m.Inputs, 2)

	assert.Equal(t, KindSlider, m.Inputs[0].Kind)
	assert.Equal(t, "dh.slider", m.Inputs[0].Type)
	assert.Equal(t, KindText, m.Inputs[1].Kind)
	assert.Equal(t, "hello", m.Inputs[1].DefaultValue())
}

func TestDecode_EmptyInputs(t *testing.T) {
	m, err := Decode(payload(`{"revision":0,"inputs":[]}`))
	require.NoError(t, err)
	assert.Empty(t, m.Inputs)
}

func TestDecode_UnknownKindKeepsSlot(t *testing.T) {
	m, err := Decode(payload(`{"revision":2,"inputs":[{"name":"when","type":"dh.datepicker","props":{"format":"iso"}}]}`))
	require.NoError(t, err)
	require.Len(t, m.Inputs, 1)

	in := m.Inputs[0]
	assert.Equal(t, KindUnknown, in.Kind)
	assert.JSONEq(t, `{"format":"iso"}`, string(in.Raw))
	assert.Nil(t, in.DefaultValue())
}

func TestDecode_MissingPropsUsesZeroDefaults(t *testing.T) {
	m, err := Decode(payload(`{"revision":1,"inputs":[{"name":"q","type":"text"}]}`))
	require.NoError(t, err)
	require.NotNil(t, m.Inputs[0].Text)
	assert.Equal(t, "", m.Inputs[0].DefaultValue())
}

func TestDecode_ToleratesSurroundingWhitespace(t *testing.T) {
	_, err := Decode("  " + payload(`{"revision":1,"inputs":[]}`) + "\n")
	require.NoError(t, err)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not base64", "%%%not-base64%%%"},
		{"not json", payload(`{"revision":`)},
		{"missing inputs", payload(`{"revision":1}`)},
		{"null inputs", payload(`{"revision":1,"inputs":null}`)},
		{"unnamed input", payload(`{"revision":1,"inputs":[{"type":"slider"}]}`)},
		{"duplicate names", payload(`{"revision":1,"inputs":[{"name":"x","type":"text"},{"name":"x","type":"slider"}]}`)},
		{"bad slider props", payload(`{"revision":1,"inputs":[{"name":"x","type":"slider","props":{"min":"low"}}]}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Decode(tt.payload)
			require.Error(t, err)
			assert.Nil(t, m)
			assert.True(t, pserrors.IsCode(err, pserrors.ErrCodeDecode), "got %v", err)
		})
	}
}

func TestEncode_DecodesBack(t *testing.T) {
	in := &Manifest{
		Revision: 9,
		Inputs: []InputSpec{
			{Name: "x", Kind: KindSlider, Slider: &SliderProps{Min: 1, Max: 2, DefaultValue: 1.5}},
			{Name: "label", Kind: KindText, Type: "dh.text", Text: &TextProps{DefaultValue: "hi"}},
		},
	}

	encoded, err := Encode(in)
	require.NoError(t, err)

	out, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, int64(9), out.Revision)
	assert.Equal(t, "slider", out.Inputs[0].Type)
	assert.Equal(t, *in.Inputs[0].Slider, *out.Inputs[0].Slider)
	assert.Equal(t, "dh.text", out.Inputs[1].Type)
}

func TestManifest_Input(t *testing.T) {
	m := &Manifest{Inputs: []InputSpec{{Name: "a"}, {Name: "b"}}}

	spec, idx, ok := m.Input("b")
	require.True(t, ok)
	assert.Equal(t, "b", spec.Name)
	assert.Equal(t, 1, idx)

	_, _, ok = m.Input("missing")
	assert.False(t, ok)

	var nilManifest *Manifest
	_, _, ok = nilManifest.Input("a")
	assert.False(t, ok)
}

func TestParseInputKind(t *testing.T) {
	assert.Equal(t, KindSlider, ParseInputKind("dh.slider"))
	assert.Equal(t, KindSlider, ParseInputKind("Slider"))
	assert.Equal(t, KindText, ParseInputKind(" text "))
	assert.Equal(t, KindUnknown, ParseInputKind("dh.checkbox"))
	assert.Equal(t, KindUnknown, ParseInputKind(""))
}
