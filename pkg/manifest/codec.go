package manifest

import (
	"bytes"
	"encoding/base64"
	"encoding/json"

	pserrors "github.com/odvcencio/panelsync/pkg/errors"
)

type wireManifest struct {
	Revision int64        `json:"revision"`
	Inputs   *[]wireInput `json:"inputs"`
}

type wireInput struct {
	Name  string          `json:"name"`
	Type  string          `json:"type"`
	Props json.RawMessage `json:"props,omitempty"`
}

// Decode parses a base64 payload into a Manifest. Any malformed payload
// yields an error with code DECODE; nothing partial is returned.
func Decode(payload string) (*Manifest, error) {
	raw, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace([]byte(payload))))
	if err != nil {
		return nil, decodeError(err, "payload is not valid base64")
	}

	var wire wireManifest
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, decodeError(err, "payload is not valid JSON")
	}
	if wire.Inputs == nil {
		return nil, decodeError(nil, "payload has no inputs field")
	}

	m := &Manifest{
		Revision: wire.Revision,
		Inputs:   make([]InputSpec, 0, len(*wire.Inputs)),
	}
	seen := make(map[string]struct{}, len(*wire.Inputs))
	for i, in := range *wire.Inputs {
		if in.Name == "" {
			return nil, decodeError(nil, "input has no name").WithContext("index", i)
		}
		if _, dup := seen[in.Name]; dup {
			return nil, decodeError(nil, "duplicate input name").WithContext("input", in.Name)
		}
		seen[in.Name] = struct{}{}

		spec, err := decodeInput(in)
		if err != nil {
			return nil, decodeError(err, "input props are malformed").WithContext("input", in.Name)
		}
		m.Inputs = append(m.Inputs, spec)
	}
	return m, nil
}

func decodeInput(in wireInput) (InputSpec, error) {
	spec := InputSpec{
		Name: in.Name,
		Kind: ParseInputKind(in.Type),
		Type: in.Type,
	}
	props := in.Props
	if len(props) == 0 || bytes.Equal(props, []byte("null")) {
		props = []byte("{}")
	}

	switch spec.Kind {
	case KindSlider:
		spec.Slider = &SliderProps{}
		if err := json.Unmarshal(props, spec.Slider); err != nil {
			return InputSpec{}, err
		}
	case KindText:
		spec.Text = &TextProps{}
		if err := json.Unmarshal(props, spec.Text); err != nil {
			return InputSpec{}, err
		}
	default:
		spec.Raw = append(json.RawMessage(nil), in.Props...)
	}
	return spec, nil
}

func decodeError(err error, message string) *pserrors.Error {
	if err == nil {
		return pserrors.New(pserrors.ErrCodeDecode, message)
	}
	return pserrors.Wrap(err, pserrors.ErrCodeDecode, message)
}

// Encode produces the payload Decode accepts. Input types are written
// as they were decoded, or as the bare kind for specs built in code.
func Encode(m *Manifest) (string, error) {
	inputs := make([]wireInput, 0, len(m.Inputs))
	for _, spec := range m.Inputs {
		in := wireInput{Name: spec.Name, Type: spec.Type}
		if in.Type == "" {
			in.Type = string(spec.Kind)
		}

		var err error
		switch {
		case spec.Slider != nil:
			in.Props, err = json.Marshal(spec.Slider)
		case spec.Text != nil:
			in.Props, err = json.Marshal(spec.Text)
		default:
			in.Props = spec.Raw
		}
		if err != nil {
			return "", pserrors.Wrap(err, pserrors.ErrCodeInternal, "encode input props").WithContext("input", spec.Name)
		}
		inputs = append(inputs, in)
	}

	data, err := json.Marshal(wireManifest{Revision: m.Revision, Inputs: &inputs})
	if err != nil {
		return "", pserrors.Wrap(err, pserrors.ErrCodeInternal, "encode manifest")
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
