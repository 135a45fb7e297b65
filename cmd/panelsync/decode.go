package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/odvcencio/panelsync/pkg/manifest"
)

type manifestDoc struct {
	Revision int64      `yaml:"revision"`
	Inputs   []inputDoc `yaml:"inputs"`
}

type inputDoc struct {
	Name    string   `yaml:"name"`
	Kind    string   `yaml:"kind"`
	Type    string   `yaml:"type,omitempty"`
	Min     *float64 `yaml:"min,omitempty"`
	Max     *float64 `yaml:"max,omitempty"`
	Default any      `yaml:"default,omitempty"`
	Object  int      `yaml:"object"`
}

func runDecodeCommand(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	fs.SetOutput(stdout)
	if err := fs.Parse(args); err != nil {
		return withExitCode(err, exitUsage)
	}

	var payload string
	switch fs.NArg() {
	case 0:
		data, err := io.ReadAll(bufio.NewReader(os.Stdin))
		if err != nil {
			return fmt.Errorf("read payload: %w", err)
		}
		payload = string(data)
	case 1:
		payload = fs.Arg(0)
	default:
		return withExitCode(fmt.Errorf("usage: panelsync decode [payload]"), exitUsage)
	}

	m, err := manifest.Decode(strings.TrimSpace(payload))
	if err != nil {
		return err
	}
	return writeManifest(stdout, m)
}

func writeManifest(w io.Writer, m *manifest.Manifest) error {
	doc := manifestDoc{Revision: m.Revision, Inputs: make([]inputDoc, 0, len(m.Inputs))}
	for i, in := range m.Inputs {
		d := inputDoc{
			Name:    in.Name,
			Kind:    string(in.Kind),
			Type:    in.Type,
			Default: in.DefaultValue(),
			Object:  i + 1,
		}
		if in.Slider != nil {
			lo, hi := in.Slider.Min, in.Slider.Max
			d.Min, d.Max = &lo, &hi
		}
		doc.Inputs = append(doc.Inputs, d)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return enc.Close()
}
