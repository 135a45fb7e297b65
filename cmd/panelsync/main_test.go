package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/odvcencio/panelsync/pkg/binding"
	"github.com/odvcencio/panelsync/pkg/bus"
	"github.com/odvcencio/panelsync/pkg/config"
	"github.com/odvcencio/panelsync/pkg/errors"
	"github.com/odvcencio/panelsync/pkg/panel"
	"github.com/odvcencio/panelsync/pkg/remote"
)

func TestRun_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer

	err := run(nil, &stdout, &stderr)
	require.Error(t, err)
	assert.Equal(t, exitUsage, exitCodeForError(err))
	assert.Contains(t, stderr.String(), "usage: panelsync")

	err = run([]string{"bogus"}, &stdout, &stderr)
	assert.Equal(t, exitUsage, exitCodeForError(err))

	require.NoError(t, run([]string{"version"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "panelsync dev")
}

func TestDecodeCommand(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte(`{
		"revision": 4,
		"inputs": [
			{"name": "x", "type": "dh.slider", "props": {"min": 0, "max": 10, "defaultValue": 2}},
			{"name": "label", "type": "text", "props": {"defaultValue": "hi"}}
		]
	}`))

	var stdout bytes.Buffer
	require.NoError(t, run([]string{"decode", payload}, &stdout, &bytes.Buffer{}))

	var doc manifestDoc
	require.NoError(t, yaml.Unmarshal(stdout.Bytes(), &doc))
	assert.EqualValues(t, 4, doc.Revision)
	require.Len(t, doc.Inputs, 2)
	assert.Equal(t, "slider", doc.Inputs[0].Kind)
	assert.Equal(t, 10.0, *doc.Inputs[0].Max)
	assert.Equal(t, 1, doc.Inputs[0].Object)
	assert.Equal(t, "hi", doc.Inputs[1].Default)
	assert.Equal(t, 2, doc.Inputs[1].Object)
}

func TestDecodeCommand_Errors(t *testing.T) {
	err := run([]string{"decode", "not base64!"}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeDecode))
	assert.Equal(t, exitFailure, exitCodeForError(err))

	err = run([]string{"decode", "a", "b"}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.Equal(t, exitUsage, exitCodeForError(err))
}

func TestDemoCommand(t *testing.T) {
	if testing.Short() {
		t.Skip("runs the full in-memory stack")
	}
	var stdout, stderr bytes.Buffer
	err := run([]string{"demo", "--no-gateway", "--duration", "500ms"}, &stdout, &stderr)
	require.NoError(t, err)

	out := stdout.String()
	assert.True(t, strings.Contains(out, demoQueryPanel), out)
	assert.True(t, strings.Contains(out, demoTextPanel), out)
}

func TestRuntimeClose_FlushReachesHost(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.DefaultConfig()
	cfg.Gateway.Enabled = false
	cfg.Sync.WriteDebounce = time.Hour
	cfg.Sync.UnmountPolicy = string(binding.PolicyFlush)

	mb := bus.NewMemoryBus()
	defer mb.Close()
	space := remote.NewSpace()
	_, err := remote.InstallSampleQuery(space, "query")
	require.NoError(t, err)

	rt, err := newRuntime(ctx, cfg, mb, io.Discard)
	require.NoError(t, err)
	srv := remote.NewServer(space, mb, rt.logger)
	require.NoError(t, srv.Start(ctx))
	rt.closeAfterUnmount(srv.Stop)

	data, err := json.Marshal(remote.ShellOpen{PanelID: "q1", Ref: "query", Title: "query"})
	require.NoError(t, err)
	require.NoError(t, mb.Publish(ctx, remote.SubjectShellOpen, data))

	var p panel.Panel
	require.Eventually(t, func() bool {
		var ok bool
		p, ok = rt.plugin.Panel("q1")
		return ok && p.Snapshot().State == panel.StateReady
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, p.SetInput("x", 42.0))
	_, written := space.Row("query/input/x", binding.RowKey)
	require.False(t, written)

	rt.Close()

	v, ok := space.Row("query/input/x", binding.RowKey)
	require.True(t, ok)
	assert.EqualValues(t, 42.0, v)
}
