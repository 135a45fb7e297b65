package remote

import (
	"encoding/json"

	"github.com/odvcencio/panelsync/pkg/errors"
)

// Bus subjects served by Server.
const (
	SubjectDescribe = "panelsync.object.describe"
	SubjectFetch    = "panelsync.object.fetch"
	SubjectWrite    = "panelsync.object.write"
	SubjectMessage  = "panelsync.object.message"
	// SubjectChanged is followed by ".<ref>".
	SubjectChanged = "panelsync.object.changed"
	// SubjectShellOpen carries panel open requests from a shell.
	SubjectShellOpen = "panelsync.shell.open"
	// SubjectShellClose carries panel close requests from a shell.
	SubjectShellClose = "panelsync.shell.close"
)

type refRequest struct {
	Ref string `json:"ref"`
}

type writeRequest struct {
	Ref   string `json:"ref"`
	Key   int    `json:"key"`
	Value any    `json:"value"`
}

type messageRequest struct {
	Ref     string `json:"ref"`
	Message string `json:"message"`
}

type describeResponse struct {
	Ref     string   `json:"ref"`
	Type    string   `json:"type"`
	Payload string   `json:"payload"`
	Exports []Export `json:"exports"`
}

type fetchResponse struct {
	Ref  string `json:"ref"`
	Type string `json:"type"`
}

// ShellOpen asks the dashboard to show widget Ref in panel PanelID.
type ShellOpen struct {
	PanelID string         `json:"panelId,omitempty"`
	Ref     string         `json:"ref"`
	Title   string         `json:"title,omitempty"`
	Type    string         `json:"type,omitempty"`
	Meta    map[string]any `json:"metadata,omitempty"`
}

// ShellClose asks the dashboard to close panel PanelID.
type ShellClose struct {
	PanelID string `json:"panelId"`
}

// envelope wraps every reply.
type envelope struct {
	OK    bool            `json:"ok"`
	Code  string          `json:"code,omitempty"`
	Error string          `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func okReply(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return errReply(errors.Wrap(err, errors.ErrCodeInternal, "encode reply"))
	}
	out, _ := json.Marshal(envelope{OK: true, Data: data})
	return out
}

func errReply(err error) []byte {
	out, _ := json.Marshal(envelope{
		Code:  string(errors.GetCode(err)),
		Error: err.Error(),
	})
	return out
}

func decodeReply(raw []byte, v any) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "decode reply")
	}
	if !env.OK {
		code := errors.ErrorCode(env.Code)
		if code == "" {
			code = errors.ErrCodeInternal
		}
		return errors.New(code, env.Error)
	}
	if v == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "decode reply data")
	}
	return nil
}

func changedSubject(ref string) string {
	return SubjectChanged + "." + ref
}
