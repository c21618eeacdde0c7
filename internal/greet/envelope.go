package greet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"runtime"
	"strings"

	"github.com/hyperifyio/trellistools/internal/toolargs"
)

// StatusSuccess is the only status a Result Envelope carries.
const StatusSuccess = "success"

// Envelope is the success-path document written to stdout.
type Envelope struct {
	Message        string `json:"message"`
	Runtime        string `json:"runtime"`
	Status         string `json:"status"`
	ConfigReceived any    `json:"config_received,omitempty"`
}

// Tool is one rendition of the greeting tool: the label embedded in the
// message and the runtime string reported in the envelope.
type Tool struct {
	Label   string
	Runtime string
}

// GoTool describes the native Go rendition running on the current toolchain.
func GoTool() Tool {
	return Tool{Label: "Go", Runtime: "Go " + strings.TrimPrefix(runtime.Version(), "go")}
}

// Message renders "<greeting>, <name>! [<label>]", with a debug suffix when
// the config asks for it.
func (t Tool) Message(a Args) (string, error) {
	msg := fmt.Sprintf("%s, %s! [%s]", a.Greeting, a.Name, t.Label)
	if a.Config != nil && debugEnabled(a.Config) {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(a.Config); err != nil {
			return "", fmt.Errorf("encode config: %w", err)
		}
		msg += fmt.Sprintf(" (Debug Mode: %s)", strings.TrimSpace(buf.String()))
	}
	return msg, nil
}

// Envelope builds the result for a.
func (t Tool) Envelope(a Args) (Envelope, error) {
	msg, err := t.Message(a)
	if err != nil {
		return Envelope{}, err
	}
	env := Envelope{Message: msg, Runtime: t.Runtime, Status: StatusSuccess}
	if a.Config != nil {
		env.ConfigReceived = a.Config
	}
	return env, nil
}

// Handle resolves arguments from v and returns the envelope. It has the shape
// expected by adapter.Handler.
func (t Tool) Handle(v toolargs.Values) (any, error) {
	return t.Envelope(Resolve(v))
}
