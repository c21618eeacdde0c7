package adapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/hyperifyio/trellistools/internal/greet"
	"github.com/hyperifyio/trellistools/internal/toolargs"
)

var testTool = greet.Tool{Label: "Go", Runtime: "Go test"}

func runWith(t *testing.T, env toolargs.MapEnv, h Handler, opts Options) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Run(env, &stdout, &stderr, h, opts)
	return stdout.String(), stderr.String(), code
}

func decodeEnvelope(t *testing.T, raw string) greet.Envelope {
	t.Helper()
	var env greet.Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		t.Fatalf("stdout is not JSON: %v; raw=%q", err, raw)
	}
	return env
}

func TestRun_Scenarios(t *testing.T) {
	cases := []struct {
		name        string
		env         toolargs.MapEnv
		wantMessage string
	}{
		{"per-arg both set", toolargs.MapEnv{"TRELLIS_ARG_NAME": "World", "TRELLIS_ARG_GREETING": "Hello"}, "Hello, World! [Go]"},
		{"nothing set", toolargs.MapEnv{}, "Hi, Guest! [Go]"},
		{"bundled", toolargs.MapEnv{"TRELLIS_ARGS": `{"name":"Ada","greeting":"Welcome"}`}, "Welcome, Ada! [Go]"},
		{"bundled empty object", toolargs.MapEnv{"TRELLIS_ARGS": `{}`}, "Hi, Guest! [Go]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stdout, stderr, code := runWith(t, tc.env, testTool.Handle, Options{})
			if code != 0 {
				t.Fatalf("exit=%d stderr=%q", code, stderr)
			}
			if stderr != "" {
				t.Fatalf("stderr should be empty on success, got %q", stderr)
			}
			if strings.Count(stdout, "\n") != 1 || !strings.HasSuffix(stdout, "\n") {
				t.Fatalf("expected exactly one line on stdout, got %q", stdout)
			}
			env := decodeEnvelope(t, stdout)
			if env.Message != tc.wantMessage || env.Status != "success" || env.Runtime != "Go test" {
				t.Fatalf("unexpected envelope: %+v", env)
			}
		})
	}
}

func TestRun_MalformedBundled(t *testing.T) {
	stdout, stderr, code := runWith(t, toolargs.MapEnv{"TRELLIS_ARGS": "{bad json"}, testTool.Handle, Options{})
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if stdout != "" {
		t.Fatalf("stdout must be empty on failure, got %q", stdout)
	}
	if !strings.HasPrefix(stderr, DefaultErrorPrefix+" ") || !strings.Contains(stderr, "TRELLIS_ARGS") {
		t.Fatalf("unexpected diagnostic %q", stderr)
	}
	if strings.Count(stderr, "\n") != 1 {
		t.Fatalf("diagnostic should be a single line, got %q", stderr)
	}
}

func TestRun_HandlerErrorAndPanic(t *testing.T) {
	failing := func(toolargs.Values) (any, error) { return nil, errors.New("multi\nline failure") }
	stdout, stderr, code := runWith(t, toolargs.MapEnv{}, failing, Options{ErrorPrefix: "Error in test:"})
	if code != 1 || stdout != "" {
		t.Fatalf("exit=%d stdout=%q", code, stdout)
	}
	if stderr != "Error in test: multi line failure\n" {
		t.Fatalf("stderr: %q", stderr)
	}

	panicking := func(toolargs.Values) (any, error) { panic("kaboom") }
	stdout, stderr, code = runWith(t, toolargs.MapEnv{}, panicking, Options{})
	if code != 1 || stdout != "" {
		t.Fatalf("exit=%d stdout=%q", code, stdout)
	}
	if !strings.Contains(stderr, "panic: kaboom") {
		t.Fatalf("stderr: %q", stderr)
	}
}

func TestRun_UnencodableResultWritesNothing(t *testing.T) {
	h := func(toolargs.Values) (any, error) { return map[string]any{"ch": make(chan int)}, nil }
	stdout, stderr, code := runWith(t, toolargs.MapEnv{}, h, Options{})
	if code != 1 || stdout != "" || !strings.Contains(stderr, "encode result") {
		t.Fatalf("exit=%d stdout=%q stderr=%q", code, stdout, stderr)
	}
}

func TestRun_DecodeOverride(t *testing.T) {
	env := toolargs.MapEnv{"TRELLIS_ARGS": `{"name":"Ada"}`, "TRELLIS_ARG_NAME": "World"}
	legacy := toolargs.NewDecoder(toolargs.PerArgument).Decode
	stdout, _, code := runWith(t, env, testTool.Handle, Options{Decode: legacy})
	if code != 0 {
		t.Fatalf("exit=%d", code)
	}
	if got := decodeEnvelope(t, stdout).Message; got != "Hi, World! [Go]" {
		t.Fatalf("message: %q", got)
	}
}

func TestRun_Idempotent(t *testing.T) {
	env := toolargs.MapEnv{"TRELLIS_ARGS": `{"name":"<Ada & co>","config":{"b":1,"a":2,"debug":true}}`}
	first, _, _ := runWith(t, env, greet.GoTool().Handle, Options{})
	for i := 0; i < 5; i++ {
		again, _, _ := runWith(t, env, greet.GoTool().Handle, Options{})
		if again != first {
			t.Fatalf("run %d differs:\n%q\n%q", i, first, again)
		}
	}
	if !strings.Contains(first, "<Ada & co>") {
		t.Fatalf("HTML characters should not be escaped: %q", first)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestRun_StdoutWriteFailure(t *testing.T) {
	var stderr bytes.Buffer
	code := Run(toolargs.MapEnv{}, failingWriter{}, &stderr, testTool.Handle, Options{})
	if code != 1 || !strings.Contains(stderr.String(), "write stdout: closed") {
		t.Fatalf("exit=%d stderr=%q", code, stderr.String())
	}
}
