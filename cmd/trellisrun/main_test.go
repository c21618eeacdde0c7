package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	testutil "github.com/hyperifyio/trellistools/tools/testutil"
)

func runCLI(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := cliMain(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func greetManifest(t *testing.T) string {
	t.Helper()
	bin := testutil.BuildTool(t, "greet")
	dir := t.TempDir()
	manifest := filepath.Join(dir, "tools.yaml")
	content := "tools:\n" +
		"  - name: greet\n" +
		"    description: Go greeting tool\n" +
		"    command: [" + strconvQuote(bin) + "]\n" +
		"    convention: per-arg\n" +
		"    timeoutSec: 10\n"
	if err := os.WriteFile(manifest, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return manifest
}

// strconvQuote renders s as a double-quoted YAML scalar.
func strconvQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestRun_JSONOutput(t *testing.T) {
	manifest := greetManifest(t)
	for _, conv := range []string{"per-arg", "bundled"} {
		stdout, stderr, code := runCLI(t, "run", "greet", "--manifest", manifest, "--convention", conv,
			"--arg", "name=Ada", "--arg", "greeting=Welcome", "--json")
		if code != 0 {
			t.Fatalf("%s: exit=%d stderr=%q", conv, code, stderr)
		}
		var doc struct {
			OK         bool           `json:"ok"`
			Convention string         `json:"convention"`
			Result     map[string]any `json:"result"`
		}
		if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
			t.Fatalf("%s: bad json: %v; raw=%q", conv, err, stdout)
		}
		if !doc.OK || doc.Convention != conv || doc.Result["message"] != "Welcome, Ada! [Go]" {
			t.Fatalf("%s: unexpected doc: %+v", conv, doc)
		}
	}
}

func TestRun_HumanOutput(t *testing.T) {
	manifest := greetManifest(t)
	stdout, stderr, code := runCLI(t, "run", "greet", "--manifest", manifest, "--no-color")
	if code != 0 {
		t.Fatalf("exit=%d stderr=%q", code, stderr)
	}
	if !strings.HasPrefix(stdout, "ok greet [per-arg] exit=0 call=") {
		t.Fatalf("status line: %q", stdout)
	}
	if !strings.Contains(stdout, `"message": "Hi, Guest! [Go]"`) {
		t.Fatalf("result body: %q", stdout)
	}
}

func TestRun_ArgsJSONAndConfig(t *testing.T) {
	manifest := greetManifest(t)
	stdout, stderr, code := runCLI(t, "run", "greet", "--manifest", manifest, "--convention", "bundled",
		"--args-json", `{"name":"Base","greeting":"Yo"}`, "--arg", "name=Override",
		"--arg-json", `config={"debug":false,"n":1}`, "--json")
	if code != 0 {
		t.Fatalf("exit=%d stderr=%q", code, stderr)
	}
	var doc struct {
		Result struct {
			Message        string         `json:"message"`
			ConfigReceived map[string]any `json:"config_received"`
		} `json:"result"`
	}
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if doc.Result.Message != "Yo, Override! [Go]" || doc.Result.ConfigReceived["n"] != float64(1) {
		t.Fatalf("unexpected result: %+v", doc.Result)
	}
}

func TestRun_ToolFailureExitsOne(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires POSIX sh")
	}
	dir := t.TempDir()
	manifest := filepath.Join(dir, "tools.json")
	if err := os.WriteFile(manifest, []byte(`{"tools":[{"name":"bad","command":["sh","-c","echo 'Error in sh tool: nope' >&2; exit 1"]}]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	stdout, stderr, code := runCLI(t, "run", "bad", "--manifest", manifest, "--no-color")
	if code != exitFailure {
		t.Fatalf("expected exit %d, got %d", exitFailure, code)
	}
	if !strings.HasPrefix(stdout, "failed bad [bundled] exit=1") || !strings.Contains(stdout, "Error in sh tool: nope") {
		t.Fatalf("stdout: %q", stdout)
	}
	if !strings.Contains(stderr, "tool bad failed") {
		t.Fatalf("stderr: %q", stderr)
	}
}

func TestRun_EnvFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires POSIX sh")
	}
	dir := t.TempDir()
	envFile := filepath.Join(dir, "dev.env")
	if err := os.WriteFile(envFile, []byte("GREETING_STYLE=formal\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	manifest := filepath.Join(dir, "tools.toml")
	if err := os.WriteFile(manifest, []byte("[[tools]]\nname = \"show\"\ncommand = [\"sh\", \"-c\", \"printf %s \\\"$GREETING_STYLE\\\"\"]\n"), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	stdout, stderr, code := runCLI(t, "run", "show", "--manifest", manifest, "--env-file", envFile, "--json")
	if code != 0 {
		t.Fatalf("exit=%d stderr=%q", code, stderr)
	}
	if !strings.Contains(stdout, `"result":"formal"`) {
		t.Fatalf("stdout: %q", stdout)
	}
}

func TestRun_UsageErrors(t *testing.T) {
	manifest := greetManifest(t)
	cases := [][]string{
		{"run", "missing", "--manifest", manifest},
		{"run", "greet", "--manifest", manifest, "--convention", "xml"},
		{"run", "greet", "--manifest", manifest, "--arg", "novalue"},
		{"run", "greet", "--manifest", manifest, "--args-json", "[1]"},
		{"run", "greet", "--manifest", filepath.Join(t.TempDir(), "absent.yaml")},
	}
	for _, args := range cases {
		_, stderr, code := runCLI(t, args...)
		if code != exitUsage {
			t.Fatalf("%v: expected exit %d, got %d (stderr=%q)", args, exitUsage, code, stderr)
		}
		if !strings.HasPrefix(stderr, "error: ") {
			t.Fatalf("%v: stderr: %q", args, stderr)
		}
	}
}

func TestList(t *testing.T) {
	manifest := greetManifest(t)
	stdout, stderr, code := runCLI(t, "list", "--manifest", manifest)
	if code != 0 {
		t.Fatalf("exit=%d stderr=%q", code, stderr)
	}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "NAME") {
		t.Fatalf("unexpected listing: %q", stdout)
	}
	if !strings.HasPrefix(lines[1], "greet") || !strings.Contains(lines[1], "per-arg") || !strings.Contains(lines[1], "10s") {
		t.Fatalf("unexpected row: %q", lines[1])
	}
}

func TestEnv(t *testing.T) {
	stdout, _, code := runCLI(t, "env", "--convention", "per-arg", "--arg", "name=Ada", "--arg-json", "config={\"debug\":true}")
	if code != 0 {
		t.Fatalf("exit=%d", code)
	}
	if stdout != "TRELLIS_ARG_CONFIG={\"debug\":true}\nTRELLIS_ARG_NAME=Ada\n" {
		t.Fatalf("stdout: %q", stdout)
	}
	stdout, _, code = runCLI(t, "env", "--arg", "name=Ada")
	if code != 0 || stdout != "TRELLIS_ARGS={\"name\":\"Ada\"}\n" {
		t.Fatalf("bundled default: exit=%d stdout=%q", code, stdout)
	}
}

func TestVersionFlag(t *testing.T) {
	stdout, _, code := runCLI(t, "--version")
	if code != 0 || !strings.HasPrefix(stdout, "trellisrun version ") {
		t.Fatalf("exit=%d stdout=%q", code, stdout)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("stdout closed") }

func TestRun_OutputWriteFailureIsToolFailure(t *testing.T) {
	manifest := greetManifest(t)
	var stderr bytes.Buffer
	code := cliMain([]string{"run", "greet", "--manifest", manifest, "--json"}, failingWriter{}, &stderr)
	if code != exitFailure {
		t.Fatalf("expected exit %d, got %d (stderr=%q)", exitFailure, code, stderr.String())
	}
	if !strings.Contains(stderr.String(), "print result: stdout closed") {
		t.Fatalf("stderr: %q", stderr.String())
	}
}
