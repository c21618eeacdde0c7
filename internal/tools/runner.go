package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hyperifyio/trellistools/internal/toolargs"
)

// timeNow is a package-level clock to enable deterministic tests.
var timeNow = time.Now

// newCallID returns the identifier recorded for one tool call.
var newCallID = uuid.NewString

// waitDelay bounds how long output is drained after the tool is killed.
const waitDelay = 500 * time.Millisecond

// ErrTimeout is returned when a tool exceeds its time budget.
var ErrTimeout = errors.New("tool timed out")

// Invocation is one request to run a tool.
type Invocation struct {
	Args map[string]any
	// Convention overrides the spec's convention when non-zero.
	Convention toolargs.Convention
	// ExtraEnv is added to the child environment verbatim, e.g. from a dotenv
	// file. Reserved argument variables are rejected.
	ExtraEnv map[string]string
}

// Result is the captured outcome of a tool process.
type Result struct {
	CallID     string
	Tool       string
	Convention toolargs.Convention
	ExitCode   int
	Stdout     []byte
	Stderr     []byte
	// Value is the parsed JSON document when stdout holds one, otherwise the
	// trimmed stdout text.
	Value any
}

// computeToolTimeout derives the timeout for a tool execution, honoring
// spec.TimeoutSec when provided; otherwise it falls back to the default.
func computeToolTimeout(spec ToolSpec, defaultTimeout time.Duration) time.Duration {
	if spec.TimeoutSec > 0 {
		return time.Duration(spec.TimeoutSec) * time.Second
	}
	return defaultTimeout
}

// buildToolEnvironment constructs a minimal environment for the tool process:
// PATH and HOME, the allowlisted passthrough variables, extra variables and
// finally the encoded arguments. It also returns the variable names that were
// set, for audit visibility.
func buildToolEnvironment(spec ToolSpec, inv Invocation, conv toolargs.Convention) (env []string, keys []string, err error) {
	add := func(k, v string) {
		env = append(env, k+"="+v)
		keys = append(keys, k)
	}
	for _, k := range []string{"PATH", "HOME", "SYSTEMROOT"} {
		if v, ok := os.LookupEnv(k); ok && v != "" {
			add(k, v)
		}
	}
	for _, k := range spec.EnvPassthrough {
		if v, ok := os.LookupEnv(k); ok {
			add(k, v)
		}
	}
	extra := make([]string, 0, len(inv.ExtraEnv))
	for k := range inv.ExtraEnv {
		extra = append(extra, k)
	}
	sort.Strings(extra)
	for _, k := range extra {
		if isReservedEnvName(strings.ToUpper(k)) {
			return nil, nil, fmt.Errorf("extra env %q is reserved for tool arguments", k)
		}
		add(k, inv.ExtraEnv[k])
	}
	argEnv, err := toolargs.Encode(inv.Args, conv)
	if err != nil {
		return nil, nil, err
	}
	for _, kv := range argEnv {
		k, v, _ := strings.Cut(kv, "=")
		add(k, v)
	}
	return env, keys, nil
}

// normalizeWaitError maps timeout and process errors to deterministic errors.
func normalizeWaitError(ctx context.Context, waitErr error, stderrText string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	if waitErr != nil {
		msg := strings.TrimSpace(stderrText)
		if msg == "" {
			msg = waitErr.Error()
		}
		return errors.New(msg)
	}
	return nil
}

// Run executes the tool once with the invocation's arguments encoded into its
// environment. A non-nil error is returned when the tool cannot be started,
// times out, or exits non-zero; the Result still carries whatever was
// captured.
func Run(parentCtx context.Context, spec ToolSpec, inv Invocation, defaultTimeout time.Duration) (Result, error) {
	start := time.Now()
	conv := inv.Convention
	if conv == 0 {
		conv = spec.Convention
	}
	if conv == 0 {
		conv = toolargs.Bundled
	}
	res := Result{CallID: newCallID(), Tool: spec.Name, Convention: conv}
	if len(spec.Command) == 0 {
		return res, fmt.Errorf("tool %q: empty command", spec.Name)
	}

	env, envKeys, err := buildToolEnvironment(spec, inv, conv)
	if err != nil {
		return res, fmt.Errorf("tool %q: %w", spec.Name, err)
	}

	ctx, cancel := context.WithTimeout(parentCtx, computeToolTimeout(spec, defaultTimeout))
	defer cancel()

	cmd := exec.CommandContext(ctx, spec.Command[0], spec.Command[1:]...)
	cmd.Env = env
	// Grandchildren holding the pipes open must not outlive the timeout.
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	waitErr := cmd.Run()
	res.Stdout = stdout.Bytes()
	res.Stderr = stderr.Bytes()
	if waitErr != nil {
		var ee *exec.ExitError
		if errors.As(waitErr, &ee) && ee.ProcessState != nil {
			res.ExitCode = ee.ProcessState.ExitCode()
		} else {
			// Unknown exit (e.g., timeout/cancel or start failure)
			res.ExitCode = -1
		}
	}
	writeAudit(res, spec, start, envKeys)

	if normErr := normalizeWaitError(ctx, waitErr, stderr.String()); normErr != nil {
		return res, normErr
	}
	res.Value = parseOutput(res.Stdout)
	return res, nil
}

// parseOutput returns the decoded JSON value when stdout looks like a JSON
// object or array, otherwise the trimmed text.
func parseOutput(out []byte) any {
	trimmed := strings.TrimSpace(string(out))
	if (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) {
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			return v
		}
	}
	return trimmed
}
