// Package jsrun executes JavaScript tool scripts in an embedded goja VM with a
// small Node-like host surface: process.env, process.version, process.exit,
// console.log and console.error.
package jsrun

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"

	"github.com/dop251/goja"

	"github.com/hyperifyio/trellistools/internal/sandbox"
	"github.com/hyperifyio/trellistools/internal/toolargs"
)

const gojaModule = "github.com/dop251/goja"

// Script is a JavaScript tool program. ErrorPrefix starts diagnostics the
// host writes on the script's behalf (uncaught exceptions, limits).
type Script struct {
	Name        string
	Source      string
	ErrorPrefix string
}

// Result is the observable outcome of one script run.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// exitRequest unwinds the VM when the script calls process.exit.
type exitRequest struct {
	code int
}

// Run executes script against environ (KEY=VALUE entries). Uncaught
// exceptions, timeouts and output overruns yield exit code 1 with a
// diagnostic on stderr.
func Run(ctx context.Context, script Script, environ []string, limits sandbox.Limits) Result {
	limits = limits.Normalize()
	stdout := sandbox.NewBoundedBuffer(limits.OutputKB)
	stderr := sandbox.NewBoundedBuffer(limits.OutputKB)

	vm := goja.New()
	if err := bindHost(vm, environ, stdout, stderr); err != nil {
		return failure(script, stdout, stderr, fmt.Errorf("bind host: %w", err))
	}

	ctx, cancel := sandbox.WithWallTimeout(ctx, limits.WallMS)
	defer cancel()

	done := make(chan struct{})
	var runErr error
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				switch v := r.(type) {
				case exitRequest:
					runErr = v
				case error:
					runErr = v
				default:
					runErr = fmt.Errorf("panic: %v", r)
				}
			}
		}()
		_, runErr = vm.RunScript(script.Name, script.Source)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		vm.Interrupt("timeout")
		<-done
		runErr = interruptOutcome(runErr)
	}

	var exit exitRequest
	switch {
	case runErr == nil:
		return Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	case errors.As(runErr, &exit):
		return Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), ExitCode: exit.code}
	case errors.Is(runErr, sandbox.ErrOutputLimit):
		return failure(script, stdout, stderr, fmt.Errorf("output exceeded %d KB", limits.OutputKB))
	case errors.Is(runErr, sandbox.ErrTimeout):
		return failure(script, stdout, stderr, fmt.Errorf("execution exceeded %d ms", limits.WallMS))
	default:
		var jsErr *goja.Exception
		if errors.As(runErr, &jsErr) {
			return failure(script, stdout, stderr, errors.New(jsErr.Value().String()))
		}
		return failure(script, stdout, stderr, runErr)
	}
}

// interruptOutcome maps the result of a run that raced the deadline. Only a
// run actually stopped by the interrupt counts as a timeout; a script that
// finished first keeps its own outcome.
func interruptOutcome(runErr error) error {
	var interrupted *goja.InterruptedError
	if errors.As(runErr, &interrupted) {
		return sandbox.ErrTimeout
	}
	return runErr
}

func (e exitRequest) Error() string { return fmt.Sprintf("exit %d", e.code) }

func failure(script Script, stdout, stderr *sandbox.BoundedBuffer, err error) Result {
	prefix := script.ErrorPrefix
	if prefix == "" {
		prefix = "Error in js tool:"
	}
	line := prefix + " " + strings.ReplaceAll(err.Error(), "\n", " ") + "\n"
	if _, werr := stderr.WriteString(line); werr != nil {
		_ = werr
	}
	return Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), ExitCode: 1}
}

func bindHost(vm *goja.Runtime, environ []string, stdout, stderr *sandbox.BoundedBuffer) error {
	env := vm.NewObject()
	vars := toolargs.ParseEnviron(environ)
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := env.Set(k, vars[k]); err != nil {
			return err
		}
	}

	process := vm.NewObject()
	if err := process.Set("env", env); err != nil {
		return err
	}
	if err := process.Set("version", EngineVersion()); err != nil {
		return err
	}
	if err := process.Set("exit", func(call goja.FunctionCall) goja.Value {
		code := 0
		if len(call.Arguments) > 0 {
			code = int(call.Argument(0).ToInteger())
		}
		panic(exitRequest{code: code})
	}); err != nil {
		return err
	}
	if err := vm.Set("process", process); err != nil {
		return err
	}

	console := vm.NewObject()
	if err := console.Set("log", printer(stdout)); err != nil {
		return err
	}
	if err := console.Set("error", printer(stderr)); err != nil {
		return err
	}
	return vm.Set("console", console)
}

// printer joins its arguments with spaces, like console.log, and writes one
// line to w. Exceeding the output cap aborts the script.
func printer(w *sandbox.BoundedBuffer) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, a := range call.Arguments {
			parts[i] = formatValue(a)
		}
		if _, err := w.WriteString(strings.Join(parts, " ") + "\n"); err != nil {
			panic(sandbox.ErrOutputLimit)
		}
		return goja.Undefined()
	}
}

func formatValue(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "null"
	}
	if obj, ok := v.(*goja.Object); ok && obj.ClassName() != "Error" {
		switch exported := obj.Export().(type) {
		case map[string]any, []any:
			if b, err := json.Marshal(exported); err == nil {
				return string(b)
			}
		}
	}
	return v.String()
}

// EngineVersion reports the goja module version linked into the binary, or
// "unknown" when build info is unavailable (e.g. in some test binaries).
func EngineVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, dep := range info.Deps {
		if dep.Path == gojaModule {
			if dep.Replace != nil && dep.Replace.Version != "" {
				return dep.Replace.Version
			}
			return dep.Version
		}
	}
	return "unknown"
}
