package testutil

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
)

// BuildTool builds the named tool binary into a test-scoped temporary
// directory and returns the absolute path to the produced executable.
//
// Sources are looked up under tools/cmd/<name> relative to the module root.
func BuildTool(t *testing.T, name string) string {
	t.Helper()

	repoRoot, err := findRepoRoot()
	if err != nil {
		t.Fatalf("find repo root: %v", err)
	}

	binName := name
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	outPath := filepath.Join(t.TempDir(), binName)

	srcPath := filepath.Join(repoRoot, "tools", "cmd", name)
	if fi, statErr := os.Stat(srcPath); statErr != nil || !fi.IsDir() {
		t.Fatalf("tool sources not found for %q under %s", name, filepath.Join(repoRoot, "tools", "cmd"))
	}

	cmd := exec.Command("go", "build", "-o", outPath, srcPath)
	cmd.Dir = repoRoot
	// Inherit environment; ensure CGO disabled for determinism
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build %s from %s failed: %v\n%s", name, relOrSame(repoRoot, srcPath), err, string(output))
	}
	return outPath
}

// RunResult captures one tool execution.
type RunResult struct {
	Stdout string
	Stderr string
	Code   int
}

// RunTool executes bin with exactly the given environment (plus SYSTEMROOT
// on Windows), so TRELLIS_* variables of the test process never leak in.
func RunTool(t *testing.T, bin string, env map[string]string, args ...string) RunResult {
	t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Env = environ(env)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	code := 0
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			code = ee.ExitCode()
		} else {
			t.Fatalf("run %s: %v", filepath.Base(bin), err)
		}
	}
	return RunResult{Stdout: stdout.String(), Stderr: stderr.String(), Code: code}
}

func environ(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	if runtime.GOOS == "windows" {
		if v := os.Getenv("SYSTEMROOT"); v != "" {
			out = append(out, "SYSTEMROOT="+v)
		}
	}
	// A non-nil empty slice keeps exec from inheriting the parent environment.
	return out
}

func findRepoRoot() (string, error) {
	start, err := os.Getwd()
	if err != nil || start == "" {
		return "", errors.New("cannot determine working directory")
	}
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found from %s upward", start)
		}
		dir = parent
	}
}

func relOrSame(base, target string) string {
	if rel, err := filepath.Rel(base, target); err == nil {
		return rel
	}
	return target
}
