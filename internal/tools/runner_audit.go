package tools

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// AuditDirEnv names the directory receiving NDJSON audit logs. Auditing is
// off when it is unset.
const AuditDirEnv = "TRELLIS_AUDIT_DIR"

// writeAudit emits an NDJSON line capturing tool execution metadata. Only
// variable names are recorded, never values.
func writeAudit(res Result, spec ToolSpec, start time.Time, envKeys []string) {
	type auditEntry struct {
		TS          string   `json:"ts"`
		CallID      string   `json:"callId"`
		Tool        string   `json:"tool"`
		Argv        []string `json:"argv"`
		CWD         string   `json:"cwd"`
		Convention  string   `json:"convention"`
		Exit        int      `json:"exit"`
		MS          int64    `json:"ms"`
		StdoutBytes int      `json:"stdoutBytes"`
		StderrBytes int      `json:"stderrBytes"`
		EnvKeys     []string `json:"envKeys,omitempty"`
	}

	dir := os.Getenv(AuditDirEnv)
	if dir == "" {
		return
	}
	cwd, err := os.Getwd()
	if err != nil {
		cwd = ""
	}
	entry := auditEntry{
		TS:          timeNow().UTC().Format(time.RFC3339Nano),
		CallID:      res.CallID,
		Tool:        spec.Name,
		Argv:        redactSensitiveStrings(append([]string(nil), spec.Command...)),
		CWD:         redactSensitiveString(cwd),
		Convention:  res.Convention.String(),
		Exit:        res.ExitCode,
		MS:          time.Since(start).Milliseconds(),
		StdoutBytes: len(res.Stdout),
		StderrBytes: len(res.Stderr),
		EnvKeys:     append([]string(nil), envKeys...),
	}
	if err := appendAuditLog(dir, entry); err != nil {
		_ = err
	}
}

// appendAuditLog writes an NDJSON audit line to <dir>/YYYYMMDD.log.
func appendAuditLog(dir string, entry any) error {
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	fname := timeNow().UTC().Format("20060102") + ".log"
	f, err := os.OpenFile(filepath.Join(dir, fname), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if err := f.Close(); err != nil {
			_ = err
		}
	}()
	if _, err := f.Write(append(b, '\n')); err != nil {
		return err
	}
	return nil
}
