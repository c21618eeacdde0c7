package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/hyperifyio/trellistools/internal/tools"
)

type resultDoc struct {
	CallID     string `json:"callId"`
	Tool       string `json:"tool"`
	Convention string `json:"convention"`
	ExitCode   int    `json:"exitCode"`
	OK         bool   `json:"ok"`
	Result     any    `json:"result,omitempty"`
	Stderr     string `json:"stderr,omitempty"`
	Error      string `json:"error,omitempty"`
}

// printResult renders a tool run either as one JSON document or as a status
// line followed by the result.
func printResult(w io.Writer, res tools.Result, runErr error, asJSON, plain bool) error {
	if asJSON {
		doc := resultDoc{
			CallID:     res.CallID,
			Tool:       res.Tool,
			Convention: res.Convention.String(),
			ExitCode:   res.ExitCode,
			OK:         runErr == nil,
			Result:     res.Value,
			Stderr:     string(res.Stderr),
		}
		if runErr != nil {
			doc.Error = runErr.Error()
		}
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		return enc.Encode(doc)
	}

	status := color.New(color.FgGreen, color.Bold)
	label := "ok"
	if runErr != nil {
		status = color.New(color.FgRed, color.Bold)
		label = "failed"
	}
	if plain {
		status.DisableColor()
	}
	if _, err := fmt.Fprintf(w, "%s %s [%s] exit=%d call=%s\n", status.Sprint(label), res.Tool, res.Convention, res.ExitCode, res.CallID); err != nil {
		return err
	}
	if runErr != nil {
		_, err := fmt.Fprintln(w, strings.TrimSpace(runErr.Error()))
		return err
	}
	switch v := res.Value.(type) {
	case string:
		_, err := fmt.Fprintln(w, v)
		return err
	default:
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}
}
