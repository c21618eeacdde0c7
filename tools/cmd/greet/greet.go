// Command greet is the Go rendition of the Trellis greeting tool.
//
// Arguments are read from TRELLIS_ARGS (a JSON object) or, when that variable
// is unset, from TRELLIS_ARG_NAME, TRELLIS_ARG_GREETING and TRELLIS_ARG_CONFIG.
// The result is one JSON object on stdout; failures print a single line on
// stderr and exit 1.
package main

import (
	"os"

	"github.com/hyperifyio/trellistools/internal/adapter"
	"github.com/hyperifyio/trellistools/internal/greet"
	"github.com/hyperifyio/trellistools/internal/version"
)

func main() {
	if version.Requested(os.Args[1:]) {
		version.Print(os.Stdout, "greet")
		return
	}
	adapter.Main(greet.GoTool().Handle, adapter.Options{ErrorPrefix: adapter.DefaultErrorPrefix})
}
