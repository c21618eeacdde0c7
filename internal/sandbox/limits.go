package sandbox

import (
	"bytes"
	"context"
	"errors"
	"time"
)

// ErrOutputLimit is returned when a bounded writer exceeds its configured cap.
var ErrOutputLimit = errors.New("OUTPUT_LIMIT")

// ErrTimeout is returned by helpers when execution exceeds the wall-time budget.
var ErrTimeout = errors.New("TIMEOUT")

const (
	DefaultWallMS   = 1000
	DefaultOutputKB = 64
)

// Limits bounds one embedded script execution. Zero fields take defaults.
type Limits struct {
	WallMS   int `json:"wall_ms"`
	OutputKB int `json:"output_kb"`
}

// Normalize returns l with defaults applied to non-positive fields.
func (l Limits) Normalize() Limits {
	if l.WallMS <= 0 {
		l.WallMS = DefaultWallMS
	}
	if l.OutputKB <= 0 {
		l.OutputKB = DefaultOutputKB
	}
	return l
}

// BoundedBuffer is an io.Writer that caps total bytes written.
// When the cap is exceeded, it truncates additional input and returns ErrOutputLimit.
// The buffer never grows beyond the configured capacity in memory.
type BoundedBuffer struct {
	buf       bytes.Buffer
	capBytes  int
	truncated bool
}

// NewBoundedBuffer creates a BoundedBuffer holding at most maxKB KiB.
// A zero or negative maxKB defaults to 64 KiB.
func NewBoundedBuffer(maxKB int) *BoundedBuffer {
	if maxKB <= 0 {
		maxKB = DefaultOutputKB
	}
	return &BoundedBuffer{capBytes: maxKB * 1024}
}

// Write appends p up to the capacity. A write that crosses the cap is
// truncated and returns ErrOutputLimit.
func (b *BoundedBuffer) Write(p []byte) (int, error) {
	remaining := b.capBytes - b.buf.Len()
	if remaining <= 0 {
		b.truncated = true
		return 0, ErrOutputLimit
	}
	if len(p) > remaining {
		_, _ = b.buf.Write(p[:remaining])
		b.truncated = true
		return remaining, ErrOutputLimit
	}
	return b.buf.Write(p)
}

// WriteString is Write for strings.
func (b *BoundedBuffer) WriteString(s string) (int, error) { return b.Write([]byte(s)) }

func (b *BoundedBuffer) Bytes() []byte { return b.buf.Bytes() }

func (b *BoundedBuffer) String() string { return b.buf.String() }

// Truncated reports whether any write exceeded the cap.
func (b *BoundedBuffer) Truncated() bool { return b.truncated }

// WithWallTimeout returns a derived context that is canceled after wallMS milliseconds.
// If wallMS <= 0, DefaultWallMS is used.
func WithWallTimeout(parent context.Context, wallMS int) (context.Context, context.CancelFunc) {
	if wallMS <= 0 {
		wallMS = DefaultWallMS
	}
	return context.WithTimeout(parent, time.Duration(wallMS)*time.Millisecond)
}
