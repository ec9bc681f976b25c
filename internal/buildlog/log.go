// Package buildlog is a trimmed adaptation of lnd's build.NewSubLogger: it
// gives every package in this repository a shared way to obtain its
// subsystem logger, without pulling in the teacher's full build-tag-driven
// deployment/rotation machinery (Development vs Production flavors, a log
// rotator), which this daemon has no use for — it always runs as one
// binary writing to one configured destination.
package buildlog

import (
	"io"
	"os"

	"github.com/btcsuite/btclog/v2"
)

// backend is the single log backend every subsystem logger is carved out
// of. It writes to stdout; nothing in cmd/gossipd calls SetOutput, so
// every package's init() builds its UseLogger sub-logger on stdout.
var backend = btclog.NewSLogger(btclog.NewDefaultHandler(os.Stdout))

// SetOutput repoints the shared backend at w. Must be called, if at all,
// before any subsystem logger is constructed.
func SetOutput(w io.Writer) {
	backend = btclog.NewSLogger(btclog.NewDefaultHandler(w))
}

// NewSubLogger returns a leveled logger for the given subsystem code
// (e.g. "GSSP", "GRPH"), or genLogger(subsystem) if a non-nil generator
// is supplied by a caller that wants to share a specific backend, mirroring
// the (subsystem string, genSubLogger func(string) btclog.Logger) shape
// the teacher's build.NewSubLogger uses.
func NewSubLogger(subsystem string, genLogger func(string) btclog.Logger) btclog.Logger {
	if genLogger != nil {
		return genLogger(subsystem)
	}
	return backend.SubSystem(subsystem)
}
