package debug

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Build flag for debug mode - can be overridden at build time
// go build -ldflags "-X github.com/standardbeagle/cxxgraph/internal/debug.EnableDebug=true"
var EnableDebug = "false"

// QuietMode tracks whether the driver is embedded in something that owns
// stdio (e.g. a library caller streaming ParseResults itself); debug output
// is suppressed entirely so it never corrupts the caller's own protocol.
var QuietMode = false

// debugOutput is the writer for debug output (defaults to nil, meaning no output)
var debugOutput io.Writer

// debugMutex protects access to debug output
var debugMutex sync.Mutex

// SetDebugOutput sets a custom writer for debug output.
// Pass nil to disable debug output entirely.
func SetDebugOutput(w io.Writer) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	debugOutput = w
}

// IsDebugEnabled returns true if debug mode is enabled and output isn't suppressed.
func IsDebugEnabled() bool {
	if QuietMode {
		return false
	}

	if EnableDebug == "true" {
		return true
	}

	if os.Getenv("DEBUG") == "1" || os.Getenv("DEBUG") == "true" {
		return true
	}

	return false
}

// getDebugWriter returns the writer for debug output, or nil if none is configured
func getDebugWriter() io.Writer {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	return debugOutput
}

// Log provides structured debug logging with component names
func Log(component, format string, args ...interface{}) {
	if !IsDebugEnabled() {
		return
	}
	w := getDebugWriter()
	if w == nil {
		return
	}
	fmt.Fprintf(w, "[DEBUG:%s] "+format, append([]interface{}{component}, args...)...)
}

// LogParse provides debug logging for parse-driver (C10) operations.
func LogParse(format string, args ...interface{}) {
	Log("PARSE", format, args...)
}

// LogResolve provides debug logging for the resolution cache (C2).
func LogResolve(format string, args ...interface{}) {
	Log("RESOLVE", format, args...)
}

// LogSink provides debug logging for the persistence sink.
func LogSink(format string, args ...interface{}) {
	Log("SINK", format, args...)
}
