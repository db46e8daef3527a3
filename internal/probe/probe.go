package probe

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

// Platform selects the ping argument syntax and output grammar.
type Platform int

const (
	Posix Platform = iota
	Windows
)

func (p Platform) String() string {
	if p == Windows {
		return "windows"
	}
	return "posix"
}

// CurrentPlatform reports the family of the running OS.
func CurrentPlatform() Platform {
	if runtime.GOOS == "windows" {
		return Windows
	}
	return Posix
}

// RawResult is what one reachability check produced before parsing.
//
// Fields:
//   - Success: the tool reported a reply within the timeout.
//   - LatencyMS: set only when the prober measured latency directly; otherwise
//     the caller parses Stdout.
//   - Detail: a short human-readable failure reason, empty on success.
type RawResult struct {
	Stdout    string
	Stderr    string
	Success   bool
	LatencyMS *float64
	Detail    string
	Elapsed   time.Duration
}

// Prober runs one reachability check. Unreachable hosts and packet loss are
// normal results with Success=false; only a check that could not be run at
// all returns an error.
type Prober interface {
	Probe(ctx context.Context, host string, timeout time.Duration, packetSize int) (RawResult, error)
}

// InvocationError means the reachability tool itself could not run.
type InvocationError struct {
	Host string
	Err  error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Host, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }
