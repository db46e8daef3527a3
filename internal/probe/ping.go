package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// PingProber shells out to the system ping executable for a single echo.
type PingProber struct {
	Binary   string
	Platform Platform
	goos     string
}

func NewPingProber(binary string) *PingProber {
	if binary == "" {
		binary = "ping"
	}
	return &PingProber{Binary: binary, Platform: CurrentPlatform(), goos: runtime.GOOS}
}

// Args builds the command line for one echo request.
func (p *PingProber) Args(host string, timeout time.Duration, packetSize int) []string {
	if p.Platform == Windows {
		return []string{
			"-n", "1",
			"-w", strconv.FormatInt(timeout.Milliseconds(), 10),
			"-l", strconv.Itoa(packetSize),
			host,
		}
	}
	args := []string{"-c", "1", "-s", strconv.Itoa(packetSize)}
	if p.goos == "linux" {
		// -W takes whole seconds on iputils
		secs := int((timeout + time.Second - 1) / time.Second)
		if secs < 1 {
			secs = 1
		}
		args = append(args, "-W", strconv.Itoa(secs))
	}
	return append(args, host)
}

func (p *PingProber) Probe(ctx context.Context, host string, timeout time.Duration, packetSize int) (RawResult, error) {
	if host == "" || strings.HasPrefix(host, "-") {
		return RawResult{}, &InvocationError{Host: host, Err: errors.New("malformed host argument")}
	}
	path, err := exec.LookPath(p.Binary)
	if err != nil {
		return RawResult{}, &InvocationError{Host: host, Err: err}
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(cctx, path, p.Args(host, timeout, packetSize)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 250 * time.Millisecond

	start := time.Now()
	runErr := cmd.Run()
	res := RawResult{
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
		Elapsed: time.Since(start),
	}

	switch {
	case ctx.Err() != nil:
		res.Detail = "probe cancelled"
		return res, nil
	case errors.Is(cctx.Err(), context.DeadlineExceeded):
		res.Detail = fmt.Sprintf("timeout after %dms", timeout.Milliseconds())
		return res, nil
	case runErr != nil:
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return res, &InvocationError{Host: host, Err: runErr}
		}
		res.Detail = failureDetail(res.Stdout, res.Stderr, exitErr)
		return res, nil
	}

	res.Success = true
	// Windows ping exits 0 on "Destination host unreachable"; only a reply
	// carrying a TTL counts.
	if p.Platform == Windows && !strings.Contains(strings.ToUpper(res.Stdout), "TTL=") {
		res.Success = false
		res.Detail = failureDetail(res.Stdout, res.Stderr, nil)
	}
	return res, nil
}

func failureDetail(stdout, stderr string, exitErr *exec.ExitError) string {
	if line := firstLine(stderr); line != "" {
		return line
	}
	for _, line := range strings.Split(stdout, "\n") {
		l := strings.ToLower(line)
		if strings.Contains(l, "unreachable") || strings.Contains(l, "timed out") || strings.Contains(l, "loss") {
			return strings.TrimSpace(line)
		}
	}
	if exitErr != nil {
		return exitErr.Error()
	}
	return "no reply"
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
