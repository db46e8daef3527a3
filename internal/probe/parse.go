package probe

import (
	"regexp"
	"strconv"
)

var (
	// "64 bytes from 1.1.1.1: icmp_seq=1 ttl=57 time=23.4 ms"
	posixTime = regexp.MustCompile(`time[=<]\s*(\d+(?:\.\d+)?)\s*ms`)
	// "Reply from 1.1.1.1: bytes=32 time=23ms TTL=57" or "time<1ms"
	windowsTime = regexp.MustCompile(`(?i)time\s*[=<]\s*(\d+(?:\.\d+)?)\s*ms`)
)

// ParseLatency extracts the first round-trip time from ping output. A bound
// such as "time<1ms" yields the bound itself. ok is false when the output
// holds no latency token.
func ParseLatency(output string, p Platform) (ms float64, ok bool) {
	re := posixTime
	if p == Windows {
		re = windowsTime
	}
	m := re.FindStringSubmatch(output)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
