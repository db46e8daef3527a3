package domain

import (
	"fmt"
	"net"
	"strings"
)

const (
	DefaultTimeoutMS       = 1000
	DefaultPacketSizeBytes = 32
	DefaultDurationMS      = 60000
)

// Bounds are the accepted ranges for a ProbeRequest (inclusive).
type Bounds struct {
	MinTimeoutMS  int `yaml:"min_timeout_ms"`
	MaxTimeoutMS  int `yaml:"max_timeout_ms"`
	MinPacketSize int `yaml:"min_packet_size"`
	MaxPacketSize int `yaml:"max_packet_size"`
	MinDurationMS int `yaml:"min_duration_ms"`
	MaxDurationMS int `yaml:"max_duration_ms"`
}

func DefaultBounds() Bounds {
	return Bounds{
		MinTimeoutMS:  100,
		MaxTimeoutMS:  5000,
		MinPacketSize: 32,
		MaxPacketSize: 65507,
		MinDurationMS: 1000,
		MaxDurationMS: 3600000,
	}
}

// ValidationError reports a malformed or out-of-range request field.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s %s", e.Field, e.Msg)
}

// WithDefaults fills zero-valued optional fields.
func (r ProbeRequest) WithDefaults() ProbeRequest {
	r.Host = strings.TrimSpace(r.Host)
	if r.TimeoutMS == 0 {
		r.TimeoutMS = DefaultTimeoutMS
	}
	if r.PacketSizeBytes == 0 {
		r.PacketSizeBytes = DefaultPacketSizeBytes
	}
	if r.DurationMS == 0 {
		r.DurationMS = DefaultDurationMS
	}
	return r
}

// Validate checks the request against b. The first violation is returned.
func (r ProbeRequest) Validate(b Bounds) error {
	if r.Host == "" {
		return &ValidationError{Field: "host", Msg: "is required"}
	}
	if !ValidHost(r.Host) {
		return &ValidationError{Field: "host", Msg: "must be a valid IP address or hostname"}
	}
	if err := inRange("timeoutMs", r.TimeoutMS, b.MinTimeoutMS, b.MaxTimeoutMS); err != nil {
		return err
	}
	if err := inRange("packetSizeBytes", r.PacketSizeBytes, b.MinPacketSize, b.MaxPacketSize); err != nil {
		return err
	}
	return inRange("durationMs", r.DurationMS, b.MinDurationMS, b.MaxDurationMS)
}

func inRange(field string, v, lo, hi int) error {
	if v < lo || v > hi {
		return &ValidationError{Field: field, Msg: fmt.Sprintf("must be between %d and %d", lo, hi)}
	}
	return nil
}

// ValidHost accepts a literal IP or an RFC 1123 hostname.
func ValidHost(h string) bool {
	if net.ParseIP(h) != nil {
		return true
	}
	h = strings.TrimSuffix(h, ".")
	if len(h) == 0 || len(h) > 253 {
		return false
	}
	for _, label := range strings.Split(h, ".") {
		if len(label) == 0 || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, c := range label {
			switch {
			case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
			default:
				return false
			}
		}
	}
	return true
}
