package domain

import "time"

// ProbeRequest describes one monitoring run. It is immutable once a session
// starts.
type ProbeRequest struct {
	Host            string `json:"host"`
	TimeoutMS       int    `json:"timeoutMs"`
	PacketSizeBytes int    `json:"packetSizeBytes"`
	DurationMS      int    `json:"durationMs"`
}

func (r ProbeRequest) Timeout() time.Duration {
	return time.Duration(r.TimeoutMS) * time.Millisecond
}

func (r ProbeRequest) Duration() time.Duration {
	return time.Duration(r.DurationMS) * time.Millisecond
}

// ProbeOutcome is the normalized result of one tick. Success=false always
// carries a nil ResponseTimeMS.
type ProbeOutcome struct {
	Timestamp       time.Time `json:"timestamp"`
	Host            string    `json:"host"`
	ResponseTimeMS  *float64  `json:"responseTime"` // nil when unknown
	PacketSizeBytes int       `json:"packetSize"`
	TimeoutMS       int       `json:"timeout"`
	Success         bool      `json:"success"`
	ErrorDetail     *string   `json:"error"` // nil on success
}

// HistoryRecord is a persisted outcome as read back from storage.
type HistoryRecord struct {
	ID              int64     `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	Host            string    `json:"host"`
	ResponseTimeMS  *float64  `json:"responseTime"`
	PacketSizeBytes int       `json:"packetSize"`
	TimeoutMS       int       `json:"timeout"`
	Success         bool      `json:"success"`
	ErrorDetail     *string   `json:"error"`
}

// MaxHistory caps every history read.
const MaxHistory = 1000

// Float64 and String build the optional fields above.
func Float64(v float64) *float64 { return &v }

func String(v string) *string { return &v }
