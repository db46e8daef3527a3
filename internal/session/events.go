package session

import (
	"time"

	"github.com/hamed0406/pingmonitor/internal/domain"
)

// Event types pushed to subscribers.
const (
	TypeInfo  = "info"
	TypePing  = "ping"
	TypeError = "error"
)

// FinishedMessage is the text of the terminal info event.
const FinishedMessage = "Monitoring finished"

// Notice is an info or error event.
type Notice struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// PingEvent carries one tick outcome.
type PingEvent struct {
	Type         string    `json:"type"`
	Timestamp    time.Time `json:"timestamp"`
	ResponseTime *float64  `json:"responseTime"`
	Success      bool      `json:"success"`
	Error        *string   `json:"error"`
}

func Info(msg string) Notice { return Notice{Type: TypeInfo, Message: msg} }

func Error(msg string) Notice { return Notice{Type: TypeError, Message: msg} }

func Finished() Notice { return Info(FinishedMessage) }

func Ping(o domain.ProbeOutcome) PingEvent {
	return PingEvent{
		Type:         TypePing,
		Timestamp:    o.Timestamp,
		ResponseTime: o.ResponseTimeMS,
		Success:      o.Success,
		Error:        o.ErrorDetail,
	}
}

// Subscriber is a live transport receiving a session's events. The engine
// references subscribers but never owns their lifecycle.
type Subscriber interface {
	ID() string
	// Send queues msg for delivery. It must not block for long; an error means
	// the subscriber is gone.
	Send(msg any) error
	// OnClose registers fn to run once when the transport closes. If it is
	// already closed fn runs immediately.
	OnClose(fn func())
}
