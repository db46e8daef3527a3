package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/hamed0406/pingmonitor/internal/domain"
	"github.com/hamed0406/pingmonitor/internal/stats"
)

const maxBodyBytes = 1 << 16

// startPayload keeps optional fields as pointers so an explicit zero is
// validated rather than replaced by the default.
type startPayload struct {
	Host            string `json:"host"`
	TimeoutMS       *int   `json:"timeoutMs"`
	PacketSizeBytes *int   `json:"packetSizeBytes"`
	DurationMS      *int   `json:"durationMs"`
}

func (p startPayload) request() domain.ProbeRequest {
	req := domain.ProbeRequest{
		Host:            strings.TrimSpace(p.Host),
		TimeoutMS:       domain.DefaultTimeoutMS,
		PacketSizeBytes: domain.DefaultPacketSizeBytes,
		DurationMS:      domain.DefaultDurationMS,
	}
	if p.TimeoutMS != nil {
		req.TimeoutMS = *p.TimeoutMS
	}
	if p.PacketSizeBytes != nil {
		req.PacketSizeBytes = *p.PacketSizeBytes
	}
	if p.DurationMS != nil {
		req.DurationMS = *p.DurationMS
	}
	return req
}

type startResponse struct {
	Message string              `json:"message"`
	Params  domain.ProbeRequest `json:"params"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	var p startPayload
	if err := dec.Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + decodeReason(err)})
		return
	}

	req := p.request()
	if err := req.Validate(s.opts.Bounds); err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Error(), Field: ve.Field})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	sess, err := s.Engine.Start(req, s.Hub.Snapshot())
	if err != nil {
		s.Logger.Error("start_session_failed", zap.String("host", req.Host), zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "Monitoring unavailable"})
		return
	}
	s.Logger.Info("probe_started", zap.String("session_id", sess.ID), zap.String("host", req.Host))
	writeJSON(w, http.StatusOK, startResponse{Message: "Monitoring started", Params: req})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	rows, err := s.Results.Recent(r.Context(), domain.MaxHistory)
	if err != nil {
		s.Logger.Error("history_query_failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
		return
	}
	if rows == nil {
		rows = []domain.HistoryRecord{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleHistoryStats(w http.ResponseWriter, r *http.Request) {
	rows, err := s.Results.Recent(r.Context(), domain.MaxHistory)
	if err != nil {
		s.Logger.Error("history_stats_query_failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, stats.Summarize(rows))
}

func decodeReason(err error) string {
	switch {
	case errors.Is(err, io.EOF):
		return "empty body"
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		return strings.TrimPrefix(err.Error(), "json: ") + " is not allowed"
	default:
		return err.Error()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
