// Package stats summarizes stored probe outcomes.
package stats

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/hamed0406/pingmonitor/internal/domain"
)

// Summary describes a window of history rows. Latency fields cover
// successful rows with a known round-trip time and are nil when there are
// none.
type Summary struct {
	Count       int      `json:"count"`
	Successes   int      `json:"successes"`
	Failures    int      `json:"failures"`
	SuccessRate float64  `json:"successRate"`
	MeanMS      *float64 `json:"meanMs"`
	StdDevMS    *float64 `json:"stdDevMs"`
	MinMS       *float64 `json:"minMs"`
	P50MS       *float64 `json:"p50Ms"`
	P95MS       *float64 `json:"p95Ms"`
	MaxMS       *float64 `json:"maxMs"`
}

func Summarize(records []domain.HistoryRecord) Summary {
	s := Summary{Count: len(records)}
	latencies := make([]float64, 0, len(records))
	for _, r := range records {
		if !r.Success {
			s.Failures++
			continue
		}
		s.Successes++
		if r.ResponseTimeMS != nil {
			latencies = append(latencies, *r.ResponseTimeMS)
		}
	}
	if s.Count > 0 {
		s.SuccessRate = float64(s.Successes) / float64(s.Count)
	}
	if len(latencies) == 0 {
		return s
	}

	// Quantile requires sorted input.
	sort.Float64s(latencies)
	mean, std := stat.MeanStdDev(latencies, nil)
	if len(latencies) < 2 {
		std = 0
	}
	s.MeanMS = &mean
	s.StdDevMS = &std
	s.MinMS = domain.Float64(latencies[0])
	s.MaxMS = domain.Float64(latencies[len(latencies)-1])
	s.P50MS = domain.Float64(stat.Quantile(0.5, stat.Empirical, latencies, nil))
	s.P95MS = domain.Float64(stat.Quantile(0.95, stat.Empirical, latencies, nil))
	return s
}
