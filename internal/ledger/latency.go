package ledger

import "github.com/hamed0406/statusledger/internal/domain"

// LatencyRetention bounds the recent latency window, in seconds.
const LatencyRetention int64 = 12 * 60 * 60

// AppendLatency adds s to h and evicts samples older than LatencyRetention
// relative to s.Time. A nil h starts a new history.
func AppendLatency(h *domain.LatencyHistory, s domain.LatencySample) *domain.LatencyHistory {
	if h == nil {
		h = &domain.LatencyHistory{}
	}
	h.Recent = append(h.Recent, s)

	cutoff := s.Time - LatencyRetention
	i := 0
	for i < len(h.Recent) && h.Recent[i].Time < cutoff {
		i++
	}
	if i > 0 {
		h.Recent = append(h.Recent[:0:0], h.Recent[i:]...)
	}
	return h
}
