package http

import (
	"net/http"

	"github.com/arbiterhq/arbiter/internal/service"
)

// GetCouncilConfig returns the current debate configuration.
func (h *Handlers) GetCouncilConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.council.Config())
}

// UpdateCouncilConfig replaces the debate configuration.
func (h *Handlers) UpdateCouncilConfig(w http.ResponseWriter, r *http.Request) {
	cfg, ok := readJSON[service.CouncilConfig](w, r)
	if !ok {
		return
	}
	if err := h.council.SetConfig(cfg); err != nil {
		writeDomainError(w, err, "invalid council config")
		return
	}
	writeJSON(w, http.StatusOK, h.council.Config())
}

// ListReviewers returns the roster with live availability.
func (h *Handlers) ListReviewers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.council.Reviewers(r.Context()))
}

// ReviewerAnalytics returns running stats plus performance score for
// every reviewer seen in a debate so far.
func (h *Handlers) ReviewerAnalytics(w http.ResponseWriter, _ *http.Request) {
	stats := h.analytics.Reviewers()
	type entry struct {
		service.ReviewerStats
		PerformanceScore float64 `json:"performanceScore"`
	}
	out := make([]entry, 0, len(stats))
	for _, st := range stats {
		out = append(out, entry{
			ReviewerStats:    st,
			PerformanceScore: h.analytics.PerformanceScore(st.Reviewer),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// HistoryAnalytics returns the on-demand summary over stored records.
func (h *Handlers) HistoryAnalytics(w http.ResponseWriter, r *http.Request) {
	a, err := h.history.Analytics(r.Context())
	if err != nil {
		writeDomainError(w, err, "analytics unavailable")
		return
	}
	writeJSON(w, http.StatusOK, a)
}
