package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/arbiterhq/arbiter/internal/domain/debate"
	"github.com/arbiterhq/arbiter/internal/domain/task"
	"github.com/arbiterhq/arbiter/internal/service"
)

type runDebateRequest struct {
	task.CreateRequest
	TemplateID string `json:"templateId,omitempty"`
}

// RunDebate submits a task for deliberation and returns the stored record.
func (h *Handlers) RunDebate(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[runDebateRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.Description, "description") {
		return
	}

	t := &task.Task{
		ID:          uuid.NewString(),
		Description: req.Description,
		Context:     req.Context,
		Files:       req.Files,
		Type:        req.Type,
		CreatedAt:   time.Now().UTC(),
	}

	var rec *debate.Record
	var err error
	if req.TemplateID != "" {
		tpl, tplErr := h.templates.Get(req.TemplateID)
		if tplErr != nil {
			writeDomainError(w, tplErr, "template not found")
			return
		}
		rec, err = h.council.RunDebateWithTemplate(r.Context(), t, tpl)
	} else {
		rec, err = h.council.RunDebate(r.Context(), t)
	}
	if err != nil {
		writeDomainError(w, err, "debate failed")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// GetDebate returns one stored debate record.
func (h *Handlers) GetDebate(w http.ResponseWriter, r *http.Request) {
	rec, err := h.history.Get(urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "debate record not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ListDebates queries stored records, newest first.
func (h *Handlers) ListDebates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := service.HistoryFilter{
		SessionID: q.Get("session"),
		TaskType:  q.Get("type"),
		Mode:      debate.ConsensusMode(q.Get("mode")),
		Substring: q.Get("q"),
	}
	if raw := q.Get("since"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC 3339")
			return
		}
		filter.Since = ts
	}
	if raw := q.Get("until"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "until must be RFC 3339")
			return
		}
		filter.Until = ts
	}

	records := h.history.Query(filter)
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		if limit < len(records) {
			records = records[:limit]
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"count":   len(records),
	})
}

// DeleteDebate removes one stored record.
func (h *Handlers) DeleteDebate(w http.ResponseWriter, r *http.Request) {
	if err := h.history.Delete(r.Context(), urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "debate record not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type pruneRequest struct {
	Oldest    int    `json:"oldest,omitempty"`
	OlderThan string `json:"olderThan,omitempty"` // Go duration, e.g. "720h"
}

// PruneDebates removes records by count or by age.
func (h *Handlers) PruneDebates(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[pruneRequest](w, r)
	if !ok {
		return
	}

	removed := 0
	switch {
	case req.Oldest > 0:
		removed = h.history.PruneOldest(r.Context(), req.Oldest)
	case req.OlderThan != "":
		maxAge, err := time.ParseDuration(req.OlderThan)
		if err != nil || maxAge <= 0 {
			writeError(w, http.StatusBadRequest, "olderThan must be a positive duration")
			return
		}
		removed = h.history.PruneOlderThan(r.Context(), maxAge)
	default:
		writeError(w, http.StatusBadRequest, "oldest or olderThan is required")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// ExportDebatesCSV streams the full history as CSV.
func (h *Handlers) ExportDebatesCSV(w http.ResponseWriter, _ *http.Request) {
	out, err := h.history.ExportCSV()
	if err != nil {
		writeDomainError(w, err, "export failed")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="debates.csv"`)
	_, _ = w.Write([]byte(out))
}
