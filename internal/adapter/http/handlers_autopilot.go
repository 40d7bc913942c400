package http

import (
	"context"
	"net/http"
)

// autopilotStatus is the response shape for all autopilot control calls.
// Fields that have no value yet are omitted rather than sent as zeroes.
func (h *Handlers) autopilotStatus() map[string]any {
	st := h.autopilot.Status()
	resp := map[string]any{
		"state":     st.State,
		"approvals": st.Approvals,
	}
	if !st.LastPollAt.IsZero() {
		resp["lastPollAt"] = st.LastPollAt
	}
	if st.LastTask != nil {
		resp["lastTask"] = st.LastTask
	}
	if st.LastDecision != nil {
		resp["lastDecision"] = st.LastDecision
	}
	if st.PauseReason != "" {
		resp["pauseReason"] = st.PauseReason
	}
	return resp
}

func (h *Handlers) requireAutopilot(w http.ResponseWriter) bool {
	if h.autopilot == nil {
		writeError(w, http.StatusBadRequest, "autopilot is not configured")
		return false
	}
	return true
}

// AutopilotStatus reports the loop state and approval counter.
func (h *Handlers) AutopilotStatus(w http.ResponseWriter, _ *http.Request) {
	if !h.requireAutopilot(w) {
		return
	}
	writeJSON(w, http.StatusOK, h.autopilotStatus())
}

// StartAutopilot begins the polling loop.
func (h *Handlers) StartAutopilot(w http.ResponseWriter, r *http.Request) {
	if !h.requireAutopilot(w) {
		return
	}
	// The loop outlives the request; it stops via the stop endpoint or
	// process shutdown.
	if err := h.autopilot.Start(context.WithoutCancel(r.Context())); err != nil {
		writeDomainError(w, err, "autopilot not started")
		return
	}
	writeJSON(w, http.StatusOK, h.autopilotStatus())
}

// StopAutopilot halts the polling loop.
func (h *Handlers) StopAutopilot(w http.ResponseWriter, _ *http.Request) {
	if !h.requireAutopilot(w) {
		return
	}
	h.autopilot.Stop()
	writeJSON(w, http.StatusOK, h.autopilotStatus())
}

// PauseAutopilot suspends polling.
func (h *Handlers) PauseAutopilot(w http.ResponseWriter, r *http.Request) {
	if !h.requireAutopilot(w) {
		return
	}
	h.autopilot.Pause(r.Context())
	writeJSON(w, http.StatusOK, h.autopilotStatus())
}

// ResumeAutopilot continues a paused loop.
func (h *Handlers) ResumeAutopilot(w http.ResponseWriter, r *http.Request) {
	if !h.requireAutopilot(w) {
		return
	}
	h.autopilot.Resume(r.Context())
	writeJSON(w, http.StatusOK, h.autopilotStatus())
}

// ResetAutopilotCounter zeroes the auto-approval counter.
func (h *Handlers) ResetAutopilotCounter(w http.ResponseWriter, _ *http.Request) {
	if !h.requireAutopilot(w) {
		return
	}
	h.autopilot.ResetCounter()
	writeJSON(w, http.StatusOK, h.autopilotStatus())
}
