package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Debates
		r.Post("/debates", h.RunDebate)
		r.Get("/debates", h.ListDebates)
		r.Get("/debates/export/csv", h.ExportDebatesCSV)
		r.Post("/debates/prune", h.PruneDebates)
		r.Get("/debates/{id}", h.GetDebate)
		r.Delete("/debates/{id}", h.DeleteDebate)

		// Council
		r.Get("/council/config", h.GetCouncilConfig)
		r.Put("/council/config", h.UpdateCouncilConfig)
		r.Get("/reviewers", h.ListReviewers)

		// Analytics
		r.Get("/analytics", h.HistoryAnalytics)
		r.Get("/analytics/reviewers", h.ReviewerAnalytics)

		// Debate templates
		r.Get("/templates", h.ListTemplates)
		r.Post("/templates", h.CreateTemplate)
		r.Get("/templates/{id}", h.GetTemplate)
		r.Delete("/templates/{id}", h.DeleteTemplate)

		// Autopilot
		r.Get("/autopilot", h.AutopilotStatus)
		r.Post("/autopilot/start", h.StartAutopilot)
		r.Post("/autopilot/stop", h.StopAutopilot)
		r.Post("/autopilot/pause", h.PauseAutopilot)
		r.Post("/autopilot/resume", h.ResumeAutopilot)
		r.Post("/autopilot/reset", h.ResetAutopilotCounter)
	})
}
