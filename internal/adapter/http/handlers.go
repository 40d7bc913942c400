// Package http implements the REST adapter over the deliberation services.
package http

import (
	"log/slog"

	"github.com/arbiterhq/arbiter/internal/service"
)

// Handlers bundles the services the REST surface exposes.
type Handlers struct {
	council   *service.CouncilService
	history   *service.HistoryService
	templates *service.TemplateService
	analytics *service.AnalyticsService
	autopilot *service.AutopilotService
	log       *slog.Logger
}

// NewHandlers creates the handler set. autopilot may be nil when the
// loop is disabled; its endpoints then return 400.
func NewHandlers(
	council *service.CouncilService,
	history *service.HistoryService,
	templates *service.TemplateService,
	analytics *service.AnalyticsService,
	autopilot *service.AutopilotService,
	log *slog.Logger,
) *Handlers {
	return &Handlers{
		council:   council,
		history:   history,
		templates: templates,
		analytics: analytics,
		autopilot: autopilot,
		log:       log,
	}
}
