package app

import (
	"gorm.io/gorm"

	httpH "github.com/yungbote/maturity-assessment-backend/internal/http/handlers"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/logger"
	"github.com/yungbote/maturity-assessment-backend/internal/realtime"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Session  *httpH.SessionHandler
	Response *httpH.ResponseHandler
	Progress *httpH.ProgressHandler
	Results  *httpH.ResultsHandler
	Attempt  *httpH.AttemptHandler
	Realtime *httpH.RealtimeHandler
	Admin    *httpH.AdminHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, cfg Config, services Services, sseHub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	h := Handlers{
		Health:   httpH.NewHealthHandler(db),
		Session:  httpH.NewSessionHandler(services.Identity),
		Response: httpH.NewResponseHandler(services.Answers),
		Progress: httpH.NewProgressHandler(services.Progress),
		Results:  httpH.NewResultsHandler(services.Results),
		Attempt:  httpH.NewAttemptHandler(services.Controller),
		Realtime: httpH.NewRealtimeHandler(log, sseHub),
	}
	if cfg.AdminEnabled {
		h.Admin = httpH.NewAdminHandler(services.Admin)
	}
	return h
}
