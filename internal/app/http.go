package app

import (
	apphttp "github.com/yungbote/maturity-assessment-backend/internal/http"
	httpMW "github.com/yungbote/maturity-assessment-backend/internal/http/middleware"
	"github.com/yungbote/maturity-assessment-backend/internal/observability"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/logger"
)

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, metrics *observability.Metrics, tracing bool) *apphttp.Server {
	var adminAuth *httpMW.AdminAuth
	if handlers.Admin != nil {
		adminAuth = httpMW.NewAdminAuth(log, cfg.AdminToken)
	}
	return apphttp.NewServer(cfg.Addr(), apphttp.RouterConfig{
		Log:             log,
		Metrics:         metrics,
		AllowedOrigins:  cfg.AllowedOrigins,
		TracingEnabled:  tracing,
		ServiceName:     cfg.ServiceName,
		HealthHandler:   handlers.Health,
		SessionHandler:  handlers.Session,
		ResponseHandler: handlers.Response,
		ProgressHandler: handlers.Progress,
		ResultsHandler:  handlers.Results,
		AttemptHandler:  handlers.Attempt,
		RealtimeHandler: handlers.Realtime,
		AdminHandler:    handlers.Admin,
		AdminAuth:       adminAuth,
	})
}
