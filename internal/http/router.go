package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/maturity-assessment-backend/internal/http/handlers"
	httpMW "github.com/yungbote/maturity-assessment-backend/internal/http/middleware"
	"github.com/yungbote/maturity-assessment-backend/internal/observability"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	AllowedOrigins []string
	TracingEnabled bool
	ServiceName    string

	SessionHandler  *httpH.SessionHandler
	ResponseHandler *httpH.ResponseHandler
	ProgressHandler *httpH.ProgressHandler
	ResultsHandler  *httpH.ResultsHandler
	AttemptHandler  *httpH.AttemptHandler
	RealtimeHandler *httpH.RealtimeHandler

	// AdminHandler is mounted only when AdminAuth is also set.
	AdminHandler *httpH.AdminHandler
	AdminAuth    *httpMW.AdminAuth

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingEnabled {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	{
		if cfg.SessionHandler != nil {
			api.POST("/session", cfg.SessionHandler.Create)
			api.GET("/session", cfg.SessionHandler.Get)
		}

		if cfg.ResponseHandler != nil {
			api.POST("/response", cfg.ResponseHandler.Save)
			api.GET("/response", cfg.ResponseHandler.List)
		}

		if cfg.ProgressHandler != nil {
			api.POST("/progress", cfg.ProgressHandler.Record)
			api.GET("/progress", cfg.ProgressHandler.Get)
		}

		if cfg.ResultsHandler != nil {
			api.POST("/results", cfg.ResultsHandler.Recompute)
			api.GET("/results", cfg.ResultsHandler.Get)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			api.GET("/sessions/:id/events", cfg.RealtimeHandler.Stream)
		}

		// Attempts (server-side session controller)
		if cfg.AttemptHandler != nil {
			attempts := api.Group("/attempts")
			attempts.POST("", cfg.AttemptHandler.Open)
			attempts.GET("/:id", cfg.AttemptHandler.Get)
			attempts.DELETE("/:id", cfg.AttemptHandler.Discard)
			attempts.POST("/:id/begin", cfg.AttemptHandler.Begin)
			attempts.POST("/:id/identity", cfg.AttemptHandler.SubmitIdentity)
			attempts.POST("/:id/identity/load-existing", cfg.AttemptHandler.LoadExisting)
			attempts.POST("/:id/identity/create-anyway", cfg.AttemptHandler.CreateAnyway)
			attempts.POST("/:id/recover", cfg.AttemptHandler.Recover)
			attempts.POST("/:id/select", cfg.AttemptHandler.Select)
			attempts.POST("/:id/answers", cfg.AttemptHandler.SetAnswers)
			attempts.POST("/:id/navigate", cfg.AttemptHandler.Navigate)
			attempts.POST("/:id/complete", cfg.AttemptHandler.Complete)
			attempts.POST("/:id/start-new", cfg.AttemptHandler.StartNew)
		}
	}

	if cfg.AdminHandler != nil && cfg.AdminAuth != nil {
		admin := api.Group("/admin")
		admin.Use(cfg.AdminAuth.RequireToken())
		{
			admin.GET("/stats", cfg.AdminHandler.Stats)
			admin.GET("/analytics", cfg.AdminHandler.Analytics)
			admin.GET("/surveys", cfg.AdminHandler.ListSurveys)
			admin.GET("/surveys/:id", cfg.AdminHandler.GetSurvey)
			admin.PATCH("/surveys/:id", cfg.AdminHandler.UpdateSurvey)
			admin.DELETE("/surveys/:id", cfg.AdminHandler.DeleteSurvey)
			admin.DELETE("/responses", cfg.AdminHandler.DeleteResponse)
		}
	}

	return r
}
