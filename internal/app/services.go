package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/maturity-assessment-backend/internal/data/aggregates"
	datastore "github.com/yungbote/maturity-assessment-backend/internal/data/store"
	"github.com/yungbote/maturity-assessment-backend/internal/domain/survey"
	"github.com/yungbote/maturity-assessment-backend/internal/observability"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/logger"
	"github.com/yungbote/maturity-assessment-backend/internal/realtime"
	"github.com/yungbote/maturity-assessment-backend/internal/realtime/bus"
	"github.com/yungbote/maturity-assessment-backend/internal/services"
)

type Services struct {
	Definition *survey.Definition
	Store      *datastore.GormStore
	Emitter    realtime.Emitter

	Identity   services.IdentityResolver
	Answers    services.AnswerStore
	Scoring    services.ScoringEngine
	Progress   services.ProgressAggregator
	Results    services.ResultsService
	Controller services.SessionController
	Admin      services.AdminService
}

func loadDefinition(log *logger.Logger, path string) (*survey.Definition, error) {
	if path == "" {
		log.Info("Using embedded survey definition")
		return survey.Default()
	}
	log.Info("Loading survey definition", "path", path)
	return survey.Load(path)
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, sseHub *realtime.SSEHub, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	def, err := loadDefinition(log, cfg.DefinitionPath)
	if err != nil {
		return Services{}, fmt.Errorf("load survey definition: %w", err)
	}

	store := datastore.New(db, log, datastore.Options{
		Hooks:  aggregates.NewObservabilityHooks(metrics),
		Runner: aggregates.NewGormTxRunner(db),
	})

	// With Redis, every replica's forwarder feeds its own hub; without it the
	// hub is fed directly.
	local := &realtime.HubEmitter{Hub: sseHub, Metrics: metrics}
	var emitter realtime.Emitter = local
	if clients.SSEBus != nil {
		emitter = &bus.Emitter{Bus: clients.SSEBus, Fallback: local}
	}

	var locker services.DistributedLocker
	if clients.Locker != nil {
		locker = clients.Locker
	}

	identity := services.NewIdentityResolver(log, store, def, metrics)
	answers := services.NewAnswerStore(log, store, def, metrics)
	scoring := services.NewScoringEngine(log, services.ScoringEngineDeps{
		Store:   store,
		Locker:  locker,
		Emitter: emitter,
		Metrics: metrics,
	})
	progress := services.NewProgressAggregator(log, services.ProgressAggregatorDeps{
		Store:         store,
		Scoring:       scoring,
		Definition:    def,
		Emitter:       emitter,
		Metrics:       metrics,
		UnlockPercent: cfg.UnlockPercent,
	})
	results := services.NewResultsService(log, store, scoring, progress, def)
	controller := services.NewSessionController(log, services.SessionControllerDeps{
		Store:      store,
		Identity:   identity,
		Answers:    answers,
		Progress:   progress,
		Scoring:    scoring,
		Definition: def,
		Emitter:    emitter,
		Metrics:    metrics,
		Debounce:   cfg.AutosaveDebounce,
		IdleTTL:    cfg.AttemptIdleTTL,
	})
	admin := services.NewAdminService(log, services.AdminServiceDeps{
		Store:     store,
		Admin:     store,
		Answers:   answers,
		Scoring:   scoring,
		Canceller: controller,
		Emitter:   emitter,
	})

	return Services{
		Definition: def,
		Store:      store,
		Emitter:    emitter,
		Identity:   identity,
		Answers:    answers,
		Scoring:    scoring,
		Progress:   progress,
		Results:    results,
		Controller: controller,
		Admin:      admin,
	}, nil
}
