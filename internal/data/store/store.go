package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/maturity-assessment-backend/internal/data/aggregates"
	"github.com/yungbote/maturity-assessment-backend/internal/data/repos"
	domainagg "github.com/yungbote/maturity-assessment-backend/internal/domain/aggregates"
	"github.com/yungbote/maturity-assessment-backend/internal/domain/assessment"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/dbctx"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/logger"
)

// GormStore implements services.Store and services.AdminStore over the gorm
// repos. Multi-table writes go through the session aggregate.
type GormStore struct {
	log       *logger.Logger
	sessions  repos.SessionRepo
	responses repos.ResponseRepo
	progress  repos.StageProgressRepo
	results   repos.ResultSummaryRepo
	agg       domainagg.AssessmentSessionAggregate
	now       func() time.Time
}

type Options struct {
	Hooks  aggregates.Hooks
	Runner aggregates.TxRunner
	Now    func() time.Time
}

func New(db *gorm.DB, baseLog *logger.Logger, opts Options) *GormStore {
	log := baseLog.With("component", "GormStore")
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	s := &GormStore{
		log:       log,
		sessions:  repos.NewSessionRepo(db, baseLog),
		responses: repos.NewResponseRepo(db, baseLog),
		progress:  repos.NewStageProgressRepo(db, baseLog),
		results:   repos.NewResultSummaryRepo(db, baseLog),
		now:       now,
	}
	s.agg = aggregates.NewAssessmentSessionAggregate(aggregates.AssessmentSessionAggregateDeps{
		Base:      aggregates.BaseDeps{DB: db, Log: baseLog, Runner: opts.Runner, Hooks: opts.Hooks, Now: now},
		Sessions:  s.sessions,
		Responses: s.responses,
		Progress:  s.progress,
		Results:   s.results,
		Audit:     repos.NewAuditLogRepo(db, baseLog),
	})
	return s
}

func bg(ctx context.Context) dbctx.Context { return dbctx.Background(ctx) }

func (s *GormStore) PutAnswer(ctx context.Context, answer *assessment.SurveyResponse) error {
	return aggregates.MapError("Store.PutAnswer", s.responses.Upsert(bg(ctx), answer))
}

func (s *GormStore) ListAnswers(ctx context.Context, sessionID uuid.UUID) ([]*assessment.SurveyResponse, error) {
	return s.responses.ListBySession(bg(ctx), sessionID)
}

func (s *GormStore) DeleteAnswer(ctx context.Context, sessionID uuid.UUID, stage, capability string) (bool, error) {
	return s.responses.Delete(bg(ctx), sessionID, stage, capability)
}

func (s *GormStore) UpsertStageProgress(ctx context.Context, in domainagg.RecordStageProgressInput) (domainagg.RecordStageProgressResult, error) {
	return s.agg.RecordStageProgress(ctx, in)
}

func (s *GormStore) ListStageProgress(ctx context.Context, sessionID uuid.UUID) ([]*assessment.StageProgress, error) {
	return s.progress.ListBySession(bg(ctx), sessionID)
}

func (s *GormStore) ReplaceResults(ctx context.Context, sessionID uuid.UUID, score domainagg.ScoreFunc) ([]*assessment.ResultSummary, error) {
	return s.agg.ReplaceResults(ctx, sessionID, score)
}

func (s *GormStore) ListResults(ctx context.Context, sessionID uuid.UUID) ([]*assessment.ResultSummary, error) {
	return s.results.ListBySession(bg(ctx), sessionID)
}

func (s *GormStore) FindSessionByID(ctx context.Context, sessionID uuid.UUID) (*assessment.SurveySession, error) {
	return s.sessions.GetByID(bg(ctx), sessionID)
}

func (s *GormStore) FindSessionByEmail(ctx context.Context, email string) (*assessment.SurveySession, error) {
	return s.sessions.LatestByEmail(bg(ctx), email)
}

func (s *GormStore) FindSessionByCompany(ctx context.Context, company string) (*assessment.SurveySession, error) {
	return s.sessions.LatestByCompany(bg(ctx), company)
}

func (s *GormStore) FindSessionsByCompany(ctx context.Context, company string) ([]*assessment.SurveySession, error) {
	return s.sessions.ListByCompany(bg(ctx), company)
}

func (s *GormStore) CreateSession(ctx context.Context, sess *assessment.SurveySession) error {
	return s.agg.CreateSession(ctx, sess)
}

func (s *GormStore) DeleteSession(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	return s.agg.DeleteSession(ctx, sessionID)
}

func (s *GormStore) TouchSession(ctx context.Context, sessionID uuid.UUID, at time.Time) error {
	return s.sessions.Touch(bg(ctx), sessionID, at.UTC())
}

func (s *GormStore) UpdateSessionMetadata(ctx context.Context, sessionID uuid.UUID, patch assessment.SessionMetadataPatch) (*assessment.SurveySession, error) {
	return s.agg.UpdateMetadata(ctx, sessionID, patch)
}
