package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	domainagg "github.com/yungbote/maturity-assessment-backend/internal/domain/aggregates"
	"github.com/yungbote/maturity-assessment-backend/internal/domain/assessment"
)

// Store is the persistence surface the assessment engine runs on. Lookups
// return (nil, nil) when nothing matches.
type Store interface {
	PutAnswer(ctx context.Context, answer *assessment.SurveyResponse) error
	ListAnswers(ctx context.Context, sessionID uuid.UUID) ([]*assessment.SurveyResponse, error)
	DeleteAnswer(ctx context.Context, sessionID uuid.UUID, stage, capability string) (bool, error)

	// UpsertStageProgress writes one stage row and refreshes the session
	// completion cache in the same transaction.
	UpsertStageProgress(ctx context.Context, in domainagg.RecordStageProgressInput) (domainagg.RecordStageProgressResult, error)
	ListStageProgress(ctx context.Context, sessionID uuid.UUID) ([]*assessment.StageProgress, error)

	// ReplaceResults atomically swaps the session's result rows for score(answers).
	ReplaceResults(ctx context.Context, sessionID uuid.UUID, score domainagg.ScoreFunc) ([]*assessment.ResultSummary, error)
	ListResults(ctx context.Context, sessionID uuid.UUID) ([]*assessment.ResultSummary, error)

	FindSessionByID(ctx context.Context, sessionID uuid.UUID) (*assessment.SurveySession, error)
	FindSessionByEmail(ctx context.Context, email string) (*assessment.SurveySession, error)
	FindSessionByCompany(ctx context.Context, company string) (*assessment.SurveySession, error)
	FindSessionsByCompany(ctx context.Context, company string) ([]*assessment.SurveySession, error)
	CreateSession(ctx context.Context, s *assessment.SurveySession) error
	DeleteSession(ctx context.Context, sessionID uuid.UUID) (bool, error)
	TouchSession(ctx context.Context, sessionID uuid.UUID, at time.Time) error
	UpdateSessionMetadata(ctx context.Context, sessionID uuid.UUID, patch assessment.SessionMetadataPatch) (*assessment.SurveySession, error)
}

// AdminStore carries the read models behind the admin dashboard.
type AdminStore interface {
	ListSessions(ctx context.Context, q assessment.SessionQuery) ([]*assessment.SurveySession, int64, error)
	RecentSessions(ctx context.Context, limit int) ([]*assessment.SurveySession, error)
	SessionsCreatedSince(ctx context.Context, since time.Time) ([]*assessment.SurveySession, error)
	CountSessionsCreatedSince(ctx context.Context, since time.Time) (int64, error)
	CountSessions(ctx context.Context) (total int64, completed int64, err error)
	AverageCompletion(ctx context.Context) (float64, error)
	CountAnswers(ctx context.Context) (int64, error)
	RatingDistribution(ctx context.Context) ([]assessment.RatingCount, error)
	StageScores(ctx context.Context) ([]assessment.StageScore, error)
	CompanyCounts(ctx context.Context, limit int) ([]assessment.CompanyCount, error)
}
