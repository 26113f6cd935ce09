package store

import (
	"context"
	"time"

	"github.com/yungbote/maturity-assessment-backend/internal/domain/assessment"
)

func (s *GormStore) ListSessions(ctx context.Context, q assessment.SessionQuery) ([]*assessment.SurveySession, int64, error) {
	return s.sessions.List(bg(ctx), q)
}

func (s *GormStore) RecentSessions(ctx context.Context, limit int) ([]*assessment.SurveySession, error) {
	return s.sessions.Recent(bg(ctx), limit)
}

func (s *GormStore) SessionsCreatedSince(ctx context.Context, since time.Time) ([]*assessment.SurveySession, error) {
	return s.sessions.CreatedSince(bg(ctx), since.UTC())
}

func (s *GormStore) CountSessionsCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	return s.sessions.CountCreatedSince(bg(ctx), since.UTC())
}

func (s *GormStore) CountSessions(ctx context.Context) (int64, int64, error) {
	return s.sessions.CountByCompletion(bg(ctx))
}

func (s *GormStore) AverageCompletion(ctx context.Context) (float64, error) {
	return s.sessions.AverageCompletion(bg(ctx))
}

func (s *GormStore) CountAnswers(ctx context.Context) (int64, error) {
	return s.responses.Count(bg(ctx))
}

func (s *GormStore) RatingDistribution(ctx context.Context) ([]assessment.RatingCount, error) {
	return s.responses.RatingDistribution(bg(ctx))
}

func (s *GormStore) StageScores(ctx context.Context) ([]assessment.StageScore, error) {
	return s.results.StageScores(bg(ctx))
}

func (s *GormStore) CompanyCounts(ctx context.Context, limit int) ([]assessment.CompanyCount, error) {
	return s.sessions.CompanyCounts(bg(ctx), limit)
}
