package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/maturity-assessment-backend/internal/domain/assessment"
)

func SeedSession(tb testing.TB, ctx context.Context, tx *gorm.DB, email, company string, createdAt time.Time) *types.SurveySession {
	tb.Helper()
	createdAt = createdAt.UTC()
	s := &types.SurveySession{
		SessionID:       uuid.New(),
		UserIdentifier:  types.UserIdentifier(email, company),
		CompanyName:     types.NormalizeCompany(company),
		RespondentName:  "Pat Respondent",
		RespondentEmail: types.NormalizeEmail(email),
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
		LastActivity:    createdAt,
		TotalQuestions:  3,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed session: %v", err)
	}
	return s
}

func SeedAnswer(tb testing.TB, ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, stage, capability string, rating int) *types.SurveyResponse {
	tb.Helper()
	now := time.Now().UTC()
	r := &types.SurveyResponse{
		SessionID:  sessionID,
		StageName:  stage,
		Capability: capability,
		Question:   capability,
		Rating:     &rating,
		AnsweredAt: now,
		UpdatedAt:  now,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed answer: %v", err)
	}
	return r
}
