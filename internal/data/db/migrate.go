package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/maturity-assessment-backend/internal/domain/assessment"
)

// Models lists every table owned by the service, in creation order.
func Models() []any {
	return []any{
		&assessment.SurveySession{},
		&assessment.SurveyResponse{},
		&assessment.StageProgress{},
		&assessment.ResultSummary{},
		&assessment.AuditLogEntry{},
	}
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Auto migrating assessment tables...")
	return AutoMigrate(s.db)
}

// AutoMigrate creates or updates the schema on any gorm handle.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return EnsureAssessmentIndexes(db)
}

// EnsureAssessmentIndexes adds the composite read-path indexes gorm tags do not express.
func EnsureAssessmentIndexes(db *gorm.DB) error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_sessions_email_created ON survey_sessions (respondent_email, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_company_created ON survey_sessions (company_name, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_responses_session_stage ON survey_responses (session_id, stage_name)`,
		`CREATE INDEX IF NOT EXISTS idx_stage_progress_session_order ON stage_progress (session_id, stage_order)`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("ensure index: %w", err)
		}
	}
	return nil
}
