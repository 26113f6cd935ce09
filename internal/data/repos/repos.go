package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/maturity-assessment-backend/internal/data/repos/assessment"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/logger"
)

type SessionRepo = assessment.SessionRepo
type ResponseRepo = assessment.ResponseRepo
type StageProgressRepo = assessment.StageProgressRepo
type ResultSummaryRepo = assessment.ResultSummaryRepo
type AuditLogRepo = assessment.AuditLogRepo

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return assessment.NewSessionRepo(db, baseLog)
}
func NewResponseRepo(db *gorm.DB, baseLog *logger.Logger) ResponseRepo {
	return assessment.NewResponseRepo(db, baseLog)
}
func NewStageProgressRepo(db *gorm.DB, baseLog *logger.Logger) StageProgressRepo {
	return assessment.NewStageProgressRepo(db, baseLog)
}
func NewResultSummaryRepo(db *gorm.DB, baseLog *logger.Logger) ResultSummaryRepo {
	return assessment.NewResultSummaryRepo(db, baseLog)
}
func NewAuditLogRepo(db *gorm.DB, baseLog *logger.Logger) AuditLogRepo {
	return assessment.NewAuditLogRepo(db, baseLog)
}
