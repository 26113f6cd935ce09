package assessment

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/maturity-assessment-backend/internal/domain/assessment"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/dbctx"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/logger"
)

type SessionRepo interface {
	Create(dbc dbctx.Context, s *types.SurveySession) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.SurveySession, error)
	LatestByEmail(dbc dbctx.Context, email string) (*types.SurveySession, error)
	LatestByCompany(dbc dbctx.Context, company string) (*types.SurveySession, error)
	ListByCompany(dbc dbctx.Context, company string) ([]*types.SurveySession, error)
	Touch(dbc dbctx.Context, id uuid.UUID, at time.Time) error
	UpdateProgress(dbc dbctx.Context, id uuid.UUID, upd types.SessionProgressUpdate) error
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
	Delete(dbc dbctx.Context, id uuid.UUID) (bool, error)

	List(dbc dbctx.Context, q types.SessionQuery) ([]*types.SurveySession, int64, error)
	Recent(dbc dbctx.Context, limit int) ([]*types.SurveySession, error)
	CreatedSince(dbc dbctx.Context, since time.Time) ([]*types.SurveySession, error)
	CountCreatedSince(dbc dbctx.Context, since time.Time) (int64, error)
	CountByCompletion(dbc dbctx.Context) (total int64, completed int64, err error)
	AverageCompletion(dbc dbctx.Context) (float64, error)
	CompanyCounts(dbc dbctx.Context, limit int) ([]types.CompanyCount, error)
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return &sessionRepo{
		db:  db,
		log: baseLog.With("repo", "SessionRepo"),
	}
}

func (r *sessionRepo) tx(dbc dbctx.Context) *gorm.DB {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return t.WithContext(dbc.Ctx)
}

func (r *sessionRepo) Create(dbc dbctx.Context, s *types.SurveySession) error {
	if s == nil {
		return nil
	}
	return r.tx(dbc).Create(s).Error
}

func (r *sessionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.SurveySession, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var rows []*types.SurveySession
	if err := r.tx(dbc).Where("session_id = ?", id).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *sessionRepo) LatestByEmail(dbc dbctx.Context, email string) (*types.SurveySession, error) {
	email = types.NormalizeEmail(email)
	if email == "" {
		return nil, nil
	}
	return r.latest(r.tx(dbc).Where("respondent_email = ?", email))
}

func (r *sessionRepo) LatestByCompany(dbc dbctx.Context, company string) (*types.SurveySession, error) {
	key := companyKey(company)
	if key == "" {
		return nil, nil
	}
	return r.latest(r.tx(dbc).Where("LOWER(company_name) = ?", key))
}

func (r *sessionRepo) latest(q *gorm.DB) (*types.SurveySession, error) {
	var rows []*types.SurveySession
	if err := q.Order("created_at DESC").Order("session_id DESC").Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *sessionRepo) ListByCompany(dbc dbctx.Context, company string) ([]*types.SurveySession, error) {
	key := companyKey(company)
	var out []*types.SurveySession
	if key == "" {
		return out, nil
	}
	err := r.tx(dbc).
		Where("LOWER(company_name) = ?", key).
		Order("created_at DESC").
		Order("session_id DESC").
		Find(&out).Error
	return out, err
}

// Touch advances last_activity; it never moves it backwards.
func (r *sessionRepo) Touch(dbc dbctx.Context, id uuid.UUID, at time.Time) error {
	if id == uuid.Nil {
		return nil
	}
	return r.tx(dbc).
		Model(&types.SurveySession{}).
		Where("session_id = ? AND last_activity < ?", id, at).
		Updates(map[string]any{
			"last_activity": at,
			"updated_at":    at,
		}).Error
}

func (r *sessionRepo) UpdateProgress(dbc dbctx.Context, id uuid.UUID, upd types.SessionProgressUpdate) error {
	return r.UpdateFields(dbc, id, map[string]any{
		"total_questions":       upd.TotalQuestions,
		"answered_questions":    upd.AnsweredQuestions,
		"completion_percentage": upd.CompletionPercentage,
		"is_completed":          upd.IsCompleted,
		"completion_date":       upd.CompletionDate,
	})
}

func (r *sessionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]any{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return r.tx(dbc).
		Model(&types.SurveySession{}).
		Where("session_id = ?", id).
		Updates(updates).Error
}

func (r *sessionRepo) Delete(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	res := r.tx(dbc).Where("session_id = ?", id).Delete(&types.SurveySession{})
	return res.RowsAffected > 0, res.Error
}

func (r *sessionRepo) List(dbc dbctx.Context, q types.SessionQuery) ([]*types.SurveySession, int64, error) {
	q = q.Normalized()
	base := r.tx(dbc).Model(&types.SurveySession{})
	switch q.Status {
	case types.StatusCompleted:
		base = base.Where("is_completed = ?", true)
	case types.StatusInProgress:
		base = base.Where("is_completed = ?", false)
	}
	if s := strings.ToLower(strings.TrimSpace(q.Search)); s != "" {
		like := "%" + s + "%"
		base = base.Where(
			"LOWER(company_name) LIKE ? OR LOWER(respondent_name) LIKE ? OR LOWER(respondent_email) LIKE ?",
			like, like, like,
		)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []*types.SurveySession
	err := base.
		Order(q.SortBy + " " + strings.ToUpper(q.SortOrder)).
		Order("session_id").
		Offset(q.Offset()).
		Limit(q.Limit).
		Find(&out).Error
	return out, total, err
}

func (r *sessionRepo) Recent(dbc dbctx.Context, limit int) ([]*types.SurveySession, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []*types.SurveySession
	err := r.tx(dbc).Order("created_at DESC").Limit(limit).Find(&out).Error
	return out, err
}

func (r *sessionRepo) CreatedSince(dbc dbctx.Context, since time.Time) ([]*types.SurveySession, error) {
	var out []*types.SurveySession
	err := r.tx(dbc).
		Where("created_at >= ?", since).
		Order("created_at").
		Find(&out).Error
	return out, err
}

func (r *sessionRepo) CountCreatedSince(dbc dbctx.Context, since time.Time) (int64, error) {
	var n int64
	err := r.tx(dbc).Model(&types.SurveySession{}).Where("created_at >= ?", since).Count(&n).Error
	return n, err
}

func (r *sessionRepo) CountByCompletion(dbc dbctx.Context) (int64, int64, error) {
	var total, completed int64
	if err := r.tx(dbc).Model(&types.SurveySession{}).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if err := r.tx(dbc).Model(&types.SurveySession{}).Where("is_completed = ?", true).Count(&completed).Error; err != nil {
		return 0, 0, err
	}
	return total, completed, nil
}

func (r *sessionRepo) AverageCompletion(dbc dbctx.Context) (float64, error) {
	var avg sql.NullFloat64
	if err := r.tx(dbc).
		Model(&types.SurveySession{}).
		Select("AVG(completion_percentage)").
		Scan(&avg).Error; err != nil {
		return 0, err
	}
	return avg.Float64, nil
}

func (r *sessionRepo) CompanyCounts(dbc dbctx.Context, limit int) ([]types.CompanyCount, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []types.CompanyCount
	err := r.tx(dbc).
		Model(&types.SurveySession{}).
		Select("company_name, COUNT(*) AS count").
		Group("company_name").
		Order("count DESC").
		Order("company_name").
		Limit(limit).
		Scan(&out).Error
	return out, err
}

func companyKey(company string) string {
	return strings.ToLower(types.NormalizeCompany(company))
}
