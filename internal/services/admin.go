package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	domainagg "github.com/yungbote/maturity-assessment-backend/internal/domain/aggregates"
	"github.com/yungbote/maturity-assessment-backend/internal/domain/assessment"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/logger"
	"github.com/yungbote/maturity-assessment-backend/internal/realtime"
)

const (
	recentSessionsLimit = 10
	companyCountsLimit  = 10
	defaultAnalyticDays = 30
	maxAnalyticDays     = 365
)

type AdminStats struct {
	assessment.DashboardStats
	RecentSessions []*assessment.SurveySession `json:"recent_sessions"`
}

// SessionCanceller is implemented by the session controller.
type SessionCanceller interface {
	CancelSession(sessionID uuid.UUID) int
}

type AdminService interface {
	Stats(ctx context.Context) (AdminStats, error)
	// Analytics buckets session creation and completion per UTC day over the last days.
	Analytics(ctx context.Context, days int) (assessment.Analytics, error)
	List(ctx context.Context, q assessment.SessionQuery) (assessment.SessionPage, error)
	Details(ctx context.Context, sessionID uuid.UUID) (assessment.SessionDetails, error)
	UpdateMetadata(ctx context.Context, sessionID uuid.UUID, patch assessment.SessionMetadataPatch) (*assessment.SurveySession, error)
	// DeleteSession removes a session and everything under it, and detaches live attempts.
	DeleteSession(ctx context.Context, sessionID uuid.UUID) error
	DeleteAnswer(ctx context.Context, sessionID uuid.UUID, stage, capability string) error
}

type AdminServiceDeps struct {
	Store     Store
	Admin     AdminStore
	Answers   AnswerStore
	Scoring   ScoringEngine
	Canceller SessionCanceller
	Emitter   realtime.Emitter
}

type adminService struct {
	log       *logger.Logger
	store     Store
	admin     AdminStore
	answers   AnswerStore
	scoring   ScoringEngine
	canceller SessionCanceller
	emitter   realtime.Emitter
	now       func() time.Time
}

func NewAdminService(log *logger.Logger, deps AdminServiceDeps) AdminService {
	emitter := deps.Emitter
	if emitter == nil {
		emitter = realtime.NopEmitter{}
	}
	return &adminService{
		log:       log.With("service", "AdminService"),
		store:     deps.Store,
		admin:     deps.Admin,
		answers:   deps.Answers,
		scoring:   deps.Scoring,
		canceller: deps.Canceller,
		emitter:   emitter,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *adminService) Stats(ctx context.Context) (AdminStats, error) {
	var (
		out              AdminStats
		total, completed int64
	)
	now := s.now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		total, completed, err = s.admin.CountSessions(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.AverageCompletion, err = s.admin.AverageCompletion(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.SurveysThisWeek, err = s.admin.CountSessionsCreatedSince(gctx, now.AddDate(0, 0, -7))
		return err
	})
	g.Go(func() (err error) {
		out.SurveysThisMonth, err = s.admin.CountSessionsCreatedSince(gctx, now.AddDate(0, 0, -30))
		return err
	})
	g.Go(func() (err error) {
		out.TotalResponses, err = s.admin.CountAnswers(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.RecentSessions, err = s.admin.RecentSessions(gctx, recentSessionsLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return AdminStats{}, fmt.Errorf("dashboard stats: %w", err)
	}
	out.TotalSurveys = total
	out.CompletedSurveys = completed
	out.InProgressSurveys = total - completed
	return out, nil
}

func (s *adminService) Analytics(ctx context.Context, days int) (assessment.Analytics, error) {
	if days <= 0 {
		days = defaultAnalyticDays
	}
	if days > maxAnalyticDays {
		days = maxAnalyticDays
	}
	var (
		out      assessment.Analytics
		sessions []*assessment.SurveySession
	)
	now := s.now()
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		sessions, err = s.admin.SessionsCreatedSince(gctx, since)
		return err
	})
	g.Go(func() (err error) {
		out.StageScores, err = s.admin.StageScores(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.ResponseDistribution, err = s.admin.RatingDistribution(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.CompanySurveys, err = s.admin.CompanyCounts(gctx, companyCountsLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return assessment.Analytics{}, fmt.Errorf("analytics: %w", err)
	}
	out.CompletionRates = DailyCompletions(sessions, since, days)
	return out, nil
}

// DailyCompletions buckets sessions by UTC creation day, one entry per day
// starting at since, empty days included.
func DailyCompletions(sessions []*assessment.SurveySession, since time.Time, days int) []assessment.DailyCompletion {
	out := make([]assessment.DailyCompletion, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		day := since.AddDate(0, 0, i).Format(time.DateOnly)
		out[i].Date = day
		index[day] = i
	}
	for _, sess := range sessions {
		i, ok := index[sess.CreatedAt.UTC().Format(time.DateOnly)]
		if !ok {
			continue
		}
		out[i].Count++
		if sess.IsCompleted {
			out[i].Completed++
		}
	}
	return out
}

func (s *adminService) List(ctx context.Context, q assessment.SessionQuery) (assessment.SessionPage, error) {
	q = q.Normalized()
	rows, total, err := s.admin.ListSessions(ctx, q)
	if err != nil {
		return assessment.SessionPage{}, fmt.Errorf("list sessions: %w", err)
	}
	if rows == nil {
		rows = []*assessment.SurveySession{}
	}
	pages := int((total + int64(q.Limit) - 1) / int64(q.Limit))
	return assessment.SessionPage{
		Sessions:   rows,
		Total:      total,
		Page:       q.Page,
		Limit:      q.Limit,
		TotalPages: pages,
	}, nil
}

func (s *adminService) Details(ctx context.Context, sessionID uuid.UUID) (assessment.SessionDetails, error) {
	var out assessment.SessionDetails
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Session, err = s.store.FindSessionByID(gctx, sessionID)
		return err
	})
	g.Go(func() (err error) {
		out.Responses, err = s.store.ListAnswers(gctx, sessionID)
		return err
	})
	g.Go(func() (err error) {
		out.Progress, err = s.store.ListStageProgress(gctx, sessionID)
		return err
	})
	g.Go(func() (err error) {
		out.Results, err = s.store.ListResults(gctx, sessionID)
		return err
	})
	if err := g.Wait(); err != nil {
		return assessment.SessionDetails{}, fmt.Errorf("session details: %w", err)
	}
	if out.Session == nil {
		return assessment.SessionDetails{}, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	return out, nil
}

func (s *adminService) UpdateMetadata(ctx context.Context, sessionID uuid.UUID, patch assessment.SessionMetadataPatch) (*assessment.SurveySession, error) {
	sess, err := s.store.UpdateSessionMetadata(ctx, sessionID, patch)
	if err != nil {
		if domainagg.IsCode(err, domainagg.CodeValidation) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
		}
		return nil, notFoundAware(err)
	}
	s.log.Info("session metadata updated", "session_id", sessionID)
	return sess, nil
}

func (s *adminService) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	if s.canceller != nil {
		s.canceller.CancelSession(sessionID)
	}
	existed, err := s.store.DeleteSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", notFoundAware(err))
	}
	if !existed {
		return fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	s.emitter.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.SessionChannel(sessionID.String()),
		Event:   realtime.SSEEventSessionDeleted,
		Data:    map[string]any{"session_id": sessionID},
	})
	s.log.Info("session deleted", "session_id", sessionID)
	return nil
}

// DeleteAnswer removes one answer and rescores the session. A rescoring
// failure is logged; the delete already happened.
func (s *adminService) DeleteAnswer(ctx context.Context, sessionID uuid.UUID, stage, capability string) error {
	existed, err := s.answers.Delete(ctx, sessionID, stage, capability)
	if err != nil {
		return err
	}
	if !existed {
		return fmt.Errorf("%w: answer", ErrNotFound)
	}
	if s.scoring != nil {
		if _, err := s.scoring.Recompute(ctx, sessionID, TriggerAnswerDeleted); err != nil {
			s.log.Warn("recompute after answer delete failed", "session_id", sessionID, "error", err)
		}
	}
	return nil
}
