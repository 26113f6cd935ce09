package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/maturity-assessment-backend/internal/domain/assessment"
	"github.com/yungbote/maturity-assessment-backend/internal/domain/survey"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/logger"
)

// benchmarkScale lifts the 0..10 benchmark figures onto the 0..100 scaled-score range.
const benchmarkScale = 10

type StageReport struct {
	StageName     string  `json:"stage_name"`
	DisplayName   string  `json:"display_name"`
	Order         int     `json:"stage_order"`
	Average       float64 `json:"stage_average"`
	ScaledScore   float64 `json:"stage_scaled_score"`
	QuestionCount int     `json:"question_count"`
	AnsweredCount int     `json:"answered_count"`
	Completion    float64 `json:"completion_percentage"`

	HasBenchmark bool    `json:"has_benchmark"`
	PeerAverage  float64 `json:"peer_average"`
	BestInClass  float64 `json:"best_in_class"`
	GapToPeer    float64 `json:"gap_to_peer"`
	GapToBest    float64 `json:"gap_to_best"`
}

type ResultsReport struct {
	SessionID      uuid.UUID     `json:"session_id"`
	CompanyName    string        `json:"company_name"`
	Stages         []StageReport `json:"stages"`
	OverallAverage float64       `json:"overall_average"`
	OverallScaled  float64       `json:"overall_scaled"`
	Progress       LiveStatus    `json:"progress"`
	Unlocked       bool          `json:"unlocked"`
}

type ResultsService interface {
	// Report returns the benchmark report, computing results first if none exist.
	Report(ctx context.Context, sessionID uuid.UUID) (ResultsReport, error)
	// Refresh forces a recompute before building the report.
	Refresh(ctx context.Context, sessionID uuid.UUID) (ResultsReport, error)
}

type resultsService struct {
	log      *logger.Logger
	store    Store
	scoring  ScoringEngine
	progress ProgressAggregator
	def      *survey.Definition
}

func NewResultsService(log *logger.Logger, store Store, scoring ScoringEngine, progress ProgressAggregator, def *survey.Definition) ResultsService {
	return &resultsService{
		log:      log.With("service", "ResultsService"),
		store:    store,
		scoring:  scoring,
		progress: progress,
		def:      def,
	}
}

func (s *resultsService) Report(ctx context.Context, sessionID uuid.UUID) (ResultsReport, error) {
	return s.build(ctx, sessionID, false)
}

func (s *resultsService) Refresh(ctx context.Context, sessionID uuid.UUID) (ResultsReport, error) {
	return s.build(ctx, sessionID, true)
}

func (s *resultsService) build(ctx context.Context, sessionID uuid.UUID, force bool) (ResultsReport, error) {
	sess, err := s.store.FindSessionByID(ctx, sessionID)
	if err != nil {
		return ResultsReport{}, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return ResultsReport{}, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}

	var (
		rows   []*assessment.ResultSummary
		status LiveStatus
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if force {
			rows, err = s.scoring.Recompute(gctx, sessionID, TriggerRefresh)
		} else {
			rows, err = s.scoring.EnsureResults(gctx, sessionID)
		}
		return err
	})
	g.Go(func() error {
		var err error
		status, err = s.progress.LiveStatus(gctx, sessionID)
		return err
	})
	if err := g.Wait(); err != nil {
		return ResultsReport{}, err
	}

	report := BuildReport(s.def, rows, status)
	report.SessionID = sessionID
	report.CompanyName = sess.CompanyName
	return report, nil
}

// BuildReport joins result rows with stage progress and benchmarks. The
// overall average is the mean of the stage averages.
func BuildReport(def *survey.Definition, rows []*assessment.ResultSummary, status LiveStatus) ResultsReport {
	completion := make(map[string]float64, len(status.Stages))
	for _, p := range status.Stages {
		completion[p.StageName] = p.CompletionPercentage
	}

	out := ResultsReport{Progress: status, Unlocked: status.ResultsUnlocked, SessionID: status.SessionID}
	var sumAvg float64
	for _, r := range rows {
		sr := StageReport{
			StageName:     r.StageName,
			DisplayName:   assessment.FormatStageName(r.StageName),
			Order:         assessment.ParseStageNumber(r.StageName),
			Average:       r.StageAverage,
			ScaledScore:   r.StageScaledScore,
			QuestionCount: r.QuestionCount,
			AnsweredCount: r.AnsweredCount,
			Completion:    completion[r.StageName],
		}
		if def != nil {
			if st, ok := def.StageByName(r.StageName); ok {
				sr.Order = st.Order
				if st.Title != "" {
					sr.DisplayName = assessment.FormatStageName(st.Title)
				}
			}
			if b, ok := def.Benchmark(r.StageName); ok {
				sr.HasBenchmark = true
				sr.PeerAverage = b.PeerAverage * benchmarkScale
				sr.BestInClass = b.BestInClass * benchmarkScale
				sr.GapToPeer = sr.ScaledScore - sr.PeerAverage
				sr.GapToBest = sr.ScaledScore - sr.BestInClass
			}
		}
		sumAvg += r.StageAverage
		out.Stages = append(out.Stages, sr)
	}
	sort.SliceStable(out.Stages, func(i, j int) bool {
		if out.Stages[i].Order != out.Stages[j].Order {
			return out.Stages[i].Order < out.Stages[j].Order
		}
		return out.Stages[i].StageName < out.Stages[j].StageName
	})
	if n := len(rows); n > 0 {
		out.OverallAverage = sumAvg / float64(n)
		out.OverallScaled = assessment.ScaledScore(out.OverallAverage)
	}
	return out
}
