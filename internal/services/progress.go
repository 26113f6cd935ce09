package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	domainagg "github.com/yungbote/maturity-assessment-backend/internal/domain/aggregates"
	"github.com/yungbote/maturity-assessment-backend/internal/domain/assessment"
	"github.com/yungbote/maturity-assessment-backend/internal/domain/survey"
	"github.com/yungbote/maturity-assessment-backend/internal/observability"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/logger"
	"github.com/yungbote/maturity-assessment-backend/internal/realtime"
)

// PageProgress reports how many questions of one stage page are answered.
// Order and Total default from the survey definition when zero.
type PageProgress struct {
	Stage    string `json:"stage_name"`
	Order    int    `json:"stage_order"`
	Total    int    `json:"total_questions"`
	Answered int    `json:"answered_questions"`
}

type RecordPageResult struct {
	Progress *assessment.StageProgress `json:"progress"`
	// StageCompleted is true only on the not-completed to completed edge.
	StageCompleted bool `json:"stage_completed"`
	// Rescored is true when that edge triggered a successful recompute.
	Rescored bool                             `json:"rescored"`
	Session  assessment.SessionProgressUpdate `json:"-"`
}

// LiveStatus is completion recomputed from stored stage rows, never from the session cache.
type LiveStatus struct {
	SessionID  uuid.UUID                   `json:"session_id"`
	Visited    assessment.OverallProgress  `json:"visited"`
	Definition assessment.OverallProgress  `json:"definition"`
	Stages     []*assessment.StageProgress `json:"stages"`
	// Completed is true when every defined stage is completed.
	Completed       bool `json:"completed"`
	ResultsUnlocked bool `json:"results_unlocked"`
}

type ProgressAggregator interface {
	RecordPage(ctx context.Context, sessionID uuid.UUID, in PageProgress) (RecordPageResult, error)
	// OverallProgress sums visited stages only; unvisited stages add nothing to either side.
	OverallProgress(ctx context.Context, sessionID uuid.UUID) (assessment.OverallProgress, error)
	ListStages(ctx context.Context, sessionID uuid.UUID) ([]*assessment.StageProgress, error)
	LiveStatus(ctx context.Context, sessionID uuid.UUID) (LiveStatus, error)
}

type ProgressAggregatorDeps struct {
	Store         Store
	Scoring       ScoringEngine
	Definition    *survey.Definition
	Emitter       realtime.Emitter
	Metrics       *observability.Metrics
	UnlockPercent float64
}

type progressAggregator struct {
	log           *logger.Logger
	store         Store
	scoring       ScoringEngine
	def           *survey.Definition
	emitter       realtime.Emitter
	metrics       *observability.Metrics
	unlockPercent float64
	now           func() time.Time
}

func NewProgressAggregator(log *logger.Logger, deps ProgressAggregatorDeps) ProgressAggregator {
	emitter := deps.Emitter
	if emitter == nil {
		emitter = realtime.NopEmitter{}
	}
	unlock := deps.UnlockPercent
	if unlock <= 0 {
		unlock = 80
	}
	return &progressAggregator{
		log:           log.With("service", "ProgressAggregator"),
		store:         deps.Store,
		scoring:       deps.Scoring,
		def:           deps.Definition,
		emitter:       emitter,
		metrics:       deps.Metrics,
		unlockPercent: unlock,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (p *progressAggregator) RecordPage(ctx context.Context, sessionID uuid.UUID, in PageProgress) (RecordPageResult, error) {
	var out RecordPageResult
	stage := strings.TrimSpace(in.Stage)
	if stage == "" {
		return out, fmt.Errorf("%w: stage required", ErrInvalidAnswer)
	}
	order, total := in.Order, in.Total
	if st, ok := p.stage(stage); ok {
		if order <= 0 {
			order = st.Order
		}
		if total <= 0 {
			total = len(st.Questions)
		}
	}
	if order <= 0 {
		order = assessment.ParseStageNumber(stage)
	}

	var defTotal, stageCount int
	if p.def != nil {
		defTotal, stageCount = p.def.TotalQuestions(), len(p.def.Stages)
	}
	row := assessment.NewStageProgress(sessionID, stage, order, total, in.Answered, p.now())
	res, err := p.store.UpsertStageProgress(ctx, domainagg.RecordStageProgressInput{
		Progress:        row,
		DefinitionTotal: defTotal,
		StageCount:      stageCount,
	})
	if err != nil {
		return out, fmt.Errorf("record stage progress: %w", notFoundAware(err))
	}

	out.Progress = res.Current
	out.Session = res.Session
	wasCompleted := res.Previous != nil && res.Previous.IsCompleted
	out.StageCompleted = res.Current.IsCompleted && !wasCompleted

	p.emitter.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.SessionChannel(sessionID.String()),
		Event:   realtime.SSEEventProgressUpdated,
		Data: map[string]any{
			"session_id": sessionID,
			"stage":      res.Current,
			"overall":    res.Session,
		},
	})

	if out.StageCompleted {
		p.metrics.IncStageCompletion()
		if p.scoring != nil {
			if _, err := p.scoring.Recompute(ctx, sessionID, TriggerStageCompleted); err != nil {
				p.log.Warn("recompute after stage completion failed", "session_id", sessionID, "stage", stage, "error", err)
			} else {
				out.Rescored = true
			}
		}
	}
	if res.Session.IsCompleted {
		p.emitter.Emit(ctx, realtime.SSEMessage{
			Channel: realtime.SessionChannel(sessionID.String()),
			Event:   realtime.SSEEventSessionCompleted,
			Data:    map[string]any{"session_id": sessionID},
		})
	}
	return out, nil
}

func (p *progressAggregator) stage(name string) (*survey.Stage, bool) {
	if p.def == nil {
		return nil, false
	}
	return p.def.StageByName(name)
}

func (p *progressAggregator) ListStages(ctx context.Context, sessionID uuid.UUID) ([]*assessment.StageProgress, error) {
	rows, err := p.store.ListStageProgress(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list stage progress: %w", err)
	}
	return rows, nil
}

func (p *progressAggregator) OverallProgress(ctx context.Context, sessionID uuid.UUID) (assessment.OverallProgress, error) {
	rows, err := p.ListStages(ctx, sessionID)
	if err != nil {
		return assessment.OverallProgress{}, err
	}
	return assessment.SumProgress(rows), nil
}

func (p *progressAggregator) LiveStatus(ctx context.Context, sessionID uuid.UUID) (LiveStatus, error) {
	rows, err := p.ListStages(ctx, sessionID)
	if err != nil {
		return LiveStatus{}, err
	}
	return p.liveStatus(sessionID, rows), nil
}

func (p *progressAggregator) liveStatus(sessionID uuid.UUID, rows []*assessment.StageProgress) LiveStatus {
	st := LiveStatus{SessionID: sessionID, Stages: rows, Visited: assessment.SumProgress(rows)}

	completed := map[string]bool{}
	for _, r := range rows {
		if r.IsCompleted {
			completed[r.StageName] = true
		}
	}
	if p.def != nil {
		total := p.def.TotalQuestions()
		st.Definition = assessment.OverallProgress{
			AnsweredQuestions: st.Visited.AnsweredQuestions,
			TotalQuestions:    total,
			Percentage:        assessment.Percent(st.Visited.AnsweredQuestions, total),
		}
		st.Completed = len(p.def.Stages) > 0
		for _, s := range p.def.Stages {
			if !completed[s.Name] {
				st.Completed = false
				break
			}
		}
	} else {
		st.Definition = st.Visited
		st.Completed = len(rows) > 0 && len(completed) == len(rows)
	}
	st.ResultsUnlocked = st.Visited.TotalQuestions > 0 && st.Visited.Percentage >= p.unlockPercent
	return st
}
