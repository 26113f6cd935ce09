package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/maturity-assessment-backend/internal/domain/assessment"
	"github.com/yungbote/maturity-assessment-backend/internal/observability"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/logger"
	"github.com/yungbote/maturity-assessment-backend/internal/realtime"
)

const (
	TriggerStageCompleted = "stage_completed"
	TriggerResultsView    = "results_view"
	TriggerRefresh        = "refresh"
	TriggerAnswerDeleted  = "answer_deleted"
)

// DistributedLocker serializes recomputes of one session across replicas.
// *redisx.Locker satisfies it; a nil *redisx.Locker is a no-op.
type DistributedLocker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

type ScoringEngine interface {
	// Recompute replaces every result row of the session from its current answers.
	Recompute(ctx context.Context, sessionID uuid.UUID, trigger string) ([]*assessment.ResultSummary, error)
	// EnsureResults returns the stored results, computing them first when none exist.
	EnsureResults(ctx context.Context, sessionID uuid.UUID) ([]*assessment.ResultSummary, error)
}

type scoringEngine struct {
	log     *logger.Logger
	store   Store
	locks   *keyedMutex
	dlock   DistributedLocker
	group   singleflight.Group
	emitter realtime.Emitter
	metrics *observability.Metrics
	now     func() time.Time
}

type ScoringEngineDeps struct {
	Store   Store
	Locker  DistributedLocker
	Emitter realtime.Emitter
	Metrics *observability.Metrics
}

func NewScoringEngine(log *logger.Logger, deps ScoringEngineDeps) ScoringEngine {
	emitter := deps.Emitter
	if emitter == nil {
		emitter = realtime.NopEmitter{}
	}
	return &scoringEngine{
		log:     log.With("service", "ScoringEngine"),
		store:   deps.Store,
		locks:   newKeyedMutex(),
		dlock:   deps.Locker,
		emitter: emitter,
		metrics: deps.Metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (e *scoringEngine) Recompute(ctx context.Context, sessionID uuid.UUID, trigger string) (rows []*assessment.ResultSummary, err error) {
	ctx, span := observability.StartSpan(ctx, "scoring", "ScoringEngine.Recompute",
		attribute.String("session_id", sessionID.String()),
		attribute.String("trigger", trigger),
	)
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		e.metrics.ObserveRecompute(trigger, status, time.Since(start))
		observability.EndSpan(span, err)
	}()

	unlock := e.locks.Lock(sessionID)
	defer unlock()
	if e.dlock != nil {
		release, err := e.dlock.Acquire(ctx, sessionID.String())
		if err != nil {
			return nil, fmt.Errorf("acquire recompute lock: %w", err)
		}
		defer release()
	}

	sess, err := e.store.FindSessionByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}

	prev, err := e.store.ListResults(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list previous results: %w", err)
	}
	rows, err = e.store.ReplaceResults(ctx, sessionID, func(answers []*assessment.SurveyResponse, now time.Time) []*assessment.ResultSummary {
		return ScoreAnswers(sessionID, answers, now, prev)
	})
	if err != nil {
		return nil, fmt.Errorf("replace results: %w", notFoundAware(err))
	}

	e.log.Debug("results recomputed", "session_id", sessionID, "trigger", trigger, "stages", len(rows))
	e.emitter.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.SessionChannel(sessionID.String()),
		Event:   realtime.SSEEventResultsRecomputed,
		Data:    map[string]any{"session_id": sessionID, "trigger": trigger, "results": rows},
	})
	return rows, nil
}

func (e *scoringEngine) EnsureResults(ctx context.Context, sessionID uuid.UUID) ([]*assessment.ResultSummary, error) {
	rows, err := e.store.ListResults(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	if len(rows) > 0 {
		return rows, nil
	}
	v, err, _ := e.group.Do(sessionID.String(), func() (any, error) {
		rows, err := e.store.ListResults(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("list results: %w", err)
		}
		if len(rows) > 0 {
			return rows, nil
		}
		return e.Recompute(ctx, sessionID, TriggerResultsView)
	})
	if err != nil {
		return nil, err
	}
	return v.([]*assessment.ResultSummary), nil
}

// ScoreAnswers groups answers by stage and derives one result row per stage,
// ordered by stage name. When a previous row for a stage carries the same
// values its CalculatedAt is kept, so recomputing an unchanged answer set
// rewrites identical rows.
func ScoreAnswers(sessionID uuid.UUID, answers []*assessment.SurveyResponse, now time.Time, previous []*assessment.ResultSummary) []*assessment.ResultSummary {
	type acc struct {
		questions int
		answered  int
		sum       int
	}
	byStage := map[string]*acc{}
	for _, a := range answers {
		if a == nil {
			continue
		}
		st, ok := byStage[a.StageName]
		if !ok {
			st = &acc{}
			byStage[a.StageName] = st
		}
		st.questions++
		if a.Rating != nil {
			st.answered++
			st.sum += *a.Rating
		}
	}

	prev := make(map[string]*assessment.ResultSummary, len(previous))
	for _, p := range previous {
		if p != nil {
			prev[p.StageName] = p
		}
	}

	stages := make([]string, 0, len(byStage))
	for name := range byStage {
		stages = append(stages, name)
	}
	sort.Strings(stages)

	now = now.UTC().Truncate(time.Microsecond)
	out := make([]*assessment.ResultSummary, 0, len(stages))
	for _, name := range stages {
		st := byStage[name]
		row := &assessment.ResultSummary{
			ID:            assessment.ResultID(sessionID, name),
			SessionID:     sessionID,
			StageName:     name,
			QuestionCount: st.questions,
			AnsweredCount: st.answered,
			CalculatedAt:  now,
		}
		if st.answered > 0 {
			row.StageAverage = float64(st.sum) / float64(st.answered)
			row.StageScaledScore = assessment.ScaledScore(row.StageAverage)
		}
		if p, ok := prev[name]; ok && sameScore(p, row) {
			row.CalculatedAt = p.CalculatedAt
		}
		out = append(out, row)
	}
	return out
}

func sameScore(a, b *assessment.ResultSummary) bool {
	return a.StageAverage == b.StageAverage &&
		a.StageScaledScore == b.StageScaledScore &&
		a.QuestionCount == b.QuestionCount &&
		a.AnsweredCount == b.AnsweredCount
}
