package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/maturity-assessment-backend/internal/domain/assessment"
)

func rating(v int) *int { return &v }

func TestScoreAnswersAveragesRatedAnswers(t *testing.T) {
	sid := uuid.New()
	now := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)
	answers := []*assessment.SurveyResponse{
		{SessionID: sid, StageName: "Stage 2: Signing", Capability: "E-signature", Rating: rating(5)},
		{SessionID: sid, StageName: "Stage 1: Intake", Capability: "Metadata capture", Rating: rating(2)},
		{SessionID: sid, StageName: "Stage 1: Intake", Capability: "Repository", Rating: rating(4)},
		{SessionID: sid, StageName: "Stage 1: Intake", Capability: "Unrated"},
		{SessionID: sid, StageName: "Stage 3: Empty", Capability: "Nothing"},
	}

	rows := ScoreAnswers(sid, answers, now, nil)
	require.Len(t, rows, 3)
	require.Equal(t, []string{"Stage 1: Intake", "Stage 2: Signing", "Stage 3: Empty"},
		[]string{rows[0].StageName, rows[1].StageName, rows[2].StageName})

	require.Equal(t, 3, rows[0].QuestionCount)
	require.Equal(t, 2, rows[0].AnsweredCount)
	require.InDelta(t, 3.0, rows[0].StageAverage, 1e-9)
	require.InDelta(t, 50.0, rows[0].StageScaledScore, 1e-9)

	require.InDelta(t, 100.0, rows[1].StageScaledScore, 1e-9)

	require.Equal(t, 0, rows[2].AnsweredCount)
	require.Zero(t, rows[2].StageAverage)
	require.Zero(t, rows[2].StageScaledScore)

	require.Equal(t, assessment.ResultID(sid, "Stage 1: Intake"), rows[0].ID)
	require.Equal(t, now.Truncate(time.Microsecond), rows[0].CalculatedAt)
}

func TestScoreAnswersKeepsTimestampForUnchangedStage(t *testing.T) {
	sid := uuid.New()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	answers := []*assessment.SurveyResponse{
		{SessionID: sid, StageName: "A", Capability: "x", Rating: rating(3)},
		{SessionID: sid, StageName: "B", Capability: "y", Rating: rating(3)},
	}
	first := ScoreAnswers(sid, answers, t0, nil)

	answers[1].Rating = rating(4)
	second := ScoreAnswers(sid, answers, t0.Add(time.Hour), first)
	require.Equal(t, t0, second[0].CalculatedAt)
	require.Equal(t, t0.Add(time.Hour), second[1].CalculatedAt)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()
	sid := h.createSession(t, "pat@acme.com", "Acme").Session.SessionID
	_, err := h.answers.UpsertBatch(ctx, sid, []AnswerInput{
		{Stage: "Stage 1: Intake", Capability: "Metadata capture", Rating: 4},
		{Stage: "Stage 2: Signing", Capability: "E-signature", Rating: 2},
	})
	require.NoError(t, err)

	first, err := h.scoring.Recompute(ctx, sid, TriggerRefresh)
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := h.scoring.Recompute(ctx, sid, TriggerRefresh)
	require.NoError(t, err)
	require.Len(t, second, 2)
	for i := range first {
		require.Equal(t, first[i].ID, second[i].ID)
		require.Equal(t, first[i].StageAverage, second[i].StageAverage)
		require.True(t, first[i].CalculatedAt.Equal(second[i].CalculatedAt), "calculated_at moved for %s", first[i].StageName)
	}

	stored, err := h.store.ListResults(ctx, sid)
	require.NoError(t, err)
	require.Len(t, stored, 2)
}

func TestRecomputeUnknownSession(t *testing.T) {
	h := newHarness(t, 0)
	_, err := h.scoring.Recompute(context.Background(), uuid.New(), TriggerRefresh)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEnsureResultsComputesOnceUnderConcurrency(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()
	sid := h.createSession(t, "pat@acme.com", "Acme").Session.SessionID
	_, err := h.answers.Upsert(ctx, sid, AnswerInput{Stage: "Stage 1: Intake", Capability: "Metadata capture", Rating: 5})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rows, err := h.scoring.EnsureResults(ctx, sid)
			if err == nil && len(rows) != 1 {
				err = ErrNotFound
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := h.store.ListResults(ctx, sid)
	require.NoError(t, err)
	require.Len(t, stored, 1)
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	m := newKeyedMutex()
	a, b := uuid.New(), uuid.New()
	ua := m.Lock(a)
	ub := m.Lock(b)
	require.Equal(t, 2, m.size())
	ua()
	ub()
	require.Equal(t, 0, m.size())
}
