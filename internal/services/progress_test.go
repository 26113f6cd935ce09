package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/maturity-assessment-backend/internal/realtime"
)

func TestRecordPageRescoresOnlyOnCompletionEdge(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()
	sid := h.createSession(t, "pat@acme.com", "Acme").Session.SessionID

	_, err := h.answers.UpsertBatch(ctx, sid, []AnswerInput{
		{Stage: "Stage 1: Intake", Capability: "**Repository**: contracts live in one place", Rating: 2},
		{Stage: "Stage 1: Intake", Capability: "Metadata capture", Rating: 4},
	})
	require.NoError(t, err)

	partial, err := h.progress.RecordPage(ctx, sid, PageProgress{Stage: "Stage 1: Intake", Answered: 1})
	require.NoError(t, err)
	require.False(t, partial.StageCompleted)
	require.Equal(t, 2, partial.Progress.TotalQuestions)
	require.Equal(t, 1, partial.Progress.StageOrder)
	require.Equal(t, 0, h.emitter.count(realtime.SSEEventResultsRecomputed))

	done, err := h.progress.RecordPage(ctx, sid, PageProgress{Stage: "Stage 1: Intake", Answered: 2})
	require.NoError(t, err)
	require.True(t, done.StageCompleted)
	require.True(t, done.Rescored)
	require.Equal(t, 1, h.emitter.count(realtime.SSEEventResultsRecomputed))

	again, err := h.progress.RecordPage(ctx, sid, PageProgress{Stage: "Stage 1: Intake", Answered: 2})
	require.NoError(t, err)
	require.False(t, again.StageCompleted)
	require.Equal(t, 1, h.emitter.count(realtime.SSEEventResultsRecomputed))
	require.Equal(t, 3, h.emitter.count(realtime.SSEEventProgressUpdated))

	results, err := h.store.ListResults(ctx, sid)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.InDelta(t, 3.0, results[0].StageAverage, 1e-9)
	require.InDelta(t, 50.0, results[0].StageScaledScore, 1e-9)
}

func TestOverallProgressCountsVisitedStagesOnly(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()
	sid := h.createSession(t, "pat@acme.com", "Acme").Session.SessionID

	_, err := h.progress.RecordPage(ctx, sid, PageProgress{Stage: "Stage 2: Signing", Answered: 1})
	require.NoError(t, err)

	overall, err := h.progress.OverallProgress(ctx, sid)
	require.NoError(t, err)
	require.Equal(t, 1, overall.AnsweredQuestions)
	require.Equal(t, 2, overall.TotalQuestions)
	require.InDelta(t, 50.0, overall.Percentage, 1e-9)

	status, err := h.progress.LiveStatus(ctx, sid)
	require.NoError(t, err)
	require.Equal(t, 4, status.Definition.TotalQuestions)
	require.InDelta(t, 25.0, status.Definition.Percentage, 1e-9)
	require.False(t, status.ResultsUnlocked)
	require.False(t, status.Completed)
}

func TestLiveStatusUnlocksAndCompletes(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()
	sid := h.createSession(t, "pat@acme.com", "Acme").Session.SessionID

	for _, stage := range []string{"Stage 1: Intake", "Stage 2: Signing"} {
		_, err := h.progress.RecordPage(ctx, sid, PageProgress{Stage: stage, Answered: 2})
		require.NoError(t, err)
	}
	status, err := h.progress.LiveStatus(ctx, sid)
	require.NoError(t, err)
	require.True(t, status.ResultsUnlocked)
	require.True(t, status.Completed)
	require.GreaterOrEqual(t, h.emitter.count(realtime.SSEEventSessionCompleted), 1)

	sess, err := h.store.FindSessionByID(ctx, sid)
	require.NoError(t, err)
	require.True(t, sess.IsCompleted)
	require.Equal(t, 4, sess.AnsweredQuestions)
	require.NotNil(t, sess.CompletionDate)
}
