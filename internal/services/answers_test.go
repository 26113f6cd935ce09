package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestAnswerUpsertKeepsOneRowPerCapability(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()
	sid := h.createSession(t, "pat@acme.com", "Acme").Session.SessionID

	in := AnswerInput{Stage: "Stage 1: Intake", Capability: "Metadata capture", Rating: 3}
	first, err := h.answers.Upsert(ctx, sid, in)
	require.NoError(t, err)
	require.Equal(t, "Metadata", first.Question)
	require.NotNil(t, first.SelectedOptionText)
	require.Equal(t, "Defined", *first.SelectedOptionText)

	in.Rating = 5
	_, err = h.answers.Upsert(ctx, sid, in)
	require.NoError(t, err)

	rows, err := h.answers.ListBySession(ctx, sid)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 5, rows[0].RatingValue())
	require.True(t, rows[0].AnsweredAt.Equal(first.AnsweredAt), "answered_at must not move on update")
}

func TestAnswerBatchSkipsInvalidAndSavesRest(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()
	sid := h.createSession(t, "pat@acme.com", "Acme").Session.SessionID

	res, err := h.answers.UpsertBatch(ctx, sid, []AnswerInput{
		{Stage: "Stage 1: Intake", Capability: "Metadata capture", Rating: 4},
		{Stage: "Stage 1: Intake", Capability: "Metadata capture 2", Rating: 9},
		{Stage: "", Capability: "Orphan", Rating: 2},
		{Stage: "Stage 2: Signing", Capability: "E-signature", Rating: 1},
	})
	require.NoError(t, err)
	require.Len(t, res.Saved, 2)
	require.Len(t, res.Skipped, 2)
	for _, e := range res.Skipped {
		require.True(t, IsInvalidAnswer(e), "unexpected skip error %v", e)
	}

	rows, err := h.answers.ListBySession(ctx, sid)
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestAnswerForUnknownSessionIsNotFound(t *testing.T) {
	h := newHarness(t, 0)
	_, err := h.answers.Upsert(context.Background(), uuid.New(), AnswerInput{Stage: "Stage 1: Intake", Capability: "Metadata capture", Rating: 2})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAnswerDeleteReportsExistence(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()
	sid := h.createSession(t, "pat@acme.com", "Acme").Session.SessionID

	_, err := h.answers.Upsert(ctx, sid, AnswerInput{Stage: "Stage 2: Signing", Capability: "Signer routing", Rating: 2})
	require.NoError(t, err)

	existed, err := h.answers.Delete(ctx, sid, "Stage 2: Signing", "Signer routing")
	require.NoError(t, err)
	require.True(t, existed)

	existed, err = h.answers.Delete(ctx, sid, "Stage 2: Signing", "Signer routing")
	require.NoError(t, err)
	require.False(t, existed)
}
