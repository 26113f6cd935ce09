package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/maturity-assessment-backend/internal/domain/assessment"
)

var AssessmentSessionAggregateContract = Contract{
	Name:             "Assessment.SessionAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes: "Owns multi-table writes for one assessment session: creation with audit, stage progress " +
		"with the session completion cache, atomic result replacement and cascading deletion.",
}

// AssessmentSessionAggregate owns the writes that touch more than one table
// of a session. Failures carry *Error codes.
type AssessmentSessionAggregate interface {
	Aggregate

	// CreateSession inserts the session and its audit entry.
	CreateSession(ctx context.Context, s *assessment.SurveySession) error

	// RecordStageProgress upserts one stage row, then refreshes the session
	// completion cache from every stored stage row. The previous row, if any,
	// is returned so callers can detect the not-completed to completed edge.
	RecordStageProgress(ctx context.Context, in RecordStageProgressInput) (RecordStageProgressResult, error)

	// ReplaceResults reads the session's answers and replaces every result
	// row with score(answers) inside one transaction.
	ReplaceResults(ctx context.Context, sessionID uuid.UUID, score ScoreFunc) ([]*assessment.ResultSummary, error)

	// DeleteSession removes answers, progress, results and the session row.
	DeleteSession(ctx context.Context, sessionID uuid.UUID) (bool, error)

	// UpdateMetadata patches respondent fields and records an audit entry.
	UpdateMetadata(ctx context.Context, sessionID uuid.UUID, patch assessment.SessionMetadataPatch) (*assessment.SurveySession, error)
}

// ScoreFunc turns the current answer set into result rows.
type ScoreFunc func(answers []*assessment.SurveyResponse, now time.Time) []*assessment.ResultSummary

type RecordStageProgressInput struct {
	Progress *assessment.StageProgress
	// DefinitionTotal and StageCount describe the full survey so the session
	// cache can report completion over every stage, not just visited ones.
	DefinitionTotal int
	StageCount      int
}

type RecordStageProgressResult struct {
	Previous *assessment.StageProgress
	Current  *assessment.StageProgress
	Session  assessment.SessionProgressUpdate
}
