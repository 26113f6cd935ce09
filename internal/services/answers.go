package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/maturity-assessment-backend/internal/domain/assessment"
	"github.com/yungbote/maturity-assessment-backend/internal/domain/survey"
	"github.com/yungbote/maturity-assessment-backend/internal/observability"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/logger"
)

// AnswerInput is one rating keyed by (stage, capability). Question and
// OptionText default from the survey definition when empty.
type AnswerInput struct {
	Stage       string `json:"stage_name"`
	Capability  string `json:"capability"`
	Question    string `json:"question,omitempty"`
	Rating      int    `json:"rating"`
	OptionText  string `json:"selected_option_text,omitempty"`
	Explanation string `json:"rating_explanation,omitempty"`
}

// BatchResult separates saved rows from the answers that were skipped as invalid.
type BatchResult struct {
	Saved   []*assessment.SurveyResponse
	Skipped []error
}

type AnswerStore interface {
	Upsert(ctx context.Context, sessionID uuid.UUID, in AnswerInput) (*assessment.SurveyResponse, error)
	// UpsertBatch saves every valid answer. Invalid ones land in Skipped and
	// do not abort the batch; a persistence failure does.
	UpsertBatch(ctx context.Context, sessionID uuid.UUID, in []AnswerInput) (BatchResult, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*assessment.SurveyResponse, error)
	Delete(ctx context.Context, sessionID uuid.UUID, stage, capability string) (bool, error)
}

type answerStore struct {
	log     *logger.Logger
	store   Store
	def     *survey.Definition
	metrics *observability.Metrics
	now     func() time.Time
}

func NewAnswerStore(log *logger.Logger, store Store, def *survey.Definition, metrics *observability.Metrics) AnswerStore {
	return &answerStore{
		log:     log.With("service", "AnswerStore"),
		store:   store,
		def:     def,
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *answerStore) Upsert(ctx context.Context, sessionID uuid.UUID, in AnswerInput) (*assessment.SurveyResponse, error) {
	res, err := s.UpsertBatch(ctx, sessionID, []AnswerInput{in})
	if err != nil {
		return nil, err
	}
	if len(res.Skipped) > 0 {
		return nil, res.Skipped[0]
	}
	return res.Saved[0], nil
}

func (s *answerStore) UpsertBatch(ctx context.Context, sessionID uuid.UUID, in []AnswerInput) (BatchResult, error) {
	var out BatchResult
	sess, err := s.store.FindSessionByID(ctx, sessionID)
	if err != nil {
		return out, fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return out, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}

	now := s.now()
	for _, a := range in {
		row, err := s.row(sessionID, a, now)
		if err != nil {
			s.log.Warn("skipping invalid answer", "session_id", sessionID, "stage", a.Stage, "error", err)
			out.Skipped = append(out.Skipped, err)
			continue
		}
		if err := s.store.PutAnswer(ctx, row); err != nil {
			s.metrics.AddAnswersSaved("error", 1)
			return out, fmt.Errorf("put answer %q: %w", row.Capability, err)
		}
		out.Saved = append(out.Saved, row)
	}
	s.metrics.AddAnswersSaved("saved", len(out.Saved))
	s.metrics.AddAnswersSaved("skipped", len(out.Skipped))

	if len(out.Saved) > 0 {
		if err := s.store.TouchSession(ctx, sessionID, now); err != nil {
			s.log.Warn("touch session failed", "session_id", sessionID, "error", err)
		}
	}
	return out, nil
}

func (s *answerStore) row(sessionID uuid.UUID, a AnswerInput, now time.Time) (*assessment.SurveyResponse, error) {
	stage := strings.TrimSpace(a.Stage)
	capability := strings.TrimSpace(a.Capability)
	if stage == "" || capability == "" {
		return nil, invalidAnswer(stage, capability, "stage and capability required")
	}
	if !survey.ValidRating(a.Rating) {
		return nil, invalidAnswer(stage, capability, fmt.Sprintf("rating %d outside %d..%d", a.Rating, survey.MinRating, survey.MaxRating))
	}

	question := strings.TrimSpace(a.Question)
	option := strings.TrimSpace(a.OptionText)
	if q := s.lookup(stage, capability); q != nil {
		if question == "" {
			question = q.Title
		}
		if option == "" {
			option = q.ChoiceText(a.Rating)
		}
	}
	if question == "" {
		question = capability
	}

	rating := a.Rating
	row := &assessment.SurveyResponse{
		SessionID:          sessionID,
		StageName:          stage,
		Capability:         capability,
		Question:           question,
		Rating:             &rating,
		SelectedOptionText: optionalString(option),
		RatingExplanation:  optionalString(a.Explanation),
		AnsweredAt:         now,
		UpdatedAt:          now,
	}
	return row, nil
}

func (s *answerStore) lookup(stage, capability string) *survey.Question {
	if s.def == nil {
		return nil
	}
	st, ok := s.def.StageByName(stage)
	if !ok {
		return nil
	}
	want := survey.CanonicalCapability(capability)
	for i := range st.Questions {
		if survey.CanonicalCapability(st.Questions[i].Capability) == want {
			return &st.Questions[i]
		}
	}
	return nil
}

func (s *answerStore) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*assessment.SurveyResponse, error) {
	rows, err := s.store.ListAnswers(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	return rows, nil
}

func (s *answerStore) Delete(ctx context.Context, sessionID uuid.UUID, stage, capability string) (bool, error) {
	stage = strings.TrimSpace(stage)
	capability = strings.TrimSpace(capability)
	if stage == "" || capability == "" {
		return false, invalidAnswer(stage, capability, "stage and capability required")
	}
	existed, err := s.store.DeleteAnswer(ctx, sessionID, stage, capability)
	if err != nil {
		return false, fmt.Errorf("delete answer: %w", err)
	}
	return existed, nil
}

// IsInvalidAnswer reports whether err rejected a single answer.
func IsInvalidAnswer(err error) bool { return errors.Is(err, ErrInvalidAnswer) }
