package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/maturity-assessment-backend/internal/domain/assessment"
	"github.com/yungbote/maturity-assessment-backend/internal/domain/survey"
	"github.com/yungbote/maturity-assessment-backend/internal/observability"
	"github.com/yungbote/maturity-assessment-backend/internal/platform/logger"
)

// IdentityInput is what a respondent submits before the survey starts.
type IdentityInput struct {
	CompanyName     string `json:"company_name"`
	RespondentName  string `json:"respondent_name"`
	RespondentEmail string `json:"respondent_email"`
	IPAddress       string `json:"-"`
	UserAgent       string `json:"-"`
}

// RecoverInput picks one lookup key; precedence is session id, then email, then company.
type RecoverInput struct {
	SessionID string `json:"session_id"`
	Email     string `json:"email"`
	Company   string `json:"company"`
}

// RecoverResult holds either one session or, for a company shared by several
// sessions, the candidates the caller must choose from.
type RecoverResult struct {
	Session    *assessment.SurveySession   `json:"session,omitempty"`
	Candidates []*assessment.SurveySession `json:"candidates,omitempty"`
}

func (r RecoverResult) Ambiguous() bool { return r.Session == nil && len(r.Candidates) > 1 }

// CreateResult reports a new session, or the existing one that blocked
// creation when the email is already in use.
type CreateResult struct {
	Session   *assessment.SurveySession `json:"session,omitempty"`
	Duplicate *assessment.SurveySession `json:"duplicate,omitempty"`
}

type IdentityResolver interface {
	ByID(ctx context.Context, sessionID string) (*assessment.SurveySession, error)
	ByEmail(ctx context.Context, email string) (*assessment.SurveySession, error)
	ByCompany(ctx context.Context, company string) (*assessment.SurveySession, error)
	AllByCompany(ctx context.Context, company string) ([]*assessment.SurveySession, error)
	Recover(ctx context.Context, in RecoverInput) (RecoverResult, error)
	// Create checks the email for an existing session first. anyway skips
	// that check for this one call.
	Create(ctx context.Context, in IdentityInput, anyway bool) (CreateResult, error)
}

type identityResolver struct {
	log     *logger.Logger
	store   Store
	def     *survey.Definition
	metrics *observability.Metrics
	now     func() time.Time
}

func NewIdentityResolver(log *logger.Logger, store Store, def *survey.Definition, metrics *observability.Metrics) IdentityResolver {
	return &identityResolver{
		log:     log.With("service", "IdentityResolver"),
		store:   store,
		def:     def,
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ParseSessionID maps malformed ids to ErrNotFound; an id that cannot exist is not a client error.
func ParseSessionID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: session %q", ErrNotFound, raw)
	}
	return id, nil
}

func (r *identityResolver) ByID(ctx context.Context, sessionID string) (*assessment.SurveySession, error) {
	id, err := ParseSessionID(sessionID)
	if err != nil {
		r.metrics.IncIdentityLookup("id", "malformed")
		return nil, err
	}
	s, err := r.store.FindSessionByID(ctx, id)
	return r.found(ctx, "id", s, err)
}

func (r *identityResolver) ByEmail(ctx context.Context, email string) (*assessment.SurveySession, error) {
	email = assessment.NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email required", ErrInvalidIdentity)
	}
	s, err := r.store.FindSessionByEmail(ctx, email)
	return r.found(ctx, "email", s, err)
}

func (r *identityResolver) ByCompany(ctx context.Context, company string) (*assessment.SurveySession, error) {
	company = assessment.NormalizeCompany(company)
	if company == "" {
		return nil, fmt.Errorf("%w: company required", ErrInvalidIdentity)
	}
	s, err := r.store.FindSessionByCompany(ctx, company)
	return r.found(ctx, "company", s, err)
}

func (r *identityResolver) AllByCompany(ctx context.Context, company string) ([]*assessment.SurveySession, error) {
	company = assessment.NormalizeCompany(company)
	if company == "" {
		return nil, fmt.Errorf("%w: company required", ErrInvalidIdentity)
	}
	rows, err := r.store.FindSessionsByCompany(ctx, company)
	if err != nil {
		r.metrics.IncIdentityLookup("company_all", "error")
		return nil, fmt.Errorf("find sessions by company: %w", err)
	}
	if len(rows) == 0 {
		r.metrics.IncIdentityLookup("company_all", "not_found")
		return nil, fmt.Errorf("%w: no sessions for company", ErrNotFound)
	}
	r.metrics.IncIdentityLookup("company_all", "found")
	return rows, nil
}

// found converts a lookup result into the session-or-ErrNotFound contract and
// touches last_activity on a hit.
func (r *identityResolver) found(ctx context.Context, by string, s *assessment.SurveySession, err error) (*assessment.SurveySession, error) {
	if err != nil {
		r.metrics.IncIdentityLookup(by, "error")
		return nil, fmt.Errorf("find session by %s: %w", by, err)
	}
	if s == nil {
		r.metrics.IncIdentityLookup(by, "not_found")
		return nil, fmt.Errorf("%w: session", ErrNotFound)
	}
	r.metrics.IncIdentityLookup(by, "found")
	now := r.now()
	if err := r.store.TouchSession(ctx, s.SessionID, now); err != nil {
		r.log.Warn("touch session failed", "session_id", s.SessionID, "error", err)
	} else if now.After(s.LastActivity) {
		s.LastActivity = now
	}
	return s, nil
}

func (r *identityResolver) Recover(ctx context.Context, in RecoverInput) (RecoverResult, error) {
	switch {
	case strings.TrimSpace(in.SessionID) != "":
		s, err := r.ByID(ctx, in.SessionID)
		if err != nil {
			return RecoverResult{}, err
		}
		return RecoverResult{Session: s}, nil
	case strings.TrimSpace(in.Email) != "":
		s, err := r.ByEmail(ctx, in.Email)
		if err != nil {
			return RecoverResult{}, err
		}
		return RecoverResult{Session: s}, nil
	case strings.TrimSpace(in.Company) != "":
		rows, err := r.AllByCompany(ctx, in.Company)
		if err != nil {
			return RecoverResult{}, err
		}
		if len(rows) == 1 {
			s, err := r.found(ctx, "company", rows[0], nil)
			return RecoverResult{Session: s}, err
		}
		return RecoverResult{Candidates: rows}, nil
	default:
		return RecoverResult{}, fmt.Errorf("%w: session id, email or company required", ErrInvalidIdentity)
	}
}

func (r *identityResolver) Create(ctx context.Context, in IdentityInput, anyway bool) (CreateResult, error) {
	email := assessment.NormalizeEmail(in.RespondentEmail)
	company := assessment.NormalizeCompany(in.CompanyName)
	if email == "" || !strings.Contains(email, "@") {
		return CreateResult{}, fmt.Errorf("%w: valid respondent email required", ErrInvalidIdentity)
	}
	if company == "" {
		return CreateResult{}, fmt.Errorf("%w: company name required", ErrInvalidIdentity)
	}

	if !anyway {
		existing, err := r.store.FindSessionByEmail(ctx, email)
		if err != nil {
			return CreateResult{}, fmt.Errorf("check existing session: %w", err)
		}
		if existing != nil {
			r.metrics.IncIdentityLookup("email", "duplicate")
			r.log.Info("existing session for email; deferring creation", "session_id", existing.SessionID)
			return CreateResult{Duplicate: existing}, nil
		}
	}

	now := r.now()
	s := &assessment.SurveySession{
		SessionID:       uuid.New(),
		UserIdentifier:  assessment.UserIdentifier(email, company),
		CompanyName:     company,
		RespondentName:  strings.TrimSpace(in.RespondentName),
		RespondentEmail: email,
		UserIPAddress:   optionalString(in.IPAddress),
		UserAgent:       optionalString(in.UserAgent),
		CreatedAt:       now,
		UpdatedAt:       now,
		LastActivity:    now,
	}
	if r.def != nil {
		s.TotalQuestions = r.def.TotalQuestions()
	}
	if err := r.store.CreateSession(ctx, s); err != nil {
		return CreateResult{}, fmt.Errorf("create session: %w", err)
	}
	r.log.Info("session created", "session_id", s.SessionID, "create_anyway", anyway)
	return CreateResult{Session: s}, nil
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
