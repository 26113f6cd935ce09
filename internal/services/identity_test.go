package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIdentityCreateDetectsDuplicateEmail(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()

	first := h.createSession(t, "Pat@Acme.com", "Acme")
	require.NotNil(t, first.Session)
	require.Nil(t, first.Duplicate)
	require.Equal(t, "pat@acme.com", first.Session.RespondentEmail)
	require.Equal(t, 4, first.Session.TotalQuestions)

	second := h.createSession(t, "  PAT@acme.com ", "Other Co")
	require.Nil(t, second.Session)
	require.NotNil(t, second.Duplicate)
	require.Equal(t, first.Session.SessionID, second.Duplicate.SessionID)

	forced, err := h.identity.Create(ctx, IdentityInput{CompanyName: "Other Co", RespondentEmail: "pat@acme.com"}, true)
	require.NoError(t, err)
	require.NotNil(t, forced.Session)
	require.NotEqual(t, first.Session.SessionID, forced.Session.SessionID)

	latest, err := h.identity.ByEmail(ctx, "PAT@ACME.COM")
	require.NoError(t, err)
	require.Equal(t, forced.Session.SessionID, latest.SessionID)
}

func TestIdentityCreateRejectsIncompleteInput(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()

	_, err := h.identity.Create(ctx, IdentityInput{CompanyName: "Acme", RespondentEmail: "no-at-sign"}, false)
	require.ErrorIs(t, err, ErrInvalidIdentity)

	_, err = h.identity.Create(ctx, IdentityInput{RespondentEmail: "pat@acme.com"}, false)
	require.ErrorIs(t, err, ErrInvalidIdentity)
}

func TestIdentityLookupsReturnNotFound(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()

	for _, raw := range []string{"", "not-a-uuid", "00000000-0000-0000-0000-000000000000", "0b7e1c6e-3a51-4b0f-9c2e-6f4d8a1b2c3d"} {
		_, err := h.identity.ByID(ctx, raw)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("ByID(%q): want ErrNotFound got %v", raw, err)
		}
	}
	_, err := h.identity.ByEmail(ctx, "ghost@example.com")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = h.identity.ByCompany(ctx, "Ghost Inc")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestIdentityLookupTouchesLastActivity(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()
	created := h.createSession(t, "pat@acme.com", "Acme").Session

	got, err := h.identity.ByID(ctx, created.SessionID.String())
	require.NoError(t, err)
	require.False(t, got.LastActivity.Before(created.LastActivity))
}

func TestRecoverByCompanyReportsAmbiguity(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()

	one := h.createSession(t, "a@acme.com", "Acme").Session
	res, err := h.identity.Recover(ctx, RecoverInput{Company: "acme"})
	require.NoError(t, err)
	require.False(t, res.Ambiguous())
	require.Equal(t, one.SessionID, res.Session.SessionID)

	h.createSession(t, "b@acme.com", "ACME")
	res, err = h.identity.Recover(ctx, RecoverInput{Company: "Acme"})
	require.NoError(t, err)
	require.True(t, res.Ambiguous())
	require.Len(t, res.Candidates, 2)

	_, err = h.identity.Recover(ctx, RecoverInput{})
	require.ErrorIs(t, err, ErrInvalidIdentity)
}
