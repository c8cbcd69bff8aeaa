package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewSessionUsesIssuerClock(t *testing.T) {
	issued := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.FixedZone("WAT", 3600))
	s, err := NewSession(CreateSessionParams{Token: " tok-abcdef123 ", UserID: "u-1", TTL: time.Hour, Now: issued})
	require.NoError(t, err)
	require.Equal(t, Token("tok-abcdef123"), s.Token)
	require.Equal(t, time.UTC, s.CreatedAt.Location())
	require.Equal(t, issued.Add(time.Hour).UTC(), s.ExpiresAt)

	require.False(t, s.Expired(issued.Add(59*time.Minute)))
	require.True(t, s.Expired(issued.Add(time.Hour)))

	_, err = NewSession(CreateSessionParams{Token: "tok", UserID: "u-1", TTL: time.Hour})
	require.ErrorIs(t, err, ErrIssuedAtRequired)
	_, err = NewSession(CreateSessionParams{Token: "tok", UserID: "u-1", Now: issued})
	require.ErrorIs(t, err, ErrTTLInvalid)
	_, err = NewSession(CreateSessionParams{Token: "  ", UserID: "u-1", TTL: time.Hour, Now: issued})
	require.ErrorIs(t, err, ErrTokenRequired)
}

func TestTokenRedacted(t *testing.T) {
	require.Equal(t, "tok-ab***", Token("tok-abcdef123").Redacted())
	require.Equal(t, "***", Token("short").Redacted())
}
