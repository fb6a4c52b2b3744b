package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestVerifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := NewVerifier(VerifierConfig{
		Secret:    "test-secret-used-only-in-tests",
		Issuer:    "backend-pos",
		Audience:  "pos-frontend",
		ClockSkew: time.Minute,
	})
	require.NoError(t, err)
	return v
}

func TestParseAccessTokenRoundTrip(t *testing.T) {
	v := newTestVerifier(t)

	token, err := v.SignOperatorToken("operator-42", time.Hour)
	require.NoError(t, err)

	subject, err := v.ParseAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "operator-42", subject)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	v := newTestVerifier(t)
	v.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := v.SignOperatorToken("operator-42", time.Minute)
	require.NoError(t, err)

	v.now = time.Now
	_, err = v.ParseAccessToken(token)
	require.Error(t, err)
}

func TestParseAccessTokenRejectsWrongIssuer(t *testing.T) {
	other, err := NewVerifier(VerifierConfig{Secret: "test-secret-used-only-in-tests", Issuer: "someone-else"})
	require.NoError(t, err)
	token, err := other.SignOperatorToken("operator-42", time.Hour)
	require.NoError(t, err)

	v := newTestVerifier(t)
	_, err = v.ParseAccessToken(token)
	require.Error(t, err)
}

func TestParseAccessTokenRejectsGarbage(t *testing.T) {
	v := newTestVerifier(t)
	_, err := v.ParseAccessToken("not-a-token")
	require.Error(t, err)
	_, err = v.ParseAccessToken("")
	require.Error(t, err)
}
