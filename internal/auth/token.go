package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/karimhafez/backend-pos/internal/common"
)

// Verifier validates operator access tokens issued by the identity service.
// Login, registration, and session flows live outside this API; only token
// verification is needed here to attribute sales to an operator.
type Verifier struct {
	secret    []byte
	issuer    string
	audience  string
	clockSkew time.Duration
	algorithm jwa.SignatureAlgorithm
	now       func() time.Time
}

// VerifierConfig configures a Verifier.
type VerifierConfig struct {
	Secret    string
	Issuer    string
	Audience  string
	ClockSkew time.Duration
}

// NewVerifier constructs a Verifier with sane defaults.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	skew := cfg.ClockSkew
	if skew < 0 {
		skew = 0
	}
	return &Verifier{
		secret:    []byte(secret),
		issuer:    strings.TrimSpace(cfg.Issuer),
		audience:  strings.TrimSpace(cfg.Audience),
		clockSkew: skew,
		algorithm: jwa.HS256,
		now:       time.Now,
	}, nil
}

// ParseAccessToken validates an access token and returns the subject (operator ID).
func (v *Verifier) ParseAccessToken(token string) (string, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return "", common.NewAppError("UNAUTHORIZED", "missing token", http.StatusUnauthorized, nil)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	if algorithm != v.algorithm {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, v.secret))
	if err != nil {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	options := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return v.now() })),
	}
	if v.clockSkew > 0 {
		options = append(options, jwt.WithAcceptableSkew(v.clockSkew))
	}
	if v.issuer != "" {
		options = append(options, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		options = append(options, jwt.WithAudience(v.audience))
	}
	if err := jwt.Validate(parsed, options...); err != nil {
		return "", common.NewAppError("UNAUTHORIZED", "invalid token", http.StatusUnauthorized, err)
	}
	return parsed.Subject(), nil
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		if alg == "" {
			return "", errors.New("auth: token missing algorithm")
		}
		if alg == jwa.NoSignature {
			return "", errors.New("auth: token uses none algorithm")
		}
		if algorithm == "" {
			algorithm = alg
		} else if algorithm != alg {
			return "", fmt.Errorf("auth: mixed token algorithms detected")
		}
	}
	return algorithm, nil
}

// SignOperatorToken issues a short-lived HS256 token for the given operator.
// Used by the seeder and tests; production tokens come from the identity service.
func (v *Verifier) SignOperatorToken(operatorID string, ttl time.Duration) (string, error) {
	now := v.now()
	builder := jwt.NewBuilder().
		Subject(operatorID).
		IssuedAt(now).
		NotBefore(now.Add(-v.clockSkew)).
		Expiration(now.Add(ttl))
	if v.issuer != "" {
		builder = builder.Issuer(v.issuer)
	}
	if v.audience != "" {
		builder = builder.Audience([]string{v.audience})
	}
	token, err := builder.Build()
	if err != nil {
		return "", err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(v.algorithm, v.secret))
	if err != nil {
		return "", err
	}
	return string(signed), nil
}
