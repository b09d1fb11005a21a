package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/native-market/pos-api/internal/common"
)

const (
	defaultSessionTTL = 12 * time.Hour
	defaultIssuer     = "native-market-pos"

	authenticatedClaim = "authenticated"
)

// Service guards the stall behind a single shared password and mints
// short-lived session tokens for the dashboard.
type Service struct {
	secret       []byte
	passwordHash string
	sessionTTL   time.Duration
	issuer       string
	now          func() time.Time
}

// Config configures the auth service.
type Config struct {
	Secret       string
	PasswordHash string
	SessionTTL   time.Duration
	Issuer       string
}

// NewService constructs a Service instance with sane defaults.
func NewService(cfg Config) (*Service, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	hash := strings.TrimSpace(cfg.PasswordHash)
	if hash == "" {
		return nil, errors.New("auth: password hash is required")
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = defaultIssuer
	}
	return &Service{
		secret:       []byte(secret),
		passwordHash: hash,
		sessionTTL:   ttl,
		issuer:       issuer,
		now:          time.Now,
	}, nil
}

// SessionTTL reports the configured session lifetime.
func (s *Service) SessionTTL() time.Duration {
	return s.sessionTTL
}

// Login verifies the stall password and mints a session token.
func (s *Service) Login(password string) (string, time.Time, error) {
	match, err := argon2id.ComparePasswordAndHash(strings.TrimSpace(password), s.passwordHash)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("compare password: %w", err)
	}
	if !match {
		return "", time.Time{}, common.NewAppError("UNAUTHORIZED", "incorrect password", http.StatusUnauthorized, nil)
	}
	return s.signSessionToken()
}

// VerifySession checks a session token's signature, validity window,
// and authenticated claim.
func (s *Service) VerifySession(token string) error {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return common.Unauthorized("missing session", nil)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return common.Unauthorized("invalid session", err)
	}
	if algorithm != jwa.HS256 {
		return common.Unauthorized("invalid session", fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed,
		jwt.WithKey(jwa.HS256, s.secret),
		jwt.WithIssuer(s.issuer),
		jwt.WithClock(jwt.ClockFunc(s.now)),
	)
	if err != nil {
		return common.Unauthorized("invalid session", err)
	}
	claim, ok := parsed.Get(authenticatedClaim)
	if !ok {
		return common.Unauthorized("invalid session", errors.New("auth: token missing authenticated claim"))
	}
	if authenticated, ok := claim.(bool); !ok || !authenticated {
		return common.Unauthorized("invalid session", errors.New("auth: token not authenticated"))
	}
	return nil
}

func (s *Service) signSessionToken() (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.sessionTTL)
	token, err := jwt.NewBuilder().
		Issuer(s.issuer).
		IssuedAt(now).
		NotBefore(now).
		Expiration(expiresAt).
		Claim(authenticatedClaim, true).
		Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, s.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
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
			return "", errors.New("auth: mixed token algorithms detected")
		}
	}
	return algorithm, nil
}
