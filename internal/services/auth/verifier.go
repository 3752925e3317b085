package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainerrors "github.com/studybuddy/study-service/internal/domain/errors"
	"github.com/studybuddy/study-service/internal/domain/models"
)

// asymmetricAlgorithms lists the algorithms a verifier may ever be configured
// with. Symmetric algorithms and "none" are never accepted.
var asymmetricAlgorithms = map[string]bool{
	"RS256": true, "RS384": true, "RS512": true,
	"PS256": true, "PS384": true, "PS512": true,
	"ES256": true, "ES384": true, "ES512": true,
}

// KeySource provides the current signing key set.
type KeySource interface {
	GetKeys(ctx context.Context, forceRefresh bool) (*KeySet, error)
}

// VerifierConfig holds token verification settings.
type VerifierConfig struct {
	Issuer            string
	Audience          string
	Leeway            time.Duration
	AllowedAlgorithms []string
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// TokenVerifier validates bearer tokens against the identity provider's keys.
type TokenVerifier struct {
	keys     KeySource
	issuer   string
	audience string
	leeway   time.Duration
	allowed  map[string]bool
	now      func() time.Time
}

// NewTokenVerifier creates a new TokenVerifier.
func NewTokenVerifier(keys KeySource, config *VerifierConfig) (*TokenVerifier, error) {
	if keys == nil {
		return nil, fmt.Errorf("key source cannot be nil")
	}
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.Issuer == "" {
		return nil, fmt.Errorf("issuer is required")
	}
	if len(config.AllowedAlgorithms) == 0 {
		return nil, fmt.Errorf("at least one allowed algorithm is required")
	}
	for _, alg := range config.AllowedAlgorithms {
		if !asymmetricAlgorithms[alg] {
			return nil, fmt.Errorf("algorithm %q is not an asymmetric signing algorithm", alg)
		}
	}

	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &TokenVerifier{
		keys:     keys,
		issuer:   config.Issuer,
		audience: config.Audience,
		leeway:   config.Leeway,
		allowed:  algorithmSet(config.AllowedAlgorithms),
		now:      now,
	}, nil
}

// Verify checks the token's signature, issuer, expiry and audience and
// returns the authenticated principal.
func (v *TokenVerifier) Verify(ctx context.Context, token string) (*models.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domainerrors.ErrInvalidToken
	}

	unverified, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrInvalidToken, err)
	}
	kid, _ := unverified.Header["kid"].(string)
	alg, _ := unverified.Header["alg"].(string)
	if kid == "" || alg == "" {
		return nil, fmt.Errorf("%w: header must carry kid and alg", domainerrors.ErrInvalidToken)
	}
	if !v.allowed[alg] {
		return nil, fmt.Errorf("%w: algorithm %q not allowed", domainerrors.ErrInvalidToken, alg)
	}

	key, err := v.resolveKey(ctx, kid)
	if err != nil {
		return nil, err
	}

	claims := jwt.MapClaims{}
	// The key set entry pins the algorithm, never the token header.
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{key.Algorithm}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	_, err = jwt.NewParser(opts...).ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return key.Public, nil
	})
	if err != nil {
		return nil, mapParseError(err)
	}

	return principalFromClaims(claims)
}

// resolveKey looks kid up in the cached set and, failing that, in a freshly
// fetched one.
func (v *TokenVerifier) resolveKey(ctx context.Context, kid string) (SigningKey, error) {
	set, err := v.keys.GetKeys(ctx, false)
	if err != nil {
		return SigningKey{}, err
	}
	if key, ok := set.Lookup(kid); ok {
		return key, nil
	}

	set, err = v.keys.GetKeys(ctx, true)
	if err != nil {
		return SigningKey{}, err
	}
	if key, ok := set.Lookup(kid); ok {
		return key, nil
	}

	return SigningKey{}, fmt.Errorf("%w: %q", domainerrors.ErrUnknownSigningKey, kid)
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", domainerrors.ErrSignatureMismatch, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", domainerrors.ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", domainerrors.ErrInvalidToken, err)
	}
}

func principalFromClaims(claims jwt.MapClaims) (*models.Principal, error) {
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("%w: missing subject", domainerrors.ErrInvalidToken)
	}
	iss, _ := claims.GetIssuer()

	principal := &models.Principal{
		SubjectID: sub,
		Issuer:    iss,
		Claims:    map[string]interface{}(claims),
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		principal.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		principal.IssuedAt = iat.Time
	}

	return principal, nil
}

// Reason returns a metrics label for a verification failure.
func Reason(err error) string {
	switch {
	case errors.Is(err, domainerrors.ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, domainerrors.ErrUnknownSigningKey):
		return "unknown_signing_key"
	case errors.Is(err, domainerrors.ErrSignatureMismatch):
		return "signature_mismatch"
	case errors.Is(err, domainerrors.ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, domainerrors.ErrKeySetUnavailable):
		return "key_set_unavailable"
	case errors.Is(err, domainerrors.ErrInvalidToken):
		return "invalid_token"
	default:
		return "unknown"
	}
}
