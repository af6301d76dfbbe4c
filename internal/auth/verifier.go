package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/cklinker/emfgw/internal/config"
	"github.com/cklinker/emfgw/internal/observability"
)

// Verifier checks a bearer token and produces the caller's identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// jwtVerifier verifies tokens against a JWKS key set or a static secret.
type jwtVerifier struct {
	issuer      string
	audiences   []string
	skew        time.Duration
	userIDClaim string

	keySet    jwk.Set
	staticKey jwk.Key

	// pendingSecret holds the HS256 secret between option application
	// and key construction; cleared once the key is built.
	pendingSecret string

	logger  observability.Logger
	metrics *Metrics
}

// VerifierOption configures the verifier.
type VerifierOption func(*jwtVerifier)

// WithVerifierLogger sets the logger.
func WithVerifierLogger(logger observability.Logger) VerifierOption {
	return func(v *jwtVerifier) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithVerifierMetrics sets the metrics recorder.
func WithVerifierMetrics(metrics *Metrics) VerifierOption {
	return func(v *jwtVerifier) {
		v.metrics = metrics
	}
}

// WithStaticSecret supplies an HS256 signing secret resolved out of
// band by the secrets provider, so the raw secret never lives in the
// config document.
func WithStaticSecret(secret string) VerifierOption {
	return func(v *jwtVerifier) {
		v.pendingSecret = secret
	}
}

// NewVerifier builds a verifier from configuration. When a JWKS URL is
// configured the key set is fetched once up front so misconfiguration
// fails at startup, then refreshed in the background.
func NewVerifier(ctx context.Context, cfg *config.AuthConfig, opts ...VerifierOption) (Verifier, error) {
	if cfg == nil {
		return nil, errors.New("auth configuration is required")
	}

	v := &jwtVerifier{
		issuer:      cfg.Issuer,
		audiences:   cfg.Audiences,
		skew:        cfg.GetClockSkew(),
		userIDClaim: cfg.GetUserIDClaim(),
		logger:      observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(v)
	}

	if cfg.JWKSURL != "" {
		cache := jwk.NewCache(ctx)
		if err := cache.Register(cfg.JWKSURL, jwk.WithMinRefreshInterval(cfg.GetJWKSRefreshInterval())); err != nil {
			return nil, fmt.Errorf("registering JWKS endpoint: %w", err)
		}
		if _, err := cache.Refresh(ctx, cfg.JWKSURL); err != nil {
			return nil, fmt.Errorf("fetching JWKS from %s: %w", cfg.JWKSURL, err)
		}
		v.keySet = jwk.NewCachedSet(cache, cfg.JWKSURL)
		v.logger.Info("JWKS key set loaded",
			observability.String("url", cfg.JWKSURL),
			observability.Duration("refreshInterval", cfg.GetJWKSRefreshInterval()))
	} else if v.pendingSecret != "" {
		key, err := jwk.FromRaw([]byte(v.pendingSecret))
		if err != nil {
			return nil, fmt.Errorf("building static key: %w", err)
		}
		v.staticKey = key
		v.logger.Info("static HS256 verification key configured")
	} else {
		return nil, ErrNoKeySource
	}
	v.pendingSecret = ""

	return v, nil
}

// Verify parses and validates the token, returning the caller identity.
func (v *jwtVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	start := time.Now()

	if token == "" {
		v.metrics.RecordVerify("error", time.Since(start))
		v.metrics.RecordFailure("missing")
		return nil, ErrNoCredentials
	}

	parseOpts := []jwt.ParseOption{
		jwt.WithContext(ctx),
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(v.skew),
	}
	if v.issuer != "" {
		parseOpts = append(parseOpts, jwt.WithIssuer(v.issuer))
	}
	if v.keySet != nil {
		parseOpts = append(parseOpts, jwt.WithKeySet(v.keySet, jws.WithInferAlgorithmFromKey(true)))
	} else {
		parseOpts = append(parseOpts, jwt.WithKey(jwa.HS256, v.staticKey))
	}

	tok, err := jwt.Parse([]byte(token), parseOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired()) {
			v.metrics.RecordVerify("error", time.Since(start))
			v.metrics.RecordFailure("expired")
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		v.metrics.RecordVerify("error", time.Since(start))
		v.metrics.RecordFailure("invalid")
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if len(v.audiences) > 0 && !audienceMatches(tok.Audience(), v.audiences) {
		v.metrics.RecordVerify("error", time.Since(start))
		v.metrics.RecordFailure("invalid")
		return nil, fmt.Errorf("%w: audience mismatch", ErrInvalidToken)
	}

	identity, err := v.identityFromToken(tok)
	if err != nil {
		v.metrics.RecordVerify("error", time.Since(start))
		v.metrics.RecordFailure("invalid")
		return nil, err
	}

	v.metrics.RecordVerify("ok", time.Since(start))
	v.logger.WithContext(ctx).Debug("token verified",
		observability.String("user_id", identity.UserID),
		observability.String("issuer", identity.Issuer))

	return identity, nil
}

// identityFromToken maps validated claims onto the platform identity.
func (v *jwtVerifier) identityFromToken(tok jwt.Token) (*Identity, error) {
	userID := tok.Subject()
	if v.userIDClaim != "sub" {
		raw, ok := tok.Get(v.userIDClaim)
		if !ok {
			return nil, fmt.Errorf("%w: missing %s claim", ErrInvalidToken, v.userIDClaim)
		}
		s, ok := raw.(string)
		if !ok || s == "" {
			return nil, fmt.Errorf("%w: %s claim is not a string", ErrInvalidToken, v.userIDClaim)
		}
		userID = s
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user id", ErrInvalidToken)
	}

	identity := &Identity{
		UserID:    userID,
		Issuer:    tok.Issuer(),
		ExpiresAt: tok.Expiration(),
		Claims:    tok.PrivateClaims(),
	}
	if raw, ok := tok.Get("email"); ok {
		if email, ok := raw.(string); ok {
			identity.Email = email
		}
	}

	return identity, nil
}

// audienceMatches reports whether any token audience is in the allowed set.
func audienceMatches(tokenAud, allowed []string) bool {
	for _, a := range tokenAud {
		for _, b := range allowed {
			if a == b {
				return true
			}
		}
	}
	return false
}
