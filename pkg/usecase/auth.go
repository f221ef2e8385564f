package usecase

import (
	"context"
	"time"

	"github.com/firebook-app/firebook/pkg/domain/model"
	"github.com/firebook-app/firebook/pkg/domain/model/auth"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
)

// FirebaseJWKSURL publishes the keys that sign Firebase ID tokens
const FirebaseJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

// AuthUseCaseInterface authenticates callable requests
type AuthUseCaseInterface interface {
	Authenticate(ctx context.Context, idToken string) (*auth.Caller, error)
	IsNoAuthn() bool
}

// FirebaseAuthUseCase verifies Firebase ID tokens
type FirebaseAuthUseCase struct {
	projectID string
	keySet    jwk.Set
	skew      time.Duration
}

type FirebaseAuthOption func(*FirebaseAuthUseCase)

// WithKeySet replaces the fetched Google key set
func WithKeySet(set jwk.Set) FirebaseAuthOption {
	return func(uc *FirebaseAuthUseCase) {
		uc.keySet = set
	}
}

// NewFirebaseAuthUseCase verifies tokens issued for projectID. Google's keys
// are fetched once and refreshed in the background until ctx is done.
func NewFirebaseAuthUseCase(ctx context.Context, projectID string, opts ...FirebaseAuthOption) (*FirebaseAuthUseCase, error) {
	if projectID == "" {
		return nil, goerr.New("firebase project ID is required")
	}

	uc := &FirebaseAuthUseCase{
		projectID: projectID,
		skew:      10 * time.Second,
	}
	for _, opt := range opts {
		opt(uc)
	}

	if uc.keySet == nil {
		cache := jwk.NewCache(ctx)
		if err := cache.Register(FirebaseJWKSURL, jwk.WithMinRefreshInterval(15*time.Minute)); err != nil {
			return nil, goerr.Wrap(err, "failed to register JWKS URL")
		}
		if _, err := cache.Refresh(ctx, FirebaseJWKSURL); err != nil {
			return nil, goerr.Wrap(err, "failed to fetch Firebase signing keys")
		}
		uc.keySet = jwk.NewCachedSet(cache, FirebaseJWKSURL)
	}

	return uc, nil
}

// Authenticate checks the token signature, issuer, audience and lifetime
func (uc *FirebaseAuthUseCase) Authenticate(ctx context.Context, idToken string) (*auth.Caller, error) {
	if idToken == "" {
		return nil, goerr.Wrap(model.ErrUnauthenticated, "missing ID token")
	}

	token, err := jwt.Parse([]byte(idToken),
		jwt.WithKeySet(uc.keySet),
		jwt.WithValidate(true),
		jwt.WithIssuer("https://securetoken.google.com/"+uc.projectID),
		jwt.WithAudience(uc.projectID),
		jwt.WithAcceptableSkew(uc.skew),
	)
	if err != nil {
		return nil, goerr.Wrap(model.ErrUnauthenticated, "invalid ID token", goerr.V("reason", err.Error()))
	}

	if token.Subject() == "" {
		return nil, goerr.Wrap(model.ErrUnauthenticated, "ID token has no subject")
	}

	caller := &auth.Caller{UID: model.OwnerID(token.Subject())}
	if email, ok := token.PrivateClaims()["email"].(string); ok {
		caller.Email = email
	}
	return caller, nil
}

func (uc *FirebaseAuthUseCase) IsNoAuthn() bool {
	return false
}

// NoAuthnUseCase authenticates every request as a fixed user (for development/testing)
type NoAuthnUseCase struct {
	uid model.OwnerID
}

func NewNoAuthnUseCase(uid string) *NoAuthnUseCase {
	return &NoAuthnUseCase{uid: model.OwnerID(uid)}
}

// Authenticate ignores the token and returns the configured user
func (uc *NoAuthnUseCase) Authenticate(ctx context.Context, idToken string) (*auth.Caller, error) {
	return &auth.Caller{UID: uc.uid}, nil
}

func (uc *NoAuthnUseCase) IsNoAuthn() bool {
	return true
}
