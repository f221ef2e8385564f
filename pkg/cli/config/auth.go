package config

import (
	"context"

	"github.com/firebook-app/firebook/pkg/usecase"
	"github.com/firebook-app/firebook/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Auth configures how callable requests are authenticated
type Auth struct {
	projectID string
	noAuthn   string
}

func (a *Auth) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "firebase-project-id",
			Category:    "Auth",
			Usage:       "Firebase project whose ID tokens are accepted",
			Sources:     cli.EnvVars("FIREBOOK_FIREBASE_PROJECT_ID"),
			Destination: &a.projectID,
		},
		&cli.StringFlag{
			Name:        "no-auth",
			Category:    "Auth",
			Usage:       "Skip token verification and act as this user ID (development only)",
			Sources:     cli.EnvVars("FIREBOOK_NO_AUTH"),
			Destination: &a.noAuthn,
		},
	}
}

// Configure returns nil when neither option is set. The callable endpoints
// then reject every request.
func (a *Auth) Configure(ctx context.Context) (usecase.AuthUseCaseInterface, error) {
	if a.noAuthn != "" {
		if a.projectID != "" {
			return nil, goerr.Wrap(ErrInvalidConfig, "no-auth and firebase-project-id cannot be used together")
		}
		logging.Default().Warn("Authentication is disabled", "uid", a.noAuthn)
		return usecase.NewNoAuthnUseCase(a.noAuthn), nil
	}

	if a.projectID == "" {
		logging.Default().Warn("No authentication configured, callable endpoints will reject requests")
		return nil, nil
	}

	uc, err := usecase.NewFirebaseAuthUseCase(ctx, a.projectID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to configure firebase auth")
	}
	return uc, nil
}
