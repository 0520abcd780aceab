package main

import (
	"context"
	"fmt"

	"github.com/favx/favx/internal/models"
	"github.com/favx/favx/internal/providers"
	"github.com/favx/favx/internal/server"
	"github.com/favx/favx/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthTidal authenticates a role with Tidal using the OAuth2 device-code flow.
func (r *Runner) AuthTidal(ctx context.Context, cmd *cli.Command) error {
	role := cmd.String("role")

	catalog, err := r.catalog(models.Tidal)
	if err != nil {
		return err
	}
	tidal, ok := catalog.(*providers.TidalCatalog)
	if !ok {
		return fmt.Errorf("%w: tidal adapter does not support device login", shared.ErrServiceUnavailable)
	}

	r.logger.Info("requesting device code", "role", role)
	auth, err := tidal.RequestDeviceCode(ctx)
	if err != nil {
		return err
	}

	r.writePlain("Visit %s\n", auth.VerificationURL())
	r.writePlain("and enter the code: %s\n\n", auth.UserCode)
	r.writePlain("Waiting for approval...\n")
	if err := r.openBrowser(auth.VerificationURL()); err != nil {
		r.logger.Warn("failed to open browser", "error", err)
	}

	token, err := tidal.PollToken(ctx, auth)
	if err != nil {
		return fmt.Errorf("device authorization was not approved: %w", err)
	}

	account, err := tidal.Session(ctx, token)
	if err != nil {
		return err
	}

	return r.storeAccount(role, account)
}

// AuthQobuz authenticates a role with Qobuz using email/password login.
func (r *Runner) AuthQobuz(ctx context.Context, cmd *cli.Command) error {
	role := cmd.String("role")
	email := cmd.String("email")
	password := cmd.String("password")

	catalog, err := r.catalog(models.Qobuz)
	if err != nil {
		return err
	}
	qobuz, ok := catalog.(*providers.QobuzCatalog)
	if !ok {
		return fmt.Errorf("%w: qobuz adapter does not support password login", shared.ErrServiceUnavailable)
	}

	r.logger.Info("logging in to qobuz", "role", role, "email", email)
	account, err := qobuz.Login(ctx, email, password)
	if err != nil {
		return err
	}

	return r.storeAccount(role, account)
}

// AuthSpotify authenticates a role with Spotify using the OAuth2
// authorization-code flow with a loopback redirect.
func (r *Runner) AuthSpotify(ctx context.Context, cmd *cli.Command) error {
	role := cmd.String("role")

	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return fmt.Errorf("%w: set credentials.spotify.client_id and client_secret in the config", shared.ErrMissingCredentials)
	}

	catalog, err := r.catalog(models.Spotify)
	if err != nil {
		return err
	}
	spotify, ok := catalog.(*providers.SpotifyCatalog)
	if !ok {
		return fmt.Errorf("%w: spotify adapter does not support profile lookup", shared.ErrServiceUnavailable)
	}

	oauthConfig := providers.SpotifyOAuthConfig(creds.ClientID, creds.ClientSecret, creds.RedirectURI)
	state := shared.GenerateID()
	handler := server.NewOAuthHandler(oauthConfig, state)

	authURL := oauthConfig.AuthCodeURL(state)
	r.writePlain("Visit the following URL to authorize:\n%s\n\n", authURL)
	r.writePlain("Waiting for callback on %s...\n", creds.RedirectURI)
	if err := r.openBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser", "error", err)
	}

	token, err := server.ListenForCallback(ctx, creds.RedirectURI, handler)
	if err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	account, err := spotify.Me(ctx, token.AccessToken)
	if err != nil {
		return err
	}

	return r.storeAccount(role, account)
}

// AuthStatus shows which roles hold a stored session.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	sessions, err := r.loadSessions()
	if err != nil {
		return err
	}

	for _, role := range []string{"source", "target"} {
		account, err := sessions.Get(role)
		if err != nil {
			r.writePlain("%s: ✗ not authenticated\n", role)
			continue
		}
		r.writePlain("%s: ✓ %s (user %s)\n", role, account.Provider, account.UserID)
	}
	return nil
}

// AuthLogout forgets the stored session for a role.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	role := cmd.String("role")

	sessions, err := r.loadSessions()
	if err != nil {
		return err
	}
	if err := sessions.Set(role, nil); err != nil {
		return err
	}
	if err := r.saveSessions(sessions); err != nil {
		return err
	}

	r.logger.Info("session removed", "role", role)
	return r.writePlain("✓ Logged out %s\n", role)
}

func (r *Runner) storeAccount(role string, account *models.Account) error {
	sessions, err := r.loadSessions()
	if err != nil {
		return err
	}
	if err := sessions.Set(role, account); err != nil {
		return err
	}
	if err := r.saveSessions(sessions); err != nil {
		return err
	}

	r.logger.Info("session stored", "role", role, "provider", account.Provider, "user", account.UserID)
	return r.writePlain("✓ Authenticated %s with %s (user %s)\n", role, account.Provider, account.UserID)
}
