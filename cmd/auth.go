package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/desertthunder/wtx/internal/server"
	"github.com/desertthunder/wtx/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// stravaEndpoint is Strava's OAuth2 endpoint pair.
var stravaEndpoint = oauth2.Endpoint{
	AuthURL:  "https://www.strava.com/oauth/authorize",
	TokenURL: "https://www.strava.com/oauth/token",
}

// oauthConfig builds the OAuth2 config for the configured Strava app.
//
// Strava expects its scopes comma-separated in a single scope parameter.
func oauthConfig(config *shared.Config) *oauth2.Config {
	port := config.Destination.CallbackPort
	if port == 0 {
		port = 8723
	}
	return &oauth2.Config{
		ClientID:     config.Destination.ClientID,
		ClientSecret: config.Destination.ClientSecret,
		Endpoint:     stravaEndpoint,
		RedirectURL:  fmt.Sprintf("http://localhost:%d/callback", port),
		Scopes:       []string{"activity:write,activity:read_all"},
	}
}

// tokenPath resolves where the Strava token is persisted.
func tokenPath(config *shared.Config) string {
	if config.Destination.TokenPath != "" {
		return config.Destination.TokenPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "strava_token.json"
	}
	return filepath.Join(home, ".wtx", "strava_token.json")
}

// tokenStore persists the OAuth2 token as JSON on disk.
type tokenStore struct {
	path string
}

func (t *tokenStore) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(t.path)
	if err != nil {
		return nil, fmt.Errorf("%w: no Strava token at %s", shared.ErrMissingCredentials, t.path)
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	return &token, nil
}

func (t *tokenStore) Save(token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0755); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	if err := os.WriteFile(t.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// stravaTokens adapts the stored token into a [services.TokenProvider],
// refreshing through the OAuth2 token source and persisting rotations.
type stravaTokens struct {
	store  *tokenStore
	config *oauth2.Config
}

func newStravaTokens(config *shared.Config) *stravaTokens {
	return &stravaTokens{
		store:  &tokenStore{path: tokenPath(config)},
		config: oauthConfig(config),
	}
}

func (p *stravaTokens) Token(ctx context.Context) (string, error) {
	stored, err := p.store.Load()
	if err != nil {
		return "", err
	}

	fresh, err := p.config.TokenSource(ctx, stored).Token()
	if err != nil {
		return "", fmt.Errorf("%w: token refresh failed: %v", shared.ErrAuthInvalid, err)
	}

	if fresh.AccessToken != stored.AccessToken {
		if err := p.store.Save(fresh); err != nil {
			return "", err
		}
	}

	return fresh.AccessToken, nil
}

// AuthLogin runs the OAuth2 authorization-code flow against Strava using a
// local callback server, then persists the token.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	if config.Destination.ClientID == "" || config.Destination.ClientSecret == "" {
		return fmt.Errorf("%w: destination.client_id and destination.client_secret must be set", shared.ErrMissingConfig)
	}

	token, err := r.doOAuth(config)
	if err != nil {
		return err
	}

	store := &tokenStore{path: tokenPath(config)}
	if err := store.Save(token); err != nil {
		return err
	}

	r.logger.Info("token saved", "path", store.path)
	r.writePlain("✓ Strava authentication successful\n")
	r.writePlain("Token saved to: %s\n", store.path)
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(config *shared.Config) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	oauthConf := oauthConfig(config)
	authURL := oauthConf.AuthCodeURL(state)

	oauthHandler := server.NewOAuthHandler(oauthConf, state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	port := config.Destination.CallbackPort
	if port == 0 {
		port = 8723
	}
	callbackServer := server.NewCallbackServer(port, router)

	r.logger.Infof("starting OAuth callback server at localhost:%d", port)
	callbackServer.Start()
	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Strava authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
		// Got result from callback
	case err := <-callbackServer.Err():
		if err != nil {
			return nil, fmt.Errorf("server error: %w", err)
		}
		return nil, fmt.Errorf("callback server stopped unexpectedly")
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := callbackServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}

	return result.Token, nil
}

// AuthStatus reports the state of the stored Strava token.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)
	store := &tokenStore{path: tokenPath(config)}

	token, err := store.Load()
	if err != nil {
		r.writePlain("✗ No Strava credentials found\n")
		r.writePlain("Run 'wtx auth login' to authenticate\n")
		return nil
	}

	r.writePlain("✓ Strava token present at %s\n", store.path)
	if token.Expiry.IsZero() {
		r.writePlain("Expiry: unknown\n")
	} else if token.Valid() {
		r.writePlain("Access token valid until %s\n", token.Expiry.Format(time.RFC1123))
	} else {
		r.writePlain("Access token expired at %s (will refresh on next use)\n", token.Expiry.Format(time.RFC1123))
	}
	if token.RefreshToken == "" {
		r.writePlain("⚠ No refresh token stored; re-run 'wtx auth login' when the access token expires\n")
	}
	return nil
}
