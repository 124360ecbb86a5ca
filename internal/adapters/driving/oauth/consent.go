package oauth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/lettermerge/internal/adapters/driven/google"
	"github.com/custodia-labs/lettermerge/internal/logger"
)

// ErrNoRefreshToken is returned when the provider grants access without a
// refresh token, usually because consent was granted before.
var ErrNoRefreshToken = errors.New(
	"oauth: no refresh token returned; revoke the app's access in your Google account and retry")

// Consent runs the installed-app authorization code flow with PKCE.
type Consent struct {
	// Port for the loopback callback. 0 picks a free port.
	Port int

	// Open shows the authorization URL to the user. Defaults to OpenBrowser.
	Open func(url string) error

	// Config overrides the Google endpoint, for tests.
	Config func(clientID, clientSecret, redirectURL string) *oauth2.Config
}

// Run sends the user through consent and returns the refresh token.
func (c *Consent) Run(ctx context.Context, clientID, clientSecret string) (string, error) {
	state := rand.Text()
	server := NewCallbackServer(c.Port, state)
	if err := server.Start(); err != nil {
		return "", err
	}
	defer func() {
		if err := server.Stop(); err != nil {
			logger.Warn("stop oauth callback server: %v", err)
		}
	}()

	newConfig := c.Config
	if newConfig == nil {
		newConfig = google.OAuthConfig
	}
	cfg := newConfig(clientID, clientSecret, server.RedirectURI())

	verifier := oauth2.GenerateVerifier()
	authURL := cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(verifier),
	)

	open := c.Open
	if open == nil {
		open = OpenBrowser
	}
	if err := open(authURL); err != nil {
		logger.Warn("open browser: %v", err)
	}

	code, err := server.Wait(ctx)
	if err != nil {
		return "", err
	}

	token, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return "", fmt.Errorf("exchange authorization code: %w", err)
	}
	if token.RefreshToken == "" {
		return "", ErrNoRefreshToken
	}
	return token.RefreshToken, nil
}
