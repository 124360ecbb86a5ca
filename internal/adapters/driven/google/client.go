package google

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
)

// Scopes requested by the consent flow: sending mail and writing the
// files this application creates in Drive.
var Scopes = []string{gmail.GmailSendScope, drive.DriveFileScope}

// OAuthConfig returns the OAuth client for the installed-app flow.
func OAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     googleoauth.Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
	}
}

// TokenSource returns a refreshing token source for a stored consent.
func TokenSource(ctx context.Context, s domain.GoogleSettings) (oauth2.TokenSource, error) {
	if !s.IsConfigured() {
		return nil, ErrNotConfigured
	}
	cfg := OAuthConfig(s.ClientID, s.ClientSecret, "")
	return cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: s.RefreshToken}), nil
}

// ClientOptions returns the API client options for a stored consent.
func ClientOptions(ctx context.Context, s domain.GoogleSettings) ([]option.ClientOption, error) {
	ts, err := TokenSource(ctx, s)
	if err != nil {
		return nil, err
	}
	return []option.ClientOption{option.WithTokenSource(ts)}, nil
}

// NewGmailService creates a Gmail API client.
func NewGmailService(ctx context.Context, opts ...option.ClientOption) (*gmail.Service, error) {
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return svc, nil
}

// NewDriveService creates a Drive API client.
func NewDriveService(ctx context.Context, opts ...option.ClientOption) (*drive.Service, error) {
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return svc, nil
}
