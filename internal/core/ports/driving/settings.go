package driving

import "github.com/custodia-labs/lettermerge/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// SetDeliveryProvider selects the delivery transport and sender address.
	SetDeliveryProvider(provider domain.DeliveryProvider, sender string) error

	// SetGoogleCredentials stores the OAuth client and refresh token.
	SetGoogleCredentials(clientID, clientSecret, refreshToken string) error

	// AddAPIKeyHash appends an accepted bcrypt key hash.
	AddAPIKeyHash(hash string) error

	// Set parses and stores one dot-notation key such as "delivery.workers".
	Set(key, value string) error

	// Keys lists the keys accepted by Set.
	Keys() []string

	// Validate checks that the selected provider is fully configured.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}
