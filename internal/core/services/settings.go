package services

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"time"

	"github.com/custodia-labs/lettermerge/internal/core/domain"
	"github.com/custodia-labs/lettermerge/internal/core/ports/driven"
	"github.com/custodia-labs/lettermerge/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyBatchConcurrency     = "batch.concurrency"
	keyBatchOutputDir       = "batch.output_dir"
	keyBatchTemplate        = "batch.template"
	keyBatchMappingFile     = "batch.mapping_file"
	keyBatchContinueOnError = "batch.continue_on_error"
	keyRenderFontSize       = "render.font_size"
	keyRenderDefaultOffset  = "render.default_offset"
	keyDeliveryProvider     = "delivery.provider"
	keyDeliverySender       = "delivery.sender"
	keyDeliveryWorkers      = "delivery.workers"
	keyDeliveryDrain        = "delivery.drain_timeout_seconds"
	keyDeliveryIdle         = "delivery.idle_timeout_seconds"
	keyDeliveryRate         = "delivery.rate_per_second"
	keyDeliverySubject      = "delivery.subject"
	keyDeliveryBody         = "delivery.body"
	keySMTPHost             = "smtp.host"
	keySMTPPort             = "smtp.port"
	keySMTPUsername         = "smtp.username"
	keySMTPPassword         = "smtp.password"
	keyOutboxDir            = "outbox.dir"
	keyGoogleClientID       = "google.client_id"
	keyGoogleClientSecret   = "google.client_secret"
	keyGoogleRefreshToken   = "google.refresh_token"
	keyPublishDriveFolder   = "publish.drive_folder_id"
	keyServerAPIKeyHashes   = "server.api_key_hashes"
)

// settingKind is the value type of a settable key.
type settingKind int

const (
	kindString settingKind = iota
	kindInt
	kindFloat
	kindBool
	kindProvider
)

// settableKeys lists the keys accepted by Set. API key hashes are only
// added through AddAPIKeyHash.
var settableKeys = map[string]settingKind{
	keyBatchConcurrency:     kindInt,
	keyBatchOutputDir:       kindString,
	keyBatchTemplate:        kindString,
	keyBatchMappingFile:     kindString,
	keyBatchContinueOnError: kindBool,
	keyRenderFontSize:       kindFloat,
	keyRenderDefaultOffset:  kindFloat,
	keyDeliveryProvider:     kindProvider,
	keyDeliverySender:       kindString,
	keyDeliveryWorkers:      kindInt,
	keyDeliveryDrain:        kindInt,
	keyDeliveryIdle:         kindInt,
	keyDeliveryRate:         kindFloat,
	keyDeliverySubject:      kindString,
	keyDeliveryBody:         kindString,
	keySMTPHost:             kindString,
	keySMTPPort:             kindInt,
	keySMTPUsername:         kindString,
	keySMTPPassword:         kindString,
	keyOutboxDir:            kindString,
	keyGoogleClientID:       kindString,
	keyGoogleClientSecret:   kindString,
	keyGoogleRefreshToken:   kindString,
	keyPublishDriveFolder:   kindString,
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Batch: domain.BatchSettings{
			Concurrency:     s.getInt(keyBatchConcurrency, defaults.Batch.Concurrency),
			OutputDir:       s.getString(keyBatchOutputDir, defaults.Batch.OutputDir),
			Template:        s.getString(keyBatchTemplate, defaults.Batch.Template),
			MappingFile:     s.configStore.GetString(keyBatchMappingFile),
			ContinueOnError: s.getBool(keyBatchContinueOnError, defaults.Batch.ContinueOnError),
		},
		Render: domain.RenderSettings{
			FontSize:      s.getFloat(keyRenderFontSize, defaults.Render.FontSize),
			DefaultOffset: s.getFloat(keyRenderDefaultOffset, defaults.Render.DefaultOffset),
		},
		Delivery: domain.DeliverySettings{
			Provider:      s.getProvider(defaults.Delivery.Provider),
			Sender:        s.configStore.GetString(keyDeliverySender),
			Workers:       s.getInt(keyDeliveryWorkers, defaults.Delivery.Workers),
			DrainTimeout:  s.getSeconds(keyDeliveryDrain, defaults.Delivery.DrainTimeout),
			IdleTimeout:   s.getSeconds(keyDeliveryIdle, defaults.Delivery.IdleTimeout),
			RatePerSecond: s.configStore.GetFloat(keyDeliveryRate),
			Subject:       s.getString(keyDeliverySubject, defaults.Delivery.Subject),
			Body:          s.getString(keyDeliveryBody, defaults.Delivery.Body),
		},
		SMTP: domain.SMTPSettings{
			Host:     s.configStore.GetString(keySMTPHost),
			Port:     s.getInt(keySMTPPort, defaults.SMTP.Port),
			Username: s.configStore.GetString(keySMTPUsername),
			Password: s.configStore.GetString(keySMTPPassword),
		},
		Outbox: s.getString(keyOutboxDir, defaults.Outbox),
		Google: domain.GoogleSettings{
			ClientID:     s.configStore.GetString(keyGoogleClientID),
			ClientSecret: s.configStore.GetString(keyGoogleClientSecret),
			RefreshToken: s.configStore.GetString(keyGoogleRefreshToken),
		},
		Publish: domain.PublishSettings{
			DriveFolderID: s.configStore.GetString(keyPublishDriveFolder),
		},
		Server: domain.ServerSettings{
			APIKeyHashes: s.configStore.GetStringSlice(keyServerAPIKeyHashes),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyBatchConcurrency, settings.Batch.Concurrency},
		{keyBatchOutputDir, settings.Batch.OutputDir},
		{keyBatchTemplate, settings.Batch.Template},
		{keyBatchMappingFile, settings.Batch.MappingFile},
		{keyBatchContinueOnError, settings.Batch.ContinueOnError},
		{keyRenderFontSize, settings.Render.FontSize},
		{keyRenderDefaultOffset, settings.Render.DefaultOffset},
		{keyDeliveryProvider, settings.Delivery.Provider.String()},
		{keyDeliverySender, settings.Delivery.Sender},
		{keyDeliveryWorkers, settings.Delivery.Workers},
		{keyDeliveryDrain, int(settings.Delivery.DrainTimeout / time.Second)},
		{keyDeliveryIdle, int(settings.Delivery.IdleTimeout / time.Second)},
		{keyDeliveryRate, settings.Delivery.RatePerSecond},
		{keyDeliverySubject, settings.Delivery.Subject},
		{keyDeliveryBody, settings.Delivery.Body},
		{keySMTPHost, settings.SMTP.Host},
		{keySMTPPort, settings.SMTP.Port},
		{keySMTPUsername, settings.SMTP.Username},
		{keyOutboxDir, settings.Outbox},
		{keyGoogleClientID, settings.Google.ClientID},
		{keyPublishDriveFolder, settings.Publish.DriveFolderID},
		{keyServerAPIKeyHashes, settings.Server.APIKeyHashes},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// Secrets are only written when set so an empty form never wipes them.
	secrets := map[string]string{
		keySMTPPassword:       settings.SMTP.Password,
		keyGoogleClientSecret: settings.Google.ClientSecret,
		keyGoogleRefreshToken: settings.Google.RefreshToken,
	}
	for key, value := range secrets {
		if value == "" {
			continue
		}
		if err := s.configStore.Set(key, value); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}

	return nil
}

// SetDeliveryProvider selects the delivery transport and sender address.
func (s *SettingsService) SetDeliveryProvider(provider domain.DeliveryProvider, sender string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid delivery provider: %s", provider)
	}
	if provider != domain.DeliveryProviderNone && sender == "" {
		return fmt.Errorf("sender address required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Delivery.Provider = provider
	settings.Delivery.Sender = sender

	return s.Save(settings)
}

// SetGoogleCredentials stores the OAuth client and refresh token.
func (s *SettingsService) SetGoogleCredentials(clientID, clientSecret, refreshToken string) error {
	if clientID == "" || clientSecret == "" {
		return fmt.Errorf("google client id and secret are required: %w", domain.ErrInvalidInput)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Google.ClientID = clientID
	settings.Google.ClientSecret = clientSecret
	settings.Google.RefreshToken = refreshToken

	return s.Save(settings)
}

// AddAPIKeyHash appends an accepted bcrypt key hash.
func (s *SettingsService) AddAPIKeyHash(hash string) error {
	if hash == "" {
		return fmt.Errorf("empty key hash: %w", domain.ErrInvalidInput)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	if slices.Contains(settings.Server.APIKeyHashes, hash) {
		return nil
	}

	settings.Server.APIKeyHashes = append(settings.Server.APIKeyHashes, hash)
	return s.Save(settings)
}

// Validate checks that the selected provider is fully configured.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if settings.Batch.Concurrency < 1 {
		return fmt.Errorf("batch concurrency must be at least 1, got %d", settings.Batch.Concurrency)
	}

	provider := settings.Delivery.Provider
	if provider != domain.DeliveryProviderNone && settings.Delivery.Sender == "" {
		return fmt.Errorf("delivery provider %q requires a sender address", provider.Description())
	}

	switch provider {
	case domain.DeliveryProviderGmail:
		if !settings.Google.IsConfigured() {
			return fmt.Errorf(
				"delivery provider %q requires google credentials; run 'lettermerge auth google'",
				provider.Description(),
			)
		}
	case domain.DeliveryProviderSMTP:
		if !settings.SMTP.IsConfigured() {
			return fmt.Errorf("delivery provider %q requires smtp.host and smtp.port", provider.Description())
		}
	case domain.DeliveryProviderOutbox:
		if settings.Outbox == "" {
			return fmt.Errorf("delivery provider %q requires outbox.dir", provider.Description())
		}
	}

	if settings.Publish.DriveFolderID != "" && !settings.Google.IsConfigured() {
		return fmt.Errorf("drive publication requires google credentials")
	}

	return nil
}

// Set parses and stores a single dot-notation key.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settableKeys[key]
	if !ok {
		return fmt.Errorf("unknown setting %q: %w", key, domain.ErrInvalidInput)
	}

	var v any
	switch kind {
	case kindString:
		v = value
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%s must be a non-negative integer: %w", key, domain.ErrInvalidInput)
		}
		v = n
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("%s must be a non-negative number: %w", key, domain.ErrInvalidInput)
		}
		v = f
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s must be true or false: %w", key, domain.ErrInvalidInput)
		}
		v = b
	case kindProvider:
		if !domain.DeliveryProvider(value).IsValid() {
			return fmt.Errorf("invalid delivery provider: %s: %w", value, domain.ErrInvalidInput)
		}
		v = value
	}

	if err := s.configStore.Set(key, v); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Keys returns every key accepted by Set, sorted.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settableKeys))
	for k := range settableKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val := s.configStore.GetFloat(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getSeconds(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return time.Duration(val) * time.Second
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getProvider(defaultVal domain.DeliveryProvider) domain.DeliveryProvider {
	val := s.configStore.GetString(keyDeliveryProvider)
	if val == "" {
		return defaultVal
	}
	provider := domain.DeliveryProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
