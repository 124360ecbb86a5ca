package domain

import "time"

const unknownDescription = "Unknown"

// DeliveryProvider identifies the transport used to mail rendered documents.
type DeliveryProvider string

// Available delivery providers.
const (
	// DeliveryProviderNone disables delivery.
	DeliveryProviderNone DeliveryProvider = "none"

	// DeliveryProviderGmail sends through the Gmail API.
	DeliveryProviderGmail DeliveryProvider = "gmail"

	// DeliveryProviderSMTP sends through an SMTP relay.
	DeliveryProviderSMTP DeliveryProvider = "smtp"

	// DeliveryProviderOutbox writes .eml files to a directory.
	DeliveryProviderOutbox DeliveryProvider = "outbox"
)

// IsValid returns true if the provider is recognised.
func (p DeliveryProvider) IsValid() bool {
	switch p {
	case DeliveryProviderNone, DeliveryProviderGmail, DeliveryProviderSMTP, DeliveryProviderOutbox:
		return true
	default:
		return false
	}
}

// RequiresOAuth returns true if this provider needs a Google consent.
func (p DeliveryProvider) RequiresOAuth() bool {
	return p == DeliveryProviderGmail
}

// String returns the string representation.
func (p DeliveryProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p DeliveryProvider) Description() string {
	switch p {
	case DeliveryProviderNone:
		return "None (archive only)"
	case DeliveryProviderGmail:
		return "Gmail API"
	case DeliveryProviderSMTP:
		return "SMTP relay"
	case DeliveryProviderOutbox:
		return "Outbox directory (.eml files)"
	default:
		return unknownDescription
	}
}

// AllDeliveryProviders returns all available delivery providers.
func AllDeliveryProviders() []DeliveryProvider {
	return []DeliveryProvider{
		DeliveryProviderNone,
		DeliveryProviderGmail,
		DeliveryProviderSMTP,
		DeliveryProviderOutbox,
	}
}

// BatchSettings holds defaults for batch runs.
type BatchSettings struct {
	// Concurrency is the number of records rendered in parallel.
	Concurrency int

	// OutputDir receives archives.
	OutputDir string

	// Template is the default template path.
	Template string

	// MappingFile is an optional YAML field mapping.
	MappingFile string

	// ContinueOnError isolates per-record failures.
	ContinueOnError bool
}

// RenderSettings holds text placement defaults.
type RenderSettings struct {
	FontSize      float64
	DefaultOffset float64
}

// DeliverySettings holds delivery queue and message configuration.
type DeliverySettings struct {
	Provider DeliveryProvider

	// Sender is the From address.
	Sender string

	// Workers is the size of the delivery worker pool.
	Workers int

	// DrainTimeout bounds how long a batch waits for deliveries.
	DrainTimeout time.Duration

	// IdleTimeout bounds each worker's wait for the next task.
	IdleTimeout time.Duration

	// RatePerSecond throttles sends. Zero means unlimited.
	RatePerSecond float64

	Subject string

	// Body is a text/template with {{.Name}}.
	Body string
}

// SMTPSettings holds SMTP relay configuration.
type SMTPSettings struct {
	Host     string
	Port     int
	Username string
	Password string
}

// IsConfigured returns true if a relay host is set.
func (s SMTPSettings) IsConfigured() bool {
	return s.Host != "" && s.Port > 0
}

// GoogleSettings holds the OAuth client used by Gmail delivery and Drive publication.
type GoogleSettings struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// IsConfigured returns true if a consent has been completed.
func (g GoogleSettings) IsConfigured() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.RefreshToken != ""
}

// PublishSettings holds archive publication configuration.
type PublishSettings struct {
	// DriveFolderID enables publication to a Drive folder when set.
	DriveFolderID string
}

// ServerSettings holds API surface configuration.
type ServerSettings struct {
	// APIKeyHashes are bcrypt hashes of accepted bearer keys.
	APIKeyHashes []string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Batch    BatchSettings
	Render   RenderSettings
	Delivery DeliverySettings
	SMTP     SMTPSettings
	Outbox   string
	Google   GoogleSettings
	Publish  PublishSettings
	Server   ServerSettings
}

// Default delivery message.
const (
	DefaultSubject = "Appraisal Letter"
	DefaultBody    = "Dear {{.Name}},\nPlease find attachment for your appraisal letter."
)

// DefaultAppSettings returns settings with sensible defaults.
// Delivery is disabled until a provider is chosen.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Batch: BatchSettings{
			Concurrency: 4,
			OutputDir:   "output",
			Template:    "template.pdf",
		},
		Render: RenderSettings{
			FontSize:      10,
			DefaultOffset: 4,
		},
		Delivery: DeliverySettings{
			Provider:     DeliveryProviderNone,
			Workers:      5,
			DrainTimeout: 25 * time.Second,
			IdleTimeout:  time.Second,
			Subject:      DefaultSubject,
			Body:         DefaultBody,
		},
		SMTP: SMTPSettings{
			Port: 587,
		},
		Outbox: "outbox",
	}
}

// RenderOptions returns placement options with the configured size and offset.
func (s AppSettings) RenderOptions() RenderOptions {
	opts := DefaultRenderOptions()
	if s.Render.FontSize > 0 {
		opts.FontSize = s.Render.FontSize
	}
	if s.Render.DefaultOffset > 0 {
		opts.DefaultOffset = s.Render.DefaultOffset
	}
	return opts
}
