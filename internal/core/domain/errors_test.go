package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrAlreadyExists", ErrAlreadyExists},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrNotImplemented", ErrNotImplemented},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrBatchInProgress", ErrBatchInProgress},
		{"ErrValidation", ErrValidation},
		{"ErrTemplateLoad", ErrTemplateLoad},
		{"ErrRender", ErrRender},
		{"ErrDeliverySend", ErrDeliverySend},
		{"ErrQueueClosed", ErrQueueClosed},
		{"ErrDeliveryUnavailable", ErrDeliveryUnavailable},
		{"ErrAuthRequired", ErrAuthRequired},
		{"ErrAuthInvalid", ErrAuthInvalid},
		{"ErrRateLimited", ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

// TestErrNotFound tests ErrNotFound error
func TestErrNotFound(t *testing.T) {
	assert.Equal(t, "not found", ErrNotFound.Error())
	assert.True(t, errors.Is(ErrNotFound, ErrNotFound))
	assert.False(t, errors.Is(ErrNotFound, ErrAlreadyExists))
}

func TestValidationError(t *testing.T) {
	err := error(&ValidationError{Missing: []string{"HRA", "Total CTC"}})

	assert.Equal(t, "input table is missing required columns: HRA, Total CTC", err.Error())
	assert.True(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrRender))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"HRA", "Total CTC"}, verr.Missing)
}

func TestTemplateLoadError(t *testing.T) {
	cause := errors.New("no xref")
	err := error(&TemplateLoadError{Template: "template.pdf", Err: cause})

	assert.Equal(t, "open template template.pdf: no xref", err.Error())
	assert.True(t, errors.Is(err, ErrTemplateLoad))
	assert.True(t, errors.Is(err, cause))

	anon := &TemplateLoadError{Err: cause}
	assert.Equal(t, "open template: no xref", anon.Error())
}

func TestRenderError(t *testing.T) {
	cause := errors.New("font missing")
	err := error(&RenderError{Record: 3, Filename: "E1_Asha.pdf", Err: cause})

	assert.Equal(t, "render record 3 (E1_Asha.pdf): font missing", err.Error())
	assert.True(t, errors.Is(err, ErrRender))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrTemplateLoad))
}

func TestDeliverySendError(t *testing.T) {
	cause := errors.New("550 mailbox unavailable")
	err := error(&DeliverySendError{Recipient: "a@example.com", Filename: "E1_Asha.pdf", Err: cause})

	assert.Contains(t, err.Error(), "a@example.com")
	assert.True(t, errors.Is(err, ErrDeliverySend))
	assert.True(t, errors.Is(err, cause))
}
