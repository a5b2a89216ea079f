package provider

import (
	"context"
	"errors"

	"github.com/manash/pixedit/pkg/models"
)

var (
	ErrAPIKeyRequired    = errors.New("API key is required")
	ErrModelNotSupported = errors.New("model not supported by provider")
	ErrEditFailed        = errors.New("image edit failed")
)

// Provider dispatches a single edit request against a hosted generative
// image model: one request, one response, no retries and no streaming.
type Provider interface {
	Name() string
	Edit(ctx context.Context, req *models.EditRequest) (*models.EditResult, error)
	Model() string
	SetModel(model string) error
	SupportsModel(model string) bool
	ListModels() []string
}

type Config struct {
	APIKey  string
	Model   string
	Verbose bool
}
