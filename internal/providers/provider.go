// Package providers defines the upstream model API surface shared by the
// OpenAI, Anthropic and Cohere clients.
package providers

import (
	"context"
	"fmt"

	"github.com/ArjavDesa912/ConstitutionalFlow/internal/models"
)

// Provider is implemented by each upstream model API client. Generate
// returns an error for transport, auth and decode failures; the gateway
// converts those into failed ProviderResponses.
type Provider interface {
	Generate(ctx context.Context, req *models.GenerateRequest) (*models.ProviderResponse, error)
	Name() string
}

// ProviderError wraps a failure from one upstream provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s failed with status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider %s failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
