// Package provider implements emoji listing providers for chat platforms.
//
// A provider fetches the remote emoji listing for one configured
// namespace, applies the namespace's include/exclude filters, and
// resolves alias records into concrete URLs. Implementations register
// themselves by type tag; New selects one from the registry.
package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"emojisync/internal/config"
	"emojisync/pkg/models"
)

// Provider is one configured emoji source.
type Provider interface {
	// Type returns the provider type tag, e.g. "slack".
	Type() string

	// Namespace returns the configured namespace.
	Namespace() string

	// Fetch lists the remote emojis, filtered and alias-resolved.
	Fetch(ctx context.Context) (map[string]models.Emoji, error)

	// Validate checks credentials and permissions against the remote
	// API and returns the number of available emojis.
	Validate(ctx context.Context) (int, error)

	// RequiredEnv returns the environment variable names this
	// provider's credentials are resolved from.
	RequiredEnv() []string
}

// Credentials holds already-resolved secrets for one provider.
type Credentials struct {
	Token  string
	Tenant string
}

// ProviderError describes a failure talking to or configuring a provider.
type ProviderError struct {
	Provider  string
	Namespace string
	Msg       string
	Err       error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s provider %q: %s", e.Provider, e.Namespace, e.Msg)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Factory builds a provider from its config and resolved credentials.
type Factory func(cfg config.ProviderConfig, creds Credentials, client *http.Client, log *logrus.Logger) (Provider, error)

var registry = make(map[string]Factory)

// Register adds a provider factory under a type tag. Called from the
// implementations' init functions.
func Register(typeTag string, factory Factory) {
	registry[typeTag] = factory
}

// New builds the provider selected by cfg.Type.
func New(cfg config.ProviderConfig, creds Credentials, client *http.Client, log *logrus.Logger) (Provider, error) {
	factory, ok := registry[cfg.Type]
	if !ok {
		return nil, &ProviderError{
			Provider:  cfg.Type,
			Namespace: cfg.Namespace,
			Msg:       "unsupported provider type",
		}
	}
	return factory(cfg, creds, client, log)
}
