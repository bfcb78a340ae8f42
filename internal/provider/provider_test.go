package provider

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emojisync/internal/config"
)

func TestNewDispatchesByType(t *testing.T) {
	p, err := New(slackConfig(), Credentials{Token: "xoxb-test"}, nil, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &Slack{}, p)
	assert.Equal(t, "slack", p.Type())
	assert.Equal(t, "slack", p.Namespace())

	p, err = New(discordConfig(), Credentials{Token: "bot-token", Tenant: "99887766"}, nil, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &Discord{}, p)
	assert.Equal(t, "discord", p.Type())
}

func TestNewUnsupportedType(t *testing.T) {
	cfg := config.ProviderConfig{Type: "teams", Namespace: "teams", TokenEnv: "TEAMS_TOKEN"}

	_, err := New(cfg, Credentials{Token: "tok"}, nil, testLogger())
	require.Error(t, err)

	var provErr *ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Contains(t, provErr.Error(), "unsupported provider type")
	assert.Equal(t, "teams", provErr.Provider)
}

func TestProviderErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &ProviderError{Provider: "slack", Namespace: "slack", Msg: "failed to fetch emojis", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}
