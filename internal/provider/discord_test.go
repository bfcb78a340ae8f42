package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emojisync/internal/config"
	"emojisync/pkg/models"
)

func discordConfig() config.ProviderConfig {
	return config.ProviderConfig{
		Type:      config.ProviderDiscord,
		Namespace: "discord",
		TokenEnv:  "DISCORD_BOT_TOKEN",
		TenantEnv: "DISCORD_GUILD_ID",
	}
}

func newTestDiscord(t *testing.T, cfg config.ProviderConfig, handler http.HandlerFunc) *Discord {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := NewDiscord(cfg, Credentials{Token: "bot-token", Tenant: "99887766"}, server.Client(), testLogger())
	require.NoError(t, err)

	discord := p.(*Discord)
	discord.BaseURL = server.URL
	return discord
}

func TestNewDiscordMissingToken(t *testing.T) {
	_, err := NewDiscord(discordConfig(), Credentials{Tenant: "99887766"}, nil, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DISCORD_BOT_TOKEN")
}

func TestNewDiscordMissingGuild(t *testing.T) {
	_, err := NewDiscord(discordConfig(), Credentials{Token: "bot-token"}, nil, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DISCORD_GUILD_ID")
}

func TestDiscordFetch(t *testing.T) {
	var gotAuth, gotPath string
	discord := newTestDiscord(t, discordConfig(), func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		fmt.Fprint(w, `[
			{"id": "123", "name": "catjam", "animated": false},
			{"id": "456", "name": "partyblob", "animated": true},
			{"id": "", "name": "ghost", "animated": false},
			{"id": "789", "name": "", "animated": false}
		]`)
	})

	emojis, err := discord.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bot bot-token", gotAuth)
	assert.Equal(t, "/guilds/99887766/emojis", gotPath)

	// Entries missing an id or name are dropped, not errors.
	require.Len(t, emojis, 2)

	catjam := emojis["catjam"]
	assert.Equal(t, "https://cdn.discordapp.com/emojis/123.png", catjam.URL)
	assert.Equal(t, models.FormatPNG, catjam.Format)

	blob := emojis["partyblob"]
	assert.Equal(t, "https://cdn.discordapp.com/emojis/456.gif", blob.URL)
	assert.Equal(t, models.FormatGIF, blob.Format)
}

func TestDiscordFetchAppliesFilters(t *testing.T) {
	cfg := discordConfig()
	cfg.Filters = config.Filters{ExcludePatterns: []string{"party*"}}

	discord := newTestDiscord(t, cfg, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id": "123", "name": "catjam", "animated": false},
			{"id": "456", "name": "partyblob", "animated": true}
		]`)
	})

	emojis, err := discord.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"catjam"}, sortedNames(emojis))
}

func TestDiscordFetchAPIErrorMessage(t *testing.T) {
	discord := newTestDiscord(t, discordConfig(), func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"message": "You are being rate limited.", "retry_after": 6}`)
	})

	_, err := discord.Fetch(context.Background())
	require.Error(t, err)

	var provErr *ProviderError
	require.True(t, errors.As(err, &provErr))
	assert.Contains(t, provErr.Error(), "rate limited")
}

func TestDiscordFetchHTTPError(t *testing.T) {
	discord := newTestDiscord(t, discordConfig(), func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	})

	_, err := discord.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestDiscordValidate(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		count   int
		wantErr string
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body:   `[{"id": "1", "name": "a"}, {"id": "2", "name": "b"}, {"id": "3", "name": "c"}]`,
			count:  3,
		},
		{
			name:    "invalid token",
			status:  http.StatusUnauthorized,
			body:    `{"message": "401: Unauthorized"}`,
			wantErr: "invalid token",
		},
		{
			name:    "missing permission",
			status:  http.StatusForbidden,
			body:    `{"message": "Missing Access"}`,
			wantErr: "permission",
		},
		{
			name:    "guild not found",
			status:  http.StatusNotFound,
			body:    `{"message": "Unknown Guild"}`,
			wantErr: "guild not found: 99887766",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			discord := newTestDiscord(t, discordConfig(), func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			count, err := discord.Validate(context.Background())
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.count, count)
		})
	}
}

func TestDiscordRequiredEnv(t *testing.T) {
	p, err := NewDiscord(discordConfig(), Credentials{Token: "bot-token", Tenant: "99887766"}, nil, testLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"DISCORD_BOT_TOKEN", "DISCORD_GUILD_ID"}, p.RequiredEnv())
}
