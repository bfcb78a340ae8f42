package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"emojisync/internal/config"
	"emojisync/pkg/models"
)

const (
	discordAPIBase = "https://discord.com/api/v10"
	discordCDNBase = "https://cdn.discordapp.com/emojis"
)

func init() {
	Register(config.ProviderDiscord, NewDiscord)
}

// Discord lists custom emojis from a Discord guild.
type Discord struct {
	cfg     config.ProviderConfig
	token   string
	guildID string
	client  *http.Client
	filter  Filter
	log     *logrus.Entry

	// BaseURL and CDNBase are overridable in tests.
	BaseURL string
	CDNBase string
}

// NewDiscord builds a Discord provider. Token and guild ID must
// already be resolved.
func NewDiscord(cfg config.ProviderConfig, creds Credentials, client *http.Client, log *logrus.Logger) (Provider, error) {
	if creds.Token == "" {
		return nil, &ProviderError{
			Provider:  cfg.Type,
			Namespace: cfg.Namespace,
			Msg:       fmt.Sprintf("token not found in environment variable %s", cfg.TokenEnv),
		}
	}
	if creds.Tenant == "" {
		return nil, &ProviderError{
			Provider:  cfg.Type,
			Namespace: cfg.Namespace,
			Msg:       fmt.Sprintf("guild ID not found in environment variable %s", cfg.TenantEnv),
		}
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Discord{
		cfg:     cfg,
		token:   creds.Token,
		guildID: creds.Tenant,
		client:  client,
		filter:  NewFilter(cfg.Filters),
		log:     log.WithField("provider", cfg.Type).WithField("namespace", cfg.Namespace),
		BaseURL: discordAPIBase,
		CDNBase: discordCDNBase,
	}, nil
}

func (d *Discord) Type() string      { return d.cfg.Type }
func (d *Discord) Namespace() string { return d.cfg.Namespace }

// RequiredEnv returns the env vars the token and guild ID are
// resolved from.
func (d *Discord) RequiredEnv() []string {
	return []string{d.cfg.TokenEnv, d.cfg.TenantEnv}
}

func (d *Discord) errorf(err error, format string, args ...interface{}) *ProviderError {
	return &ProviderError{
		Provider:  d.cfg.Type,
		Namespace: d.cfg.Namespace,
		Msg:       fmt.Sprintf(format, args...),
		Err:       err,
	}
}

type discordEmoji struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Animated bool   `json:"animated"`
}

func (d *Discord) listEmojis(ctx context.Context) ([]discordEmoji, *http.Response, error) {
	url := fmt.Sprintf("%s/guilds/%s/emojis", d.BaseURL, d.guildID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bot "+d.token)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, resp, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var items []discordEmoji
	if err := json.Unmarshal(body, &items); err != nil {
		// Discord reports API errors as an object with a message.
		var apiErr struct {
			Message string `json:"message"`
		}
		if jsonErr := json.Unmarshal(body, &apiErr); jsonErr == nil && apiErr.Message != "" {
			return nil, resp, fmt.Errorf("api error: %s", apiErr.Message)
		}
		return nil, resp, fmt.Errorf("malformed response: %v", err)
	}

	return items, resp, nil
}

// Fetch lists all custom emojis in the guild. Entries missing an id or
// name are dropped; the CDN URL extension follows the animated flag.
func (d *Discord) Fetch(ctx context.Context) (map[string]models.Emoji, error) {
	items, _, err := d.listEmojis(ctx)
	if err != nil {
		return nil, d.errorf(err, "failed to fetch emojis")
	}

	emojis := make(map[string]models.Emoji, len(items))
	for _, item := range items {
		if item.Name == "" || item.ID == "" {
			continue
		}
		ext := "png"
		if item.Animated {
			ext = "gif"
		}
		url := fmt.Sprintf("%s/%s.%s", d.CDNBase, item.ID, ext)
		emojis[item.Name] = models.EmojiFromURL(item.Name, url)
	}

	emojis = d.filter.Apply(emojis)

	d.log.Debugf("fetched %d emojis", len(emojis))
	return emojis, nil
}

// Validate checks the bot token and guild access, mapping the usual
// failure statuses to readable causes. Returns the emoji count.
func (d *Discord) Validate(ctx context.Context) (int, error) {
	items, resp, err := d.listEmojis(ctx)
	if err != nil {
		if resp != nil {
			switch resp.StatusCode {
			case http.StatusUnauthorized:
				return 0, d.errorf(nil, "invalid token")
			case http.StatusForbidden:
				return 0, d.errorf(nil, "bot lacks permission to access guild emojis")
			case http.StatusNotFound:
				return 0, d.errorf(nil, "guild not found: %s", d.guildID)
			}
		}
		return 0, d.errorf(err, "failed to validate configuration")
	}

	return len(items), nil
}
