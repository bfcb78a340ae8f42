package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"emojisync/internal/config"
	"emojisync/pkg/models"
)

const slackAPIBase = "https://slack.com/api"

// aliasPrefix marks alias entries in Slack's emoji listing:
// "alias:partyparrot" instead of a URL.
const aliasPrefix = "alias:"

func init() {
	Register(config.ProviderSlack, NewSlack)
}

// Slack lists custom emojis from a Slack workspace.
type Slack struct {
	cfg    config.ProviderConfig
	token  string
	client *http.Client
	filter Filter
	log    *logrus.Entry

	// BaseURL is the API root, overridable in tests.
	BaseURL string
}

// NewSlack builds a Slack provider. The token must already be resolved.
func NewSlack(cfg config.ProviderConfig, creds Credentials, client *http.Client, log *logrus.Logger) (Provider, error) {
	if creds.Token == "" {
		return nil, &ProviderError{
			Provider:  cfg.Type,
			Namespace: cfg.Namespace,
			Msg:       fmt.Sprintf("token not found in environment variable %s", cfg.TokenEnv),
		}
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Slack{
		cfg:     cfg,
		token:   creds.Token,
		client:  client,
		filter:  NewFilter(cfg.Filters),
		log:     log.WithField("provider", cfg.Type).WithField("namespace", cfg.Namespace),
		BaseURL: slackAPIBase,
	}, nil
}

func (s *Slack) Type() string      { return s.cfg.Type }
func (s *Slack) Namespace() string { return s.cfg.Namespace }

// RequiredEnv returns the env var the Slack token is resolved from.
func (s *Slack) RequiredEnv() []string {
	return []string{s.cfg.TokenEnv}
}

func (s *Slack) errorf(err error, format string, args ...interface{}) *ProviderError {
	return &ProviderError{
		Provider:  s.cfg.Type,
		Namespace: s.cfg.Namespace,
		Msg:       fmt.Sprintf(format, args...),
		Err:       err,
	}
}

type slackEnvelope struct {
	OK    bool              `json:"ok"`
	Error string            `json:"error"`
	Emoji map[string]string `json:"emoji"`
}

func (s *Slack) get(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// Fetch lists all custom emojis in the workspace. Alias entries are
// decoded, filters applied, and alias chains resolved, so every
// returned record carries a concrete URL.
func (s *Slack) Fetch(ctx context.Context) (map[string]models.Emoji, error) {
	var envelope slackEnvelope
	if err := s.get(ctx, "/emoji.list", &envelope); err != nil {
		return nil, s.errorf(err, "failed to fetch emojis")
	}

	if !envelope.OK {
		return nil, s.errorf(nil, "api error: %s", apiError(envelope.Error))
	}

	emojis := make(map[string]models.Emoji, len(envelope.Emoji))
	for name, value := range envelope.Emoji {
		if strings.HasPrefix(value, aliasPrefix) {
			emojis[name] = models.EmojiFromAlias(name, strings.TrimPrefix(value, aliasPrefix))
		} else {
			emojis[name] = models.EmojiFromURL(name, value)
		}
	}

	emojis = s.filter.Apply(emojis)
	emojis = ResolveAliases(emojis, s.log)

	s.log.Debugf("fetched %d emojis", len(emojis))
	return emojis, nil
}

// Validate checks the token via auth.test, then confirms the
// emoji:read scope by listing emojis. Returns the emoji count.
func (s *Slack) Validate(ctx context.Context) (int, error) {
	var auth struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := s.get(ctx, "/auth.test", &auth); err != nil {
		return 0, s.errorf(err, "failed to validate token")
	}
	if !auth.OK {
		return 0, s.errorf(nil, "invalid token: %s", apiError(auth.Error))
	}

	var envelope slackEnvelope
	if err := s.get(ctx, "/emoji.list", &envelope); err != nil {
		return 0, s.errorf(err, "failed to verify emoji permissions")
	}
	if !envelope.OK {
		return 0, s.errorf(nil, "token lacks emoji:read permission: %s", apiError(envelope.Error))
	}

	return len(envelope.Emoji), nil
}

func apiError(msg string) string {
	if msg == "" {
		return "unknown error"
	}
	return msg
}
