package config

import (
	"fmt"
	"os"
)

const defaultConfig = `# emojisync configuration

# Cache configuration
[cache]
directory = ".emoji_cache"  # Where to store downloaded emojis
ttl_hours = 24              # Re-fetch after 24 hours
clean_on_build = false      # Whether to clean cache before each sync

# Global emoji options
[emojis]
prefix_format = "namespace-name"   # "namespace-name", "namespace_name", or "name-only"
namespace_prefix_required = false  # If true, only :<namespace>-<emoji>: works
max_size_kb = 500                  # Skip emojis larger than this
download_timeout = 30              # Request timeout in seconds

# Where synced emojis are published for the renderer
[publish]
dir = "overrides/assets/emojis"
target = "dir"              # "dir" or "s3"

# Optional S3-compatible publish target:
# [publish.s3]
# endpoint = "play.min.io"
# bucket = "docs-assets"
# prefix = "emojis"
# access_key_env = "S3_ACCESS_KEY"
# secret_key_env = "S3_SECRET_KEY"
# secure = true

# Slack provider
[[providers]]
type = "slack"
namespace = "slack"         # Emojis will be :slack-emoji-name:
token_env = "SLACK_TOKEN"   # Environment variable holding the token
enabled = true

# Optional: Filter emojis
# [providers.filters]
# include_patterns = ["party*", "cat*"]  # Only sync matching emojis
# exclude_patterns = ["*-old"]           # Skip matching emojis

# Discord provider example:
# [[providers]]
# type = "discord"
# namespace = "discord"             # Emojis will be :discord-emoji-name:
# token_env = "DISCORD_BOT_TOKEN"   # Bot token environment variable
# tenant_id = "DISCORD_GUILD_ID"    # Guild/server ID environment variable
# enabled = true
`

// WriteDefault creates a commented starter configuration file.
// It refuses to overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return errorf("configuration file already exists: %s", path)
	}
	if err := os.WriteFile(path, []byte(defaultConfig), 0o644); err != nil {
		return &ConfigError{Msg: fmt.Sprintf("failed to write %s", path), Err: err}
	}
	return nil
}
