package publish

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func writeAsset(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestDirPublisherCopiesAssets(t *testing.T) {
	src := t.TempDir()
	root := t.TempDir()
	writeAsset(t, src, "partyparrot.gif", "gif-bytes")
	writeAsset(t, src, "shipit.png", "png-bytes")
	writeAsset(t, src, ".metadata.db", "not an asset")

	p := NewDir(root, testLogger())
	require.NoError(t, p.Publish(context.Background(), "slack", src))

	got, err := os.ReadFile(filepath.Join(root, "slack", "partyparrot.gif"))
	require.NoError(t, err)
	assert.Equal(t, "gif-bytes", string(got))

	_, err = os.Stat(filepath.Join(root, "slack", "shipit.png"))
	assert.NoError(t, err)

	_, err = os.Stat(filepath.Join(root, "slack", ".metadata.db"))
	assert.True(t, os.IsNotExist(err), "metadata must not be published")
}

func TestDirPublisherOverwrites(t *testing.T) {
	src := t.TempDir()
	root := t.TempDir()
	p := NewDir(root, testLogger())

	writeAsset(t, src, "shipit.png", "old")
	require.NoError(t, p.Publish(context.Background(), "slack", src))

	writeAsset(t, src, "shipit.png", "new")
	require.NoError(t, p.Publish(context.Background(), "slack", src))

	got, err := os.ReadFile(filepath.Join(root, "slack", "shipit.png"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestDirPublisherNamespacesAreIsolated(t *testing.T) {
	src := t.TempDir()
	root := t.TempDir()
	writeAsset(t, src, "wave.png", "x")

	p := NewDir(root, testLogger())
	require.NoError(t, p.Publish(context.Background(), "slack", src))
	require.NoError(t, p.Publish(context.Background(), "discord", src))

	require.NoError(t, p.Prune(context.Background(), "slack"))

	_, err := os.Stat(filepath.Join(root, "slack"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "discord", "wave.png"))
	assert.NoError(t, err)
}

func TestDirPublisherPruneMissingNamespace(t *testing.T) {
	p := NewDir(t.TempDir(), testLogger())
	assert.NoError(t, p.Prune(context.Background(), "never-published"))
}

func TestDirPublisherMissingSource(t *testing.T) {
	p := NewDir(t.TempDir(), testLogger())
	err := p.Publish(context.Background(), "slack", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestObjectKey(t *testing.T) {
	tests := []struct {
		name      string
		prefix    string
		namespace string
		file      string
		expected  string
	}{
		{"with prefix", "emojis", "slack", "party.gif", "emojis/slack/party.gif"},
		{"empty prefix", "", "slack", "party.gif", "slack/party.gif"},
		{"nested prefix", "assets/emojis", "discord", "wave.png", "assets/emojis/discord/wave.png"},
		{"namespace only", "emojis", "slack", "", "emojis/slack"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, objectKey(tt.prefix, tt.namespace, tt.file))
		})
	}
}

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		file     string
		expected string
	}{
		{"party.png", "image/png"},
		{"party.gif", "image/gif"},
		{"party.jpg", "image/jpeg"},
		{"party.jpeg", "image/jpeg"},
		{"party.svg", "image/svg+xml"},
		{"party.webp", "image/webp"},
		{"party.PNG", "image/png"},
		{"party", ""},
		{"party.bmp", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, contentTypeFor(tt.file), tt.file)
	}
}
