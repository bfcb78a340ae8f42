package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emojisync/pkg/models"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testDownloader(maxSizeKB int) *Downloader {
	return New(maxSizeKB, 5*time.Second, testLogger())
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func gifBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4)), nil))
	return buf.Bytes()
}

const svgBody = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="16" height="16"><circle r="4"/></svg>`

func serveBytes(t *testing.T, body []byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestDownloadPNG(t *testing.T) {
	body := pngBytes(t)
	server := serveBytes(t, body)

	emoji := models.EmojiFromURL("partyparrot", server.URL+"/partyparrot.png")
	staged, size, err := testDownloader(500).Download(context.Background(), emoji)
	require.NoError(t, err)
	defer os.Remove(staged)

	assert.Equal(t, int64(len(body)), size)

	got, err := os.ReadFile(staged)
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestDownloadGIF(t *testing.T) {
	body := gifBytes(t)
	server := serveBytes(t, body)

	emoji := models.EmojiFromURL("catjam", server.URL+"/catjam.gif")
	staged, size, err := testDownloader(500).Download(context.Background(), emoji)
	require.NoError(t, err)
	defer os.Remove(staged)

	assert.Equal(t, int64(len(body)), size)
}

func TestDownloadSVG(t *testing.T) {
	server := serveBytes(t, []byte(svgBody))

	emoji := models.EmojiFromURL("logo", server.URL+"/logo.svg")
	staged, _, err := testDownloader(500).Download(context.Background(), emoji)
	require.NoError(t, err)
	defer os.Remove(staged)
}

func TestDownloadMissingURL(t *testing.T) {
	emoji := models.Emoji{Name: "broken"}

	_, _, err := testDownloader(500).Download(context.Background(), emoji)
	require.Error(t, err)

	var dlErr *Error
	require.True(t, errors.As(err, &dlErr))
	assert.Equal(t, "broken", dlErr.Name)
	assert.Contains(t, dlErr.Error(), "no URL")
}

func TestDownloadHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(server.Close)

	emoji := models.EmojiFromURL("gone", server.URL+"/gone.png")
	_, _, err := testDownloader(500).Download(context.Background(), emoji)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestDownloadNetworkError(t *testing.T) {
	emoji := models.EmojiFromURL("unreachable", "http://127.0.0.1:0/unreachable.png")

	_, _, err := testDownloader(500).Download(context.Background(), emoji)
	require.Error(t, err)

	var dlErr *Error
	require.True(t, errors.As(err, &dlErr))
	assert.NotNil(t, dlErr.Unwrap())
}

func TestDownloadContentLengthTooLarge(t *testing.T) {
	// 2 KB body against a 1 KB ceiling fails on the declared length
	// before the body is read.
	server := serveBytes(t, make([]byte, 2048))

	emoji := models.EmojiFromURL("huge", server.URL+"/huge.png")
	_, _, err := testDownloader(1).Download(context.Background(), emoji)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestDownloadStreamingSizeCap(t *testing.T) {
	staging := t.TempDir()
	t.Setenv("TMPDIR", staging)

	// Chunked response with no content-length: the ceiling must trip
	// on the running total instead.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for i := 0; i < 4; i++ {
			w.Write(make([]byte, 1024))
			flusher.Flush()
		}
	}))
	t.Cleanup(server.Close)

	emoji := models.EmojiFromURL("liar", server.URL+"/liar.png")
	_, _, err := testDownloader(1).Download(context.Background(), emoji)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds size limit")

	// No partial staging file may survive the abort.
	entries, readErr := os.ReadDir(staging)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestDownloadRejectsNonImage(t *testing.T) {
	staging := t.TempDir()
	t.Setenv("TMPDIR", staging)

	server := serveBytes(t, []byte("<html><body>502 Bad Gateway</body></html>"))

	emoji := models.EmojiFromURL("fake", server.URL+"/fake.png")
	_, _, err := testDownloader(500).Download(context.Background(), emoji)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid image")

	entries, readErr := os.ReadDir(staging)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestDownloadAll(t *testing.T) {
	good := pngBytes(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Write(good)
	}))
	t.Cleanup(server.Close)

	emojis := []models.Emoji{
		models.EmojiFromURL("alpha", server.URL+"/alpha.png"),
		models.EmojiFromURL("missing", server.URL+"/missing.png"),
		models.EmojiFromURL("beta", server.URL+"/beta.png"),
	}

	type call struct {
		name           string
		current, total int
	}
	var calls []call
	progress := func(name string, current, total int) {
		calls = append(calls, call{name, current, total})
	}

	results := testDownloader(500).DownloadAll(context.Background(), emojis, progress)
	defer func() {
		for _, staged := range results {
			os.Remove(staged.Path)
		}
	}()

	// The failed download is omitted; the batch still completes.
	require.Len(t, results, 2)
	assert.Contains(t, results, "alpha")
	assert.Contains(t, results, "beta")
	assert.Equal(t, int64(len(good)), results["alpha"].Size)

	// Progress fires before every attempt, including the failure.
	require.Len(t, calls, 3)
	assert.Equal(t, call{"alpha", 1, 3}, calls[0])
	assert.Equal(t, call{"missing", 2, 3}, calls[1])
	assert.Equal(t, call{"beta", 3, 3}, calls[2])
}

func TestDownloadAllNilProgress(t *testing.T) {
	server := serveBytes(t, pngBytes(t))
	emojis := []models.Emoji{models.EmojiFromURL("solo", server.URL+"/solo.png")}

	results := testDownloader(500).DownloadAll(context.Background(), emojis, nil)
	for _, staged := range results {
		os.Remove(staged.Path)
	}
	assert.Len(t, results, 1)
}

func TestCopyCapped(t *testing.T) {
	var dst bytes.Buffer
	n, err := copyCapped(&dst, bytes.NewReader(make([]byte, 100)), 1024)
	require.NoError(t, err)
	assert.Equal(t, int64(100), n)

	dst.Reset()
	_, err = copyCapped(&dst, bytes.NewReader(make([]byte, 100)), 99)
	assert.True(t, errors.Is(err, errTooLarge))
}

func TestDownloadErrorMessage(t *testing.T) {
	err := &Error{Name: "partyparrot", Msg: "too large", Err: fmt.Errorf("got 900KB")}
	assert.Equal(t, "download partyparrot: too large: got 900KB", err.Error())
}
