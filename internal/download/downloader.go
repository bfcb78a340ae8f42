// Package download fetches emoji images into staging files, enforcing
// a per-asset size ceiling and validating that payloads decode as
// images before they are handed to the cache.
package download

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"emojisync/pkg/models"
)

const chunkSize = 8192

// Error describes a failed emoji download. Batch operations record
// these and continue with the next asset.
type Error struct {
	Name string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("download %s: %s", e.Name, e.Msg)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

var errTooLarge = errors.New("size limit exceeded")

// ProgressFunc reports one unit of work about to start: the emoji
// name, its 1-based index, and the batch total.
type ProgressFunc func(name string, current, total int)

// Staged is one successfully downloaded asset awaiting cache commit.
type Staged struct {
	Path string
	Size int64
}

// Downloader fetches and validates emoji images.
type Downloader struct {
	client    *http.Client
	maxSizeKB int
	log       *logrus.Entry
}

// NewHTTPClient builds an HTTP client with sane transport settings
// for talking to emoji CDNs.
func NewHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}
}

// New creates a downloader with the given per-emoji size ceiling and
// request timeout.
func New(maxSizeKB int, timeout time.Duration, log *logrus.Logger) *Downloader {
	return &Downloader{
		client:    NewHTTPClient(timeout),
		maxSizeKB: maxSizeKB,
		log:       log.WithField("component", "downloader"),
	}
}

// Download fetches one emoji image into a staging file and returns the
// staged path and byte count. The size ceiling is enforced twice: on
// the declared content length before reading the body, and on the
// running total while streaming, which guards against absent or lying
// content-length headers. Failures remove any partial staging file.
func (d *Downloader) Download(ctx context.Context, emoji models.Emoji) (string, int64, error) {
	if emoji.URL == "" {
		return "", 0, &Error{Name: emoji.Name, Msg: "no URL"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, emoji.URL, nil)
	if err != nil {
		return "", 0, &Error{Name: emoji.Name, Msg: "invalid URL", Err: err}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", 0, &Error{Name: emoji.Name, Msg: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, &Error{Name: emoji.Name, Msg: fmt.Sprintf("unexpected status %s", resp.Status)}
	}

	maxBytes := int64(d.maxSizeKB) * 1024

	if cl := resp.ContentLength; cl > maxBytes {
		return "", 0, &Error{
			Name: emoji.Name,
			Msg:  fmt.Sprintf("too large: %.1fKB (max: %dKB)", float64(cl)/1024, d.maxSizeKB),
		}
	}

	staged, err := os.CreateTemp("", "emojisync-*"+stagingSuffix(emoji))
	if err != nil {
		return "", 0, &Error{Name: emoji.Name, Msg: "failed to create staging file", Err: err}
	}
	stagedPath := staged.Name()

	size, copyErr := copyCapped(staged, resp.Body, maxBytes)
	closeErr := staged.Close()

	if copyErr != nil {
		os.Remove(stagedPath)
		if errors.Is(copyErr, errTooLarge) {
			return "", 0, &Error{
				Name: emoji.Name,
				Msg:  fmt.Sprintf("exceeds size limit during download (max: %dKB)", d.maxSizeKB),
			}
		}
		return "", 0, &Error{Name: emoji.Name, Msg: "download interrupted", Err: copyErr}
	}
	if closeErr != nil {
		os.Remove(stagedPath)
		return "", 0, &Error{Name: emoji.Name, Msg: "failed to write staging file", Err: closeErr}
	}

	if err := validateImage(stagedPath); err != nil {
		os.Remove(stagedPath)
		return "", 0, &Error{Name: emoji.Name, Msg: "invalid image", Err: err}
	}

	return stagedPath, size, nil
}

// DownloadAll fetches a batch sequentially. Each failure is logged and
// omitted from the result; it never aborts the batch. The progress
// callback, when given, runs before each attempt.
func (d *Downloader) DownloadAll(ctx context.Context, emojis []models.Emoji, progress ProgressFunc) map[string]Staged {
	results := make(map[string]Staged, len(emojis))
	total := len(emojis)

	for i, emoji := range emojis {
		if progress != nil {
			progress(emoji.Name, i+1, total)
		}

		path, size, err := d.Download(ctx, emoji)
		if err != nil {
			d.log.Warnf("failed to download emoji %s: %v", emoji.Name, err)
			continue
		}
		results[emoji.Name] = Staged{Path: path, Size: size}
	}

	return results
}

// copyCapped streams src into dst in chunks, failing with errTooLarge
// the moment the running total exceeds max.
func copyCapped(dst io.Writer, src io.Reader, max int64) (int64, error) {
	buf := make([]byte, chunkSize)
	var total int64

	for {
		n, err := src.Read(buf)
		if n > 0 {
			total += int64(n)
			if total > max {
				return total, errTooLarge
			}
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return total, werr
			}
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

func stagingSuffix(emoji models.Emoji) string {
	if emoji.Format != "" {
		return "." + string(emoji.Format)
	}
	return "." + string(models.DefaultFormat)
}
