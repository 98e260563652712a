// Package media opens audio sources and turns them into beep streamers.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mmcdole/tapedeck/internal/domain"
)

// maxRemoteSize caps how much of a remote source is buffered in memory
var maxRemoteSize int64 = 256 << 20

// ErrTooLarge is returned for remote sources over the in-memory cap
var ErrTooLarge = errors.New("remote source too large")

var httpClient = &http.Client{Timeout: 60 * time.Second}

// Open returns a seekable reader for source along with its extension.
// Remote sources are fetched fully into memory so that decoders can seek.
func Open(ctx context.Context, source string) (io.ReadSeekCloser, string, error) {
	ext := domain.SourceExt(source)

	switch {
	case IsRemote(source):
		rc, err := fetch(ctx, source)
		if err != nil {
			return nil, "", err
		}
		return rc, ext, nil

	case strings.HasPrefix(source, "file://"):
		u, err := url.Parse(source)
		if err != nil {
			return nil, "", fmt.Errorf("parse source: %w", err)
		}
		f, err := os.Open(u.Path)
		if err != nil {
			return nil, "", fmt.Errorf("open: %w", err)
		}
		return f, ext, nil

	default:
		f, err := os.Open(source)
		if err != nil {
			return nil, "", fmt.Errorf("open: %w", err)
		}
		return f, ext, nil
	}
}

// IsRemote reports whether source is fetched over http(s)
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func fetch(ctx context.Context, source string) (io.ReadSeekCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("fetch %s: %w", source, domain.ErrLoadAborted)
		}
		return nil, fmt.Errorf("fetch %s: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", source, resp.StatusCode)
	}

	if resp.ContentLength > maxRemoteSize {
		return nil, fmt.Errorf("fetch %s: %w", source, ErrTooLarge)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteSize+1))
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("fetch %s: %w", source, domain.ErrLoadAborted)
		}
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > maxRemoteSize {
		return nil, fmt.Errorf("fetch %s: %w", source, ErrTooLarge)
	}
	return nopCloser{bytes.NewReader(data)}, nil
}

// nopCloser wraps a bytes.Reader to implement io.ReadSeekCloser.
type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
