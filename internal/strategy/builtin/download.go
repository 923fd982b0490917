// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package builtin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/tomtom215/oteapi-services/internal/logging"
	"github.com/tomtom215/oteapi-services/internal/metrics"
	"github.com/tomtom215/oteapi-services/internal/models"
	"github.com/tomtom215/oteapi-services/internal/strategy"
)

const (
	// DataKeyPrefix prefixes every cache key holding downloaded content.
	DataKeyPrefix = "data-"

	// fieldKey carries a cache key between download and parse.
	fieldKey = "key"
	// fieldAccessKey lets a client reuse content that is already cached.
	fieldAccessKey = "accessKey"
)

// statusError is an unexpected HTTP status from a remote call.
type statusError struct {
	Method string
	Code   int
	URL    string
}

func (e *statusError) Error() string {
	method := e.Method
	if method == "" {
		method = http.MethodGet
	}
	return fmt.Sprintf("%s %s: unexpected status %d", method, e.URL, e.Code)
}

// download is shared by the http and file strategies: both store content
// under a fresh data key and return {"key": ...}.
type download struct {
	env   *env
	cfg   models.ResourceConfig
	fetch func(ctx context.Context, u *url.URL) ([]byte, error)
}

func (e *env) newHTTPDownload(cfg models.ResourceConfig) (strategy.Strategy, error) {
	d := &download{env: e, cfg: cfg}
	d.fetch = d.fetchHTTP
	return d, nil
}

func (e *env) newFileDownload(cfg models.ResourceConfig) (strategy.Strategy, error) {
	d := &download{env: e, cfg: cfg}
	d.fetch = d.fetchFile
	return d, nil
}

func (d *download) Initialize(context.Context) (models.Document, error) {
	return models.Document{}, nil
}

func (d *download) Get(ctx context.Context) (models.Document, error) {
	if key := d.cfg.Configuration().String(fieldAccessKey); key != "" {
		ok, err := d.env.cache.Exists(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			return models.Document{fieldKey: key}, nil
		}
	}

	raw := d.cfg.Get(models.FieldDownloadURL)
	if raw == "" {
		return nil, models.Unprocessable(d.cfg.Category.IDField(), d.cfg.ID, "downloadUrl is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, models.Unprocessable(d.cfg.Category.IDField(), d.cfg.ID, "invalid downloadUrl %q", raw)
	}

	data, err := d.fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	metrics.DownloadBytes.WithLabelValues(u.Scheme).Add(float64(len(data)))

	key := DataKeyPrefix + uuid.NewString()
	if err := d.env.cache.Set(ctx, key, data); err != nil {
		return nil, err
	}
	logging.Ctx(ctx).Debug().
		Str("url", u.Redacted()).
		Str("key", key).
		Int("bytes", len(data)).
		Msg("Downloaded resource content")
	return models.Document{fieldKey: key}, nil
}

func (d *download) fetchHTTP(ctx context.Context, u *url.URL) ([]byte, error) {
	if err := d.env.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("download throttled: %w", err)
	}

	return d.env.breakers.execute(u.Host, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		if token := d.cfg.Token(); token != "" {
			if !strings.Contains(token, " ") {
				token = "Bearer " + token
			}
			req.Header.Set("Authorization", token)
		}

		resp, err := d.env.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("GET %s: %w", u.Redacted(), err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			return nil, &statusError{Code: resp.StatusCode, URL: u.Redacted()}
		}
		return readLimited(resp.Body, d.env.maxBytes)
	})
}

func (d *download) fetchFile(_ context.Context, u *url.URL) ([]byte, error) {
	path := u.Path
	if u.Host != "" && u.Host != "localhost" {
		// file://relative/path puts the first segment in the host.
		path = u.Host + u.Path
	}
	path = filepath.Clean(path)

	// Register only installs this strategy with a root. An empty root still
	// refuses every path.
	root := d.env.fileRoot
	if root == "" {
		return nil, models.Unprocessable(d.cfg.Category.IDField(), d.cfg.ID, "file downloads are disabled")
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, models.Unprocessable(d.cfg.Category.IDField(), d.cfg.ID,
			"file %s is outside the allowed download root", path)
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, models.Unprocessable(d.cfg.Category.IDField(), d.cfg.ID, "file %s does not exist", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return readLimited(f, d.env.maxBytes)
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("content exceeds the %d byte download limit", limit)
	}
	return data, nil
}
