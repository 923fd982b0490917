// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package builtin

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/tomtom215/oteapi-services/internal/cache"
	"github.com/tomtom215/oteapi-services/internal/models"
	"github.com/tomtom215/oteapi-services/internal/strategy"
)

// Media types with a built-in parse strategy.
const (
	MediaTypeJSON = "application/json"
	MediaTypeCSV  = "text/csv"
	MediaTypeYAML = "application/yaml"
)

const fieldContent = "content"

// decodeFunc turns raw cached bytes into a JSON-compatible value.
type decodeFunc func(cfg models.Document, data []byte) (any, error)

// parse reads the content stored under configuration.key and decodes it.
type parse struct {
	env    *env
	cfg    models.ResourceConfig
	decode decodeFunc
}

func (e *env) newJSONParse(cfg models.ResourceConfig) (strategy.Strategy, error) {
	return &parse{env: e, cfg: cfg, decode: decodeJSON}, nil
}

func (e *env) newCSVParse(cfg models.ResourceConfig) (strategy.Strategy, error) {
	return &parse{env: e, cfg: cfg, decode: decodeCSV}, nil
}

func (e *env) newYAMLParse(cfg models.ResourceConfig) (strategy.Strategy, error) {
	return &parse{env: e, cfg: cfg, decode: decodeYAML}, nil
}

func (p *parse) Initialize(context.Context) (models.Document, error) {
	return models.Document{}, nil
}

func (p *parse) Get(ctx context.Context) (models.Document, error) {
	conf := p.cfg.Configuration()
	key := conf.String(fieldKey)
	if key == "" {
		return nil, models.Unprocessable(p.cfg.Category.IDField(), p.cfg.ID,
			"no cache key to parse: run a download first or set configuration.key")
	}

	data, err := p.env.cache.Get(ctx, key)
	if errors.Is(err, cache.ErrNotFound) {
		return nil, models.NotFound(fieldKey, key)
	}
	if err != nil {
		return nil, err
	}

	content, err := p.decode(conf, data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", key, err)
	}
	return models.Document{fieldContent: content}, nil
}

func decodeJSON(_ models.Document, data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// decodeCSV treats the first record as the header. configuration.delimiter
// may select a single-character separator other than a comma.
func decodeCSV(conf models.Document, data []byte) (any, error) {
	r := csv.NewReader(bytes.NewReader(data))
	if d := conf.String("delimiter"); d != "" {
		sep, size := utf8.DecodeRuneInString(d)
		if size != len(d) {
			return nil, fmt.Errorf("delimiter %q must be a single character", d)
		}
		r.Comma = sep
	}

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return map[string]any{"columns": []any{}, "rows": []any{}}, nil
	}
	if err != nil {
		return nil, err
	}

	rows := []any{}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, stringsToAny(rec))
	}
	return map[string]any{"columns": stringsToAny(header), "rows": rows}, nil
}

func decodeYAML(_ models.Document, data []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return normalizeYAML(v)
}

// normalizeYAML converts a decoded YAML tree into the value shapes the JSON
// codec produces, so parsed YAML merges into a session like parsed JSON.
func normalizeYAML(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			n, err := normalizeYAML(val)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			n, err := normalizeYAML(val)
			if err != nil {
				return nil, err
			}
			out[fmt.Sprint(k)] = n
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			n, err := normalizeYAML(val)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case uint64:
		return float64(t), nil
	default:
		return v, nil
	}
}

func stringsToAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
