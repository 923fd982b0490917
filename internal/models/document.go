// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

// Package models holds the data model shared by the cache, registry, session
// and dispatch layers: open JSON documents, the category table, resource
// configuration views, transformation status and the error taxonomy.
package models

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// errNotObject is returned when a stored value decodes to something other
// than a JSON object.
var errNotObject = errors.New("value is not a JSON object")

// Document is an open string-keyed JSON object. Values are whatever the JSON
// decoder produces for interface{}: nil, bool, float64, string, []any and
// map[string]any.
type Document map[string]any

// DecodeDocument parses a cached JSON payload into a Document.
// A payload that is valid JSON but not an object is rejected.
func DecodeDocument(data []byte) (Document, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("decode document: %w (found %T)", errNotObject, raw)
	}
	return Document(obj), nil
}

// Encode serializes the document. A nil document encodes as {}.
func (d Document) Encode() ([]byte, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(map[string]any(d))
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

// Clone returns a deep copy so callers can mutate nested maps and slices
// without touching the original.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return map[string]any(Document(t).Clone())
	case Document:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return v
	}
}

// Merge folds the top-level keys of update into d, overwriting on collision.
// Keys of d that are absent from update are kept.
func (d Document) Merge(update Document) {
	for k, v := range update {
		d[k] = cloneValue(v)
	}
}

// String returns the value at key when it is a string, or "".
func (d Document) String(key string) string {
	if s, ok := d[key].(string); ok {
		return s
	}
	return ""
}

// Object returns the nested object at key. ok is false when the key is
// absent; err is set when the key holds something other than an object.
func (d Document) Object(key string) (obj Document, ok bool, err error) {
	v, present := d[key]
	if !present || v == nil {
		return nil, false, nil
	}
	switch t := v.(type) {
	case map[string]any:
		return Document(t), true, nil
	case Document:
		return t, true, nil
	default:
		return nil, true, fmt.Errorf("%q: %w (found %T)", key, errNotObject, v)
	}
}

// Keys lists the document keys in no particular order.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	return keys
}
