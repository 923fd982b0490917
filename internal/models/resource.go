// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package models

import "net/url"

// Well-known resource configuration fields.
const (
	FieldConfiguration = "configuration"
	FieldToken         = "token"
	FieldDownloadURL   = "downloadUrl"
	FieldMediaType     = "mediaType"
	FieldAccessURL     = "accessUrl"
	FieldAccessService = "accessService"
	FieldSPARQLQuery   = "sparql_query"
)

// ResourceConfig is a typed view over a stored resource configuration.
// Doc is kept whole so unknown fields round-trip untouched.
type ResourceConfig struct {
	Category Category
	ID       string
	Doc      Document
}

// NewResourceConfig wraps a document for the given category.
func NewResourceConfig(c Category, id string, doc Document) ResourceConfig {
	if doc == nil {
		doc = Document{}
	}
	return ResourceConfig{Category: c, ID: id, Doc: doc}
}

// Discriminator returns the strategy name selected by the configuration.
func (r ResourceConfig) Discriminator() string {
	if r.Category.DiscriminatorKey == "" {
		return ""
	}
	return r.Doc.String(r.Category.DiscriminatorKey)
}

// Configuration returns the nested free-form configuration map, or an empty
// document when the field is absent or malformed.
func (r ResourceConfig) Configuration() Document {
	obj, _, err := r.Doc.Object(FieldConfiguration)
	if err != nil || obj == nil {
		return Document{}
	}
	return obj
}

// Token returns the stored bearer credential.
func (r ResourceConfig) Token() string {
	return r.Doc.String(FieldToken)
}

// Get returns a top-level field as a string.
func (r ResourceConfig) Get(field string) string {
	return r.Doc.String(field)
}

// Downloadable reports whether the config carries a download URL and a
// media type.
func (r ResourceConfig) Downloadable() bool {
	return r.Get(FieldDownloadURL) != "" && r.Get(FieldMediaType) != ""
}

// AccessServiceBacked reports whether the config carries an access URL and an
// access service name.
func (r ResourceConfig) AccessServiceBacked() bool {
	return r.Get(FieldAccessURL) != "" && r.Get(FieldAccessService) != ""
}

// DownloadScheme returns the lower-case scheme of downloadUrl, or "".
func (r ResourceConfig) DownloadScheme() string {
	u, err := url.Parse(r.Get(FieldDownloadURL))
	if err != nil {
		return ""
	}
	return u.Scheme
}

// WithOverlay returns a copy whose configuration map has the session's
// top-level fields folded in. Session values win on collision. The receiver
// is not modified.
func (r ResourceConfig) WithOverlay(session Document) (ResourceConfig, error) {
	doc := r.Doc.Clone()
	conf, _, err := doc.Object(FieldConfiguration)
	if err != nil {
		return ResourceConfig{}, TypeMismatch(r.Category.IDField(), r.ID,
			"configuration of %s is not an object", r.ID)
	}
	if conf == nil {
		conf = Document{}
	}
	conf.Merge(session)
	doc[FieldConfiguration] = map[string]any(conf)
	return ResourceConfig{Category: r.Category, ID: r.ID, Doc: doc}, nil
}
