// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/oteapi-services/internal/cache"
	"github.com/tomtom215/oteapi-services/internal/logging"
	"github.com/tomtom215/oteapi-services/internal/models"
	"github.com/tomtom215/oteapi-services/internal/session"
	"github.com/tomtom215/oteapi-services/internal/validation"
)

// resourceFields are the typed fields checked before a configuration is
// stored. Everything else in the body is kept as sent.
type resourceFields struct {
	DownloadURL string `json:"downloadUrl" validate:"omitempty,url"`
	AccessURL   string `json:"accessUrl" validate:"omitempty,url"`
	MediaType   string `json:"mediaType" validate:"omitempty,max=255"`
}

// Registry persists resource configurations and associates them with
// sessions.
type Registry struct {
	cache    cache.Store
	sessions *session.Store
}

// New returns a registry storing configurations in c.
func New(c cache.Store, sessions *session.Store) *Registry {
	return &Registry{cache: c, sessions: sessions}
}

// Create validates body, stores it under a new id and, when sessionID is
// set, appends the id to the session's list field for the category. The
// session and the shape of its list field are checked before anything is
// written, so a missing session or a non-list field leaves no orphaned
// configuration behind.
//
// authHeader fills the token only when the body carries none.
func (r *Registry) Create(ctx context.Context, c models.Category, body models.Document, authHeader, sessionID string) (string, error) {
	if c.InfoField == "" {
		return "", fmt.Errorf("category %q does not hold resources", c.Name)
	}
	if body == nil {
		body = models.Document{}
	}
	if err := validate(c, body); err != nil {
		return "", err
	}

	if sessionID != "" {
		if err := r.checkSession(ctx, c, sessionID); err != nil {
			return "", err
		}
	}

	doc := body.Clone()
	if doc.String(models.FieldToken) == "" && authHeader != "" {
		doc[models.FieldToken] = authHeader
	}
	data, err := doc.Encode()
	if err != nil {
		return "", models.Invalid("body", "configuration cannot be encoded: %v", err)
	}

	id := c.NewID()
	if err := r.cache.Set(ctx, id, data); err != nil {
		return "", fmt.Errorf("store %s: %w", id, err)
	}

	log := logging.Ctx(ctx)
	if sessionID != "" {
		if _, err := r.sessions.AppendListField(ctx, sessionID, c.InfoField, id); err != nil {
			log.Warn().Err(err).Str(c.IDField(), id).Str("session_id", sessionID).
				Msg("Resource stored but not associated with session")
			return "", err
		}
	}
	log.Debug().
		Str("category", c.Name).
		Str(c.IDField(), id).
		Str("strategy", models.NewResourceConfig(c, id, doc).Discriminator()).
		Msg("Resource created")
	return id, nil
}

// checkSession fails with NotFound for a missing session and TypeMismatch
// when the category's list field holds something other than a list. A
// concurrent writer can still change the field before the append, which
// then fails the same way after the configuration is stored.
func (r *Registry) checkSession(ctx context.Context, c models.Category, sessionID string) error {
	doc, err := r.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if v, ok := doc[c.InfoField]; ok && v != nil {
		if _, isList := v.([]any); !isList {
			return models.TypeMismatch(models.SessionCategory.IDField(), sessionID,
				"Field %q in session %s is not a list.", c.InfoField, sessionID)
		}
	}
	return nil
}

// Load returns the stored configuration of id.
func (r *Registry) Load(ctx context.Context, c models.Category, id string) (models.ResourceConfig, error) {
	if !c.Owns(id) {
		return models.ResourceConfig{}, models.NotFound(c.IDField(), id)
	}
	data, err := r.cache.Get(ctx, id)
	if errors.Is(err, cache.ErrNotFound) {
		return models.ResourceConfig{}, models.NotFound(c.IDField(), id)
	}
	if err != nil {
		return models.ResourceConfig{}, fmt.Errorf("load %s: %w", id, err)
	}
	doc, err := models.DecodeDocument(data)
	if err != nil {
		return models.ResourceConfig{}, &models.Error{
			Kind:    models.KindTypeMismatch,
			Field:   c.IDField(),
			ID:      id,
			Message: fmt.Sprintf("%s=%s is not a stored %s configuration", c.IDField(), id, c.Name),
			Err:     err,
		}
	}
	return models.NewResourceConfig(c, id, doc), nil
}

// Info returns the stored configuration document without running a strategy.
func (r *Registry) Info(ctx context.Context, c models.Category, id string) (models.Document, error) {
	rc, err := r.Load(ctx, c, id)
	if err != nil {
		return nil, err
	}
	return rc.Doc, nil
}

// List returns every stored id of the category.
func (r *Registry) List(ctx context.Context, c models.Category) ([]string, error) {
	keys, err := r.cache.Keys(ctx, c.KeyPrefix())
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c.Name, err)
	}
	return keys, nil
}

// validate rejects bodies with a malformed discriminator or URL. Data
// resources may omit the discriminator when they are downloadable.
func validate(c models.Category, body models.Document) error {
	key := c.DiscriminatorKey
	raw, present := body[key]
	disc, isString := raw.(string)
	switch {
	case present && raw != nil && !isString:
		return models.Invalid(key, "%s must be a string", key)
	case disc == "" && c.Name != models.DataResourceCategory.Name:
		return models.Invalid(key, "%s is required", key)
	case disc != "":
		if err := validation.GetValidator().Var(disc, "strategyname"); err != nil {
			return models.Invalid(key, "%s must be a strategy name without whitespace", key)
		}
	}

	if conf, ok := body[models.FieldConfiguration]; ok && conf != nil {
		if _, isObj := conf.(map[string]any); !isObj {
			return models.Invalid(models.FieldConfiguration, "configuration must be an object")
		}
	}

	fields := resourceFields{
		DownloadURL: body.String(models.FieldDownloadURL),
		AccessURL:   body.String(models.FieldAccessURL),
		MediaType:   body.String(models.FieldMediaType),
	}
	if verr := validation.ValidateStruct(fields); verr != nil {
		return verr
	}
	return nil
}
