// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package builtin

import (
	"context"
	"time"

	"github.com/tomtom215/oteapi-services/internal/models"
	"github.com/tomtom215/oteapi-services/internal/strategy"
)

// empty answers every lifecycle method with an empty update.
type empty struct{}

func newEmpty(models.ResourceConfig) (strategy.Strategy, error) {
	return empty{}, nil
}

func (empty) Get(context.Context) (models.Document, error)        { return models.Document{}, nil }
func (empty) Initialize(context.Context) (models.Document, error) { return models.Document{}, nil }

// demoFilter echoes configuration.demo_data back as "key".
type demoFilter struct {
	cfg models.ResourceConfig
}

func newDemoFilter(cfg models.ResourceConfig) (strategy.Strategy, error) {
	return &demoFilter{cfg: cfg}, nil
}

func (f *demoFilter) Get(context.Context) (models.Document, error) {
	data, ok := f.cfg.Configuration()["demo_data"]
	if !ok {
		return nil, models.Unprocessable(f.cfg.Category.IDField(), f.cfg.ID,
			"filter/demo requires configuration.demo_data")
	}
	return models.Document{"key": data}, nil
}

func (f *demoFilter) Initialize(context.Context) (models.Document, error) {
	return models.Document{"result": "collectionid"}, nil
}

// demoResource returns the stored configuration of an access-service
// backed resource.
type demoResource struct {
	cfg models.ResourceConfig
}

func newDemoResource(cfg models.ResourceConfig) (strategy.Strategy, error) {
	return &demoResource{cfg: cfg}, nil
}

func (r *demoResource) Get(context.Context) (models.Document, error) {
	return r.cfg.Doc.Clone(), nil
}

func (r *demoResource) Initialize(context.Context) (models.Document, error) {
	return models.Document{}, nil
}

type demoTransformation struct {
	cfg models.ResourceConfig
	now func() time.Time
}

func newDemoTransformation(cfg models.ResourceConfig) (strategy.Strategy, error) {
	return &demoTransformation{cfg: cfg, now: time.Now}, nil
}

func (t *demoTransformation) Get(context.Context) (models.Document, error) {
	return models.Document{}, nil
}

func (t *demoTransformation) Initialize(context.Context) (models.Document, error) {
	return models.Document{"result": "collection id"}, nil
}

func (t *demoTransformation) Run(context.Context) (models.Document, error) {
	return models.Document{"result": "a01d"}, nil
}

func (t *demoTransformation) Status(_ context.Context, taskID string) (models.TransformationStatus, error) {
	now := t.now().UTC()
	return models.TransformationStatus{
		ID:         taskID,
		Status:     "wip",
		Messages:   []string{},
		Created:    &now,
		StartTime:  &now,
		FinishTime: &now,
	}, nil
}

// demoParser downloads configuration.downloadUrl with the download strategy
// for its scheme, then parses the content by configuration.mediaType.
type demoParser struct {
	env *env
	cfg models.ResourceConfig
}

func (e *env) newDemoParser(cfg models.ResourceConfig) (strategy.Strategy, error) {
	return &demoParser{env: e, cfg: cfg}, nil
}

func (p *demoParser) Initialize(context.Context) (models.Document, error) {
	return models.Document{}, nil
}

func (p *demoParser) Get(ctx context.Context) (models.Document, error) {
	conf := p.cfg.Configuration()
	idField := p.cfg.Category.IDField()

	source := models.NewResourceConfig(p.cfg.Category, p.cfg.ID, models.Document{
		models.FieldDownloadURL:   conf.String(models.FieldDownloadURL),
		models.FieldMediaType:     conf.String(models.FieldMediaType),
		models.FieldToken:         p.cfg.Token(),
		models.FieldConfiguration: map[string]any(conf.Clone()),
	})
	if source.Get(models.FieldDownloadURL) == "" {
		return nil, models.Unprocessable(idField, p.cfg.ID, "parser/demo requires configuration.downloadUrl")
	}
	mediaType := source.Get(models.FieldMediaType)
	if mediaType == "" {
		mediaType = MediaTypeJSON
	}

	scheme := source.DownloadScheme()
	dl, err := p.resolve(strategy.TypeDownload, scheme, source)
	if err != nil {
		return nil, err
	}
	fetched, err := dl.Get(ctx)
	if err != nil {
		return nil, &strategy.Error{Type: strategy.TypeDownload, Name: scheme, Method: "get", Err: err}
	}

	parsed, err := source.WithOverlay(fetched)
	if err != nil {
		return nil, err
	}
	ps, err := p.resolve(strategy.TypeParse, mediaType, parsed)
	if err != nil {
		return nil, err
	}
	return ps.Get(ctx)
}

func (p *demoParser) resolve(t strategy.Type, name string, cfg models.ResourceConfig) (strategy.Strategy, error) {
	factory, err := p.env.registry.Resolve(t, name)
	if err != nil {
		return nil, models.Unprocessable(p.cfg.Category.IDField(), p.cfg.ID, "%s", err.Error())
	}
	return factory(cfg)
}
