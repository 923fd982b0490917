// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/oteapi-services/internal/cache"
	"github.com/tomtom215/oteapi-services/internal/logging"
	"github.com/tomtom215/oteapi-services/internal/metrics"
	"github.com/tomtom215/oteapi-services/internal/models"
	"github.com/tomtom215/oteapi-services/internal/registry"
	"github.com/tomtom215/oteapi-services/internal/session"
	"github.com/tomtom215/oteapi-services/internal/strategy"
)

// Method is a strategy lifecycle method.
type Method string

const (
	MethodGet        Method = "get"
	MethodInitialize Method = "initialize"
	MethodRun        Method = "run"
	MethodStatus     Method = "status"
)

// Dispatcher loads a resource configuration, overlays the session onto it,
// runs the selected strategy and folds the result back into the session.
type Dispatcher struct {
	resources  *registry.Registry
	sessions   *session.Store
	strategies *strategy.Registry
}

// New returns a dispatcher.
func New(resources *registry.Registry, sessions *session.Store, strategies *strategy.Registry) *Dispatcher {
	return &Dispatcher{resources: resources, sessions: sessions, strategies: strategies}
}

// Get runs the strategy's get method. With a session id, the session is
// overlaid onto the configuration and a non-empty result is merged back.
func (d *Dispatcher) Get(ctx context.Context, c models.Category, id, sessionID string) (models.Document, error) {
	return d.dispatch(ctx, c, id, sessionID, MethodGet)
}

// Initialize runs the strategy's initialize method with the same session
// handling as Get.
func (d *Dispatcher) Initialize(ctx context.Context, c models.Category, id, sessionID string) (models.Document, error) {
	return d.dispatch(ctx, c, id, sessionID, MethodInitialize)
}

// Run executes a transformation.
func (d *Dispatcher) Run(ctx context.Context, id, sessionID string) (models.Document, error) {
	return d.dispatch(ctx, models.TransformationCategory, id, sessionID, MethodRun)
}

// Status reports on a transformation task. The session is not consulted.
func (d *Dispatcher) Status(ctx context.Context, id, taskID string) (status models.TransformationStatus, err error) {
	c := models.TransformationCategory
	ctx = scoped(ctx, c, id)
	start := time.Now()
	defer func() { d.record(ctx, c, id, MethodStatus, start, err) }()

	rc, err := d.resources.Load(ctx, c, id)
	if err != nil {
		return models.TransformationStatus{}, err
	}
	name := rc.Discriminator()
	s, err := d.build(strategy.TypeTransformation, name, rc)
	if err != nil {
		return models.TransformationStatus{}, err
	}
	ts, ok := s.(strategy.TransformationStrategy)
	if !ok {
		return models.TransformationStatus{}, models.Unprocessable(c.IDField(), id,
			"Transformation strategy %q does not report status.", name)
	}
	status, err = ts.Status(ctx, taskID)
	if err != nil {
		return models.TransformationStatus{}, &strategy.Error{
			Type: strategy.TypeTransformation, Name: name, Method: string(MethodStatus), Err: err,
		}
	}
	return status, nil
}

// FetchTriples runs query against the triplestore described by conf.
// Nothing is stored and no session is involved. conf may pick a strategy
// with triplestoreType; the default is builtin's SPARQL protocol client.
func (d *Dispatcher) FetchTriples(ctx context.Context, conf models.Document, query string) (result models.Document, err error) {
	c := models.TripleStoreCategory
	ctx = scoped(ctx, c, "")
	start := time.Now()
	defer func() { d.record(ctx, c, "", MethodGet, start, err) }()

	if query == "" {
		return nil, models.Invalid(models.FieldSPARQLQuery, "%s is required", models.FieldSPARQLQuery)
	}
	doc := conf.Clone()
	if doc == nil {
		doc = models.Document{}
	}
	doc[models.FieldSPARQLQuery] = query
	rc := models.NewResourceConfig(c, "", doc)

	name := rc.Discriminator()
	if name == "" {
		name = DefaultTripleStore
	}
	return d.step(ctx, strategy.TypeTripleStore, name, rc, "", MethodGet)
}

// DefaultTripleStore is the triplestore strategy used when the config does
// not name one.
const DefaultTripleStore = "sparql"

// scoped returns ctx carrying a logger tagged with the category and id a
// dispatch works on, so strategy logs can be traced back to it.
func scoped(ctx context.Context, c models.Category, id string) context.Context {
	lc := logging.LoggerFromContext(ctx).With().Str("category", c.Name)
	if id != "" {
		lc = lc.Str(c.IDField(), id)
	}
	return logging.ContextWithLogger(ctx, lc.Logger())
}

func (d *Dispatcher) dispatch(ctx context.Context, c models.Category, id, sessionID string, m Method) (result models.Document, err error) {
	ctx = scoped(logging.ContextWithSessionID(ctx, sessionID), c, id)
	start := time.Now()
	defer func() { d.record(ctx, c, id, m, start, err) }()

	rc, err := d.resources.Load(ctx, c, id)
	if err != nil {
		return nil, err
	}

	if c.Name == models.DataResourceCategory.Name {
		return d.dataResource(ctx, rc, sessionID, m)
	}

	if rc, err = d.overlay(ctx, rc, sessionID); err != nil {
		return nil, err
	}
	t, ok := strategy.ForCategory(c)
	if !ok {
		return nil, models.Unprocessable(c.IDField(), id, "Category %s has no strategies.", c.Name)
	}
	return d.step(ctx, t, rc.Discriminator(), rc, sessionID, m)
}

// dataResource chains download and parse for downloadable resources, or runs
// the resource strategy for access-service backed ones. The download update
// is overlaid onto the configuration handed to the parser.
func (d *Dispatcher) dataResource(ctx context.Context, rc models.ResourceConfig, sessionID string, m Method) (models.Document, error) {
	idField := rc.Category.IDField()
	downloadable, accessible := rc.Downloadable(), rc.AccessServiceBacked()
	if !downloadable && !accessible {
		return nil, models.Unprocessable(idField, rc.ID,
			"%s=%s is unprocessable: it needs downloadUrl and mediaType, or accessUrl and accessService.", idField, rc.ID)
	}
	if m == MethodRun {
		return nil, models.Unprocessable(idField, rc.ID, "Data resources cannot be executed.")
	}

	rc, err := d.overlay(ctx, rc, sessionID)
	if err != nil {
		return nil, err
	}

	if !downloadable {
		name := rc.Discriminator()
		if name == "" {
			return nil, models.Unprocessable(idField, rc.ID,
				"%s=%s is unprocessable: resourceType is required for access-service resources.", idField, rc.ID)
		}
		return d.step(ctx, strategy.TypeResource, name, rc, sessionID, m)
	}

	fetched, err := d.step(ctx, strategy.TypeDownload, rc.DownloadScheme(), rc, sessionID, m)
	if err != nil {
		return nil, err
	}
	parseCfg, err := rc.WithOverlay(fetched)
	if err != nil {
		return nil, err
	}
	return d.step(ctx, strategy.TypeParse, rc.Get(models.FieldMediaType), parseCfg, sessionID, m)
}

// overlay returns rc with the session document merged into its
// configuration. Session fields win.
func (d *Dispatcher) overlay(ctx context.Context, rc models.ResourceConfig, sessionID string) (models.ResourceConfig, error) {
	if sessionID == "" {
		return rc, nil
	}
	body, err := d.sessions.Get(ctx, sessionID)
	if err != nil {
		return models.ResourceConfig{}, err
	}
	return rc.WithOverlay(body)
}

// step runs one strategy method and merges a non-empty result into the
// session.
func (d *Dispatcher) step(ctx context.Context, t strategy.Type, name string, rc models.ResourceConfig, sessionID string, m Method) (models.Document, error) {
	s, err := d.build(t, name, rc)
	if err != nil {
		return nil, err
	}

	var result models.Document
	switch m {
	case MethodGet:
		result, err = s.Get(ctx)
	case MethodInitialize:
		result, err = s.Initialize(ctx)
	case MethodRun:
		ts, ok := s.(strategy.TransformationStrategy)
		if !ok {
			return nil, models.Unprocessable(rc.Category.IDField(), rc.ID, "Strategy %q cannot be executed.", name)
		}
		result, err = ts.Run(ctx)
	}
	if err != nil {
		return nil, &strategy.Error{Type: t, Name: name, Method: string(m), Err: err}
	}
	if result == nil {
		result = models.Document{}
	}

	logging.Ctx(ctx).Debug().
		Str("strategy_type", string(t)).
		Str("strategy", name).
		Str("method", string(m)).
		Int("fields", len(result)).
		Msg("Strategy returned")

	if len(result) > 0 && sessionID != "" {
		if _, err := d.sessions.Update(ctx, sessionID, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (d *Dispatcher) build(t strategy.Type, name string, rc models.ResourceConfig) (strategy.Strategy, error) {
	idField := rc.Category.IDField()
	factory, err := d.strategies.Resolve(t, name)
	if err != nil {
		return nil, &models.Error{
			Kind:    models.KindUnprocessable,
			Field:   idField,
			ID:      rc.ID,
			Message: "No " + string(t) + " strategy registered for \"" + name + "\"",
			Err:     err,
		}
	}
	s, err := factory(rc)
	if err != nil {
		return nil, &strategy.Error{Type: t, Name: name, Method: "create", Err: err}
	}
	return s, nil
}

func (d *Dispatcher) record(ctx context.Context, c models.Category, id string, m Method, start time.Time, err error) {
	outcome := Outcome(err)
	metrics.RecordDispatch(c.Name, string(m), outcome, time.Since(start))

	log := logging.Ctx(ctx)
	event := log.Debug()
	if outcome == OutcomeStrategyError || outcome == OutcomeCacheError {
		event = log.Warn().Err(err)
	}
	event.Str("method", string(m)).
		Str("outcome", outcome).
		Dur("duration", time.Since(start)).
		Msg("Dispatch finished")
}

// Dispatch outcomes as exported in metrics.
const (
	OutcomeSuccess         = "success"
	OutcomeUnknownStrategy = "unknown_strategy"
	OutcomeStrategyError   = "strategy_error"
	OutcomeCacheError      = "cache_error"
	OutcomeRejected        = "rejected"
)

// Outcome classifies a dispatch error.
func Outcome(err error) string {
	var se *strategy.Error
	var opErr *cache.OpError
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, strategy.ErrUnknownStrategy):
		return OutcomeUnknownStrategy
	case errors.As(err, &opErr), errors.Is(err, cache.ErrNotInitialized):
		return OutcomeCacheError
	case errors.As(err, &se):
		return OutcomeStrategyError
	default:
		return OutcomeRejected
	}
}
