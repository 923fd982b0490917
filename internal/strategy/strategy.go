// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

// Package strategy defines the plugin contract for pipeline strategies and
// the registry that maps a (type, name) pair to a factory.
//
// A strategy is built per request from one resource configuration, with the
// session already overlaid. It never sees the session itself; whatever it
// returns is merged back into the session by the caller.
package strategy

import (
	"context"
	"fmt"

	"github.com/tomtom215/oteapi-services/internal/models"
)

// Type is a strategy family.
type Type string

const (
	TypeDownload       Type = "download"
	TypeParse          Type = "parse"
	TypeResource       Type = "resource"
	TypeFilter         Type = "filter"
	TypeFunction       Type = "function"
	TypeMapping        Type = "mapping"
	TypeTransformation Type = "transformation"
	TypeTripleStore    Type = "triplestore"
)

// ForCategory returns the strategy family a resource category dispatches to.
func ForCategory(c models.Category) (Type, bool) {
	switch c.Name {
	case models.FilterCategory.Name:
		return TypeFilter, true
	case models.FunctionCategory.Name:
		return TypeFunction, true
	case models.MappingCategory.Name:
		return TypeMapping, true
	case models.ParserCategory.Name:
		return TypeParse, true
	case models.DataResourceCategory.Name:
		return TypeResource, true
	case models.TransformationCategory.Name:
		return TypeTransformation, true
	}
	return "", false
}

// Strategy is implemented by every plugin. The returned document is the
// session update; nil and empty mean "nothing to merge".
type Strategy interface {
	Get(ctx context.Context) (models.Document, error)
	Initialize(ctx context.Context) (models.Document, error)
}

// TransformationStrategy adds the asynchronous job methods.
type TransformationStrategy interface {
	Strategy
	Run(ctx context.Context) (models.Document, error)
	Status(ctx context.Context, taskID string) (models.TransformationStatus, error)
}

// Factory builds a strategy for one configuration. It may reject the
// configuration with a models.Unprocessable error.
type Factory func(cfg models.ResourceConfig) (Strategy, error)

// Error wraps a failure raised inside a strategy method.
type Error struct {
	Type   Type
	Name   string
	Method string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s strategy %q %s: %v", e.Type, e.Name, e.Method, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
