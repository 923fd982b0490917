// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package models

import (
	"strings"

	"github.com/google/uuid"
)

// Category describes one family of resources: its id prefix, the field that
// selects a strategy, the session list that accumulates its ids, and the
// key used in create responses.
type Category struct {
	Name             string
	Prefix           string
	DiscriminatorKey string
	InfoField        string
	IDKey            string
}

var (
	SessionCategory = Category{
		Name:   "session",
		Prefix: "session",
		IDKey:  "session_id",
	}
	FilterCategory = Category{
		Name:             "filter",
		Prefix:           "filter",
		DiscriminatorKey: "filterType",
		InfoField:        "filter_info",
		IDKey:            "filter_id",
	}
	FunctionCategory = Category{
		Name:             "function",
		Prefix:           "function",
		DiscriminatorKey: "functionType",
		InfoField:        "function_info",
		IDKey:            "function_id",
	}
	MappingCategory = Category{
		Name:             "mapping",
		Prefix:           "mapping",
		DiscriminatorKey: "mappingType",
		InfoField:        "mapping_info",
		IDKey:            "mapping_id",
	}
	ParserCategory = Category{
		Name:             "parser",
		Prefix:           "parser",
		DiscriminatorKey: "parserType",
		InfoField:        "parser_info",
		IDKey:            "parser_id",
	}
	DataResourceCategory = Category{
		Name:             "dataresource",
		Prefix:           "dataresource",
		DiscriminatorKey: "resourceType",
		InfoField:        "resource_info",
		IDKey:            "resource_id",
	}
	TransformationCategory = Category{
		Name:             "transformation",
		Prefix:           "transformation",
		DiscriminatorKey: "transformationType",
		InfoField:        "transformation_info",
		IDKey:            "transformation_id",
	}
	// TripleStoreCategory describes ad hoc triplestore queries. Nothing of
	// it is stored, so it has no ids and no session list.
	TripleStoreCategory = Category{
		Name:             "triplestore",
		Prefix:           "triplestore",
		DiscriminatorKey: "triplestoreType",
		IDKey:            "triplestore",
	}
)

// ResourceCategories lists the strategy-backed categories in route order.
func ResourceCategories() []Category {
	return []Category{
		DataResourceCategory,
		FilterCategory,
		FunctionCategory,
		MappingCategory,
		ParserCategory,
		TransformationCategory,
	}
}

// KeyPrefix is the cache key prefix shared by every id of the category.
func (c Category) KeyPrefix() string {
	return c.Prefix + "-"
}

// NewID returns a fresh "<prefix>-<uuid4>" identifier.
func (c Category) NewID() string {
	return c.KeyPrefix() + uuid.NewString()
}

// Owns reports whether id carries this category's prefix.
func (c Category) Owns(id string) bool {
	return strings.HasPrefix(id, c.KeyPrefix())
}

// IDField is the name used for this category's id in errors, e.g. "filter_id".
func (c Category) IDField() string {
	return c.IDKey
}
