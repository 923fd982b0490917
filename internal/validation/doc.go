// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

// Package validation provides struct validation using go-playground/validator v10.
//
// A single validator instance is built on first use. Field names in errors
// are taken from json tags, so messages name the field the client sent
// (downloadUrl, not DownloadURL).
//
// # Custom Tags
//
//   - strategyname: a non-empty strategy identifier without whitespace,
//     e.g. "filter/demo" or "application/json"
//
// # Quick Start
//
//	type createFilter struct {
//	    FilterType string `json:"filterType" validate:"required,strategyname"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    // apiErr.Code == "VALIDATION_FAILED"
//	}
package validation
