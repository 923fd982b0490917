// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 == nil {
		t.Fatal("GetValidator() should not return nil")
	}
	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
}

type resourceRequest struct {
	ResourceType string `json:"resourceType" validate:"omitempty,strategyname"`
	DownloadURL  string `json:"downloadUrl" validate:"omitempty,url"`
	Kind         string `json:"kind" validate:"omitempty,oneof=demo script"`
}

func TestValidateStruct_Valid(t *testing.T) {
	tests := []struct {
		name  string
		input resourceRequest
	}{
		{"empty optional fields", resourceRequest{}},
		{"all fields", resourceRequest{
			ResourceType: "resource/demo",
			DownloadURL:  "https://example.org/data.json",
			Kind:         "script",
		}},
		{"file url", resourceRequest{DownloadURL: "file:///tmp/data.csv"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateStruct(&tt.input); err != nil {
				t.Errorf("ValidateStruct() unexpected error: %v", err)
			}
		})
	}
}

func TestValidateStruct_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		input     resourceRequest
		wantField string
		wantTag   string
	}{
		{"whitespace strategy", resourceRequest{ResourceType: "filter demo"}, "resourceType", "strategyname"},
		{"bad url", resourceRequest{DownloadURL: "not a url"}, "downloadUrl", "url"},
		{"oneof", resourceRequest{Kind: "python"}, "kind", "oneof"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateStruct(&tt.input)
			if verr == nil {
				t.Fatal("ValidateStruct() expected error, got nil")
			}
			errs := verr.Errors()
			if len(errs) != 1 {
				t.Fatalf("expected 1 error, got %d: %v", len(errs), verr)
			}
			if errs[0].Field() != tt.wantField {
				t.Errorf("Field() = %q, want %q", errs[0].Field(), tt.wantField)
			}
			if errs[0].Tag() != tt.wantTag {
				t.Errorf("Tag() = %q, want %q", errs[0].Tag(), tt.wantTag)
			}
		})
	}
}

func TestRequiredStrategyName(t *testing.T) {
	type req struct {
		FilterType string `json:"filterType" validate:"required,strategyname"`
	}

	verr := ValidateStruct(&req{})
	if verr == nil {
		t.Fatal("expected error for missing filterType")
	}
	if got := verr.Error(); got != "filterType is required" {
		t.Errorf("Error() = %q", got)
	}
}

func TestToAPIError_SingleError(t *testing.T) {
	verr := ValidateStruct(&resourceRequest{DownloadURL: "::"})
	if verr == nil {
		t.Fatal("expected validation error")
	}

	apiErr := verr.ToAPIError()
	if apiErr.Code != ErrorCode {
		t.Errorf("Code = %q, want %q", apiErr.Code, ErrorCode)
	}
	if apiErr.Message != "downloadUrl must be a valid URL" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if apiErr.Details["field"] != "downloadUrl" {
		t.Errorf("Details[field] = %v", apiErr.Details["field"])
	}
}

func TestToAPIError_MultipleErrors(t *testing.T) {
	verr := ValidateStruct(&resourceRequest{ResourceType: "a b", Kind: "other"})
	if verr == nil {
		t.Fatal("expected validation error")
	}

	apiErr := verr.ToAPIError()
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 2 {
		t.Fatalf("expected 2 field entries, got %#v", apiErr.Details["fields"])
	}
	if !strings.Contains(apiErr.Message, "resourceType") || !strings.Contains(apiErr.Message, "kind") {
		t.Errorf("Message should name both fields: %q", apiErr.Message)
	}
}

func TestToAPIError_Empty(t *testing.T) {
	apiErr := (&RequestValidationError{}).ToAPIError()
	if apiErr.Code != ErrorCode || apiErr.Message != "Validation failed" {
		t.Errorf("unexpected empty error conversion: %+v", apiErr)
	}
}
