// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package models

import "time"

// TransformationStatus is returned by a transformation's status query.
type TransformationStatus struct {
	ID         string     `json:"id"`
	Status     string     `json:"status,omitempty"`
	Messages   []string   `json:"messages"`
	Created    *time.Time `json:"created,omitempty"`
	StartTime  *time.Time `json:"startTime,omitempty"`
	FinishTime *time.Time `json:"finishTime,omitempty"`
}
