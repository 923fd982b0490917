// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is the work factor for the admin password hash.
const bcryptCost = 12

// BasicAuthManager handles HTTP Basic Authentication against one bcrypt
// hashed credential.
type BasicAuthManager struct {
	username     string
	passwordHash []byte
}

// NewBasicAuthManager hashes password once so requests only compare.
func NewBasicAuthManager(username, password string) (*BasicAuthManager, error) {
	return newBasicAuthManager(username, password, bcryptCost)
}

func newBasicAuthManager(username, password string, cost int) (*BasicAuthManager, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	return &BasicAuthManager{
		username:     username,
		passwordHash: hash,
	}, nil
}

// ValidateCredentials checks an Authorization header value and returns the
// username on success.
func (m *BasicAuthManager) ValidateCredentials(authHeader string) (string, error) {
	encoded, ok := strings.CutPrefix(authHeader, "Basic ")
	if !ok {
		return "", fmt.Errorf("invalid authorization header format")
	}

	credentials, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode credentials")
	}

	username, password, ok := strings.Cut(string(credentials), ":")
	if !ok {
		return "", fmt.Errorf("invalid credentials format")
	}

	if !m.validateUsernamePassword(username, password) {
		return "", fmt.Errorf("invalid username or password")
	}
	return username, nil
}

// validateUsernamePassword evaluates both comparisons regardless of the
// username result so timing does not reveal which part was wrong.
func (m *BasicAuthManager) validateUsernamePassword(username, password string) bool {
	usernameMatch := subtle.ConstantTimeCompare([]byte(username), []byte(m.username)) == 1
	passwordMatch := bcrypt.CompareHashAndPassword(m.passwordHash, []byte(password)) == nil
	return usernameMatch && passwordMatch
}

// WWWAuthenticate is the challenge sent with 401 responses.
func (m *BasicAuthManager) WWWAuthenticate() string {
	return `Basic realm="OTEAPI Services", charset="UTF-8"`
}
