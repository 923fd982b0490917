// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package authz

import (
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/tomtom215/oteapi-services/internal/auth"
)

// Objects guarded by the policy.
const (
	ObjectCache     = "cache"
	ObjectSessions  = "sessions"
	ObjectAdminInfo = "admin_info"
)

// Actions a request can perform on an object.
const (
	ActionRead   = "read"
	ActionWrite  = "write"
	ActionDelete = "delete"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

// defaultPolicy lists what only the admin role may do. Everything else on
// the API is open to any authenticated subject and is not routed through
// the enforcer.
const defaultPolicy = `
# raw cache inspection
p, admin, cache, read

# bulk session deletion
p, admin, sessions, delete

# runtime and route listing
p, admin, admin_info, read
`

// Config controls how roles map onto the embedded policy.
type Config struct {
	// AdminRole is the role name carried by tokens that should be treated
	// as admin. Empty means auth.RoleAdmin.
	AdminRole string

	// AllowAnonymous grants the admin policy to the anonymous subject. Set
	// when authentication is disabled.
	AllowAnonymous bool
}

// Enforcer wraps a Casbin synced enforcer loaded with the embedded model
// and policy.
type Enforcer struct {
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer creates an enforcer and applies the role mappings in cfg.
func NewEnforcer(cfg Config) (*Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	if err := loadPolicy(enforcer, defaultPolicy); err != nil {
		return nil, err
	}

	if cfg.AdminRole != "" && cfg.AdminRole != auth.RoleAdmin {
		if _, err := enforcer.AddGroupingPolicy(cfg.AdminRole, auth.RoleAdmin); err != nil {
			return nil, fmt.Errorf("failed to map admin role: %w", err)
		}
	}
	if cfg.AllowAnonymous {
		if _, err := enforcer.AddGroupingPolicy(auth.RoleAnonymous, auth.RoleAdmin); err != nil {
			return nil, fmt.Errorf("failed to map anonymous role: %w", err)
		}
	}
	return &Enforcer{enforcer: enforcer}, nil
}

// loadPolicy parses policy CSV lines into the enforcer.
func loadPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		switch {
		case parts[0] == "p" && len(parts) == 4:
			if _, err := enforcer.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
				return fmt.Errorf("failed to add policy %v: %w", parts[1:], err)
			}
		case parts[0] == "g" && len(parts) == 3:
			if _, err := enforcer.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("failed to add grouping policy %v: %w", parts[1:], err)
			}
		default:
			return fmt.Errorf("malformed policy line %q", line)
		}
	}
	return nil
}

// Enforce checks a single subject or role.
func (e *Enforcer) Enforce(subject, object, action string) (bool, error) {
	allowed, err := e.enforcer.Enforce(subject, object, action)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}
	return allowed, nil
}

// EnforceWithRoles allows the action when the subject or any of its roles
// is allowed.
func (e *Enforcer) EnforceWithRoles(subject string, roles []string, object, action string) (bool, error) {
	if allowed, err := e.Enforce(subject, object, action); err != nil || allowed {
		return allowed, err
	}
	for _, role := range roles {
		if allowed, err := e.Enforce(role, object, action); err != nil || allowed {
			return allowed, err
		}
	}
	return false, nil
}

// GetPolicy returns all policy rules.
func (e *Enforcer) GetPolicy() [][]string {
	//nolint:errcheck // GetPolicy only fails on a nil model
	policies, _ := e.enforcer.GetPolicy()
	return policies
}
