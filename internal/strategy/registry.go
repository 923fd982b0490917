// OTEAPI Services - Strategy Pipeline REST Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/oteapi-services

package strategy

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownStrategy is returned when no factory is registered for a pair.
var ErrUnknownStrategy = errors.New("unknown strategy")

// ErrDuplicate is returned when a pair is registered twice.
var ErrDuplicate = errors.New("strategy already registered")

type key struct {
	typ  Type
	name string
}

// Info describes a registered strategy for the /info endpoint.
type Info struct {
	Name    string `json:"name"`
	Package string `json:"package"`
}

type entry struct {
	factory Factory
	pkg     string
}

// Registry maps (Type, name) to a Factory. It is filled once at startup and
// read concurrently afterwards.
type Registry struct {
	mu      sync.RWMutex
	entries map[key]entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[key]entry)}
}

// Register adds a factory. pkg names the plugin bundle it came from.
func (r *Registry) Register(t Type, name, pkg string, f Factory) error {
	if name == "" || f == nil {
		return fmt.Errorf("register %s strategy: name and factory are required", t)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{t, name}
	if _, ok := r.entries[k]; ok {
		return fmt.Errorf("%w: %s %q", ErrDuplicate, t, name)
	}
	r.entries[k] = entry{factory: f, pkg: pkg}
	return nil
}

// Resolve returns the factory for (t, name).
func (r *Registry) Resolve(t Type, name string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[key{t, name}]
	if !ok {
		return nil, fmt.Errorf("%w: %s %q", ErrUnknownStrategy, t, name)
	}
	return e.factory, nil
}

// List returns the registered strategies grouped by type, sorted by name.
// Types with no strategies are omitted.
func (r *Registry) List() map[Type][]Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[Type][]Info)
	for k, e := range r.entries {
		out[k.typ] = append(out[k.typ], Info{Name: k.name, Package: e.pkg})
	}
	for _, infos := range out {
		sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	}
	return out
}

// Packages returns the distinct plugin bundle names, sorted.
func (r *Registry) Packages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, e := range r.entries {
		seen[e.pkg] = struct{}{}
	}
	pkgs := make([]string, 0, len(seen))
	for p := range seen {
		pkgs = append(pkgs, p)
	}
	sort.Strings(pkgs)
	return pkgs
}
