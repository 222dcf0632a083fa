// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package workflow

import (
	"context"
	"fmt"
	"sync"
)

// Deps exposes the LLM dispatcher and run-wide configuration to a
// code-step handler, letting it dispatch its own LLM calls or read
// run options without the handler needing engine internals.
type Deps struct {
	Dispatcher     Dispatcher
	WorkingDir     string
	PermissionMode string
	MCPServers     []string
	SettingSources []string
}

// Handler is a registered code-step function: it receives the run
// context and the step's resolved input, may call back into the LLM
// dispatcher via deps, and may freely mutate ctx. Its return value (if
// any) becomes the step's `output` when the step names one.
type Handler func(ctx context.Context, wc *Context, input any, deps Deps) (any, error)

// HandlerRegistry is the name-keyed dispatch table for code steps
// (spec §4.7): register/get/has/list over a mutex-guarded map, with
// `has` a thin wrapper over `get`'s boolean exactly as spec.md names
// the surface.
type HandlerRegistry struct {
	mu    sync.RWMutex
	items map[string]Handler
}

// NewHandlerRegistry creates an empty handler registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{items: make(map[string]Handler)}
}

// Register adds a named handler. Re-registering an existing name is an error.
func (r *HandlerRegistry) Register(name string, h Handler) error {
	if name == "" {
		return fmt.Errorf("handler registry: name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[name]; exists {
		return fmt.Errorf("handler registry: %q already registered", name)
	}
	r.items[name] = h
	return nil
}

// Get looks up a handler by name.
func (r *HandlerRegistry) Get(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.items[name]
	return h, ok
}

// Has reports whether name is registered.
func (r *HandlerRegistry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// List returns every registered handler (order unspecified).
func (r *HandlerRegistry) List() []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Handler, 0, len(r.items))
	for _, h := range r.items {
		out = append(out, h)
	}
	return out
}

// MustGet looks up a handler, raising per spec §4.7 ("get on an
// unknown name raises") when absent.
func (r *HandlerRegistry) MustGet(name string) (Handler, error) {
	h, ok := r.Get(name)
	if !ok {
		return nil, &UnknownHandlerError{Handler: name}
	}
	return h, nil
}

// DefaultRegistry bootstraps a registry with the built-in handlers
// standard workflow definitions rely on: a checkpoint-saver that calls
// back into a Sink, and an issue-creator that appends an opaque record
// to the run's issue log. From the engine's perspective both are
// ordinary handlers; it never inspects what they do.
func DefaultRegistry(sink Sink, issueLogPath string) (*HandlerRegistry, error) {
	r := NewHandlerRegistry()

	if err := r.Register("save-checkpoint", func(ctx context.Context, wc *Context, input any, deps Deps) (any, error) {
		if sink == nil {
			return nil, fmt.Errorf("save-checkpoint handler: no sink configured")
		}
		if err := sink.SaveCheckpoint(ctx, wc.ToCheckpoint()); err != nil {
			return nil, err
		}
		return map[string]any{"saved": true}, nil
	}); err != nil {
		return nil, err
	}

	if err := r.Register("create-issue", func(ctx context.Context, wc *Context, input any, deps Deps) (any, error) {
		return appendIssueRecord(issueLogPath, input)
	}); err != nil {
		return nil, err
	}

	return r, nil
}
