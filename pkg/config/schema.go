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

package config

import (
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
)

// schemaRegistry maps a symbolic outputSchema id (spec §4.3) to the Go
// struct its JSON Schema projection is reflected from. Registration
// happens at process init, the same way the teacher's own structured-
// output contracts are declared once and referenced by name.
var schemaRegistry = struct {
	mu     sync.RWMutex
	byName map[string]any
	cache  map[string]*jsonschema.Schema
}{
	byName: make(map[string]any),
	cache:  make(map[string]*jsonschema.Schema),
}

// RegisterSchema associates schemaID with target, whose Go type is
// reflected into a JSON Schema on first lookup. Call this
// from an init() in the package that owns the structured-output shape;
// registering the same id twice is a programmer error and panics, the
// same way a duplicate flag/route registration would.
func RegisterSchema(schemaID string, target any) {
	schemaRegistry.mu.Lock()
	defer schemaRegistry.mu.Unlock()

	if _, exists := schemaRegistry.byName[schemaID]; exists {
		panic(fmt.Sprintf("config: schema %q already registered", schemaID))
	}
	schemaRegistry.byName[schemaID] = target
}

// reflectSchema projects a registered schema id to its JSON Schema
// form via github.com/invopop/jsonschema, caching the result since
// reflection is deterministic per type.
func reflectSchema(schemaID string) (*jsonschema.Schema, error) {
	schemaRegistry.mu.RLock()
	if cached, ok := schemaRegistry.cache[schemaID]; ok {
		schemaRegistry.mu.RUnlock()
		return cached, nil
	}
	target, ok := schemaRegistry.byName[schemaID]
	schemaRegistry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("config: unknown output schema %q", schemaID)
	}

	reflector := &jsonschema.Reflector{ExpandedStruct: true}
	schema := reflector.Reflect(target)

	schemaRegistry.mu.Lock()
	schemaRegistry.cache[schemaID] = schema
	schemaRegistry.mu.Unlock()

	return schema, nil
}
