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

// Package config loads and schema-validates workflow, agent, and
// prompt documents off a Provider (spec §4.3), and exposes the
// concrete DefinitionLoader the engine dispatches against.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/flowforge/flowengine/pkg/config/provider"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Loader loads and watches a single document kind from a Provider. T
// is typically workflow.Definition; a target that implements
// `SetDefaults()` and/or `Validate() error` gets both called after
// decode, matching the teacher's own Config lifecycle without forcing
// every document kind through one shared interface.
type Loader[T any] struct {
	provider provider.Provider
	onChange func(*T)
}

// LoaderOption configures a Loader.
type LoaderOption[T any] func(*Loader[T])

// WithOnChange sets a callback invoked when the watched document changes.
func WithOnChange[T any](fn func(*T)) LoaderOption[T] {
	return func(l *Loader[T]) {
		l.onChange = fn
	}
}

// NewLoader creates a Loader with the given provider.
func NewLoader[T any](p provider.Provider, opts ...LoaderOption[T]) *Loader[T] {
	l := &Loader[T]{provider: p}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads, parses, env-expands, and decodes the document, then
// applies defaults/validation if T opts into either.
func (l *Loader[T]) Load(ctx context.Context) (*T, error) {
	data, err := l.provider.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	rawMap, err := parseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	expandedMap := expandEnvVars(rawMap)

	out := new(T)
	if err := decodeDocument(expandedMap, out); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}

	if v, ok := any(out).(interface{ SetDefaults() }); ok {
		v.SetDefaults()
	}
	if v, ok := any(out).(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("document validation failed: %w", err)
		}
	}

	return out, nil
}

// Watch starts watching for document changes. When changes are
// detected, the document is reloaded and onChange is called. Blocks
// until ctx is cancelled.
func (l *Loader[T]) Watch(ctx context.Context) error {
	changes, err := l.provider.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to start watching: %w", err)
	}

	if changes == nil {
		slog.Info("document watching not supported by provider", "type", l.provider.Type())
		<-ctx.Done()
		return ctx.Err()
	}

	slog.Info("started watching for document changes", "type", l.provider.Type())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-changes:
			if !ok {
				return nil
			}

			doc, err := l.Load(ctx)
			if err != nil {
				slog.Error("failed to reload document", "error", err)
				continue
			}

			slog.Info("document reloaded successfully")
			if l.onChange != nil {
				l.onChange(doc)
			}
		}
	}
}

// Close releases resources held by the loader.
func (l *Loader[T]) Close() error {
	return l.provider.Close()
}

// Provider returns the underlying provider (for hot-reload).
func (l *Loader[T]) Provider() provider.Provider {
	return l.provider
}

// parseBytes parses raw bytes into a map. Supports YAML (primary) and
// JSON (fallback).
func parseBytes(data []byte) (map[string]any, error) {
	var result map[string]any

	if err := yaml.Unmarshal(data, &result); err == nil {
		return result, nil
	}

	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse as YAML or JSON: %w", err)
	}

	return result, nil
}

// decodeDocument decodes a map into any document struct using
// mapstructure, honoring `yaml` tags so the same struct serves both
// YAML workflow documents and the mapstructure-decoded frontmatter of
// agent/prompt markdown.
func decodeDocument(input map[string]any, output any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           output,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("failed to decode: %w", err)
	}

	return nil
}

// expandEnvVars recursively expands ${VAR} and $VAR patterns in a map.
func expandEnvVars(input map[string]any) map[string]any {
	result := make(map[string]any, len(input))
	for k, v := range input {
		result[k] = expandValue(v)
	}
	return result
}

func expandValue(v any) any {
	switch val := v.(type) {
	case string:
		return expandEnvString(val)
	case map[string]any:
		return expandEnvVars(val)
	case []any:
		result := make([]any, len(val))
		for i, item := range val {
			result[i] = expandValue(item)
		}
		return result
	default:
		return v
	}
}

// envVarPattern matches ${VAR}, ${VAR:-default}, and $VAR.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

func expandEnvString(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if strings.HasPrefix(match, "${") {
			inner := match[2 : len(match)-1]

			if idx := strings.Index(inner, ":-"); idx != -1 {
				varName := inner[:idx]
				defaultVal := inner[idx+2:]
				if val := os.Getenv(varName); val != "" {
					return val
				}
				return defaultVal
			}

			return os.Getenv(inner)
		}

		varName := match[1:]
		return os.Getenv(varName)
	})
}

// LoadDocument is a convenience function that creates a loader and
// loads a single document of type T.
func LoadDocument[T any](ctx context.Context, opts provider.ProviderConfig) (*T, *Loader[T], error) {
	p, err := provider.New(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create provider: %w", err)
	}

	loader := NewLoader[T](p)
	doc, err := loader.Load(ctx)
	if err != nil {
		p.Close()
		return nil, nil, err
	}

	return doc, loader, nil
}

// LoadDocumentFile is a convenience function for loading a single
// document of type T from a file path.
func LoadDocumentFile[T any](ctx context.Context, path string) (*T, *Loader[T], error) {
	return LoadDocument[T](ctx, provider.ProviderConfig{
		Type: provider.TypeFile,
		Path: path,
	})
}
