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
	"context"
	"fmt"
	"regexp"

	"github.com/flowforge/flowengine/pkg/config/provider"
	"github.com/flowforge/flowengine/workflow"
)

// DefinitionLoader is the concrete workflow.DefinitionLoader (spec
// §4.3): it fetches agent/prompt document bytes through the same
// Provider abstraction the path resolver's candidates point into, so
// a deployment may serve definitions from a Consul KV tree or a
// Zookeeper znode instead of the local filesystem, parses the leading
// YAML frontmatter (spec §6.2/§6.4), and renders `{{name}}` template
// placeholders against a variable map.
type DefinitionLoader struct {
	providerType provider.Type
	endpoints    []string
}

// NewDefinitionLoader creates a loader that fetches every document
// through providerType (TypeFile for a local checkout; TypeConsul or
// TypeZookeeper for a networked definition store, spec §4.3).
func NewDefinitionLoader(providerType provider.Type, endpoints []string) *DefinitionLoader {
	return &DefinitionLoader{providerType: providerType, endpoints: endpoints}
}

func (l *DefinitionLoader) loadBytes(path string) ([]byte, error) {
	p, err := provider.New(provider.ProviderConfig{
		Type:      l.providerType,
		Path:      path,
		Endpoints: l.endpoints,
	})
	if err != nil {
		return nil, err
	}
	defer p.Close()
	return p.Load(context.Background())
}

// LoadAgent loads a standalone agent document: systemPrompt, tools,
// model, and outputSchema all live in the frontmatter block (spec
// §6.2); the body is unused.
func (l *DefinitionLoader) LoadAgent(path string) (*workflow.AgentDefinition, error) {
	data, err := l.loadBytes(path)
	if err != nil {
		return nil, fmt.Errorf("load agent %s: %w", path, err)
	}
	meta, _, err := splitFrontmatter(data)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", path, err)
	}

	def := &workflow.AgentDefinition{}
	if err := decodeDocument(meta, def); err != nil {
		return nil, fmt.Errorf("agent %s: %w", path, err)
	}
	return def, nil
}

// LoadLegacyAgent loads a legacy embedded agent document: same
// frontmatter as LoadAgent (tools, model, outputSchema) but the body
// IS the template, dispatched as the prompt with no separate system
// prompt (spec §6.4).
func (l *DefinitionLoader) LoadLegacyAgent(path string) (*workflow.LegacyAgentDefinition, error) {
	data, err := l.loadBytes(path)
	if err != nil {
		return nil, fmt.Errorf("load legacy agent %s: %w", path, err)
	}
	meta, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, fmt.Errorf("legacy agent %s: %w", path, err)
	}

	def := &workflow.LegacyAgentDefinition{}
	if err := decodeDocument(meta, def); err != nil {
		return nil, fmt.Errorf("legacy agent %s: %w", path, err)
	}
	def.Prompt = body
	return def, nil
}

// LoadPrompt loads a prompt document: the body is the user-message
// template verbatim (spec §6.3); frontmatter, if present, is ignored.
func (l *DefinitionLoader) LoadPrompt(path string) (*workflow.PromptDefinition, error) {
	data, err := l.loadBytes(path)
	if err != nil {
		return nil, fmt.Errorf("load prompt %s: %w", path, err)
	}
	_, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, fmt.Errorf("prompt %s: %w", path, err)
	}
	return &workflow.PromptDefinition{Body: body}, nil
}

// placeholderPattern matches single-identifier `{{name}}` tokens;
// nested dot-paths are deliberately out of scope here - they are
// resolved by the step input-wiring layer before rendering (spec §4.3).
var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// RenderTemplate substitutes `{{name}}` tokens with String(vars[name]);
// an unresolved name renders as the empty string (spec §4.3).
func (l *DefinitionLoader) RenderTemplate(body string, vars map[string]any) string {
	return placeholderPattern.ReplaceAllStringFunc(body, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		v, ok := vars[name]
		if !ok || v == nil {
			return ""
		}
		return fmt.Sprint(v)
	})
}

// Schema resolves a symbolic outputSchema id to its JSON Schema
// projection via github.com/invopop/jsonschema (spec §4.3).
func (l *DefinitionLoader) Schema(schemaID string) (any, error) {
	return reflectSchema(schemaID)
}

var _ workflow.DefinitionLoader = (*DefinitionLoader)(nil)
