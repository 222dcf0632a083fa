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

// DefinitionLoader is the engine's boundary to the definition-loader
// component (spec §4.3): it reads agent/prompt documents off disk,
// renders `{{name}}` templates, and projects a symbolic schema id to
// the JSON Schema forwarded to the LLM as a structured-output
// contract. pkg/config supplies the concrete implementation; the
// interpreter only ever sees this interface.
type DefinitionLoader interface {
	LoadAgent(path string) (*AgentDefinition, error)
	LoadLegacyAgent(path string) (*LegacyAgentDefinition, error)
	LoadPrompt(path string) (*PromptDefinition, error)
	RenderTemplate(body string, vars map[string]any) string
	Schema(schemaID string) (any, error)
}
