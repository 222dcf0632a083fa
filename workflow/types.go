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

// Package workflow is the deterministic step-tree interpreter: it
// loads a workflow definition, dispatches composed/legacy agent steps,
// code steps, parallel groups, per-task iteration, and retry loops,
// and assembles a structured Result from the terminal
// condition of a run.
package workflow

import (
	"strings"
	"time"
)

// StepKind discriminates the five step shapes a StepDefinition may take.
type StepKind string

const (
	KindComposedAgent StepKind = "composed-agent"
	KindLegacyAgent   StepKind = "legacy-agent"
	KindCode          StepKind = "code"
	KindParallel      StepKind = "parallel"
	KindPerTask       StepKind = "per-task"
	KindLoop          StepKind = "loop"
)

// ExhaustionPolicy controls what happens when a loop step's retries
// are exhausted while its condition still holds.
type ExhaustionPolicy string

const (
	ExhaustedEscalate ExhaustionPolicy = "escalate"
	ExhaustedFail     ExhaustionPolicy = "fail"
	ExhaustedWarn     ExhaustionPolicy = "warn"
)

// Defaults carries run-wide defaults applied at run start. Defaults
// are never mutated by the engine; per-step values override them.
// Agent steps read Model and Agent; PermissionMode and SettingSources
// are decoded but not read, since dispatch takes both from RunOptions.
type Defaults struct {
	Model          string   `yaml:"model,omitempty" json:"model,omitempty"`
	PermissionMode string   `yaml:"permissionMode,omitempty" json:"permissionMode,omitempty"`
	SettingSources []string `yaml:"settingSources,omitempty" json:"settingSources,omitempty"`
	Agent          string   `yaml:"agent,omitempty" json:"agent,omitempty"`
}

// StepDefinition is the tagged-sum step shape. All five step kinds
// decode into this one struct; Kind() recovers the discriminator from
// which fields are populated, mirroring the way the teacher's config
// package decodes permissive YAML into typed structs before a second
// validation pass.
type StepDefinition struct {
	Name    string `yaml:"name" json:"name"`
	Enabled *bool  `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Type    string `yaml:"type,omitempty" json:"type,omitempty"`

	// Composed / legacy agent fields.
	Prompt   string `yaml:"prompt,omitempty" json:"prompt,omitempty"`
	Agent    string `yaml:"agent,omitempty" json:"agent,omitempty"`
	Model    string `yaml:"model,omitempty" json:"model,omitempty"`
	Input    any    `yaml:"input,omitempty" json:"input,omitempty"`
	Output   string `yaml:"output,omitempty" json:"output,omitempty"`
	FailWhen string `yaml:"failWhen,omitempty" json:"failWhen,omitempty"`

	// Code step.
	Handler string `yaml:"handler,omitempty" json:"handler,omitempty"`

	// Parallel / per-task / loop.
	Steps  []*StepDefinition `yaml:"steps,omitempty" json:"steps,omitempty"`
	Source string            `yaml:"source,omitempty" json:"source,omitempty"`

	// Loop.
	Condition   string           `yaml:"condition,omitempty" json:"condition,omitempty"`
	MaxRetries  int              `yaml:"maxRetries,omitempty" json:"maxRetries,omitempty"`
	OnExhausted ExhaustionPolicy `yaml:"onExhausted,omitempty" json:"onExhausted,omitempty"`
}

// Kind recovers the step's discriminator from which fields are set.
func (s *StepDefinition) Kind() StepKind {
	switch {
	case s.Type == "code":
		return KindCode
	case s.Type == "parallel":
		return KindParallel
	case s.Type == "per-task":
		return KindPerTask
	case s.Type == "loop":
		return KindLoop
	case s.Type == "" && s.Prompt != "":
		return KindComposedAgent
	default:
		return KindLegacyAgent
	}
}

// IsEnabled returns the step's enabled flag, defaulting to true.
func (s *StepDefinition) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// IsCheckStep reports whether a step is subject to --skip-checks: its
// name contains (case-insensitive) "review" or "check", or its agent
// path contains "review". Code steps are never check steps.
func (s *StepDefinition) IsCheckStep() bool {
	if s.Kind() == KindCode {
		return false
	}
	return containsFold(s.Name, "review") || containsFold(s.Name, "check") || containsFold(s.Agent, "review")
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// Definition is a workflow document: run-wide defaults plus an
// ordered list of top-level phases, each itself a StepDefinition.
type Definition struct {
	Defaults *Defaults         `yaml:"defaults,omitempty" json:"defaults,omitempty"`
	Phases   []*StepDefinition `yaml:"phases" json:"phases"`
}

// Task is the per-task source item. Implementations may stash
// arbitrary metadata; the engine only looks at ID/Dependencies.
type Task struct {
	ID           string         `json:"id" yaml:"id" mapstructure:"id"`
	Dependencies []string       `json:"dependencies" yaml:"dependencies" mapstructure:"dependencies"`
	Metadata     map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty" mapstructure:",remain"`
}

// AgentDefinition configures a single LLM dispatch: its system
// directive, tool allowlist, optional model override, and optional
// structured-output schema reference.
type AgentDefinition struct {
	SystemPrompt string   `yaml:"systemPrompt" json:"systemPrompt"`
	Tools        []string `yaml:"tools,omitempty" json:"tools,omitempty"`
	Model        string   `yaml:"model,omitempty" json:"model,omitempty"`
	OutputSchema string   `yaml:"outputSchema,omitempty" json:"outputSchema,omitempty"`
}

// LegacyAgentDefinition is the combined form used by legacy steps: the
// template body IS the prompt, there is no separate system prompt.
type LegacyAgentDefinition struct {
	Prompt       string   `yaml:"prompt" json:"prompt"`
	Tools        []string `yaml:"tools,omitempty" json:"tools,omitempty"`
	Model        string   `yaml:"model,omitempty" json:"model,omitempty"`
	OutputSchema string   `yaml:"outputSchema,omitempty" json:"outputSchema,omitempty"`
}

// PromptDefinition is the user-message template paired with a named
// agent in a composed step.
type PromptDefinition struct {
	Body string `yaml:"body" json:"body"`
}

// Status is the terminal status of a workflow run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusPaused    Status = "paused"
)

// AuditStatus is the lifecycle status recorded for a single step.
type AuditStatus string

const (
	AuditStarted   AuditStatus = "started"
	AuditCompleted AuditStatus = "completed"
	AuditFailed    AuditStatus = "failed"
	AuditSkipped   AuditStatus = "skipped"
)

// AuditEntry is one record in the append-only audit log.
type AuditEntry struct {
	Step      string         `json:"step"`
	Status    AuditStatus    `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Checkpoint is the serializable snapshot of a Context,
// exactly the shape persisted by the session/audit sink (spec §6.6)
// and rehydrated on resume.
type Checkpoint struct {
	CurrentPhase    string         `json:"currentPhase"`
	Variables       map[string]any `json:"variables"`
	CompletedPhases []string       `json:"completedPhases"`
	ChangedFiles    []string       `json:"changedFiles"`
	CurrentTaskID   string         `json:"currentTaskId,omitempty"`
	TasksCompleted  []string       `json:"tasksCompleted,omitempty"`
	TasksPending    []string       `json:"tasksPending,omitempty"`
}

// Result is the structured outcome returned by a run, per spec §6.7.
type Result struct {
	Status          Status         `json:"status"`
	Outputs         map[string]any `json:"outputs"`
	CompletedPhases []string       `json:"completedPhases"`
	ChangedFiles    []string       `json:"changedFiles"`
	PausedAtPhase   string         `json:"pausedAtPhase,omitempty"`
	BlockerDetails  string         `json:"blockerDetails,omitempty"`
	Error           string         `json:"error,omitempty"`
}
