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
	"path"
	"strings"

	"github.com/flowforge/flowengine/pkg/expr"
)

// Context is the per-run state container: named outputs, the
// completed-phases list, the current phase/task, the accumulated
// changed-files set, and checkpoint serialize/deserialize. It is a
// single logical owner passed by reference to step executors; child
// contexts spawned for per-task iteration are owned by the interpreter
// frame that created them until it explicitly merges them back.
//
// A Context is NOT safe for concurrent mutation of the same key by
// two goroutines; within a parallel step, nested siblings share one
// Context but must not write the same output key (spec §5).
type Context struct {
	variables       map[string]any
	completedPhases []string
	currentPhase    string
	currentTaskID   string
	changedFiles    []string
	changedFilesSet map[string]struct{}

	tasksCompleted []string
	tasksPending   []string
}

// NewContext creates an empty run context.
func NewContext() *Context {
	return &Context{
		variables:       make(map[string]any),
		changedFilesSet: make(map[string]struct{}),
	}
}

// Set stores a variable under name.
func (c *Context) Set(name string, value any) {
	c.variables[name] = value
}

// Get retrieves a top-level variable by name.
func (c *Context) Get(name string) (any, bool) {
	v, ok := c.variables[name]
	return v, ok
}

// Resolve performs dot-path lookup against the variable map.
func (c *Context) Resolve(dotPath string) (any, bool) {
	return expr.Resolve(dotPath, c.variables)
}

// Evaluate evaluates a condition with falsy-on-missing semantics; it
// never returns an error, matching spec invariant 6.
func (c *Context) Evaluate(condition string) bool {
	return expr.Evaluate(condition, c.variables)
}

// TemplateView returns a shallow copy of the variable map, suitable
// for template rendering and as the base for input-wiring merges.
func (c *Context) TemplateView() map[string]any {
	view := make(map[string]any, len(c.variables))
	for k, v := range c.variables {
		view[k] = v
	}
	return view
}

// SetCurrentPhase records the phase currently executing.
func (c *Context) SetCurrentPhase(name string) {
	c.currentPhase = name
}

// CurrentPhase returns the phase currently executing.
func (c *Context) CurrentPhase() string {
	return c.currentPhase
}

// CurrentTaskID returns the id of the task currently executing, or
// empty if this context is not a per-task child.
func (c *Context) CurrentTaskID() string {
	return c.currentTaskID
}

// MarkPhaseCompleted appends name to the completed-phases list,
// idempotently and preserving insertion order.
func (c *Context) MarkPhaseCompleted(name string) {
	for _, p := range c.completedPhases {
		if p == name {
			return
		}
	}
	c.completedPhases = append(c.completedPhases, name)
}

// CompletedPhases returns the ordered, duplicate-free completed-phases list.
func (c *Context) CompletedPhases() []string {
	out := make([]string, len(c.completedPhases))
	copy(out, c.completedPhases)
	return out
}

// AddChangedFile adds a single path to the changed-files set.
func (c *Context) AddChangedFile(filePath string) {
	if _, exists := c.changedFilesSet[filePath]; exists {
		return
	}
	c.changedFilesSet[filePath] = struct{}{}
	c.changedFiles = append(c.changedFiles, filePath)
}

// AddChangedFilesFromResult inspects a step result for the shape
// `{ filesChanged: [{path}] }` and unions every path found into the
// changed-files set.
func (c *Context) AddChangedFilesFromResult(result any) {
	m, ok := result.(map[string]any)
	if !ok {
		return
	}
	filesChanged, ok := m["filesChanged"].([]any)
	if !ok {
		return
	}
	for _, entry := range filesChanged {
		if fm, ok := entry.(map[string]any); ok {
			if p, ok := fm["path"].(string); ok && p != "" {
				c.AddChangedFile(p)
			}
		}
	}
}

// ChangedFiles returns the insertion-ordered, duplicate-free changed-files set.
func (c *Context) ChangedFiles() []string {
	out := make([]string, len(c.changedFiles))
	copy(out, c.changedFiles)
	return out
}

// ChangedFilesMatch glob-matches the accumulated changed-files set
// against globs: each path is matched whole with stdlib path.Match, so
// `*` does not cross a `/`. Negation is out of scope (spec §4.2/§9).
func (c *Context) ChangedFilesMatch(globs []string) bool {
	for _, g := range globs {
		for _, f := range c.changedFiles {
			if ok, _ := path.Match(g, f); ok {
				return true
			}
		}
	}
	return false
}

// WithTask spawns a fresh child context for per-task iteration: parent
// variables are shallow-copied, `task` is set, completedPhases /
// changedFiles / currentPhase are copied, and currentTaskId is set to
// task.ID. index/total are informational and exposed in the template
// view for authors who want e.g. "task 2 of 5" messaging.
func (c *Context) WithTask(task *Task, index, total int) *Context {
	child := NewContext()
	for k, v := range c.variables {
		child.variables[k] = v
	}
	child.variables["task"] = task
	child.variables["taskIndex"] = index
	child.variables["taskTotal"] = total

	child.completedPhases = append(child.completedPhases, c.completedPhases...)
	for _, f := range c.changedFiles {
		child.AddChangedFile(f)
	}
	child.currentPhase = c.currentPhase
	child.currentTaskID = task.ID

	return child
}

// MergeTaskResults merges a per-task child context back into the
// parent without clobbering: only variable keys the parent lacks are
// copied in; changedFiles and completedPhases are set-unioned
// regardless (spec invariant 5, §4.2).
func (c *Context) MergeTaskResults(child *Context) {
	for k, v := range child.variables {
		if k == "task" || k == "taskIndex" || k == "taskTotal" {
			continue
		}
		if _, exists := c.variables[k]; !exists {
			c.variables[k] = v
		}
	}

	for _, f := range child.changedFiles {
		c.AddChangedFile(f)
	}

	for _, p := range child.completedPhases {
		c.MarkPhaseCompleted(p)
	}
}

// MarkTaskCompleted records task.id as completed and removes it from
// the pending list, used by the per-task step to keep the checkpoint
// honest when a nested step pauses mid-iteration (spec §4.5).
func (c *Context) MarkTaskCompleted(taskID string) {
	found := false
	for _, id := range c.tasksCompleted {
		if id == taskID {
			found = true
			break
		}
	}
	if !found {
		c.tasksCompleted = append(c.tasksCompleted, taskID)
	}

	pending := make([]string, 0, len(c.tasksPending))
	for _, id := range c.tasksPending {
		if id != taskID {
			pending = append(pending, id)
		}
	}
	c.tasksPending = pending
}

// SetTasksPending seeds the pending-task list at the start of a
// per-task step.
func (c *Context) SetTasksPending(ids []string) {
	c.tasksPending = append([]string(nil), ids...)
}

// ToCheckpoint serializes variables, completedPhases, currentPhase/
// currentTaskId, and changedFiles into the durable snapshot shape.
func (c *Context) ToCheckpoint() *Checkpoint {
	vars := make(map[string]any, len(c.variables))
	for k, v := range c.variables {
		vars[k] = v
	}
	return &Checkpoint{
		CurrentPhase:    c.currentPhase,
		Variables:       vars,
		CompletedPhases: append([]string(nil), c.completedPhases...),
		ChangedFiles:    append([]string(nil), c.changedFiles...),
		CurrentTaskID:   c.currentTaskID,
		TasksCompleted:  append([]string(nil), c.tasksCompleted...),
		TasksPending:    append([]string(nil), c.tasksPending...),
	}
}

// FromCheckpoint rehydrates a context from a serialized snapshot. The
// round-trip law (spec §8) requires fromCheckpoint(toCheckpoint(ctx))
// to be equivalent on every field this type carries.
func FromCheckpoint(cp *Checkpoint) *Context {
	c := NewContext()
	if cp == nil {
		return c
	}
	for k, v := range cp.Variables {
		c.variables[k] = v
	}
	c.currentPhase = cp.CurrentPhase
	c.currentTaskID = cp.CurrentTaskID
	for _, p := range cp.CompletedPhases {
		c.MarkPhaseCompleted(p)
	}
	for _, f := range cp.ChangedFiles {
		c.AddChangedFile(f)
	}
	c.tasksCompleted = append([]string(nil), cp.TasksCompleted...)
	c.tasksPending = append([]string(nil), cp.TasksPending...)
	return c
}

// resolveInput implements the shared input-wiring rule (spec §4.5):
// a string input is a dot-path injected under its leaf segment name;
// a map input resolves each string value as a dot-path (passing other
// types through) and is merged wholesale.
func resolveInput(input any, c *Context) map[string]any {
	merged := make(map[string]any)
	switch v := input.(type) {
	case nil:
		// no input wiring
	case string:
		if val, ok := c.Resolve(v); ok {
			leaf := v
			if idx := strings.LastIndex(v, "."); idx >= 0 {
				leaf = v[idx+1:]
			}
			merged[leaf] = val
		}
	case map[string]any:
		for k, raw := range v {
			if s, ok := raw.(string); ok {
				if val, ok := c.Resolve(s); ok {
					merged[k] = val
					continue
				}
				merged[k] = nil
				continue
			}
			merged[k] = raw
		}
	}
	return merged
}

// resolveSingleInput is the code-step variant: input resolves to a
// single value, not a merged map (spec §4.5 "Code step").
func resolveSingleInput(input any, c *Context) any {
	switch v := input.(type) {
	case nil:
		return nil
	case string:
		val, _ := c.Resolve(v)
		return val
	default:
		return v
	}
}
