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
	"time"

	"github.com/flowforge/flowengine/pkg/resolver"
)

// RunOptions carries the run-wide, CLI-supplied knobs the interpreter
// consults while executing steps: skip policy, dispatcher plumbing,
// and the workflow's own base directory (the permitted root for
// legacy agent file paths, spec §3 invariants).
type RunOptions struct {
	WorkflowBaseDir string
	WorkingDir      string
	PermissionMode  string
	MCPServers      []string
	SettingSources  []string
	SkipStepNames   []string
	SkipChecks      bool
	DryRun          bool
}

func (o RunOptions) skips(name string) bool {
	for _, n := range o.SkipStepNames {
		if n == name {
			return true
		}
	}
	return false
}

// Runtime bundles every external dependency the interpreter needs to
// execute a step tree: the two-tier resolver, the definition loader,
// the handler registry, the LLM dispatcher, and the durability sink.
// It is built once per run and threaded down through every recursive
// call, never mutated.
type Runtime struct {
	Resolver   *resolver.Resolver
	Loader     DefinitionLoader
	Handlers   *HandlerRegistry
	Dispatcher Dispatcher
	Sink       Sink
	Defaults   Defaults
	Options    RunOptions
}

// computeSkipReason implements the priority-ordered skip policy
// (spec §4.5). An empty string means the step runs.
func computeSkipReason(step *StepDefinition, opts RunOptions) string {
	if !step.IsEnabled() {
		return "disabled in workflow definition"
	}
	if opts.skips(step.Name) {
		return "--skip-step=" + step.Name
	}
	if opts.SkipChecks && step.IsCheckStep() {
		return "--skip-checks"
	}
	return ""
}

// executeStep is the universal step wrapper (spec §4.5 entry
// sequence): compute skip reason, emit started, dispatch by kind,
// emit exactly one terminal audit entry, and propagate any signal.
func executeStep(ctx context.Context, wc *Context, step *StepDefinition, rt *Runtime) error {
	if reason := computeSkipReason(step, rt.Options); reason != "" {
		return rt.Sink.AppendAudit(ctx, AuditEntry{
			Step:      step.Name,
			Status:    AuditSkipped,
			Timestamp: time.Now(),
			Metadata:  map[string]any{"reason": reason},
		})
	}

	if err := rt.Sink.AppendAudit(ctx, AuditEntry{Step: step.Name, Status: AuditStarted, Timestamp: time.Now()}); err != nil {
		return err
	}

	meta, err := dispatchStep(ctx, wc, step, rt)
	if err != nil {
		auditErr := rt.Sink.AppendAudit(ctx, AuditEntry{
			Step:      step.Name,
			Status:    AuditFailed,
			Timestamp: time.Now(),
			Metadata:  map[string]any{"error": err.Error()},
		})
		if auditErr != nil {
			return auditErr
		}
		return err
	}

	return rt.Sink.AppendAudit(ctx, AuditEntry{Step: step.Name, Status: AuditCompleted, Timestamp: time.Now(), Metadata: meta})
}

// executeNestedSteps runs a sibling list in declaration order,
// stopping at the first error (used by plain composites, loop bodies,
// and per-task bodies - everything except parallel groups).
func executeNestedSteps(ctx context.Context, wc *Context, steps []*StepDefinition, rt *Runtime) error {
	for _, s := range steps {
		if err := executeStep(ctx, wc, s, rt); err != nil {
			return err
		}
	}
	return nil
}

// dispatchStep routes to the per-kind executor and returns the audit
// metadata to attach to the completed entry.
func dispatchStep(ctx context.Context, wc *Context, step *StepDefinition, rt *Runtime) (map[string]any, error) {
	switch step.Kind() {
	case KindComposedAgent:
		return executeComposedAgent(ctx, wc, step, rt)
	case KindLegacyAgent:
		return executeLegacyAgent(ctx, wc, step, rt)
	case KindCode:
		return executeCode(ctx, wc, step, rt)
	case KindParallel:
		return executeParallel(ctx, wc, step, rt)
	case KindPerTask:
		return executePerTask(ctx, wc, step, rt)
	case KindLoop:
		return executeLoop(ctx, wc, step, rt)
	default:
		return nil, &UnknownHandlerError{Handler: string(step.Kind())}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func checkFailWhen(step *StepDefinition, wc *Context) error {
	if step.FailWhen == "" {
		return nil
	}
	if wc.Evaluate(step.FailWhen) {
		return &Failure{StepName: step.Name, Condition: step.FailWhen, Message: "failWhen condition evaluated true"}
	}
	return nil
}
