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

	"github.com/flowforge/flowengine/pkg/resolver"
	"github.com/mitchellh/mapstructure"
	"golang.org/x/sync/errgroup"
)

// executeComposedAgent resolves agent + prompt by name through the
// two-tier resolver, renders the prompt body, and dispatches one LLM
// call (spec §4.5 "Composed agent step").
func executeComposedAgent(ctx context.Context, wc *Context, step *StepDefinition, rt *Runtime) (map[string]any, error) {
	agentName := firstNonEmpty(step.Agent, rt.Defaults.Agent)
	if agentName == "" {
		return nil, fmt.Errorf("composed step %q: no agent named and no default agent configured", step.Name)
	}

	agentResolved, err := rt.Resolver.Resolve(resolver.KindAgents, agentName)
	if err != nil {
		return nil, err
	}
	promptResolved, err := rt.Resolver.Resolve(resolver.KindPrompts, step.Prompt)
	if err != nil {
		return nil, err
	}

	agentDef, err := rt.Loader.LoadAgent(agentResolved.Path)
	if err != nil {
		return nil, err
	}
	promptDef, err := rt.Loader.LoadPrompt(promptResolved.Path)
	if err != nil {
		return nil, err
	}

	templateVars := wc.TemplateView()
	for k, v := range resolveInput(step.Input, wc) {
		templateVars[k] = v
	}
	renderedBody := rt.Loader.RenderTemplate(promptDef.Body, templateVars)

	outputFormat, err := outputFormatFor(rt, agentDef.OutputSchema)
	if err != nil {
		return nil, err
	}

	req := DispatchRequest{
		Prompt:         renderedBody,
		SystemPrompt:   agentDef.SystemPrompt,
		AllowedTools:   agentDef.Tools,
		OutputFormat:   outputFormat,
		Model:          firstNonEmpty(step.Model, agentDef.Model, rt.Defaults.Model),
		WorkingDir:     rt.Options.WorkingDir,
		PermissionMode: rt.Options.PermissionMode,
		MCPServers:     rt.Options.MCPServers,
		SettingSources: rt.Options.SettingSources,
	}

	msg, err := consumeDispatch(ctx, rt.Dispatcher, req, step.Name)
	if err != nil {
		return nil, err
	}

	applyStepOutput(wc, step, msg.StructuredOutput)
	if err := checkFailWhen(step, wc); err != nil {
		return nil, err
	}

	return map[string]any{
		"agentPath":    agentResolved.Path,
		"agentSource":  string(agentResolved.Source),
		"promptPath":   promptResolved.Path,
		"promptSource": string(promptResolved.Source),
	}, nil
}

// executeLegacyAgent loads a single agent markdown named by a literal
// file path relative to the workflow base directory; that document's
// body IS the template, and no separate system prompt is sent.
func executeLegacyAgent(ctx context.Context, wc *Context, step *StepDefinition, rt *Runtime) (map[string]any, error) {
	if step.Agent == "" {
		return nil, fmt.Errorf("legacy agent step %q: no agent path given", step.Name)
	}

	agentPath, err := resolver.SafeJoin(rt.Options.WorkflowBaseDir, step.Agent)
	if err != nil {
		return nil, &PathTraversalError{Path: step.Agent, Root: rt.Options.WorkflowBaseDir}
	}

	agentDef, err := rt.Loader.LoadLegacyAgent(agentPath)
	if err != nil {
		return nil, err
	}

	templateVars := wc.TemplateView()
	for k, v := range resolveInput(step.Input, wc) {
		templateVars[k] = v
	}
	renderedBody := rt.Loader.RenderTemplate(agentDef.Prompt, templateVars)

	outputFormat, err := outputFormatFor(rt, agentDef.OutputSchema)
	if err != nil {
		return nil, err
	}

	req := DispatchRequest{
		Prompt:         renderedBody,
		AllowedTools:   agentDef.Tools,
		OutputFormat:   outputFormat,
		Model:          firstNonEmpty(step.Model, agentDef.Model, rt.Defaults.Model),
		WorkingDir:     rt.Options.WorkingDir,
		PermissionMode: rt.Options.PermissionMode,
		MCPServers:     rt.Options.MCPServers,
		SettingSources: rt.Options.SettingSources,
	}

	msg, err := consumeDispatch(ctx, rt.Dispatcher, req, step.Name)
	if err != nil {
		return nil, err
	}

	applyStepOutput(wc, step, msg.StructuredOutput)
	if err := checkFailWhen(step, wc); err != nil {
		return nil, err
	}

	return map[string]any{"agentPath": agentPath}, nil
}

// outputFormatFor projects a symbolic schema id to the JSON Schema
// forwarded as the dispatcher's structured-output contract. An empty
// schemaID means the step has no structured-output requirement.
func outputFormatFor(rt *Runtime, schemaID string) (*OutputFormat, error) {
	if schemaID == "" {
		return nil, nil
	}
	schema, err := rt.Loader.Schema(schemaID)
	if err != nil {
		return nil, err
	}
	return &OutputFormat{Type: "json_schema", Schema: schema}, nil
}

// applyStepOutput stores a step's structured result under its `output`
// name (if any) and unions any filesChanged paths it carries.
func applyStepOutput(wc *Context, step *StepDefinition, result any) {
	if step.Output != "" {
		wc.Set(step.Output, result)
	}
	wc.AddChangedFilesFromResult(result)
}

// executeCode looks up the named handler and invokes it with the
// step's resolved single-value input.
func executeCode(ctx context.Context, wc *Context, step *StepDefinition, rt *Runtime) (map[string]any, error) {
	handler, err := rt.Handlers.MustGet(step.Handler)
	if err != nil {
		return nil, err
	}

	input := resolveSingleInput(step.Input, wc)
	deps := Deps{
		Dispatcher:     rt.Dispatcher,
		WorkingDir:     rt.Options.WorkingDir,
		PermissionMode: rt.Options.PermissionMode,
		MCPServers:     rt.Options.MCPServers,
		SettingSources: rt.Options.SettingSources,
	}

	result, err := handler(ctx, wc, input, deps)
	if err != nil {
		return nil, err
	}

	applyStepOutput(wc, step, result)
	if err := checkFailWhen(step, wc); err != nil {
		return nil, err
	}
	return nil, nil
}

// executeParallel runs every nested step concurrently on the shared
// context; any signal raised by a sibling cancels the group (spec §5).
func executeParallel(ctx context.Context, wc *Context, step *StepDefinition, rt *Runtime) (map[string]any, error) {
	g, gctx := errgroup.WithContext(ctx)
	for _, child := range step.Steps {
		child := child
		g.Go(func() error {
			return executeStep(gctx, wc, child, rt)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return nil, nil
}

// executePerTask resolves `source` to a task list, topologically
// sorts it, and runs the nested steps once per task in a scoped child
// context, merging back after each task (spec §4.5 "Per-task step").
func executePerTask(ctx context.Context, wc *Context, step *StepDefinition, rt *Runtime) (map[string]any, error) {
	raw, ok := wc.Resolve(step.Source)
	if !ok {
		return nil, fmt.Errorf("per-task step %q: source %q did not resolve", step.Name, step.Source)
	}
	tasks, err := decodeTasks(raw)
	if err != nil {
		return nil, fmt.Errorf("per-task step %q: %w", step.Name, err)
	}

	sorted, err := TopoSort(tasks)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(sorted))
	for i, t := range sorted {
		ids[i] = t.ID
	}
	wc.SetTasksPending(ids)

	for i, task := range sorted {
		child := wc.WithTask(task, i, len(sorted))
		err := executeNestedSteps(ctx, child, step.Steps, rt)
		if err != nil {
			if paused, ok := err.(*Paused); ok {
				wc.MarkTaskCompleted(task.ID)
				wc.MergeTaskResults(child)
				return nil, paused
			}
			wc.MergeTaskResults(child)
			return nil, err
		}
		wc.MarkTaskCompleted(task.ID)
		wc.MergeTaskResults(child)
	}

	return nil, nil
}

// decodeTasks converts an arbitrary resolved value (typically
// []any of map[string]any, the shape YAML/JSON decoding produces)
// into typed Tasks, tolerating already-typed []*Task for programmatic
// callers and tests.
func decodeTasks(raw any) ([]*Task, error) {
	if tasks, ok := raw.([]*Task); ok {
		return tasks, nil
	}

	var tasks []*Task
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{Result: &tasks})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode task list: %w", err)
	}
	return tasks, nil
}

// executeLoop repeats the nested steps while condition holds, up to
// maxRetries attempts, dispatching the configured exhaustion policy
// when the condition is still true afterward (spec §4.5 "Loop step").
func executeLoop(ctx context.Context, wc *Context, step *StepDefinition, rt *Runtime) (map[string]any, error) {
	for attempt := 0; attempt < step.MaxRetries; attempt++ {
		if attempt > 0 && !wc.Evaluate(step.Condition) {
			break
		}
		if err := executeNestedSteps(ctx, wc, step.Steps, rt); err != nil {
			return nil, err
		}
		if !wc.Evaluate(step.Condition) {
			break
		}
	}

	if !wc.Evaluate(step.Condition) {
		return nil, nil
	}
	return handleLoopExhausted(step)
}

func handleLoopExhausted(step *StepDefinition) (map[string]any, error) {
	switch step.OnExhausted {
	case ExhaustedFail:
		return nil, &Failure{
			StepName:  step.Name,
			Condition: step.Condition,
			Message:   fmt.Sprintf("Loop exhausted %d retries", step.MaxRetries),
		}
	case ExhaustedWarn:
		return map[string]any{
			"warning": fmt.Sprintf("Loop exhausted %d retries. Condition %q still true.", step.MaxRetries, step.Condition),
		}, nil
	default: // ExhaustedEscalate, and the zero value.
		return nil, &Paused{
			StepName:       step.Name,
			BlockerDetails: fmt.Sprintf("Loop exhausted %d retries. Condition %q still true.", step.MaxRetries, step.Condition),
		}
	}
}
