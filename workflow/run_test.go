package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRuntime(t *testing.T, agentNames, promptNames []string, dispatcher Dispatcher, sink *memSink, handlers *HandlerRegistry, opts RunOptions) *Runtime {
	t.Helper()
	return &Runtime{
		Resolver:   newTestResolver(t, agentNames, promptNames),
		Loader:     newFakeLoader(),
		Handlers:   handlers,
		Dispatcher: dispatcher,
		Sink:       sink,
		Options:    opts,
	}
}

// Scenario A - linear pipeline with structured outputs.
func TestRun_LinearPipelineWithStructuredOutputs(t *testing.T) {
	def := &Definition{Phases: []*StepDefinition{
		{Name: "analyze", Agent: "analyzer", Prompt: "analyze-prompt", Output: "analysis"},
		{Name: "plan", Type: "code", Handler: "create-issues", Input: "analysis", Output: "plan"},
	}}

	dispatcher := &scriptedDispatcher{results: []*Message{
		{Type: "result", Subtype: "success", StructuredOutput: map[string]any{
			"tasks": []any{map[string]any{"id": "T1", "dependencies": []any{}}},
		}},
	}}

	handlers := NewHandlerRegistry()
	require.NoError(t, handlers.Register("create-issues", func(ctx context.Context, wc *Context, input any, deps Deps) (any, error) {
		_ = input
		return map[string]any{"created": 1}, nil
	}))

	sink := &memSink{}
	rt := newRuntime(t, []string{"analyzer"}, []string{"analyze-prompt"}, dispatcher, sink, handlers, RunOptions{})

	result, err := Run(context.Background(), def, rt, "spec.md", nil)
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, []string{"analyze", "plan"}, result.CompletedPhases)

	analysis := result.Outputs["analysis"].(map[string]any)
	assert.Len(t, analysis["tasks"], 1)
	plan := result.Outputs["plan"].(map[string]any)
	assert.Equal(t, 1, plan["created"])

	assert.Equal(t, []AuditStatus{AuditStarted, AuditCompleted}, sink.statuses("analyze"))
	assert.Equal(t, []AuditStatus{AuditStarted, AuditCompleted}, sink.statuses("plan"))
}

// Scenario B - per-task with topological dependency.
func TestRun_PerTaskTopologicalOrder(t *testing.T) {
	var executionOrder []string

	def := &Definition{Phases: []*StepDefinition{
		{
			Name:   "execute",
			Type:   "per-task",
			Source: "analysis.tasks",
			Steps: []*StepDefinition{
				{Name: "implement", Type: "code", Handler: "implement", Output: "implementation"},
			},
		},
	}}

	handlers := NewHandlerRegistry()
	require.NoError(t, handlers.Register("implement", func(ctx context.Context, wc *Context, input any, deps Deps) (any, error) {
		task, _ := wc.Get("task")
		executionOrder = append(executionOrder, task.(*Task).ID)
		return map[string]any{
			"filesChanged": []any{map[string]any{"path": task.(*Task).ID + ".go"}},
		}, nil
	}))

	sink := &memSink{}
	rt := newRuntime(t, nil, nil, nil, sink, handlers, RunOptions{})

	wc := NewContext()
	wc.Set("analysis", map[string]any{"tasks": []any{
		map[string]any{"id": "B", "dependencies": []any{"A"}},
		map[string]any{"id": "A", "dependencies": []any{}},
	}})

	err := executeStep(context.Background(), wc, def.Phases[0], rt)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, executionOrder)
	assert.Equal(t, []string{"A.go", "B.go"}, wc.ChangedFiles())
}

// Scenario C - review/fix loop exhaustion escalates.
func TestRun_LoopExhaustionEscalatesToPaused(t *testing.T) {
	attempts := 0
	handlers := NewHandlerRegistry()
	require.NoError(t, handlers.Register("review", func(ctx context.Context, wc *Context, input any, deps Deps) (any, error) {
		attempts++
		return map[string]any{"hasActionableIssues": true}, nil
	}))

	def := &Definition{Phases: []*StepDefinition{
		{
			Name:        "fix",
			Type:        "loop",
			Condition:   "review.hasActionableIssues",
			MaxRetries:  2,
			OnExhausted: ExhaustedEscalate,
			Steps: []*StepDefinition{
				{Name: "review", Type: "code", Handler: "review", Output: "review"},
			},
		},
	}}

	sink := &memSink{}
	rt := newRuntime(t, nil, nil, nil, sink, handlers, RunOptions{})

	result, err := Run(context.Background(), def, rt, "spec.md", nil)
	require.NoError(t, err)

	assert.Equal(t, 2, attempts)
	assert.Equal(t, StatusPaused, result.Status)
	assert.Equal(t, "fix", result.PausedAtPhase)
	assert.Regexp(t, "Loop exhausted 2 retries", result.BlockerDetails)
	require.NotNil(t, sink.checkpoint)
}

// Scenario D - failWhen fast-fails a phase.
func TestRun_FailWhenFastFails(t *testing.T) {
	handlers := NewHandlerRegistry()
	require.NoError(t, handlers.Register("run-tests", func(ctx context.Context, wc *Context, input any, deps Deps) (any, error) {
		return map[string]any{"testSuite": map[string]any{"exitCode": 1}}, nil
	}))

	def := &Definition{Phases: []*StepDefinition{
		{
			Name:     "verify",
			Type:     "code",
			Handler:  "run-tests",
			Output:   "verification",
			FailWhen: "verification.testSuite.exitCode != 0",
		},
	}}

	sink := &memSink{}
	rt := newRuntime(t, nil, nil, nil, sink, handlers, RunOptions{})

	result, err := Run(context.Background(), def, rt, "spec.md", nil)
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, result.Status)
	assert.Contains(t, result.Error, "verify")
	assert.Contains(t, result.Error, "verification.testSuite.exitCode != 0")
	assert.NotContains(t, result.CompletedPhases, "verify")
}

// Scenario E - skip policy.
func TestRun_SkipPolicy(t *testing.T) {
	handlers := NewHandlerRegistry()
	require.NoError(t, handlers.Register("noop", func(ctx context.Context, wc *Context, input any, deps Deps) (any, error) {
		return nil, nil
	}))

	def := &Definition{Phases: []*StepDefinition{
		{Name: "plan", Type: "code", Handler: "noop"},
		{Name: "code-review", Agent: "reviewer", Prompt: "review-prompt"},
		{Name: "publish", Type: "code", Handler: "noop"},
	}}

	t.Run("skipChecks", func(t *testing.T) {
		sink := &memSink{}
		rt := newRuntime(t, []string{"reviewer"}, []string{"review-prompt"}, nil, sink, handlers, RunOptions{SkipChecks: true})

		result, err := Run(context.Background(), def, rt, "spec.md", nil)
		require.NoError(t, err)

		assert.Equal(t, StatusCompleted, result.Status)
		assert.Equal(t, []string{"plan", "publish"}, result.CompletedPhases)
		assert.Equal(t, []AuditStatus{AuditSkipped}, sink.statuses("code-review"))

		var reason any
		for _, e := range sink.entries {
			if e.Step == "code-review" {
				reason = e.Metadata["reason"]
			}
		}
		assert.Equal(t, "--skip-checks", reason)
	})

	t.Run("skipStepNames", func(t *testing.T) {
		sink := &memSink{}
		dispatcher := &scriptedDispatcher{results: []*Message{
			{Type: "result", Subtype: "success", StructuredOutput: map[string]any{"approved": true}},
		}}
		rt := newRuntime(t, []string{"reviewer"}, []string{"review-prompt"}, dispatcher, sink, handlers, RunOptions{SkipStepNames: []string{"plan"}})

		result, err := Run(context.Background(), def, rt, "spec.md", nil)
		require.NoError(t, err)

		assert.NotContains(t, result.CompletedPhases, "plan")
		var reason any
		for _, e := range sink.entries {
			if e.Step == "plan" {
				reason = e.Metadata["reason"]
			}
		}
		assert.Equal(t, "--skip-step=plan", reason)
	})
}

// Scenario F - resume from checkpoint.
func TestRun_ResumeFromCheckpoint(t *testing.T) {
	handlers := NewHandlerRegistry()
	require.NoError(t, handlers.Register("analyze", func(ctx context.Context, wc *Context, input any, deps Deps) (any, error) {
		return map[string]any{"summary": "ok"}, nil
	}))
	require.NoError(t, handlers.Register("raise-pause", func(ctx context.Context, wc *Context, input any, deps Deps) (any, error) {
		return nil, &Paused{StepName: "blocker", BlockerDetails: "manual checkpoint requested"}
	}))
	var planSawAnalysis any
	require.NoError(t, handlers.Register("plan", func(ctx context.Context, wc *Context, input any, deps Deps) (any, error) {
		planSawAnalysis, _ = wc.Get("analysis")
		return map[string]any{"created": 1}, nil
	}))

	def := &Definition{Phases: []*StepDefinition{
		{Name: "analyze", Type: "code", Handler: "analyze", Output: "analysis"},
		{Name: "blocker", Type: "code", Handler: "raise-pause"},
		{Name: "plan", Type: "code", Handler: "plan", Output: "plan"},
	}}

	sink := &memSink{}
	rt := newRuntime(t, nil, nil, nil, sink, handlers, RunOptions{})

	first, err := Run(context.Background(), def, rt, "spec.md", nil)
	require.NoError(t, err)
	assert.Equal(t, StatusPaused, first.Status)
	assert.Equal(t, []string{"analyze"}, first.CompletedPhases)
	require.NotNil(t, sink.checkpoint)
	assert.Equal(t, map[string]any{"summary": "ok"}, sink.checkpoint.Variables["analysis"])

	second, err := Resume(context.Background(), def, rt, sink.checkpoint, "plan", nil)
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, second.Status)
	assert.Equal(t, []string{"analyze", "plan"}, second.CompletedPhases)
	assert.Equal(t, map[string]any{"summary": "ok"}, planSawAnalysis)
	assert.Equal(t, map[string]any{"summary": "ok"}, second.Outputs["analysis"])
}

// DryRun must stop before any phase literally named "execute".
func TestRun_DryRunStopsBeforeExecutePhase(t *testing.T) {
	handlers := NewHandlerRegistry()
	require.NoError(t, handlers.Register("noop", func(ctx context.Context, wc *Context, input any, deps Deps) (any, error) {
		return nil, nil
	}))

	def := &Definition{Phases: []*StepDefinition{
		{Name: "plan", Type: "code", Handler: "noop"},
		{Name: "execute", Type: "code", Handler: "noop"},
	}}

	sink := &memSink{}
	rt := newRuntime(t, nil, nil, nil, sink, handlers, RunOptions{DryRun: true})

	result, err := Run(context.Background(), def, rt, "spec.md", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"plan"}, result.CompletedPhases)
	assert.Empty(t, sink.statuses("execute"))
}
