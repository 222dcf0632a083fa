package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext_SetGetResolve(t *testing.T) {
	c := NewContext()
	c.Set("analysis", map[string]any{"tasks": []any{"a", "b"}})

	v, ok := c.Resolve("analysis.tasks")
	require.True(t, ok)
	assert.Equal(t, []any{"a", "b"}, v)

	_, ok = c.Resolve("analysis.missing.deeper")
	assert.False(t, ok)
}

func TestContext_MarkPhaseCompletedIsIdempotentAndOrdered(t *testing.T) {
	c := NewContext()
	c.MarkPhaseCompleted("analyze")
	c.MarkPhaseCompleted("plan")
	c.MarkPhaseCompleted("analyze")

	assert.Equal(t, []string{"analyze", "plan"}, c.CompletedPhases())
}

func TestContext_AddChangedFilesFromResultDedupes(t *testing.T) {
	c := NewContext()
	result := map[string]any{
		"filesChanged": []any{
			map[string]any{"path": "a.go"},
			map[string]any{"path": "b.go"},
			map[string]any{"path": "a.go"},
		},
	}
	c.AddChangedFilesFromResult(result)
	assert.Equal(t, []string{"a.go", "b.go"}, c.ChangedFiles())
}

func TestContext_WithTaskAndMergeTaskResults_NeverOverwritesParent(t *testing.T) {
	parent := NewContext()
	parent.Set("owner", "alice")
	parent.MarkPhaseCompleted("setup")

	child := parent.WithTask(&Task{ID: "t1"}, 0, 1)
	child.Set("owner", "bob")   // must not clobber parent on merge
	child.Set("result", "done") // new key, should propagate
	child.AddChangedFile("child.go")
	child.MarkPhaseCompleted("code")

	parent.MergeTaskResults(child)

	assert.Equal(t, "alice", mustGet(t, parent, "owner"))
	assert.Equal(t, "done", mustGet(t, parent, "result"))
	assert.Equal(t, []string{"child.go"}, parent.ChangedFiles())
	assert.Equal(t, []string{"setup", "code"}, parent.CompletedPhases())
}

func mustGet(t *testing.T, c *Context, name string) any {
	t.Helper()
	v, ok := c.Get(name)
	require.True(t, ok)
	return v
}

func TestContext_WithTaskIsInvisibleToSiblings(t *testing.T) {
	parent := NewContext()
	parent.Set("shared", "value")

	childA := parent.WithTask(&Task{ID: "a"}, 0, 2)
	childA.Set("private", "a-only")

	childB := parent.WithTask(&Task{ID: "b"}, 1, 2)
	_, ok := childB.Get("private")
	assert.False(t, ok)
}

func TestContext_CheckpointRoundTrip(t *testing.T) {
	c := NewContext()
	c.Set("x", float64(1))
	c.SetCurrentPhase("plan")
	c.MarkPhaseCompleted("analyze")
	c.AddChangedFile("a.go")
	c.SetTasksPending([]string{"t1", "t2"})
	c.MarkTaskCompleted("t1")

	cp := c.ToCheckpoint()
	restored := FromCheckpoint(cp)

	assert.Equal(t, c.variables, restored.variables)
	assert.Equal(t, c.currentPhase, restored.currentPhase)
	assert.Equal(t, c.CompletedPhases(), restored.CompletedPhases())
	assert.Equal(t, c.ChangedFiles(), restored.ChangedFiles())
	assert.Equal(t, c.tasksCompleted, restored.tasksCompleted)
	assert.Equal(t, c.tasksPending, restored.tasksPending)
}

func TestContext_EvaluateNeverThrowsOnMissingPath(t *testing.T) {
	c := NewContext()
	assert.False(t, c.Evaluate("verification.testSuite.exitCode != 0"))
}

func TestResolveInput_StringDotPathInjectsUnderLeafName(t *testing.T) {
	c := NewContext()
	c.Set("analysis", map[string]any{"tasks": []any{"a"}})

	merged := resolveInput("analysis.tasks", c)
	assert.Equal(t, []any{"a"}, merged["tasks"])
}

func TestResolveInput_MapResolvesStringValuesPassesOthersThrough(t *testing.T) {
	c := NewContext()
	c.Set("analysis", map[string]any{"tasks": []any{"a"}})

	merged := resolveInput(map[string]any{
		"tasks":  "analysis.tasks",
		"limit":  5,
		"absent": "nope.nope",
	}, c)

	assert.Equal(t, []any{"a"}, merged["tasks"])
	assert.Equal(t, 5, merged["limit"])
	assert.Nil(t, merged["absent"])
}
