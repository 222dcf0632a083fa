package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idsOf(tasks []*Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestTopoSort_OrdersDependenciesFirst(t *testing.T) {
	tasks := []*Task{
		{ID: "c", Dependencies: []string{"b"}},
		{ID: "a", Dependencies: nil},
		{ID: "b", Dependencies: []string{"a"}},
	}

	sorted, err := TopoSort(tasks)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, idsOf(sorted))
}

func TestTopoSort_PreservesInputOrderAmongIndependents(t *testing.T) {
	tasks := []*Task{
		{ID: "x"},
		{ID: "y"},
		{ID: "z"},
	}

	sorted, err := TopoSort(tasks)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z"}, idsOf(sorted))
}

func TestTopoSort_DetectsCycle(t *testing.T) {
	tasks := []*Task{
		{ID: "a", Dependencies: []string{"b"}},
		{ID: "b", Dependencies: []string{"a"}},
	}

	_, err := TopoSort(tasks)
	require.Error(t, err)
	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Contains(t, failure.Message, "circular task dependency")
}

func TestTopoSort_ToleratesDanglingDependency(t *testing.T) {
	tasks := []*Task{
		{ID: "a", Dependencies: []string{"missing"}},
	}

	sorted, err := TopoSort(tasks)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, idsOf(sorted))
}
