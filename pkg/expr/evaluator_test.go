package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	vars := map[string]any{
		"a": map[string]any{
			"b": map[string]any{
				"c": 42,
			},
		},
	}

	v, ok := Resolve("a.b.c", vars)
	require.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = Resolve("a.missing.c", vars)
	assert.False(t, ok)

	_, ok = Resolve("", vars)
	assert.False(t, ok)
}

func TestEvaluate_Literals(t *testing.T) {
	assert.True(t, Evaluate("true", nil))
	assert.False(t, Evaluate("false", nil))
}

func TestEvaluate_FalsyOnMissing(t *testing.T) {
	vars := map[string]any{}
	assert.False(t, Evaluate("a.b.c", vars))
	assert.True(t, Evaluate("!missing", vars))
}

func TestEvaluate_Precedence(t *testing.T) {
	assert.True(t, Evaluate("false && true || true", nil))
}

func TestEvaluate_Parentheses(t *testing.T) {
	vars := map[string]any{"a": false, "b": true, "c": false}
	assert.False(t, Evaluate("(a || b) && c", vars))

	vars2 := map[string]any{"a": false, "b": true, "c": true}
	assert.True(t, Evaluate("a || (b && c)", vars2))
}

func TestEvaluate_NumericComparisonCoercion(t *testing.T) {
	vars := map[string]any{"x": "1"}
	assert.True(t, Evaluate("x > 0", vars))
}

func TestEvaluate_EqualitySemantics(t *testing.T) {
	vars := map[string]any{"x": "1"}
	assert.True(t, Evaluate("x == 1", vars))
	assert.False(t, Evaluate("x === 1", vars))
}

func TestEvaluate_NeverThrows(t *testing.T) {
	assert.NotPanics(t, func() {
		Evaluate("((unbalanced", nil)
		Evaluate("", nil)
		Evaluate("!!!", nil)
	})
}

func TestEvaluate_FailWhenExample(t *testing.T) {
	vars := map[string]any{
		"verification": map[string]any{
			"testSuite": map[string]any{
				"exitCode": 1,
			},
		},
	}
	assert.True(t, Evaluate("verification.testSuite.exitCode != 0", vars))

	empty := map[string]any{}
	assert.False(t, Evaluate("verification.testSuite.exitCode != 0", empty))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{"empty", "", true},
		{"unbalanced open", "(a && b", true},
		{"unbalanced close", "a && b)", true},
		{"empty operand or", "a ||", true},
		{"empty operand and", "&& b", true},
		{"only negation", "!", true},
		{"valid simple", "a.b == 1", false},
		{"valid compound", "(a || b) && !c", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(tt.expr)
			if tt.wantErr {
				assert.NotEmpty(t, errs)
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}
