package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
}

func TestResolver_ProjectOverridesBuiltin(t *testing.T) {
	projectRoot := t.TempDir()
	builtinRoot := t.TempDir()

	writeFile(t, filepath.Join(builtinRoot, "agents", "analyze.md"), "builtin")
	writeFile(t, filepath.Join(projectRoot, "agents", "analyze.md"), "project")

	r, err := New(projectRoot, builtinRoot)
	require.NoError(t, err)

	resolved, err := r.Resolve(KindAgents, "analyze")
	require.NoError(t, err)
	require.Equal(t, SourceProject, resolved.Source)
}

func TestResolver_FallsBackToBuiltin(t *testing.T) {
	projectRoot := t.TempDir()
	builtinRoot := t.TempDir()

	writeFile(t, filepath.Join(builtinRoot, "workflows", "deploy.yaml"), "builtin")

	r, err := New(projectRoot, builtinRoot)
	require.NoError(t, err)

	resolved, err := r.Resolve(KindWorkflows, "deploy")
	require.NoError(t, err)
	require.Equal(t, SourceBuiltin, resolved.Source)
}

func TestResolver_MissingListsBothCandidates(t *testing.T) {
	projectRoot := t.TempDir()
	builtinRoot := t.TempDir()

	r, err := New(projectRoot, builtinRoot)
	require.NoError(t, err)

	_, err = r.Resolve(KindPrompts, "missing")
	require.Error(t, err)
	require.Contains(t, err.Error(), projectRoot)
	require.Contains(t, err.Error(), builtinRoot)
}

func TestResolver_RejectsTraversal(t *testing.T) {
	projectRoot := t.TempDir()
	builtinRoot := t.TempDir()

	secretDir := t.TempDir()
	writeFile(t, filepath.Join(secretDir, "secret.md"), "top secret")

	// Symlink an agent name straight at a file outside both roots.
	linkPath := filepath.Join(projectRoot, "agents", "escape.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(linkPath), 0755))
	require.NoError(t, os.Symlink(filepath.Join(secretDir, "secret.md"), linkPath))

	r, err := New(projectRoot, builtinRoot)
	require.NoError(t, err)

	_, err = r.Resolve(KindAgents, "escape")
	require.Error(t, err)
}
