package workflow

import (
	"context"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/flowforge/flowengine/pkg/resolver"
)

// memSink is an in-memory Sink recorder, safe for the concurrent
// append a parallel step's siblings may perform.
type memSink struct {
	mu         sync.Mutex
	entries    []AuditEntry
	checkpoint *Checkpoint
}

func (s *memSink) SaveCheckpoint(_ context.Context, cp *Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoint = cp
	return nil
}

func (s *memSink) AppendAudit(_ context.Context, entry AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *memSink) statuses(step string) []AuditStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []AuditStatus
	for _, e := range s.entries {
		if e.Step == step {
			out = append(out, e.Status)
		}
	}
	return out
}

// scriptedDispatcher yields one canned terminal message per call, in
// call order. Tests that never dispatch don't need one.
type scriptedDispatcher struct {
	mu      sync.Mutex
	results []*Message
	idx     int
}

func (d *scriptedDispatcher) Dispatch(ctx context.Context, req DispatchRequest) iter.Seq2[*Message, error] {
	return func(yield func(*Message, error) bool) {
		d.mu.Lock()
		i := d.idx
		d.idx++
		d.mu.Unlock()

		if i >= len(d.results) {
			yield(nil, nil)
			return
		}
		yield(d.results[i], nil)
	}
}

// fakeLoader keys definitions by the resolved file's base name (sans
// extension), since the test fixtures below pick distinct names.
type fakeLoader struct {
	agents       map[string]*AgentDefinition
	legacyAgents map[string]*LegacyAgentDefinition
	prompts      map[string]*PromptDefinition
	schemas      map[string]any
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		agents:       map[string]*AgentDefinition{},
		legacyAgents: map[string]*LegacyAgentDefinition{},
		prompts:      map[string]*PromptDefinition{},
		schemas:      map[string]any{},
	}
}

func keyOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (l *fakeLoader) LoadAgent(path string) (*AgentDefinition, error) {
	if def, ok := l.agents[keyOf(path)]; ok {
		return def, nil
	}
	return &AgentDefinition{}, nil
}

func (l *fakeLoader) LoadLegacyAgent(path string) (*LegacyAgentDefinition, error) {
	if def, ok := l.legacyAgents[keyOf(path)]; ok {
		return def, nil
	}
	return &LegacyAgentDefinition{}, nil
}

func (l *fakeLoader) LoadPrompt(path string) (*PromptDefinition, error) {
	if def, ok := l.prompts[keyOf(path)]; ok {
		return def, nil
	}
	return &PromptDefinition{}, nil
}

func (l *fakeLoader) RenderTemplate(body string, vars map[string]any) string {
	return body
}

func (l *fakeLoader) Schema(schemaID string) (any, error) {
	return l.schemas[schemaID], nil
}

// newTestResolver creates a builtin-root resolver with empty
// placeholder files for every named agent/prompt, so resolver.Resolve
// succeeds; the fakeLoader ignores file contents entirely.
func newTestResolver(t *testing.T, agentNames, promptNames []string) *resolver.Resolver {
	t.Helper()
	builtin := t.TempDir()
	mustMkdirAll(t, filepath.Join(builtin, "agents"))
	mustMkdirAll(t, filepath.Join(builtin, "prompts"))

	for _, name := range agentNames {
		mustWriteFile(t, filepath.Join(builtin, "agents", name+".md"), "")
	}
	for _, name := range promptNames {
		mustWriteFile(t, filepath.Join(builtin, "prompts", name+".md"), "")
	}

	r, err := resolver.New(filepath.Join(t.TempDir(), "missing-project-root"), builtin)
	if err != nil {
		t.Fatalf("resolver.New: %v", err)
	}
	return r
}

func mustMkdirAll(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
