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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/flowforge/flowengine/pkg/checkpoint"
	"github.com/flowforge/flowengine/pkg/config"
	"github.com/flowforge/flowengine/pkg/config/provider"
	"github.com/flowforge/flowengine/pkg/resolver"
	"github.com/flowforge/flowengine/workflow"
)

// commonFlags are the run-wide knobs shared by run and resume: where
// definitions live, where the run's durability state is kept, and the
// dispatch sandbox passed through to every agent step.
type commonFlags struct {
	ProjectRoot    string   `help:"Project root holding .wrangler/ overrides." default:"."`
	BuiltinRoot    string   `help:"Builtin definitions root." default:"/usr/share/flowengine/definitions"`
	CheckpointDir  string   `help:"Directory for the run's checkpoint and audit log." default:".flowengine/run"`
	WorkingDir     string   `help:"Working directory handed to agent dispatch." default:"."`
	PermissionMode string   `help:"Permission mode forwarded to agent dispatch." default:"default"`
	MCPServers     []string `help:"MCP server names available to agent dispatch."`
	SettingSources []string `help:"Setting sources forwarded to agent dispatch."`
	SkipStep       []string `help:"Step name to skip (repeatable)."`
	SkipChecks     bool     `help:"Skip every step flagged as a check step."`
	DryRun         bool     `help:"Stop before the phase named \"execute\"."`
}

// buildRuntime assembles a workflow.Runtime from the CLI's common
// flags: the two-tier resolver, the frontmatter-backed definition
// loader, the built-in handler registry, a disk-backed checkpoint
// sink, and the stub dispatcher (the LLM Agent SDK integration is out
// of scope here; see dispatcher.go).
func buildRuntime(f commonFlags) (*workflow.Runtime, error) {
	res, err := resolver.New(filepath.Join(f.ProjectRoot, ".wrangler"), f.BuiltinRoot)
	if err != nil {
		return nil, fmt.Errorf("build resolver: %w", err)
	}

	loader := config.NewDefinitionLoader(provider.TypeFile, nil)

	sink := buildSink(f.CheckpointDir)

	issueLogPath := filepath.Join(f.CheckpointDir, "issues.jsonl")
	handlers, err := workflow.DefaultRegistry(sink, issueLogPath)
	if err != nil {
		return nil, fmt.Errorf("build handler registry: %w", err)
	}

	return &workflow.Runtime{
		Resolver:   res,
		Loader:     loader,
		Handlers:   handlers,
		Dispatcher: &stubDispatcher{},
		Sink:       sink,
		Options: workflow.RunOptions{
			WorkflowBaseDir: f.ProjectRoot,
			WorkingDir:      f.WorkingDir,
			PermissionMode:  f.PermissionMode,
			MCPServers:      f.MCPServers,
			SettingSources:  f.SettingSources,
			SkipStepNames:   f.SkipStep,
			SkipChecks:      f.SkipChecks,
			DryRun:          f.DryRun,
		},
	}, nil
}

// buildSink creates the disk-backed checkpoint.Manager rooted at dir.
// Returned as the concrete type (not workflow.Sink) so callers that
// need LoadCheckpoint - resume, in particular - don't have to type-
// assert their way back to it.
func buildSink(dir string) *checkpoint.Manager {
	return checkpoint.NewManager(&checkpoint.Config{Dir: dir})
}

// loadDefinition reads and validates a top-level workflow document
// off the local filesystem.
func loadDefinition(ctx context.Context, path string) (*workflow.Definition, error) {
	p, err := provider.NewFileProvider(path)
	if err != nil {
		return nil, fmt.Errorf("open workflow %s: %w", path, err)
	}
	defer p.Close()

	loader := config.NewLoader[workflow.Definition](p)
	def, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load workflow %s: %w", path, err)
	}
	return def, nil
}

func printResult(result *workflow.Result) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
