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

// Command flowengine is the thin CLI entry point for the workflow
// engine: it loads a workflow definition and drives it to completion,
// pause, or failure, printing the structured Result as JSON.
//
// Usage:
//
//	flowengine run workflow.yaml --project-root .
//	flowengine resume workflow.yaml analyze --checkpoint-dir .flowengine/run
//	flowengine validate workflow.yaml
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/flowforge/flowengine/pkg/logger"
)

// CLI defines the command-line interface. It is intentionally thin:
// argument parsing beyond what a run needs to locate its inputs is a
// named non-goal, so the surface here only ever grows to name a new
// subcommand, never to re-specify engine semantics.
type CLI struct {
	Run      RunCmd      `cmd:"" help:"Run a workflow from the start."`
	Resume   ResumeCmd   `cmd:"" help:"Resume a workflow from a checkpoint."`
	Validate ValidateCmd `cmd:"" help:"Validate a workflow definition."`

	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFormat string `help:"Log format (simple, verbose)." default:"simple"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("flowengine"),
		kong.Description("Deterministic workflow engine for LLM-based implementation pipelines."),
		kong.UsageOnError(),
	)

	level, err := logger.ParseLevel(cli.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "flowengine: %v\n", err)
		os.Exit(1)
	}
	logger.Init(level, os.Stderr, cli.LogFormat)

	if err := ctx.Run(&cli); err != nil {
		fmt.Fprintf(os.Stderr, "flowengine: %v\n", err)
		os.Exit(1)
	}
}
