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
	"fmt"
	"log/slog"

	"github.com/flowforge/flowengine/workflow"
)

// ResumeCmd rehydrates a run from its last checkpoint and continues
// from the named phase.
type ResumeCmd struct {
	commonFlags
	Workflow string `arg:"" help:"Path to the workflow definition YAML file."`
	Phase    string `arg:"" help:"Phase name to resume from."`
}

func (c *ResumeCmd) Run() error {
	ctx := context.Background()

	def, err := loadDefinition(ctx, c.Workflow)
	if err != nil {
		return err
	}

	rt, err := buildRuntime(c.commonFlags)
	if err != nil {
		return err
	}

	cp, err := buildSink(c.CheckpointDir).LoadCheckpoint(ctx)
	if err != nil {
		return fmt.Errorf("resume: load checkpoint: %w", err)
	}

	onPhaseComplete := func(ctx context.Context, phaseName string, wc *workflow.Context) error {
		slog.Info("phase completed", "phase", phaseName)
		return rt.Sink.SaveCheckpoint(ctx, wc.ToCheckpoint())
	}

	result, err := workflow.Resume(ctx, def, rt, cp, c.Phase, onPhaseComplete)
	if err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	return printResult(result)
}
