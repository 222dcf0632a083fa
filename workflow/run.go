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
	"strings"
)

// PhaseHook runs after a top-level phase completes, before the next
// one starts (spec §4.8). A non-nil error aborts the run immediately
// and propagates uncaught, the same as any other infrastructure error.
type PhaseHook func(ctx context.Context, phaseName string, wc *Context) error

// Run starts a fresh workflow run: it seeds a new context with
// `specPath` and executes every phase in order. In dry-run mode it
// stops before any phase literally named "execute".
func Run(ctx context.Context, def *Definition, rt *Runtime, specPath string, onPhaseComplete PhaseHook) (*Result, error) {
	wc := NewContext()
	wc.Set("specPath", specPath)
	return runPhases(ctx, def, rt, wc, 0, onPhaseComplete)
}

// Resume rehydrates a context from a checkpoint and continues from
// the phase named resumePhase; that phase itself is re-executed in
// full; the invariant that resume never re-executes an already
// completed phase is the caller's responsibility (resumePhase is
// ordinarily the phase immediately after the last completed one).
func Resume(ctx context.Context, def *Definition, rt *Runtime, cp *Checkpoint, resumePhase string, onPhaseComplete PhaseHook) (*Result, error) {
	idx := -1
	for i, p := range def.Phases {
		if p.Name == resumePhase {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, fmt.Errorf("resume: phase %q not found in workflow", resumePhase)
	}

	wc := FromCheckpoint(cp)
	return runPhases(ctx, def, rt, wc, idx, onPhaseComplete)
}

func runPhases(ctx context.Context, def *Definition, rt *Runtime, wc *Context, startIndex int, onPhaseComplete PhaseHook) (*Result, error) {
	if def.Defaults != nil {
		withDefaults := *rt
		withDefaults.Defaults = *def.Defaults
		rt = &withDefaults
	}

	for i := startIndex; i < len(def.Phases); i++ {
		phase := def.Phases[i]
		if rt.Options.DryRun && strings.EqualFold(phase.Name, "execute") {
			break
		}

		wc.SetCurrentPhase(phase.Name)
		skipped := computeSkipReason(phase, rt.Options) != ""
		if err := executeStep(ctx, wc, phase, rt); err != nil {
			return translateTerminal(ctx, wc, rt, err)
		}
		if skipped {
			continue
		}
		wc.MarkPhaseCompleted(phase.Name)

		if onPhaseComplete != nil {
			if err := onPhaseComplete(ctx, phase.Name, wc); err != nil {
				return nil, err
			}
		}
	}

	return completedResult(wc), nil
}
