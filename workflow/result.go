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

import "context"

// completedResult assembles the terminal Result for a run that
// reached the end of its phase list.
func completedResult(wc *Context) *Result {
	return &Result{
		Status:          StatusCompleted,
		Outputs:         wc.TemplateView(),
		CompletedPhases: wc.CompletedPhases(),
		ChangedFiles:    wc.ChangedFiles(),
	}
}

// translateTerminal turns a signal raised out of the phase loop into
// a Result, per spec §4.8/§7. Paused writes a checkpoint before
// returning; Failure does not; any other error is uncaught and
// propagates to the caller unchanged.
func translateTerminal(ctx context.Context, wc *Context, rt *Runtime, err error) (*Result, error) {
	switch e := err.(type) {
	case *Paused:
		if saveErr := rt.Sink.SaveCheckpoint(ctx, wc.ToCheckpoint()); saveErr != nil {
			return nil, saveErr
		}
		return &Result{
			Status:          StatusPaused,
			Outputs:         wc.TemplateView(),
			CompletedPhases: wc.CompletedPhases(),
			ChangedFiles:    wc.ChangedFiles(),
			PausedAtPhase:   wc.CurrentPhase(),
			BlockerDetails:  e.BlockerDetails,
		}, nil
	case *Failure:
		return &Result{
			Status:          StatusFailed,
			Outputs:         wc.TemplateView(),
			CompletedPhases: wc.CompletedPhases(),
			ChangedFiles:    wc.ChangedFiles(),
			Error:           e.Error(),
		}, nil
	default:
		return nil, err
	}
}
