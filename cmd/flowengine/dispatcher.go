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
	"iter"

	"github.com/flowforge/flowengine/workflow"
)

// stubDispatcher is a placeholder workflow.Dispatcher: wiring an
// actual LLM Agent SDK is explicitly out of scope for this engine
// (spec §1 treats the dispatcher as a black box supplied by the
// embedder), so the CLI ships one that reports every agent step as a
// hard failure rather than silently fabricating output.
type stubDispatcher struct{}

func (s *stubDispatcher) Dispatch(ctx context.Context, req workflow.DispatchRequest) iter.Seq2[*workflow.Message, error] {
	return func(yield func(*workflow.Message, error) bool) {
		yield(&workflow.Message{
			Type:    "result",
			Subtype: "error",
			Errors:  []string{"no LLM dispatcher configured: the flowengine CLI only drives the interpreter, an embedder must supply a workflow.Dispatcher"},
		}, nil)
	}
}

var _ workflow.Dispatcher = (*stubDispatcher)(nil)
