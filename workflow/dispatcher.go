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
	"iter"
)

// OutputFormat names the structured-output contract forwarded to the
// dispatcher, mirroring the `{ type: 'json_schema', schema }` shape in
// spec §6.5.
type OutputFormat struct {
	Type   string `json:"type"`
	Schema any    `json:"schema"`
}

// DispatchRequest carries every option an LLM dispatch call needs.
type DispatchRequest struct {
	Prompt         string
	SystemPrompt   string
	AllowedTools   []string
	OutputFormat   *OutputFormat
	Model          string
	WorkingDir     string
	PermissionMode string
	MCPServers     []string
	SettingSources []string
}

// Message is one element of the dispatcher's response stream. A
// terminal message has Type == "result"; Subtype "success" carries
// StructuredOutput, any other subtype carries Errors.
type Message struct {
	Type             string
	Subtype          string
	StructuredOutput any
	Errors           []string
}

// IsTerminal reports whether this message ends the dispatch.
func (m *Message) IsTerminal() bool {
	return m.Type == "result"
}

// IsSuccess reports whether a terminal message succeeded.
func (m *Message) IsSuccess() bool {
	return m.IsTerminal() && m.Subtype == "success"
}

// Dispatcher is the engine's sole boundary to the LLM Agent SDK,
// treated as a black-box callable per spec §1/§6.5. Dispatch returns
// a Go 1.23 iter.Seq2 iterator rather than a channel: it composes with
// a plain `for range` and lets a stub/test dispatcher yield a scripted
// sequence without goroutines, generalizing the teacher's own
// `Run(ctx) iter.Seq2[*Event, error]` agent-event streaming contract.
type Dispatcher interface {
	Dispatch(ctx context.Context, req DispatchRequest) iter.Seq2[*Message, error]
}

// consumeDispatch drains a dispatch stream and returns the terminal
// message, or an error if the stream ends without one or a non-
// success terminal message is observed.
func consumeDispatch(ctx context.Context, d Dispatcher, req DispatchRequest, stepName string) (*Message, error) {
	var terminal *Message
	for msg, err := range d.Dispatch(ctx, req) {
		if err != nil {
			return nil, err
		}
		if msg.IsTerminal() {
			terminal = msg
			break
		}
	}

	if terminal == nil {
		return nil, &AgentDispatchError{StepName: stepName, Subtype: "no_result", Errors: []string{"dispatcher stream ended without a terminal result"}}
	}
	if !terminal.IsSuccess() {
		return nil, &AgentDispatchError{StepName: stepName, Subtype: terminal.Subtype, Errors: terminal.Errors}
	}
	return terminal, nil
}
