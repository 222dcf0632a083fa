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

import "fmt"

// Paused is the controlled signal raised when a loop escalates or a
// handler surfaces an intentional blocker. The run catches it, writes
// a checkpoint, and returns status "paused".
type Paused struct {
	StepName       string
	BlockerDetails string
}

func (p *Paused) Error() string {
	return fmt.Sprintf("step %q paused: %s", p.StepName, p.BlockerDetails)
}

// Failure is the controlled signal raised by a true failWhen, a
// "fail"-policy loop exhaustion, or a circular task dependency. The
// run catches it and returns status "failed"; no checkpoint is
// required.
type Failure struct {
	StepName  string
	Condition string
	Message   string
}

func (f *Failure) Error() string {
	if f.Condition != "" {
		return fmt.Sprintf("step %q failed: %s (condition: %s)", f.StepName, f.Message, f.Condition)
	}
	return fmt.Sprintf("step %q failed: %s", f.StepName, f.Message)
}

// PathTraversalError is raised synchronously during step prep when a
// resolved path escapes its permitted root.
type PathTraversalError struct {
	Path string
	Root string
}

func (e *PathTraversalError) Error() string {
	return fmt.Sprintf("path %q escapes permitted root %q", e.Path, e.Root)
}

// UnknownHandlerError is raised when a code step names a handler that
// was never registered.
type UnknownHandlerError struct {
	Handler string
}

func (e *UnknownHandlerError) Error() string {
	return fmt.Sprintf("no handler registered for %q", e.Handler)
}

// AgentDispatchError wraps a non-success terminal message from the
// LLM dispatcher, aggregating whatever error strings it reported.
type AgentDispatchError struct {
	StepName string
	Subtype  string
	Errors   []string
}

func (e *AgentDispatchError) Error() string {
	return fmt.Sprintf("step %q: agent dispatch failed (%s): %v", e.StepName, e.Subtype, e.Errors)
}
