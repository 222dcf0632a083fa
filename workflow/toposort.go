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

// visitState tracks a node's position in the depth-first toposort.
type visitState int

const (
	visitUnvisited visitState = iota
	visitInProgress
	visitDone
)

// TopoSort orders tasks so every dependency precedes its dependent
// (spec §4.6, invariant 8). A node revisited while still in progress
// means a cycle; the engine treats that as a Failure, not a panic,
// since a malformed task source is an author error reachable from
// workflow input, not a programming bug.
//
// Tasks not named as anyone's dependency still appear in the output,
// and independent tasks keep their input relative order.
func TopoSort(tasks []*Task) ([]*Task, error) {
	byID := make(map[string]*Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	state := make(map[string]visitState, len(tasks))
	var sorted []*Task

	var visit func(id string, path []string) error
	visit = func(id string, path []string) error {
		switch state[id] {
		case visitDone:
			return nil
		case visitInProgress:
			return &Failure{
				StepName: "per-task",
				Message:  fmt.Sprintf("circular task dependency detected: %v -> %s", path, id),
			}
		}

		task, ok := byID[id]
		if !ok {
			// A dependency naming a task not present in the source is
			// treated as having no further dependencies of its own.
			state[id] = visitDone
			return nil
		}

		state[id] = visitInProgress
		for _, dep := range task.Dependencies {
			if err := visit(dep, append(path, id)); err != nil {
				return err
			}
		}
		state[id] = visitDone
		sorted = append(sorted, task)
		return nil
	}

	for _, t := range tasks {
		if err := visit(t.ID, nil); err != nil {
			return nil, err
		}
	}

	return sorted, nil
}
