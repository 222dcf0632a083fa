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
	"fmt"
	"strings"

	"github.com/flowforge/flowengine/pkg/expr"
)

// SetDefaults fills Defaults with a non-nil zero value so downstream
// code never has to nil-check it. Loader.Load (pkg/config) calls this
// automatically when it recognizes the method, mirroring the
// teacher's own Config.SetDefaults lifecycle step.
func (d *Definition) SetDefaults() {
	if d.Defaults == nil {
		d.Defaults = &Defaults{}
	}
}

// Validate statically checks the document load-time invariants from
// spec §3/§8: unique phase names, unique step names within each
// sibling list, and well-formed condition/failWhen expressions
// everywhere they appear. It never executes a single expression.
func (d *Definition) Validate() error {
	seenPhases := make(map[string]struct{}, len(d.Phases))
	for _, phase := range d.Phases {
		if phase.Name == "" {
			return fmt.Errorf("phase has no name")
		}
		if _, dup := seenPhases[phase.Name]; dup {
			return fmt.Errorf("duplicate phase name %q", phase.Name)
		}
		seenPhases[phase.Name] = struct{}{}

		if err := validateStepTree(phase); err != nil {
			return fmt.Errorf("phase %q: %w", phase.Name, err)
		}
	}
	return nil
}

func validateStepTree(step *StepDefinition) error {
	if err := validateExpressionField(step.Name, "failWhen", step.FailWhen); err != nil {
		return err
	}
	if err := validateExpressionField(step.Name, "condition", step.Condition); err != nil {
		return err
	}
	if step.Kind() == KindLoop && step.MaxRetries <= 0 {
		return fmt.Errorf("step %q: loop requires a positive maxRetries", step.Name)
	}

	seen := make(map[string]struct{}, len(step.Steps))
	for _, child := range step.Steps {
		if child.Name == "" {
			return fmt.Errorf("step %q: nested step has no name", step.Name)
		}
		if _, dup := seen[child.Name]; dup {
			return fmt.Errorf("step %q: duplicate nested step name %q", step.Name, child.Name)
		}
		seen[child.Name] = struct{}{}

		if err := validateStepTree(child); err != nil {
			return err
		}
	}
	return nil
}

func validateExpressionField(stepName, field, expression string) error {
	if expression == "" {
		return nil
	}
	if errs := expr.Validate(expression); len(errs) > 0 {
		return fmt.Errorf("step %q: invalid %s expression %q: %s", stepName, field, expression, strings.Join(errs, "; "))
	}
	return nil
}
