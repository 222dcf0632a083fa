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
)

// ValidateCmd parses and validates a workflow definition without
// executing it: structural validation (unique phase and nested step
// names, expression syntax, positive loop maxRetries) happens as a
// side effect of decode, via
// Definition.Validate (spec §4.2).
type ValidateCmd struct {
	Workflow string `arg:"" help:"Path to the workflow definition YAML file."`
}

func (c *ValidateCmd) Run() error {
	if _, err := loadDefinition(context.Background(), c.Workflow); err != nil {
		return err
	}
	fmt.Printf("%s: valid\n", c.Workflow)
	return nil
}
