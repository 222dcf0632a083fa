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

package expr

import (
	"fmt"
	"strings"
)

// Validate statically inspects a condition expression without
// executing it, returning every structural error found. It runs at
// workflow/agent load time over every `condition` and `failWhen`; a
// non-empty result means the run must not start.
func Validate(expression string) []string {
	var errs []string

	trimmed := strings.TrimSpace(expression)
	if trimmed == "" {
		return []string{"expression is empty"}
	}

	if err := checkParens(trimmed); err != "" {
		errs = append(errs, err)
	}

	parts, splitErr := splitTopLevel(trimmed, "||")
	if splitErr != nil {
		errs = append(errs, splitErr.Error())
		return errs
	}
	for _, orPart := range parts {
		andParts, err := splitTopLevel(orPart, "&&")
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		for _, operand := range andParts {
			errs = append(errs, validateOperand(operand)...)
		}
	}

	return errs
}

func checkParens(s string) string {
	depth := 0
	var quote byte
	for _, c := range s {
		if quote != 0 {
			if byte(c) == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = byte(c)
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return "unbalanced parentheses: unexpected ')'"
			}
		}
	}
	if depth > 0 {
		return "unbalanced parentheses: missing ')'"
	}
	return ""
}

func validateOperand(operand string) []string {
	var errs []string
	trimmed := strings.TrimSpace(operand)
	if trimmed == "" {
		errs = append(errs, "empty operand adjacent to '||' or '&&'")
		return errs
	}

	stripped := strings.TrimLeft(trimmed, "!")
	stripped = strings.TrimSpace(stripped)
	if stripped == "" {
		errs = append(errs, fmt.Sprintf("operand %q consists only of negation operators", trimmed))
	}

	return errs
}
