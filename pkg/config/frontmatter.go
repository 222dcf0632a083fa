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

package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// frontmatterFence is the delimiter bounding the leading YAML block in
// an agent/prompt markdown document (spec §6.2/§6.4).
const frontmatterFence = "---"

// splitFrontmatter splits a markdown document into its decoded leading
// YAML frontmatter block and the remaining body. A document with no
// frontmatter fence is treated as body-only, with an empty frontmatter
// map - the shape spec §6.3 plain prompt documents take.
func splitFrontmatter(data []byte) (map[string]any, string, error) {
	text := string(data)
	trimmed := strings.TrimLeft(text, "\n")
	if !strings.HasPrefix(trimmed, frontmatterFence) {
		return map[string]any{}, text, nil
	}

	rest := trimmed[len(frontmatterFence):]
	rest = strings.TrimPrefix(rest, "\n")

	end := strings.Index(rest, "\n"+frontmatterFence)
	if end == -1 {
		return nil, "", fmt.Errorf("frontmatter: unterminated %q fence", frontmatterFence)
	}

	block := rest[:end]
	body := rest[end+len("\n"+frontmatterFence):]
	body = strings.TrimPrefix(body, "\n")

	meta := map[string]any{}
	if strings.TrimSpace(block) != "" {
		if err := yaml.Unmarshal([]byte(block), &meta); err != nil {
			return nil, "", fmt.Errorf("frontmatter: invalid YAML block: %w", err)
		}
	}

	return meta, body, nil
}
