// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package checkpoint is the on-disk durability boundary for a
// workflow run: a single JSON checkpoint snapshot, overwritten on
// every save, plus an append-only JSON-Lines audit trail (spec §6.6).
//
// A run directory holds exactly two files:
//
//	checkpoint.json   the latest Checkpoint snapshot
//	audit.jsonl        one AuditEntry per line, in execution order
//
// The snapshot is written atomically (temp file + rename) so a crash
// mid-write can never leave a torn checkpoint behind for a resumed run
// to read.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/flowforge/flowengine/workflow"
)

// writeSnapshot serializes cp to path atomically: it writes to a
// sibling temp file first and renames over the target, so a reader
// never observes a partially-written snapshot.
func writeSnapshot(path string, cp *workflow.Checkpoint) error {
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("checkpoint: marshal snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("checkpoint: create run dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".checkpoint-*.tmp")
	if err != nil {
		return fmt.Errorf("checkpoint: create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("checkpoint: write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("checkpoint: close temp snapshot: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("checkpoint: rename snapshot into place: %w", err)
	}
	return nil
}

// readSnapshot loads the checkpoint snapshot at path.
func readSnapshot(path string) (*workflow.Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: read snapshot %s: %w", path, err)
	}
	var cp workflow.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("checkpoint: parse snapshot %s: %w", path, err)
	}
	return &cp, nil
}
