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

package checkpoint

import (
	"context"
	"path/filepath"

	"github.com/flowforge/flowengine/workflow"
)

// Manager is the concrete workflow.Sink: it owns one run directory
// holding the latest checkpoint snapshot and the run's full audit
// trail. A Manager is safe for the concurrent audit appends a
// parallel step's siblings may perform. SaveCheckpoint is called on
// pause and from the save-checkpoint handler; it takes no lock.
type Manager struct {
	snapshotPath string
	audit        *Storage
}

// NewManager creates a Manager rooted at cfg.Dir. A nil cfg uses the
// package default directory.
func NewManager(cfg *Config) *Manager {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.SetDefaults()

	return &Manager{
		snapshotPath: filepath.Join(cfg.Dir, snapshotFileName),
		audit:        NewStorage(filepath.Join(cfg.Dir, auditFileName)),
	}
}

// SaveCheckpoint persists cp as the run directory's latest snapshot,
// satisfying the hard invariant that a checkpoint is durable before
// the engine returns a paused result (spec §7).
func (m *Manager) SaveCheckpoint(_ context.Context, cp *workflow.Checkpoint) error {
	return writeSnapshot(m.snapshotPath, cp)
}

// AppendAudit appends entry to the run's audit trail.
func (m *Manager) AppendAudit(_ context.Context, entry workflow.AuditEntry) error {
	return m.audit.Append(entry)
}

// LoadCheckpoint reads back the run directory's latest snapshot, the
// counterpart callers use to implement `resume` (spec §4.8).
func (m *Manager) LoadCheckpoint(_ context.Context) (*workflow.Checkpoint, error) {
	return readSnapshot(m.snapshotPath)
}

var _ workflow.Sink = (*Manager)(nil)
