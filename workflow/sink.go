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
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Sink is the run's durability boundary: it persists checkpoints and
// appends audit entries. The interpreter and handlers depend only on
// this interface; pkg/checkpoint supplies the concrete JSONL/snapshot
// implementation (spec §6.6).
type Sink interface {
	SaveCheckpoint(ctx context.Context, cp *Checkpoint) error
	AppendAudit(ctx context.Context, entry AuditEntry) error
}

// NopSink discards everything. Useful for dry runs and tests that
// don't exercise durability.
type NopSink struct{}

func (NopSink) SaveCheckpoint(context.Context, *Checkpoint) error { return nil }
func (NopSink) AppendAudit(context.Context, AuditEntry) error     { return nil }

// appendIssueRecord appends input as a single JSON-Lines record to
// path, returning the record it wrote. An empty path is a no-op
// (handlers may be registered in configurations that never create
// issues).
func appendIssueRecord(path string, input any) (any, error) {
	record := map[string]any{
		"createdAt": time.Now().UTC().Format(time.RFC3339Nano),
		"input":     input,
	}
	if path == "" {
		return record, nil
	}

	line, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("create-issue handler: marshal record: %w", err)
	}
	line = append(line, '\n')

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create-issue handler: open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return nil, fmt.Errorf("create-issue handler: write %s: %w", path, err)
	}
	return record, nil
}
