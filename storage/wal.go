// Copyright 2025 Blink Labs Software
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

package storage

import (
	"github.com/txpipe/dolos/chainpoint"
	"github.com/txpipe/dolos/entity"
)

// LogEntry is one write-ahead log record: everything needed to undo the
// state mutation a single block produced. ConsumedInputs carries the
// exact bodies evicted from the UTxO set so rollback can re-insert them
// without consulting archive; Deltas carry their own undo information per
// the entity.Delta contract.
type LogEntry struct {
	Deltas         []entity.Delta
	ConsumedInputs map[UtxoRef]UtxoBody
	ProducedRefs   []UtxoRef
	Tags           SlotTags
}

// WalStore is a durable, sequential log of (point, LogEntry) pairs. It is
// the mechanism that makes ingestion crash-safe and rollback-safe; see
// package wal for the rollback algorithm built on top of it.
type WalStore interface {
	StartWriter() (WalWriter, error)

	Tip() (chainpoint.Point, bool, error)
	// IterFrom iterates entries with point.Slot >= from.Slot in ascending
	// order, calling fn for each until it returns false or an error.
	IterFrom(from chainpoint.Point, fn func(chainpoint.Point, LogEntry) (bool, error)) error
	// FindIntersection returns the highest-slot point among candidates
	// that is present in the log, or false if none intersect.
	FindIntersection(candidates []chainpoint.Point) (chainpoint.Point, bool, error)

	Close() error
}

// WalWriter accumulates WAL mutations for one transaction.
type WalWriter interface {
	Append(point chainpoint.Point, entry LogEntry) error
	// ResetToOrigin discards every entry, as if the log had never been
	// written to.
	ResetToOrigin() error
	// TruncateAfter removes every entry whose point is strictly after p,
	// rolling the WAL tip back to p.
	TruncateAfter(p chainpoint.Point) error
	// PruneBefore removes every entry whose point is strictly before p.
	// Used for housekeeping, independent of rollback.
	PruneBefore(p chainpoint.Point) error

	Commit() error
	Rollback() error
}
