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

// Package wal implements the write-ahead log protocol: durable append on
// roll-forward, and the rollback algorithm that replays recorded deltas
// backward to restore state/archive/index to a prior ChainPoint without
// re-deriving anything from the chain.
package wal

import (
	"errors"
	"fmt"

	"github.com/txpipe/dolos/chainpoint"
	"github.com/txpipe/dolos/entity"
	"github.com/txpipe/dolos/storage"
)

// ErrNoIntersection is returned by RollbackTo when the target point has no
// corresponding WAL entry and isn't the origin.
var ErrNoIntersection = errors.New("wal: target point not found in log")

// Protocol ties the four stores together for the append/rollback
// operations the core lifecycle needs. It does not drive forward commits
// itself -- commit_wal/commit_state/commit_archive/commit_indexes are
// sequenced by the workunit executor, which holds the writers open across
// a whole work unit. Protocol exists for the one operation that must
// cross all four stores atomically in practice: rollback.
type Protocol struct {
	Wal     storage.WalStore
	State   storage.StateStore
	Archive storage.ArchiveStore
	Index   storage.IndexStore
}

func New(stores *storage.Stores) *Protocol {
	return &Protocol{
		Wal:     stores.Wal,
		State:   stores.State,
		Archive: stores.Archive,
		Index:   stores.Index,
	}
}

// RollbackTo restores state, archive cursor, and indexes to target,
// following spec §4.3's five steps: read entries from tip back to (but
// excluding) target, undo each entry's deltas and UTxO effects in reverse
// order, apply the inverse mutations in one writer transaction per store,
// truncate the WAL after target, and leave archive blocks in place
// (only the archive cursor moves).
func (p *Protocol) RollbackTo(target chainpoint.Point) error {
	entries, err := p.collectSince(target)
	if err != nil {
		return err
	}

	stateWriter, err := p.State.StartWriter()
	if err != nil {
		return err
	}
	defer stateWriter.Rollback()

	indexWriter, err := p.Index.StartWriter()
	if err != nil {
		return err
	}
	defer indexWriter.Rollback()

	archiveWriter, err := p.Archive.StartWriter()
	if err != nil {
		return err
	}
	defer archiveWriter.Rollback()

	// Undo in reverse chronological order: the last entry applied must be
	// the first undone, and within an entry the last delta applied must be
	// the first undone, mirroring a stack unwind. pending carries each
	// entity's value as already undone so far (nil = deleted), since the
	// state writer's own writes are not visible through p.State.
	pending := map[entity.NsKey][]byte{}
	for i := len(entries) - 1; i >= 0; i-- {
		if err := p.undoEntry(stateWriter, indexWriter, pending, entries[i].point.Slot, entries[i].entry); err != nil {
			return fmt.Errorf("wal: undo entry at slot %d: %w", entries[i].point.Slot, err)
		}
	}

	if err := stateWriter.SetCursor(target); err != nil {
		return err
	}
	if err := indexWriter.SetCursor(target); err != nil {
		return err
	}
	if err := archiveWriter.SetCursor(target); err != nil {
		return err
	}

	if err := stateWriter.Commit(); err != nil {
		return err
	}
	if err := indexWriter.Commit(); err != nil {
		return err
	}
	if err := archiveWriter.Commit(); err != nil {
		return err
	}

	walWriter, err := p.Wal.StartWriter()
	if err != nil {
		return err
	}
	if err := walWriter.TruncateAfter(target); err != nil {
		walWriter.Rollback()
		return err
	}
	return walWriter.Commit()
}

type timedEntry struct {
	point chainpoint.Point
	entry storage.LogEntry
}

// collectSince returns every WAL entry strictly after target, in
// ascending slot order (the order they were originally appended in).
func (p *Protocol) collectSince(target chainpoint.Point) ([]timedEntry, error) {
	if !target.IsOrigin() {
		if _, found, err := p.Wal.FindIntersection([]chainpoint.Point{target}); err != nil {
			return nil, err
		} else if !found {
			return nil, ErrNoIntersection
		}
	}
	var out []timedEntry
	err := p.Wal.IterFrom(target, func(pt chainpoint.Point, e storage.LogEntry) (bool, error) {
		if pt.Equal(target) {
			return true, nil
		}
		out = append(out, timedEntry{point: pt, entry: e})
		return true, nil
	})
	return out, err
}

// undoEntry reverses one LogEntry's effects against the state and index
// writers: entity deltas are undone newest-first, consumed inputs are
// reinserted into the UTxO set, produced refs are removed, and every
// index tag the entry set is removed.
func (p *Protocol) undoEntry(
	stateWriter storage.StateWriter,
	indexWriter storage.IndexWriter,
	pending map[entity.NsKey][]byte,
	slot uint64,
	e storage.LogEntry,
) error {
	for i := len(e.Deltas) - 1; i >= 0; i-- {
		d := e.Deltas[i]
		nsKey := d.Key()
		post, touched := pending[nsKey]
		if !touched {
			var found bool
			var err error
			post, found, err = p.State.ReadEntity(nsKey.Namespace, nsKey.Key)
			if err != nil {
				return err
			}
			if !found {
				post = nil
			}
		}
		pre, err := d.Undo(post)
		if err != nil {
			return fmt.Errorf("undo delta %s: %w", d.Tag(), err)
		}
		pending[nsKey] = pre
		if pre == nil {
			if err := stateWriter.DeleteEntity(nsKey.Namespace, nsKey.Key); err != nil {
				return err
			}
			continue
		}
		if err := stateWriter.WriteEntity(nsKey.Namespace, nsKey.Key, pre); err != nil {
			return err
		}
	}

	if len(e.ConsumedInputs) > 0 || len(e.ProducedRefs) > 0 {
		if err := stateWriter.ApplyUtxoDelta(e.ConsumedInputs, e.ProducedRefs); err != nil {
			return err
		}
	}

	for _, tag := range e.Tags.ArchiveTags {
		if err := indexWriter.RemoveSlotTag(tag.Dimension, tag.Key, slot); err != nil {
			return err
		}
	}
	for _, tag := range e.Tags.UtxoTags {
		if err := indexWriter.ApplyUtxoTagRemove(tag.Dimension, tag.Key, tag.Ref); err != nil {
			return err
		}
	}
	return nil
}
