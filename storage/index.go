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
)

// IndexKind distinguishes the three families of exact point-lookup index
// this store holds; all live under the "exact:" key prefix but are kept
// logically distinct so callers can't cross-reference the wrong kind.
type IndexKind string

const (
	IndexKindBlockHash IndexKind = "block_hash"
	IndexKindTxHash    IndexKind = "tx_hash"
	IndexKindBlockNum  IndexKind = "block_num"
)

// IndexStore holds two independent index families behind one store: UTxO
// filter indexes (churning, updated on produce/consume, mirrored to the
// current UTxO set) and archive indexes (append-only slot tags, plus
// exact point lookups). Keeping them in one store but under disjoint key
// prefixes lets each use a compaction policy suited to its own write
// pattern without paying for two separate embedded databases.
type IndexStore interface {
	StartWriter() (IndexWriter, error)

	UtxosByTag(dim Dimension, key []byte) ([]UtxoRef, error)
	// SlotsByTag iterates slots tagged (dim, key) within [startSlot,
	// endSlot] in ascending order.
	SlotsByTag(
		dim Dimension,
		key []byte,
		startSlot, endSlot uint64,
		fn func(slot uint64) (bool, error),
	) error
	SlotByExact(kind IndexKind, key []byte) (uint64, bool, error)
	Cursor() (chainpoint.Point, bool, error)

	Close() error
}

// IndexWriter accumulates index mutations for one transaction.
type IndexWriter interface {
	ApplyUtxoTagAdd(dim Dimension, key []byte, ref UtxoRef) error
	ApplyUtxoTagRemove(dim Dimension, key []byte, ref UtxoRef) error
	ApplySlotTag(dim Dimension, key []byte, slot uint64) error
	// RemoveSlotTag reverses ApplySlotTag; used by rollback to keep the
	// archive-index invariant (a tag appears in slots_by_tag iff it was
	// produced by a block still on the canonical chain) true after a
	// rollback, without a full index rebuild.
	RemoveSlotTag(dim Dimension, key []byte, slot uint64) error
	PutExact(kind IndexKind, key []byte, slot uint64) error
	DeleteExact(kind IndexKind, key []byte) error
	SetCursor(chainpoint.Point) error

	Commit() error
	Rollback() error
}
