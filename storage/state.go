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

// StateStore holds the current ledger: the UTxO set, every namespaced
// entity, and the store's cursor. Reads use MVCC snapshots and never
// block writers.
type StateStore interface {
	// StartWriter opens a new write transaction. The returned writer is
	// single-use: call Commit to apply its operations durably, or Rollback
	// to abandon them.
	StartWriter() (StateWriter, error)

	ReadEntity(ns entity.Namespace, key entity.EntityKey) ([]byte, bool, error)
	ReadEntities(
		ns entity.Namespace,
		keys []entity.EntityKey,
	) (map[entity.EntityKey][]byte, error)
	// IterEntities iterates all entities in a namespace in lexicographic
	// key order, calling fn for each until it returns false or an error.
	IterEntities(
		ns entity.Namespace,
		fn func(key entity.EntityKey, cbor []byte) (bool, error),
	) error
	GetUtxos(refs []UtxoRef) (map[UtxoRef]UtxoBody, error)
	Cursor() (chainpoint.Point, bool, error)

	Close() error
}

// StateWriter accumulates state mutations for one transaction.
type StateWriter interface {
	WriteEntity(ns entity.Namespace, key entity.EntityKey, cbor []byte) error
	DeleteEntity(ns entity.Namespace, key entity.EntityKey) error
	ApplyUtxoDelta(produced map[UtxoRef]UtxoBody, consumed []UtxoRef) error
	SetCursor(chainpoint.Point) error

	// Commit durably applies every accumulated operation atomically.
	Commit() error
	// Rollback abandons every accumulated operation. Safe to call after
	// Commit (no-op) so callers can always defer it.
	Rollback() error
}
