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

// Package workunit defines the six-phase work unit lifecycle and the two
// executor variants (sync, import) that drive it against the four stores.
package workunit

import (
	"context"
	"errors"

	"github.com/txpipe/dolos/chainpoint"
	"github.com/txpipe/dolos/event"
	"github.com/txpipe/dolos/storage"
)

// ErrStopEpochReached is returned from CommitState when the unit just
// crossed a configured stop epoch. The executor loop translates it into a
// clean shutdown rather than a failure.
var ErrStopEpochReached = errors.New("workunit: configured stop epoch reached")

// Kind distinguishes the work a unit performs, used by the executor to
// decide when the era-summary cache needs a refresh (after Genesis and
// ESTART units) independent of whatever ledger work the unit itself does.
type Kind string

const (
	KindGenesis Kind = "genesis"
	KindRoll    Kind = "roll"
	KindRupd    Kind = "rupd"
	KindEwrap   Kind = "ewrap"
	KindEstart  Kind = "estart"
)

// MempoolUpdate lets the (out-of-scope) mempool collaborator transition
// unconfirmed transactions to confirmed without re-scanning committed
// blocks itself. Carried through the lifecycle even though nothing in
// this module consumes it yet -- see DESIGN.md.
type MempoolUpdate struct {
	Point   chainpoint.Point
	SeenTxs [][32]byte
}

// WorkUnit is one unit of ledger-derivation work: load its inputs,
// compute its deltas, then commit them to each store in the fixed order
// the write-ahead-log protocol requires (wal, state, archive, indexes).
// Any phase may fail; failure of a commit phase aborts the unit.
type WorkUnit interface {
	Kind() Kind

	// Load reads whatever external inputs (blocks, era parameters) this
	// unit needs, without mutating any store.
	Load(ctx context.Context) error
	// Compute derives this unit's entity deltas, UTxO deltas, and slot
	// tags from what Load fetched. Pure with respect to storage: it may
	// be called before any writer is open.
	Compute(ctx context.Context) error

	CommitWal(w storage.WalWriter) error
	CommitState(w storage.StateWriter) error
	CommitArchive(w storage.ArchiveWriter) error
	CommitIndexes(w storage.IndexWriter) error

	// TipEvents returns the tip-movement events to publish once every
	// commit phase has succeeded. Only called by the sync executor.
	TipEvents() []event.TipEvent
	MempoolUpdates() []MempoolUpdate
}
