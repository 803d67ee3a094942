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

// Package workbuffer implements the state machine that groups incoming
// blocks into roll batches and recognizes the RUPD and epoch (EWRAP/
// ESTART) boundaries that must interrupt a batch.
package workbuffer

import (
	"errors"
	"math"
)

// State is one node of the buffer's state machine.
type State string

const (
	StateEmpty            State = "empty"
	StateGenesis          State = "genesis"
	StateOpenBatch        State = "open_batch"
	StatePreRupdBoundary  State = "pre_rupd_boundary"
	StateRupdBoundary     State = "rupd_boundary"
	StatePreEwrapBoundary State = "pre_ewrap_boundary"
	StateEwrapBoundary    State = "ewrap_boundary"
	StateEstartBoundary   State = "estart_boundary"
	StateRestart          State = "restart"
	StatePreForcedStop    State = "pre_forced_stop"
)

// EventKind identifies what a popped Event asks the executor to do.
type EventKind string

const (
	EventGenesis   EventKind = "genesis"
	EventRollBatch EventKind = "roll_batch"
	EventRupd      EventKind = "rupd"
	EventEwrap     EventKind = "ewrap"
	EventEstart    EventKind = "estart"
)

// Event is one unit of work the buffer has decided is ready to execute.
type Event struct {
	Kind  EventKind
	Batch []BlockMeta
}

// BlockMeta is the slice of a block's header the buffer needs to detect
// boundaries; it does not need the block's body.
type BlockMeta struct {
	Slot      uint64
	Hash      [32]byte
	IsGenesis bool
}

// GenesisParams are the chain constants needed to compute epoch and RUPD
// boundaries from slot numbers alone.
type GenesisParams struct {
	// EpochLength is the number of slots per epoch.
	EpochLength uint64
	// SystemStartSlot is the absolute slot of epoch 0's start.
	SystemStartSlot uint64
	// K is the security parameter (max rollback depth in blocks).
	K uint64
	// F is the active slot coefficient.
	F float64
	// StopEpoch, if non-nil, is the last epoch this buffer should process;
	// reaching it raises StatePreForcedStop instead of continuing.
	StopEpoch *uint64
}

// Epoch returns the epoch number containing slot.
func (g GenesisParams) Epoch(slot uint64) uint64 {
	if slot < g.SystemStartSlot || g.EpochLength == 0 {
		return 0
	}
	return (slot - g.SystemStartSlot) / g.EpochLength
}

// EpochStart returns the first slot of epoch.
func (g GenesisParams) EpochStart(epoch uint64) uint64 {
	return g.SystemStartSlot + epoch*g.EpochLength
}

// RandomnessStabilityWindow is ceil(4k/f), the number of slots after an
// epoch's start at which that epoch's nonce (and therefore its reward
// calculation inputs) becomes stable.
func (g GenesisParams) RandomnessStabilityWindow() uint64 {
	if g.F == 0 {
		return 0
	}
	return uint64(math.Ceil(4 * float64(g.K) / g.F))
}

// ErrCannotReceiveBlock is returned by PushBlock when the buffer is
// holding a pending boundary and cannot accept new blocks until it has
// been drained via Pop.
var ErrCannotReceiveBlock = errors.New("workbuffer: buffer cannot receive a block in its current state")

// Buffer is the block-batching state machine. It holds at most one open
// batch plus one pending boundary; it is not safe for concurrent use.
type Buffer struct {
	params GenesisParams

	state        State
	batch        []BlockMeta
	pendingBlock *BlockMeta
	sawGenesis   bool
}

func New(params GenesisParams) *Buffer {
	return &Buffer{params: params, state: StateEmpty}
}

func (b *Buffer) State() State { return b.state }

// CanReceiveBlock is true only in {Empty, Restart, OpenBatch}, matching
// spec's can_receive_block predicate.
func (b *Buffer) CanReceiveBlock() bool {
	return b.state == StateEmpty || b.state == StateRestart || b.state == StateOpenBatch
}

// PushBlock feeds the next block into the buffer, advancing its state.
func (b *Buffer) PushBlock(meta BlockMeta) error {
	if !b.CanReceiveBlock() {
		return ErrCannotReceiveBlock
	}
	b.pushLocked(meta)
	return nil
}

func (b *Buffer) pushLocked(meta BlockMeta) {
	switch b.state {
	case StateEmpty, StateRestart:
		if meta.IsGenesis && !b.sawGenesis {
			b.sawGenesis = true
			b.batch = []BlockMeta{meta}
			b.state = StateGenesis
			return
		}
		b.batch = []BlockMeta{meta}
		b.state = StateOpenBatch
	case StateOpenBatch:
		prev := b.batch[len(b.batch)-1]
		switch {
		case b.params.Epoch(prev.Slot) != b.params.Epoch(meta.Slot):
			b.pendingBlock = &meta
			b.state = StatePreEwrapBoundary
		case b.crossesRupdWindow(prev.Slot, meta.Slot):
			b.pendingBlock = &meta
			b.state = StatePreRupdBoundary
		case b.reachedStopEpoch(meta.Slot):
			b.pendingBlock = &meta
			b.state = StatePreForcedStop
		default:
			b.batch = append(b.batch, meta)
		}
	}
}

func (b *Buffer) crossesRupdWindow(prevSlot, nextSlot uint64) bool {
	epoch := b.params.Epoch(prevSlot)
	if b.params.Epoch(nextSlot) != epoch {
		return false
	}
	threshold := b.params.EpochStart(epoch) + b.params.RandomnessStabilityWindow()
	return prevSlot < threshold && threshold <= nextSlot
}

func (b *Buffer) reachedStopEpoch(slot uint64) bool {
	if b.params.StopEpoch == nil {
		return false
	}
	return b.params.Epoch(slot) > *b.params.StopEpoch
}

// Pop drains the next ready Event, if any, advancing the state machine.
// It returns (Event{}, false, nil) when there is nothing to pop yet (the
// buffer is in Empty, Genesis-not-yet-reached, or OpenBatch and waiting
// for more blocks or a boundary).
func (b *Buffer) Pop() (Event, bool, error) {
	switch b.state {
	case StateGenesis:
		ev := Event{Kind: EventGenesis, Batch: b.batch}
		b.batch = nil
		b.enterRestart()
		return ev, true, nil

	case StatePreRupdBoundary:
		ev := Event{Kind: EventRollBatch, Batch: b.batch}
		b.batch = nil
		b.state = StateRupdBoundary
		return ev, true, nil

	case StateRupdBoundary:
		ev := Event{Kind: EventRupd}
		b.enterRestart()
		return ev, true, nil

	case StatePreEwrapBoundary:
		ev := Event{Kind: EventRollBatch, Batch: b.batch}
		b.batch = nil
		b.state = StateEwrapBoundary
		return ev, true, nil

	case StateEwrapBoundary:
		ev := Event{Kind: EventEwrap}
		b.state = StateEstartBoundary
		return ev, true, nil

	case StateEstartBoundary:
		ev := Event{Kind: EventEstart}
		b.enterRestart()
		return ev, true, nil

	case StatePreForcedStop:
		ev := Event{Kind: EventRollBatch, Batch: b.batch}
		b.batch = nil
		b.state = StateEmpty
		b.pendingBlock = nil
		return ev, true, nil

	default:
		return Event{}, false, nil
	}
}

// enterRestart transitions to Restart and, if a boundary-triggering block
// was set aside, immediately re-ingests it -- "Restart --next block-->
// re-enter normal transitions" in spec terms, except the next block is
// already in hand rather than awaiting a new PushBlock call.
func (b *Buffer) enterRestart() {
	b.state = StateRestart
	if b.pendingBlock == nil {
		return
	}
	pending := *b.pendingBlock
	b.pendingBlock = nil
	b.pushLocked(pending)
}
