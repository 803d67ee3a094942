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

package entity

// EpochValue is a fixed five-slot ring modelling Cardano's two-epoch
// snapshot lag for stake and rewards: {go, set, mark, live, next}. Writes
// during ROLL/EWRAP land in `live` or `next` depending on the delta's own
// contract (see SnapshotLagged); at ESTART every slot rotates one step:
//
//	go   <- set
//	set  <- mark
//	mark <- live
//	live <- next
//	next <- zero value
//
// `go`/`set` are read-only from the outside: the API below has no setter
// for them, so a caller can't accidentally skip the rotation contract.
type EpochValue[T any] struct {
	goVal T
	set   T
	mark  T
	live  T
	next  T
}

// Go returns the oldest slot (two rotations behind live).
func (e *EpochValue[T]) Go() T { return e.goVal }

// Set returns the slot one rotation behind mark.
func (e *EpochValue[T]) Set() T { return e.set }

// Mark returns the slot that becomes authoritative at the current epoch's
// boundary -- the snapshot RUPD reads from.
func (e *EpochValue[T]) Mark() T { return e.mark }

// Live returns the current epoch's accumulator.
func (e *EpochValue[T]) Live() T { return e.live }

// WriteLive overwrites the `live` slot. This is the target for rewards
// application and any value that should be visible starting next epoch.
func (e *EpochValue[T]) WriteLive(v T) { e.live = v }

// WriteNext overwrites the `next` slot. This is the target for deposit
// refunds and other values that must lag one extra epoch -- e.g. a pool
// deposit refund computed during this epoch's POOLREAP must not appear in
// `mark` until the ESTART after next, matching the real ledger's
// behavior. `next` is never read as current; it only exists to become
// `live` after the next rotation.
func (e *EpochValue[T]) WriteNext(v T) { e.next = v }

// Write stores v into the slot selected by s.
func (e *EpochValue[T]) Write(s Slot, v T) {
	switch s {
	case SlotNext:
		e.WriteNext(v)
	default:
		e.WriteLive(v)
	}
}

// Rotate advances every slot by one position and resets `next` to the
// zero value of T. Must be called exactly once per ESTART.
func (e *EpochValue[T]) Rotate() {
	var zero T
	e.goVal = e.set
	e.set = e.mark
	e.mark = e.live
	e.live = e.next
	e.next = zero
}
