// Copyright 2026 Blink Labs Software
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

package event

// TipEventType is the event type for chain-tip movement published after a
// work unit commits.
const TipEventType = EventType("tip.update")

// TipEventKind distinguishes the three ways a work unit can move the tip.
type TipEventKind string

const (
	TipEventRollForward    TipEventKind = "roll_forward"
	TipEventRollBack       TipEventKind = "roll_back"
	TipEventEpochBoundary  TipEventKind = "epoch_boundary"
)

// TipEvent is emitted by a WorkUnit's TipEvents phase once its commit
// phases have all succeeded. Subscribers (chainsync peer servers, the
// mempool collaborator) use it to know when to re-read the new tip rather
// than polling the cursor.
type TipEvent struct {
	Kind   TipEventKind
	Slot   uint64
	Hash   []byte
	Height uint64
	// Epoch is populated only for TipEventEpochBoundary.
	Epoch uint64
}

// EpochTransitionEventType is the event type for epoch transition events.
const EpochTransitionEventType = EventType("epoch.transition")

// EpochTransitionEvent describes one epoch boundary. No work unit in this
// module publishes it; ESTART reports boundaries as a TipEvent of kind
// TipEventEpochBoundary.
type EpochTransitionEvent struct {
	PreviousEpoch   uint64
	NewEpoch        uint64
	BoundarySlot    uint64
	EpochNonce      []byte
	ProtocolVersion uint
	SnapshotSlot    uint64
}
