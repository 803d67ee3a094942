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

import "fmt"

// Delta is a reversible mutation targeting a single entity. Apply mutates
// the post-image and must capture whatever "before" values it needs so
// that a later call to Undo can restore the pre-image deterministically,
// without re-reading anything from storage. The key invariant is:
//
//	pre, _  := d.Undo(must(d.Apply(pre)))
//	pre == original pre-image, bit-for-bit
//
// Deltas are applied in the order they are produced by block traversal
// (tx order, then certificate index, within a block; block order across a
// batch). No implicit priority or reordering is permitted — see the
// certificate-ordering note on DeltaBuilder in package cardano.
type Delta interface {
	// Key returns the target entity.
	Key() NsKey

	// Apply mutates the post-image given the pre-image (nil if the entity
	// doesn't exist yet). It may capture values from pre for later Undo.
	// Returning a nil post-image (with a nil error) destroys the entity.
	Apply(pre []byte) (post []byte, err error)

	// Undo restores the pre-image from the post-image using the
	// before-values captured during Apply. It must not depend on any
	// state other than what Apply captured and the post argument.
	Undo(post []byte) (pre []byte, err error)

	// Tag identifies the concrete delta variant for WAL serialization.
	// Must be stable across versions of this code -- it is persisted.
	Tag() string
}

// DeltaFactory constructs a zero-value instance of a registered delta
// variant, ready to have its fields populated by CBOR-decoding a WAL
// payload into it.
type DeltaFactory func() Delta

var deltaRegistry = map[string]DeltaFactory{}

// RegisterDeltaType registers a delta variant under a stable tag so the
// WAL can round-trip it through the generic Delta interface. Call this
// from an init() in the package defining the concrete delta type.
func RegisterDeltaType(tag string, factory DeltaFactory) {
	deltaRegistry[tag] = factory
}

type deltaEnvelope struct {
	Tag     string
	Payload []byte
}

// EncodeDelta serializes a registered delta variant as a (tag, payload)
// envelope.
func EncodeDelta(d Delta) ([]byte, error) {
	payload, err := DefaultCodec.Encode(d)
	if err != nil {
		return nil, err
	}
	return DefaultCodec.Encode(deltaEnvelope{Tag: d.Tag(), Payload: payload})
}

// DecodeDelta deserializes bytes produced by EncodeDelta back into the
// concrete delta variant registered under its tag.
func DecodeDelta(b []byte) (Delta, error) {
	var env deltaEnvelope
	if err := DefaultCodec.Decode(b, &env); err != nil {
		return nil, err
	}
	factory, ok := deltaRegistry[env.Tag]
	if !ok {
		return nil, fmt.Errorf("entity: unregistered delta tag %q", env.Tag)
	}
	d := factory()
	if err := DefaultCodec.Decode(env.Payload, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Slot identifies which EpochValue ring position a write targets.
type Slot int

const (
	// SlotLive is the current epoch's accumulator; writes here propagate
	// to `mark` at the next ESTART (one epoch of lag).
	SlotLive Slot = iota
	// SlotNext propagates to `mark` two ESTARTs from now (two epochs of
	// lag) -- used for deposit refunds and other values that must not be
	// visible until the snapshot that already reflects the decision that
	// produced them.
	SlotNext
)

// SnapshotLagged is implemented by delta variants whose EpochValue write
// target (live vs next) is part of their own contract rather than ambient
// state threaded through the caller. See EpochValue for the ring this
// selects into.
type SnapshotLagged interface {
	Delta
	TargetSlot() Slot
}
