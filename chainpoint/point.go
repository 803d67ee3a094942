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

// Package chainpoint defines the chain-position type shared by every store
// in the domain: a monotonic (slot, hash) pair with a canonical 40-byte
// on-disk form.
package chainpoint

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HashSize is the width of a Cardano block hash.
const HashSize = 32

// Size is the canonical on-disk encoding width: an 8-byte big-endian slot
// followed by a 32-byte hash.
const Size = 8 + HashSize

// ErrInvalidLength is returned by FromBytes when the input isn't exactly
// Size bytes long.
var ErrInvalidLength = errors.New("chainpoint: invalid encoded length")

// Point is either the Origin (the point before the first block) or a
// (slot, hash) pair identifying a block. Origin is represented by a zero
// Slot and an empty Hash.
type Point struct {
	Slot uint64
	Hash []byte
}

// Origin is the point preceding the first block of the chain.
var Origin = Point{}

// IsOrigin reports whether p is the Origin point.
func (p Point) IsOrigin() bool {
	return p.Slot == 0 && len(p.Hash) == 0
}

// New builds a non-origin point. Callers that mean Origin should use the
// Origin value directly rather than New(0, nil).
func New(slot uint64, hash []byte) Point {
	return Point{Slot: slot, Hash: hash}
}

// Less orders points by slot; Origin sorts before every other point.
func (p Point) Less(other Point) bool {
	if p.IsOrigin() || other.IsOrigin() {
		return p.IsOrigin() && !other.IsOrigin()
	}
	return p.Slot < other.Slot
}

// Equal compares slot and hash. Two origin points are always equal.
func (p Point) Equal(other Point) bool {
	if p.IsOrigin() || other.IsOrigin() {
		return p.IsOrigin() == other.IsOrigin()
	}
	return p.Slot == other.Slot && string(p.Hash) == string(other.Hash)
}

// Bytes returns the canonical 40-byte encoding: 8-byte big-endian slot
// followed by a 32-byte hash (zero-padded/truncated to HashSize). Origin
// encodes as 40 zero bytes.
func (p Point) Bytes() []byte {
	buf := make([]byte, Size)
	binary.BigEndian.PutUint64(buf[:8], p.Slot)
	copy(buf[8:8+HashSize], p.Hash)
	return buf
}

// FromBytes decodes the canonical 40-byte encoding produced by Bytes.
func FromBytes(b []byte) (Point, error) {
	if len(b) != Size {
		return Point{}, fmt.Errorf(
			"%w: got %d bytes, want %d",
			ErrInvalidLength,
			len(b),
			Size,
		)
	}
	slot := binary.BigEndian.Uint64(b[:8])
	hash := make([]byte, HashSize)
	copy(hash, b[8:8+HashSize])
	allZero := slot == 0
	if allZero {
		for _, v := range hash {
			if v != 0 {
				allZero = false
				break
			}
		}
	}
	if allZero {
		return Origin, nil
	}
	return Point{Slot: slot, Hash: hash}, nil
}

// String renders the point for logging.
func (p Point) String() string {
	if p.IsOrigin() {
		return "origin"
	}
	return fmt.Sprintf("%d@%x", p.Slot, p.Hash)
}
