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
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/txpipe/dolos/entity"
)

// dimHash hashes an opaque dimension/tag-key string to a fast, fixed-width
// 64-bit prefix. Using a non-cryptographic hash here (rather than SHA-256)
// keeps index keys short; collisions between two different dimensions
// would merge their tag sets, so the three index key builders below salt
// the input with a kind-specific prefix ("block:", "utxo:", "exact:") to
// keep those key families disjoint even if two raw dimension names collide
// under xxhash. EntityStateKey hashes the bare namespace name; its keys
// live only in the state store.
func dimHash(s string) uint64 {
	return xxhash.Sum64String(s)
}

func putUint64(dst []byte, v uint64) {
	binary.BigEndian.PutUint64(dst, v)
}

// EntityStateKey builds the on-disk key for an entity: an 8-byte
// big-endian hash of the namespace followed by the 32-byte entity key.
func EntityStateKey(ns entity.Namespace, key entity.EntityKey) []byte {
	buf := make([]byte, 8+entity.KeySize)
	putUint64(buf[:8], dimHash(string(ns)))
	copy(buf[8:], key[:])
	return buf
}

// UtxoRefKey builds the on-disk key for a UTxO: 32-byte tx hash followed
// by a 4-byte big-endian output index.
func UtxoRefKey(ref UtxoRef) []byte {
	buf := make([]byte, 32+4)
	copy(buf[:32], ref.TxHash[:])
	binary.BigEndian.PutUint32(buf[32:], ref.Index)
	return buf
}

// ArchiveTagKey builds the on-disk key for an append-only slot-tag index
// entry: dim_hash("block:"+dim) || xxh64(tag_key) || slot, all big-endian.
func ArchiveTagKey(dim Dimension, tagKey []byte, slot uint64) []byte {
	buf := make([]byte, 8+8+8)
	putUint64(buf[0:8], dimHash("block:"+string(dim)))
	putUint64(buf[8:16], xxhash.Sum64(tagKey))
	putUint64(buf[16:24], slot)
	return buf
}

// ArchiveTagPrefix returns the key prefix shared by every entry for a
// given (dim, tagKey) pair, suitable for a range scan over all slots.
func ArchiveTagPrefix(dim Dimension, tagKey []byte) []byte {
	buf := make([]byte, 8+8)
	putUint64(buf[0:8], dimHash("block:"+string(dim)))
	putUint64(buf[8:16], xxhash.Sum64(tagKey))
	return buf
}

// UtxoTagKey builds the on-disk key for a UTxO filter-index entry:
// dim_hash("utxo:"+dim) || lookupKey || utxo_ref(36).
func UtxoTagKey(dim Dimension, lookupKey []byte, ref UtxoRef) []byte {
	buf := make([]byte, 8+len(lookupKey)+36)
	putUint64(buf[0:8], dimHash("utxo:"+string(dim)))
	copy(buf[8:8+len(lookupKey)], lookupKey)
	copy(buf[8+len(lookupKey):], UtxoRefKey(ref))
	return buf
}

// UtxoTagPrefix returns the key prefix shared by every ref tagged with
// (dim, lookupKey).
func UtxoTagPrefix(dim Dimension, lookupKey []byte) []byte {
	buf := make([]byte, 8+len(lookupKey))
	putUint64(buf[0:8], dimHash("utxo:"+string(dim)))
	copy(buf[8:], lookupKey)
	return buf
}

// ExactKey builds the on-disk key for an exact point-lookup index entry
// (block_hash -> slot, tx_hash -> slot, block_num -> slot):
// dim_hash("exact:"+dim) || key. The slot is stored as the value, encoded
// 8-byte big-endian, not as part of the key.
func ExactKey(dim Dimension, key []byte) []byte {
	buf := make([]byte, 8+len(key))
	putUint64(buf[0:8], dimHash("exact:"+string(dim)))
	copy(buf[8:], key)
	return buf
}

// EncodeSlotValue encodes a slot as the 8-byte big-endian value stored
// under an ExactKey.
func EncodeSlotValue(slot uint64) []byte {
	buf := make([]byte, 8)
	putUint64(buf, slot)
	return buf
}

// DecodeSlotValue decodes a value written by EncodeSlotValue.
func DecodeSlotValue(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}
