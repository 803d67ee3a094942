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

// Package storage defines the four independent storage contracts the
// domain is built on (state, archive, write-ahead log, indexes) and their
// on-disk key encodings. Each contract follows the same writer pattern:
// StartWriter opens a transaction, the writer accepts a sequence of
// operations, and Commit either applies all of them durably or a dropped
// writer abandons them -- a writer is single-use and not safe to share
// across goroutines.
package storage

import (
	"errors"

	"github.com/txpipe/dolos/entity"
)

// Common sentinel errors shared by every backend implementation.
var (
	ErrNotFound        = errors.New("storage: not found")
	ErrWriterCommitted = errors.New("storage: writer already committed or aborted")
	ErrReadOnlyWriter  = errors.New("storage: writer is read-only")
)

// UtxoRef identifies a transaction output.
type UtxoRef struct {
	TxHash [32]byte
	Index  uint32
}

// UtxoBody is the raw, era-tagged CBOR of a transaction output.
type UtxoBody struct {
	Era  uint16
	Cbor []byte
}

// Dimension is an opaque tag-space name (e.g. "address", "payment_cred",
// "stake_cred", "policy", "asset_fingerprint", "datum_hash",
// "metadata_label", "tx_hash"). Storage hashes dimensions to fixed-width
// prefixes; see keys.go.
type Dimension string

// SlotTags are the multi-dimensional labels a block's visitor pipeline
// attaches for historical indexing.
type SlotTags struct {
	// UtxoTags are (dimension, key) pairs attached to produced UTxOs,
	// kept in sync with the live UTxO set.
	UtxoTags []UtxoTag
	// ArchiveTags are (dimension, key) pairs attached to this slot for
	// append-only historical indexing.
	ArchiveTags []ArchiveTag
}

// UtxoTag associates a UTxO with a filter-index dimension/key.
type UtxoTag struct {
	Dimension Dimension
	Key       []byte
	Ref       UtxoRef
}

// ArchiveTag associates a slot with an append-only index dimension/key.
type ArchiveTag struct {
	Dimension Dimension
	Key       []byte
}

// BlockHeader is the decoded header fields kept alongside a block's raw
// CBOR.
type BlockHeader struct {
	Slot     uint64
	Hash     [32]byte
	PrevHash [32]byte
	Height   uint64
	Era      uint16
}

// Block is an immutable archive record: raw CBOR plus its decoded header.
type Block struct {
	BlockHeader
	Raw []byte
}

// LogEntity is a time-series record written to the archive under a
// namespace, keyed and ordered by slot.
type LogEntity struct {
	Namespace entity.Namespace
	Slot      uint64
	Key       entity.EntityKey
	Cbor      []byte
}
