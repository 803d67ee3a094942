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

// Package entity defines the namespaced, keyed, CBOR-encodable records the
// state store persists, and the reversible delta contract that mutates
// them. Every piece of ledger-derived state (accounts, pools, epochs,
// dreps, proposals, assets, datums, era summaries, reward/stake logs,
// pending rewards) is an Entity; every change to one is an EntityDelta.
package entity

import (
	"crypto/sha256"

	"github.com/blinklabs-io/gouroboros/cbor"
)

// Namespace identifies an entity kind.
type Namespace string

// Namespaces recognized by the core. Chain-specific code (package cardano)
// is free to introduce more; these are the ones spec.md names explicitly.
const (
	NamespaceAccounts        Namespace = "accounts"
	NamespacePools           Namespace = "pools"
	NamespaceEpochs          Namespace = "epochs"
	NamespaceDReps           Namespace = "dreps"
	NamespaceProposals       Namespace = "proposals"
	NamespaceAssets          Namespace = "assets"
	NamespaceDatums          Namespace = "datums"
	NamespaceEras            Namespace = "eras"
	NamespaceRewards         Namespace = "rewards"
	NamespaceStakes          Namespace = "stakes"
	NamespacePendingRewards  Namespace = "pending_rewards"
)

// KeySize is the width of an EntityKey: a 32-byte hash of whatever
// domain-meaningful components identify the entity (e.g. a stake
// credential, a pool key hash, an epoch number encoded big-endian and
// padded).
const KeySize = 32

// EntityKey is a 32-byte hash identifying an entity within its namespace.
type EntityKey [KeySize]byte

// KeyFromBytes hashes arbitrary domain-meaningful bytes into an EntityKey.
// Components that are already exactly 32 bytes (e.g. a credential hash)
// are used verbatim rather than re-hashed, so that keys stay legible and
// stable across versions of this code.
func KeyFromBytes(b []byte) EntityKey {
	if len(b) == KeySize {
		var k EntityKey
		copy(k[:], b)
		return k
	}
	return EntityKey(sha256.Sum256(b))
}

// NsKey uniquely identifies an entity.
type NsKey struct {
	Namespace Namespace
	Key       EntityKey
}

// Entity is implemented by every persisted record variant (Account, Pool,
// Epoch, DRep, Proposal, Asset, Datum, EraSummary, RewardLog, StakeLog,
// PendingReward). It only needs to be CBOR-encodable; the state store
// stores and retrieves entities as opaque CBOR bytes, so callers decode
// into the concrete variant they expect for a given namespace.
type Entity interface {
	// EntityNamespace returns the namespace this variant belongs under.
	EntityNamespace() Namespace
}

// Codec encodes and decodes entities to/from the CBOR bytes the state
// store persists. It exists so the rest of the tree depends on this
// package's encode/decode helpers rather than importing gouroboros's cbor
// package directly everywhere an entity crosses a store boundary.
type Codec struct{}

// Encode serializes an entity (or any CBOR-encodable delta payload) to
// bytes.
func (Codec) Encode(v any) ([]byte, error) {
	return cbor.Encode(v)
}

// Decode deserializes bytes produced by Encode into v.
func (Codec) Decode(b []byte, v any) error {
	_, err := cbor.Decode(b, v)
	return err
}

// DefaultCodec is the Codec instance used throughout the core. It carries
// no state, so sharing one instance is only a style convention, not a
// correctness requirement.
var DefaultCodec = Codec{}
