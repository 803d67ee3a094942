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

package domain

import (
	"fmt"

	"github.com/txpipe/dolos/entity"
	"github.com/txpipe/dolos/storage"
)

// BlocksWithTag lazily joins the index's slot tags to the archive's
// blocks: it scans slots_by_tag for (dim, key) within [startSlot,
// endSlot] and resolves each matching slot to a block only on demand, so
// callers paginating or stopping early never pay for blocks they never
// look at. fn is called in ascending slot order; returning false from fn
// stops the scan without touching any later slot.
func (d *Domain) BlocksWithTag(
	dim storage.Dimension,
	key []byte,
	startSlot, endSlot uint64,
	fn func(storage.Block) (bool, error),
) error {
	return d.Stores.Index.SlotsByTag(dim, key, startSlot, endSlot, func(slot uint64) (bool, error) {
		block, found, err := d.Stores.Archive.BlockBySlot(slot)
		if err != nil {
			return false, fmt.Errorf("domain: resolve tagged slot %d: %w", slot, err)
		}
		if !found {
			// A tag with no backing block means the archive-index
			// invariant is violated (rollback didn't clean up the tag, or
			// a write crashed between the two stores) -- surface it
			// rather than silently skipping.
			return false, fmt.Errorf("domain: slot %d tagged (%s, %x) has no archived block", slot, dim, key)
		}
		return fn(block)
	})
}

// UtxosWithTag resolves the live UTxO refs currently tagged (dim, key) --
// e.g. every unspent output at an address or under a stake credential.
// Unlike BlocksWithTag this isn't a lazy scan: the underlying index
// mirrors the live UTxO set directly, so there's no slot range to
// paginate over.
func (d *Domain) UtxosWithTag(dim storage.Dimension, key []byte) ([]storage.UtxoRef, error) {
	return d.Stores.Index.UtxosByTag(dim, key)
}

// BlockByHash resolves one block by its hash via the exact-lookup index.
func (d *Domain) BlockByHash(hash [32]byte) (storage.Block, bool, error) {
	slot, found, err := d.Stores.Index.SlotByExact(storage.IndexKindBlockHash, hash[:])
	if err != nil || !found {
		return storage.Block{}, false, err
	}
	return d.Stores.Archive.BlockBySlot(slot)
}

// BlockByTxHash resolves the block containing a given transaction.
func (d *Domain) BlockByTxHash(txHash []byte) (storage.Block, bool, error) {
	slot, found, err := d.Stores.Index.SlotByExact(storage.IndexKindTxHash, txHash)
	if err != nil || !found {
		return storage.Block{}, false, err
	}
	return d.Stores.Archive.BlockBySlot(slot)
}

// LogsWithNamespace lazily joins archive log entities to a range, letting
// callers walk reward/stake history (namespaces RewardLogs, StakeLogs)
// one slot at a time without eager-loading the whole range.
func (d *Domain) LogsWithNamespace(
	ns entity.Namespace,
	startSlot, endSlot uint64,
	fn func(storage.LogEntity) (bool, error),
) error {
	return d.Stores.Archive.LogsByNamespaceSlot(ns, startSlot, endSlot, fn)
}

// ReadEntity reads one current-state entity by namespace and key --
// the read-side entry point for live Account/Pool/DRep/Proposal/Epoch
// lookups.
func (d *Domain) ReadEntity(ns entity.Namespace, key entity.EntityKey) ([]byte, bool, error) {
	return d.Stores.State.ReadEntity(ns, key)
}
