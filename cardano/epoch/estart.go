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

package epoch

import (
	"context"
	"fmt"

	"github.com/txpipe/dolos/cardano"
	"github.com/txpipe/dolos/chainpoint"
	"github.com/txpipe/dolos/entity"
	"github.com/txpipe/dolos/event"
	"github.com/txpipe/dolos/storage"
	"github.com/txpipe/dolos/workunit"
)

// EstartUnit opens the new epoch once EWRAP has closed the old one: it
// carries the pots forward, verifies the conservation invariant, resets
// the per-epoch pool/block counters, and bumps the epoch number. It's the
// one point in the cycle that emits an epoch-boundary tip event.
//
// Nonce evolution (the VRF-output sweep that produces each block's
// candidate nonce) is not computed anywhere in this module -- ESTART only
// promotes whatever candidate is stored on the closing epoch into the new
// epoch's active nonce. NextCandidateNonce is supplied by the caller
// (seeded from the promoted nonce if the caller has nothing newer yet).
type EstartUnit struct {
	State   storage.StateStore
	Params  Params
	PoolDep uint64

	// ClosingEpochNo is the epoch EWRAP just finished wrapping up; the new
	// epoch is ClosingEpochNo+1.
	ClosingEpochNo     uint64
	NextCandidateNonce []byte
	Point              chainpoint.Point

	closing     cardano.Epoch
	closingOrig []byte
	opening     cardano.Epoch
	poolResets  []poolReset
}

type poolReset struct {
	KeyHash []byte
	New     cardano.Pool
	Prev    []byte
}

func NewEstartUnit(state storage.StateStore, params Params, poolDeposit uint64, closingEpochNo uint64, nextCandidateNonce []byte, point chainpoint.Point) *EstartUnit {
	return &EstartUnit{
		State: state, Params: params, PoolDep: poolDeposit,
		ClosingEpochNo: closingEpochNo, NextCandidateNonce: nextCandidateNonce, Point: point,
	}
}

func (u *EstartUnit) Kind() workunit.Kind { return workunit.KindEstart }

func (u *EstartUnit) Load(ctx context.Context) error {
	cbor, found, err := u.State.ReadEntity(entity.NamespaceEpochs, cardano.EpochKey(u.ClosingEpochNo))
	if err != nil {
		return fmt.Errorf("epoch: estart: read closing epoch %d: %w", u.ClosingEpochNo, err)
	}
	if !found {
		return fmt.Errorf("epoch: estart: closing epoch %d not found", u.ClosingEpochNo)
	}
	u.closingOrig = cbor
	if err := entity.DefaultCodec.Decode(cbor, &u.closing); err != nil {
		return fmt.Errorf("epoch: estart: decode closing epoch %d: %w", u.ClosingEpochNo, err)
	}

	return u.State.IterEntities(entity.NamespacePools, func(key entity.EntityKey, cbor []byte) (bool, error) {
		var p cardano.Pool
		if err := entity.DefaultCodec.Decode(cbor, &p); err != nil {
			return false, err
		}
		if p.BlocksMade == 0 {
			return true, nil
		}
		prev := append([]byte(nil), cbor...)
		p.BlocksMade = 0
		u.poolResets = append(u.poolResets, poolReset{KeyHash: p.KeyHash, New: p, Prev: prev})
		return true, nil
	})
}

// Compute carries the closing epoch's pots forward, resets the per-epoch
// counters (fees and blocks-made reset every epoch, reserves/treasury/
// deposits/utxos/rewards persist as running balances), and verifies the
// conservation invariant before bumping the epoch number.
func (u *EstartUnit) Compute(ctx context.Context) error {
	nextNonce := u.closing.CandidateNonce
	nextCandidate := u.NextCandidateNonce
	if len(nextCandidate) == 0 {
		nextCandidate = nextNonce
	}

	u.opening = cardano.Epoch{
		Number:           u.ClosingEpochNo + 1,
		StartSlot:        u.Point.Slot,
		ProtocolVersion:  u.closing.ProtocolVersion,
		Nonce:            nextNonce,
		CandidateNonce:   nextCandidate,
		Reserves:         u.closing.Reserves,
		Treasury:         u.closing.Treasury,
		Fees:             0,
		Deposits:         u.closing.Deposits,
		Utxos:            u.closing.Utxos,
		Rewards:          u.closing.Rewards,
		BlocksMadeTotal:  0,
		BlocksMadeByPool: 0,
	}

	sum := u.opening.Reserves + u.opening.Treasury + u.opening.Utxos +
		u.opening.Deposits + u.opening.Rewards + u.opening.Fees
	if sum != u.Params.MaxSupply {
		return fmt.Errorf(
			"epoch: estart: pot conservation violated entering epoch %d: reserves=%d treasury=%d utxos=%d deposits=%d rewards=%d fees=%d sum=%d max_supply=%d",
			u.opening.Number, u.opening.Reserves, u.opening.Treasury, u.opening.Utxos,
			u.opening.Deposits, u.opening.Rewards, u.opening.Fees, sum, u.Params.MaxSupply,
		)
	}
	return nil
}

func (u *EstartUnit) CommitWal(w storage.WalWriter) error {
	return w.Append(u.Point, storage.LogEntry{Deltas: u.buildDeltas()})
}

func (u *EstartUnit) buildDeltas() []entity.Delta {
	deltas := make([]entity.Delta, 0, len(u.poolResets)+1)
	for _, pr := range u.poolResets {
		deltas = append(deltas, &PoolWriteDelta{KeyHash: pr.KeyHash, New: pr.New, Prev: pr.Prev})
	}
	deltas = append(deltas, &cardano.EpochWriteDelta{
		EpochKey: cardano.EpochKey(u.opening.Number), New: u.opening, Prev: nil,
	})
	return deltas
}

func (u *EstartUnit) CommitState(w storage.StateWriter) error {
	for _, d := range u.buildDeltas() {
		post, err := d.Apply(nil)
		if err != nil {
			return err
		}
		key := d.Key()
		if post == nil {
			if err := w.DeleteEntity(key.Namespace, key.Key); err != nil {
				return err
			}
			continue
		}
		if err := w.WriteEntity(key.Namespace, key.Key, post); err != nil {
			return err
		}
	}
	return w.SetCursor(u.Point)
}

func (u *EstartUnit) CommitArchive(w storage.ArchiveWriter) error {
	return w.SetCursor(u.Point)
}

func (u *EstartUnit) CommitIndexes(w storage.IndexWriter) error {
	return w.SetCursor(u.Point)
}

func (u *EstartUnit) TipEvents() []event.TipEvent {
	return []event.TipEvent{
		{
			Kind:  event.TipEventEpochBoundary,
			Slot:  u.Point.Slot,
			Hash:  u.Point.Hash,
			Epoch: u.opening.Number,
		},
	}
}

func (u *EstartUnit) MempoolUpdates() []workunit.MempoolUpdate { return nil }
