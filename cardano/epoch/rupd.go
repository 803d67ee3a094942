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

	"github.com/blinklabs-io/gouroboros/ledger"

	"github.com/txpipe/dolos/cardano"
	"github.com/txpipe/dolos/chainpoint"
	"github.com/txpipe/dolos/entity"
	"github.com/txpipe/dolos/event"
	"github.com/txpipe/dolos/storage"
	"github.com/txpipe/dolos/workunit"
)

// pendingReward is one entry of the reward map RUPD produces, before it is
// persisted as a cardano.PendingReward entity.
type pendingReward struct {
	Cred   []byte
	PoolId []byte
	Type   cardano.RewardType
	Amount uint64
}

// RupdUnit computes each pool's and delegator's reward for the epoch just
// ending, using the mark snapshot (per spec 4.7.1), and stages the result
// as pending-rewards entities for EWRAP's applyRUpd to consume.
//
// RUPD does not itself advance the chain cursor to a new block -- it fires
// at a slot threshold within the epoch, not at a block boundary -- so
// Point should carry the triggering block's point verbatim.
type RupdUnit struct {
	State  storage.StateStore
	Index  storage.IndexStore
	Params Params
	// EpochNo is the epoch number ending, whose mark snapshot RUPD reads.
	EpochNo uint64
	Point   chainpoint.Point

	snapshot StakeSnapshot
	reserves uint64
	fees     uint64
	rewards  []pendingReward
	pot      PotDelta
}

func NewRupdUnit(state storage.StateStore, index storage.IndexStore, params Params, epochNo uint64, point chainpoint.Point) *RupdUnit {
	return &RupdUnit{State: state, Index: index, Params: params, EpochNo: epochNo, Point: point}
}

func (u *RupdUnit) Kind() workunit.Kind { return workunit.KindRupd }

func (u *RupdUnit) Load(ctx context.Context) error {
	epBytes, ok, err := u.State.ReadEntity(entity.NamespaceEpochs, cardano.EpochKey(u.EpochNo))
	if err != nil {
		return fmt.Errorf("epoch: rupd: read epoch %d: %w", u.EpochNo, err)
	}
	var ep cardano.Epoch
	if ok {
		if err := entity.DefaultCodec.Decode(epBytes, &ep); err != nil {
			return fmt.Errorf("epoch: rupd: decode epoch %d: %w", u.EpochNo, err)
		}
	}
	u.reserves = ep.Reserves
	u.fees = ep.Fees

	var pools []PoolSnapshot
	var activeStakeSum, blocksTotal uint64
	err = u.State.IterEntities(entity.NamespacePools, func(key entity.EntityKey, cbor []byte) (bool, error) {
		var p cardano.Pool
		if err := entity.DefaultCodec.Decode(cbor, &p); err != nil {
			return false, err
		}
		if p.MarkStake == 0 {
			return true, nil
		}
		pools = append(pools, PoolSnapshot{
			KeyHash:       p.KeyHash,
			RewardAccount: p.RewardAccount,
			Pledge:        p.Pledge,
			Cost:          p.Cost,
			MarginNum:     p.MarginNum,
			MarginDenom:   p.MarginDenom,
			Stake:         p.MarkStake,
			BlocksMade:    p.BlocksMade,
		})
		activeStakeSum += p.MarkStake
		blocksTotal += p.BlocksMade
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("epoch: rupd: iterate pools: %w", err)
	}

	delegators := NewDelegatorMap()
	err = u.State.IterEntities(entity.NamespaceAccounts, func(key entity.EntityKey, cbor []byte) (bool, error) {
		var acc cardano.Account
		if err := entity.DefaultCodec.Decode(cbor, &acc); err != nil {
			return false, err
		}
		// protocol < 7 excludes unregistered accounts before calculation;
		// this module tracks only live registration (no mark-time
		// history), so the <7 behavior is applied unconditionally -- see
		// DESIGN.md.
		if !acc.Registered || len(acc.DelegatedPool) == 0 {
			return true, nil
		}
		stake, err := u.accountStake(acc.Credential)
		if err != nil {
			return false, err
		}
		delegators.Insert(acc.DelegatedPool, acc.Credential, stake)
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("epoch: rupd: iterate accounts: %w", err)
	}

	circulating := uint64(0)
	if u.Params.MaxSupply > u.reserves {
		circulating = u.Params.MaxSupply - u.reserves
	}

	u.snapshot = StakeSnapshot{
		Pools:             pools,
		Delegators:        delegators,
		ActiveStakeSum:    activeStakeSum,
		CirculatingSupply: circulating,
		EpochBlocksTotal:  blocksTotal,
	}
	return nil
}

// accountStake sums the lovelace value of every UTxO currently tagged with
// this stake credential. This approximates the true mark-snapshot stake
// (which should reflect the UTxO set as of the mark boundary, two epochs
// ago) with the live UTxO set -- the storage layer keeps no historical
// UTxO-to-credential snapshots, so an exact two-epoch-lagged figure isn't
// available; see DESIGN.md.
func (u *RupdUnit) accountStake(cred []byte) (uint64, error) {
	refs, err := u.Index.UtxosByTag(cardano.DimStakeCred, cred)
	if err != nil {
		return 0, err
	}
	if len(refs) == 0 {
		return 0, nil
	}
	bodies, err := u.State.GetUtxos(refs)
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, body := range bodies {
		out, err := ledger.NewTransactionOutputFromCbor(body.Cbor)
		if err != nil {
			continue
		}
		total += out.Amount().Uint64()
	}
	return total, nil
}

func (u *RupdUnit) Compute(ctx context.Context) error {
	eta := calculateEta(uint32(u.snapshot.EpochBlocksTotal), u.Params.D, u.Params.ActiveSlotCoeff, u.Params.EpochLength)
	u.pot = computePotDelta(u.reserves, u.fees, u.Params.Rho, u.Params.Tau, eta)

	if u.snapshot.CirculatingSupply == 0 {
		return nil
	}

	for _, pool := range u.snapshot.Pools {
		livePledge := u.snapshot.Delegators.Stake(pool.KeyHash, pool.RewardAccount)
		total := poolRewards(
			u.pot.AvailableRewards, u.snapshot.CirculatingSupply, u.snapshot.ActiveStakeSum,
			pool.Stake, pool.Pledge, livePledge,
			u.Params.K, u.Params.A0, u.Params.D,
			uint32(pool.BlocksMade), uint32(u.snapshot.EpochBlocksTotal),
		)
		if total == 0 {
			continue
		}
		operatorShare := poolOperatorShare(total, pool.Cost, pool.MarginNum, pool.MarginDenom, pool.Stake, livePledge, u.snapshot.CirculatingSupply)
		if operatorShare > 0 {
			u.rewards = append(u.rewards, pendingReward{Cred: pool.RewardAccount, PoolId: pool.KeyHash, Type: cardano.RewardTypeLeader, Amount: operatorShare})
		}

		memberPot := total - operatorShare
		if memberPot == 0 {
			continue
		}
		u.snapshot.Delegators.Delegators(pool.KeyHash, func(account []byte, stake uint64) {
			if stake == 0 {
				return
			}
			r := delegatorReward(memberPot, pool.Stake, stake)
			if r == 0 {
				return
			}
			u.rewards = append(u.rewards, pendingReward{Cred: account, PoolId: pool.KeyHash, Type: cardano.RewardTypeMember, Amount: r})
		})
	}
	return nil
}

func (u *RupdUnit) CommitWal(w storage.WalWriter) error {
	deltas := u.buildDeltas()
	return w.Append(u.Point, storage.LogEntry{Deltas: deltas})
}

func (u *RupdUnit) buildDeltas() []entity.Delta {
	deltas := make([]entity.Delta, 0, len(u.rewards)+1)
	for _, r := range u.rewards {
		prev, _, _ := u.State.ReadEntity(entity.NamespacePendingRewards, entity.KeyFromBytes(r.Cred))
		deltas = append(deltas, &cardano.PendingRewardWriteDelta{
			Cred: r.Cred, Epoch: u.EpochNo, PoolId: r.PoolId, Type: r.Type, Amount: r.Amount, Prev: prev,
		})
	}
	// Reserves and treasury both move on the same Epoch entity this unit
	// touches once each; the second delta's Prev is chained off the
	// first's Apply result rather than re-read from State, since a fresh
	// read would still see the pre-unit value and silently drop the
	// reserves adjustment (State isn't written until CommitState).
	epPrev, _, _ := u.State.ReadEntity(entity.NamespaceEpochs, cardano.EpochKey(u.EpochNo))
	reservesDelta := &cardano.EpochAdjustDelta{
		EpochKey: cardano.EpochKey(u.EpochNo), Field: cardano.EpochPotReserves,
		Amount: -int64(u.pot.Incentives), Prev: epPrev,
	}
	deltas = append(deltas, reservesDelta)
	afterReserves, _ := reservesDelta.Apply(nil)
	deltas = append(deltas, &cardano.EpochAdjustDelta{
		EpochKey: cardano.EpochKey(u.EpochNo), Field: cardano.EpochPotTreasury,
		Amount: int64(u.pot.TreasuryTax), Prev: afterReserves,
	})
	return deltas
}

func (u *RupdUnit) CommitState(w storage.StateWriter) error {
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

func (u *RupdUnit) CommitArchive(w storage.ArchiveWriter) error {
	for _, pool := range u.snapshot.Pools {
		log := cardano.StakeLog{
			Credential: pool.RewardAccount,
			Epoch:      u.EpochNo,
			PoolId:     pool.KeyHash,
			Amount:     pool.Stake,
		}
		cbor, err := entity.DefaultCodec.Encode(log)
		if err != nil {
			return err
		}
		if err := w.WriteLog(storage.LogEntity{
			Namespace: entity.NamespaceStakes,
			Slot:      u.Point.Slot,
			Key:       entity.KeyFromBytes(pool.KeyHash),
			Cbor:      cbor,
		}); err != nil {
			return err
		}
	}
	return w.SetCursor(u.Point)
}

func (u *RupdUnit) CommitIndexes(w storage.IndexWriter) error {
	return w.SetCursor(u.Point)
}

func (u *RupdUnit) TipEvents() []event.TipEvent              { return nil }
func (u *RupdUnit) MempoolUpdates() []workunit.MempoolUpdate { return nil }
