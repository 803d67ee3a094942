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

// ProposalResolver looks a governance proposal's outcome up in the
// hardcoded decision table spec 4.7.4 describes: this node doesn't run
// DRep voting, so ratification/cancellation of a proposal is sourced
// externally rather than computed. Implemented by package governance;
// kept as an interface here so epoch doesn't import it and force a
// dependency in the other direction.
type ProposalResolver interface {
	// Resolve returns the table's verdict for txHash#actionIndex, the
	// epoch at which that verdict takes effect, and whether an entry
	// exists at all. A missing entry is not an error -- the proposal
	// naturally expires via its own ExpiresEpoch.
	Resolve(txHash []byte, actionIndex uint32, currentEpoch uint64) (outcome cardano.ProposalOutcome, decidingEpoch uint64, ok bool)
}

type rewardLogEntry struct {
	Credential []byte
	PoolId     []byte
	Type       cardano.RewardType
	Amount     uint64
}

// EwrapUnit implements the epoch-wrap boundary: applyRUpd, SNAP, POOLREAP,
// in that fixed order (spec 4.7.2), plus governance enactment and deposit
// refunds. All reads happen before any writer opens (Load/Compute), then
// CommitState/CommitArchive replay the folded result -- mirroring
// commit.rs's "collect first, write last" shape.
type EwrapUnit struct {
	State       storage.StateStore
	Params      Params
	PoolDeposit uint64
	Resolver    ProposalResolver
	// EpochNo is the epoch number ending at this boundary -- the same
	// epoch RupdUnit just computed rewards for.
	EpochNo uint64
	Point   chainpoint.Point

	accounts   *overlay[cardano.Account]
	pools      *overlay[cardano.Pool]
	proposals  *overlay[cardano.Proposal]
	pending    []cardano.PendingReward
	epochOrig  []byte
	epochFound bool
	epoch      cardano.Epoch
	rewardLogs []rewardLogEntry
}

func NewEwrapUnit(state storage.StateStore, params Params, poolDeposit uint64, resolver ProposalResolver, epochNo uint64, point chainpoint.Point) *EwrapUnit {
	return &EwrapUnit{
		State: state, Params: params, PoolDeposit: poolDeposit, Resolver: resolver,
		EpochNo: epochNo, Point: point,
	}
}

func (u *EwrapUnit) Kind() workunit.Kind { return workunit.KindEwrap }

func (u *EwrapUnit) Load(ctx context.Context) error {
	u.accounts = newOverlay[cardano.Account](u.State, entity.NamespaceAccounts)
	u.pools = newOverlay[cardano.Pool](u.State, entity.NamespacePools)
	u.proposals = newOverlay[cardano.Proposal](u.State, entity.NamespaceProposals)

	epBytes, found, err := u.State.ReadEntity(entity.NamespaceEpochs, cardano.EpochKey(u.EpochNo))
	if err != nil {
		return fmt.Errorf("epoch: ewrap: read epoch %d: %w", u.EpochNo, err)
	}
	u.epochOrig, u.epochFound = epBytes, found
	if found {
		if err := entity.DefaultCodec.Decode(epBytes, &u.epoch); err != nil {
			return fmt.Errorf("epoch: ewrap: decode epoch %d: %w", u.EpochNo, err)
		}
	} else {
		u.epoch.Number = u.EpochNo
	}

	err = u.State.IterEntities(entity.NamespacePendingRewards, func(key entity.EntityKey, cbor []byte) (bool, error) {
		var pr cardano.PendingReward
		if err := entity.DefaultCodec.Decode(cbor, &pr); err != nil {
			return false, err
		}
		u.pending = append(u.pending, pr)
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("epoch: ewrap: iterate pending rewards: %w", err)
	}
	return nil
}

// Compute runs the fixed NEWEPOCH sub-rule order: applyRUpd, then SNAP,
// then POOLREAP, then governance enactment and refunds.
func (u *EwrapUnit) Compute(ctx context.Context) error {
	u.applyRUpd()
	if err := u.snap(); err != nil {
		return err
	}
	u.poolreap()
	if u.Resolver != nil {
		u.governance()
	}
	return nil
}

// applyRUpd is NEWEPOCH sub-rule 1: credit each pending reward to its
// account if still registered, otherwise route it to treasury. This is
// the filter that applies independent of protocol version -- the
// protocol-version gate that matters only decides whether RUPD already
// excluded unregistered accounts from the calculation itself.
func (u *EwrapUnit) applyRUpd() {
	var appliedTotal, unspendable uint64
	for _, pr := range u.pending {
		acc, found := u.accounts.get(pr.Credential)
		if found && acc.Registered {
			acc.RewardsLive += pr.Amount
			u.accounts.set(pr.Credential, acc)
			appliedTotal += pr.Amount
			u.rewardLogs = append(u.rewardLogs, rewardLogEntry{Credential: pr.Credential, PoolId: pr.PoolId, Type: pr.Type, Amount: pr.Amount})
		} else {
			unspendable += pr.Amount
		}
	}
	u.epoch.Rewards += appliedTotal
	u.epoch.Treasury += unspendable
}

// snap is NEWEPOCH sub-rule 2: advance mark to live for every pool not
// retiring this boundary (a retiring pool's snapshot is moot -- POOLREAP
// removes it outright) and recompute mark from the current delegated
// stake distribution. Live stake running totals aren't tracked
// incrementally as blocks roll in (see DESIGN.md), so the new mark is
// taken from the live UTxO-derived total the same way RupdUnit computes
// it, rather than from an accumulator updated by the roll visitor.
func (u *EwrapUnit) snap() error {
	return u.State.IterEntities(entity.NamespacePools, func(key entity.EntityKey, cbor []byte) (bool, error) {
		var p cardano.Pool
		if err := entity.DefaultCodec.Decode(cbor, &p); err != nil {
			return false, err
		}
		if p.RetiringEpoch != nil && *p.RetiringEpoch <= u.EpochNo+1 {
			return true, nil
		}
		pool, _ := u.pools.get(p.KeyHash)
		pool.LiveStake = pool.MarkStake
		pool.MarkStake = p.MarkStake
		u.pools.set(p.KeyHash, pool)
		return true, nil
	})
}

// poolreap is NEWEPOCH sub-rule 3: remove every pool whose retirement
// epoch has been reached, refunding its deposit to the reward account
// that is current *after* SNAP -- which, since SNAP never touches
// RewardAccount, is simply whatever PoolRegisterDelta most recently set,
// read here from committed state (a pool can re-register with a
// different reward account between announcing retirement and the
// retirement epoch; reading fresh each time picks that up).
func (u *EwrapUnit) poolreap() {
	_ = u.State.IterEntities(entity.NamespacePools, func(key entity.EntityKey, cbor []byte) (bool, error) {
		var p cardano.Pool
		if err := entity.DefaultCodec.Decode(cbor, &p); err != nil {
			return false, err
		}
		if p.RetiringEpoch == nil || *p.RetiringEpoch > u.EpochNo+1 {
			return true, nil
		}
		u.pools.remove(p.KeyHash)

		if len(p.RewardAccount) == 0 {
			return true, nil
		}
		acc, found := u.accounts.get(p.RewardAccount)
		if !found || !acc.Registered {
			return true, nil
		}
		acc.RewardsLive += u.PoolDeposit
		u.accounts.set(p.RewardAccount, acc)
		u.epoch.Deposits -= u.PoolDeposit
		return true, nil
	})
}

// governance enacts or cancels every unresolved proposal the resolver has
// an opinion on, refunding its deposit to its return address when the
// account backing it is still registered (spec 4.7.4; refund timing
// mirrors wrapup.rs's define_proposal_valid_refunds).
func (u *EwrapUnit) governance() {
	_ = u.State.IterEntities(entity.NamespaceProposals, func(key entity.EntityKey, cbor []byte) (bool, error) {
		var p cardano.Proposal
		if err := entity.DefaultCodec.Decode(cbor, &p); err != nil {
			return false, err
		}
		if p.Outcome != cardano.ProposalOutcomeUnknown {
			return true, nil
		}

		outcome, decidingEpoch, ok := u.Resolver.Resolve(p.TxHash, p.ActionIndex, u.EpochNo)
		if !ok {
			if u.EpochNo < p.ExpiresEpoch {
				return true, nil
			}
			outcome, decidingEpoch = cardano.ProposalOutcomeCanceled, u.EpochNo
		}

		id := proposalOverlayId(p.TxHash, p.ActionIndex)
		prop, _ := u.proposals.get(id)
		prop.Outcome = outcome
		prop.OutcomeEpoch = decidingEpoch
		prop.Enacted = outcome == cardano.ProposalOutcomeRatified || outcome == cardano.ProposalOutcomeRatifiedCurrentEp
		u.proposals.set(id, prop)

		if len(p.ReturnAddress) == 0 {
			return true, nil
		}
		acc, found := u.accounts.get(p.ReturnAddress)
		if !found || !acc.Registered {
			return true, nil
		}
		acc.RewardsLive += p.Deposit
		u.accounts.set(p.ReturnAddress, acc)
		u.epoch.Deposits -= p.Deposit
		return true, nil
	})
}

// proposalOverlayId reconstructs the entity-key input a Proposal was
// stored under: entity.KeyFromBytes(txHash ++ actionIndexBE32), matching
// the contract documented on cardano.Proposal.
func proposalOverlayId(txHash []byte, actionIndex uint32) []byte {
	id := make([]byte, len(txHash)+4)
	copy(id, txHash)
	id[len(txHash)] = byte(actionIndex >> 24)
	id[len(txHash)+1] = byte(actionIndex >> 16)
	id[len(txHash)+2] = byte(actionIndex >> 8)
	id[len(txHash)+3] = byte(actionIndex)
	return id
}

func (u *EwrapUnit) CommitWal(w storage.WalWriter) error {
	return w.Append(u.Point, storage.LogEntry{Deltas: u.buildDeltas()})
}

func (u *EwrapUnit) buildDeltas() []entity.Delta {
	var deltas []entity.Delta
	deltas = append(deltas, u.accounts.deltas(
		func(id []byte, v cardano.Account, prev []byte) entity.Delta {
			return &AccountWriteDelta{Cred: id, New: v, Prev: prev}
		},
		func(id []byte, prev []byte) entity.Delta {
			return &AccountWriteDelta{Cred: id, New: cardano.Account{}, Prev: prev}
		},
	)...)
	deltas = append(deltas, u.pools.deltas(
		func(id []byte, v cardano.Pool, prev []byte) entity.Delta {
			return &PoolWriteDelta{KeyHash: id, New: v, Prev: prev}
		},
		func(id []byte, prev []byte) entity.Delta {
			return &cardano.PoolRemoveDelta{KeyHash: id, Prev: prev}
		},
	)...)
	deltas = append(deltas, u.proposals.deltas(
		func(id []byte, v cardano.Proposal, prev []byte) entity.Delta {
			return &cardano.ProposalResolveDelta{EntKey: entity.KeyFromBytes(id), Outcome: v.Outcome, Epoch: v.OutcomeEpoch, Enacted: v.Enacted, Prev: prev}
		},
		func(id []byte, prev []byte) entity.Delta {
			return &cardano.ProposalResolveDelta{EntKey: entity.KeyFromBytes(id), Prev: prev}
		},
	)...)
	for _, pr := range u.pending {
		prev, _, _ := u.State.ReadEntity(entity.NamespacePendingRewards, entity.KeyFromBytes(pr.Credential))
		deltas = append(deltas, &cardano.PendingRewardConsumeDelta{Cred: pr.Credential, Prev: prev})
	}
	deltas = append(deltas, &cardano.EpochWriteDelta{EpochKey: cardano.EpochKey(u.EpochNo), New: u.epoch, Prev: u.epochOrig})
	return deltas
}

func (u *EwrapUnit) CommitState(w storage.StateWriter) error {
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

func (u *EwrapUnit) CommitArchive(w storage.ArchiveWriter) error {
	for _, rl := range u.rewardLogs {
		log := cardano.RewardLog{Credential: rl.Credential, Epoch: u.EpochNo, PoolId: rl.PoolId, Type: rl.Type, Amount: rl.Amount}
		cbor, err := entity.DefaultCodec.Encode(log)
		if err != nil {
			return err
		}
		if err := w.WriteLog(storage.LogEntity{
			Namespace: entity.NamespaceRewards,
			Slot:      u.Point.Slot,
			Key:       entity.KeyFromBytes(rl.Credential),
			Cbor:      cbor,
		}); err != nil {
			return err
		}
	}
	return w.SetCursor(u.Point)
}

func (u *EwrapUnit) CommitIndexes(w storage.IndexWriter) error {
	return w.SetCursor(u.Point)
}

func (u *EwrapUnit) TipEvents() []event.TipEvent              { return nil }
func (u *EwrapUnit) MempoolUpdates() []workunit.MempoolUpdate { return nil }
