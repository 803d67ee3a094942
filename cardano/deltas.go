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

package cardano

import (
	"github.com/txpipe/dolos/entity"
)

// Every delta below captures the entity's pre-image (Prev, nil if the
// entity didn't exist) at construction time -- the visitor always reads
// current state before building a delta, so Undo never has to recompute
// anything: it just hands Prev back. Apply still does the real field-level
// mutation so forward application reads as the actual business rule, not
// an opaque blob restore.

func decodeOr[T any](b []byte) (T, bool) {
	var v T
	if b == nil {
		return v, false
	}
	if err := entity.DefaultCodec.Decode(b, &v); err != nil {
		return v, false
	}
	return v, true
}

func encode(v any) []byte {
	b, err := entity.DefaultCodec.Encode(v)
	if err != nil {
		// Entities here are plain structs of bytes/ints/strings; a CBOR
		// encode failure means a programming error, not a runtime
		// condition a caller can recover from.
		panic(err)
	}
	return b
}

// AccountRegisterDelta registers a stake credential, or re-registers one
// that had previously deregistered.
type AccountRegisterDelta struct {
	Cred    []byte
	Deposit uint64
	Slot    uint64
	Prev    []byte
}

func (d *AccountRegisterDelta) Key() entity.NsKey {
	return entity.NsKey{Namespace: entity.NamespaceAccounts, Key: entity.KeyFromBytes(d.Cred)}
}

func (d *AccountRegisterDelta) Apply(_ []byte) ([]byte, error) {
	acc, _ := decodeOr[Account](d.Prev)
	acc.Credential = d.Cred
	acc.Registered = true
	acc.Deposit = d.Deposit
	acc.RegisteredSlot = d.Slot
	return encode(acc), nil
}

func (d *AccountRegisterDelta) Undo(_ []byte) ([]byte, error) { return d.Prev, nil }
func (d *AccountRegisterDelta) Tag() string                   { return "cardano.account_register" }

// AccountDeregisterDelta marks a stake credential unregistered. The
// credential's prior deposit is refunded via the transaction's own
// outputs, not tracked here.
type AccountDeregisterDelta struct {
	Cred []byte
	Prev []byte
}

func (d *AccountDeregisterDelta) Key() entity.NsKey {
	return entity.NsKey{Namespace: entity.NamespaceAccounts, Key: entity.KeyFromBytes(d.Cred)}
}

func (d *AccountDeregisterDelta) Apply(_ []byte) ([]byte, error) {
	acc, _ := decodeOr[Account](d.Prev)
	acc.Registered = false
	acc.DelegatedPool = nil
	acc.DelegatedDrep = nil
	return encode(acc), nil
}

func (d *AccountDeregisterDelta) Undo(_ []byte) ([]byte, error) { return d.Prev, nil }
func (d *AccountDeregisterDelta) Tag() string                   { return "cardano.account_deregister" }

// AccountDelegateDelta changes which pool a stake credential delegates to.
type AccountDelegateDelta struct {
	Cred   []byte
	PoolId []byte
	Prev   []byte
}

func (d *AccountDelegateDelta) Key() entity.NsKey {
	return entity.NsKey{Namespace: entity.NamespaceAccounts, Key: entity.KeyFromBytes(d.Cred)}
}

func (d *AccountDelegateDelta) Apply(_ []byte) ([]byte, error) {
	acc, _ := decodeOr[Account](d.Prev)
	acc.Credential = d.Cred
	acc.DelegatedPool = d.PoolId
	return encode(acc), nil
}

func (d *AccountDelegateDelta) Undo(_ []byte) ([]byte, error) { return d.Prev, nil }
func (d *AccountDelegateDelta) Tag() string                   { return "cardano.account_delegate" }

// AccountVoteDelegateDelta changes which DRep a stake credential
// delegates its voting power to.
type AccountVoteDelegateDelta struct {
	Cred []byte
	Drep []byte
	Prev []byte
}

func (d *AccountVoteDelegateDelta) Key() entity.NsKey {
	return entity.NsKey{Namespace: entity.NamespaceAccounts, Key: entity.KeyFromBytes(d.Cred)}
}

func (d *AccountVoteDelegateDelta) Apply(_ []byte) ([]byte, error) {
	acc, _ := decodeOr[Account](d.Prev)
	acc.Credential = d.Cred
	acc.DelegatedDrep = d.Drep
	return encode(acc), nil
}

func (d *AccountVoteDelegateDelta) Undo(_ []byte) ([]byte, error) { return d.Prev, nil }
func (d *AccountVoteDelegateDelta) Tag() string                   { return "cardano.account_vote_delegate" }

// RewardCreditAccountDelta adds Amount to an account's live rewards pot.
// Used both by EWRAP's applyRUpd (crediting a still-registered account)
// and by POOLREAP (crediting a pool's current reward account with its
// refunded deposit).
type RewardCreditAccountDelta struct {
	Cred   []byte
	Amount uint64
	Prev   []byte
}

func (d *RewardCreditAccountDelta) Key() entity.NsKey {
	return entity.NsKey{Namespace: entity.NamespaceAccounts, Key: entity.KeyFromBytes(d.Cred)}
}

func (d *RewardCreditAccountDelta) Apply(_ []byte) ([]byte, error) {
	acc, _ := decodeOr[Account](d.Prev)
	acc.Credential = d.Cred
	acc.RewardsLive += d.Amount
	return encode(acc), nil
}

func (d *RewardCreditAccountDelta) Undo(_ []byte) ([]byte, error) { return d.Prev, nil }
func (d *RewardCreditAccountDelta) Tag() string                   { return "cardano.reward_credit_account" }

// AccountWithdrawDelta subtracts Amount from an account's live rewards
// pot when a transaction withdraws from it.
type AccountWithdrawDelta struct {
	Cred   []byte
	Amount uint64
	Prev   []byte
}

func (d *AccountWithdrawDelta) Key() entity.NsKey {
	return entity.NsKey{Namespace: entity.NamespaceAccounts, Key: entity.KeyFromBytes(d.Cred)}
}

func (d *AccountWithdrawDelta) Apply(_ []byte) ([]byte, error) {
	acc, _ := decodeOr[Account](d.Prev)
	acc.Credential = d.Cred
	acc.RewardsLive -= d.Amount
	return encode(acc), nil
}

func (d *AccountWithdrawDelta) Undo(_ []byte) ([]byte, error) { return d.Prev, nil }
func (d *AccountWithdrawDelta) Tag() string                   { return "cardano.account_withdraw" }

// PoolRegisterDelta registers a stake pool, or updates an already
// registered one; re-registration cancels any pending retirement.
type PoolRegisterDelta struct {
	KeyHash       []byte
	VrfKeyHash    []byte
	RewardAccount []byte
	Pledge        uint64
	Cost          uint64
	MarginNum     uint64
	MarginDenom   uint64
	Owners        [][]byte
	Relays        [][]byte
	Metadata      []byte
	Slot          uint64
	Prev          []byte
}

func (d *PoolRegisterDelta) Key() entity.NsKey {
	return entity.NsKey{Namespace: entity.NamespacePools, Key: entity.KeyFromBytes(d.KeyHash)}
}

func (d *PoolRegisterDelta) Apply(_ []byte) ([]byte, error) {
	pool, _ := decodeOr[Pool](d.Prev)
	pool.KeyHash = d.KeyHash
	pool.VrfKeyHash = d.VrfKeyHash
	pool.RewardAccount = d.RewardAccount
	pool.Pledge = d.Pledge
	pool.Cost = d.Cost
	pool.MarginNum = d.MarginNum
	pool.MarginDenom = d.MarginDenom
	pool.Owners = d.Owners
	pool.Relays = d.Relays
	pool.Metadata = d.Metadata
	pool.RegisteredSlot = d.Slot
	pool.RetiringEpoch = nil
	return encode(pool), nil
}

func (d *PoolRegisterDelta) Undo(_ []byte) ([]byte, error) { return d.Prev, nil }
func (d *PoolRegisterDelta) Tag() string                   { return "cardano.pool_register" }

// PoolRetireDelta schedules a pool for retirement at a future epoch. It
// does not remove the pool; POOLREAP does that via PoolRemoveDelta once
// the retiring epoch is reached.
type PoolRetireDelta struct {
	KeyHash       []byte
	RetiringEpoch uint64
	Prev          []byte
}

func (d *PoolRetireDelta) Key() entity.NsKey {
	return entity.NsKey{Namespace: entity.NamespacePools, Key: entity.KeyFromBytes(d.KeyHash)}
}

func (d *PoolRetireDelta) Apply(_ []byte) ([]byte, error) {
	pool, ok := decodeOr[Pool](d.Prev)
	if !ok {
		pool.KeyHash = d.KeyHash
	}
	epoch := d.RetiringEpoch
	pool.RetiringEpoch = &epoch
	return encode(pool), nil
}

func (d *PoolRetireDelta) Undo(_ []byte) ([]byte, error) { return d.Prev, nil }
func (d *PoolRetireDelta) Tag() string                   { return "cardano.pool_retire" }

// PoolBlockMintedDelta increments a pool's current-epoch minted-block
// counter, used by RUPD's pool-made-blocks-only eta calculation and by the
// leader-reward share.
type PoolBlockMintedDelta struct {
	KeyHash []byte
	Prev    []byte
}

func (d *PoolBlockMintedDelta) Key() entity.NsKey {
	return entity.NsKey{Namespace: entity.NamespacePools, Key: entity.KeyFromBytes(d.KeyHash)}
}

func (d *PoolBlockMintedDelta) Apply(_ []byte) ([]byte, error) {
	pool, _ := decodeOr[Pool](d.Prev)
	pool.KeyHash = d.KeyHash
	pool.BlocksMade++
	return encode(pool), nil
}

func (d *PoolBlockMintedDelta) Undo(_ []byte) ([]byte, error) { return d.Prev, nil }
func (d *PoolBlockMintedDelta) Tag() string                   { return "cardano.pool_block_minted" }

// PoolRemoveDelta deletes a pool entity at POOLREAP once its retirement
// epoch is reached. The deposit refund is a separate
// RewardCreditAccountDelta against the pool's current reward account.
type PoolRemoveDelta struct {
	KeyHash []byte
	Prev    []byte
}

func (d *PoolRemoveDelta) Key() entity.NsKey {
	return entity.NsKey{Namespace: entity.NamespacePools, Key: entity.KeyFromBytes(d.KeyHash)}
}

func (d *PoolRemoveDelta) Apply(_ []byte) ([]byte, error) { return nil, nil }
func (d *PoolRemoveDelta) Undo(_ []byte) ([]byte, error)  { return d.Prev, nil }
func (d *PoolRemoveDelta) Tag() string                    { return "cardano.pool_remove" }

// PoolSnapshotRotateDelta advances a pool's mark stake snapshot to live at
// SNAP, ahead of POOLREAP running in the same EWRAP pass.
type PoolSnapshotRotateDelta struct {
	KeyHash []byte
	NewMark uint64
	Prev    []byte
}

func (d *PoolSnapshotRotateDelta) Key() entity.NsKey {
	return entity.NsKey{Namespace: entity.NamespacePools, Key: entity.KeyFromBytes(d.KeyHash)}
}

func (d *PoolSnapshotRotateDelta) Apply(_ []byte) ([]byte, error) {
	pool, _ := decodeOr[Pool](d.Prev)
	pool.KeyHash = d.KeyHash
	pool.LiveStake = pool.MarkStake
	pool.MarkStake = d.NewMark
	return encode(pool), nil
}

func (d *PoolSnapshotRotateDelta) Undo(_ []byte) ([]byte, error) { return d.Prev, nil }
func (d *PoolSnapshotRotateDelta) Tag() string                   { return "cardano.pool_snapshot_rotate" }

// MirDelta applies a move-instantaneous-rewards certificate to a stake
// credential's live rewards. Pre-Alonzo (protocol < 5) the amount
// overwrites the account's live rewards instead of adding to them, so of
// two MIRs to the same address applied in order the last one wins. The
// visitor reads each MIR's Prev from committed state.
type MirDelta struct {
	Cred            []byte
	Amount          int64
	ProtocolVersion uint
	Prev            []byte
}

func (d *MirDelta) Key() entity.NsKey {
	return entity.NsKey{Namespace: entity.NamespaceAccounts, Key: entity.KeyFromBytes(d.Cred)}
}

func (d *MirDelta) Apply(_ []byte) ([]byte, error) {
	acc, _ := decodeOr[Account](d.Prev)
	acc.Credential = d.Cred
	delta := d.Amount
	if d.ProtocolVersion < 5 {
		acc.RewardsLive = uint64(delta)
	} else {
		acc.RewardsLive = uint64(int64(acc.RewardsLive) + delta)
	}
	return encode(acc), nil
}

func (d *MirDelta) Undo(_ []byte) ([]byte, error) { return d.Prev, nil }
func (d *MirDelta) Tag() string                   { return "cardano.mir" }

// PendingRewardWriteDelta persists one pending-rewards entity emitted by
// RUPD for a stake credential; EWRAP's applyRUpd reads and deletes it.
type PendingRewardWriteDelta struct {
	Cred   []byte
	Epoch  uint64
	PoolId []byte
	Type   RewardType
	Amount uint64
	Prev   []byte
}

func (d *PendingRewardWriteDelta) Key() entity.NsKey {
	return entity.NsKey{Namespace: entity.NamespacePendingRewards, Key: entity.KeyFromBytes(d.Cred)}
}

func (d *PendingRewardWriteDelta) Apply(_ []byte) ([]byte, error) {
	return encode(PendingReward{
		Credential: d.Cred,
		Epoch:      d.Epoch,
		PoolId:     d.PoolId,
		Type:       d.Type,
		Amount:     d.Amount,
	}), nil
}

func (d *PendingRewardWriteDelta) Undo(_ []byte) ([]byte, error) { return d.Prev, nil }
func (d *PendingRewardWriteDelta) Tag() string                   { return "cardano.pending_reward_write" }

// PendingRewardConsumeDelta deletes a pending-rewards entity once EWRAP's
// applyRUpd has routed it to an account or to treasury.
type PendingRewardConsumeDelta struct {
	Cred []byte
	Prev []byte
}

func (d *PendingRewardConsumeDelta) Key() entity.NsKey {
	return entity.NsKey{Namespace: entity.NamespacePendingRewards, Key: entity.KeyFromBytes(d.Cred)}
}

func (d *PendingRewardConsumeDelta) Apply(_ []byte) ([]byte, error) { return nil, nil }
func (d *PendingRewardConsumeDelta) Undo(_ []byte) ([]byte, error)  { return d.Prev, nil }
func (d *PendingRewardConsumeDelta) Tag() string                    { return "cardano.pending_reward_consume" }

// EpochPotField names one of the pot accounting fields on an Epoch entity
// EpochAdjustDelta can move funds into or out of.
type EpochPotField string

const (
	EpochPotReserves EpochPotField = "reserves"
	EpochPotTreasury EpochPotField = "treasury"
	EpochPotFees     EpochPotField = "fees"
	EpochPotUtxos    EpochPotField = "utxos"
	EpochPotDeposits EpochPotField = "deposits"
	EpochPotRewards  EpochPotField = "rewards"
)

// EpochAdjustDelta adds (or, with a negative Amount, subtracts) lovelace
// from one pot field of an Epoch entity. Used by applyRUpd (rewards pot,
// treasury routing) and by ESTART's pot recomputation.
type EpochAdjustDelta struct {
	EpochKey entity.EntityKey
	Field    EpochPotField
	Amount   int64
	Prev     []byte
}

func (d *EpochAdjustDelta) Key() entity.NsKey {
	return entity.NsKey{Namespace: entity.NamespaceEpochs, Key: d.EpochKey}
}

func (d *EpochAdjustDelta) Apply(_ []byte) ([]byte, error) {
	ep, _ := decodeOr[Epoch](d.Prev)
	switch d.Field {
	case EpochPotReserves:
		ep.Reserves = uint64(int64(ep.Reserves) + d.Amount)
	case EpochPotTreasury:
		ep.Treasury = uint64(int64(ep.Treasury) + d.Amount)
	case EpochPotFees:
		ep.Fees = uint64(int64(ep.Fees) + d.Amount)
	case EpochPotUtxos:
		ep.Utxos = uint64(int64(ep.Utxos) + d.Amount)
	case EpochPotDeposits:
		ep.Deposits = uint64(int64(ep.Deposits) + d.Amount)
	case EpochPotRewards:
		ep.Rewards = uint64(int64(ep.Rewards) + d.Amount)
	}
	return encode(ep), nil
}

func (d *EpochAdjustDelta) Undo(_ []byte) ([]byte, error) { return d.Prev, nil }
func (d *EpochAdjustDelta) Tag() string                   { return "cardano.epoch_adjust" }

// EpochWriteDelta replaces an Epoch entity wholesale; used at ESTART to
// persist the newly rotated epoch (candidate nonce, protocol version,
// recomputed pots already folded in via New).
type EpochWriteDelta struct {
	EpochKey entity.EntityKey
	New      Epoch
	Prev     []byte
}

func (d *EpochWriteDelta) Key() entity.NsKey {
	return entity.NsKey{Namespace: entity.NamespaceEpochs, Key: d.EpochKey}
}

func (d *EpochWriteDelta) Apply(_ []byte) ([]byte, error) { return encode(d.New), nil }
func (d *EpochWriteDelta) Undo(_ []byte) ([]byte, error)  { return d.Prev, nil }
func (d *EpochWriteDelta) Tag() string                    { return "cardano.epoch_write" }

// DRepWriteDelta registers or updates a DRep.
type DRepWriteDelta struct {
	Cred       []byte
	AnchorUrl  string
	AnchorHash []byte
	Deposit    uint64
	Slot       uint64
	Prev       []byte
}

func (d *DRepWriteDelta) Key() entity.NsKey {
	return entity.NsKey{Namespace: entity.NamespaceDReps, Key: entity.KeyFromBytes(d.Cred)}
}

func (d *DRepWriteDelta) Apply(_ []byte) ([]byte, error) {
	drep, _ := decodeOr[DRep](d.Prev)
	drep.Credential = d.Cred
	drep.AnchorUrl = d.AnchorUrl
	drep.AnchorHash = d.AnchorHash
	if d.Deposit > 0 {
		drep.Deposit = d.Deposit
	}
	drep.RegisteredSlot = d.Slot
	drep.Retired = false
	return encode(drep), nil
}

func (d *DRepWriteDelta) Undo(_ []byte) ([]byte, error) { return d.Prev, nil }
func (d *DRepWriteDelta) Tag() string                   { return "cardano.drep_write" }

// DRepRetireDelta marks a DRep retired.
type DRepRetireDelta struct {
	Cred []byte
	Prev []byte
}

func (d *DRepRetireDelta) Key() entity.NsKey {
	return entity.NsKey{Namespace: entity.NamespaceDReps, Key: entity.KeyFromBytes(d.Cred)}
}

func (d *DRepRetireDelta) Apply(_ []byte) ([]byte, error) {
	drep, _ := decodeOr[DRep](d.Prev)
	drep.Credential = d.Cred
	drep.Retired = true
	return encode(drep), nil
}

func (d *DRepRetireDelta) Undo(_ []byte) ([]byte, error) { return d.Prev, nil }
func (d *DRepRetireDelta) Tag() string                   { return "cardano.drep_retire" }

// ProposalWriteDelta persists a newly submitted governance proposal.
type ProposalWriteDelta struct {
	EntKey entity.EntityKey
	New    Proposal
	Prev   []byte
}

func (d *ProposalWriteDelta) Key() entity.NsKey {
	return entity.NsKey{Namespace: entity.NamespaceProposals, Key: d.EntKey}
}

func (d *ProposalWriteDelta) Apply(_ []byte) ([]byte, error) { return encode(d.New), nil }
func (d *ProposalWriteDelta) Undo(_ []byte) ([]byte, error)  { return d.Prev, nil }
func (d *ProposalWriteDelta) Tag() string                    { return "cardano.proposal_write" }

// ProposalResolveDelta records the decision-table outcome for a proposal,
// used by the governance package at EWRAP enactment time.
type ProposalResolveDelta struct {
	EntKey  entity.EntityKey
	Outcome ProposalOutcome
	Epoch   uint64
	Enacted bool
	Prev    []byte
}

func (d *ProposalResolveDelta) Key() entity.NsKey {
	return entity.NsKey{Namespace: entity.NamespaceProposals, Key: d.EntKey}
}

func (d *ProposalResolveDelta) Apply(_ []byte) ([]byte, error) {
	prop, _ := decodeOr[Proposal](d.Prev)
	prop.Outcome = d.Outcome
	prop.OutcomeEpoch = d.Epoch
	prop.Enacted = d.Enacted
	return encode(prop), nil
}

func (d *ProposalResolveDelta) Undo(_ []byte) ([]byte, error) { return d.Prev, nil }
func (d *ProposalResolveDelta) Tag() string                   { return "cardano.proposal_resolve" }

// DatumWriteDelta persists a witnessed Plutus datum, keyed by its hash.
// Datums are immutable once seen, so Apply is idempotent on replay.
type DatumWriteDelta struct {
	Hash []byte
	Cbor []byte
	Prev []byte
}

func (d *DatumWriteDelta) Key() entity.NsKey {
	return entity.NsKey{Namespace: entity.NamespaceDatums, Key: entity.KeyFromBytes(d.Hash)}
}

func (d *DatumWriteDelta) Apply(_ []byte) ([]byte, error) {
	return encode(Datum{Hash: d.Hash, Cbor: d.Cbor}), nil
}

func (d *DatumWriteDelta) Undo(_ []byte) ([]byte, error) { return d.Prev, nil }
func (d *DatumWriteDelta) Tag() string                   { return "cardano.datum_write" }

// AssetMintDelta adjusts a native asset's running supply by Amount (may be
// negative for a burn).
type AssetMintDelta struct {
	PolicyId []byte
	Name     []byte
	Amount   int64
	Slot     uint64
	Prev     []byte
}

func (d *AssetMintDelta) assetKey() entity.EntityKey {
	return entity.KeyFromBytes(append(append([]byte{}, d.PolicyId...), d.Name...))
}

func (d *AssetMintDelta) Key() entity.NsKey {
	return entity.NsKey{Namespace: entity.NamespaceAssets, Key: d.assetKey()}
}

func (d *AssetMintDelta) Apply(_ []byte) ([]byte, error) {
	asset, _ := decodeOr[Asset](d.Prev)
	asset.PolicyId = d.PolicyId
	asset.Name = d.Name
	if asset.MintedSlot == 0 {
		asset.MintedSlot = d.Slot
	}
	asset.Supply += d.Amount
	return encode(asset), nil
}

func (d *AssetMintDelta) Undo(_ []byte) ([]byte, error) { return d.Prev, nil }
func (d *AssetMintDelta) Tag() string                   { return "cardano.asset_mint" }

func init() {
	entity.RegisterDeltaType("cardano.account_register", func() entity.Delta { return &AccountRegisterDelta{} })
	entity.RegisterDeltaType("cardano.account_deregister", func() entity.Delta { return &AccountDeregisterDelta{} })
	entity.RegisterDeltaType("cardano.account_delegate", func() entity.Delta { return &AccountDelegateDelta{} })
	entity.RegisterDeltaType("cardano.account_vote_delegate", func() entity.Delta { return &AccountVoteDelegateDelta{} })
	entity.RegisterDeltaType("cardano.reward_credit_account", func() entity.Delta { return &RewardCreditAccountDelta{} })
	entity.RegisterDeltaType("cardano.account_withdraw", func() entity.Delta { return &AccountWithdrawDelta{} })
	entity.RegisterDeltaType("cardano.pool_register", func() entity.Delta { return &PoolRegisterDelta{} })
	entity.RegisterDeltaType("cardano.pool_retire", func() entity.Delta { return &PoolRetireDelta{} })
	entity.RegisterDeltaType("cardano.pool_block_minted", func() entity.Delta { return &PoolBlockMintedDelta{} })
	entity.RegisterDeltaType("cardano.pool_remove", func() entity.Delta { return &PoolRemoveDelta{} })
	entity.RegisterDeltaType("cardano.pool_snapshot_rotate", func() entity.Delta { return &PoolSnapshotRotateDelta{} })
	entity.RegisterDeltaType("cardano.mir", func() entity.Delta { return &MirDelta{} })
	entity.RegisterDeltaType("cardano.pending_reward_write", func() entity.Delta { return &PendingRewardWriteDelta{} })
	entity.RegisterDeltaType("cardano.pending_reward_consume", func() entity.Delta { return &PendingRewardConsumeDelta{} })
	entity.RegisterDeltaType("cardano.epoch_adjust", func() entity.Delta { return &EpochAdjustDelta{} })
	entity.RegisterDeltaType("cardano.epoch_write", func() entity.Delta { return &EpochWriteDelta{} })
	entity.RegisterDeltaType("cardano.drep_write", func() entity.Delta { return &DRepWriteDelta{} })
	entity.RegisterDeltaType("cardano.drep_retire", func() entity.Delta { return &DRepRetireDelta{} })
	entity.RegisterDeltaType("cardano.proposal_write", func() entity.Delta { return &ProposalWriteDelta{} })
	entity.RegisterDeltaType("cardano.proposal_resolve", func() entity.Delta { return &ProposalResolveDelta{} })
	entity.RegisterDeltaType("cardano.datum_write", func() entity.Delta { return &DatumWriteDelta{} })
	entity.RegisterDeltaType("cardano.asset_mint", func() entity.Delta { return &AssetMintDelta{} })
}
