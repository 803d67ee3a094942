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

// Package cardano implements the chain-specific entity variants, deltas,
// and roll batch visitor pipeline for deriving Cardano ledger state from
// decoded blocks. It is the only package that imports gouroboros's ledger
// types directly; everything below it (entity, storage, wal, workunit)
// stays chain-agnostic.
package cardano

import (
	"encoding/binary"

	"github.com/txpipe/dolos/entity"
)

// EpochKey is the canonical entity.EntityKey for the Epoch entity numbered
// epochNo -- the big-endian encoding entities.go's Epoch doc comment
// promises, factored out so package epoch doesn't have to re-derive it.
func EpochKey(epochNo uint64) entity.EntityKey {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], epochNo)
	return entity.KeyFromBytes(b[:])
}

// RewardType distinguishes the two ways a stake address can earn rewards
// in a given epoch.
type RewardType string

const (
	RewardTypeLeader RewardType = "leader"
	RewardTypeMember RewardType = "member"
)

// Account is the entity stored under entity.NamespaceAccounts, keyed by
// entity.KeyFromBytes(stakeCredential.Bytes()).
type Account struct {
	Credential     []byte
	Registered     bool
	DelegatedPool  []byte
	DelegatedDrep  []byte
	RewardsLive    uint64
	RewardsNext    uint64
	Deposit        uint64
	RegisteredSlot uint64
}

func (Account) EntityNamespace() entity.Namespace { return entity.NamespaceAccounts }

// Pool is the entity stored under entity.NamespacePools, keyed by
// entity.KeyFromBytes(poolKeyHash).
type Pool struct {
	KeyHash        []byte
	VrfKeyHash     []byte
	Pledge         uint64
	Cost           uint64
	MarginNum      uint64
	MarginDenom    uint64
	RewardAccount  []byte
	Owners         [][]byte
	Relays         [][]byte
	Metadata       []byte
	RegisteredSlot uint64
	RetiringEpoch  *uint64
	// LiveStake/MarkStake carry the two-snapshot-lagged totals used by
	// RUPD; Mark is the snapshot RUPD reads from, Live is this epoch's
	// running total as blocks roll in.
	LiveStake uint64
	MarkStake uint64
	// BlocksMade counts blocks this pool minted in the current epoch,
	// reset at ESTART; used for the leader-reward share and for the
	// pool-made-blocks-only eta calculation.
	BlocksMade uint64
}

func (Pool) EntityNamespace() entity.Namespace { return entity.NamespacePools }

// Epoch is the entity stored under entity.NamespaceEpochs, keyed by the
// big-endian encoding of the epoch number.
type Epoch struct {
	Number           uint64
	StartSlot        uint64
	ProtocolVersion  uint
	Nonce            []byte
	CandidateNonce   []byte
	Reserves         uint64
	Treasury         uint64
	Fees             uint64
	Deposits         uint64
	Utxos            uint64
	Rewards          uint64
	BlocksMadeTotal  uint64
	BlocksMadeByPool uint64
}

func (Epoch) EntityNamespace() entity.Namespace { return entity.NamespaceEpochs }

// DRep is the entity stored under entity.NamespaceDReps.
type DRep struct {
	Credential     []byte
	AnchorUrl      string
	AnchorHash     []byte
	Deposit        uint64
	RegisteredSlot uint64
	Retired        bool
}

func (DRep) EntityNamespace() entity.Namespace { return entity.NamespaceDReps }

// ProposalOutcome is the decision-table verdict recorded against a
// Proposal once resolved (see package governance).
type ProposalOutcome string

const (
	ProposalOutcomeUnknown           ProposalOutcome = "unknown"
	ProposalOutcomeRatified          ProposalOutcome = "ratified"
	ProposalOutcomeCanceled          ProposalOutcome = "canceled"
	ProposalOutcomeRatifiedCurrentEp ProposalOutcome = "ratified_current_epoch"
)

// Proposal is the entity stored under entity.NamespaceProposals, keyed by
// entity.KeyFromBytes(txHash ++ actionIndexBE32).
type Proposal struct {
	TxHash        []byte
	ActionIndex   uint32
	ActionType    string
	Deposit       uint64
	ReturnAddress []byte
	ProposedEpoch uint64
	ExpiresEpoch  uint64
	Outcome       ProposalOutcome
	OutcomeEpoch  uint64
	Enacted       bool
}

func (Proposal) EntityNamespace() entity.Namespace { return entity.NamespaceProposals }

// Asset is the entity stored under entity.NamespaceAssets, keyed by
// entity.KeyFromBytes(policyId ++ assetName).
type Asset struct {
	PolicyId    []byte
	Name        []byte
	Fingerprint string
	MintedSlot  uint64
	Supply      int64
}

func (Asset) EntityNamespace() entity.Namespace { return entity.NamespaceAssets }

// Datum is the entity stored under entity.NamespaceDatums, keyed by
// entity.KeyFromBytes(datumHash).
type Datum struct {
	Hash []byte
	Cbor []byte
}

func (Datum) EntityNamespace() entity.Namespace { return entity.NamespaceDatums }

// EraSummary is the entity stored under entity.NamespaceEras, keyed by
// entity.KeyFromBytes(eraIdBE32). It records the slot each era began at
// and the genesis-derived constants that don't change within an era.
type EraSummary struct {
	EraId           uint
	StartSlot       uint64
	EpochLength     uint64
	SlotLength      uint64
	K               uint64
	F               float64
	ProtocolVersion uint
}

func (EraSummary) EntityNamespace() entity.Namespace { return entity.NamespaceEras }

// RewardLog is the entity stored under entity.NamespaceRewards, keyed by
// entity.KeyFromBytes(stakeCredential ++ epochBE64). It is append-only
// history; the current, spendable total lives on Account.
type RewardLog struct {
	Credential []byte
	Epoch      uint64
	PoolId     []byte
	Type       RewardType
	Amount     uint64
}

func (RewardLog) EntityNamespace() entity.Namespace { return entity.NamespaceRewards }

// StakeLog is the entity stored under entity.NamespaceStakes, keyed by
// entity.KeyFromBytes(stakeCredential ++ epochBE64). It is a point-in-time
// record of the mark-snapshot stake RUPD used for a given epoch, kept so
// a query layer can explain a reward payout after the fact.
type StakeLog struct {
	Credential []byte
	Epoch      uint64
	PoolId     []byte
	Amount     uint64
}

func (StakeLog) EntityNamespace() entity.Namespace { return entity.NamespaceStakes }

// PendingReward is the entity stored under entity.NamespacePendingRewards,
// keyed by entity.KeyFromBytes(stakeCredential). RUPD writes these; EWRAP's
// applyRUpd step consumes and deletes them.
type PendingReward struct {
	Credential []byte
	Epoch      uint64
	PoolId     []byte
	Type       RewardType
	Amount     uint64
}

func (PendingReward) EntityNamespace() entity.Namespace { return entity.NamespacePendingRewards }
