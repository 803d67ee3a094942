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

// Package epoch implements the three boundary work units of the reward
// cycle -- RUPD, EWRAP, ESTART -- on top of the entities and deltas
// package cardano defines. Each is a workunit.WorkUnit, driven by the same
// Executor that runs roll batches; the executor picks which kind to build
// from the workbuffer.Event it is handed.
package epoch

import "math/big"

// Params carries the protocol-parameter and genesis-derived constants RUPD
// and ESTART need, for the protocol version active at the boundary being
// processed. It is intentionally a plain struct rather than a decoded
// gouroboros pparams type: the update-proposal and pparams-versioning
// machinery that would populate it from on-chain certificates is outside
// this module's current scope (see DESIGN.md), so callers construct one
// from whatever genesis/pparams source they have.
type Params struct {
	// A0 is the pledge influence factor a0.
	A0 *big.Rat
	// K is the optimal pool count k (desired number of pools).
	K uint32
	// D is the decentralization parameter; d >= 0.8 disables the
	// apparent-performance penalty and forces eta to 1.
	D *big.Rat
	// Rho is the monetary expansion rate applied to reserves each epoch.
	Rho *big.Rat
	// Tau is the treasury cut taken from the reward pot before
	// distribution.
	Tau *big.Rat
	// EpochLength is the number of slots per epoch.
	EpochLength uint64
	// ActiveSlotCoeff is the Praos active slot coefficient f.
	ActiveSlotCoeff float64
	// ProtocolVersion is the protocol major version in effect. RUPD does
	// not read it: Load excludes unregistered accounts before calculation
	// for every protocol version, and EWRAP's applyRUpd routes any reward
	// whose account is no longer registered to treasury.
	ProtocolVersion uint
	// MaxSupply is the fixed total lovelace supply; ESTART's pot
	// recomputation asserts reserves+treasury+utxos+rewards+fees+deposits
	// equals it exactly, every epoch.
	MaxSupply uint64
}

// DelegatorMap holds, for each pool, the mark-snapshot stake of every
// account currently delegated to it. Ported from the DelegatorMap in the
// original rupd crate, minus the pallas StakeCredential type -- credentials
// are plain bytes here, matching the rest of this module.
type DelegatorMap struct {
	byPool map[string]map[string]uint64
}

// NewDelegatorMap returns an empty map.
func NewDelegatorMap() *DelegatorMap {
	return &DelegatorMap{byPool: make(map[string]map[string]uint64)}
}

// Insert records that account (identified by its stake credential) has
// stake lovelace delegated to pool at the mark snapshot.
func (m *DelegatorMap) Insert(pool, account []byte, stake uint64) {
	p := string(pool)
	if m.byPool[p] == nil {
		m.byPool[p] = make(map[string]uint64)
	}
	m.byPool[p][string(account)] = stake
}

// Stake returns the recorded stake for account under pool, or 0.
func (m *DelegatorMap) Stake(pool, account []byte) uint64 {
	return m.byPool[string(pool)][string(account)]
}

// Delegators calls fn for every (account, stake) pair recorded under pool.
func (m *DelegatorMap) Delegators(pool []byte, fn func(account []byte, stake uint64)) {
	for acc, stake := range m.byPool[string(pool)] {
		fn([]byte(acc), stake)
	}
}

// Count returns the number of delegators recorded under pool.
func (m *DelegatorMap) Count(pool []byte) int {
	return len(m.byPool[string(pool)])
}

// PoolSnapshot is one pool's mark-snapshot inputs to RUPD: its registered
// params and its total delegated stake (pool.MarkStake, already tracked on
// cardano.Pool by the SNAP step of the previous EWRAP).
type PoolSnapshot struct {
	KeyHash       []byte
	RewardAccount []byte
	Pledge        uint64
	Cost          uint64
	MarginNum     uint64
	MarginDenom   uint64
	Stake         uint64
	BlocksMade    uint64
}

// StakeSnapshot is the complete mark-epoch view RUPD computes rewards
// against: every pool's snapshot params plus every account's mark stake,
// grouped by the pool it delegates to.
type StakeSnapshot struct {
	Pools             []PoolSnapshot
	Delegators        *DelegatorMap
	ActiveStakeSum    uint64
	CirculatingSupply uint64
	EpochBlocksTotal  uint64
}
