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
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/txpipe/dolos/cardano"
	"github.com/txpipe/dolos/chainpoint"
	"github.com/txpipe/dolos/entity"
)

func testParams() Params {
	return Params{
		A0:              big.NewRat(3, 10),
		K:               100,
		D:               big.NewRat(0, 1),
		Rho:             big.NewRat(1, 10),
		Tau:             big.NewRat(1, 5),
		EpochLength:     432000,
		ActiveSlotCoeff: 0.25,
		MaxSupply:       45_000_000_000_000_000,
	}
}

func buildRupdUnit(t *testing.T, state *fakeState, index *fakeIndex) *RupdUnit {
	t.Helper()
	u := NewRupdUnit(state, index, testParams(), 10, chainpoint.Point{Slot: 1_000, Hash: []byte("h")})
	return u
}

// TestRupdUnitComputeDistributesRewards exercises Compute/CommitWal/
// CommitState/CommitArchive directly against a hand-assembled snapshot,
// bypassing Load's live-UTxO stake resolution (which needs real
// gouroboros-encoded transaction output CBOR to exercise meaningfully).
func TestRupdUnitComputeDistributesRewards(t *testing.T) {
	state := newFakeState()
	index := newFakeIndex()
	u := buildRupdUnit(t, state, index)

	poolKey := []byte("pool-aaaaaaaaaaaaaaaaaaaaaaaaaa")
	rewardAcct := []byte("reward-acct-aaaaaaaaaaaaaaaaaaa")
	delegator := []byte("delegator-aaaaaaaaaaaaaaaaaaaaa")

	delegators := NewDelegatorMap()
	// Owner pledge must be met by the owner's own stake under the reward
	// account, or poolRewards treats the pledge as unmet and zeroes the
	// payout; the remaining stake is a separate public delegator.
	delegators.Insert(poolKey, rewardAcct, 100_000)
	delegators.Insert(poolKey, delegator, 400_000)

	// CommitState adjusts the stored closing-epoch entity, so it carries the
	// same pots the unit is handed directly below.
	state.put(entity.NamespaceEpochs, cardano.EpochKey(10), cardano.Epoch{Number: 10, Reserves: 1_000_000_000, Fees: 10_000})
	u.reserves = 1_000_000_000
	u.fees = 10_000
	u.snapshot = StakeSnapshot{
		Pools: []PoolSnapshot{
			{
				KeyHash:       poolKey,
				RewardAccount: rewardAcct,
				Pledge:        100_000,
				Cost:          50,
				MarginNum:     1,
				MarginDenom:   100,
				Stake:         500_000,
				BlocksMade:    5,
			},
		},
		Delegators:        delegators,
		ActiveStakeSum:    500_000,
		CirculatingSupply: 10_000_000,
		EpochBlocksTotal:  10,
	}

	require.NoError(t, u.Compute(context.Background()))
	require.Positive(t, u.pot.Incentives)
	require.NotEmpty(t, u.rewards)

	var sawLeader bool
	memberCreds := make(map[string]bool)
	for _, r := range u.rewards {
		if r.Type == cardano.RewardTypeLeader {
			sawLeader = true
			require.Equal(t, string(rewardAcct), string(r.Cred))
		}
		if r.Type == cardano.RewardTypeMember {
			memberCreds[string(r.Cred)] = true
		}
	}
	_, sawMember := memberCreds[string(delegator)]
	require.True(t, sawLeader)
	require.True(t, sawMember)

	wal := &fakeWal{}
	require.NoError(t, u.CommitWal(wal))
	require.Len(t, wal.entries, 1)
	require.Len(t, wal.entries[0].Deltas, len(u.rewards)+2)

	writer, err := state.StartWriter()
	require.NoError(t, err)
	require.NoError(t, u.CommitState(writer))
	require.NoError(t, writer.Commit())

	epCbor, found, err := state.ReadEntity(entity.NamespaceEpochs, cardano.EpochKey(10))
	require.NoError(t, err)
	require.True(t, found)
	var ep cardano.Epoch
	require.NoError(t, entity.DefaultCodec.Decode(epCbor, &ep))
	require.Equal(t, u.reserves-u.pot.Incentives, ep.Reserves)
	require.Equal(t, u.pot.TreasuryTax, ep.Treasury)

	archive := &fakeArchive{}
	require.NoError(t, u.CommitArchive(archive))
	require.Len(t, archive.logs, 1)
}

func TestRupdUnitNoRewardsWhenCirculatingZero(t *testing.T) {
	state := newFakeState()
	index := newFakeIndex()
	u := buildRupdUnit(t, state, index)
	u.snapshot = StakeSnapshot{CirculatingSupply: 0}

	require.NoError(t, u.Compute(context.Background()))
	require.Empty(t, u.rewards)
}
