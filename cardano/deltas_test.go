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

package cardano_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/txpipe/dolos/cardano"
	"github.com/txpipe/dolos/entity"
)

func encodeEntity(t *testing.T, v any) []byte {
	t.Helper()
	b, err := entity.DefaultCodec.Encode(v)
	require.NoError(t, err)
	return b
}

// applyUndo asserts the core entity.Delta contract: Undo(Apply(pre)) ==
// pre, bit for bit.
func applyUndo(t *testing.T, d entity.Delta, pre []byte) []byte {
	t.Helper()
	post, err := d.Apply(pre)
	require.NoError(t, err)
	undone, err := d.Undo(post)
	require.NoError(t, err)
	require.Equal(t, pre, undone)
	return post
}

func TestAccountRegisterDelta(t *testing.T) {
	cred := []byte("stake-cred-0000000000000000000x")
	d := &cardano.AccountRegisterDelta{Cred: cred, Deposit: 2_000_000, Slot: 100, Prev: nil}
	post := applyUndo(t, d, nil)

	var acc cardano.Account
	require.NoError(t, entity.DefaultCodec.Decode(post, &acc))
	require.True(t, acc.Registered)
	require.Equal(t, uint64(2_000_000), acc.Deposit)
	require.Equal(t, uint64(100), acc.RegisteredSlot)
}

func TestAccountDeregisterDeltaClearsDelegation(t *testing.T) {
	cred := []byte("cred")
	pre := encodeEntity(t, cardano.Account{
		Credential:    cred,
		Registered:    true,
		DelegatedPool: []byte("pool"),
		DelegatedDrep: []byte("drep"),
	})
	d := &cardano.AccountDeregisterDelta{Cred: cred, Prev: pre}
	post := applyUndo(t, d, pre)

	var acc cardano.Account
	require.NoError(t, entity.DefaultCodec.Decode(post, &acc))
	require.False(t, acc.Registered)
	require.Nil(t, acc.DelegatedPool)
	require.Nil(t, acc.DelegatedDrep)
}

func TestAccountWithdrawAndRewardCreditAreInverseDirections(t *testing.T) {
	cred := []byte("cred")
	pre := encodeEntity(t, cardano.Account{Credential: cred, RewardsLive: 1000})

	credit := &cardano.RewardCreditAccountDelta{Cred: cred, Amount: 500, Prev: pre}
	post := applyUndo(t, credit, pre)
	var acc cardano.Account
	require.NoError(t, entity.DefaultCodec.Decode(post, &acc))
	require.Equal(t, uint64(1500), acc.RewardsLive)

	withdraw := &cardano.AccountWithdrawDelta{Cred: cred, Amount: 500, Prev: post}
	post2 := applyUndo(t, withdraw, post)
	var acc2 cardano.Account
	require.NoError(t, entity.DefaultCodec.Decode(post2, &acc2))
	require.Equal(t, uint64(1000), acc2.RewardsLive)
}

func TestMirDeltaPreAlonzoOverwritesPostAlonzoAccumulates(t *testing.T) {
	cred := []byte("cred")
	pre := encodeEntity(t, cardano.Account{Credential: cred, RewardsLive: 100})

	overwrite := &cardano.MirDelta{Cred: cred, Amount: 50, ProtocolVersion: 4, Prev: pre}
	post := applyUndo(t, overwrite, pre)
	var acc cardano.Account
	require.NoError(t, entity.DefaultCodec.Decode(post, &acc))
	require.Equal(t, uint64(50), acc.RewardsLive, "pre-Alonzo MIR must overwrite, not add")

	accumulate := &cardano.MirDelta{Cred: cred, Amount: 50, ProtocolVersion: 7, Prev: pre}
	post2 := applyUndo(t, accumulate, pre)
	var acc2 cardano.Account
	require.NoError(t, entity.DefaultCodec.Decode(post2, &acc2))
	require.Equal(t, uint64(150), acc2.RewardsLive, "Alonzo+ MIR must accumulate")
}

func TestPoolRegisterDeltaClearsRetirement(t *testing.T) {
	keyHash := []byte("pool-key-hash")
	retiring := uint64(42)
	pre := encodeEntity(t, cardano.Pool{KeyHash: keyHash, RetiringEpoch: &retiring})

	d := &cardano.PoolRegisterDelta{KeyHash: keyHash, Pledge: 1000, Cost: 340_000_000, Slot: 5, Prev: pre}
	post := applyUndo(t, d, pre)

	var pool cardano.Pool
	require.NoError(t, entity.DefaultCodec.Decode(post, &pool))
	require.Nil(t, pool.RetiringEpoch, "re-registration must cancel a pending retirement")
	require.Equal(t, uint64(1000), pool.Pledge)
}

func TestPoolSnapshotRotateDelta(t *testing.T) {
	keyHash := []byte("pool")
	pre := encodeEntity(t, cardano.Pool{KeyHash: keyHash, LiveStake: 10, MarkStake: 20})
	d := &cardano.PoolSnapshotRotateDelta{KeyHash: keyHash, NewMark: 30, Prev: pre}
	post := applyUndo(t, d, pre)

	var pool cardano.Pool
	require.NoError(t, entity.DefaultCodec.Decode(post, &pool))
	require.Equal(t, uint64(20), pool.LiveStake)
	require.Equal(t, uint64(30), pool.MarkStake)
}

func TestPoolBlockMintedDeltaIncrements(t *testing.T) {
	keyHash := []byte("pool")
	pre := encodeEntity(t, cardano.Pool{KeyHash: keyHash, BlocksMade: 4})
	d := &cardano.PoolBlockMintedDelta{KeyHash: keyHash, Prev: pre}
	post := applyUndo(t, d, pre)

	var pool cardano.Pool
	require.NoError(t, entity.DefaultCodec.Decode(post, &pool))
	require.Equal(t, uint64(5), pool.BlocksMade)
}

func TestPoolRemoveDeltaDeletes(t *testing.T) {
	pre := encodeEntity(t, cardano.Pool{KeyHash: []byte("pool")})
	d := &cardano.PoolRemoveDelta{KeyHash: []byte("pool"), Prev: pre}
	post, err := d.Apply(pre)
	require.NoError(t, err)
	require.Nil(t, post)
	undone, err := d.Undo(post)
	require.NoError(t, err)
	require.Equal(t, pre, undone)
}

func TestPendingRewardWriteAndConsume(t *testing.T) {
	cred := []byte("cred")
	write := &cardano.PendingRewardWriteDelta{
		Cred: cred, Epoch: 10, PoolId: []byte("pool"), Type: cardano.RewardTypeMember, Amount: 777,
	}
	post := applyUndo(t, write, nil)
	var pr cardano.PendingReward
	require.NoError(t, entity.DefaultCodec.Decode(post, &pr))
	require.Equal(t, uint64(777), pr.Amount)

	consume := &cardano.PendingRewardConsumeDelta{Cred: cred, Prev: post}
	post2, err := consume.Apply(post)
	require.NoError(t, err)
	require.Nil(t, post2)
	undone, err := consume.Undo(post2)
	require.NoError(t, err)
	require.Equal(t, post, undone)
}

func TestEpochAdjustDeltaEveryField(t *testing.T) {
	key := entity.KeyFromBytes([]byte("epoch-0"))
	pre := encodeEntity(t, cardano.Epoch{Reserves: 100, Treasury: 10, Fees: 5, Utxos: 1000, Deposits: 50, Rewards: 0})

	fields := []struct {
		field cardano.EpochPotField
		want  uint64
	}{
		{cardano.EpochPotReserves, 90},
		{cardano.EpochPotTreasury, 20},
		{cardano.EpochPotFees, 15},
		{cardano.EpochPotUtxos, 1010},
		{cardano.EpochPotDeposits, 40},
		{cardano.EpochPotRewards, 10},
	}
	amounts := map[cardano.EpochPotField]int64{
		cardano.EpochPotReserves: -10,
		cardano.EpochPotTreasury: 10,
		cardano.EpochPotFees:     10,
		cardano.EpochPotUtxos:    10,
		cardano.EpochPotDeposits: -10,
		cardano.EpochPotRewards:  10,
	}
	for _, f := range fields {
		d := &cardano.EpochAdjustDelta{EpochKey: key, Field: f.field, Amount: amounts[f.field], Prev: pre}
		post := applyUndo(t, d, pre)
		var ep cardano.Epoch
		require.NoError(t, entity.DefaultCodec.Decode(post, &ep))
		got := map[cardano.EpochPotField]uint64{
			cardano.EpochPotReserves: ep.Reserves,
			cardano.EpochPotTreasury: ep.Treasury,
			cardano.EpochPotFees:     ep.Fees,
			cardano.EpochPotUtxos:    ep.Utxos,
			cardano.EpochPotDeposits: ep.Deposits,
			cardano.EpochPotRewards:  ep.Rewards,
		}[f.field]
		require.Equal(t, f.want, got, "field %s", f.field)
	}
}

func TestDRepWriteDeltaKeepsExistingDepositWhenZero(t *testing.T) {
	cred := []byte("drep-cred")
	pre := encodeEntity(t, cardano.DRep{Credential: cred, Deposit: 500_000_000, Retired: true})
	d := &cardano.DRepWriteDelta{Cred: cred, AnchorUrl: "https://example.test/anchor", Slot: 12, Prev: pre}
	post := applyUndo(t, d, pre)

	var drep cardano.DRep
	require.NoError(t, entity.DefaultCodec.Decode(post, &drep))
	require.Equal(t, uint64(500_000_000), drep.Deposit, "a zero deposit on the cert must not clobber the existing one")
	require.False(t, drep.Retired, "an update cert must clear Retired")
}

func TestAssetMintDeltaAccumulatesSupplyAndBurnsNegative(t *testing.T) {
	policy := []byte("policy-id-000000000000000000000")
	name := []byte("MyToken")
	mint := &cardano.AssetMintDelta{PolicyId: policy, Name: name, Amount: 1000, Slot: 1}
	post := applyUndo(t, mint, nil)

	var asset cardano.Asset
	require.NoError(t, entity.DefaultCodec.Decode(post, &asset))
	require.Equal(t, int64(1000), asset.Supply)
	require.Equal(t, uint64(1), asset.MintedSlot)

	burn := &cardano.AssetMintDelta{PolicyId: policy, Name: name, Amount: -400, Slot: 2, Prev: post}
	post2 := applyUndo(t, burn, post)
	var asset2 cardano.Asset
	require.NoError(t, entity.DefaultCodec.Decode(post2, &asset2))
	require.Equal(t, int64(600), asset2.Supply)
	require.Equal(t, uint64(1), asset2.MintedSlot, "MintedSlot is set once, on first mint")
}

func TestProposalWriteThenResolve(t *testing.T) {
	key := entity.KeyFromBytes([]byte("tx-hash-and-index-000000000000x"))
	write := &cardano.ProposalWriteDelta{
		EntKey: key,
		New: cardano.Proposal{
			TxHash: []byte("txhash"), ActionIndex: 0, Deposit: 100_000_000_000,
			Outcome: cardano.ProposalOutcomeUnknown,
		},
	}
	post := applyUndo(t, write, nil)

	resolve := &cardano.ProposalResolveDelta{
		EntKey: key, Outcome: cardano.ProposalOutcomeRatified, Epoch: 500, Enacted: true, Prev: post,
	}
	post2 := applyUndo(t, resolve, post)

	var prop cardano.Proposal
	require.NoError(t, entity.DefaultCodec.Decode(post2, &prop))
	require.Equal(t, cardano.ProposalOutcomeRatified, prop.Outcome)
	require.True(t, prop.Enacted)
	require.Equal(t, uint64(500), prop.OutcomeEpoch)
}

func TestDatumWriteDeltaIsIdempotentOnReplay(t *testing.T) {
	hash := []byte("datum-hash-00000000000000000000x")
	cbor := []byte{0xa1, 0x01, 0x02}
	d := &cardano.DatumWriteDelta{Hash: hash, Cbor: cbor}
	post1 := applyUndo(t, d, nil)
	post2, err := d.Apply(nil)
	require.NoError(t, err)
	require.Equal(t, post1, post2)
}

func TestDeltaTagsRoundTripThroughRegistry(t *testing.T) {
	deltas := []entity.Delta{
		&cardano.AccountRegisterDelta{Cred: []byte("c"), Deposit: 1, Slot: 1},
		&cardano.AccountDeregisterDelta{Cred: []byte("c")},
		&cardano.AccountDelegateDelta{Cred: []byte("c"), PoolId: []byte("p")},
		&cardano.AccountVoteDelegateDelta{Cred: []byte("c"), Drep: []byte("d")},
		&cardano.RewardCreditAccountDelta{Cred: []byte("c"), Amount: 1},
		&cardano.AccountWithdrawDelta{Cred: []byte("c"), Amount: 1},
		&cardano.PoolRegisterDelta{KeyHash: []byte("p")},
		&cardano.PoolRetireDelta{KeyHash: []byte("p"), RetiringEpoch: 1},
		&cardano.PoolBlockMintedDelta{KeyHash: []byte("p")},
		&cardano.PoolRemoveDelta{KeyHash: []byte("p")},
		&cardano.PoolSnapshotRotateDelta{KeyHash: []byte("p"), NewMark: 1},
		&cardano.MirDelta{Cred: []byte("c"), Amount: 1, ProtocolVersion: 8},
		&cardano.PendingRewardWriteDelta{Cred: []byte("c"), Epoch: 1},
		&cardano.PendingRewardConsumeDelta{Cred: []byte("c")},
		&cardano.EpochAdjustDelta{EpochKey: entity.KeyFromBytes([]byte("e")), Field: cardano.EpochPotFees, Amount: 1},
		&cardano.EpochWriteDelta{EpochKey: entity.KeyFromBytes([]byte("e")), New: cardano.Epoch{Number: 1}},
		&cardano.DRepWriteDelta{Cred: []byte("c")},
		&cardano.DRepRetireDelta{Cred: []byte("c")},
		&cardano.ProposalWriteDelta{EntKey: entity.KeyFromBytes([]byte("e"))},
		&cardano.ProposalResolveDelta{EntKey: entity.KeyFromBytes([]byte("e"))},
		&cardano.DatumWriteDelta{Hash: []byte("h")},
		&cardano.AssetMintDelta{PolicyId: []byte("p"), Name: []byte("n"), Amount: 1},
	}
	for _, d := range deltas {
		b, err := entity.EncodeDelta(d)
		require.NoError(t, err, d.Tag())
		decoded, err := entity.DecodeDelta(b)
		require.NoError(t, err, d.Tag())
		require.Equal(t, d.Tag(), decoded.Tag())
		require.Equal(t, d.Key(), decoded.Key())
	}
}
