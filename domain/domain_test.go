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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/txpipe/dolos/cardano"
	"github.com/txpipe/dolos/cardano/epoch"
	"github.com/txpipe/dolos/chainpoint"
	"github.com/txpipe/dolos/storage"
	"github.com/txpipe/dolos/workbuffer"
	"github.com/txpipe/dolos/workunit"
)

type fakeSource struct{}

func (fakeSource) FetchBlocks(metas []workbuffer.BlockMeta) ([]cardano.RawBlock, error) {
	return nil, nil
}

func testGenesisParams() workbuffer.GenesisParams {
	return workbuffer.GenesisParams{EpochLength: 100, SystemStartSlot: 0, K: 10, F: 0.5}
}

func newTestDomain(t *testing.T) *Domain {
	t.Helper()
	stores, err := storage.Open(storage.Options{}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = stores.Close() })

	params := EpochParams{
		Reward:          epoch.Params{EpochLength: 100},
		PoolDeposit:     500_000_000,
		Genesis:         testGenesisParams(),
		InitialReserves: 13_888_888_888_888_888,
	}
	return New(stores, fakeSource{}, nil, params, workunit.ModeSync, nil, nil)
}

func TestDomainCurrentEpochDerivesFromCursor(t *testing.T) {
	d := newTestDomain(t)

	require.Equal(t, uint64(0), d.currentEpoch())

	w, err := d.Stores.State.StartWriter()
	require.NoError(t, err)
	require.NoError(t, w.SetCursor(chainpoint.New(250, []byte("hash-at-slot-250"))))
	require.NoError(t, w.Commit())

	require.Equal(t, uint64(2), d.currentEpoch())
}

func TestDomainBuildUnitDispatchesEveryEventKind(t *testing.T) {
	d := newTestDomain(t)
	batch := []workbuffer.BlockMeta{{Slot: 10, Hash: [32]byte{1}}}

	genesisUnit, err := d.buildUnit(workbuffer.Event{Kind: workbuffer.EventGenesis, Batch: batch})
	require.NoError(t, err)
	require.IsType(t, &cardano.GenesisUnit{}, genesisUnit)
	require.Equal(t, workunit.KindGenesis, genesisUnit.Kind())

	rollUnit, err := d.buildUnit(workbuffer.Event{Kind: workbuffer.EventRollBatch, Batch: batch})
	require.NoError(t, err)
	require.IsType(t, &cardano.RollUnit{}, rollUnit)

	rupdUnit, err := d.buildUnit(workbuffer.Event{Kind: workbuffer.EventRupd, Batch: batch})
	require.NoError(t, err)
	require.IsType(t, &epoch.RupdUnit{}, rupdUnit)

	ewrapUnit, err := d.buildUnit(workbuffer.Event{Kind: workbuffer.EventEwrap, Batch: batch})
	require.NoError(t, err)
	require.IsType(t, &epoch.EwrapUnit{}, ewrapUnit)

	estartUnit, err := d.buildUnit(workbuffer.Event{Kind: workbuffer.EventEstart, Batch: batch})
	require.NoError(t, err)
	require.IsType(t, &epoch.EstartUnit{}, estartUnit)

	_, err = d.buildUnit(workbuffer.Event{Kind: workbuffer.EventKind("bogus"), Batch: batch})
	require.Error(t, err)
}

func TestDomainBuildUnitConsumesNextCandidateNonceOnlyForEstart(t *testing.T) {
	d := newTestDomain(t)
	nonce := []byte("candidate-nonce")
	d.SetNextCandidateNonce(nonce)
	batch := []workbuffer.BlockMeta{{Slot: 10, Hash: [32]byte{1}}}

	_, err := d.buildUnit(workbuffer.Event{Kind: workbuffer.EventRollBatch, Batch: batch})
	require.NoError(t, err)
	require.Equal(t, nonce, d.nextCandidateNonce)

	_, err = d.buildUnit(workbuffer.Event{Kind: workbuffer.EventEstart, Batch: batch})
	require.NoError(t, err)
	require.Nil(t, d.nextCandidateNonce)
}

func TestDomainRollbackToResetsBuffer(t *testing.T) {
	d := newTestDomain(t)
	require.NoError(t, d.PushBlock(workbuffer.BlockMeta{Slot: 1, Hash: [32]byte{1}, IsGenesis: true}))
	require.NotEqual(t, workbuffer.StateEmpty, d.Buffer.State())

	require.NoError(t, d.RollbackTo(chainpoint.Point{}))
	require.Equal(t, workbuffer.StateEmpty, d.Buffer.State())
}

func TestDomainPushBlockDelegatesToBuffer(t *testing.T) {
	d := newTestDomain(t)
	require.Equal(t, workbuffer.StateEmpty, d.Buffer.State())
	require.NoError(t, d.PushBlock(workbuffer.BlockMeta{Slot: 1, Hash: [32]byte{1}, IsGenesis: true}))
	require.Equal(t, workbuffer.StateGenesis, d.Buffer.State())
}
