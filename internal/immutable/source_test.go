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

package immutable_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/txpipe/dolos/cardano"
	"github.com/txpipe/dolos/internal/immutable"
	"github.com/txpipe/dolos/workbuffer"
)

func TestWriterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w, err := immutable.NewWriter(dir)
	require.NoError(t, err)

	genesis := workbuffer.BlockMeta{Slot: 0, IsGenesis: true}
	genesis.Hash[0] = 0xaa
	first := workbuffer.BlockMeta{Slot: 100}
	first.Hash[0] = 0xbb
	second := workbuffer.BlockMeta{Slot: 50}
	second.Hash[0] = 0xcc

	require.NoError(t, w.WriteBlock(genesis, cardano.RawBlock{Type: 0, Cbor: []byte("genesis")}))
	require.NoError(t, w.WriteBlock(first, cardano.RawBlock{Type: 6, Cbor: []byte("block-100")}))
	require.NoError(t, w.WriteBlock(second, cardano.RawBlock{Type: 6, Cbor: []byte("block-50")}))

	metas, err := w.Metas()
	require.NoError(t, err)
	require.Len(t, metas, 3)
	require.Equal(t, []uint64{0, 50, 100}, []uint64{metas[0].Slot, metas[1].Slot, metas[2].Slot})
	require.True(t, metas[0].IsGenesis)
	require.False(t, metas[1].IsGenesis)
	require.False(t, metas[2].IsGenesis)
	require.Equal(t, genesis.Hash, metas[0].Hash)

	src := immutable.NewSource(dir)
	raws, err := src.FetchBlocks(metas)
	require.NoError(t, err)
	require.Equal(t, "genesis", string(raws[0].Cbor))
	require.Equal(t, "block-50", string(raws[1].Cbor))
	require.Equal(t, "block-100", string(raws[2].Cbor))
	require.Equal(t, uint(6), raws[2].Type)
}

func TestFetchBlocksMissingFile(t *testing.T) {
	dir := t.TempDir()
	src := immutable.NewSource(dir)
	meta := workbuffer.BlockMeta{Slot: 5}
	_, err := src.FetchBlocks([]workbuffer.BlockMeta{meta})
	require.Error(t, err)
}

func TestListMetasIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := immutable.NewWriter(dir)
	require.NoError(t, err)
	meta := workbuffer.BlockMeta{Slot: 1}
	require.NoError(t, w.WriteBlock(meta, cardano.RawBlock{Type: 6, Cbor: []byte("x")}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "garbage.blk"), []byte("x"), 0o644))

	metas, err := immutable.ListMetas(dir)
	require.NoError(t, err)
	require.Len(t, metas, 1)
}
