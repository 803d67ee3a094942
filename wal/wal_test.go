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

package wal_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/txpipe/dolos/chainpoint"
	"github.com/txpipe/dolos/entity"
	"github.com/txpipe/dolos/storage"
	"github.com/txpipe/dolos/wal"
)

// counterDelta is a minimal reversible delta used only by this test: the
// entity payload is a single big-endian uint64 counter, Apply adds Delta
// to it and Undo subtracts it back out.
type counterDelta struct {
	NsKey entity.NsKey
	Delta int64
}

func (d *counterDelta) Key() entity.NsKey { return d.NsKey }

func (d *counterDelta) Apply(pre []byte) ([]byte, error) {
	var cur int64
	if len(pre) == 8 {
		cur = int64(binary.BigEndian.Uint64(pre))
	}
	cur += d.Delta
	out := make([]byte, 8)
	binary.BigEndian.PutUint64(out, uint64(cur))
	return out, nil
}

func (d *counterDelta) Undo(post []byte) ([]byte, error) {
	var cur int64
	if len(post) == 8 {
		cur = int64(binary.BigEndian.Uint64(post))
	}
	cur -= d.Delta
	if cur == 0 {
		return nil, nil
	}
	out := make([]byte, 8)
	binary.BigEndian.PutUint64(out, uint64(cur))
	return out, nil
}

func (d *counterDelta) Tag() string { return "wal_test.counterDelta" }

func init() {
	entity.RegisterDeltaType("wal_test.counterDelta", func() entity.Delta {
		return &counterDelta{}
	})
}

func openStores(t *testing.T) *storage.Stores {
	t.Helper()
	stores, err := storage.Open(storage.Options{}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = stores.Close() })
	return stores
}

func pointAt(slot uint64, b byte) chainpoint.Point {
	h := make([]byte, chainpoint.HashSize)
	h[chainpoint.HashSize-1] = b
	return chainpoint.New(slot, h)
}

func TestRollbackRestoresEntityValue(t *testing.T) {
	stores := openStores(t)
	p := wal.New(stores)

	ns := entity.NamespaceAccounts
	key := entity.KeyFromBytes([]byte("stake1u-test-account-credential."))
	nsKey := entity.NsKey{Namespace: ns, Key: key}

	applyOne := func(point chainpoint.Point, delta int64) {
		d := &counterDelta{NsKey: nsKey, Delta: delta}

		pre, _, err := stores.State.ReadEntity(ns, key)
		require.NoError(t, err)
		post, err := d.Apply(pre)
		require.NoError(t, err)

		sw, err := stores.State.StartWriter()
		require.NoError(t, err)
		require.NoError(t, sw.WriteEntity(ns, key, post))
		require.NoError(t, sw.SetCursor(point))
		require.NoError(t, sw.Commit())

		ww, err := stores.Wal.StartWriter()
		require.NoError(t, err)
		require.NoError(t, ww.Append(point, storage.LogEntry{
			Deltas: []entity.Delta{d},
		}))
		require.NoError(t, ww.Commit())
	}

	p1 := pointAt(100, 0x01)
	p2 := pointAt(200, 0x02)
	p3 := pointAt(300, 0x03)

	applyOne(p1, 10)
	applyOne(p2, 5)
	applyOne(p3, 7)

	v, found, err := stores.State.ReadEntity(ns, key)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(22), int64(binary.BigEndian.Uint64(v)))

	require.NoError(t, p.RollbackTo(p1))

	v, found, err = stores.State.ReadEntity(ns, key)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(10), int64(binary.BigEndian.Uint64(v)))

	tip, ok, err := stores.Wal.Tip()
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, tip.Equal(p1))
}

func TestRollbackToOriginClearsEntity(t *testing.T) {
	stores := openStores(t)
	p := wal.New(stores)

	ns := entity.NamespaceAccounts
	key := entity.KeyFromBytes([]byte("stake1u-another-account-credential"))
	nsKey := entity.NsKey{Namespace: ns, Key: key}
	d := &counterDelta{NsKey: nsKey, Delta: 42}

	point := pointAt(50, 0x09)
	sw, err := stores.State.StartWriter()
	require.NoError(t, err)
	post, err := d.Apply(nil)
	require.NoError(t, err)
	require.NoError(t, sw.WriteEntity(ns, key, post))
	require.NoError(t, sw.SetCursor(point))
	require.NoError(t, sw.Commit())

	ww, err := stores.Wal.StartWriter()
	require.NoError(t, err)
	require.NoError(t, ww.Append(point, storage.LogEntry{Deltas: []entity.Delta{d}}))
	require.NoError(t, ww.Commit())

	require.NoError(t, p.RollbackTo(chainpoint.Origin))

	_, found, err := stores.State.ReadEntity(ns, key)
	require.NoError(t, err)
	require.False(t, found)
}
