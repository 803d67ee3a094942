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
	"sort"

	"github.com/txpipe/dolos/chainpoint"
	"github.com/txpipe/dolos/entity"
	"github.com/txpipe/dolos/storage"
)

// fakeState is a minimal in-memory storage.StateStore good enough to drive
// a work unit's Load/Compute/CommitState cycle in a test, without a real
// badger-backed store.
type fakeState struct {
	entities map[entity.Namespace]map[entity.EntityKey][]byte
	utxos    map[storage.UtxoRef]storage.UtxoBody
	cursor   chainpoint.Point
}

func newFakeState() *fakeState {
	return &fakeState{
		entities: make(map[entity.Namespace]map[entity.EntityKey][]byte),
		utxos:    make(map[storage.UtxoRef]storage.UtxoBody),
	}
}

func (s *fakeState) put(ns entity.Namespace, key entity.EntityKey, v any) {
	cbor, err := entity.DefaultCodec.Encode(v)
	if err != nil {
		panic(err)
	}
	if s.entities[ns] == nil {
		s.entities[ns] = make(map[entity.EntityKey][]byte)
	}
	s.entities[ns][key] = cbor
}

func (s *fakeState) StartWriter() (storage.StateWriter, error) {
	return &fakeStateWriter{s: s}, nil
}

func (s *fakeState) ReadEntity(ns entity.Namespace, key entity.EntityKey) ([]byte, bool, error) {
	m, ok := s.entities[ns]
	if !ok {
		return nil, false, nil
	}
	v, ok := m[key]
	return v, ok, nil
}

func (s *fakeState) ReadEntities(ns entity.Namespace, keys []entity.EntityKey) (map[entity.EntityKey][]byte, error) {
	out := make(map[entity.EntityKey][]byte)
	for _, k := range keys {
		if v, ok, _ := s.ReadEntity(ns, k); ok {
			out[k] = v
		}
	}
	return out, nil
}

func (s *fakeState) IterEntities(ns entity.Namespace, fn func(key entity.EntityKey, cbor []byte) (bool, error)) error {
	m := s.entities[ns]
	keys := make([]entity.EntityKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		for b := 0; b < entity.KeySize; b++ {
			if keys[i][b] != keys[j][b] {
				return keys[i][b] < keys[j][b]
			}
		}
		return false
	})
	for _, k := range keys {
		cont, err := fn(k, m[k])
		if err != nil {
			return err
		}
		if !cont {
			break
		}
	}
	return nil
}

func (s *fakeState) GetUtxos(refs []storage.UtxoRef) (map[storage.UtxoRef]storage.UtxoBody, error) {
	out := make(map[storage.UtxoRef]storage.UtxoBody)
	for _, r := range refs {
		if b, ok := s.utxos[r]; ok {
			out[r] = b
		}
	}
	return out, nil
}

func (s *fakeState) Cursor() (chainpoint.Point, bool, error) { return s.cursor, true, nil }
func (s *fakeState) Close() error                            { return nil }

type fakeStateWriter struct {
	s *fakeState
}

func (w *fakeStateWriter) WriteEntity(ns entity.Namespace, key entity.EntityKey, cbor []byte) error {
	if w.s.entities[ns] == nil {
		w.s.entities[ns] = make(map[entity.EntityKey][]byte)
	}
	w.s.entities[ns][key] = cbor
	return nil
}

func (w *fakeStateWriter) DeleteEntity(ns entity.Namespace, key entity.EntityKey) error {
	delete(w.s.entities[ns], key)
	return nil
}

func (w *fakeStateWriter) ApplyUtxoDelta(produced map[storage.UtxoRef]storage.UtxoBody, consumed []storage.UtxoRef) error {
	for ref, body := range produced {
		w.s.utxos[ref] = body
	}
	for _, ref := range consumed {
		delete(w.s.utxos, ref)
	}
	return nil
}

func (w *fakeStateWriter) SetCursor(p chainpoint.Point) error { w.s.cursor = p; return nil }
func (w *fakeStateWriter) Commit() error                      { return nil }
func (w *fakeStateWriter) Rollback() error                    { return nil }

// fakeIndex is a minimal storage.IndexStore backing RupdUnit.accountStake's
// UtxosByTag lookups.
type fakeIndex struct {
	byTag map[string][]storage.UtxoRef
}

func newFakeIndex() *fakeIndex { return &fakeIndex{byTag: make(map[string][]storage.UtxoRef)} }

func tagKey(dim storage.Dimension, key []byte) string { return string(dim) + ":" + string(key) }

func (x *fakeIndex) addTag(dim storage.Dimension, key []byte, ref storage.UtxoRef) {
	k := tagKey(dim, key)
	x.byTag[k] = append(x.byTag[k], ref)
}

func (x *fakeIndex) StartWriter() (storage.IndexWriter, error) { return nil, nil }

func (x *fakeIndex) UtxosByTag(dim storage.Dimension, key []byte) ([]storage.UtxoRef, error) {
	return x.byTag[tagKey(dim, key)], nil
}

func (x *fakeIndex) SlotsByTag(dim storage.Dimension, key []byte, startSlot, endSlot uint64, fn func(slot uint64) (bool, error)) error {
	return nil
}

func (x *fakeIndex) SlotByExact(kind storage.IndexKind, key []byte) (uint64, bool, error) {
	return 0, false, nil
}

func (x *fakeIndex) Cursor() (chainpoint.Point, bool, error) { return chainpoint.Point{}, false, nil }
func (x *fakeIndex) Close() error                            { return nil }

// fakeWal/fakeArchive/fakeIndexWriter record what a work unit writes, for
// assertions, without persisting anything durably.
type fakeWal struct {
	entries []storage.LogEntry
}

func (w *fakeWal) Append(point chainpoint.Point, entry storage.LogEntry) error {
	w.entries = append(w.entries, entry)
	return nil
}
func (w *fakeWal) ResetToOrigin() error                           { return nil }
func (w *fakeWal) TruncateAfter(p chainpoint.Point) error          { return nil }
func (w *fakeWal) PruneBefore(p chainpoint.Point) error            { return nil }
func (w *fakeWal) Commit() error                                   { return nil }
func (w *fakeWal) Rollback() error                                 { return nil }

type fakeArchive struct {
	logs   []storage.LogEntity
	cursor chainpoint.Point
}

func (a *fakeArchive) WriteBlock(b storage.Block) error { return nil }
func (a *fakeArchive) WriteLog(l storage.LogEntity) error {
	a.logs = append(a.logs, l)
	return nil
}
func (a *fakeArchive) SetCursor(p chainpoint.Point) error { a.cursor = p; return nil }
func (a *fakeArchive) Commit() error                      { return nil }
func (a *fakeArchive) Rollback() error                    { return nil }

type fakeIndexWriter struct {
	cursor chainpoint.Point
}

func (w *fakeIndexWriter) ApplyUtxoTagAdd(dim storage.Dimension, key []byte, ref storage.UtxoRef) error {
	return nil
}
func (w *fakeIndexWriter) ApplyUtxoTagRemove(dim storage.Dimension, key []byte, ref storage.UtxoRef) error {
	return nil
}
func (w *fakeIndexWriter) ApplySlotTag(dim storage.Dimension, key []byte, slot uint64) error {
	return nil
}
func (w *fakeIndexWriter) RemoveSlotTag(dim storage.Dimension, key []byte, slot uint64) error {
	return nil
}
func (w *fakeIndexWriter) PutExact(kind storage.IndexKind, key []byte, slot uint64) error { return nil }
func (w *fakeIndexWriter) DeleteExact(kind storage.IndexKind, key []byte) error           { return nil }
func (w *fakeIndexWriter) SetCursor(p chainpoint.Point) error                             { w.cursor = p; return nil }
func (w *fakeIndexWriter) Commit() error                                                  { return nil }
func (w *fakeIndexWriter) Rollback() error                                                { return nil }
