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

package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/txpipe/dolos/chainpoint"
	"github.com/txpipe/dolos/entity"
)

// utxoKeyPrefix namespaces UTxO entries within the state keyspace,
// disjoint from entity keys (EntityStateKey always starts with an
// 8-byte xxhash of a namespace string, landing in an unrelated region of
// keyspace with overwhelming probability, but we additionally prefix
// every UTxO key with a reserved byte to make the separation exact).
var utxoKeyPrefix = []byte{0x01}

// StateStoreBadger is the badger-backed StateStore implementation.
type StateStoreBadger struct {
	db     *badger.DB
	logger *slog.Logger
}

// NewStateStoreBadger opens (or creates) the state store under
// <dataDir>/state.
func NewStateStoreBadger(dataDir string, cacheSize int64, logger *slog.Logger) (*StateStoreBadger, error) {
	db, err := openBadger(dataDir, "state", cacheSize, logger)
	if err != nil {
		return nil, err
	}
	return &StateStoreBadger{db: db, logger: logger}, nil
}

func (s *StateStoreBadger) Close() error { return s.db.Close() }

func (s *StateStoreBadger) StartWriter() (StateWriter, error) {
	txn := s.db.NewTransaction(true)
	return &stateWriterBadger{store: s, txn: txn}, nil
}

func (s *StateStoreBadger) ReadEntity(ns entity.Namespace, key entity.EntityKey) ([]byte, bool, error) {
	var out []byte
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(EntityStateKey(ns, key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		found = true
		out, err = item.ValueCopy(nil)
		return err
	})
	return out, found, err
}

func (s *StateStoreBadger) ReadEntities(
	ns entity.Namespace,
	keys []entity.EntityKey,
) (map[entity.EntityKey][]byte, error) {
	out := make(map[entity.EntityKey][]byte, len(keys))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, k := range keys {
			item, err := txn.Get(EntityStateKey(ns, k))
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue
				}
				return err
			}
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			out[k] = v
		}
		return nil
	})
	return out, err
}

func (s *StateStoreBadger) IterEntities(
	ns entity.Namespace,
	fn func(key entity.EntityKey, cbor []byte) (bool, error),
) error {
	prefix := make([]byte, 8)
	binary.BigEndian.PutUint64(prefix, dimHash(string(ns)))
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			k := item.KeyCopy(nil)
			if len(k) != 8+entity.KeySize {
				continue
			}
			var ek entity.EntityKey
			copy(ek[:], k[8:])
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			cont, err := fn(ek, v)
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
		return nil
	})
}

func (s *StateStoreBadger) GetUtxos(refs []UtxoRef) (map[UtxoRef]UtxoBody, error) {
	out := make(map[UtxoRef]UtxoBody, len(refs))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, ref := range refs {
			key := append(bytes.Clone(utxoKeyPrefix), UtxoRefKey(ref)...)
			item, err := txn.Get(key)
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue
				}
				return err
			}
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			body, err := decodeUtxoBody(v)
			if err != nil {
				return err
			}
			out[ref] = body
		}
		return nil
	})
	return out, err
}

func (s *StateStoreBadger) Cursor() (chainpoint.Point, bool, error) {
	b, found, err := readCursor(s.db)
	if err != nil || !found {
		return chainpoint.Point{}, found, err
	}
	p, err := chainpoint.FromBytes(b)
	return p, true, err
}

func encodeUtxoBody(b UtxoBody) []byte {
	out := make([]byte, 2+len(b.Cbor))
	binary.BigEndian.PutUint16(out[:2], b.Era)
	copy(out[2:], b.Cbor)
	return out
}

func decodeUtxoBody(b []byte) (UtxoBody, error) {
	if len(b) < 2 {
		return UtxoBody{}, errors.New("storage: corrupt utxo body")
	}
	era := binary.BigEndian.Uint16(b[:2])
	cbor := make([]byte, len(b)-2)
	copy(cbor, b[2:])
	return UtxoBody{Era: era, Cbor: cbor}, nil
}

type stateWriterBadger struct {
	store *StateStoreBadger
	txn   *badger.Txn
	done  bool
}

func (w *stateWriterBadger) WriteEntity(ns entity.Namespace, key entity.EntityKey, cbor []byte) error {
	if w.done {
		return ErrWriterCommitted
	}
	return w.txn.Set(EntityStateKey(ns, key), cbor)
}

func (w *stateWriterBadger) DeleteEntity(ns entity.Namespace, key entity.EntityKey) error {
	if w.done {
		return ErrWriterCommitted
	}
	return w.txn.Delete(EntityStateKey(ns, key))
}

func (w *stateWriterBadger) ApplyUtxoDelta(produced map[UtxoRef]UtxoBody, consumed []UtxoRef) error {
	if w.done {
		return ErrWriterCommitted
	}
	for ref, body := range produced {
		key := append(bytes.Clone(utxoKeyPrefix), UtxoRefKey(ref)...)
		if err := w.txn.Set(key, encodeUtxoBody(body)); err != nil {
			return err
		}
	}
	for _, ref := range consumed {
		key := append(bytes.Clone(utxoKeyPrefix), UtxoRefKey(ref)...)
		if err := w.txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

func (w *stateWriterBadger) SetCursor(p chainpoint.Point) error {
	if w.done {
		return ErrWriterCommitted
	}
	return writeCursor(w.txn, p.Bytes())
}

func (w *stateWriterBadger) Commit() error {
	if w.done {
		return nil
	}
	w.done = true
	return w.txn.Commit()
}

func (w *stateWriterBadger) Rollback() error {
	if w.done {
		return nil
	}
	w.done = true
	w.txn.Discard()
	return nil
}
