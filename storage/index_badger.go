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
	"encoding/binary"
	"errors"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/txpipe/dolos/chainpoint"
)

// exactDim namespaces the three IndexKind families within the
// "exact:" key region so a block-hash lookup and a tx-hash lookup can
// never collide even if the raw keys happen to match.
func exactDim(kind IndexKind) Dimension { return Dimension("kind:" + string(kind)) }

// IndexStoreBadger is the badger-backed IndexStore implementation.
type IndexStoreBadger struct {
	db *badger.DB
}

func NewIndexStoreBadger(dataDir string, cacheSize int64, logger *slog.Logger) (*IndexStoreBadger, error) {
	db, err := openBadger(dataDir, "index", cacheSize, logger)
	if err != nil {
		return nil, err
	}
	return &IndexStoreBadger{db: db}, nil
}

func (s *IndexStoreBadger) Close() error { return s.db.Close() }

func (s *IndexStoreBadger) UtxosByTag(dim Dimension, key []byte) ([]UtxoRef, error) {
	prefix := UtxoTagPrefix(dim, key)
	var out []UtxoRef
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			k := it.Item().KeyCopy(nil)
			if len(k) < 36 {
				continue
			}
			refBytes := k[len(k)-36:]
			var ref UtxoRef
			copy(ref.TxHash[:], refBytes[:32])
			ref.Index = binary.BigEndian.Uint32(refBytes[32:])
			out = append(out, ref)
		}
		return nil
	})
	return out, err
}

func (s *IndexStoreBadger) SlotsByTag(
	dim Dimension,
	key []byte,
	startSlot, endSlot uint64,
	fn func(slot uint64) (bool, error),
) error {
	prefix := ArchiveTagPrefix(dim, key)
	start := make([]byte, len(prefix)+8)
	copy(start, prefix)
	putUint64(start[len(prefix):], startSlot)
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(start); it.ValidForPrefix(prefix); it.Next() {
			k := it.Item().KeyCopy(nil)
			if len(k) < 8 {
				continue
			}
			slot := binary.BigEndian.Uint64(k[len(k)-8:])
			if slot > endSlot {
				break
			}
			cont, err := fn(slot)
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

func (s *IndexStoreBadger) SlotByExact(kind IndexKind, key []byte) (uint64, bool, error) {
	var slot uint64
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(ExactKey(exactDim(kind), key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		found = true
		v, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		slot = DecodeSlotValue(v)
		return nil
	})
	return slot, found, err
}

func (s *IndexStoreBadger) Cursor() (chainpoint.Point, bool, error) {
	b, found, err := readCursor(s.db)
	if err != nil || !found {
		return chainpoint.Point{}, found, err
	}
	p, err := chainpoint.FromBytes(b)
	return p, true, err
}

func (s *IndexStoreBadger) StartWriter() (IndexWriter, error) {
	return &indexWriterBadger{store: s, txn: s.db.NewTransaction(true)}, nil
}

type indexWriterBadger struct {
	store *IndexStoreBadger
	txn   *badger.Txn
	done  bool
}

func (w *indexWriterBadger) ApplyUtxoTagAdd(dim Dimension, key []byte, ref UtxoRef) error {
	if w.done {
		return ErrWriterCommitted
	}
	return w.txn.Set(UtxoTagKey(dim, key, ref), []byte{1})
}

func (w *indexWriterBadger) ApplyUtxoTagRemove(dim Dimension, key []byte, ref UtxoRef) error {
	if w.done {
		return ErrWriterCommitted
	}
	return w.txn.Delete(UtxoTagKey(dim, key, ref))
}

func (w *indexWriterBadger) ApplySlotTag(dim Dimension, key []byte, slot uint64) error {
	if w.done {
		return ErrWriterCommitted
	}
	return w.txn.Set(ArchiveTagKey(dim, key, slot), []byte{1})
}

func (w *indexWriterBadger) RemoveSlotTag(dim Dimension, key []byte, slot uint64) error {
	if w.done {
		return ErrWriterCommitted
	}
	return w.txn.Delete(ArchiveTagKey(dim, key, slot))
}

func (w *indexWriterBadger) PutExact(kind IndexKind, key []byte, slot uint64) error {
	if w.done {
		return ErrWriterCommitted
	}
	return w.txn.Set(ExactKey(exactDim(kind), key), EncodeSlotValue(slot))
}

func (w *indexWriterBadger) DeleteExact(kind IndexKind, key []byte) error {
	if w.done {
		return ErrWriterCommitted
	}
	return w.txn.Delete(ExactKey(exactDim(kind), key))
}

func (w *indexWriterBadger) SetCursor(p chainpoint.Point) error {
	if w.done {
		return ErrWriterCommitted
	}
	return writeCursor(w.txn, p.Bytes())
}

func (w *indexWriterBadger) Commit() error {
	if w.done {
		return nil
	}
	w.done = true
	return w.txn.Commit()
}

func (w *indexWriterBadger) Rollback() error {
	if w.done {
		return nil
	}
	w.done = true
	w.txn.Discard()
	return nil
}
