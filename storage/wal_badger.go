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
	"github.com/txpipe/dolos/entity"
)

// walConsumedInput is the serializable form of one ConsumedInputs entry.
type walConsumedInput struct {
	Ref  UtxoRef
	Body UtxoBody
}

// walEntryDTO is the on-disk shape of a LogEntry: deltas are pre-encoded
// (tag, payload) envelopes (see entity.EncodeDelta) since entity.Delta is
// an interface and can't be CBOR-encoded directly.
type walEntryDTO struct {
	Deltas         [][]byte
	ConsumedInputs []walConsumedInput
	ProducedRefs   []UtxoRef
	Tags           SlotTags
}

func encodeLogEntry(e LogEntry) ([]byte, error) {
	dto := walEntryDTO{
		ProducedRefs: e.ProducedRefs,
		Tags:         e.Tags,
	}
	for _, d := range e.Deltas {
		b, err := entity.EncodeDelta(d)
		if err != nil {
			return nil, err
		}
		dto.Deltas = append(dto.Deltas, b)
	}
	for ref, body := range e.ConsumedInputs {
		dto.ConsumedInputs = append(dto.ConsumedInputs, walConsumedInput{Ref: ref, Body: body})
	}
	return entity.DefaultCodec.Encode(dto)
}

func decodeLogEntry(b []byte) (LogEntry, error) {
	var dto walEntryDTO
	if err := entity.DefaultCodec.Decode(b, &dto); err != nil {
		return LogEntry{}, err
	}
	entry := LogEntry{
		ProducedRefs:   dto.ProducedRefs,
		Tags:           dto.Tags,
		ConsumedInputs: make(map[UtxoRef]UtxoBody, len(dto.ConsumedInputs)),
	}
	for _, ci := range dto.ConsumedInputs {
		entry.ConsumedInputs[ci.Ref] = ci.Body
	}
	for _, raw := range dto.Deltas {
		d, err := entity.DecodeDelta(raw)
		if err != nil {
			return LogEntry{}, err
		}
		entry.Deltas = append(entry.Deltas, d)
	}
	return entry, nil
}

// WalStoreBadger is the badger-backed WalStore implementation. Entries
// are keyed by their ChainPoint's canonical 40-byte encoding, which sorts
// lexicographically by slot -- exactly the append-order/iterate-from
// access pattern the WAL protocol needs.
type WalStoreBadger struct {
	db *badger.DB
}

func NewWalStoreBadger(dataDir string, cacheSize int64, logger *slog.Logger) (*WalStoreBadger, error) {
	db, err := openBadger(dataDir, "wal", cacheSize, logger)
	if err != nil {
		return nil, err
	}
	return &WalStoreBadger{db: db}, nil
}

func (s *WalStoreBadger) Close() error { return s.db.Close() }

var walEntryPrefix = []byte{0x02}

func walKey(p chainpoint.Point) []byte {
	return append(append([]byte{}, walEntryPrefix...), p.Bytes()...)
}

func (s *WalStoreBadger) Tip() (chainpoint.Point, bool, error) {
	var tip chainpoint.Point
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = walEntryPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		seek := append(append([]byte{}, walEntryPrefix...), 0xff)
		for i := 0; i < chainpoint.Size; i++ {
			seek = append(seek, 0xff)
		}
		it.Seek(seek)
		if !it.ValidForPrefix(walEntryPrefix) {
			return nil
		}
		k := it.Item().KeyCopy(nil)
		p, err := chainpoint.FromBytes(k[len(walEntryPrefix):])
		if err != nil {
			return err
		}
		tip = p
		found = true
		return nil
	})
	return tip, found, err
}

func (s *WalStoreBadger) IterFrom(
	from chainpoint.Point,
	fn func(chainpoint.Point, LogEntry) (bool, error),
) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = walEntryPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(walKey(from)); it.ValidForPrefix(walEntryPrefix); it.Next() {
			item := it.Item()
			k := item.KeyCopy(nil)
			p, err := chainpoint.FromBytes(k[len(walEntryPrefix):])
			if err != nil {
				return err
			}
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			entry, err := decodeLogEntry(v)
			if err != nil {
				return err
			}
			cont, err := fn(p, entry)
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

func (s *WalStoreBadger) FindIntersection(candidates []chainpoint.Point) (chainpoint.Point, bool, error) {
	var best chainpoint.Point
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		for _, c := range candidates {
			if c.IsOrigin() {
				if !found {
					best = c
					found = true
				}
				continue
			}
			_, err := txn.Get(walKey(c))
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue
				}
				return err
			}
			if !found || best.Slot < c.Slot {
				best = c
				found = true
			}
		}
		return nil
	})
	return best, found, err
}

type walWriterBadger struct {
	store *WalStoreBadger
	txn   *badger.Txn
	done  bool
}

func (s *WalStoreBadger) StartWriter() (WalWriter, error) {
	return &walWriterBadger{store: s, txn: s.db.NewTransaction(true)}, nil
}

func (w *walWriterBadger) Append(point chainpoint.Point, entry LogEntry) error {
	if w.done {
		return ErrWriterCommitted
	}
	b, err := encodeLogEntry(entry)
	if err != nil {
		return err
	}
	return w.txn.Set(walKey(point), b)
}

func (w *walWriterBadger) ResetToOrigin() error {
	if w.done {
		return ErrWriterCommitted
	}
	return w.deleteRange(chainpoint.Origin, nil)
}

func (w *walWriterBadger) TruncateAfter(p chainpoint.Point) error {
	if w.done {
		return ErrWriterCommitted
	}
	return w.deleteAfter(p)
}

func (w *walWriterBadger) PruneBefore(p chainpoint.Point) error {
	if w.done {
		return ErrWriterCommitted
	}
	return w.deleteBefore(p)
}

// deleteRange removes every WAL entry (used by ResetToOrigin).
func (w *walWriterBadger) deleteRange(from chainpoint.Point, to *chainpoint.Point) error {
	return w.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = walEntryPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		var keys [][]byte
		for it.Seek(walEntryPrefix); it.ValidForPrefix(walEntryPrefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, k := range keys {
			if err := w.txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func (w *walWriterBadger) deleteAfter(p chainpoint.Point) error {
	return w.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = walEntryPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		start := walKey(p)
		var keys [][]byte
		for it.Seek(start); it.ValidForPrefix(walEntryPrefix); it.Next() {
			k := it.Item().KeyCopy(nil)
			if compareBytes(k, start) > 0 {
				keys = append(keys, k)
			}
		}
		for _, k := range keys {
			if err := w.txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func (w *walWriterBadger) deleteBefore(p chainpoint.Point) error {
	return w.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = walEntryPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		end := walKey(p)
		var keys [][]byte
		for it.Seek(walEntryPrefix); it.ValidForPrefix(walEntryPrefix); it.Next() {
			k := it.Item().KeyCopy(nil)
			if compareBytes(k, end) < 0 {
				keys = append(keys, k)
			}
		}
		for _, k := range keys {
			if err := w.txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return len(a) - len(b)
}

func (w *walWriterBadger) Commit() error {
	if w.done {
		return nil
	}
	w.done = true
	return w.txn.Commit()
}

func (w *walWriterBadger) Rollback() error {
	if w.done {
		return nil
	}
	w.done = true
	w.txn.Discard()
	return nil
}

var _ = binary.BigEndian // keep import if unused helpers above are trimmed later
