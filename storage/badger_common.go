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
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// cursorKey is reserved within every badger-backed store's keyspace for
// the store's own ChainPoint cursor. readCursor and writeCursor prefix it
// with a single 0x00 byte, so the cursor is stored under the one-byte key
// {0x00}.
var cursorKey = []byte{}

// openBadger opens (creating if necessary) a badger database rooted at
// <dataDir>/<sub>, matching the teacher's blob-store defaults (Snappy
// block compression, a quiet logger, a dedicated subdirectory per
// store so the four stores never share files).
func openBadger(dataDir, sub string, cacheSize int64, logger *slog.Logger) (*badger.DB, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	if dataDir == "" {
		opts := badger.DefaultOptions("").
			WithLogger(nil).
			WithLoggingLevel(badger.WARNING).
			WithInMemory(true)
		return badger.Open(opts)
	}
	dir := filepath.Join(dataDir, sub)
	if _, err := os.Stat(dir); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read data dir %s: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir %s: %w", dir, err)
		}
	}
	opts := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithLoggingLevel(badger.WARNING).
		WithCompression(options.Snappy)
	if cacheSize > 0 {
		opts = opts.WithBlockCacheSize(cacheSize)
	}
	return badger.Open(opts)
}

// readCursor reads the ChainPoint stored under cursorKey, if any.
func readCursor(db *badger.DB) (point []byte, found bool, err error) {
	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(append([]byte{0x00}, cursorKey...))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				found = false
				return nil
			}
			return err
		}
		found = true
		point, err = item.ValueCopy(nil)
		return err
	})
	return point, found, err
}

func writeCursor(txn *badger.Txn, encoded []byte) error {
	return txn.Set(append([]byte{0x00}, cursorKey...), encoded)
}
