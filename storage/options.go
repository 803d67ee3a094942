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

import "log/slog"

// Options configures the four backing stores. An empty Dir opens every
// store in-memory, which is what the test suite and `--dev` runs use.
type Options struct {
	Dir            string `yaml:"dir"            envconfig:"STORAGE_DIR"`
	StateCacheSize int64  `yaml:"stateCacheSize" envconfig:"STORAGE_STATE_CACHE_SIZE"`
	WalCacheSize   int64  `yaml:"walCacheSize"   envconfig:"STORAGE_WAL_CACHE_SIZE"`
	IndexCacheSize int64  `yaml:"indexCacheSize" envconfig:"STORAGE_INDEX_CACHE_SIZE"`
}

// DefaultOptions mirrors the teacher's blob-store zero-value behavior:
// no directory means in-memory, unbounded-by-default block caches.
var DefaultOptions = Options{}

// Stores bundles the four independently-opened backends the domain layer
// is built on.
type Stores struct {
	State   *StateStoreBadger
	Archive *ArchiveStoreGorm
	Wal     *WalStoreBadger
	Index   *IndexStoreBadger
}

// Open opens (creating as needed) all four stores rooted at opts.Dir,
// under state/, chain/, wal/, and index/ subdirectories respectively.
func Open(opts Options, logger *slog.Logger) (*Stores, error) {
	state, err := NewStateStoreBadger(opts.Dir, opts.StateCacheSize, logger)
	if err != nil {
		return nil, err
	}
	archive, err := NewArchiveStoreGorm(opts.Dir, logger)
	if err != nil {
		_ = state.Close()
		return nil, err
	}
	wal, err := NewWalStoreBadger(opts.Dir, opts.WalCacheSize, logger)
	if err != nil {
		_ = state.Close()
		_ = archive.Close()
		return nil, err
	}
	index, err := NewIndexStoreBadger(opts.Dir, opts.IndexCacheSize, logger)
	if err != nil {
		_ = state.Close()
		_ = archive.Close()
		_ = wal.Close()
		return nil, err
	}
	return &Stores{State: state, Archive: archive, Wal: wal, Index: index}, nil
}

// Close closes every store, returning the first error encountered (but
// still attempting to close all four).
func (s *Stores) Close() error {
	var first error
	for _, c := range []interface{ Close() error }{s.State, s.Archive, s.Wal, s.Index} {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
