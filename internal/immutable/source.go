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

// Package immutable implements the "load" run mode's block source: a
// flat directory of one file per block, named by slot and hash, used to
// replay a previously-exported chain without an upstream peer connection.
package immutable

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/txpipe/dolos/cardano"
	"github.com/txpipe/dolos/workbuffer"
)

// fileName encodes everything the loader needs to build a
// workbuffer.BlockMeta without decoding the block body: the slot (for
// ordering), the block hash, and the genesis flag. Genesis is "g", any
// other block is "b", e.g. "4492800_abcd...ef_b.blk".
func fileName(meta workbuffer.BlockMeta) string {
	kind := "b"
	if meta.IsGenesis {
		kind = "g"
	}
	return fmt.Sprintf("%d_%s_%s.blk", meta.Slot, hex.EncodeToString(meta.Hash[:]), kind)
}

func parseFileName(name string) (workbuffer.BlockMeta, bool) {
	name = strings.TrimSuffix(name, ".blk")
	parts := strings.SplitN(name, "_", 3)
	if len(parts) != 3 {
		return workbuffer.BlockMeta{}, false
	}
	slot, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return workbuffer.BlockMeta{}, false
	}
	hashBytes, err := hex.DecodeString(parts[1])
	if err != nil || len(hashBytes) != 32 {
		return workbuffer.BlockMeta{}, false
	}
	var meta workbuffer.BlockMeta
	meta.Slot = slot
	copy(meta.Hash[:], hashBytes)
	meta.IsGenesis = parts[2] == "g"
	return meta, true
}

// Source reads blocks written by Writer back out as a cardano.BlockSource.
// Each file holds a single leading type byte followed by the block's raw
// CBOR, mirroring the archive store's own (slot, type, cbor) shape so
// dumping and reloading round-trips exactly.
type Source struct {
	dir string
}

func NewSource(dir string) *Source {
	return &Source{dir: dir}
}

// ListMetas enumerates every block file under dir in ascending slot
// order, returning the workbuffer.BlockMeta the loader needs to call
// Node.PushBlock for each one -- no block body is read.
func ListMetas(dir string) ([]workbuffer.BlockMeta, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("immutable: list dir %s: %w", dir, err)
	}
	metas := make([]workbuffer.BlockMeta, 0, len(entries))
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ".blk") {
			continue
		}
		meta, ok := parseFileName(e.Name())
		if !ok {
			continue
		}
		metas = append(metas, meta)
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].Slot < metas[j].Slot })
	return metas, nil
}

func (s *Source) path(meta workbuffer.BlockMeta) string {
	return filepath.Join(s.dir, fileName(meta))
}

func (s *Source) FetchBlocks(metas []workbuffer.BlockMeta) ([]cardano.RawBlock, error) {
	out := make([]cardano.RawBlock, len(metas))
	for i, m := range metas {
		raw, err := s.fetchOne(m)
		if err != nil {
			return nil, err
		}
		out[i] = raw
	}
	return out, nil
}

func (s *Source) fetchOne(meta workbuffer.BlockMeta) (cardano.RawBlock, error) {
	buf, err := os.ReadFile(s.path(meta))
	if err != nil {
		return cardano.RawBlock{}, fmt.Errorf("immutable: read block at slot %d: %w", meta.Slot, err)
	}
	if len(buf) < 1 {
		return cardano.RawBlock{}, fmt.Errorf("immutable: block at slot %d is empty", meta.Slot)
	}
	return cardano.RawBlock{Type: uint(buf[0]), Cbor: buf[1:]}, nil
}

// Writer appends blocks to the same directory layout Source and
// ListMetas read.
type Writer struct {
	dir string
}

func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("immutable: create dir %s: %w", dir, err)
	}
	return &Writer{dir: dir}, nil
}

func (w *Writer) WriteBlock(meta workbuffer.BlockMeta, raw cardano.RawBlock) error {
	buf := make([]byte, 0, len(raw.Cbor)+1)
	buf = append(buf, byte(raw.Type))
	buf = append(buf, raw.Cbor...)
	path := filepath.Join(w.dir, fileName(meta))
	return os.WriteFile(path, buf, 0o644)
}

// Metas lists every block meta present, in ascending slot order.
func (w *Writer) Metas() ([]workbuffer.BlockMeta, error) {
	return ListMetas(w.dir)
}
