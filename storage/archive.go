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
	"github.com/txpipe/dolos/chainpoint"
	"github.com/txpipe/dolos/entity"
)

// ArchiveStore holds every block ever seen plus time-series "log
// entities", and the store's cursor. Blocks are immutable once written
// and are never deleted except by manual pruning.
type ArchiveStore interface {
	StartWriter() (ArchiveWriter, error)

	BlockBySlot(slot uint64) (Block, bool, error)
	BlockByHash(hash [32]byte) (Block, bool, error)
	BlockByNumber(number uint64) (Block, bool, error)
	// BlocksInRange iterates blocks with startSlot <= slot <= endSlot in
	// ascending slot order, calling fn for each until it returns false or
	// an error.
	BlocksInRange(
		startSlot, endSlot uint64,
		fn func(Block) (bool, error),
	) error
	// LogsByNamespaceSlot iterates log entities in a namespace whose slot
	// falls in [startSlot, endSlot], in ascending slot order.
	LogsByNamespaceSlot(
		ns entity.Namespace,
		startSlot, endSlot uint64,
		fn func(LogEntity) (bool, error),
	) error
	Cursor() (chainpoint.Point, bool, error)

	Close() error
}

// ArchiveWriter accumulates archive mutations for one transaction.
type ArchiveWriter interface {
	WriteBlock(b Block) error
	WriteLog(l LogEntity) error
	SetCursor(chainpoint.Point) error

	Commit() error
	Rollback() error
}
