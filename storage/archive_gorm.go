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

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/txpipe/dolos/chainpoint"
	"github.com/txpipe/dolos/entity"
)

// blockModel is the GORM row for one archived block.
type blockModel struct {
	Slot     uint64 `gorm:"primaryKey"`
	Hash     []byte `gorm:"size:32;uniqueIndex"`
	PrevHash []byte `gorm:"size:32"`
	Height   uint64 `gorm:"index"`
	Era      uint16
	Raw      []byte
}

func (blockModel) TableName() string { return "blocks" }

// logModel is the GORM row for one archived log entity.
type logModel struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	Namespace string `gorm:"index:idx_log_ns_slot"`
	Slot      uint64 `gorm:"index:idx_log_ns_slot"`
	Key       []byte `gorm:"size:32"`
	Cbor      []byte
}

func (logModel) TableName() string { return "log_entities" }

// cursorModel holds the archive store's single ChainPoint cursor row.
type cursorModel struct {
	ID    uint8 `gorm:"primaryKey"`
	Point []byte
}

func (cursorModel) TableName() string { return "archive_cursor" }

// ArchiveStoreGorm is the GORM+sqlite-backed ArchiveStore implementation.
// Blocks and log entities are relational, append-mostly data well suited
// to SQL range queries, unlike the key-value state/index/wal stores.
type ArchiveStoreGorm struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewArchiveStoreGorm opens (or creates) the archive store under
// <dataDir>/chain/archive.sqlite. An empty dataDir opens a shared
// in-memory database, matching the teacher's sqlite metadata store.
func NewArchiveStoreGorm(dataDir string, logger *slog.Logger) (*ArchiveStoreGorm, error) {
	var gdb *gorm.DB
	var err error
	cfg := &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	}
	if dataDir == "" {
		gdb, err = gorm.Open(sqlite.Open("file::memory:?cache=shared"), cfg)
	} else {
		dir := filepath.Join(dataDir, "chain")
		if _, statErr := os.Stat(dir); statErr != nil {
			if !errors.Is(statErr, fs.ErrNotExist) {
				return nil, fmt.Errorf("read data dir %s: %w", dir, statErr)
			}
			if mkErr := os.MkdirAll(dir, fs.ModePerm); mkErr != nil {
				return nil, fmt.Errorf("create data dir %s: %w", dir, mkErr)
			}
		}
		path := filepath.Join(dir, "archive.sqlite")
		connOpts := "_pragma=journal_mode(WAL)&_pragma=sync(OFF)&_pragma=cache_size(-50000)"
		gdb, err = gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?%s", path, connOpts)), cfg)
	}
	if err != nil {
		return nil, err
	}
	if err := gdb.AutoMigrate(&blockModel{}, &logModel{}, &cursorModel{}); err != nil {
		return nil, err
	}
	if err := gdb.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, fmt.Errorf("register gorm tracing plugin: %w", err)
	}
	return &ArchiveStoreGorm{db: gdb, logger: logger}, nil
}

func (s *ArchiveStoreGorm) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toBlock(m blockModel) Block {
	b := Block{
		BlockHeader: BlockHeader{
			Slot:   m.Slot,
			Height: m.Height,
			Era:    m.Era,
		},
		Raw: m.Raw,
	}
	copy(b.Hash[:], m.Hash)
	copy(b.PrevHash[:], m.PrevHash)
	return b
}

func (s *ArchiveStoreGorm) BlockBySlot(slot uint64) (Block, bool, error) {
	var m blockModel
	err := s.db.Where("slot = ?", slot).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Block{}, false, nil
	}
	if err != nil {
		return Block{}, false, err
	}
	return toBlock(m), true, nil
}

func (s *ArchiveStoreGorm) BlockByHash(hash [32]byte) (Block, bool, error) {
	var m blockModel
	err := s.db.Where("hash = ?", hash[:]).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Block{}, false, nil
	}
	if err != nil {
		return Block{}, false, err
	}
	return toBlock(m), true, nil
}

func (s *ArchiveStoreGorm) BlockByNumber(number uint64) (Block, bool, error) {
	var m blockModel
	err := s.db.Where("height = ?", number).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Block{}, false, nil
	}
	if err != nil {
		return Block{}, false, err
	}
	return toBlock(m), true, nil
}

func (s *ArchiveStoreGorm) BlocksInRange(
	startSlot, endSlot uint64,
	fn func(Block) (bool, error),
) error {
	rows, err := s.db.Model(&blockModel{}).
		Where("slot >= ? AND slot <= ?", startSlot, endSlot).
		Order("slot asc").
		Rows()
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var m blockModel
		if err := s.db.ScanRows(rows, &m); err != nil {
			return err
		}
		cont, err := fn(toBlock(m))
		if err != nil {
			return err
		}
		if !cont {
			break
		}
	}
	return rows.Err()
}

func (s *ArchiveStoreGorm) LogsByNamespaceSlot(
	ns entity.Namespace,
	startSlot, endSlot uint64,
	fn func(LogEntity) (bool, error),
) error {
	rows, err := s.db.Model(&logModel{}).
		Where("namespace = ? AND slot >= ? AND slot <= ?", string(ns), startSlot, endSlot).
		Order("slot asc").
		Rows()
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var m logModel
		if err := s.db.ScanRows(rows, &m); err != nil {
			return err
		}
		le := LogEntity{
			Namespace: entity.Namespace(m.Namespace),
			Slot:      m.Slot,
			Cbor:      m.Cbor,
		}
		copy(le.Key[:], m.Key)
		cont, err := fn(le)
		if err != nil {
			return err
		}
		if !cont {
			break
		}
	}
	return rows.Err()
}

func (s *ArchiveStoreGorm) Cursor() (chainpoint.Point, bool, error) {
	var m cursorModel
	err := s.db.First(&m, "id = ?", 0).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return chainpoint.Point{}, false, nil
	}
	if err != nil {
		return chainpoint.Point{}, false, err
	}
	p, err := chainpoint.FromBytes(m.Point)
	return p, true, err
}

func (s *ArchiveStoreGorm) StartWriter() (ArchiveWriter, error) {
	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &archiveWriterGorm{tx: tx}, nil
}

type archiveWriterGorm struct {
	tx   *gorm.DB
	done bool
}

func (w *archiveWriterGorm) WriteBlock(b Block) error {
	if w.done {
		return ErrWriterCommitted
	}
	m := blockModel{
		Slot:     b.Slot,
		Hash:     b.Hash[:],
		PrevHash: b.PrevHash[:],
		Height:   b.Height,
		Era:      b.Era,
		Raw:      b.Raw,
	}
	return w.tx.Clauses().Save(&m).Error
}

func (w *archiveWriterGorm) WriteLog(l LogEntity) error {
	if w.done {
		return ErrWriterCommitted
	}
	m := logModel{
		Namespace: string(l.Namespace),
		Slot:      l.Slot,
		Key:       l.Key[:],
		Cbor:      l.Cbor,
	}
	return w.tx.Create(&m).Error
}

func (w *archiveWriterGorm) SetCursor(p chainpoint.Point) error {
	if w.done {
		return ErrWriterCommitted
	}
	m := cursorModel{ID: 0, Point: p.Bytes()}
	return w.tx.Save(&m).Error
}

func (w *archiveWriterGorm) Commit() error {
	if w.done {
		return nil
	}
	w.done = true
	return w.tx.Commit().Error
}

func (w *archiveWriterGorm) Rollback() error {
	if w.done {
		return nil
	}
	w.done = true
	return w.tx.Rollback().Error
}
