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

// Package governance sources pre-Conway and Conway proposal outcomes from a
// hardcoded decision table rather than running DRep voting -- this node
// doesn't tally votes, so a proposal's fate is looked up, not computed. The
// table is keyed by txhash#actionIndex, each entry recording whether the
// action was ratified (and at which epoch), canceled, or left to expire
// naturally at the proposal's own deadline.
package governance

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/txpipe/dolos/cardano"
)

// Entry is one decision-table row: the verdict for a single governance
// action and the epoch at which it takes effect.
type Entry struct {
	Outcome cardano.ProposalOutcome `yaml:"outcome"`
	Epoch   uint64                  `yaml:"epoch"`
}

// fileEntry is Entry's on-disk shape: txhash/actionIndex spelled out
// instead of packed into the map key, so the YAML is hand-editable.
type fileEntry struct {
	TxHash      string                  `yaml:"tx_hash"`
	ActionIndex uint32                  `yaml:"action_index"`
	Outcome     cardano.ProposalOutcome `yaml:"outcome"`
	Epoch       uint64                  `yaml:"epoch"`
}

type fileTable struct {
	Proposals []fileEntry `yaml:"proposals"`
}

// Table is a hardcoded proposal decision table. The zero value is an empty
// table -- every lookup misses, and EWRAP falls back to natural expiry for
// every proposal.
type Table struct {
	entries map[string]Entry
	logger  *slog.Logger
}

// NewTable returns an empty table, optionally logging lookups and misses
// through logger (slog.Default() if nil).
func NewTable(logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.Default()
	}
	return &Table{entries: make(map[string]Entry), logger: logger}
}

// LoadTableFile reads a YAML decision table from path. The file format is:
//
//	proposals:
//	  - tx_hash: "deadbeef..."
//	    action_index: 0
//	    outcome: ratified
//	    epoch: 512
func LoadTableFile(path string, logger *slog.Logger) (*Table, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("governance: read decision table %s: %w", path, err)
	}
	var ft fileTable
	if err := yaml.Unmarshal(buf, &ft); err != nil {
		return nil, fmt.Errorf("governance: parse decision table %s: %w", path, err)
	}
	t := NewTable(logger)
	for _, fe := range ft.Proposals {
		txHash, err := hex.DecodeString(fe.TxHash)
		if err != nil {
			return nil, fmt.Errorf("governance: decision table %s: bad tx_hash %q: %w", path, fe.TxHash, err)
		}
		t.Set(txHash, fe.ActionIndex, Entry{Outcome: fe.Outcome, Epoch: fe.Epoch})
	}
	return t, nil
}

// Set records (or overwrites) the table's verdict for txHash#actionIndex.
func (t *Table) Set(txHash []byte, actionIndex uint32, entry Entry) {
	t.entries[key(txHash, actionIndex)] = entry
}

// Resolve implements epoch.ProposalResolver: it looks the action up and
// reports whether an entry exists. currentEpoch is unused -- the table's
// entries are static, dated at authoring time, not re-derived per call --
// but is part of the interface so a future vote-tallying resolver can use
// it without changing EWRAP's call site.
func (t *Table) Resolve(txHash []byte, actionIndex uint32, currentEpoch uint64) (cardano.ProposalOutcome, uint64, bool) {
	logger := t.logger
	if logger == nil {
		logger = slog.Default()
	}
	e, ok := t.entries[key(txHash, actionIndex)]
	if !ok {
		logger.Debug("governance: no decision table entry, deferring to natural expiry",
			"tx_hash", hex.EncodeToString(txHash), "action_index", actionIndex, "current_epoch", currentEpoch)
		return cardano.ProposalOutcomeUnknown, 0, false
	}
	logger.Info("governance: resolved proposal from decision table",
		"tx_hash", hex.EncodeToString(txHash), "action_index", actionIndex,
		"outcome", e.Outcome, "deciding_epoch", e.Epoch)
	return e.Outcome, e.Epoch, true
}

func key(txHash []byte, actionIndex uint32) string {
	return hex.EncodeToString(txHash) + "#" + fmt.Sprint(actionIndex)
}
