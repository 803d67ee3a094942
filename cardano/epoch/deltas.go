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
	"github.com/txpipe/dolos/cardano"
	"github.com/txpipe/dolos/entity"
)

// PoolWriteDelta and AccountWriteDelta replace an entity wholesale,
// matching the "collect first, write last" shape commit.rs uses for
// EWRAP: every visitor mutates its own in-memory copy of the touched
// entity, and the boundary work commits one final delta per entity
// rather than threading several deltas through a running overlay.

// PoolWriteDelta replaces a Pool entity wholesale. Used by EWRAP's SNAP
// and POOLREAP steps, which both mutate the same pool record in one
// boundary pass.
type PoolWriteDelta struct {
	KeyHash []byte
	New     cardano.Pool
	Prev    []byte
}

func (d *PoolWriteDelta) Key() entity.NsKey {
	return entity.NsKey{Namespace: entity.NamespacePools, Key: entity.KeyFromBytes(d.KeyHash)}
}

func (d *PoolWriteDelta) Apply(_ []byte) ([]byte, error) { return entity.DefaultCodec.Encode(d.New) }
func (d *PoolWriteDelta) Undo(_ []byte) ([]byte, error)  { return d.Prev, nil }
func (d *PoolWriteDelta) Tag() string                    { return "cardano.epoch.pool_write" }

// AccountWriteDelta replaces an Account entity wholesale. Used by
// applyRUpd (rewards credit or treasury routing) when more than one
// boundary step touches the same account.
type AccountWriteDelta struct {
	Cred []byte
	New  cardano.Account
	Prev []byte
}

func (d *AccountWriteDelta) Key() entity.NsKey {
	return entity.NsKey{Namespace: entity.NamespaceAccounts, Key: entity.KeyFromBytes(d.Cred)}
}

func (d *AccountWriteDelta) Apply(_ []byte) ([]byte, error) { return entity.DefaultCodec.Encode(d.New) }
func (d *AccountWriteDelta) Undo(_ []byte) ([]byte, error)  { return d.Prev, nil }
func (d *AccountWriteDelta) Tag() string                    { return "cardano.epoch.account_write" }

func init() {
	entity.RegisterDeltaType("cardano.epoch.pool_write", func() entity.Delta { return &PoolWriteDelta{} })
	entity.RegisterDeltaType("cardano.epoch.account_write", func() entity.Delta { return &AccountWriteDelta{} })
}
