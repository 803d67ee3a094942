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
	"github.com/txpipe/dolos/entity"
	"github.com/txpipe/dolos/storage"
)

// overlay is an in-memory "collect first, write last" working set for one
// namespace during a single boundary work unit, modelled on commit.rs's
// collect_and_apply_namespace: package cardano's roll visitor reads each
// delta's pre-image straight from State at construction time, which is
// only safe because roll never lets two deltas in one batch touch the
// same entity. EWRAP's steps (applyRUpd, SNAP, POOLREAP, governance) can
// legitimately touch the same pool or account more than once in one
// boundary, so each touched entity is folded here and committed as
// exactly one delta, with Prev pinned to the value first read -- before
// any step in this unit mutated it.
type overlay[T any] struct {
	state     storage.StateStore
	ns        entity.Namespace
	originals map[string][]byte
	current   map[string]T
	deleted   map[string]bool
	order     []string
}

func newOverlay[T any](state storage.StateStore, ns entity.Namespace) *overlay[T] {
	return &overlay[T]{
		state:     state,
		ns:        ns,
		originals: make(map[string][]byte),
		current:   make(map[string]T),
		deleted:   make(map[string]bool),
	}
}

// get returns the entity's current working value (from a prior touch in
// this unit, or freshly loaded from State on first touch) and whether it
// existed before this unit touched it.
func (o *overlay[T]) get(id []byte) (T, bool) {
	k := string(id)
	if v, ok := o.current[k]; ok {
		return v, o.originals[k] != nil
	}
	prev, found, err := o.state.ReadEntity(o.ns, entity.KeyFromBytes(id))
	var v T
	if err == nil && found {
		_ = entity.DefaultCodec.Decode(prev, &v)
	}
	if found {
		o.originals[k] = prev
	}
	o.current[k] = v
	o.order = append(o.order, k)
	return v, found
}

// set records id's new working value.
func (o *overlay[T]) set(id []byte, v T) {
	k := string(id)
	if _, touched := o.current[k]; !touched {
		o.order = append(o.order, k)
	}
	o.current[k] = v
	delete(o.deleted, k)
}

// remove marks id for deletion once this unit commits.
func (o *overlay[T]) remove(id []byte) {
	k := string(id)
	if _, touched := o.current[k]; !touched {
		o.order = append(o.order, k)
	}
	o.deleted[k] = true
}

// touched reports whether id has been read or written in this unit.
func (o *overlay[T]) touched(id []byte) bool {
	_, ok := o.current[string(id)]
	return ok
}

// deltas folds every touched entity into exactly one entity.Delta, via the
// supplied constructors, in first-touch order.
func (o *overlay[T]) deltas(
	write func(id []byte, v T, prev []byte) entity.Delta,
	del func(id []byte, prev []byte) entity.Delta,
) []entity.Delta {
	out := make([]entity.Delta, 0, len(o.order))
	for _, k := range o.order {
		id := []byte(k)
		prev := o.originals[k]
		if o.deleted[k] {
			out = append(out, del(id, prev))
			continue
		}
		out = append(out, write(id, o.current[k], prev))
	}
	return out
}
