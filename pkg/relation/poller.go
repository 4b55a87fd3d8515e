// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
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

package relation

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/NVIDIA/scrape-relay/pkg/defaults"
)

// relSnapshot is one relation's observed bags at a point in time.
type relSnapshot struct {
	app   map[string]Data
	units map[string]Data
}

// Poller derives relation events by periodically snapshotting a Store
// and diffing against the previous snapshot. The first snapshot diffs
// against empty state, so existing peers surface as joins on startup.
type Poller struct {
	store    Store
	names    []string
	interval time.Duration
}

// NewPoller watches the given relation names on store.
func NewPoller(store Store, names []string) *Poller {
	return &Poller{
		store:    store,
		names:    names,
		interval: defaults.StorePollInterval,
	}
}

// WithInterval overrides the poll interval. Used by tests.
func (p *Poller) WithInterval(d time.Duration) *Poller {
	p.interval = d
	return p
}

// Watch implements Events. The channel closes when ctx is canceled.
func (p *Poller) Watch(ctx context.Context) (<-chan Event, error) {
	events := make(chan Event, 16)

	go func() {
		defer close(events)

		prev := map[string]relSnapshot{}
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			next, err := p.snapshot(ctx)
			if err != nil {
				slog.Warn("relation snapshot failed", "error", err)
			} else {
				if !p.emit(ctx, events, prev, next) {
					return
				}
				prev = next
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return events, nil
}

// snapshot reads the current bags of every watched relation.
func (p *Poller) snapshot(ctx context.Context) (map[string]relSnapshot, error) {
	out := map[string]relSnapshot{}
	for _, name := range p.names {
		ids, err := p.store.Relations(ctx, name)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			snap := relSnapshot{app: map[string]Data{}, units: map[string]Data{}}

			units, err := p.store.Units(ctx, id)
			if err != nil {
				return nil, err
			}
			for _, unit := range units {
				data, err := p.store.UnitData(ctx, id, unit)
				if err != nil {
					return nil, err
				}
				snap.units[unit] = data
			}

			// The publishing application shares the unit name prefix.
			for _, app := range unitApps(units) {
				data, err := p.store.AppData(ctx, id, app)
				if err != nil {
					return nil, err
				}
				if len(data) > 0 {
					snap.app[app] = data
				}
			}
			out[id] = snap
		}
	}
	return out, nil
}

// emit sends the diff between two snapshots. Returns false when ctx
// was canceled mid-send.
func (p *Poller) emit(ctx context.Context, events chan<- Event, prev, next map[string]relSnapshot) bool {
	send := func(ev Event) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for _, id := range sortedKeys(next) {
		snap := next[id]
		old, existed := prev[id]

		for _, unit := range sortedKeys(snap.units) {
			oldData, had := relBag(existed, old.units, unit)
			switch {
			case !had:
				if !send(Event{Type: UnitJoined, RelationID: id, App: UnitApp(unit), Unit: unit}) {
					return false
				}
				if !send(Event{Type: UnitChanged, RelationID: id, App: UnitApp(unit), Unit: unit}) {
					return false
				}
			case !oldData.Equal(snap.units[unit]):
				if !send(Event{Type: UnitChanged, RelationID: id, App: UnitApp(unit), Unit: unit}) {
					return false
				}
			}
		}

		for _, app := range sortedKeys(snap.app) {
			oldData, had := relBag(existed, old.app, app)
			if !had || !oldData.Equal(snap.app[app]) {
				if !send(Event{Type: AppChanged, RelationID: id, App: app}) {
					return false
				}
			}
		}
	}

	// departures: units present before, absent now
	for _, id := range sortedKeys(prev) {
		old := prev[id]
		snap, existed := next[id]
		for _, unit := range sortedKeys(old.units) {
			if _, still := relBag(existed, snap.units, unit); !still {
				if !send(Event{Type: UnitDeparted, RelationID: id, App: UnitApp(unit), Unit: unit}) {
					return false
				}
			}
		}
	}
	return true
}

// relBag looks a key up in a snapshot bag map that may belong to a
// relation absent from the snapshot.
func relBag(exists bool, bags map[string]Data, key string) (Data, bool) {
	if !exists {
		return nil, false
	}
	data, ok := bags[key]
	return data, ok
}

// unitApps lists the distinct applications behind a unit list.
func unitApps(units []string) []string {
	seen := map[string]struct{}{}
	var apps []string
	for _, unit := range units {
		app := UnitApp(unit)
		if _, ok := seen[app]; !ok {
			seen[app] = struct{}{}
			apps = append(apps, app)
		}
	}
	sort.Strings(apps)
	return apps
}

// sortedKeys returns map keys in stable order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
