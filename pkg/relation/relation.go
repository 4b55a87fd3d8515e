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
	"strings"

	"github.com/NVIDIA/scrape-relay/pkg/errors"
)

// Data is a flat relation data bag. Values are opaque strings; nested
// structures are JSON-encoded by the wire package before they land here.
type Data map[string]string

// Clone returns a deep copy, so stores can hand out bags without
// exposing internal state.
func (d Data) Clone() Data {
	if d == nil {
		return nil
	}
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Equal reports whether two bags hold identical keys and values.
func (d Data) Equal(other Data) bool {
	if len(d) != len(other) {
		return false
	}
	for k, v := range d {
		if other[k] != v {
			return false
		}
	}
	return true
}

// Name extracts the relation name from a relation ID of the form
// "name:ordinal". IDs without an ordinal are returned whole.
func Name(id string) string {
	if i := strings.IndexByte(id, ':'); i >= 0 {
		return id[:i]
	}
	return id
}

// UnitApp strips the unit ordinal ("consumer/0" -> "consumer").
func UnitApp(unit string) string {
	if i := strings.LastIndexByte(unit, '/'); i >= 0 {
		return unit[:i]
	}
	return unit
}

// Store persists relation data bags. Implementations must be safe for
// concurrent use.
type Store interface {
	// Relations lists the IDs of relations with the given name, in
	// stable order.
	Relations(ctx context.Context, name string) ([]string, error)

	// AppData reads the data bag the named application published on a
	// relation. A missing bag reads as empty, not as an error.
	AppData(ctx context.Context, id, app string) (Data, error)

	// SetAppData replaces an application data bag, creating the
	// relation record if needed.
	SetAppData(ctx context.Context, id, app string, data Data) error

	// Units lists the units holding data bags on a relation, in stable
	// order.
	Units(ctx context.Context, id string) ([]string, error)

	// UnitData reads a unit's data bag. A missing bag reads as empty.
	UnitData(ctx context.Context, id, unit string) (Data, error)

	// SetUnitData replaces a unit data bag, creating the relation
	// record if needed.
	SetUnitData(ctx context.Context, id, unit string, data Data) error

	// DeleteUnitData removes a unit's bag. Deleting an absent bag is
	// not an error.
	DeleteUnitData(ctx context.Context, id, unit string) error
}

// EventType classifies a relation change.
type EventType int

const (
	// UnitJoined fires when a unit's bag appears on a relation.
	UnitJoined EventType = iota
	// UnitChanged fires when a unit's bag content changes.
	UnitChanged
	// UnitDeparted fires when a unit's bag disappears.
	UnitDeparted
	// AppChanged fires when an application bag appears or changes.
	AppChanged
)

// String returns the event type in hook-style spelling.
func (t EventType) String() string {
	switch t {
	case UnitJoined:
		return "joined"
	case UnitChanged:
		return "changed"
	case UnitDeparted:
		return "departed"
	case AppChanged:
		return "app-changed"
	}
	return "unknown"
}

// Event is one observed relation change.
type Event struct {
	Type       EventType
	RelationID string
	App        string
	Unit       string
}

// Events is a source of relation change events. Watch delivers events
// until ctx is canceled, then closes the channel.
type Events interface {
	Watch(ctx context.Context) (<-chan Event, error)
}

// validateID rejects relation IDs that cannot name a stored record.
func validateID(id string) error {
	if id == "" || Name(id) == "" {
		return errors.New(errors.ErrCodeInvalidRequest, "empty relation id")
	}
	return nil
}
