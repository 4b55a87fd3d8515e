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
	"sort"
	"sync"
)

// record is one relation's bags.
type record struct {
	app   map[string]Data
	units map[string]Data
}

// MemoryStore is an in-process Store. It backs tests and single-binary
// runs where no external state sharing is needed.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*record
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*record)}
}

// Relations implements Store.
func (s *MemoryStore) Relations(_ context.Context, name string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id := range s.records {
		if Name(id) == name {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// AppData implements Store.
func (s *MemoryStore) AppData(_ context.Context, id, app string) (Data, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rec, ok := s.records[id]; ok {
		return rec.app[app].Clone(), nil
	}
	return nil, nil
}

// SetAppData implements Store.
func (s *MemoryStore) SetAppData(_ context.Context, id, app string, data Data) error {
	if err := validateID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensure(id).app[app] = data.Clone()
	return nil
}

// Units implements Store.
func (s *MemoryStore) Units(_ context.Context, id string) ([]string, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	units := make([]string, 0, len(rec.units))
	for unit := range rec.units {
		units = append(units, unit)
	}
	sort.Strings(units)
	return units, nil
}

// UnitData implements Store.
func (s *MemoryStore) UnitData(_ context.Context, id, unit string) (Data, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if rec, ok := s.records[id]; ok {
		return rec.units[unit].Clone(), nil
	}
	return nil, nil
}

// SetUnitData implements Store.
func (s *MemoryStore) SetUnitData(_ context.Context, id, unit string, data Data) error {
	if err := validateID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensure(id).units[unit] = data.Clone()
	return nil
}

// DeleteUnitData implements Store.
func (s *MemoryStore) DeleteUnitData(_ context.Context, id, unit string) error {
	if err := validateID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[id]; ok {
		delete(rec.units, unit)
	}
	return nil
}

// ensure returns the record for id, creating it under the held write lock.
func (s *MemoryStore) ensure(id string) *record {
	rec, ok := s.records[id]
	if !ok {
		rec = &record{app: make(map[string]Data), units: make(map[string]Data)}
		s.records[id] = rec
	}
	return rec
}
