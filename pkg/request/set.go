/*
Copyright 2022 Yndd.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package request

import "sort"

// Set is a consume once multiset of entries indexed by normalized path.
// A Set belongs to a single compile call and is not safe for concurrent use.
type Set struct {
	byPath map[string][]int
	// position in supplied order
	entries  []Entry
	consumed []bool
	left     int
}

// NewSet indexes the entries
func NewSet(entries []Entry) *Set {
	s := &Set{
		byPath:   make(map[string][]int, len(entries)),
		entries:  entries,
		consumed: make([]bool, len(entries)),
		left:     len(entries),
	}
	for i, e := range entries {
		p := NormalizePath(e.Path)
		s.byPath[p] = append(s.byPath[p], i)
	}
	return s
}

// Pop removes and returns the first unconsumed entry for path
func (s *Set) Pop(path string) (Entry, bool) {
	idx := s.byPath[path]
	for len(idx) > 0 {
		i := idx[0]
		idx = idx[1:]
		if s.consumed[i] {
			continue
		}
		s.consumed[i] = true
		s.left--
		s.byPath[path] = idx
		return s.entries[i], true
	}
	delete(s.byPath, path)
	return Entry{}, false
}

// Peek returns the first unconsumed entry for path without consuming it
func (s *Set) Peek(path string) (Entry, bool) {
	for _, i := range s.byPath[path] {
		if !s.consumed[i] {
			return s.entries[i], true
		}
	}
	return Entry{}, false
}

// Len returns the number of unconsumed entries
func (s *Set) Len() int {
	return s.left
}

// Remaining returns the sorted paths of the unconsumed entries
func (s *Set) Remaining() []string {
	paths := make([]string, 0, s.left)
	for i, e := range s.entries {
		if !s.consumed[i] {
			paths = append(paths, e.Path)
		}
	}
	sort.Strings(paths)
	return paths
}

// Check returns an UnconsumedError when entries are left
func (s *Set) Check() error {
	if s.left == 0 {
		return nil
	}
	return &UnconsumedError{Paths: s.Remaining()}
}
