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

package ypath

import (
	"strings"

	"github.com/yndd/yang-explorer/pkg/schema"
)

// Option can be used to manipulate the iterator
type Option func(*Iterator)

// WithKeys appends the list keys to list segments: interface[name]
func WithKeys() Option {
	return func(i *Iterator) {
		i.keys = true
	}
}

// WithPrefixes only yields paths touching one of the given module prefixes.
// Subtrees owned by other prefixes are skipped entirely.
func WithPrefixes(prefixes ...string) Option {
	return func(i *Iterator) {
		for _, p := range prefixes {
			if p != "" {
				i.prefixes[p] = true
			}
		}
	}
}

// WithDefault also yields paths that only touch the local module, when
// prefixes are filtered
func WithDefault() Option {
	return func(i *Iterator) {
		i.inclDefault = true
	}
}

// WithRootPrefix qualifies unqualified segments with the module prefix
func WithRootPrefix() Option {
	return func(i *Iterator) {
		i.rootPrefix = true
	}
}

type frame struct {
	node *schema.Node
	// path of the parent
	parent []string
}

// Iterator walks a model depth first in declared order and yields the
// canonical path of every node below the module. It is not safe for
// concurrent use; create one iterator per walk.
type Iterator struct {
	model       *schema.Model
	keys        bool
	prefixes    map[string]bool
	inclDefault bool
	rootPrefix  bool

	stack []frame
}

// Iterate returns an iterator positioned at the module root
func Iterate(m *schema.Model, opts ...Option) *Iterator {
	i := &Iterator{
		model:    m,
		prefixes: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.Reset()
	return i
}

// Reset restarts the walk from the module root
func (i *Iterator) Reset() {
	i.stack = i.stack[:0]
	root := i.model.Root()
	i.push(root, []string{root.Name})
}

// Next returns the next path and node; ok is false when the walk is done
func (i *Iterator) Next() (path string, n *schema.Node, ok bool) {
	for len(i.stack) > 0 {
		f := i.stack[len(i.stack)-1]
		i.stack = i.stack[:len(i.stack)-1]

		segments := make([]string, len(f.parent), len(f.parent)+1)
		copy(segments, f.parent)
		segments = append(segments, i.segment(f.node))
		i.push(f.node, segments)

		if i.emit(segments) {
			return strings.Join(segments, "/"), f.node, true
		}
	}
	return "", nil, false
}

// All drains the iterator and returns every path
func (i *Iterator) All() []string {
	paths := make([]string, 0)
	for {
		p, _, ok := i.Next()
		if !ok {
			return paths
		}
		paths = append(paths, p)
	}
}

// push stacks the children of n in reverse so they pop in declared order
func (i *Iterator) push(n *schema.Node, path []string) {
	for j := len(n.Children) - 1; j >= 0; j-- {
		c := n.Children[j]
		if i.filtered(c) {
			continue
		}
		i.stack = append(i.stack, frame{node: c, parent: path})
	}
}

func (i *Iterator) segment(n *schema.Node) string {
	name := n.Name
	if i.keys && n.Kind == schema.KindList {
		name += "[" + strings.Join(n.Keys, " ") + "]"
	}
	if i.rootPrefix && !strings.Contains(name, ":") {
		name = i.model.Prefix() + ":" + name
	}
	return name
}

func (i *Iterator) filtered(n *schema.Node) bool {
	if len(i.prefixes) == 0 {
		return false
	}
	pfx := schema.NamePrefix(n.Name)
	return pfx != "" && !i.prefixes[pfx]
}

func (i *Iterator) emit(segments []string) bool {
	if len(i.prefixes) == 0 {
		return true
	}
	if i.inclDefault && i.localOnly(segments[1:]) {
		return true
	}
	for _, seg := range segments {
		if p := schema.NamePrefix(seg); p != "" && i.prefixes[p] {
			return true
		}
	}
	return false
}

func (i *Iterator) localOnly(segments []string) bool {
	for _, seg := range segments {
		if i.rootPrefix {
			if !strings.HasPrefix(seg, i.model.Prefix()+":") {
				return false
			}
			continue
		}
		if strings.Contains(seg, ":") {
			return false
		}
	}
	return true
}
