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

package restconf

import (
	"github.com/yndd/yang-explorer/pkg/request"
	"github.com/yndd/yang-explorer/pkg/schema"
)

// selection is a schema node reached by at least one entry. Choice, case
// and input nodes never get a selection of their own.
type selection struct {
	node   *schema.Node
	module string
	// entry is set for leaves, containers and lists that were requested
	// themselves, values holds the entries of a leaf-list
	entry    *request.Entry
	values   []request.Entry
	parent   *selection
	children []*selection
	depth    int
}

func (s *selection) entries() []request.Entry {
	if s.entry != nil {
		return []request.Entry{*s.entry}
	}
	return s.values
}

// child returns the selected child with the given local name
func (s *selection) child(name string) *selection {
	for _, c := range s.children {
		if c.node.LocalName() == name {
			return c
		}
	}
	return nil
}

// isKey is true for a key leaf of the enclosing list
func (s *selection) isKey() bool {
	return s.node != nil && s.node.IsKey && s.parent != nil && s.parent.node != nil && s.parent.node.Kind == schema.KindList
}

// walk visits the selection tree in schema document order
func (s *selection) walk(f func(*selection)) {
	f(s)
	for _, c := range s.children {
		c.walk(f)
	}
}

// contains is true when o is s or one of its descendants
func (s *selection) contains(o *selection) bool {
	for ; o != nil; o = o.parent {
		if o == s {
			return true
		}
	}
	return false
}

type walker struct {
	m   *schema.Model
	set *request.Set
}

func (w *walker) moduleOf(n *schema.Node, parent string) string {
	if n.Prefix == "" {
		return parent
	}
	if module, ok := w.m.ModuleFor(n.Prefix); ok {
		return module
	}
	return parent
}

// collect appends the selections for n and its descendants to parent
func (w *walker) collect(parent *selection, n *schema.Node, path, module string) {
	path = path + "/" + n.Name
	module = w.moduleOf(n, module)
	s := &selection{node: n, module: module, parent: parent, depth: parent.depth + 1}
	switch n.Kind {
	case schema.KindLeaf:
		e, ok := w.set.Pop(path)
		if !ok {
			return
		}
		s.entry = &e
	case schema.KindLeafList:
		for {
			e, ok := w.set.Pop(path)
			if !ok {
				break
			}
			s.values = append(s.values, e)
		}
		if len(s.values) == 0 {
			return
		}
	case schema.KindChoice, schema.KindCase, schema.KindInput:
		for _, c := range n.Children {
			w.collect(parent, c, path, module)
		}
		return
	case schema.KindOutput, schema.KindNotification:
		return
	default:
		if e, ok := w.set.Pop(path); ok {
			s.entry = &e
		}
		for _, c := range n.Children {
			w.collect(s, c, path, module)
		}
		if s.entry == nil && len(s.children) == 0 {
			return
		}
	}
	parent.children = append(parent.children, s)
}
