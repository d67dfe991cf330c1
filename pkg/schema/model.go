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

package schema

import (
	"strings"
)

// Namespace binds a module to its prefix and namespace uri. Direct is true
// when the module is the compiled module itself or imports it directly.
type Namespace struct {
	Module string `json:"module,omitempty"`
	Prefix string `json:"prefix,omitempty"`
	URI    string `json:"uri,omitempty"`
	Direct bool   `json:"direct,omitempty"`
}

// Identity is an identity declaration. Bases are module:identity keys.
type Identity struct {
	Module string
	Name   string
	Bases  []string
}

// Key returns the module:identity key of the identity
func (i Identity) Key() string {
	return i.Module + ":" + i.Name
}

// Model is the immutable in-memory representation of one compiled module.
// All methods are safe for concurrent use.
type Model struct {
	name     string
	prefix   string
	revision string
	root     *Node

	namespaces []Namespace
	byModule   map[string]Namespace
	byPrefix   map[string]Namespace
	// flattened identity derivations: base key -> prefix:value
	identities map[string][]string
}

// NewModel validates the tree below root, resolves all value domains and
// returns the model. NewModel takes ownership of root; the nodes must not
// be modified by the caller afterwards.
func NewModel(root *Node, revision string, namespaces []Namespace, identities []Identity) (*Model, error) {
	if root == nil || root.Kind != KindModule {
		return nil, malformed(errNoRoot)
	}
	if root.Name == "" {
		return nil, malformed(errNoName)
	}
	if root.Prefix == "" {
		return nil, malformed("%s: %s", errNoPrefix, root.Name)
	}
	m := &Model{
		name:       root.Name,
		prefix:     root.Prefix,
		revision:   revision,
		root:       root,
		namespaces: make([]Namespace, 0, len(namespaces)+1),
		byModule:   make(map[string]Namespace),
		byPrefix:   make(map[string]Namespace),
	}
	for _, ns := range namespaces {
		if ns.Prefix == "" || ns.URI == "" {
			return nil, malformed("%s: module %q", errBadNamespace, ns.Module)
		}
		if ns.Module == "" && ns.Prefix == root.Prefix {
			ns.Module = root.Name
		}
		if ns.Module == root.Name {
			ns.Direct = true
		}
		m.addNamespace(ns)
	}
	for _, id := range identities {
		if id.Module == "" || id.Name == "" {
			return nil, malformed("%s: %q", errBadIdentity, id.Key())
		}
	}
	m.identities = flattenIdentities(m, identities)

	if err := m.finalize(root, nil, AccessReadWrite); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Model) addNamespace(ns Namespace) {
	if _, ok := m.byPrefix[ns.Prefix]; ok {
		return
	}
	m.namespaces = append(m.namespaces, ns)
	m.byPrefix[ns.Prefix] = ns
	if ns.Module != "" {
		m.byModule[ns.Module] = ns
	}
}

// finalize walks the tree once: it fills in owning prefixes, access, key
// flags, child indexes and the resolved value domains.
func (m *Model) finalize(n *Node, parent *Node, access Access) error {
	if n.Name == "" {
		return malformed(errNoName)
	}
	if parent != nil {
		if pfx := NamePrefix(n.Name); pfx != "" {
			n.Prefix = pfx
		} else if n.Prefix == "" {
			n.Prefix = parent.Prefix
		}
	}
	if n.Access == AccessNone {
		n.Access = deriveAccess(n.Kind, access)
	}

	switch n.Kind {
	case KindLeaf, KindLeafList:
		n.Values = m.resolveDomain(n)
		return nil
	case KindList:
		if err := markKeys(n); err != nil {
			return err
		}
	}

	n.index = make(map[string]*Node, len(n.Children))
	for _, c := range n.Children {
		if _, ok := n.index[c.Name]; ok {
			return malformed("%s: %s/%s", errDuplicateNode, n.Name, c.Name)
		}
		n.index[c.Name] = c
		if err := m.finalize(c, n, n.Access); err != nil {
			return err
		}
	}
	return nil
}

func deriveAccess(k Kind, parent Access) Access {
	switch k {
	case KindRpc, KindInput:
		return AccessWrite
	case KindOutput, KindNotification:
		return AccessReadOnly
	}
	if parent == AccessNone {
		return AccessReadWrite
	}
	return parent
}

func markKeys(n *Node) error {
	for _, key := range n.Keys {
		found := false
		for _, c := range n.Children {
			if c.Kind == KindLeaf && c.LocalName() == LocalName(key) {
				c.IsKey = true
				c.Mandatory = true
				found = true
				break
			}
		}
		if !found {
			return malformed("%s: list %q key %q", errMissingKey, n.Name, key)
		}
	}
	return nil
}

// resolveDomain returns the enumerated values of a leaf: identityref values
// from the flattened identity table, the boolean domain, the declared
// enumeration, or the union of all member domains
func (m *Model) resolveDomain(n *Node) []string {
	if len(n.Members) > 0 {
		values := make([]string, 0)
		seen := make(map[string]bool)
		for _, mb := range n.Members {
			if mb.Prefix == "" {
				mb.Prefix = n.Prefix
			}
			for _, v := range m.resolveDomain(mb) {
				if !seen[v] {
					seen[v] = true
					values = append(values, v)
				}
			}
		}
		return values
	}
	if base, ok := identityBase(n.Datatype); ok {
		if values := m.IdentityValuesFor(m.identityKey(base, n.Prefix)); len(values) != 0 {
			return values
		}
		return n.Values
	}
	if len(n.Values) != 0 {
		return n.Values
	}
	if n.Datatype == "boolean" {
		return []string{"true", "false"}
	}
	return nil
}

// identityKey turns an identityref base into a module:identity key
func (m *Model) identityKey(base, owner string) string {
	if pfx := NamePrefix(base); pfx != "" {
		if ns, ok := m.byPrefix[pfx]; ok && ns.Module != "" {
			return ns.Module + ":" + LocalName(base)
		}
		// already module qualified
		return base
	}
	if ns, ok := m.byPrefix[owner]; ok && ns.Module != "" {
		return ns.Module + ":" + base
	}
	return m.name + ":" + base
}

// Name returns the module name
func (m *Model) Name() string { return m.name }

// Prefix returns the module prefix
func (m *Model) Prefix() string { return m.prefix }

// Revision returns the module revision, may be empty
func (m *Model) Revision() string { return m.revision }

// Root returns the module node
func (m *Model) Root() *Node { return m.root }

// Namespaces returns the namespace table in declaration order
func (m *Model) Namespaces() []Namespace {
	out := make([]Namespace, len(m.namespaces))
	copy(out, m.namespaces)
	return out
}

// FindChild returns the child of node with the given declared name
func (m *Model) FindChild(n *Node, name string) (*Node, bool) {
	if n == nil {
		return nil, false
	}
	c := n.Child(name)
	return c, c != nil
}

// NamespaceFor returns the namespace uri bound to prefix
func (m *Model) NamespaceFor(prefix string) (string, bool) {
	ns, ok := m.byPrefix[prefix]
	return ns.URI, ok
}

// ModuleFor returns the module name bound to prefix
func (m *Model) ModuleFor(prefix string) (string, bool) {
	ns, ok := m.byPrefix[prefix]
	return ns.Module, ok
}

// PrefixFor returns the namespace entry of a module
func (m *Model) PrefixFor(module string) (Namespace, bool) {
	ns, ok := m.byModule[module]
	return ns, ok
}

// IdentityValuesFor returns all identities deriving from the base identity
// key (module:identity) as prefix:value strings
func (m *Model) IdentityValuesFor(key string) []string {
	values := m.identities[key]
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}

// Lookup resolves a slash separated path starting with the module name.
// List segments may carry a [key ...] suffix.
func (m *Model) Lookup(path string) (*Node, error) {
	trail, err := m.Trail(path)
	if err != nil {
		return nil, err
	}
	return trail[len(trail)-1], nil
}

// Trail resolves path and returns every node along it, module first
func (m *Model) Trail(path string) ([]*Node, error) {
	segments := SplitPath(path)
	if len(segments) == 0 || SegmentName(segments[0]) != m.name {
		first := ""
		if len(segments) != 0 {
			first = segments[0]
		}
		return nil, pathNotFound(path, first)
	}
	trail := make([]*Node, 0, len(segments))
	n := m.root
	trail = append(trail, n)
	for _, seg := range segments[1:] {
		c := n.Child(SegmentName(seg))
		if c == nil {
			return nil, pathNotFound(path, seg)
		}
		trail = append(trail, c)
		n = c
	}
	return trail, nil
}

// SplitPath splits a slash separated path, ignoring leading and trailing
// slashes. Slashes inside a [...] key suffix do not split.
func SplitPath(path string) []string {
	path = strings.Trim(strings.TrimSpace(path), "/")
	if path == "" {
		return nil
	}
	segments := make([]string, 0, strings.Count(path, "/")+1)
	depth := 0
	start := 0
	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '[':
			depth++
		case ']':
			if depth > 0 {
				depth--
			}
		case '/':
			if depth == 0 {
				segments = append(segments, path[start:i])
				start = i + 1
			}
		}
	}
	return append(segments, path[start:])
}

// SegmentName strips a [key ...] suffix from a path segment
func SegmentName(seg string) string {
	if i := strings.Index(seg, "["); i >= 0 {
		return seg[:i]
	}
	return seg
}
