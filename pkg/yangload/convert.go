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

package yangload

import (
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/openconfig/goyang/pkg/yang"
	"github.com/yndd/yang-explorer/pkg/schema"
)

type converter struct {
	ms  *yang.Modules
	mod *yang.Module
	// modules owning at least one converted node, by name
	used map[string]*yang.Module
}

func newConverter(ms *yang.Modules, mod *yang.Module) *converter {
	return &converter{
		ms:   ms,
		mod:  mod,
		used: map[string]*yang.Module{mod.Name: mod},
	}
}

// owner returns the module a yang node is defined in, resolving submodules
// to the module they belong to
func (c *converter) owner(n yang.Node) *yang.Module {
	if n == nil {
		return nil
	}
	mod := yang.RootNode(n)
	if mod != nil && mod.BelongsTo != nil {
		if parent, ok := c.ms.Modules[mod.BelongsTo.Name]; ok {
			return parent
		}
	}
	return mod
}

func (c *converter) root(e *yang.Entry) *schema.Node {
	n := &schema.Node{
		Kind:        schema.KindModule,
		Name:        c.mod.Name,
		Prefix:      c.mod.GetPrefix(),
		Description: e.Description,
	}
	n.Children = c.children(e, n.Prefix)
	return n
}

func (c *converter) children(e *yang.Entry, prefix string) []*schema.Node {
	entries := make([]*yang.Entry, 0, len(e.Dir))
	for _, child := range e.Dir {
		entries = append(entries, child)
	}
	sortEntries(entries, location(e), declared(e.Node, map[*yang.Grouping]bool{}))
	nodes := make([]*schema.Node, 0, len(entries))
	for _, child := range entries {
		nodes = append(nodes, c.node(child, prefix))
	}
	return nodes
}

func (c *converter) node(e *yang.Entry, parentPrefix string) *schema.Node {
	n := &schema.Node{
		Name:        e.Name,
		Prefix:      parentPrefix,
		Description: e.Description,
		Mandatory:   e.Mandatory == yang.TSTrue,
	}
	if mod := c.owner(e.Node); mod != nil {
		c.used[mod.Name] = mod
		n.Prefix = mod.GetPrefix()
	}
	if n.Prefix != parentPrefix {
		n.Name = n.Prefix + ":" + e.Name
	}
	switch e.Config {
	case yang.TSTrue:
		n.Access = schema.AccessReadWrite
	case yang.TSFalse:
		n.Access = schema.AccessReadOnly
	}

	switch {
	case e.RPC != nil:
		n.Kind = schema.KindRpc
		for _, io := range []*yang.Entry{e.RPC.Input, e.RPC.Output} {
			if io != nil {
				n.Children = append(n.Children, c.node(io, n.Prefix))
			}
		}
		return n
	case e.Kind == yang.InputEntry:
		n.Kind = schema.KindInput
	case e.Kind == yang.OutputEntry:
		n.Kind = schema.KindOutput
	case e.Kind == yang.NotificationEntry:
		n.Kind = schema.KindNotification
	case e.Kind == yang.ChoiceEntry:
		n.Kind = schema.KindChoice
	case e.Kind == yang.CaseEntry:
		n.Kind = schema.KindCase
	case e.IsList():
		n.Kind = schema.KindList
		n.Keys = strings.Fields(e.Key)
	case e.IsLeafList():
		n.Kind = schema.KindLeafList
		c.leaf(n, e)
		return n
	case e.Kind == yang.LeafEntry:
		n.Kind = schema.KindLeaf
		c.leaf(n, e)
		return n
	case e.Kind == yang.AnyDataEntry:
		n.Kind = schema.KindLeaf
		n.Datatype = "anydata"
		return n
	case e.Kind == yang.AnyXMLEntry:
		n.Kind = schema.KindLeaf
		n.Datatype = "anyxml"
		return n
	default:
		n.Kind = schema.KindContainer
		if ct, ok := e.Node.(*yang.Container); ok && ct.Presence != nil {
			n.Presence = true
		}
	}
	n.Children = c.children(e, n.Prefix)
	return n
}

func (c *converter) leaf(n *schema.Node, e *yang.Entry) {
	if l, ok := e.Node.(*yang.Leaf); ok && l.Default != nil {
		n.Default = l.Default.Name
	}
	if e.Type != nil {
		n.Datatype, n.Values, n.Members = c.datatype(e.Type)
	}
}

// datatype renders a resolved type the way compiled schema documents do
func (c *converter) datatype(t *yang.YangType) (string, []string, []*schema.Node) {
	switch t.Kind {
	case yang.Yidentityref:
		if t.IdentityBase == nil {
			return "identityref", nil, nil
		}
		base := t.IdentityBase.Name
		if mod := c.owner(t.IdentityBase); mod != nil {
			c.used[mod.Name] = mod
			base = mod.GetPrefix() + ":" + base
		}
		return "identityref:" + base, nil, nil
	case yang.Yleafref:
		return "-> " + t.Path, nil, nil
	case yang.Yenum:
		if t.Enum != nil {
			return "enumeration", t.Enum.Names(), nil
		}
	case yang.Ybits:
		if t.Bit != nil {
			return "bits", t.Bit.Names(), nil
		}
	case yang.Yunion:
		members := make([]*schema.Node, 0, len(t.Type))
		for _, mt := range t.Type {
			datatype, values, nested := c.datatype(mt)
			members = append(members, &schema.Node{
				Kind:     schema.KindLeaf,
				Name:     datatype,
				Datatype: datatype,
				Values:   values,
				Members:  nested,
			})
		}
		return "union", nil, members
	}
	return t.Kind.String(), nil, nil
}

// namespaces lists the compiled module, its imports and every other module
// owning converted nodes or identities
func (c *converter) namespaces() []schema.Namespace {
	out := []schema.Namespace{namespaceOf(c.mod, true)}
	seen := map[string]bool{c.mod.Name: true}
	for _, imp := range c.mod.Import {
		mod := imp.Module
		if mod == nil {
			mod = c.ms.Modules[imp.Name]
		}
		if mod == nil || seen[mod.Name] {
			continue
		}
		seen[mod.Name] = true
		out = append(out, namespaceOf(mod, true))
	}
	for _, name := range sortedNames(c.used) {
		if !seen[name] {
			seen[name] = true
			out = append(out, namespaceOf(c.used[name], false))
		}
	}
	return out
}

func namespaceOf(mod *yang.Module, direct bool) schema.Namespace {
	ns := schema.Namespace{
		Module: mod.Name,
		Prefix: mod.GetPrefix(),
		Direct: direct,
	}
	if mod.Namespace != nil {
		ns.URI = mod.Namespace.Name
	}
	return ns
}

// identities returns the identities of every loaded module with their bases
// resolved to module:identity keys
func (c *converter) identities() []schema.Identity {
	mods := map[string]*yang.Module{}
	for _, mod := range c.ms.Modules {
		if mod.BelongsTo == nil {
			mods[mod.Name] = mod
		}
	}
	out := make([]schema.Identity, 0)
	for _, name := range sortedNames(mods) {
		mod := mods[name]
		for _, id := range mod.Identity {
			sid := schema.Identity{Module: mod.Name, Name: id.Name}
			for _, b := range id.Base {
				sid.Bases = append(sid.Bases, c.identityKey(mod, b.Name))
			}
			out = append(out, sid)
		}
	}
	return out
}

// identityKey resolves a base written [prefix:]name inside mod
func (c *converter) identityKey(mod *yang.Module, base string) string {
	pfx, name := schema.NamePrefix(base), schema.LocalName(base)
	if pfx == "" || pfx == mod.GetPrefix() {
		return mod.Name + ":" + name
	}
	for _, imp := range mod.Import {
		if imp.Prefix != nil && imp.Prefix.Name == pfx {
			return imp.Name + ":" + name
		}
	}
	return base
}

func sortedNames(mods map[string]*yang.Module) []string {
	names := make([]string, 0, len(mods))
	for name := range mods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type position struct {
	file      string
	line, col int
}

// location parses the file:line:col location of the statement defining e
func location(e *yang.Entry) position {
	if e == nil || e.Node == nil || e.Node.Statement() == nil {
		return position{}
	}
	loc := e.Node.Statement().Location()
	parts := strings.Split(loc, ":")
	if len(parts) < 3 {
		return position{file: loc}
	}
	line, _ := strconv.Atoi(parts[len(parts)-2])
	col, _ := strconv.Atoi(parts[len(parts)-1])
	return position{file: strings.Join(parts[:len(parts)-2], ":"), line: line, col: col}
}

// dataKeywords are the statements declaring a child entry
var dataKeywords = map[string]bool{
	"container": true, "leaf": true, "leaf-list": true, "list": true,
	"choice": true, "case": true, "anydata": true, "anyxml": true,
	"rpc": true, "action": true, "notification": true,
}

// declared returns the rank of every child name declared by the statement
// of n. A uses statement contributes the nodes of its grouping at its own
// position.
func declared(n yang.Node, seen map[*yang.Grouping]bool) map[string]int {
	ranks := map[string]int{}
	for _, name := range declaredNames(n, seen) {
		if _, ok := ranks[name]; !ok {
			ranks[name] = len(ranks)
		}
	}
	return ranks
}

func declaredNames(n yang.Node, seen map[*yang.Grouping]bool) []string {
	if n == nil || reflect.ValueOf(n).IsNil() || n.Statement() == nil {
		return nil
	}
	uses := usesOf(n)
	names := make([]string, 0)
	for _, st := range n.Statement().SubStatements() {
		switch {
		case dataKeywords[st.Keyword]:
			names = append(names, st.Argument)
		case st.Keyword == "input" || st.Keyword == "output":
			names = append(names, st.Keyword)
		case st.Keyword == "uses":
			u, ok := uses[st]
			if !ok {
				continue
			}
			g := yang.FindGrouping(u, u.Name, map[string]bool{})
			if g == nil || seen[g] {
				continue
			}
			seen[g] = true
			names = append(names, declaredNames(g, seen)...)
			delete(seen, g)
		}
	}
	return names
}

// usesOf indexes the uses nodes of n by their statement
func usesOf(n yang.Node) map[*yang.Statement]*yang.Uses {
	out := map[*yang.Statement]*yang.Uses{}
	v := reflect.ValueOf(n).Elem().FieldByName("Uses")
	if !v.IsValid() {
		return out
	}
	for _, u := range v.Interface().([]*yang.Uses) {
		out[u.Statement()] = u
	}
	return out
}

// augmented returns true when n is declared inside an augment statement
func augmented(n yang.Node) bool {
	for ; n != nil && !reflect.ValueOf(n).IsNil(); n = n.ParentNode() {
		if _, ok := n.(*yang.Augment); ok {
			return true
		}
	}
	return false
}

// sortEntries restores declaration order: nodes declared by the parent
// statement first, in statement order with groupings expanded at their
// uses; then other nodes of the parent's file; augmentations last.
func sortEntries(entries []*yang.Entry, parent position, ranks map[string]int) {
	group := func(e *yang.Entry) (int, int) {
		if e.Node != nil && augmented(e.Node) {
			return 2, 0
		}
		if r, ok := ranks[e.Name]; ok {
			return 0, r
		}
		return 1, 0
	}
	sort.SliceStable(entries, func(i, j int) bool {
		gi, ri := group(entries[i])
		gj, rj := group(entries[j])
		if gi != gj {
			return gi < gj
		}
		if gi == 0 {
			return ri < rj
		}
		a, b := location(entries[i]), location(entries[j])
		if (a.file == parent.file) != (b.file == parent.file) {
			return a.file == parent.file
		}
		if a.file != b.file {
			return a.file < b.file
		}
		if a.line != b.line {
			return a.line < b.line
		}
		if a.col != b.col {
			return a.col < b.col
		}
		return entries[i].Name < entries[j].Name
	})
}
