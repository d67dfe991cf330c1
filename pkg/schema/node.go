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

// Kind is the kind of a schema node
type Kind string

const (
	KindModule       Kind = "module"
	KindContainer    Kind = "container"
	KindList         Kind = "list"
	KindLeaf         Kind = "leaf"
	KindLeafList     Kind = "leaf-list"
	KindChoice       Kind = "choice"
	KindCase         Kind = "case"
	KindRpc          Kind = "rpc"
	KindNotification Kind = "notification"
	KindInput        Kind = "input"
	KindOutput       Kind = "output"
)

// ParseKind returns the kind for the type attribute of a compiled node.
// leafref is accepted as an alias of leaf and action as an alias of rpc.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "module":
		return KindModule, true
	case "container":
		return KindContainer, true
	case "list":
		return KindList, true
	case "leaf", "leafref":
		return KindLeaf, true
	case "leaf-list":
		return KindLeafList, true
	case "choice":
		return KindChoice, true
	case "case":
		return KindCase, true
	case "rpc", "action":
		return KindRpc, true
	case "notification":
		return KindNotification, true
	case "input":
		return KindInput, true
	case "output":
		return KindOutput, true
	}
	return "", false
}

func (k Kind) String() string {
	return string(k)
}

// Access of a schema node derived from the config statement and the
// traversal mode (input, output, notification)
type Access string

const (
	AccessNone      Access = ""
	AccessReadOnly  Access = "read-only"
	AccessReadWrite Access = "read-write"
	AccessWrite     Access = "write"
)

// Node is a single node of a compiled schema tree. Nodes are created by
// NewModel or Load and must not be modified afterwards.
type Node struct {
	Kind Kind
	// Name as declared; nodes owned by another module are named prefix:name
	Name string
	// Prefix of the module owning the node
	Prefix   string
	Datatype string
	// Values is the resolved value domain of a leaf or leaf-list
	Values      []string
	IsKey       bool
	Keys        []string
	Mandatory   bool
	Default     string
	Presence    bool
	Access      Access
	Description string
	// Members are the member types of a union leaf
	Members  []*Node
	Children []*Node

	index map[string]*Node
}

// LocalName returns the name without the module prefix
func (n *Node) LocalName() string {
	return LocalName(n.Name)
}

// LocalName strips the prefix of a prefix:name string
func LocalName(name string) string {
	if i := strings.Index(name, ":"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// NamePrefix returns the prefix of a prefix:name string or ""
func NamePrefix(name string) string {
	if i := strings.Index(name, ":"); i >= 0 {
		return name[:i]
	}
	return ""
}

// IsTerminal returns true for leaf and leaf-list nodes
func (n *Node) IsTerminal() bool {
	return n.Kind == KindLeaf || n.Kind == KindLeafList
}

// IsTransparent returns true for nodes that never appear in instance data
// (choice and case)
func (n *Node) IsTransparent() bool {
	return n.Kind == KindChoice || n.Kind == KindCase
}

// IsKeyName returns true when name is one of the list keys
func (n *Node) IsKeyName(name string) bool {
	ln := LocalName(name)
	for _, k := range n.Keys {
		if LocalName(k) == ln {
			return true
		}
	}
	return false
}

// Child returns the direct child with the given name. A name qualified
// with the prefix of the child's owning module also matches.
func (n *Node) Child(name string) *Node {
	if n.index != nil {
		if c, ok := n.index[name]; ok {
			return c
		}
	} else {
		for _, c := range n.Children {
			if c.Name == name {
				return c
			}
		}
	}
	pfx := NamePrefix(name)
	if pfx == "" {
		return nil
	}
	local := LocalName(name)
	for _, c := range n.Children {
		if c.LocalName() == local && c.Prefix == pfx {
			return c
		}
	}
	return nil
}

// LeafRefTarget returns the target path of a leafref datatype, which the
// schema compiler writes as "-> target/path"
func (n *Node) LeafRefTarget() (string, bool) {
	if !strings.HasPrefix(n.Datatype, "->") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(n.Datatype, "->")), true
}

// IdentityBase returns the base of an identityref datatype, written
// "identityref:base" or "identityref:prefix:base"
func (n *Node) IdentityBase() (string, bool) {
	return identityBase(n.Datatype)
}

func identityBase(datatype string) (string, bool) {
	if !strings.HasPrefix(datatype, "identityref") {
		return "", false
	}
	base := strings.TrimPrefix(datatype, "identityref")
	base = strings.TrimPrefix(base, ":")
	return base, base != ""
}

// IsNumeric returns true when the datatype is one of the integer types
func IsNumeric(datatype string) bool {
	return strings.HasPrefix(datatype, "int") || strings.HasPrefix(datatype, "uint")
}
