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

package leafref

import (
	"strings"

	"github.com/openconfig/gnmi/proto/gnmi"
	"github.com/pkg/errors"
	"github.com/yndd/yang-explorer/pkg/schema"
	"github.com/yndd/yang-explorer/pkg/ypath"
)

// ErrNotLeafRef is returned for nodes whose datatype is not a leafref
var ErrNotLeafRef = errors.New("not a leafref")

const errResolveLocal = "cannot resolve leafref"

type ValidationKind string

const (
	// ValidationLocal marks a target inside the model of the leafref
	ValidationLocal ValidationKind = "local"
	// ValidationExternal marks a target the model does not declare
	ValidationExternal ValidationKind = "external"
)

// LeafRef is a resolved leafref. LocalPath is the gnmi path of the
// referring leaf, RemotePath the gnmi path of the referenced node.
type LeafRef struct {
	LocalPath  *gnmi.Path     `json:"localPath,omitempty"`
	RemotePath *gnmi.Path     `json:"remotePath,omitempty"`
	Kind       ValidationKind `json:"kind"`
	// Target is the canonical path of the referenced node when it
	// resolves within the model
	Target string `json:"target,omitempty"`
}

// Resolve resolves the leafref target of the leaf at the canonical path.
// Absolute targets start at the model root, relative ones at the leaf;
// prefixes and predicates are dropped.
func Resolve(m *schema.Model, path string) (*LeafRef, error) {
	trail, err := m.Trail(path)
	if err != nil {
		return nil, errors.Wrap(err, errResolveLocal)
	}
	n := trail[len(trail)-1]
	target, ok := n.LeafRefTarget()
	if !ok {
		return nil, errors.Wrapf(ErrNotLeafRef, "%s: %s", path, n.Datatype)
	}
	local, err := ypath.ToGnmiPath(m, path)
	if err != nil {
		return nil, errors.Wrap(err, errResolveLocal)
	}

	// the data node names of the target, starting at the root
	var elems []string
	if strings.HasPrefix(target, "/") {
		elems = make([]string, 0)
	} else {
		elems = make([]string, 0, len(local.GetElem()))
		for _, pElem := range local.GetElem() {
			elems = append(elems, pElem.GetName())
		}
	}
	for _, seg := range strings.Split(stripPredicates(target), "/") {
		switch seg = strings.TrimSpace(seg); seg {
		case "", ".":
		case "..":
			if len(elems) > 0 {
				elems = elems[:len(elems)-1]
			}
		default:
			elems = append(elems, seg)
		}
	}

	lr := &LeafRef{LocalPath: local, Kind: ValidationExternal}
	if canonical, ok := walk(m, elems); ok {
		if remote, err := ypath.ToGnmiPath(m, canonical); err == nil {
			lr.RemotePath = remote
			lr.Target = canonical
			lr.Kind = ValidationLocal
			return lr, nil
		}
	}
	lr.RemotePath = &gnmi.Path{Elem: make([]*gnmi.PathElem, 0, len(elems))}
	for _, e := range elems {
		lr.RemotePath.Elem = append(lr.RemotePath.Elem, &gnmi.PathElem{Name: schema.LocalName(e)})
	}
	return lr, nil
}

// walk follows data node names from the model root, looking through
// choice and case nodes, and returns the canonical path reached
func walk(m *schema.Model, elems []string) (string, bool) {
	segments := []string{m.Name()}
	cur := m.Root()
	for _, e := range elems {
		trail, ok := find(m, cur, e)
		if !ok {
			return "", false
		}
		for _, n := range trail {
			segments = append(segments, n.Name)
		}
		cur = trail[len(trail)-1]
	}
	return strings.Join(segments, "/"), len(elems) > 0
}

// find returns the nodes from below parent down to the data node called
// name. A prefix matching the model's own prefix is dropped.
func find(m *schema.Model, parent *schema.Node, name string) ([]*schema.Node, bool) {
	if schema.NamePrefix(name) == m.Prefix() {
		name = schema.LocalName(name)
	}
	if c := parent.Child(name); c != nil && !c.IsTransparent() {
		return []*schema.Node{c}, true
	}
	if c := parent.Child(schema.LocalName(name)); c != nil && !c.IsTransparent() {
		return []*schema.Node{c}, true
	}
	for _, c := range parent.Children {
		if !c.IsTransparent() && c.Kind != schema.KindInput {
			continue
		}
		if trail, ok := find(m, c, name); ok {
			return append([]*schema.Node{c}, trail...), true
		}
	}
	return nil, false
}

func stripPredicates(s string) string {
	sb := strings.Builder{}
	depth := 0
	for _, r := range s {
		switch {
		case r == '[':
			depth++
		case r == ']' && depth > 0:
			depth--
		case depth == 0:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
