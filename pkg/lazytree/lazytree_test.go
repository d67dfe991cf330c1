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

package lazytree

import (
	"reflect"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/yndd/yang-explorer/pkg/schema"
	"github.com/yndd/yang-explorer/pkg/ypath"
)

func newProjector(t *testing.T, opts ...Option) *Projector {
	t.Helper()
	m, err := schema.LoadFile("../schema/testdata/example.xml")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	return New(m, opts...)
}

func childNames(p *ProjectedNode) []string {
	names := make([]string, 0, len(p.Children))
	for _, c := range p.Children {
		names = append(names, c.Name)
	}
	return names
}

func TestProjectNode(t *testing.T) {
	p := newProjector(t)
	tests := []struct {
		inp         string
		kind        string
		placeholder bool
	}{
		{inp: "", kind: "module", placeholder: true},
		{inp: "example/interfaces", kind: "container", placeholder: true},
		{inp: "example/interfaces/interface", kind: "list", placeholder: true},
		{inp: "example/interfaces/interface/mtu", kind: "leaf", placeholder: false},
		{inp: "example/interfaces/interface/tag", kind: "leaf-list", placeholder: false},
		{inp: "example/system/mode", kind: "choice", placeholder: true},
	}
	for _, tt := range tests {
		got, err := p.ProjectNode(tt.inp)
		if err != nil {
			t.Errorf("ProjectNode(%q): %v", tt.inp, err)
			continue
		}
		if got.Kind != tt.kind {
			t.Errorf("ProjectNode(%q) kind = %s, want %s", tt.inp, got.Kind, tt.kind)
		}
		if got.HasPlaceholder() != tt.placeholder {
			t.Errorf("ProjectNode(%q) placeholder = %v, want %v", tt.inp, got.HasPlaceholder(), tt.placeholder)
		}
		if !tt.placeholder && len(got.Children) != 0 {
			t.Errorf("ProjectNode(%q) terminal has children %v", tt.inp, childNames(got))
		}
	}
}

func TestProjectNodeAttributes(t *testing.T) {
	p := newProjector(t)
	root, err := p.ProjectNode("")
	if err != nil {
		t.Fatal(err)
	}
	if root.Path != "example" || len(root.Namespaces) != 3 || root.XPathFilter != "" {
		t.Errorf("root = path %s namespaces %v filter %s", root.Path, root.Namespaces, root.XPathFilter)
	}

	n, err := p.ProjectNode("example/interfaces/interface/mtu")
	if err != nil {
		t.Fatal(err)
	}
	if n.Default != "1500" || n.Datatype != "uint16" || n.Access != "read-write" {
		t.Errorf("mtu = %+v", n)
	}
	if n.XPathFilter != "/ex:interfaces/interface/mtu" {
		t.Errorf("mtu xpath filter = %s", n.XPathFilter)
	}

	n, err = p.ProjectNode("example/interfaces/interface/name")
	if err != nil {
		t.Fatal(err)
	}
	if !n.IsKey || !n.Mandatory {
		t.Errorf("name is_key %v mandatory %v", n.IsKey, n.Mandatory)
	}

	n, err = p.ProjectNode("example/routing/route/interface")
	if err != nil {
		t.Fatal(err)
	}
	if n.LeafRef != "/interfaces/interface/name" || n.LeafRefPath != "example/interfaces/interface/name" {
		t.Errorf("leafref = %s %s", n.LeafRef, n.LeafRefPath)
	}
}

func TestProjectNodeNotFound(t *testing.T) {
	p := newProjector(t)
	for _, inp := range []string{"example/nope", "other", "example/interfaces/interface/mtu/x"} {
		if _, err := p.ProjectNode(inp); !errors.Is(err, schema.ErrPathNotFound) {
			t.Errorf("ProjectNode(%q) error = %v, want ErrPathNotFound", inp, err)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	p := newProjector(t)
	for _, opts := range [][]ypath.Option{nil, {ypath.WithKeys()}, {ypath.WithRootPrefix()}} {
		it := ypath.Iterate(p.m, opts...)
		for {
			path, _, ok := it.Next()
			if !ok {
				break
			}
			n, err := p.ProjectNode(path)
			if err != nil {
				t.Errorf("ProjectNode(%q): %v", path, err)
				continue
			}
			if n.Path != path {
				t.Errorf("ProjectNode(%q) path = %q", path, n.Path)
			}
		}
	}
}

func TestProjectSubtree(t *testing.T) {
	p := newProjector(t)
	n, err := p.ProjectSubtree("example/interfaces/interface", false)
	if err != nil {
		t.Fatal(err)
	}
	exp := []string{"name", "description", "mtu", "enabled", "family", "type", "speed", "tag", "aug:vlan", "state"}
	if !reflect.DeepEqual(childNames(n), exp) {
		t.Errorf("children = %v, want %v", childNames(n), exp)
	}
	state := n.Find("state")
	if state == nil || !state.HasPlaceholder() {
		t.Errorf("state not lazy: %+v", state)
	}
	if state.Path != "example/interfaces/interface/state" {
		t.Errorf("state path = %s", state.Path)
	}

	n, err = p.ProjectSubtree("example/system", true)
	if err != nil {
		t.Fatal(err)
	}
	hostname := n.Find("mode", "simple", "hostname")
	if hostname == nil || hostname.Path != "example/system/mode/simple/hostname" {
		t.Errorf("deep subtree misses hostname: %+v", hostname)
	}
	if empty := n.Find("mode", "empty"); empty == nil || len(empty.Children) != 0 {
		t.Errorf("empty case = %+v", empty)
	}
}

func TestProjectTree(t *testing.T) {
	p := newProjector(t)
	entries := []PathAttributes{
		{Path: "example/interfaces/interface/name", Attributes: map[string]string{"value": "Gi1"}},
		{Path: "example/interfaces/interface/description", Attributes: map[string]string{"value": "test", "option": "replace"}},
		{Path: "example/system/mode/empty"},
	}
	root, err := p.ProjectTree(entries)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(childNames(root), []string{"interfaces", "routing", "system", "reboot", "link-down"}) {
		t.Errorf("root children = %v", childNames(root))
	}
	if !root.Find("routing").HasPlaceholder() {
		t.Errorf("routing was expanded")
	}
	name := root.Find("interfaces", "interface", "name")
	if name == nil || name.Value != "Gi1" {
		t.Errorf("name = %+v", name)
	}
	desc := root.Find("interfaces", "interface", "description")
	if desc == nil || desc.Value != "test" || desc.Attributes["option"] != "replace" {
		t.Errorf("description = %+v", desc)
	}
	if !root.Find("interfaces", "interface", "state").HasPlaceholder() {
		t.Errorf("state was expanded")
	}
	if simple := root.Find("system", "mode", "simple"); simple == nil || !simple.HasPlaceholder() {
		t.Errorf("simple = %+v", simple)
	}
	if empty := root.Find("system", "mode", "empty"); empty == nil || !empty.HasPlaceholder() {
		t.Errorf("empty case = %+v", empty)
	}
}

func TestProjectTreeIdempotent(t *testing.T) {
	p := newProjector(t)
	entries := []PathAttributes{
		{Path: "example/routing/route/metric", Attributes: map[string]string{"value": "10"}},
		{Path: "example/interfaces/interface/state/counter"},
		{Path: "example/interfaces/interface/tag"},
	}
	first, err := p.ProjectTree(entries)
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.ProjectTree(entries)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("ProjectTree() is not idempotent")
	}
	if first == second || first.Children[0] == second.Children[0] {
		t.Errorf("ProjectTree() shares nodes between calls")
	}
}

func TestProjectTreeNotFound(t *testing.T) {
	p := newProjector(t)
	root, err := p.ProjectTree([]PathAttributes{{Path: "example/system/mode/empty"}, {Path: "example/system/mode/empty/x"}})
	if !errors.Is(err, schema.ErrPathNotFound) {
		t.Errorf("ProjectTree() error = %v, want ErrPathNotFound", err)
	}
	if root != nil {
		t.Errorf("ProjectTree() returned a partial tree")
	}
}

func TestAnnotations(t *testing.T) {
	profile := `data:
  - example/interfaces/interface/mtu
annotate:
  covered: "true"
`
	a, err := LoadAnnotations(strings.NewReader(profile))
	if err != nil {
		t.Fatal(err)
	}
	p := newProjector(t, WithAnnotations(a))
	n, err := p.ProjectSubtree("example/interfaces/interface", false)
	if err != nil {
		t.Fatal(err)
	}
	if n.Attributes["covered"] != "true" {
		t.Errorf("list not annotated: %v", n.Attributes)
	}
	if n.Find("mtu").Attributes["covered"] != "true" {
		t.Errorf("mtu not annotated")
	}
	if n.Find("name").Attributes != nil {
		t.Errorf("name annotated: %v", n.Find("name").Attributes)
	}

	root, err := p.ProjectTree([]PathAttributes{{Path: "example/interfaces/interface/mtu", Attributes: map[string]string{"covered": "no"}}})
	if err != nil {
		t.Fatal(err)
	}
	if got := root.Find("interfaces", "interface", "mtu").Attributes["covered"]; got != "no" {
		t.Errorf("entry attribute overridden by annotation: %s", got)
	}
}

func TestAnnotationsJSON(t *testing.T) {
	a, err := LoadAnnotations(strings.NewReader(`{"data": ["example/system"], "annotate": {"color": "red"}}`))
	if err != nil {
		t.Fatal(err)
	}
	if attrs, ok := a.Lookup("example/system"); !ok || attrs["color"] != "red" {
		t.Errorf("Lookup(example/system) = %v %v", attrs, ok)
	}
	if _, ok := a.Lookup("example/routing"); ok {
		t.Errorf("Lookup(example/routing) found")
	}
}
