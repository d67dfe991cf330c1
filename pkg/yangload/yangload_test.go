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
	"context"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"

	"github.com/pkg/errors"
	"github.com/yndd/yang-explorer/pkg/cache"
	"github.com/yndd/yang-explorer/pkg/schema"
	"github.com/yndd/yang-explorer/pkg/ypath"
)

const exampleYang = `module example {
  namespace "urn:example";
  prefix ex;

  import openconfig-types {
    prefix oc;
  }

  revision 2022-01-01;

  identity IPV4_UNICAST {
    base oc:IPV4;
  }

  container interfaces {
    description "Interface configuration";
    list interface {
      key name;
      leaf name {
        type string;
      }
      leaf mtu {
        type uint16;
        default 1500;
      }
      leaf family {
        type identityref {
          base oc:ADDRESS_FAMILY;
        }
      }
      leaf type {
        type enumeration {
          enum ethernet;
          enum loopback;
        }
      }
      leaf speed {
        type union {
          type enumeration {
            enum auto;
          }
          type boolean;
        }
      }
      leaf-list tag {
        type string;
      }
      container state {
        config false;
        leaf counter {
          type uint64;
        }
      }
    }
  }

  container system {
    presence "enabled";
    choice mode {
      case simple {
        leaf hostname {
          type string;
        }
      }
    }
  }

  rpc reboot {
    input {
      leaf delay {
        type uint32;
      }
    }
    output {
      leaf status {
        type string;
      }
    }
  }
}
`

const typesYang = `module openconfig-types {
  namespace "urn:openconfig-types";
  prefix oc;

  identity ADDRESS_FAMILY;

  identity IPV4 {
    base ADDRESS_FAMILY;
  }

  identity IPV6 {
    base ADDRESS_FAMILY;
  }
}
`

const augmentYang = `module example-augment {
  namespace "urn:example-augment";
  prefix aug;

  import example {
    prefix ex;
  }

  augment "/ex:interfaces/ex:interface" {
    leaf vlan {
      type uint16;
    }
  }
}
`

func sources() map[string]string {
	return map[string]string{
		"example.yang":          exampleYang,
		"openconfig-types.yang": typesYang,
		"example-augment.yang":  augmentYang,
	}
}

func parseExample(t *testing.T) *schema.Model {
	t.Helper()
	m, err := New().Parse("example", sources())
	if err != nil {
		t.Fatalf("Parse(): %v", err)
	}
	return m
}

func TestParse(t *testing.T) {
	m := parseExample(t)
	if m.Name() != "example" || m.Prefix() != "ex" || m.Revision() != "2022-01-01" {
		t.Errorf("model = %s %s %s", m.Name(), m.Prefix(), m.Revision())
	}
	tests := []struct {
		path     string
		kind     schema.Kind
		datatype string
	}{
		{path: "example/interfaces", kind: schema.KindContainer},
		{path: "example/interfaces/interface", kind: schema.KindList},
		{path: "example/interfaces/interface/name", kind: schema.KindLeaf, datatype: "string"},
		{path: "example/interfaces/interface/mtu", kind: schema.KindLeaf, datatype: "uint16"},
		{path: "example/interfaces/interface/family", kind: schema.KindLeaf, datatype: "identityref:oc:ADDRESS_FAMILY"},
		{path: "example/interfaces/interface/type", kind: schema.KindLeaf, datatype: "enumeration"},
		{path: "example/interfaces/interface/speed", kind: schema.KindLeaf, datatype: "union"},
		{path: "example/interfaces/interface/tag", kind: schema.KindLeafList, datatype: "string"},
		{path: "example/interfaces/interface/aug:vlan", kind: schema.KindLeaf, datatype: "uint16"},
		{path: "example/system/mode", kind: schema.KindChoice},
		{path: "example/system/mode/simple", kind: schema.KindCase},
		{path: "example/system/mode/simple/hostname", kind: schema.KindLeaf, datatype: "string"},
		{path: "example/reboot", kind: schema.KindRpc},
		{path: "example/reboot/input", kind: schema.KindInput},
		{path: "example/reboot/input/delay", kind: schema.KindLeaf, datatype: "uint32"},
		{path: "example/reboot/output/status", kind: schema.KindLeaf, datatype: "string"},
	}
	for _, tt := range tests {
		n, err := m.Lookup(tt.path)
		if err != nil {
			t.Errorf("Lookup(%s): %v", tt.path, err)
			continue
		}
		if n.Kind != tt.kind || n.Datatype != tt.datatype {
			t.Errorf("Lookup(%s) = %s %s, want %s %s", tt.path, n.Kind, n.Datatype, tt.kind, tt.datatype)
		}
	}
}

func TestParseAttributes(t *testing.T) {
	m := parseExample(t)
	lookup := func(path string) *schema.Node {
		n, err := m.Lookup(path)
		if err != nil {
			t.Fatalf("Lookup(%s): %v", path, err)
		}
		return n
	}

	list := lookup("example/interfaces/interface")
	if !reflect.DeepEqual(list.Keys, []string{"name"}) {
		t.Errorf("keys = %v", list.Keys)
	}
	if name := lookup("example/interfaces/interface/name"); !name.IsKey || !name.Mandatory {
		t.Errorf("name is_key %v mandatory %v", name.IsKey, name.Mandatory)
	}
	if mtu := lookup("example/interfaces/interface/mtu"); mtu.Default != "1500" {
		t.Errorf("mtu default = %q", mtu.Default)
	}
	if state := lookup("example/interfaces/interface/state/counter"); state.Access != schema.AccessReadOnly {
		t.Errorf("counter access = %s", state.Access)
	}
	if system := lookup("example/system"); !system.Presence {
		t.Errorf("system has no presence")
	}
	if d := lookup("example/interfaces").Description; d != "Interface configuration" {
		t.Errorf("description = %q", d)
	}
	if v := lookup("example/interfaces/interface/type").Values; !reflect.DeepEqual(v, []string{"ethernet", "loopback"}) {
		t.Errorf("type values = %v", v)
	}
	speed := lookup("example/interfaces/interface/speed").Values
	sort.Strings(speed)
	if !reflect.DeepEqual(speed, []string{"auto", "false", "true"}) {
		t.Errorf("speed values = %v", speed)
	}

	family := lookup("example/interfaces/interface/family").Values
	sort.Strings(family)
	if !reflect.DeepEqual(family, []string{"ex:IPV4_UNICAST", "oc:IPV4", "oc:IPV6"}) {
		t.Errorf("family values = %v", family)
	}

	vlan := lookup("example/interfaces/interface/aug:vlan")
	if vlan.Prefix != "aug" {
		t.Errorf("vlan prefix = %s", vlan.Prefix)
	}
	if uri, ok := m.NamespaceFor("aug"); !ok || uri != "urn:example-augment" {
		t.Errorf("NamespaceFor(aug) = %s %v", uri, ok)
	}
	if ns, ok := m.PrefixFor("openconfig-types"); !ok || !ns.Direct || ns.URI != "urn:openconfig-types" {
		t.Errorf("PrefixFor(openconfig-types) = %+v %v", ns, ok)
	}
	if ns, ok := m.PrefixFor("example-augment"); !ok || ns.Direct {
		t.Errorf("PrefixFor(example-augment) = %+v %v", ns, ok)
	}
}

func TestDeclarationOrder(t *testing.T) {
	m := parseExample(t)
	n, err := m.Lookup("example/interfaces/interface")
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, 0, len(n.Children))
	for _, c := range n.Children {
		names = append(names, c.Name)
	}
	exp := []string{"name", "mtu", "family", "type", "speed", "tag", "state", "aug:vlan"}
	if !reflect.DeepEqual(names, exp) {
		t.Errorf("children = %v, want %v", names, exp)
	}

	top := make([]string, 0)
	for _, c := range m.Root().Children {
		top = append(top, c.Name)
	}
	if !reflect.DeepEqual(top, []string{"interfaces", "system", "reboot"}) {
		t.Errorf("top level = %v", top)
	}
}

func TestIteratorOverConvertedModel(t *testing.T) {
	m := parseExample(t)
	for _, p := range ypath.Iterate(m).All() {
		if _, err := m.Lookup(p); err != nil {
			t.Errorf("Lookup(%s): %v", p, err)
		}
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		module  string
		sources map[string]string
		err     error
	}{
		{name: "syntax", module: "broken", sources: map[string]string{"broken.yang": "module broken {"}, err: schema.ErrMalformed},
		{name: "missing import", module: "example", sources: map[string]string{"example.yang": exampleYang}, err: schema.ErrMalformed},
		{name: "unknown module", module: "other", sources: sources(), err: cache.ErrNotFound},
	}
	for _, tt := range tests {
		if _, err := New().Parse(tt.module, tt.sources); !errors.Is(err, tt.err) {
			t.Errorf("%s: Parse() error = %v, want %v", tt.name, err, tt.err)
		}
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	for name, src := range sources() {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	l := New(WithPaths(dir))
	m, err := l.Read("example", filepath.Join(dir, "example.yang"), filepath.Join(dir, "example-augment.yang"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Lookup("example/interfaces/interface/aug:vlan"); err != nil {
		t.Errorf("augment missing: %v", err)
	}

	c := cache.New(l.Load)
	if _, err := c.Get(context.Background(), cache.Key{Module: "example", Revision: "2022-01-01"}); err != nil {
		t.Errorf("Get(): %v", err)
	}
	if _, err := c.Get(context.Background(), cache.Key{Module: "example", Revision: "2000-01-01"}); !errors.Is(err, cache.ErrNotFound) {
		t.Errorf("Get(wrong revision) error = %v", err)
	}
	if _, err := c.Get(context.Background(), cache.Key{Module: "missing"}); !errors.Is(err, cache.ErrNotFound) {
		t.Errorf("Get(missing) error = %v", err)
	}
}

const groupingYang = `module grouped {
  namespace "urn:grouped";
  prefix gr;

  grouping inner {
    leaf i1 {
      type string;
    }
  }

  grouping common {
    leaf g1 {
      type string;
    }
    uses inner;
    leaf g2 {
      type string;
    }
  }

  container c {
    leaf a {
      type string;
    }
    uses common;
    leaf b {
      type string;
    }
  }
}
`

func TestUsesOrder(t *testing.T) {
	m, err := New().Parse("grouped", map[string]string{"grouped.yang": groupingYang})
	if err != nil {
		t.Fatalf("Parse(): %v", err)
	}
	n, err := m.Lookup("grouped/c")
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, 0, len(n.Children))
	for _, c := range n.Children {
		names = append(names, c.Name)
	}
	exp := []string{"a", "g1", "i1", "g2", "b"}
	if !reflect.DeepEqual(names, exp) {
		t.Errorf("children = %v, want %v", names, exp)
	}
	exp = []string{"grouped/c", "grouped/c/a", "grouped/c/g1", "grouped/c/i1", "grouped/c/g2", "grouped/c/b"}
	if got := ypath.Iterate(m).All(); !reflect.DeepEqual(got, exp) {
		t.Errorf("paths = %v, want %v", got, exp)
	}
}

func TestReadErrors(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.yang"), []byte("module broken {"), 0o644); err != nil {
		t.Fatal(err)
	}
	l := New(WithPaths(dir))
	tests := []struct {
		module string
		err    error
	}{
		{module: "broken", err: schema.ErrMalformed},
		{module: "missing", err: cache.ErrNotFound},
	}
	for _, tt := range tests {
		if _, err := l.Read(tt.module); !errors.Is(err, tt.err) {
			t.Errorf("Read(%s) error = %v, want %v", tt.module, err, tt.err)
		}
	}

	// a malformed module stops a loader chain instead of falling through
	c := cache.New(cache.Chain(l.Load, cache.FileLoader(dir)))
	_, err := c.Get(context.Background(), cache.Key{Module: "broken"})
	if !errors.Is(err, schema.ErrMalformed) {
		t.Errorf("Get(broken) error = %v, want %v", err, schema.ErrMalformed)
	}
}
