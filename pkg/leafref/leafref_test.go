package leafref

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/yndd/yang-explorer/pkg/schema"
	"github.com/yndd/yang-explorer/pkg/ypath"
)

const refsXML = `<node name="refs" type="module" prefix="rf" revision="2022-01-01">
  <namespace prefix="rf" module="refs">urn:refs</namespace>
  <node name="interfaces" type="container">
    <node name="interface" type="list" key="name">
      <node name="name" type="leaf" datatype="string"/>
      <node name="lag" type="leaf" datatype="-&gt; ../../lags/lag/name"/>
    </node>
    <node name="lags" type="container">
      <node name="lag" type="list" key="name">
        <node name="name" type="leaf" datatype="string"/>
        <node name="primary" type="leaf" datatype="-&gt; ../../../interface/name"/>
      </node>
    </node>
  </node>
  <node name="system" type="container">
    <node name="mode" type="choice">
      <node name="static" type="case">
        <node name="hostname" type="leaf" datatype="string"/>
      </node>
    </node>
    <node name="mgmt" type="leaf" datatype="-&gt; /rf:interfaces/rf:interface[rf:name=current()/../x]/rf:name"/>
    <node name="host" type="leaf" datatype="-&gt; /system/hostname"/>
    <node name="peer" type="leaf" datatype="-&gt; /oc:platform/oc:component/oc:name"/>
    <node name="plain" type="leaf" datatype="string"/>
  </node>
</node>`

func TestResolve(t *testing.T) {
	m, err := schema.LoadBytes([]byte(refsXML))
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		path   string
		kind   ValidationKind
		target string
		remote string
	}{
		{path: "refs/interfaces/interface/lag", kind: ValidationLocal, target: "refs/interfaces/lags/lag/name", remote: "/interfaces/lags/lag[name=*]/name"},
		{path: "refs/interfaces/lags/lag/primary", kind: ValidationLocal, target: "refs/interfaces/interface/name", remote: "/interfaces/interface[name=*]/name"},
		{path: "refs/system/mgmt", kind: ValidationLocal, target: "refs/interfaces/interface/name", remote: "/interfaces/interface[name=*]/name"},
		{path: "refs/system/host", kind: ValidationLocal, target: "refs/system/mode/static/hostname", remote: "/system/hostname"},
		{path: "refs/system/peer", kind: ValidationExternal, remote: "/platform/component/name"},
	}
	for _, tt := range tests {
		lr, err := Resolve(m, tt.path)
		if err != nil {
			t.Errorf("Resolve(%s): %v", tt.path, err)
			continue
		}
		if lr.Kind != tt.kind || lr.Target != tt.target {
			t.Errorf("Resolve(%s) = %s %q, want %s %q", tt.path, lr.Kind, lr.Target, tt.kind, tt.target)
		}
		if got := ypath.GnmiPath2XPath(lr.RemotePath, true); got != tt.remote {
			t.Errorf("Resolve(%s) remote = %s, want %s", tt.path, got, tt.remote)
		}
	}

	if _, err := Resolve(m, "refs/system/plain"); !errors.Is(err, ErrNotLeafRef) {
		t.Errorf("Resolve(plain) error = %v", err)
	}
	if _, err := Resolve(m, "refs/system/nothing"); !errors.Is(err, schema.ErrPathNotFound) {
		t.Errorf("Resolve(nothing) error = %v", err)
	}
}

func TestStripPredicates(t *testing.T) {
	tests := []struct {
		inp string
		exp string
	}{
		{inp: "/a/b", exp: "/a/b"},
		{inp: "/a[k=current()/../x]/b", exp: "/a/b"},
		{inp: "/a[k=x[1]]/b[c=d]", exp: "/a/b"},
	}
	for _, tt := range tests {
		if got := stripPredicates(tt.inp); got != tt.exp {
			t.Errorf("stripPredicates(%q) = %q, want %q", tt.inp, got, tt.exp)
		}
	}
}
