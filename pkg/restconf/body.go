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
	"bytes"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/yndd/yang-explorer/pkg/schema"
)

type member struct {
	name  string
	value interface{}
}

// object is a json object that keeps the order of its members
type object []member

func (o object) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(m.name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(m.value)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// memberName qualifies the name with the module when the module differs
// from the module of the enclosing object
func memberName(s *selection, parentModule string) string {
	if s.module != parentModule {
		return s.module + ":" + s.node.LocalName()
	}
	return s.node.LocalName()
}

// value returns the json value of a selection, false when the selection
// contributes nothing to the body
func value(s *selection) (interface{}, bool) {
	switch s.node.Kind {
	case schema.KindLeaf:
		return scalar(s.node, s.entry.Value), true
	case schema.KindLeafList:
		values := make([]interface{}, 0, len(s.values))
		for _, e := range s.values {
			values = append(values, scalar(s.node, e.Value))
		}
		return values, true
	case schema.KindList:
		return []interface{}{listElement(s)}, true
	default:
		o := members(s.children, s.module)
		if len(o) == 0 && !s.node.Presence && s.entry == nil {
			return nil, false
		}
		return o, true
	}
}

func members(children []*selection, parentModule string) object {
	o := object{}
	for _, c := range children {
		if v, ok := value(c); ok {
			o = append(o, member{name: memberName(c, parentModule), value: v})
		}
	}
	return o
}

// listElement renders the keys in key order followed by the other children
// in document order
func listElement(s *selection) object {
	o := object{}
	for _, k := range s.node.Keys {
		if c := s.child(schema.LocalName(k)); c != nil {
			if v, ok := value(c); ok {
				o = append(o, member{name: memberName(c, s.module), value: v})
			}
		}
	}
	others := make([]*selection, 0, len(s.children))
	for _, c := range s.children {
		if !c.isKey() {
			others = append(others, c)
		}
	}
	return append(o, members(others, s.module)...)
}

// scalar coerces the value per datatype. Integers become numbers, all other
// values stay strings.
func scalar(n *schema.Node, v string) interface{} {
	if v == "" {
		return nil
	}
	if schema.IsNumeric(n.Datatype) {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
		if u, err := strconv.ParseUint(v, 10, 64); err == nil {
			return u
		}
	}
	return v
}

func encode(o object) (string, error) {
	b, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
