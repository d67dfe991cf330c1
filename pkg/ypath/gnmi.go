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
	"sort"
	"strings"

	"github.com/openconfig/gnmi/proto/gnmi"
	"github.com/pkg/errors"
	"github.com/yndd/yang-explorer/pkg/schema"
)

const (
	errResolvePath = "cannot resolve path"
)

// ToGnmiPath resolves a canonical path against the model and returns the
// gnmi path of the data node. The module segment, choice and case nodes and
// rpc input are not part of the data tree and are left out. List elements
// carry a wildcard for every key.
func ToGnmiPath(m *schema.Model, p string) (*gnmi.Path, error) {
	trail, err := m.Trail(p)
	if err != nil {
		return nil, errors.Wrap(err, errResolvePath)
	}
	path := &gnmi.Path{
		Elem: make([]*gnmi.PathElem, 0, len(trail)),
	}
	for _, n := range trail[1:] {
		switch n.Kind {
		case schema.KindChoice, schema.KindCase, schema.KindInput, schema.KindOutput:
			continue
		}
		pathElem := &gnmi.PathElem{Name: n.Name}
		if n.Kind == schema.KindList && len(n.Keys) != 0 {
			pathElem.Key = make(map[string]string, len(n.Keys))
			for _, k := range n.Keys {
				pathElem.Key[k] = "*"
			}
		}
		path.Elem = append(path.Elem, pathElem)
	}
	return path, nil
}

// Xpath2GnmiPath converts a xpath string to a gnmi path. The first offset
// elements are ignored.
func Xpath2GnmiPath(xpath string, offset int) *gnmi.Path {
	path := &gnmi.Path{
		Elem: make([]*gnmi.PathElem, 0),
	}
	for i, element := range schema.SplitPath(xpath) {
		if i < offset {
			continue
		}
		pathElem := &gnmi.PathElem{
			Name: strings.TrimSpace(schema.SegmentName(element)),
		}
		if strings.Contains(element, "[") {
			pathElem.Key = parseKeys(element[strings.Index(element, "["):])
		}
		path.Elem = append(path.Elem, pathElem)
	}
	return path
}

// parseKeys parses [k1=v1][k2=v2] and [k1=v1,k2=v2] key selectors
func parseKeys(s string) map[string]string {
	keys := make(map[string]string)
	for _, sel := range strings.Split(s, "[") {
		sel = strings.TrimSuffix(strings.TrimSpace(sel), "]")
		if sel == "" {
			continue
		}
		for _, kv := range strings.Split(sel, ",") {
			i := strings.Index(kv, "=")
			if i < 0 {
				continue
			}
			// trim blanks from the final key/value
			keys[strings.TrimSpace(kv[:i])] = strings.TrimSpace(kv[i+1:])
		}
	}
	return keys
}

// GnmiPath2XPath converts a gnmi path with or without keys to a xpath
// string. Keys are sorted so equal paths render equally.
func GnmiPath2XPath(path *gnmi.Path, keys bool) string {
	sb := strings.Builder{}
	for _, pElem := range path.GetElem() {
		sb.WriteString("/")
		sb.WriteString(pElem.GetName())
		if !keys || len(pElem.GetKey()) == 0 {
			continue
		}
		names := make([]string, 0, len(pElem.GetKey()))
		for k := range pElem.GetKey() {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			sb.WriteString("[")
			sb.WriteString(k)
			sb.WriteString("=")
			sb.WriteString(pElem.GetKey()[k])
			sb.WriteString("]")
		}
	}
	if sb.Len() == 0 {
		return "/"
	}
	return sb.String()
}

// XPathFilter turns module/node1/node2 into /prefix:node1/node2, the form
// used in subscription and get filters. The module node has no filter.
func XPathFilter(path, prefix string) string {
	segments := schema.SplitPath(path)
	if len(segments) < 2 || prefix == "" {
		return ""
	}
	return "/" + prefix + ":" + strings.Join(segments[1:], "/")
}
