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

package netconf

import (
	"bytes"
	"encoding/xml"
	"strings"

	"github.com/yndd/yang-explorer/pkg/request"
	"github.com/yndd/yang-explorer/pkg/schema"
)

type walker struct {
	m   *schema.Model
	set *request.Set
	op  request.Operation
}

// node writes the elements for n and its descendants. parentPrefix is the
// module prefix active on the enclosing element.
func (w *walker) node(sb *strings.Builder, n *schema.Node, parent, parentPrefix string) {
	path := parent + "/" + n.Name
	switch n.Kind {
	case schema.KindLeaf:
		if e, ok := w.set.Pop(path); ok {
			w.terminal(sb, n, e, parentPrefix)
		}
	case schema.KindLeafList:
		for {
			e, ok := w.set.Pop(path)
			if !ok {
				return
			}
			w.terminal(sb, n, e, parentPrefix)
		}
	case schema.KindChoice, schema.KindCase, schema.KindInput:
		for _, c := range n.Children {
			w.node(sb, c, path, parentPrefix)
		}
	case schema.KindOutput, schema.KindNotification:
		// never part of a request
	default:
		e, found := w.set.Pop(path)
		content := &strings.Builder{}
		for _, c := range children(n) {
			w.node(content, c, path, n.Prefix)
		}
		if content.Len() == 0 && !found {
			return
		}
		w.open(sb, n, e, parentPrefix, "")
		if content.Len() == 0 {
			sb.WriteString("/>")
			return
		}
		sb.WriteString(">")
		sb.WriteString(content.String())
		w.close(sb, n)
	}
}

// children returns the children of n in wire order: list keys come first
// in key order, everything else in declared order
func children(n *schema.Node) []*schema.Node {
	if n.Kind != schema.KindList || len(n.Keys) == 0 {
		return n.Children
	}
	out := make([]*schema.Node, 0, len(n.Children))
	for _, k := range n.Keys {
		if c := n.Child(schema.LocalName(k)); c != nil {
			out = append(out, c)
		}
	}
	for _, c := range n.Children {
		if !n.IsKeyName(c.Name) {
			out = append(out, c)
		}
	}
	return out
}

func (w *walker) terminal(sb *strings.Builder, n *schema.Node, e request.Entry, parentPrefix string) {
	val := e.Val()
	w.open(sb, n, e, parentPrefix, val)
	if val == "" {
		sb.WriteString("/>")
		return
	}
	sb.WriteString(">")
	sb.WriteString(escape(val))
	w.close(sb, n)
}

// open writes the start tag without its closing bracket
func (w *walker) open(sb *strings.Builder, n *schema.Node, e request.Entry, parentPrefix, val string) {
	sb.WriteString("<")
	sb.WriteString(n.LocalName())
	if n.Prefix != parentPrefix {
		if uri, ok := w.m.NamespaceFor(n.Prefix); ok {
			sb.WriteString(` xmlns="` + escape(uri) + `"`)
		}
	}
	// identityref style values carry the namespace of their prefix
	if pfx := valuePrefix(val); pfx != "" {
		if uri, ok := w.m.NamespaceFor(pfx); ok {
			sb.WriteString(` xmlns:` + pfx + `="` + escape(uri) + `"`)
		}
	}
	if w.op == request.EditConfig && !e.Operation.IsDefault() {
		sb.WriteString(` xc:operation="` + escape(string(e.Operation)) + `"`)
	}
}

func (w *walker) close(sb *strings.Builder, n *schema.Node) {
	sb.WriteString("</")
	sb.WriteString(n.LocalName())
	sb.WriteString(">")
}

func valuePrefix(val string) string {
	i := strings.Index(val, ":")
	if i <= 0 || strings.ContainsAny(val[:i], " /") {
		return ""
	}
	return val[:i]
}

func escape(s string) string {
	var b bytes.Buffer
	// EscapeText only fails when the writer fails
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
