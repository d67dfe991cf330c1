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
	"bytes"
	"encoding/xml"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// xmlNode is the wire form of a node of the compiled schema document
type xmlNode struct {
	XMLName     xml.Name       `xml:"node"`
	Name        string         `xml:"name,attr"`
	Type        string         `xml:"type,attr"`
	Prefix      string         `xml:"prefix,attr"`
	Revision    string         `xml:"revision,attr"`
	Datatype    string         `xml:"datatype,attr"`
	Values      string         `xml:"values,attr"`
	Key         string         `xml:"key,attr"`
	IsKey       string         `xml:"is_key,attr"`
	Mandatory   string         `xml:"mandatory,attr"`
	Default     string         `xml:"default,attr"`
	Presence    string         `xml:"presence,attr"`
	Access      string         `xml:"access,attr"`
	Config      string         `xml:"config,attr"`
	Description string         `xml:"description"`
	Namespaces  []xmlNamespace `xml:"namespace"`
	Identities  []xmlIdentity  `xml:"identity"`
	Members     []xmlType      `xml:"type"`
	Children    []xmlNode      `xml:"node"`
}

type xmlNamespace struct {
	Prefix string `xml:"prefix,attr"`
	Module string `xml:"module,attr"`
	Import string `xml:"import,attr"`
	URI    string `xml:",chardata"`
}

type xmlIdentity struct {
	Module string `xml:"module,attr"`
	Name   string `xml:"name,attr"`
	Base   string `xml:"base,attr"`
}

type xmlType struct {
	Datatype string    `xml:"datatype,attr"`
	Values   string    `xml:"values,attr"`
	Members  []xmlType `xml:"type"`
}

// LoadFile reads and loads a compiled schema document from a file
func LoadFile(path string) (*Model, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errReadSchema)
	}
	return LoadBytes(b)
}

// LoadBytes loads a compiled schema document held in memory
func LoadBytes(b []byte) (*Model, error) {
	return Load(bytes.NewReader(b))
}

// Load decodes a compiled schema document and builds the model
func Load(r io.Reader) (*Model, error) {
	raw := &xmlNode{}
	if err := xml.NewDecoder(r).Decode(raw); err != nil {
		return nil, malformed("%s: %v", errDecodeSchema, err)
	}
	if raw.Type != string(KindModule) {
		return nil, malformed("%s: got %q", errNoRoot, raw.Type)
	}

	root, err := convert(raw)
	if err != nil {
		return nil, err
	}

	namespaces := make([]Namespace, 0, len(raw.Namespaces))
	for _, ns := range raw.Namespaces {
		namespaces = append(namespaces, Namespace{
			Module: ns.Module,
			Prefix: ns.Prefix,
			URI:    strings.TrimSpace(ns.URI),
			Direct: ns.Import == "true" || ns.Module == raw.Name,
		})
	}
	identities := make([]Identity, 0, len(raw.Identities))
	for _, id := range raw.Identities {
		identities = append(identities, Identity{
			Module: id.Module,
			Name:   id.Name,
			Bases:  splitList(id.Base, ","),
		})
	}
	return NewModel(root, raw.Revision, namespaces, identities)
}

func convert(x *xmlNode) (*Node, error) {
	if x.Name == "" {
		return nil, malformed(errNoName)
	}
	kind, ok := ParseKind(x.Type)
	if !ok {
		return nil, malformed("%s: %s %q", errUnknownKind, x.Name, x.Type)
	}
	n := &Node{
		Kind:        kind,
		Name:        x.Name,
		Prefix:      x.Prefix,
		Datatype:    x.Datatype,
		Values:      splitList(x.Values, "|"),
		Keys:        strings.Fields(x.Key),
		IsKey:       x.IsKey == "true",
		Mandatory:   x.Mandatory == "true",
		Default:     x.Default,
		Presence:    x.Presence == "true",
		Access:      parseAccess(x.Access, x.Config),
		Description: strings.TrimSpace(x.Description),
	}
	if x.Type == "leafref" && !strings.HasPrefix(n.Datatype, "->") {
		n.Datatype = "-> " + n.Datatype
	}
	for _, mb := range x.Members {
		n.Members = append(n.Members, convertType(mb))
	}
	for i := range x.Children {
		c, err := convert(&x.Children[i])
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, c)
	}
	return n, nil
}

func convertType(t xmlType) *Node {
	n := &Node{
		Kind:     KindLeaf,
		Name:     t.Datatype,
		Datatype: t.Datatype,
		Values:   splitList(t.Values, "|"),
	}
	for _, mb := range t.Members {
		n.Members = append(n.Members, convertType(mb))
	}
	return n
}

func parseAccess(access, config string) Access {
	switch Access(access) {
	case AccessReadOnly, AccessReadWrite, AccessWrite:
		return Access(access)
	}
	switch config {
	case "true":
		return AccessReadWrite
	case "false":
		return AccessReadOnly
	}
	return AccessNone
}

func splitList(s, sep string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	out := make([]string, 0)
	for _, v := range strings.Split(s, sep) {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
