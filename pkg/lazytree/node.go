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
	"github.com/yndd/yang-explorer/pkg/schema"
)

const (
	// KindPlaceholder marks the synthetic child of an unexpanded node
	KindPlaceholder = "__yang_placeholder"
	placeholderName = "Loading .."
)

// ProjectedNode is a node of the tree handed to the UI
type ProjectedNode struct {
	Name        string             `json:"name"`
	Kind        string             `json:"type"`
	Path        string             `json:"path,omitempty"`
	Prefix      string             `json:"prefix,omitempty"`
	Datatype    string             `json:"datatype,omitempty"`
	Values      []string           `json:"values,omitempty"`
	IsKey       bool               `json:"is_key,omitempty"`
	Keys        []string           `json:"key,omitempty"`
	Mandatory   bool               `json:"mandatory,omitempty"`
	Default     string             `json:"default,omitempty"`
	Presence    bool               `json:"presence,omitempty"`
	Access      string             `json:"access,omitempty"`
	Description string             `json:"description,omitempty"`
	XPathFilter string             `json:"xpath_filter,omitempty"`
	LeafRef     string             `json:"leafref,omitempty"`
	LeafRefPath string             `json:"leafref_path,omitempty"`
	Value       string             `json:"value,omitempty"`
	Attributes  map[string]string  `json:"attributes,omitempty"`
	Namespaces  []schema.Namespace `json:"namespaces,omitempty"`
	Children    []*ProjectedNode   `json:"children,omitempty"`
}

// IsPlaceholder returns true for the synthetic expand-on-demand child
func (p *ProjectedNode) IsPlaceholder() bool {
	return p.Kind == KindPlaceholder
}

// HasPlaceholder returns true when the node has not been expanded
func (p *ProjectedNode) HasPlaceholder() bool {
	return len(p.Children) == 1 && p.Children[0].IsPlaceholder()
}

// Find returns the descendant reached by following child names
func (p *ProjectedNode) Find(names ...string) *ProjectedNode {
	cur := p
	for _, name := range names {
		var next *ProjectedNode
		for _, c := range cur.Children {
			if c.Name == name {
				next = c
				break
			}
		}
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}

func placeholder() *ProjectedNode {
	return &ProjectedNode{
		Name: placeholderName,
		Kind: KindPlaceholder,
	}
}

// setAttributes applies value attributes; the value key sets Value
func (p *ProjectedNode) setAttributes(attrs map[string]string) {
	p.mergeAttributes(attrs, true)
}

func (p *ProjectedNode) mergeAttributes(attrs map[string]string, override bool) {
	for k, v := range attrs {
		if k == "value" {
			if override || p.Value == "" {
				p.Value = v
			}
			continue
		}
		if p.Attributes == nil {
			p.Attributes = make(map[string]string, len(attrs))
		}
		if _, ok := p.Attributes[k]; ok && !override {
			continue
		}
		p.Attributes[k] = v
	}
}
