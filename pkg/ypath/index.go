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

	"github.com/openconfig/gnmi/ctree"
	gpath "github.com/openconfig/gnmi/path"
	"github.com/openconfig/gnmi/proto/gnmi"
	"github.com/pkg/errors"
	"github.com/yndd/yang-explorer/pkg/schema"
	"google.golang.org/protobuf/proto"
)

const (
	errIndexAdd   = "cannot add path to index"
	errIndexQuery = "cannot query index"
)

// Result is a single search hit
type Result struct {
	Module string `json:"module"`
	Path   string `json:"path"`
}

// Search returns every canonical path of the given models that contains
// query, in model order then iterator order
func Search(models []*schema.Model, query string) []Result {
	results := make([]Result, 0)
	for _, m := range models {
		it := Iterate(m)
		for {
			p, _, ok := it.Next()
			if !ok {
				break
			}
			if strings.Contains(p, query) {
				results = append(results, Result{Module: m.Name(), Path: p})
			}
		}
	}
	return results
}

// Index holds the terminal paths of a model in a gnmi ctree so that all
// leaves below a prefix, with "*" wildcards, can be queried without a
// full walk
type Index struct {
	t *ctree.Tree
}

// NewIndex walks the model once and indexes every leaf and leaf-list
func NewIndex(m *schema.Model) (*Index, error) {
	idx := &Index{t: &ctree.Tree{}}
	it := Iterate(m)
	for {
		p, n, ok := it.Next()
		if !ok {
			return idx, nil
		}
		if !n.IsTerminal() {
			continue
		}
		if err := idx.t.Add(schema.SplitPath(p), p); err != nil {
			return nil, errors.Wrap(err, errIndexAdd)
		}
	}
}

// Leaves returns the sorted canonical paths of all terminal nodes at or
// below prefix. A segment "*" matches any node.
func (idx *Index) Leaves(prefix string) ([]string, error) {
	return idx.query(schema.SplitPath(prefix))
}

// LeavesGnmi is Leaves for a gnmi path relative to the module. Key
// selectors are ignored since the index holds schema paths.
func (idx *Index) LeavesGnmi(module string, p *gnmi.Path) ([]string, error) {
	sp := proto.Clone(p).(*gnmi.Path)
	for _, pElem := range sp.GetElem() {
		pElem.Key = nil
	}
	query := append([]string{module}, gpath.ToStrings(sp, false)...)
	return idx.query(query)
}

func (idx *Index) query(q []string) ([]string, error) {
	paths := make([]string, 0)
	if err := idx.t.Query(q, func(_ []string, _ *ctree.Leaf, v interface{}) error {
		if p, ok := v.(string); ok {
			paths = append(paths, p)
		}
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, errIndexQuery)
	}
	sort.Strings(paths)
	return paths, nil
}
