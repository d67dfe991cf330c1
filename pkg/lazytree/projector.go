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
	"strings"

	"github.com/pkg/errors"
	"github.com/yndd/ndd-runtime/pkg/logging"
	"github.com/yndd/yang-explorer/pkg/leafref"
	"github.com/yndd/yang-explorer/pkg/schema"
	"github.com/yndd/yang-explorer/pkg/ypath"
)

const (
	errProjectNode = "cannot project node"
	errProjectTree = "cannot project tree"
)

// Projector projects a model into lazily expanded UI trees. It holds no
// mutable state and is safe for concurrent use.
type Projector struct {
	m   *schema.Model
	ann *Annotations
	// logging
	log logging.Logger
}

// Option can be used to manipulate the projector
type Option func(p *Projector)

// WithLogger specifies how the Projector should log messages.
func WithLogger(log logging.Logger) Option {
	return func(p *Projector) {
		p.log = log
	}
}

// WithAnnotations overlays annotation attributes on every projected node
func WithAnnotations(a *Annotations) Option {
	return func(p *Projector) {
		p.ann = a
	}
}

// New returns a projector for the model
func New(m *schema.Model, opts ...Option) *Projector {
	p := &Projector{
		m:   m,
		log: logging.NewNopLogger(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// PathAttributes attaches value attributes to a path of ProjectTree
type PathAttributes struct {
	Path       string            `json:"path"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// ProjectNode returns the node at path with one level of attributes; a
// non terminal node gets a single placeholder child. The empty path is the
// module node.
func (p *Projector) ProjectNode(path string) (*ProjectedNode, error) {
	path, n, err := p.resolve(path)
	if err != nil {
		return nil, err
	}
	pn := p.lazy(n, path)
	p.ann.Annotate(pn)
	return pn, nil
}

// ProjectSubtree returns the node at base with its real children, each of
// them lazy, or the complete subtree when deep is set
func (p *Projector) ProjectSubtree(base string, deep bool) (*ProjectedNode, error) {
	base, n, err := p.resolve(base)
	if err != nil {
		return nil, err
	}
	pn := p.project(n, base)
	if deep {
		p.expandDeep(pn, n)
	} else {
		p.expand(pn, n)
	}
	p.ann.Annotate(pn)
	return pn, nil
}

// ProjectTree builds the minimal tree that connects the module node to
// every requested path. The tree is expanded one level at a time: all
// distinct prefixes of a level are resolved once and their children spliced
// in place of the placeholder. Branches that are not on a requested path
// keep their placeholder.
func (p *Projector) ProjectTree(entries []PathAttributes) (*ProjectedNode, error) {
	rootPath := p.m.Name()
	root := p.lazy(p.m.Root(), rootPath)

	// fresh index of the tree under construction, keyed by canonical path
	index := map[string]*ProjectedNode{rootPath: root}
	schemaIndex := map[string]*schema.Node{rootPath: p.m.Root()}

	requested := make([][]string, 0, len(entries))
	depth := 0
	for _, e := range entries {
		trail, err := p.m.Trail(e.Path)
		if err != nil {
			return nil, errors.Wrap(err, errProjectTree)
		}
		segments := make([]string, 0, len(trail))
		for _, n := range trail {
			segments = append(segments, n.Name)
		}
		requested = append(requested, segments)
		if len(segments) > depth {
			depth = len(segments)
		}
	}

	// level 0 is the module itself and already in the tree
	for level := 1; level < depth; level++ {
		pending := make([]string, 0)
		seen := make(map[string]bool)
		for _, segments := range requested {
			if level >= len(segments) {
				continue
			}
			parent := strings.Join(segments[:level], "/")
			if !seen[parent] {
				seen[parent] = true
				pending = append(pending, parent)
			}
		}
		for _, parent := range pending {
			pn, ok := index[parent]
			if !ok {
				return nil, errors.Wrap(errors.Wrapf(schema.ErrPathNotFound, "%s", parent), errProjectTree)
			}
			n := schemaIndex[parent]
			if !pn.HasPlaceholder() {
				// terminal nodes and nodes without children have nothing to splice
				continue
			}
			p.expand(pn, n)
			for i, c := range n.Children {
				index[pn.Children[i].Path] = pn.Children[i]
				schemaIndex[pn.Children[i].Path] = c
			}
		}
		p.log.Debug("project tree", "level", level, "prefixes", len(pending))
	}

	for i, e := range entries {
		path := strings.Join(requested[i], "/")
		pn, ok := index[path]
		if !ok {
			return nil, errors.Wrap(errors.Wrapf(schema.ErrPathNotFound, "%s", e.Path), errProjectTree)
		}
		pn.setAttributes(e.Attributes)
	}
	p.log.Debug("projected tree", "module", rootPath, "paths", len(entries))
	p.ann.Annotate(root)
	return root, nil
}

// resolve trims the path and looks it up; the empty path is the module
func (p *Projector) resolve(path string) (string, *schema.Node, error) {
	path = strings.TrimSpace(path)
	if strings.Trim(path, "/") == "" {
		return p.m.Name(), p.m.Root(), nil
	}
	n, err := p.m.Lookup(path)
	if err != nil {
		return "", nil, errors.Wrap(err, errProjectNode)
	}
	return path, n, nil
}

// project copies the declared attributes of n without children
func (p *Projector) project(n *schema.Node, path string) *ProjectedNode {
	pn := &ProjectedNode{
		Name:        n.Name,
		Kind:        n.Kind.String(),
		Path:        path,
		Prefix:      n.Prefix,
		Datatype:    n.Datatype,
		Values:      copyStrings(n.Values),
		IsKey:       n.IsKey,
		Keys:        copyStrings(n.Keys),
		Mandatory:   n.Mandatory,
		Default:     n.Default,
		Presence:    n.Presence,
		Access:      string(n.Access),
		Description: n.Description,
	}
	if target, ok := n.LeafRefTarget(); ok {
		pn.LeafRef = target
		if lr, err := leafref.Resolve(p.m, path); err == nil {
			pn.LeafRefPath = lr.Target
		}
	}
	if n == p.m.Root() {
		pn.Namespaces = p.m.Namespaces()
	} else {
		pn.XPathFilter = ypath.XPathFilter(path, p.m.Prefix())
	}
	return pn
}

// lazy projects n with a placeholder child unless n is terminal
func (p *Projector) lazy(n *schema.Node, path string) *ProjectedNode {
	pn := p.project(n, path)
	if !n.IsTerminal() {
		pn.Children = []*ProjectedNode{placeholder()}
	}
	return pn
}

// expand replaces the children of pn with lazy projections of the real
// children of n
func (p *Projector) expand(pn *ProjectedNode, n *schema.Node) {
	if n.IsTerminal() {
		return
	}
	pn.Children = make([]*ProjectedNode, 0, len(n.Children))
	for _, c := range n.Children {
		pn.Children = append(pn.Children, p.lazy(c, childPath(pn.Path, c)))
	}
}

func (p *Projector) expandDeep(pn *ProjectedNode, n *schema.Node) {
	if n.IsTerminal() {
		return
	}
	pn.Children = make([]*ProjectedNode, 0, len(n.Children))
	for _, c := range n.Children {
		cn := p.project(c, childPath(pn.Path, c))
		p.expandDeep(cn, c)
		pn.Children = append(pn.Children, cn)
	}
}

func childPath(parent string, c *schema.Node) string {
	return strings.TrimSuffix(parent, "/") + "/" + c.Name
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
