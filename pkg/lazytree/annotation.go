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
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/yndd/yang-explorer/pkg/schema"
	"gopkg.in/yaml.v3"
)

const (
	errReadAnnotations   = "cannot read annotation profile"
	errDecodeAnnotations = "cannot decode annotation profile"
)

// Profile is an annotation profile: every node along one of the data paths
// gets the annotate attributes. JSON profiles are valid YAML.
type Profile struct {
	Data     []string          `yaml:"data" json:"data"`
	Annotate map[string]string `yaml:"annotate" json:"annotate"`
}

// Annotations overlays attributes onto projected nodes by path
type Annotations struct {
	attrs map[string]map[string]string
}

// NewAnnotations builds the overlay from one or more profiles. When two
// profiles annotate the same node the first one wins.
func NewAnnotations(profiles ...Profile) *Annotations {
	a := &Annotations{attrs: make(map[string]map[string]string)}
	for _, p := range profiles {
		for _, path := range p.Data {
			segments := schema.SplitPath(path)
			for i := range segments {
				prefix := canonical(segments[:i+1])
				if _, ok := a.attrs[prefix]; !ok {
					a.attrs[prefix] = p.Annotate
				}
			}
		}
	}
	return a
}

// LoadAnnotations decodes a single profile
func LoadAnnotations(r io.Reader) (*Annotations, error) {
	p := Profile{}
	if err := yaml.NewDecoder(r).Decode(&p); err != nil {
		return nil, errors.Wrap(err, errDecodeAnnotations)
	}
	return NewAnnotations(p), nil
}

// LoadAnnotationsFile decodes a single profile from a file
func LoadAnnotationsFile(path string) (*Annotations, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errReadAnnotations)
	}
	defer f.Close()
	return LoadAnnotations(f)
}

// Lookup returns the attributes for a canonical path
func (a *Annotations) Lookup(path string) (map[string]string, bool) {
	if a == nil {
		return nil, false
	}
	attrs, ok := a.attrs[canonical(schema.SplitPath(path))]
	return attrs, ok
}

func canonical(segments []string) string {
	names := make([]string, 0, len(segments))
	for _, seg := range segments {
		names = append(names, schema.SegmentName(seg))
	}
	return strings.Join(names, "/")
}

// Annotate applies the overlay to the node and all its descendants.
// Attributes already set on a node are kept.
func (a *Annotations) Annotate(p *ProjectedNode) {
	if a == nil || p == nil || p.IsPlaceholder() {
		return
	}
	if attrs, ok := a.Lookup(p.Path); ok {
		p.mergeAttributes(attrs, false)
	}
	for _, c := range p.Children {
		a.Annotate(c)
	}
}
