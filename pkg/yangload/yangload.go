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
	"sort"
	"strings"

	"github.com/openconfig/goyang/pkg/yang"
	"github.com/pkg/errors"
	"github.com/yndd/ndd-runtime/pkg/logging"
	"github.com/yndd/yang-explorer/pkg/cache"
	"github.com/yndd/yang-explorer/pkg/schema"
)

const (
	errReadModule    = "cannot read yang module"
	errParseModule   = "cannot parse yang module"
	errProcess       = "cannot process yang modules"
	errNoModule      = "module not loaded"
	errRevision      = "revision mismatch"
	errConvertModule = "cannot convert yang module"
)

// Loader compiles YANG sources with goyang and converts the result into a
// schema model. Every call uses a fresh module set, so a Loader is safe for
// concurrent use.
type Loader struct {
	paths []string
	// logging
	log logging.Logger
}

// Option can be used to manipulate the loader
type Option func(l *Loader)

// WithLogger specifies how the Loader should log messages.
func WithLogger(log logging.Logger) Option {
	return func(l *Loader) {
		l.log = log
	}
}

// WithPaths adds directories searched for modules and their imports
func WithPaths(dirs ...string) Option {
	return func(l *Loader) {
		l.paths = append(l.paths, dirs...)
	}
}

// New returns a loader
func New(opts ...Option) *Loader {
	l := &Loader{
		log: logging.NewNopLogger(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *Loader) modules() *yang.Modules {
	ms := yang.NewModules()
	ms.AddPath(l.paths...)
	return ms
}

// Read reads the given files, or the module itself from the search path
// when no file is given, and converts module
func (l *Loader) Read(module string, files ...string) (*schema.Model, error) {
	ms := l.modules()
	if len(files) == 0 {
		files = []string{module}
	}
	for _, f := range files {
		if err := ms.Read(f); err != nil {
			if missing(err) {
				return nil, errors.Wrapf(cache.ErrNotFound, "%s: %s: %v", errReadModule, f, err)
			}
			return nil, errors.Wrapf(schema.ErrMalformed, "%s: %s: %v", errParseModule, f, err)
		}
	}
	return l.build(ms, module)
}

// Parse parses in-memory sources keyed by file name and converts module
func (l *Loader) Parse(module string, sources map[string]string) (*schema.Model, error) {
	ms := l.modules()
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := ms.Parse(sources[name], name); err != nil {
			return nil, errors.Wrapf(schema.ErrMalformed, "%s: %s: %v", errParseModule, name, err)
		}
	}
	return l.build(ms, module)
}

// Load builds the model of key from the search path. It has the signature
// of a cache loader.
func (l *Loader) Load(ctx context.Context, key cache.Key) (*schema.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := l.Read(key.Module)
	if err != nil {
		return nil, err
	}
	if key.Revision != "" && m.Revision() != key.Revision {
		return nil, errors.Wrapf(cache.ErrNotFound, "%s: %s has %s", errRevision, key, m.Revision())
	}
	return m, nil
}

// missing tells a module absent from the search path apart from a source
// that does not parse
func missing(err error) bool {
	return os.IsNotExist(errors.Cause(err)) || strings.HasPrefix(err.Error(), "no such file")
}

func (l *Loader) build(ms *yang.Modules, module string) (*schema.Model, error) {
	if errs := ms.Process(); len(errs) > 0 {
		return nil, errors.Wrapf(schema.ErrMalformed, "%s: %v", errProcess, errs)
	}
	mod, ok := ms.Modules[module]
	if !ok {
		return nil, errors.Wrapf(cache.ErrNotFound, "%s: %s", errNoModule, module)
	}
	c := newConverter(ms, mod)
	root := c.root(yang.ToEntry(mod))
	m, err := schema.NewModel(root, mod.Current(), c.namespaces(), c.identities())
	if err != nil {
		return nil, errors.Wrap(err, errConvertModule)
	}
	l.log.Debug("converted yang module", "module", module, "revision", m.Revision(), "namespaces", len(m.Namespaces()))
	return m, nil
}

