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
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/yndd/ndd-runtime/pkg/logging"
	"github.com/yndd/yang-explorer/pkg/request"
	"github.com/yndd/yang-explorer/pkg/schema"
)

const (
	// DefaultRoot is the RESTCONF datastore resource
	DefaultRoot = "/restconf/data"
	// DefaultOperationsRoot is the RESTCONF operations resource
	DefaultOperationsRoot = "/restconf/operations"
)

const (
	errCompile       = "cannot compile restconf request"
	errNoModel       = "no schema for module"
	errOperationType = "unsupported operation"
	errEncodeBody    = "cannot encode body"
	errRPCTarget     = "rpc request must select exactly one rpc"
)

// Request is a compiled RESTCONF request
type Request struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Body    string            `json:"body,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	// Warning is set when the entries carried conflicting operations
	Warning error `json:"-"`
}

// Compiler compiles path value entries into RESTCONF requests. It is safe
// for concurrent use.
type Compiler struct {
	root     string
	opsRoot  string
	platform string
	strict   bool
	// logging
	log logging.Logger
}

// Option can be used to manipulate the compiler
type Option func(c *Compiler)

// WithLogger specifies how the Compiler should log messages.
func WithLogger(log logging.Logger) Option {
	return func(c *Compiler) {
		c.log = log
	}
}

// WithRoot sets the datastore root every url starts with
func WithRoot(root string) Option {
	return func(c *Compiler) {
		if root != "" {
			c.root = strings.TrimSuffix(root, "/")
		}
	}
}

// WithOperationsRoot sets the root of rpc urls
func WithOperationsRoot(root string) Option {
	return func(c *Compiler) {
		if root != "" {
			c.opsRoot = strings.TrimSuffix(root, "/")
		}
	}
}

// WithPlatform selects the header table
func WithPlatform(platform string) Option {
	return func(c *Compiler) {
		c.platform = platform
	}
}

// WithStrict turns conflicting entry operations into an error
func WithStrict(strict bool) Option {
	return func(c *Compiler) {
		c.strict = strict
	}
}

// New returns a compiler
func New(opts ...Option) *Compiler {
	c := &Compiler{
		root:    DefaultRoot,
		opsRoot: DefaultOperationsRoot,
		log:     logging.NewNopLogger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Compile resolves the entries against the models and returns the method,
// url and body of the request. The url ends at the shallowest node carrying
// the operation that decides the method, the body holds what lies below it.
func (c *Compiler) Compile(op request.Operation, entries []request.Entry, models ...*schema.Model) (*Request, error) {
	switch op {
	case request.Get, request.GetConfig, request.EditConfig, request.RPC:
	default:
		return nil, errors.Errorf("%s: %q", errOperationType, op)
	}
	root, err := selectEntries(entries, models)
	if err != nil {
		return nil, errors.Wrap(err, errCompile)
	}
	var req *Request
	if op == request.RPC {
		req, err = c.rpc(root)
	} else {
		req, err = c.data(op, root)
	}
	if err != nil {
		return nil, errors.Wrap(err, errCompile)
	}
	req.Headers = Headers(c.platform, op, req.Method)
	c.log.Debug("compiled restconf request", "operation", op, "entries", len(entries), "method", req.Method, "url", req.URL)
	return req, nil
}

func selectEntries(entries []request.Entry, models []*schema.Model) (*selection, error) {
	byName := make(map[string]*schema.Model, len(models))
	for _, m := range models {
		byName[m.Name()] = m
	}
	set := request.NewSet(entries)
	order, _ := request.GroupByModule(entries)
	root := &selection{}
	for _, module := range order {
		m, ok := byName[module]
		if !ok {
			return nil, errors.Wrapf(schema.ErrPathNotFound, "%s: %q", errNoModel, module)
		}
		w := &walker{m: m, set: set}
		for _, child := range m.Root().Children {
			w.collect(root, child, m.Name(), m.Name())
		}
	}
	if err := set.Check(); err != nil {
		return nil, err
	}
	return root, nil
}

func (c *Compiler) data(op request.Operation, root *selection) (*Request, error) {
	winner, warning := precedence(op, root)
	if warning != nil {
		if c.strict {
			return nil, warning
		}
		c.log.Debug("ambiguous operation", "error", warning)
	}
	method := methodFor(op, winner)
	cut := cutPoint(root, op, winner)

	// POST creates the cut node below the resource it is sent to
	last := cut
	if method == http.MethodPost && cut != root {
		last = cut.parent
	}
	if out := outside(root, cut, last); len(out) > 0 {
		return nil, &request.UnconsumedError{Paths: out}
	}

	req := &Request{
		Method:  method,
		URL:     c.root + urlPath(last, method),
		Warning: warning,
	}
	if method == http.MethodGet || method == http.MethodDelete {
		return req, nil
	}
	var body object
	if cut == root {
		body = members(root.children, "")
	} else if v, ok := value(cut); ok {
		body = object{{name: cut.module + ":" + cut.node.LocalName(), value: v}}
	}
	if len(body) > 0 {
		b, err := encode(body)
		if err != nil {
			return nil, errors.Wrap(err, errEncodeBody)
		}
		req.Body = b
	}
	return req, nil
}

// rpc posts the input of a single rpc to the operations resource
func (c *Compiler) rpc(root *selection) (*Request, error) {
	if len(root.children) != 1 || root.children[0].node.Kind != schema.KindRpc {
		return nil, errors.New(errRPCTarget)
	}
	s := root.children[0]
	req := &Request{
		Method: http.MethodPost,
		URL:    c.opsRoot + "/" + s.module + ":" + s.node.LocalName(),
	}
	if input := members(s.children, s.module); len(input) > 0 {
		b, err := encode(object{{name: s.module + ":input", value: input}})
		if err != nil {
			return nil, errors.Wrap(err, errEncodeBody)
		}
		req.Body = b
	}
	return req, nil
}

// flagOf returns the operation an entry asks for, empty for the default
func flagOf(op request.Operation, e request.Entry) string {
	if op.IsRead() {
		if e.Flag == request.FlagGet || e.Flag == request.FlagGetConfig {
			return string(e.Flag)
		}
		return ""
	}
	if e.Operation.IsDefault() {
		return ""
	}
	return string(e.Operation)
}

func methodFor(op request.Operation, flag string) string {
	switch flag {
	case string(request.OperationRemove), string(request.OperationDelete):
		return http.MethodDelete
	case string(request.OperationReplace):
		return http.MethodPut
	case string(request.OperationCreate):
		return http.MethodPost
	case string(request.FlagGet), string(request.FlagGetConfig):
		return http.MethodGet
	}
	if op.IsRead() {
		return http.MethodGet
	}
	return http.MethodPatch
}

// precedence returns the first operation found in document order. Entries
// asking for operations that map to different methods produce a warning.
func precedence(op request.Operation, root *selection) (string, error) {
	var flags []string
	seen := map[string]bool{}
	methods := map[string]bool{}
	root.walk(func(s *selection) {
		for _, e := range s.entries() {
			f := flagOf(op, e)
			if f == "" || seen[f] {
				continue
			}
			seen[f] = true
			flags = append(flags, f)
			methods[methodFor(op, f)] = true
		}
	})
	if len(flags) == 0 {
		return "", nil
	}
	if len(methods) > 1 {
		return flags[0], &request.AmbiguousError{Winner: flags[0], Candidates: flags}
	}
	return flags[0], nil
}

// cutPoint returns the shallowest selection carrying the winning operation.
// Without one the request addresses the single top level node, or the whole
// datastore when the entries span several.
func cutPoint(root *selection, op request.Operation, winner string) *selection {
	var cut *selection
	if winner != "" {
		root.walk(func(s *selection) {
			if cut != nil && cut.depth <= s.depth {
				return
			}
			for _, e := range s.entries() {
				if flagOf(op, e) == winner {
					cut = s
					return
				}
			}
		})
	}
	if cut == nil {
		if len(root.children) == 1 {
			return root.children[0]
		}
		return root
	}
	// a key leaf addresses its list entry
	if cut.isKey() {
		return cut.parent
	}
	return cut
}

// outside returns the entries that end up neither in the url nor in the
// subtree below the cut
func outside(root, cut, last *selection) []string {
	chain := map[*selection]bool{}
	for s := last; s != nil; s = s.parent {
		chain[s] = true
	}
	var paths []string
	root.walk(func(s *selection) {
		if s == root || cut.contains(s) || chain[s] {
			return
		}
		// keys of lists in the url
		if s.isKey() && chain[s.parent] {
			return
		}
		for _, e := range s.entries() {
			paths = append(paths, e.Path)
		}
	})
	return paths
}

// urlPath renders the segments from the top level node down to last
func urlPath(last *selection, method string) string {
	var segments []string
	for s := last; s != nil && s.node != nil; s = s.parent {
		segments = append(segments, segment(s, method))
	}
	sb := strings.Builder{}
	for i := len(segments) - 1; i >= 0; i-- {
		sb.WriteString("/")
		sb.WriteString(segments[i])
	}
	return sb.String()
}

func segment(s *selection, method string) string {
	name := s.node.LocalName()
	if s.parent == nil || s.parent.node == nil || s.parent.module != s.module {
		name = s.module + ":" + name
	}
	switch s.node.Kind {
	case schema.KindList:
		keys := make([]string, 0, len(s.node.Keys))
		for _, k := range s.node.Keys {
			c := s.child(schema.LocalName(k))
			if c == nil || c.entry == nil || c.entry.Value == "" {
				return name
			}
			keys = append(keys, escapeKey(c.entry.Value))
		}
		if len(keys) > 0 {
			name += "=" + strings.Join(keys, ",")
		}
	case schema.KindLeafList:
		if method == http.MethodDelete && len(s.values) == 1 && s.values[0].Value != "" {
			name += "=" + escapeKey(s.values[0].Value)
		}
	}
	return name
}

// escapeKey percent encodes a key value for use in a path segment
func escapeKey(v string) string {
	return strings.ReplaceAll(url.PathEscape(v), ":", "%3A")
}
