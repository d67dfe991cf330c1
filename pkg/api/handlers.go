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

package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/yndd/yang-explorer/pkg/cache"
	"github.com/yndd/yang-explorer/pkg/lazytree"
	"github.com/yndd/yang-explorer/pkg/request"
	"github.com/yndd/yang-explorer/pkg/schema"
	"github.com/yndd/yang-explorer/pkg/ypath"
	"google.golang.org/protobuf/encoding/protojson"
)

const (
	errDecodeRequest = "cannot decode request body"
	errExpand        = "expand must be none, one or all"
	errNoEntries     = "no entries"
	errGnmiPath      = "cannot convert path"
)

// ModuleInfo describes a loaded model
type ModuleInfo struct {
	Module   string `json:"module"`
	Revision string `json:"revision,omitempty"`
}

// CompileRequest is the body of POST /api/compile
type CompileRequest struct {
	Protocol  string          `json:"protocol"`
	Operation string          `json:"operation"`
	Entries   []request.Entry `json:"entries"`
}

// CompileResponse carries either a NETCONF document or a RESTCONF request
type CompileResponse struct {
	Protocol  request.Protocol  `json:"protocol"`
	Operation request.Operation `json:"operation"`
	Netconf   interface{}       `json:"netconf,omitempty"`
	Restconf  interface{}       `json:"restconf,omitempty"`
	Warning   string            `json:"warning,omitempty"`
}

// GnmiResponse is a canonical path rendered for gNMI
type GnmiResponse struct {
	Path  string          `json:"path"`
	XPath string          `json:"xpath"`
	Gnmi  json.RawMessage `json:"gnmi"`
}

type errorResponse struct {
	Error string   `json:"error"`
	Paths []string `json:"paths,omitempty"`
}

func (s *Server) model(ctx context.Context, r *http.Request, module string) (*schema.Model, error) {
	return s.cache.Get(ctx, cache.Key{Module: module, Revision: r.URL.Query().Get("revision")})
}

func (s *Server) listModules(w http.ResponseWriter, r *http.Request) {
	keys := s.cache.Keys()
	out := make([]ModuleInfo, 0, len(keys))
	for _, k := range keys {
		out = append(out, ModuleInfo{Module: k.Module, Revision: k.Revision})
	}
	s.respond(w, http.StatusOK, out)
}

func (s *Server) tree(w http.ResponseWriter, r *http.Request) {
	m, err := s.model(r.Context(), r, chi.URLParam(r, "module"))
	if err != nil {
		s.fail(w, err)
		return
	}
	p := lazytree.New(m, lazytree.WithLogger(s.log), lazytree.WithAnnotations(s.ann))
	path := r.URL.Query().Get("path")
	var pn *lazytree.ProjectedNode
	switch r.URL.Query().Get("expand") {
	case "", "none":
		pn, err = p.ProjectNode(path)
	case "one":
		pn, err = p.ProjectSubtree(path, false)
	case "all":
		pn, err = p.ProjectSubtree(path, true)
	default:
		s.fail(w, badRequest(errors.New(errExpand)))
		return
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, pn)
}

func (s *Server) projectTree(w http.ResponseWriter, r *http.Request) {
	m, err := s.model(r.Context(), r, chi.URLParam(r, "module"))
	if err != nil {
		s.fail(w, err)
		return
	}
	var entries []lazytree.PathAttributes
	if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
		s.fail(w, badRequest(errors.Wrap(err, errDecodeRequest)))
		return
	}
	pn, err := lazytree.New(m, lazytree.WithLogger(s.log), lazytree.WithAnnotations(s.ann)).ProjectTree(entries)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, pn)
}

func (s *Server) paths(w http.ResponseWriter, r *http.Request) {
	m, err := s.model(r.Context(), r, chi.URLParam(r, "module"))
	if err != nil {
		s.fail(w, err)
		return
	}
	q := r.URL.Query()
	opts := make([]ypath.Option, 0)
	if isSet(q.Get("keys")) {
		opts = append(opts, ypath.WithKeys())
	}
	if isSet(q.Get("default")) {
		opts = append(opts, ypath.WithDefault())
	}
	if isSet(q.Get("rootprefix")) {
		opts = append(opts, ypath.WithRootPrefix())
	}
	if prefixes := splitList(q.Get("prefix")); len(prefixes) > 0 {
		opts = append(opts, ypath.WithPrefixes(prefixes...))
	}
	s.respond(w, http.StatusOK, ypath.Iterate(m, opts...).All())
}

func (s *Server) leaves(w http.ResponseWriter, r *http.Request) {
	m, err := s.model(r.Context(), r, chi.URLParam(r, "module"))
	if err != nil {
		s.fail(w, err)
		return
	}
	idx, err := ypath.NewIndex(m)
	if err != nil {
		s.fail(w, err)
		return
	}
	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		prefix = m.Name()
	}
	leaves, err := idx.Leaves(prefix)
	if err != nil {
		s.fail(w, badRequest(err))
		return
	}
	s.respond(w, http.StatusOK, leaves)
}

func (s *Server) gnmiPath(w http.ResponseWriter, r *http.Request) {
	m, err := s.model(r.Context(), r, chi.URLParam(r, "module"))
	if err != nil {
		s.fail(w, err)
		return
	}
	path := r.URL.Query().Get("path")
	gp, err := ypath.ToGnmiPath(m, path)
	if err != nil {
		s.fail(w, err)
		return
	}
	b, err := protojson.Marshal(gp)
	if err != nil {
		s.fail(w, errors.Wrap(err, errGnmiPath))
		return
	}
	s.respond(w, http.StatusOK, GnmiResponse{
		Path:  path,
		XPath: ypath.GnmiPath2XPath(gp, true),
		Gnmi:  b,
	})
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	keys := make([]cache.Key, 0)
	for _, module := range splitList(q.Get("modules")) {
		keys = append(keys, cache.Key{Module: module})
	}
	if len(keys) == 0 {
		keys = s.cache.Keys()
	}
	models := make([]*schema.Model, 0, len(keys))
	for _, k := range keys {
		m, err := s.cache.Get(r.Context(), k)
		if err != nil {
			s.fail(w, err)
			return
		}
		models = append(models, m)
	}
	s.respond(w, http.StatusOK, ypath.Search(models, q.Get("q")))
}

func (s *Server) compile(w http.ResponseWriter, r *http.Request) {
	var req CompileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, badRequest(errors.Wrap(err, errDecodeRequest)))
		return
	}
	resp, err := s.compileRequest(r.Context(), req)
	result := "success"
	if err != nil {
		result = "failure"
	}
	s.compiles.WithLabelValues(strings.ToLower(req.Protocol), req.Operation, result).Inc()
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, resp)
}

func (s *Server) compileRequest(ctx context.Context, req CompileRequest) (*CompileResponse, error) {
	proto, err := request.ParseProtocol(req.Protocol)
	if err != nil {
		return nil, badRequest(err)
	}
	op, err := request.ParseOperation(req.Operation)
	if err != nil {
		return nil, badRequest(err)
	}
	if len(req.Entries) == 0 {
		return nil, badRequest(errors.New(errNoEntries))
	}
	order, _ := request.GroupByModule(req.Entries)
	models := make([]*schema.Model, 0, len(order))
	for _, module := range order {
		m, err := s.cache.Get(ctx, cache.Key{Module: module})
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}

	resp := &CompileResponse{Protocol: proto, Operation: op}
	switch proto {
	case request.Netconf:
		doc, err := s.nc.Compile(op, req.Entries, models...)
		if err != nil {
			return nil, err
		}
		resp.Netconf = doc
	case request.Restconf:
		rr, err := s.rc.Compile(op, req.Entries, models...)
		if err != nil {
			return nil, err
		}
		resp.Restconf = rr
		if rr.Warning != nil {
			resp.Warning = rr.Warning.Error()
		}
	}
	return resp, nil
}

func (s *Server) respond(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Debug("cannot write response", "error", err)
	}
}

// fail maps err onto a status code: unknown modules and paths are 404,
// entries the compiler could not place are 422
func (s *Server) fail(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}
	code := http.StatusInternalServerError
	var unconsumed *request.UnconsumedError
	var bad *badRequestError
	switch {
	case errors.As(err, &unconsumed):
		code = http.StatusUnprocessableEntity
		resp.Paths = unconsumed.Paths
	case errors.Is(err, request.ErrAmbiguousOperation):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, schema.ErrPathNotFound), errors.Is(err, cache.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, schema.ErrMalformed), errors.As(err, &bad):
		code = http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = http.StatusServiceUnavailable
	}
	s.log.Debug("request failed", "code", code, "error", err)
	s.respond(w, code, resp)
}

type badRequestError struct {
	err error
}

func badRequest(err error) error {
	return &badRequestError{err: err}
}

func (e *badRequestError) Error() string { return e.err.Error() }

func (e *badRequestError) Unwrap() error { return e.err }

func isSet(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func splitList(s string) []string {
	out := make([]string, 0)
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
