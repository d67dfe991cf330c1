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
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yndd/ndd-runtime/pkg/logging"
	"github.com/yndd/yang-explorer/pkg/cache"
	"github.com/yndd/yang-explorer/pkg/lazytree"
	"github.com/yndd/yang-explorer/pkg/netconf"
	"github.com/yndd/yang-explorer/pkg/restconf"
)

// Server exposes the projector, the path iterator and the request
// compilers over HTTP
type Server struct {
	cache *cache.Cache
	ann   *lazytree.Annotations
	nc    *netconf.Compiler
	rc    *restconf.Compiler

	registry *prometheus.Registry
	compiles *prometheus.CounterVec
	// logging
	log logging.Logger
}

// Option can be used to manipulate the server
type Option func(s *Server)

// WithLogger specifies how the Server should log messages.
func WithLogger(log logging.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// WithAnnotations overlays the annotations on every projected tree
func WithAnnotations(a *lazytree.Annotations) Option {
	return func(s *Server) {
		s.ann = a
	}
}

// WithNetconf sets the NETCONF compiler
func WithNetconf(c *netconf.Compiler) Option {
	return func(s *Server) {
		s.nc = c
	}
}

// WithRestconf sets the RESTCONF compiler
func WithRestconf(c *restconf.Compiler) Option {
	return func(s *Server) {
		s.rc = c
	}
}

// WithRegistry registers the compile metrics with reg and serves reg on
// /metrics
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// New returns a server resolving models through c
func New(c *cache.Cache, opts ...Option) *Server {
	s := &Server{
		cache: c,
		log:   logging.NewNopLogger(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.nc == nil {
		s.nc = netconf.New(netconf.WithLogger(s.log))
	}
	if s.rc == nil {
		s.rc = restconf.New(restconf.WithLogger(s.log))
	}
	var reg prometheus.Registerer = prometheus.NewRegistry()
	if s.registry != nil {
		reg = s.registry
	}
	s.compiles = promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Namespace: "yangexplorer",
		Name:      "compiles_total",
		Help:      "Number of compiled requests by protocol, operation and result",
	}, []string{"protocol", "operation", "result"})
	return s
}

// Handler returns the routes of the server
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if s.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	r.Route("/api", func(r chi.Router) {
		r.Get("/modules", s.listModules)
		r.Get("/search", s.search)
		r.Post("/compile", s.compile)
		r.Route("/modules/{module}", func(r chi.Router) {
			r.Get("/tree", s.tree)
			r.Post("/tree", s.projectTree)
			r.Get("/paths", s.paths)
			r.Get("/leaves", s.leaves)
			r.Get("/gnmi", s.gnmiPath)
		})
	})
	return r
}
