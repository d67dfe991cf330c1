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

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/yndd/yang-explorer/pkg/api"
	"github.com/yndd/yang-explorer/pkg/lazytree"
	"github.com/yndd/yang-explorer/pkg/netconf"
	"github.com/yndd/yang-explorer/pkg/restconf"
)

const (
	errWatch    = "cannot watch schema directory"
	errListen   = "cannot serve http"
	errShutdown = "cannot shut down http server"

	shutdownTimeout = 10 * time.Second
)

var listenAddress string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&listenAddress, "address", "a", "", "listen address, overrides server.address")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listenAddress != "" {
		cfg.Server.Address = listenAddress
	}
	log := newLogger(cfg)

	var (
		reg        *prometheus.Registry
		registerer prometheus.Registerer
	)
	if cfg.Server.Metrics {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		registerer = reg
	}
	c := newCache(cfg, log, registerer)
	if cfg.Schemas.Watch {
		w, err := c.Watch(cfg.Schemas.Dir)
		if err != nil {
			return errors.Wrap(err, errWatch)
		}
		defer w.Close()
	}

	opts := []api.Option{
		api.WithLogger(log),
		api.WithNetconf(netconf.New(append(cfg.NetconfOptions(), netconf.WithLogger(log))...)),
		api.WithRestconf(restconf.New(append(cfg.RestconfOptions(), restconf.WithLogger(log))...)),
	}
	if reg != nil {
		opts = append(opts, api.WithRegistry(reg))
	}
	if cfg.Annotations != "" {
		ann, err := lazytree.LoadAnnotationsFile(cfg.Annotations)
		if err != nil {
			return err
		}
		opts = append(opts, api.WithAnnotations(ann))
	}

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           api.New(c, opts...).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("serving", "address", cfg.Server.Address, "schemas", cfg.Schemas.Dir, "watch", cfg.Schemas.Watch)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, errListen)
		}
		return nil
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return errors.Wrap(err, errShutdown)
	}
	log.Info("stopped")
	return nil
}
