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
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/yndd/ndd-runtime/pkg/logging"
	"github.com/yndd/yang-explorer/pkg/cache"
	"github.com/yndd/yang-explorer/pkg/config"
	"github.com/yndd/yang-explorer/pkg/yangload"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "yangexplorer",
	Short: "Browse yang schemas and compile NETCONF and RESTCONF requests",
	Long: `yangexplorer projects compiled yang schemas as lazily expanded trees
and compiles path value entries into NETCONF XML and RESTCONF requests.

  yangexplorer serve                 # HTTP API
  yangexplorer tree example          # print a (sub)tree
  yangexplorer paths example         # list canonical paths
  yangexplorer search mtu            # search paths of loaded modules
  yangexplorer compile -f req.yaml   # compile entries`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
}

// loadConfig returns the configuration file, or the defaults when no file
// is given
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if cfgFile != "" {
		var err error
		if cfg, err = config.LoadFile(cfgFile); err != nil {
			return nil, err
		}
	}
	if debug {
		cfg.Debug = true
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) logging.Logger {
	zl := zap.New(zap.UseDevMode(cfg.Debug), zap.WriteTo(os.Stderr))
	return logging.NewLogrLogger(zl.WithName("yangexplorer"))
}

// newCache resolves compiled schema documents first and falls back to
// compiling yang sources
func newCache(cfg *config.Config, log logging.Logger, reg prometheus.Registerer) *cache.Cache {
	loaders := make([]cache.Loader, 0, 2)
	if cfg.Schemas.Dir != "" {
		loaders = append(loaders, cache.FileLoader(cfg.Schemas.Dir))
	}
	if len(cfg.Schemas.YangPaths) > 0 {
		l := yangload.New(yangload.WithLogger(log), yangload.WithPaths(cfg.Schemas.YangPaths...))
		loaders = append(loaders, l.Load)
	}
	opts := []cache.Option{cache.WithLogger(log)}
	if reg != nil {
		opts = append(opts, cache.WithMetrics(cache.NewMetrics(reg)))
	}
	return cache.New(cache.Chain(loaders...), opts...)
}
