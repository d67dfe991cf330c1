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
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/yndd/yang-explorer/pkg/cache"
	"github.com/yndd/yang-explorer/pkg/config"
	"github.com/yndd/yang-explorer/pkg/lazytree"
	"github.com/yndd/yang-explorer/pkg/schema"
	"github.com/yndd/yang-explorer/pkg/ypath"
)

const errListSchemas = "cannot list schema directory"

var (
	revision    string
	treePath    string
	expand      string
	withKeys    bool
	prefixes    []string
	withDefault bool
	rootPrefix  bool
	leavesOnly  bool
	modules     []string
)

var treeCmd = &cobra.Command{
	Use:   "tree MODULE",
	Short: "Print the projected tree of a module",
	Args:  cobra.ExactArgs(1),
	RunE:  runTree,
}

var pathsCmd = &cobra.Command{
	Use:   "paths MODULE",
	Short: "List the canonical paths of a module",
	Args:  cobra.ExactArgs(1),
	RunE:  runPaths,
}

var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search the paths of the modules in the schema directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	rootCmd.AddCommand(treeCmd, pathsCmd, searchCmd)
	for _, c := range []*cobra.Command{treeCmd, pathsCmd} {
		c.Flags().StringVarP(&revision, "revision", "r", "", "module revision")
	}
	treeCmd.Flags().StringVarP(&treePath, "path", "p", "", "canonical path of the subtree root")
	treeCmd.Flags().StringVarP(&expand, "expand", "e", "one", "expansion: none, one or all")

	pathsCmd.Flags().BoolVar(&withKeys, "keys", false, "render list keys")
	pathsCmd.Flags().StringSliceVar(&prefixes, "prefix", nil, "only walk nodes of these prefixes")
	pathsCmd.Flags().BoolVar(&withDefault, "default", false, "render default values")
	pathsCmd.Flags().BoolVar(&rootPrefix, "root-prefix", false, "qualify the first segment with the module prefix")
	pathsCmd.Flags().BoolVar(&leavesOnly, "leaves", false, "only list leaves and leaf-lists")

	searchCmd.Flags().StringSliceVarP(&modules, "modules", "m", nil, "modules to search, all modules in the schema directory by default")
}

func loadModel(cmd *cobra.Command, cfg *config.Config, module string) (*schema.Model, error) {
	c := newCache(cfg, newLogger(cfg), nil)
	return c.Get(cmd.Context(), cache.Key{Module: module, Revision: revision})
}

func runTree(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	m, err := loadModel(cmd, cfg, args[0])
	if err != nil {
		return err
	}
	opts := []lazytree.Option{}
	if cfg.Annotations != "" {
		ann, err := lazytree.LoadAnnotationsFile(cfg.Annotations)
		if err != nil {
			return err
		}
		opts = append(opts, lazytree.WithAnnotations(ann))
	}
	p := lazytree.New(m, opts...)
	var pn *lazytree.ProjectedNode
	switch expand {
	case "none":
		pn, err = p.ProjectNode(treePath)
	case "one":
		pn, err = p.ProjectSubtree(treePath, false)
	case "all":
		pn, err = p.ProjectSubtree(treePath, true)
	default:
		return errors.Errorf("unknown expansion %q", expand)
	}
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), pn)
}

func runPaths(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	m, err := loadModel(cmd, cfg, args[0])
	if err != nil {
		return err
	}
	if leavesOnly {
		idx, err := ypath.NewIndex(m)
		if err != nil {
			return err
		}
		leaves, err := idx.Leaves(m.Name())
		if err != nil {
			return err
		}
		return printLines(cmd.OutOrStdout(), leaves)
	}
	opts := []ypath.Option{}
	if withKeys {
		opts = append(opts, ypath.WithKeys())
	}
	if len(prefixes) > 0 {
		opts = append(opts, ypath.WithPrefixes(prefixes...))
	}
	if withDefault {
		opts = append(opts, ypath.WithDefault())
	}
	if rootPrefix {
		opts = append(opts, ypath.WithRootPrefix())
	}
	return printLines(cmd.OutOrStdout(), ypath.Iterate(m, opts...).All())
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	keys := make([]cache.Key, 0)
	for _, module := range modules {
		keys = append(keys, cache.Key{Module: module})
	}
	if len(keys) == 0 && cfg.Schemas.Dir != "" {
		files, err := os.ReadDir(cfg.Schemas.Dir)
		if err != nil {
			return errors.Wrap(err, errListSchemas)
		}
		for _, f := range files {
			if k, ok := cache.KeyFromFile(filepath.Join(cfg.Schemas.Dir, f.Name())); ok && !f.IsDir() {
				keys = append(keys, k)
			}
		}
	}
	c := newCache(cfg, newLogger(cfg), nil)
	models := make([]*schema.Model, 0, len(keys))
	for _, k := range keys {
		m, err := c.Get(cmd.Context(), k)
		if err != nil {
			return err
		}
		models = append(models, m)
	}
	for _, r := range ypath.Search(models, args[0]) {
		fmt.Fprintln(cmd.OutOrStdout(), r.Path)
	}
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func printLines(w io.Writer, lines []string) error {
	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
