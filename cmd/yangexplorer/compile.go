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

	"github.com/karimra/gnmic/types"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/yndd/yang-explorer/pkg/cache"
	"github.com/yndd/yang-explorer/pkg/config"
	"github.com/yndd/yang-explorer/pkg/netconf"
	"github.com/yndd/yang-explorer/pkg/request"
	"github.com/yndd/yang-explorer/pkg/restconf"
	"github.com/yndd/yang-explorer/pkg/schema"
	"gopkg.in/yaml.v3"
)

const (
	errReadEntries   = "cannot read entries"
	errDecodeEntries = "cannot decode entries"
)

// entriesFile is the document read by compile
type entriesFile struct {
	Protocol  string          `yaml:"protocol"`
	Operation string          `yaml:"operation"`
	Entries   []request.Entry `yaml:"entries"`
}

var (
	entriesPath string
	protocol    string
	operation   string
	script      bool
	address     string
	username    string
	password    string
	insecure    bool
	diffPath    string
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile path value entries into a NETCONF or RESTCONF request",
	Long: `Compile reads a YAML document with the entries to compile:

  protocol: netconf
  operation: edit-config
  entries:
  - path: example/interfaces/interface/name
    value: Gi1
  - path: example/interfaces/interface/mtu
    value: "9000"
    option: replace

The --protocol and --operation flags override the document.`,
	RunE: runCompile,
}

func init() {
	rootCmd.AddCommand(compileCmd)
	compileCmd.Flags().StringVarP(&entriesPath, "file", "f", "-", "entries file, - for stdin")
	compileCmd.Flags().StringVarP(&protocol, "protocol", "P", "", "netconf or restconf")
	compileCmd.Flags().StringVarP(&operation, "operation", "o", "", "get, get-config, edit-config or rpc")
	compileCmd.Flags().BoolVar(&script, "script", false, "render a NETCONF document as a ncclient script")
	compileCmd.Flags().StringVarP(&address, "address", "a", "", "target address, host:port")
	compileCmd.Flags().StringVarP(&username, "username", "u", "", "target username")
	compileCmd.Flags().StringVarP(&password, "password", "p", "", "target password")
	compileCmd.Flags().BoolVar(&insecure, "insecure", false, "use http for RESTCONF urls")
	compileCmd.Flags().StringVar(&diffPath, "diff", "", "print the JSON patch from this RESTCONF body to the compiled one")
}

func readEntries(path string, stdin io.Reader) (*entriesFile, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, errReadEntries)
		}
		defer f.Close()
		r = f
	}
	ef := &entriesFile{}
	if err := yaml.NewDecoder(r).Decode(ef); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, errDecodeEntries)
	}
	return ef, nil
}

func target() *types.TargetConfig {
	t := &types.TargetConfig{Address: address, Insecure: &insecure}
	if username != "" {
		t.Username = &username
	}
	if password != "" {
		t.Password = &password
	}
	return t
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ef, err := readEntries(entriesPath, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if protocol != "" {
		ef.Protocol = protocol
	}
	if operation != "" {
		ef.Operation = operation
	}
	proto, err := request.ParseProtocol(ef.Protocol)
	if err != nil {
		return err
	}
	op, err := request.ParseOperation(ef.Operation)
	if err != nil {
		return err
	}

	log := newLogger(cfg)
	c := newCache(cfg, log, nil)
	order, _ := request.GroupByModule(ef.Entries)
	models := make([]*schema.Model, 0, len(order))
	for _, module := range order {
		m, err := c.Get(cmd.Context(), cache.Key{Module: module})
		if err != nil {
			return err
		}
		models = append(models, m)
	}

	out := cmd.OutOrStdout()
	switch proto {
	case request.Netconf:
		return compileNetconf(out, cfg, op, ef.Entries, models)
	default:
		return compileRestconf(out, cmd.ErrOrStderr(), cfg, op, ef.Entries, models)
	}
}

func compileNetconf(out io.Writer, cfg *config.Config, op request.Operation, entries []request.Entry, models []*schema.Model) error {
	doc, err := netconf.New(cfg.NetconfOptions()...).Compile(op, entries, models...)
	if err != nil {
		return err
	}
	if !script {
		_, err := fmt.Fprintln(out, doc.XML)
		return err
	}
	s, err := netconf.Script(doc, target())
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(out, s)
	return err
}

func compileRestconf(out, errOut io.Writer, cfg *config.Config, op request.Operation, entries []request.Entry, models []*schema.Model) error {
	req, err := restconf.New(cfg.RestconfOptions()...).Compile(op, entries, models...)
	if err != nil {
		return err
	}
	if req.Warning != nil {
		fmt.Fprintln(errOut, "warning:", req.Warning)
	}
	if address != "" {
		req.URL = req.URLFor(target())
	}
	if diffPath != "" {
		b, err := os.ReadFile(diffPath)
		if err != nil {
			return errors.Wrap(err, errReadEntries)
		}
		patch, err := restconf.BodyDiff(string(b), req.Body)
		if err != nil {
			return err
		}
		return printJSON(out, patch)
	}
	return printJSON(out, req)
}
