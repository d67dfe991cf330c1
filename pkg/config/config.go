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

package config

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/yndd/yang-explorer/pkg/netconf"
	"github.com/yndd/yang-explorer/pkg/restconf"
	"gopkg.in/yaml.v3"
)

const (
	errReadConfig   = "cannot read config"
	errDecodeConfig = "cannot decode config"
	errInvalid      = "invalid config"

	defaultAddress = ":8088"
	defaultSchemas = "schemas"
)

// Config is the configuration of the explorer binary
type Config struct {
	Server   Server   `yaml:"server"`
	Schemas  Schemas  `yaml:"schemas"`
	Netconf  Netconf  `yaml:"netconf"`
	Restconf Restconf `yaml:"restconf"`
	// Annotations is an optional annotation profile file
	Annotations string `yaml:"annotations,omitempty"`
	Debug       bool   `yaml:"debug"`
}

type Server struct {
	Address string `yaml:"address"`
	Metrics bool   `yaml:"metrics"`
}

// Schemas locates compiled schema documents and yang sources
type Schemas struct {
	Dir       string   `yaml:"dir"`
	YangPaths []string `yaml:"yang_paths,omitempty"`
	Watch     bool     `yaml:"watch"`
}

type Netconf struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

type Restconf struct {
	Root           string `yaml:"root"`
	OperationsRoot string `yaml:"operations_root"`
	Platform       string `yaml:"platform"`
	// Strict rejects entries asking for conflicting operations
	Strict bool `yaml:"strict"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Server: Server{
			Address: defaultAddress,
			Metrics: true,
		},
		Schemas: Schemas{
			Dir: defaultSchemas,
		},
		Netconf: Netconf{
			Source: "running",
			Target: "candidate",
		},
		Restconf: Restconf{
			Root:           restconf.DefaultRoot,
			OperationsRoot: restconf.DefaultOperationsRoot,
			Platform:       restconf.PlatformIOSXE,
		},
	}
}

// LoadFile reads a YAML configuration file. Unset fields keep their
// default.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errReadConfig)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes a YAML configuration on top of the defaults and validates it
func Load(r io.Reader) (*Config, error) {
	c := Default()
	d := yaml.NewDecoder(r)
	d.KnownFields(true)
	if err := d.Decode(c); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, errDecodeConfig)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate rejects configurations the binary cannot run with
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return errors.Errorf("%s: server.address is empty", errInvalid)
	}
	if c.Schemas.Dir == "" && len(c.Schemas.YangPaths) == 0 {
		return errors.Errorf("%s: neither schemas.dir nor schemas.yang_paths is set", errInvalid)
	}
	if c.Schemas.Watch && c.Schemas.Dir == "" {
		return errors.Errorf("%s: schemas.watch needs schemas.dir", errInvalid)
	}
	for name, ds := range map[string]string{"netconf.source": c.Netconf.Source, "netconf.target": c.Netconf.Target} {
		switch ds {
		case "running", "candidate", "startup":
		default:
			return errors.Errorf("%s: %s: unknown datastore %q", errInvalid, name, ds)
		}
	}
	if c.Restconf.Root == "" || c.Restconf.Root[0] != '/' {
		return errors.Errorf("%s: restconf.root must be an absolute path", errInvalid)
	}
	if c.Restconf.OperationsRoot == "" || c.Restconf.OperationsRoot[0] != '/' {
		return errors.Errorf("%s: restconf.operations_root must be an absolute path", errInvalid)
	}
	return nil
}

// NetconfOptions returns the compiler options of the configuration
func (c *Config) NetconfOptions() []netconf.Option {
	return []netconf.Option{
		netconf.WithSource(c.Netconf.Source),
		netconf.WithTarget(c.Netconf.Target),
	}
}

// RestconfOptions returns the compiler options of the configuration
func (c *Config) RestconfOptions() []restconf.Option {
	return []restconf.Option{
		restconf.WithRoot(c.Restconf.Root),
		restconf.WithOperationsRoot(c.Restconf.OperationsRoot),
		restconf.WithPlatform(c.Restconf.Platform),
		restconf.WithStrict(c.Restconf.Strict),
	}
}
