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

package netconf

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/yndd/ndd-runtime/pkg/logging"
	"github.com/yndd/yang-explorer/pkg/request"
	"github.com/yndd/yang-explorer/pkg/schema"
)

const (
	// BaseNamespace is the NETCONF base namespace
	BaseNamespace = "urn:ietf:params:xml:ns:netconf:base:1.0"

	defaultSource = "running"
	defaultTarget = "candidate"
)

const (
	errCompile       = "cannot compile netconf request"
	errNoModel       = "no schema for module"
	errOperationType = "unsupported operation"
)

// Document is a compiled NETCONF request
type Document struct {
	MessageID string            `json:"message-id"`
	Operation request.Operation `json:"operation"`
	Datastore string            `json:"datastore,omitempty"`
	// Body is the content of the filter, config or rpc element
	Body string `json:"body"`
	// XML is the complete rpc document
	XML string `json:"xml"`
}

// Compiler compiles path value entries into NETCONF rpc documents. It is
// safe for concurrent use.
type Compiler struct {
	messageID func() string
	source    string
	target    string
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

// WithMessageID sets the generator of rpc message-ids
func WithMessageID(f func() string) Option {
	return func(c *Compiler) {
		c.messageID = f
	}
}

// WithSource sets the datastore read by get-config
func WithSource(ds string) Option {
	return func(c *Compiler) {
		if ds != "" {
			c.source = ds
		}
	}
}

// WithTarget sets the datastore written by edit-config
func WithTarget(ds string) Option {
	return func(c *Compiler) {
		if ds != "" {
			c.target = ds
		}
	}
}

// New returns a compiler
func New(opts ...Option) *Compiler {
	c := &Compiler{
		messageID: uuid.NewString,
		source:    defaultSource,
		target:    defaultTarget,
		log:       logging.NewNopLogger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Compile walks the schema of every module the entries refer to in declared
// order and emits one element per consumed entry. Entries that match no
// schema node fail the whole call.
func (c *Compiler) Compile(op request.Operation, entries []request.Entry, models ...*schema.Model) (*Document, error) {
	switch op {
	case request.Get, request.GetConfig, request.EditConfig, request.RPC:
	default:
		return nil, errors.Errorf("%s: %q", errOperationType, op)
	}
	byName := make(map[string]*schema.Model, len(models))
	for _, m := range models {
		byName[m.Name()] = m
	}

	set := request.NewSet(entries)
	order, _ := request.GroupByModule(entries)
	sb := &strings.Builder{}
	for _, module := range order {
		m, ok := byName[module]
		if !ok {
			return nil, errors.Wrap(errors.Wrapf(schema.ErrPathNotFound, "%s: %q", errNoModel, module), errCompile)
		}
		w := &walker{m: m, set: set, op: op}
		for _, child := range m.Root().Children {
			w.node(sb, child, m.Name(), "")
		}
	}
	if err := set.Check(); err != nil {
		return nil, errors.Wrap(err, errCompile)
	}

	doc := &Document{
		MessageID: c.messageID(),
		Operation: op,
		Body:      sb.String(),
	}
	doc.XML, doc.Datastore = c.envelope(op, doc.MessageID, doc.Body)
	c.log.Debug("compiled netconf request", "operation", op, "entries", len(entries), "message-id", doc.MessageID)
	return doc, nil
}

func (c *Compiler) envelope(op request.Operation, id, body string) (string, string) {
	sb := strings.Builder{}
	sb.WriteString(`<rpc message-id="`)
	sb.WriteString(escape(id))
	sb.WriteString(`" xmlns="` + BaseNamespace + `">`)
	ds := ""
	switch op {
	case request.GetConfig:
		ds = c.source
		sb.WriteString("<get-config><source><" + ds + "/></source><filter>")
		sb.WriteString(body)
		sb.WriteString("</filter></get-config>")
	case request.EditConfig:
		ds = c.target
		sb.WriteString("<edit-config><target><" + ds + "/></target>")
		sb.WriteString(`<config xmlns:xc="` + BaseNamespace + `">`)
		sb.WriteString(body)
		sb.WriteString("</config></edit-config>")
	case request.Get:
		sb.WriteString("<get><filter>")
		sb.WriteString(body)
		sb.WriteString("</filter></get>")
	default:
		sb.WriteString(body)
	}
	sb.WriteString("</rpc>")
	return sb.String(), ds
}
