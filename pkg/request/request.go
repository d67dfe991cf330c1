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

package request

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/yndd/yang-explorer/pkg/schema"
)

// EditOperation is the per node edit operation of an entry
type EditOperation string

const (
	OperationDefault EditOperation = ""
	OperationMerge   EditOperation = "merge"
	OperationReplace EditOperation = "replace"
	OperationRemove  EditOperation = "remove"
	OperationCreate  EditOperation = "create"
	OperationDelete  EditOperation = "delete"
)

// ParseEditOperation validates an edit operation string
func ParseEditOperation(s string) (EditOperation, error) {
	switch op := EditOperation(s); op {
	case OperationDefault, OperationMerge, OperationReplace, OperationRemove, OperationCreate, OperationDelete:
		return op, nil
	}
	return "", errors.Errorf("%s: %q", errUnknownEditOp, s)
}

// IsDefault returns true for the implicit merge operation
func (o EditOperation) IsDefault() bool {
	return o == OperationDefault || o == OperationMerge
}

// Flag marks an entry as a selection without value
type Flag string

const (
	FlagNone      Flag = ""
	FlagGet       Flag = "get"
	FlagGetConfig Flag = "get-config"
	FlagEmpty     Flag = "empty"
)

// ParseFlag validates a flag string
func ParseFlag(s string) (Flag, error) {
	switch f := Flag(s); f {
	case FlagNone, FlagGet, FlagGetConfig, FlagEmpty:
		return f, nil
	}
	return "", errors.Errorf("%s: %q", errUnknownFlag, s)
}

// IsSelection returns true when the flag drops the value of the entry
func (f Flag) IsSelection() bool {
	return f == FlagGet || f == FlagGetConfig || f == FlagEmpty
}

// Operation is the high level protocol operation
type Operation string

const (
	Get        Operation = "get"
	GetConfig  Operation = "get-config"
	EditConfig Operation = "edit-config"
	RPC        Operation = "rpc"
)

// ParseOperation validates an operation string
func ParseOperation(s string) (Operation, error) {
	switch op := Operation(s); op {
	case Get, GetConfig, EditConfig, RPC:
		return op, nil
	}
	return "", errors.Errorf("%s: %q", errUnknownOperation, s)
}

// IsRead returns true for get and get-config
func (o Operation) IsRead() bool {
	return o == Get || o == GetConfig
}

// Protocol is the target management protocol
type Protocol string

const (
	Netconf  Protocol = "netconf"
	Restconf Protocol = "restconf"
)

// ParseProtocol validates a protocol string
func ParseProtocol(s string) (Protocol, error) {
	switch p := Protocol(strings.ToLower(s)); p {
	case Netconf, Restconf:
		return p, nil
	}
	return "", errors.Errorf("%s: %q", errUnknownProtocol, s)
}

// Entry is a single path value pair supplied by the user. Path starts with
// the module name. An empty Value means no value.
type Entry struct {
	Path      string        `json:"path" yaml:"path"`
	Value     string        `json:"value,omitempty" yaml:"value,omitempty"`
	Operation EditOperation `json:"option,omitempty" yaml:"option,omitempty"`
	Flag      Flag          `json:"flag,omitempty" yaml:"flag,omitempty"`
}

// Module returns the first path segment
func (e Entry) Module() string {
	segments := schema.SplitPath(e.Path)
	if len(segments) == 0 {
		return ""
	}
	return schema.SegmentName(segments[0])
}

// Val returns the value, which a selection flag drops
func (e Entry) Val() string {
	if e.Flag.IsSelection() {
		return ""
	}
	return e.Value
}

// NormalizePath strips key selectors and a leaf-list =value suffix from the
// last segment and returns the canonical path
func NormalizePath(path string) string {
	segments := schema.SplitPath(path)
	for i, seg := range segments {
		seg = schema.SegmentName(seg)
		if i == len(segments)-1 {
			if j := strings.Index(seg, "="); j >= 0 {
				seg = seg[:j]
			}
		}
		segments[i] = seg
	}
	return strings.Join(segments, "/")
}

// GroupByModule splits entries by module, keeping the supplied order within
// a module and the order of first appearance across modules
func GroupByModule(entries []Entry) ([]string, map[string][]Entry) {
	order := make([]string, 0)
	groups := make(map[string][]Entry)
	for _, e := range entries {
		m := e.Module()
		if _, ok := groups[m]; !ok {
			order = append(order, m)
		}
		groups[m] = append(groups[m], e)
	}
	return order, groups
}
