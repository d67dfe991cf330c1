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

package schema

import "github.com/pkg/errors"

var (
	// ErrMalformed is returned when a compiled schema document cannot be
	// turned into a model
	ErrMalformed = errors.New("malformed compiled schema")
	// ErrPathNotFound is returned when a path segment does not resolve
	// against the declared children of the schema
	ErrPathNotFound = errors.New("path not found")
)

const (
	errReadSchema    = "cannot read compiled schema"
	errDecodeSchema  = "cannot decode compiled schema"
	errNoRoot        = "root node must be a module"
	errNoName        = "node without name"
	errUnknownKind   = "unknown node type"
	errMissingKey    = "list key is not a leaf child"
	errNoPrefix      = "module without prefix"
	errBadNamespace  = "namespace without prefix or uri"
	errBadIdentity   = "identity without module or name"
	errDuplicateNode = "duplicate child name"
)

func malformed(format string, args ...interface{}) error {
	return errors.Wrapf(ErrMalformed, format, args...)
}

func pathNotFound(path, segment string) error {
	return errors.Wrapf(ErrPathNotFound, "%s: segment %q", path, segment)
}
