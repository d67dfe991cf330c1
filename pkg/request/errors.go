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
)

var (
	// ErrUnconsumedEntries is matched by an UnconsumedError
	ErrUnconsumedEntries = errors.New("unconsumed entries")
	// ErrAmbiguousOperation reports entries carrying conflicting operations
	ErrAmbiguousOperation = errors.New("ambiguous operation")
)

const (
	errUnknownEditOp    = "unknown edit operation"
	errUnknownFlag      = "unknown flag"
	errUnknownOperation = "unknown operation"
	errUnknownProtocol  = "unknown protocol"
)

// UnconsumedError lists the entry paths that matched no schema node
type UnconsumedError struct {
	Paths []string
}

func (e *UnconsumedError) Error() string {
	return ErrUnconsumedEntries.Error() + ": " + strings.Join(e.Paths, ", ")
}

// Is makes errors.Is(err, ErrUnconsumedEntries) hold
func (e *UnconsumedError) Is(target error) bool {
	return target == ErrUnconsumedEntries
}

// AmbiguousError describes the conflicting operations found, in the order
// they were found
type AmbiguousError struct {
	Winner     string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return ErrAmbiguousOperation.Error() + ": using " + e.Winner + " of " + strings.Join(e.Candidates, ", ")
}

// Is makes errors.Is(err, ErrAmbiguousOperation) hold
func (e *AmbiguousError) Is(target error) bool {
	return target == ErrAmbiguousOperation
}
