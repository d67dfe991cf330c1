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

package restconf

import (
	"net/http"
	"strings"

	"github.com/karimra/gnmic/types"
	"github.com/pkg/errors"
	"github.com/wI2L/jsondiff"
	"github.com/yndd/yang-explorer/pkg/request"
)

const (
	// PlatformIOSXE selects the vendor media types
	PlatformIOSXE = "IOS-XE"

	errCompareBody = "cannot compare bodies"
)

// Headers returns the Accept and Content-Type headers for a request. IOS-XE
// devices use the vnd.yang media types, every other platform the standard
// yang ones.
func Headers(platform string, op request.Operation, method string) map[string]string {
	mt := "application/yang"
	if isIOSXE(platform) {
		mt = "application/vnd.yang"
	}
	switch {
	case method == http.MethodGet && op == request.GetConfig:
		return map[string]string{
			"Accept": mt + ".collection+json, " + mt + ".data+json, " + mt + ".datastore+json",
		}
	case method == http.MethodGet:
		return map[string]string{
			"Accept":       mt + ".data+json, " + mt + ".errors+json",
			"Content-Type": mt + ".data+json",
		}
	default:
		return map[string]string{
			"Accept":       mt + ".collection+json, " + mt + ".data+json, " + mt + ".errors+json",
			"Content-Type": mt + ".data+json",
		}
	}
}

// an unset platform is treated as IOS-XE, csr is an alias
func isIOSXE(platform string) bool {
	switch strings.ToLower(platform) {
	case "", "ios-xe", "iosxe", "csr":
		return true
	}
	return false
}

// URLFor returns the absolute url of the request on the target device
func (r *Request) URLFor(target *types.TargetConfig) string {
	if target == nil || target.Address == "" {
		return r.URL
	}
	scheme := "https://"
	if target.Insecure != nil && *target.Insecure {
		scheme = "http://"
	}
	return scheme + strings.TrimSuffix(target.Address, "/") + r.URL
}

// BodyDiff returns the JSON patch turning body a into body b. Empty bodies
// compare as null.
func BodyDiff(a, b string) (jsondiff.Patch, error) {
	patch, err := jsondiff.CompareJSON(jsonOrNull(a), jsonOrNull(b))
	if err != nil {
		return nil, errors.Wrap(err, errCompareBody)
	}
	return patch, nil
}

func jsonOrNull(s string) []byte {
	if strings.TrimSpace(s) == "" {
		return []byte("null")
	}
	return []byte(s)
}
