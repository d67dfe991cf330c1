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

// flattenIdentities computes for every base identity the transitive set of
// derived identities in declaration order. Values are rendered as
// prefix:name, or module:name when the module has no known prefix.
func flattenIdentities(m *Model, ids []Identity) map[string][]string {
	// direct derivations: base -> derived identities in declaration order
	direct := make(map[string][]Identity)
	for _, id := range ids {
		for _, b := range id.Bases {
			direct[b] = append(direct[b], id)
		}
	}

	out := make(map[string][]string, len(direct))
	for base := range direct {
		derived := map[string]bool{}
		queue := []string{base}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, d := range direct[cur] {
				key := d.Key()
				if key == base || derived[key] {
					continue
				}
				derived[key] = true
				queue = append(queue, key)
			}
		}
		values := make([]string, 0, len(derived))
		for _, id := range ids {
			if derived[id.Key()] {
				values = append(values, m.identityValue(id))
				// an identity declared twice is only listed once
				delete(derived, id.Key())
			}
		}
		out[base] = values
	}
	return out
}

func (m *Model) identityValue(id Identity) string {
	if ns, ok := m.byModule[id.Module]; ok {
		return ns.Prefix + ":" + id.Name
	}
	return id.Module + ":" + id.Name
}
