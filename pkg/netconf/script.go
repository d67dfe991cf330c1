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
	"net"
	"strings"
	"text/template"

	"github.com/karimra/gnmic/types"
	"github.com/pkg/errors"
	"github.com/stoewer/go-strcase"
	"github.com/yndd/yang-explorer/pkg/request"
)

const (
	errRenderScript = "cannot render script"
	defaultPort     = "830"
)

var scriptTemplate = template.Must(template.New("script").Parse(`"""
    NETCONF {{ .Operation }} example

    Installing python dependencies:
    > pip install lxml ncclient

    Running script:
    > python example.py -a {{ .Host }} -u {{ .Username }} -p {{ .Password }} --port {{ .Port }}
"""

import lxml.etree as ET
from argparse import ArgumentParser
from ncclient import manager

payload = """
{{ .Payload }}
"""

if __name__ == '__main__':

    parser = ArgumentParser(description='Usage:')
    parser.add_argument('-a', '--host', type=str, required=True,
                        help="Device IP address or Hostname")
    parser.add_argument('-u', '--username', type=str, required=True,
                        help="Device Username (netconf agent username)")
    parser.add_argument('-p', '--password', type=str, required=True,
                        help="Device Password (netconf agent password)")
    parser.add_argument('--port', type=int, default={{ .Port }},
                        help="Netconf agent port")
    args = parser.parse_args()

    with manager.connect(host=args.host,
                         port=args.port,
                         username=args.username,
                         password=args.password,
                         timeout=90,
                         hostkey_verify=False) as m:

        response = {{ .Call }}{{ if eq .Datastore "candidate" }}
        m.commit(){{ end }}

        data = ET.fromstring(response)
        print(ET.tostring(data, pretty_print=True))
`))

// pyQuote escapes text for a python triple quoted string literal
var pyQuote = strings.NewReplacer(`\`, `\\`, `"""`, `\"\"\"`)

type scriptArgs struct {
	Operation string
	Host      string
	Port      string
	Username  string
	Password  string
	Payload   string
	Datastore string
	Call      string
}

// Script renders a standalone ncclient script executing the document
// against the target. Missing target fields render as placeholders.
func Script(doc *Document, target *types.TargetConfig) (string, error) {
	args := scriptArgs{
		Operation: string(doc.Operation),
		Host:      "<address>",
		Port:      defaultPort,
		Username:  "<username>",
		Password:  "<password>",
		Payload:   doc.Body,
		Datastore: doc.Datastore,
	}
	if target != nil {
		if target.Address != "" {
			host, port, err := net.SplitHostPort(target.Address)
			if err != nil {
				host = target.Address
			} else if port != "" {
				args.Port = port
			}
			args.Host = host
		}
		if target.Username != nil && *target.Username != "" {
			args.Username = *target.Username
		}
		if target.Password != nil && *target.Password != "" {
			args.Password = *target.Password
		}
	}

	// ncclient manager methods are the snake case operation names
	method := strcase.SnakeCase(string(doc.Operation))
	switch doc.Operation {
	case request.Get:
		args.Payload = "<filter>" + doc.Body + "</filter>"
		args.Call = "m." + method + "(payload).xml"
	case request.GetConfig:
		args.Payload = "<filter>" + doc.Body + "</filter>"
		args.Call = "m." + method + "(source='" + doc.Datastore + "', filter=payload).xml"
	case request.EditConfig:
		args.Payload = `<config xmlns:xc="` + BaseNamespace + `">` + doc.Body + "</config>"
		args.Call = "m." + method + "(target='" + doc.Datastore + "', config=payload).xml"
	default:
		args.Call = "m.dispatch(ET.fromstring(payload)).xml"
	}

	args.Payload = pyQuote.Replace(args.Payload)

	sb := &strings.Builder{}
	if err := scriptTemplate.Execute(sb, args); err != nil {
		return "", errors.Wrap(err, errRenderScript)
	}
	return sb.String(), nil
}
