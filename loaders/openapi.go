// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package loaders

import (
	"log/slog"
	"strings"

	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/document"
	"gopkg.in/yaml.v3"
)

var httpMethods = map[string]bool{
	"get": true, "put": true, "post": true, "delete": true,
	"options": true, "head": true, "patch": true, "trace": true,
}

type operation struct {
	Summary     string `yaml:"summary"`
	Description string `yaml:"description"`
	Parameters  any    `yaml:"parameters"`
	Responses   any    `yaml:"responses"`
}

// ParseOpenAPI reads an OpenAPI document and emits one APIEndpoint per
// (path, method) pair, in document order. Path-level keys that are not
// HTTP methods, such as shared parameters, are skipped.
func ParseOpenAPI(data []byte, logger *slog.Logger) ([]core.StructuredRecord, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, malformed("invalid yaml: %v", err)
	}
	if len(doc.Content) == 0 {
		return nil, malformed("empty document")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, malformed("document is not a map")
	}

	paths := mappingValue(root, "paths")
	if paths == nil {
		return nil, nil
	}
	if paths.Kind != yaml.MappingNode {
		return nil, malformed("paths is not a map")
	}

	var records []core.StructuredRecord
	for i := 0; i+1 < len(paths.Content); i += 2 {
		path := paths.Content[i].Value
		item := paths.Content[i+1]
		if item.Kind != yaml.MappingNode {
			return nil, malformed("path %q is not a map", path)
		}
		for j := 0; j+1 < len(item.Content); j += 2 {
			method := item.Content[j].Value
			if !httpMethods[strings.ToLower(method)] {
				logger.Debug("skipping path item key", "path", path, "key", method)
				continue
			}
			def := item.Content[j+1]
			if def.Kind != yaml.MappingNode {
				return nil, malformed("%s %s is not a map", strings.ToUpper(method), path)
			}
			var op operation
			if err := def.Decode(&op); err != nil {
				return nil, malformed("%s %s: %v", strings.ToUpper(method), path, err)
			}
			records = append(records, core.NewRecord(&core.APIEndpoint{
				Path:        path,
				Method:      strings.ToUpper(method),
				Summary:     op.Summary,
				Description: op.Description,
				Extra: map[string]any{
					"parameters": document.NormalizeValue(op.Parameters),
					"responses":  document.NormalizeValue(op.Responses),
				},
			}))
		}
	}
	return records, nil
}

// mappingValue returns the value node for key in a mapping node, or nil.
func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}
