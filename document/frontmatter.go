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


package document

import (
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/poiesic/corpora/core"
	"gopkg.in/yaml.v3"
)

const fence = "---"

// recognizedKeys are lifted into DocumentMetadata fields.
// All other front-matter keys are kept in Extra.
var recognizedKeys = map[string]bool{
	"doc_id":         true,
	"title":          true,
	"doc_type":       true,
	"audience":       true,
	"product_scope":  true,
	"region_scope":   true,
	"version":        true,
	"effective_date": true,
}

// Extractor parses front matter and logs coercion diagnostics.
// It holds no per-document state and is safe for concurrent use.
type Extractor struct {
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewExtractor creates a metadata extractor.
func NewExtractor(opts ...Option) (*Extractor, error) {
	e := &Extractor{logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.logger = e.logger.With("component", "metadata-extractor")
	return e, nil
}

// ExtractMetadata parses raw with a default Extractor.
func ExtractMetadata(raw []byte, sourcePath string) (*core.DocumentMetadata, string, error) {
	e, _ := NewExtractor()
	return e.Extract(raw, sourcePath)
}

// Extract splits raw into metadata and body. The body is returned with the
// front-matter block removed and surrounding whitespace trimmed.
// Errors wrap core.ErrParse.
func (e *Extractor) Extract(raw []byte, sourcePath string) (*core.DocumentMetadata, string, error) {
	text := strings.ReplaceAll(string(raw), "\r\n", "\n")

	block, body, err := splitFrontMatter(text)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %w", core.ErrParse, sourcePath, err)
	}

	data := map[string]any{}
	if block != "" {
		var node yaml.Node
		if err := yaml.Unmarshal([]byte(block), &node); err != nil {
			return nil, "", fmt.Errorf("%w: %s: %w", core.ErrParse, sourcePath, err)
		}
		if len(node.Content) > 0 {
			root := node.Content[0]
			if root.Kind != yaml.MappingNode {
				return nil, "", fmt.Errorf("%w: %s: %w", core.ErrParse, sourcePath, ErrFrontMatterNotMap)
			}
			if err := root.Decode(&data); err != nil {
				return nil, "", fmt.Errorf("%w: %s: %w", core.ErrParse, sourcePath, err)
			}
		}
	}

	meta := e.metadataFromMap(data, sourcePath)
	if meta.Title == "" {
		meta.Title = headingTitle(body)
	}
	return meta, strings.TrimSpace(body), nil
}

func (e *Extractor) metadataFromMap(data map[string]any, sourcePath string) *core.DocumentMetadata {
	meta := &core.DocumentMetadata{
		DocID:      String(data["doc_id"]),
		Title:      strings.TrimSpace(String(data["title"])),
		DocType:    String(data["doc_type"]),
		Audience:   String(data["audience"]),
		Version:    String(data["version"]),
		SourcePath: sourcePath,
		Extra:      map[string]any{},
	}
	if meta.DocID == "" {
		meta.DocID = stem(sourcePath)
	}

	var err error
	if meta.ProductScope, err = StringList(data["product_scope"]); err != nil {
		e.logger.Warn("ignoring product_scope", "path", sourcePath, "err", err)
	}
	if meta.RegionScope, err = StringList(data["region_scope"]); err != nil {
		e.logger.Warn("ignoring region_scope", "path", sourcePath, "err", err)
	}
	if meta.EffectiveDate, err = ParseDate(data["effective_date"]); err != nil {
		e.logger.Warn("ignoring effective_date", "path", sourcePath, "err", err)
	}

	for k, v := range data {
		if !recognizedKeys[k] {
			meta.Extra[k] = NormalizeValue(v)
		}
	}
	return meta
}

// splitFrontMatter returns the front-matter block and the remaining body.
// Text that does not open with a fence line is all body.
func splitFrontMatter(text string) (block, body string, err error) {
	first, rest, _ := strings.Cut(text, "\n")
	if !isFence(first) {
		return "", text, nil
	}

	var lines []string
	for rest != "" {
		var line string
		line, rest, _ = strings.Cut(rest, "\n")
		if isFence(line) {
			return strings.Join(lines, "\n"), rest, nil
		}
		lines = append(lines, line)
	}
	return "", "", ErrUnclosedFrontMatter
}

func isFence(line string) bool {
	return strings.TrimRight(line, " \t") == fence
}

// headingTitle returns the text of the first markdown heading line.
func headingTitle(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			return strings.TrimLeft(line, "# ")
		}
	}
	return ""
}

// stem returns the file name without its final extension.
func stem(p string) string {
	base := path.Base(filepath.ToSlash(p))
	return strings.TrimSuffix(base, path.Ext(base))
}
