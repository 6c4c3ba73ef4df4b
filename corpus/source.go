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


// Package corpus enumerates and reads the files of a knowledge corpus.
//
// A corpus is any fs.FS laid out as follows (all paths configurable through
// Layout):
//
//	structured/plan_matrix.csv
//	structured/products.csv
//	structured/error_codes.json
//	world_bible.json
//	api/openapi.yaml
//	kb/*.md  policies/*.md  runbooks/*.md  macros/*.md
//	**/*.pdf
//
// All names are slash-separated and relative to the corpus root.
package corpus

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"
)

// Layout names the logical locations inside a corpus.
type Layout struct {
	PlanMatrix string
	Products   string
	ErrorCodes string
	WorldBible string
	OpenAPI    string
	TextDirs   []string
	TextExt    string
	PDFExt     string
}

// DefaultLayout returns the standard corpus layout.
func DefaultLayout() Layout {
	return Layout{
		PlanMatrix: "structured/plan_matrix.csv",
		Products:   "structured/products.csv",
		ErrorCodes: "structured/error_codes.json",
		WorldBible: "world_bible.json",
		OpenAPI:    "api/openapi.yaml",
		TextDirs:   []string{"kb", "policies", "runbooks", "macros"},
		TextExt:    ".md",
		PDFExt:     ".pdf",
	}
}

// Source reads a corpus from an fs.FS.
type Source struct {
	fsys   fs.FS
	layout Layout
}

// Option configures a Source.
type Option func(*Source) error

// WithLayout replaces the default layout.
func WithLayout(layout Layout) Option {
	return func(s *Source) error {
		s.layout = layout
		return nil
	}
}

// WithTextDirs overrides the directories scanned for text documents.
func WithTextDirs(dirs ...string) Option {
	return func(s *Source) error {
		for _, d := range dirs {
			if !fs.ValidPath(d) {
				return fmt.Errorf("invalid text directory %q", d)
			}
		}
		s.layout.TextDirs = dirs
		return nil
	}
}

// NewSource creates a Source over fsys.
func NewSource(fsys fs.FS, opts ...Option) (*Source, error) {
	if fsys == nil {
		return nil, ErrNoFS
	}
	s := &Source{fsys: fsys, layout: DefaultLayout()}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Open creates a Source rooted at a directory on disk.
func Open(root string, opts ...Option) (*Source, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}
	return NewSource(os.DirFS(root), opts...)
}

// Layout returns the layout in use.
func (s *Source) Layout() Layout {
	return s.layout
}

// ReadFile reads a corpus file by its slash-separated name.
func (s *Source) ReadFile(name string) ([]byte, error) {
	return fs.ReadFile(s.fsys, name)
}

// TextDocuments lists text documents directory by directory in layout
// order, sorted by name within each directory. Missing directories are
// skipped. Subdirectories are not descended into.
func (s *Source) TextDocuments() ([]string, error) {
	var out []string
	for _, dir := range s.layout.TextDirs {
		entries, err := fs.ReadDir(s.fsys, dir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !hasExt(entry.Name(), s.layout.TextExt) {
				continue
			}
			out = append(out, path.Join(dir, entry.Name()))
		}
	}
	return out, nil
}

// PDFDocuments lists every PDF anywhere in the corpus, sorted by name.
func (s *Source) PDFDocuments() ([]string, error) {
	var out []string
	err := fs.WalkDir(s.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && hasExt(p, s.layout.PDFExt) {
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk corpus: %w", err)
	}
	slices.Sort(out)
	return out, nil
}

// IsPDF reports whether name is a PDF document under this layout.
func (s *Source) IsPDF(name string) bool {
	return hasExt(name, s.layout.PDFExt)
}

func hasExt(name, ext string) bool {
	return ext != "" && strings.EqualFold(path.Ext(name), ext)
}
