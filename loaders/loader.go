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


// Package loaders converts the structured corpus sources into
// core.StructuredRecord values.
//
// Loaders only read and convert. They never touch storage, so a loader can
// be run ahead of the rebuild transaction and its failure contained to its
// own contribution. A source row missing a required field fails the whole
// loader with an error wrapping core.ErrMalformedSource.
package loaders

import (
	"fmt"
	"log/slog"

	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/corpus"
)

// Reader reads a corpus file by name. *corpus.Source implements it.
type Reader interface {
	ReadFile(name string) ([]byte, error)
}

var _ Reader = (*corpus.Source)(nil)

// ParseFunc converts raw source bytes into records. Diagnostics for
// optional fields that could not be coerced go to logger.
type ParseFunc func(data []byte, logger *slog.Logger) ([]core.StructuredRecord, error)

// Loader reads one structured source.
type Loader struct {
	Name  string
	Path  string
	Parse ParseFunc
}

// Load reads and parses the loader's source. Every record is validated
// before it is returned.
func (l Loader) Load(r Reader, logger *slog.Logger) ([]core.StructuredRecord, error) {
	if logger == nil {
		logger = slog.Default()
	}
	data, err := r.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read %s: %w", l.Name, l.Path, err)
	}

	records, err := l.Parse(data, logger.With("loader", l.Name))
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", l.Name, l.Path, err)
	}

	for i, rec := range records {
		if err := core.ValidateRecord(rec); err != nil {
			return nil, fmt.Errorf("%s: %s: %w: record %d: %w", l.Name, l.Path, core.ErrMalformedSource, i, err)
		}
	}
	return records, nil
}

// Structured returns the table loaders in load order: plan matrix,
// products, error codes, world bible.
func Structured(layout corpus.Layout) []Loader {
	return []Loader{
		{Name: "plan_matrix", Path: layout.PlanMatrix, Parse: ParsePlanMatrix},
		{Name: "products", Path: layout.Products, Parse: ParseProducts},
		{Name: "error_codes", Path: layout.ErrorCodes, Parse: ParseErrorCodes},
		{Name: "world_bible", Path: layout.WorldBible, Parse: ParseWorldBible},
	}
}

// OpenAPI returns the API description loader.
func OpenAPI(layout corpus.Layout) Loader {
	return Loader{Name: "openapi", Path: layout.OpenAPI, Parse: ParseOpenAPI}
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", core.ErrMalformedSource, fmt.Sprintf(format, args...))
}
