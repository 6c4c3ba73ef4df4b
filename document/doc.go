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


// Package document turns raw corpus documents into metadata and chunks.
//
// # Metadata
//
// A document may begin with a front-matter block fenced by lines consisting
// of exactly "---". The block is parsed as a YAML map:
//
//	---
//	doc_id: kb-0042
//	doc_type: runbook
//	product_scope: [analytics, billing]
//	effective_date: 2024-01-15
//	---
//	# Restarting the ingest worker
//	...
//
// Recognized keys populate core.DocumentMetadata. Everything else lands in
// Extra and is later copied onto every chunk. A missing doc_id falls back to
// the file name without its extension. A missing title falls back to the
// first markdown heading in the body.
//
// Malformed optional values never fail extraction. ParseDate and StringList
// return the default together with a diagnostic error, which the Extractor
// logs. An opening fence without a closing fence, or a block that is not a
// YAML map, fails with core.ErrParse.
//
// # Chunking
//
// Chunk splits a body on whitespace and emits overlapping windows of at
// most size tokens. Each window after the first starts overlap tokens
// before the previous window's end, and always at least one token after the
// previous window's start, so the walk terminates for any overlap < size.
//
// # PDF
//
// ExtractPDFText pulls the plain text of every page. The result goes
// through the same metadata and chunking path as markdown.
package document
