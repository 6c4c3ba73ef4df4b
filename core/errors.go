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


package core

import "errors"

// Error kinds shared across the ingestion and retrieval layers.
// Callers wrap these with context and match them with errors.Is.
var (
	// ErrConfiguration indicates a missing credential or connection setting.
	// It is fatal and never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrMalformedSource indicates a structured source row or object is
	// missing a required field or has an unusable shape.
	ErrMalformedSource = errors.New("malformed source")

	// ErrParse indicates a document's metadata block could not be parsed.
	ErrParse = errors.New("parse error")
)

// Domain validation errors
var (
	// ErrInvalidRecord indicates a structured record failed validation.
	ErrInvalidRecord = errors.New("invalid structured record")

	// ErrMissingField indicates a required field is empty.
	ErrMissingField = errors.New("required field is empty")

	// ErrUnknownTable indicates a record names a table that does not exist.
	ErrUnknownTable = errors.New("unknown table")

	// ErrPayloadMismatch indicates a record's payload does not belong to its table.
	ErrPayloadMismatch = errors.New("payload does not match table")
)
