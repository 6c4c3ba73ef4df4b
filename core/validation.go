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

import (
	"fmt"
)

// ValidateRecord validates a StructuredRecord according to domain rules.
//
// Validation rules:
//   - Table must be one of the five structured tables
//   - Payload must be non-nil and belong to Table
//   - The payload's required fields must be present
//
// NOT validated:
//   - ID (assigned by storage)
//   - Optional fields (unset is valid)
func ValidateRecord(rec StructuredRecord) error {
	if !rec.Table.IsStructured() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidRecord, ErrUnknownTable, rec.Table)
	}
	if rec.Payload == nil {
		return fmt.Errorf("%w: payload is nil", ErrInvalidRecord)
	}
	if rec.Payload.Table() != rec.Table {
		return fmt.Errorf("%w: %w: %s payload in %s", ErrInvalidRecord, ErrPayloadMismatch, rec.Payload.Table(), rec.Table)
	}
	if err := ValidatePayload(rec.Payload); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	return nil
}

// ValidatePayload checks the required fields of a structured row.
func ValidatePayload(p Payload) error {
	switch v := p.(type) {
	case *Plan:
		return requireFields("plan", "name", v.Name)
	case *Product:
		return requireFields("product", "sku", v.SKU, "name", v.Name)
	case *ErrorCode:
		return requireFields("error code", "code", v.Code)
	case *Policy:
		return requireFields("policy", "name", v.Name)
	case *APIEndpoint:
		return requireFields("api endpoint", "path", v.Path, "method", v.Method)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownTable, p)
	}
}

// requireFields takes alternating field names and values.
func requireFields(kind string, pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return fmt.Errorf("%s %w: %s", kind, ErrMissingField, pairs[i])
		}
	}
	return nil
}
