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

// Table names a structured table.
type Table string

const (
	TablePlans        Table = "plans"
	TableProducts     Table = "products"
	TableErrorCodes   Table = "error_codes"
	TableAPIEndpoints Table = "api_endpoints"
	TablePolicies     Table = "policies"
	TableDocuments    Table = "documents"
	TableChunks       Table = "document_chunks"
)

// StructuredTables lists the independent structured tables in the order
// retrieval results are concatenated.
var StructuredTables = []Table{
	TablePlans,
	TableProducts,
	TableErrorCodes,
	TableAPIEndpoints,
	TablePolicies,
}

// ClearOrder lists every table in the order rows are deleted during a rebuild.
// Children come before their parents.
var ClearOrder = []Table{
	TableChunks,
	TableDocuments,
	TableAPIEndpoints,
	TableErrorCodes,
	TablePlans,
	TableProducts,
	TablePolicies,
}

// IsStructured reports whether t is one of the five structured tables.
func (t Table) IsStructured() bool {
	for _, st := range StructuredTables {
		if t == st {
			return true
		}
	}
	return false
}

// Payload is a structured row. The set of implementations is closed:
// *Plan, *Product, *ErrorCode, *Policy and *APIEndpoint.
type Payload interface {
	// Table returns the table the payload belongs to.
	Table() Table
	// NaturalKey returns the unique key of the row, or "" for tables
	// without a uniqueness constraint.
	NaturalKey() string
	isPayload()
}

func (*Plan) Table() Table        { return TablePlans }
func (*Product) Table() Table     { return TableProducts }
func (*ErrorCode) Table() Table   { return TableErrorCodes }
func (*Policy) Table() Table      { return TablePolicies }
func (*APIEndpoint) Table() Table { return TableAPIEndpoints }

func (p *Plan) NaturalKey() string      { return p.Name }
func (p *Product) NaturalKey() string   { return p.SKU }
func (e *ErrorCode) NaturalKey() string { return e.Code }
func (*Policy) NaturalKey() string      { return "" }
func (*APIEndpoint) NaturalKey() string { return "" }

func (*Plan) isPayload()        {}
func (*Product) isPayload()     {}
func (*ErrorCode) isPayload()   {}
func (*Policy) isPayload()      {}
func (*APIEndpoint) isPayload() {}

// StructuredRecord is the uniform envelope every loader produces.
type StructuredRecord struct {
	Table   Table
	Payload Payload
}

// NewRecord wraps a payload in an envelope addressed to its own table.
func NewRecord(p Payload) StructuredRecord {
	return StructuredRecord{Table: p.Table(), Payload: p}
}
