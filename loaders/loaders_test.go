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
	"io/fs"
	"log/slog"
	"testing"
	"testing/fstest"
	"time"

	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/corpus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const planMatrixCSV = `plan,monthly_price,annual_price,users_limit,api_calls_limit,dashboards_limit,entitlements
starter,19,190,3,10000,5,dashboards;exports
gold,99.5,990,,1000000,50,dashboards;exports;sso
`

const productsCSV = `sku,name,category,short_desc,compatibility,status
AN-100,Analytics Core,analytics,Dashboards and reports,web;ios,active
BI-200,Billing Hub,billing,,,beta
`

const errorCodesJSON = `[
  {"code": "E1001", "message": "Token expired", "cause": "Stale session", "fix": "Sign in again", "severity": "warn", "service": "auth"},
  {"code": 4040, "message": "Not found", "owner": "platform"}
]`

const worldBibleJSON = `{
  "policies": {
    "refunds": {"version": "2.1", "effective_date": "2024-03-01", "window_days": 30},
    "privacy": {"version": 3, "effective_date": "not a date"}
  },
  "api": {
    "rate_limits": {"starter": "100/min", "gold": 1000}
  }
}`

const openAPIYAML = `openapi: 3.0.0
paths:
  /v1/reports:
    parameters:
      - name: shared
    get:
      summary: List reports
      description: Returns every report visible to the caller.
      parameters:
        - name: limit
          in: query
      responses:
        200:
          description: ok
    post:
      summary: Create report
  /v1/exports/{id}:
    delete:
      summary: Delete export
`

func payloads(records []core.StructuredRecord) []core.Payload {
	out := make([]core.Payload, len(records))
	for i, r := range records {
		out[i] = r.Payload
	}
	return out
}

func TestParsePlanMatrix(t *testing.T) {
	records, err := ParsePlanMatrix([]byte(planMatrixCSV), slog.Default())
	require.NoError(t, err)
	require.Len(t, records, 2)

	gold := records[1].Payload.(*core.Plan)
	assert.Equal(t, core.TablePlans, records[1].Table)
	assert.Equal(t, "gold", gold.Name)
	require.NotNil(t, gold.MonthlyPrice)
	assert.Equal(t, 99.5, *gold.MonthlyPrice)
	assert.Nil(t, gold.UsersLimit)
	require.NotNil(t, gold.APICallsLimit)
	assert.Equal(t, 1000000, *gold.APICallsLimit)
	assert.Equal(t, []string{"dashboards", "exports", "sso"}, gold.Entitlements)
}

func TestParsePlanMatrix_Malformed(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"missing plan column", "name,monthly_price\ngold,10\n"},
		{"empty plan cell", "plan,monthly_price\n,10\n"},
		{"bad number", "plan,monthly_price\ngold,ten\n"},
		{"bad integer", "plan,users_limit\ngold,1.5\n"},
		{"empty file", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePlanMatrix([]byte(tt.csv), slog.Default())
			assert.ErrorIs(t, err, core.ErrMalformedSource)
		})
	}
}

func TestParseProducts(t *testing.T) {
	records, err := ParseProducts([]byte(productsCSV), slog.Default())
	require.NoError(t, err)
	require.Len(t, records, 2)

	an := records[0].Payload.(*core.Product)
	assert.Equal(t, "AN-100", an.SKU)
	assert.Equal(t, []string{"web", "ios"}, an.Compatibility)

	bi := records[1].Payload.(*core.Product)
	assert.Nil(t, bi.Compatibility)
	assert.Empty(t, bi.ShortDesc)
	assert.Equal(t, "beta", bi.Status)

	_, err = ParseProducts([]byte("sku,name\n,Nameless\n"), slog.Default())
	assert.ErrorIs(t, err, core.ErrMalformedSource)

	_, err = ParseProducts([]byte("sku\nX-1\n"), slog.Default())
	assert.ErrorIs(t, err, core.ErrMalformedSource)
}

func TestParseErrorCodes(t *testing.T) {
	records, err := ParseErrorCodes([]byte(errorCodesJSON), slog.Default())
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0].Payload.(*core.ErrorCode)
	assert.Equal(t, &core.ErrorCode{
		Code: "E1001", Message: "Token expired", Cause: "Stale session",
		Fix: "Sign in again", Severity: "warn", Service: "auth",
	}, first)

	second := records[1].Payload.(*core.ErrorCode)
	assert.Equal(t, "4040", second.Code)
	assert.Empty(t, second.Fix)
}

func TestParseErrorCodes_Malformed(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"not an array", `{"code": "E1"}`},
		{"missing code", `[{"message": "orphan"}]`},
		{"null element", `[null]`},
		{"scalar element", `["E1"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseErrorCodes([]byte(tt.json), slog.Default())
			assert.ErrorIs(t, err, core.ErrMalformedSource)
		})
	}
}

func TestParseWorldBible(t *testing.T) {
	records, err := ParseWorldBible([]byte(worldBibleJSON), slog.Default())
	require.NoError(t, err)
	require.Len(t, records, 4)

	// Source key order is preserved.
	refunds := records[0].Payload.(*core.Policy)
	assert.Equal(t, "refunds", refunds.Name)
	assert.Equal(t, "2.1", refunds.Version)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), refunds.EffectiveDate)
	assert.Equal(t, float64(30), refunds.Payload["window_days"])

	privacy := records[1].Payload.(*core.Policy)
	assert.Equal(t, "privacy", privacy.Name)
	assert.Equal(t, "3", privacy.Version)
	assert.True(t, privacy.EffectiveDate.IsZero())

	starter := records[2].Payload.(*core.ErrorCode)
	assert.Equal(t, core.TableErrorCodes, records[2].Table)
	assert.Equal(t, &core.ErrorCode{
		Code:     "RATE_LIMIT_STARTER",
		Message:  "Rate limit",
		Cause:    "Quota for starter",
		Fix:      "Respect 100/min",
		Severity: "info",
		Service:  "api_gateway",
	}, starter)

	gold := records[3].Payload.(*core.ErrorCode)
	assert.Equal(t, "RATE_LIMIT_GOLD", gold.Code)
	assert.Equal(t, "Respect 1000", gold.Fix)
}

func TestParseWorldBible_Malformed(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"not an object", `[]`},
		{"policies not an object", `{"policies": ["a"]}`},
		{"policy not an object", `{"policies": {"refunds": "yes"}}`},
		{"rate limits not an object", `{"api": {"rate_limits": 5}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWorldBible([]byte(tt.json), slog.Default())
			assert.ErrorIs(t, err, core.ErrMalformedSource)
		})
	}
}

func TestParseWorldBible_Empty(t *testing.T) {
	records, err := ParseWorldBible([]byte(`{}`), slog.Default())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseOpenAPI(t *testing.T) {
	records, err := ParseOpenAPI([]byte(openAPIYAML), slog.Default())
	require.NoError(t, err)
	require.Len(t, records, 3)

	list := records[0].Payload.(*core.APIEndpoint)
	assert.Equal(t, "/v1/reports", list.Path)
	assert.Equal(t, "GET", list.Method)
	assert.Equal(t, "List reports", list.Summary)
	assert.Equal(t, "Returns every report visible to the caller.", list.Description)
	assert.Equal(t, []any{map[string]any{"name": "limit", "in": "query"}}, list.Extra["parameters"])
	assert.Equal(t, map[string]any{"200": map[string]any{"description": "ok"}}, list.Extra["responses"])

	create := records[1].Payload.(*core.APIEndpoint)
	assert.Equal(t, "POST", create.Method)
	assert.Nil(t, create.Extra["parameters"])

	del := records[2].Payload.(*core.APIEndpoint)
	assert.Equal(t, "DELETE", del.Method)
	assert.Equal(t, "/v1/exports/{id}", del.Path)
}

func TestParseOpenAPI_NoPaths(t *testing.T) {
	records, err := ParseOpenAPI([]byte("openapi: 3.0.0\n"), slog.Default())
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = ParseOpenAPI([]byte("- a\n- b\n"), slog.Default())
	assert.ErrorIs(t, err, core.ErrMalformedSource)

	_, err = ParseOpenAPI([]byte("paths:\n  /x: 5\n"), slog.Default())
	assert.ErrorIs(t, err, core.ErrMalformedSource)
}

func TestLoader_Load(t *testing.T) {
	fsys := fstest.MapFS{
		"structured/plan_matrix.csv":  {Data: []byte(planMatrixCSV)},
		"structured/products.csv":     {Data: []byte(productsCSV)},
		"structured/error_codes.json": {Data: []byte(errorCodesJSON)},
		"world_bible.json":            {Data: []byte(worldBibleJSON)},
		"api/openapi.yaml":            {Data: []byte(openAPIYAML)},
	}
	src, err := corpus.NewSource(fsys)
	require.NoError(t, err)

	var total int
	for _, l := range Structured(src.Layout()) {
		records, err := l.Load(src, nil)
		require.NoError(t, err, l.Name)
		total += len(records)
	}
	assert.Equal(t, 2+2+2+4, total)

	endpoints, err := OpenAPI(src.Layout()).Load(src, nil)
	require.NoError(t, err)
	assert.Len(t, payloads(endpoints), 3)
}

func TestLoader_LoadMissingFile(t *testing.T) {
	src, err := corpus.NewSource(fstest.MapFS{})
	require.NoError(t, err)

	_, err = Structured(src.Layout())[0].Load(src, nil)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.NotErrorIs(t, err, core.ErrMalformedSource)
}

func TestLoader_LoadValidatesRecords(t *testing.T) {
	src, err := corpus.NewSource(fstest.MapFS{"x": {Data: []byte("x")}})
	require.NoError(t, err)

	l := Loader{
		Name: "bad",
		Path: "x",
		Parse: func([]byte, *slog.Logger) ([]core.StructuredRecord, error) {
			return []core.StructuredRecord{{Table: core.TablePlans, Payload: &core.Product{SKU: "a", Name: "b"}}}, nil
		},
	}
	_, err = l.Load(src, nil)
	assert.ErrorIs(t, err, core.ErrMalformedSource)
	assert.ErrorIs(t, err, core.ErrPayloadMismatch)
}
