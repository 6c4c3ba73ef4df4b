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
	"bytes"
	"encoding/json"
	"log/slog"

	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/document"
)

// ParsePlanMatrix reads plan_matrix.csv. Columns: plan (required),
// monthly_price, annual_price, users_limit, api_calls_limit,
// dashboards_limit, entitlements (';'-separated).
func ParsePlanMatrix(data []byte, _ *slog.Logger) ([]core.StructuredRecord, error) {
	t, err := readCSV(data, "plan")
	if err != nil {
		return nil, err
	}

	records := make([]core.StructuredRecord, 0, len(t.rows))
	for i, row := range t.rows {
		plan := &core.Plan{
			Name:         t.cell(row, "plan"),
			Entitlements: splitList(t.cell(row, "entitlements")),
		}
		if plan.Name == "" {
			return nil, malformed("line %d: plan is empty", line(i))
		}
		if plan.MonthlyPrice, err = floatCell(t, row, "monthly_price", i); err != nil {
			return nil, err
		}
		if plan.AnnualPrice, err = floatCell(t, row, "annual_price", i); err != nil {
			return nil, err
		}
		if plan.UsersLimit, err = intCell(t, row, "users_limit", i); err != nil {
			return nil, err
		}
		if plan.APICallsLimit, err = intCell(t, row, "api_calls_limit", i); err != nil {
			return nil, err
		}
		if plan.DashboardsLimit, err = intCell(t, row, "dashboards_limit", i); err != nil {
			return nil, err
		}
		records = append(records, core.NewRecord(plan))
	}
	return records, nil
}

// ParseProducts reads products.csv. Columns: sku and name (required),
// category, short_desc, compatibility (';'-separated), status.
func ParseProducts(data []byte, _ *slog.Logger) ([]core.StructuredRecord, error) {
	t, err := readCSV(data, "sku", "name")
	if err != nil {
		return nil, err
	}

	records := make([]core.StructuredRecord, 0, len(t.rows))
	for i, row := range t.rows {
		product := &core.Product{
			SKU:           t.cell(row, "sku"),
			Name:          t.cell(row, "name"),
			Category:      t.cell(row, "category"),
			ShortDesc:     t.cell(row, "short_desc"),
			Compatibility: splitList(t.cell(row, "compatibility")),
			Status:        t.cell(row, "status"),
		}
		if product.SKU == "" {
			return nil, malformed("line %d: sku is empty", line(i))
		}
		if product.Name == "" {
			return nil, malformed("line %d: name is empty", line(i))
		}
		records = append(records, core.NewRecord(product))
	}
	return records, nil
}

// ParseErrorCodes reads error_codes.json, an array of objects with the
// fields code (required), message, cause, fix, severity and service.
// Unknown fields are ignored.
func ParseErrorCodes(data []byte, logger *slog.Logger) ([]core.StructuredRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var rows []map[string]any
	if err := dec.Decode(&rows); err != nil {
		return nil, malformed("expected an array of objects: %v", err)
	}

	records := make([]core.StructuredRecord, 0, len(rows))
	for i, row := range rows {
		if row == nil {
			return nil, malformed("element %d is null", i)
		}
		ec := &core.ErrorCode{
			Code:     document.String(row["code"]),
			Message:  document.String(row["message"]),
			Cause:    document.String(row["cause"]),
			Fix:      document.String(row["fix"]),
			Severity: document.String(row["severity"]),
			Service:  document.String(row["service"]),
		}
		if ec.Code == "" {
			return nil, malformed("element %d: code is empty", i)
		}
		for k := range row {
			if !errorCodeFields[k] {
				logger.Debug("ignoring unknown error code field", "code", ec.Code, "field", k)
			}
		}
		records = append(records, core.NewRecord(ec))
	}
	return records, nil
}

var errorCodeFields = map[string]bool{
	"code": true, "message": true, "cause": true,
	"fix": true, "severity": true, "service": true,
}
