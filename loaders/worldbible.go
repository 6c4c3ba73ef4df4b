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
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/poiesic/corpora/core"
	"github.com/poiesic/corpora/document"
)

// Fixed values of the informational error codes derived from rate limits.
const (
	rateLimitPrefix   = "RATE_LIMIT_"
	rateLimitMessage  = "Rate limit"
	rateLimitSeverity = "info"
	rateLimitService  = "api_gateway"
)

// ParseWorldBible reads world_bible.json.
//
// Every entry of the "policies" object becomes a Policy named by its key.
// The whole entry is kept as the payload, with version and effective_date
// lifted into their own fields.
//
// Every entry of "api.rate_limits" becomes an informational ErrorCode
// RATE_LIMIT_<PLAN> so rate limits are searchable next to real error codes.
//
// Records follow the key order of the source document.
func ParseWorldBible(data []byte, logger *slog.Logger) ([]core.StructuredRecord, error) {
	var root object
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, malformed("world bible: %v", err)
	}

	var records []core.StructuredRecord

	if raw, ok := root.get("policies"); ok {
		var policies object
		if err := json.Unmarshal(raw, &policies); err != nil {
			return nil, malformed("policies: %v", err)
		}
		for _, m := range policies {
			var body map[string]any
			if err := json.Unmarshal(m.Value, &body); err != nil || body == nil {
				return nil, malformed("policy %q is not an object", m.Key)
			}
			policy := &core.Policy{
				Name:    m.Key,
				Version: document.String(body["version"]),
				Payload: body,
			}
			var derr error
			if policy.EffectiveDate, derr = document.ParseDate(body["effective_date"]); derr != nil {
				logger.Warn("ignoring policy effective_date", "policy", m.Key, "err", derr)
			}
			records = append(records, core.NewRecord(policy))
		}
	}

	if raw, ok := root.get("api"); ok {
		var api object
		if err := json.Unmarshal(raw, &api); err != nil {
			return nil, malformed("api: %v", err)
		}
		if rawLimits, ok := api.get("rate_limits"); ok {
			var limits object
			if err := json.Unmarshal(rawLimits, &limits); err != nil {
				return nil, malformed("api.rate_limits: %v", err)
			}
			for _, m := range limits {
				var limit any
				if err := json.Unmarshal(m.Value, &limit); err != nil {
					return nil, malformed("rate limit %q: %v", m.Key, err)
				}
				records = append(records, core.NewRecord(&core.ErrorCode{
					Code:     rateLimitPrefix + strings.ToUpper(m.Key),
					Message:  rateLimitMessage,
					Cause:    "Quota for " + m.Key,
					Fix:      "Respect " + document.String(limit),
					Severity: rateLimitSeverity,
					Service:  rateLimitService,
				}))
			}
		}
	}

	return records, nil
}
