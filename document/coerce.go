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
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// dateLayouts are tried in order by ParseDate. Only the calendar date is kept.
var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	time.DateTime,
}

// ParseDate coerces a date-like value into a UTC calendar date.
// Strings are parsed as ISO-8601 dates or date-times; YAML timestamps are
// accepted as-is. A nil value yields the zero time and no diagnostic.
// Anything unparsable yields the zero time and a diagnostic error.
func ParseDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return dateOf(d), nil
	case string:
		if d == "" {
			return time.Time{}, nil
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, d); err == nil {
				return dateOf(t), nil
			}
		}
		return time.Time{}, fmt.Errorf("unparsable date %q", d)
	default:
		return time.Time{}, fmt.Errorf("unsupported date value of type %T", v)
	}
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a date as YYYY-MM-DD, or nil when unset.
func FormatDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(time.DateOnly)
}

// StringList coerces a scalar or a list into a list of strings.
// A scalar becomes a one-element list. A nil value yields nil.
// Maps cannot be coerced and yield nil plus a diagnostic.
func StringList(v any) ([]string, error) {
	switch l := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return append([]string(nil), l...), nil
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			out = append(out, String(item))
		}
		return out, nil
	case map[string]any, map[any]any:
		return nil, fmt.Errorf("expected a list or scalar, got a map")
	default:
		return []string{String(v)}, nil
	}
}

// String renders a scalar as text. Lists and maps are rendered as JSON.
// A nil value renders as "".
func String(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case uint64:
		return strconv.FormatUint(s, 10)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case json.Number:
		return s.String()
	case time.Time:
		if s.Equal(dateOf(s)) {
			return s.Format(time.DateOnly)
		}
		return s.Format(time.RFC3339)
	case []any, map[string]any, map[any]any:
		b, err := json.Marshal(NormalizeValue(s))
		if err != nil {
			return fmt.Sprint(s)
		}
		return string(b)
	default:
		return fmt.Sprint(v)
	}
}

// NormalizeValue converts decoded YAML into JSON-compatible values.
// Maps with non-string keys become map[string]any with stringified keys.
func NormalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = NormalizeValue(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[String(k)] = NormalizeValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = NormalizeValue(val)
		}
		return out
	default:
		return v
	}
}
