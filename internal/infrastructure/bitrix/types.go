package bitrix

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// batchEnvelope is the top-level shape of a /batch response.
type batchEnvelope struct {
	Result batchResult `json:"result"`
}

// batchResult carries per-command results and per-command errors. The
// store serializes empty maps as JSON arrays, so both fields decode
// through tolerant wrappers.
type batchResult struct {
	Result      resultMap `json:"result"`
	ResultError faultMap  `json:"result_error"`
}

// resultMap decodes {name: value} objects and tolerates the [] the
// store emits when there are no entries.
type resultMap map[string]json.RawMessage

func (m *resultMap) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] == '[' || bytes.Equal(trimmed, []byte("null")) {
		*m = nil
		return nil
	}
	return json.Unmarshal(trimmed, (*map[string]json.RawMessage)(m))
}

// faultMap decodes {name: fault} objects with the same array tolerance.
type faultMap map[string]CommandFault

func (m *faultMap) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] == '[' || bytes.Equal(trimmed, []byte("null")) {
		*m = nil
		return nil
	}
	return json.Unmarshal(trimmed, (*map[string]CommandFault)(m))
}

// entityFields is a decoded remote entity with dynamic field names.
// Custom field keys are portal-specific, so entities are accessed by
// configured key rather than struct tags.
type entityFields map[string]json.RawMessage

func decodeEntity(raw json.RawMessage) (entityFields, bool) {
	var fields entityFields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, false
	}
	return fields, true
}

// str extracts a field as a string. Multi-option custom fields arrive
// wrapped as {"value": ...}; the wrapper is unwrapped here so callers
// always see the scalar, which is what the drift comparisons assume.
func (f entityFields) str(key string) string {
	raw, ok := f[key]
	if !ok {
		return ""
	}
	return scalarString(raw)
}

func scalarString(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return ""
		}
		return s
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return ""
		}
		if value, ok := wrapper["value"]; ok {
			return scalarString(value)
		}
		// Fall back to the first entry, mirroring how the portal
		// serializes single-entry option wrappers.
		for _, value := range wrapper {
			return scalarString(value)
		}
		return ""
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil || len(items) == 0 {
			return ""
		}
		return scalarString(items[0])
	default:
		return string(trimmed)
	}
}

// id extracts a field as an int64 identifier, accepting both numeric
// and string encodings.
func (f entityFields) id(key string) int64 {
	s := strings.TrimSpace(f.str(key))
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// dec extracts a field as a decimal amount, defaulting to zero.
func (f entityFields) dec(key string) decimal.Decimal {
	s := strings.TrimSpace(f.str(key))
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// intval extracts a field as a plain int, defaulting to zero.
func (f entityFields) intval(key string) int {
	return int(f.id(key))
}

// idList extracts a multi-value field as identifiers. The store may
// serialize the field as an array, a lone scalar, a {"value": [...]}
// wrapper, or omit it entirely.
func (f entityFields) idList(key string) []int64 {
	raw, ok := f[key]
	if !ok {
		return nil
	}
	return scalarIDs(raw)
}

func scalarIDs(raw json.RawMessage) []int64 {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil
		}
		var ids []int64
		for _, item := range items {
			if id := parseID(scalarString(item)); id != 0 {
				ids = append(ids, id)
			}
		}
		return ids
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil
		}
		if value, ok := wrapper["value"]; ok {
			return scalarIDs(value)
		}
		return nil
	default:
		if id := parseID(scalarString(trimmed)); id != 0 {
			return []int64{id}
		}
		return nil
	}
}

func parseID(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// scalarID decodes a bare command result (e.g. from an add call) as an
// identifier.
func scalarID(raw json.RawMessage) int64 {
	return parseID(scalarString(raw))
}
