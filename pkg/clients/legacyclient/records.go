package legacyclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Record is a legacy resource flattened to attribute -> value. Both the Nova field-list
// shape and plain JSON objects normalize to it.
type Record struct {
	ID     string
	Fields map[string]any
}

type novaField struct {
	Attribute   string `json:"attribute"`
	Value       any    `json:"value"`
	BelongsToID any    `json:"belongsToId"`
}

type novaResource struct {
	ID     json.RawMessage `json:"id"`
	Fields []novaField     `json:"fields"`
}

// NormalizeRecord parses one raw resource from a list response
func NormalizeRecord(raw json.RawMessage) (Record, error) {
	var envelope map[string]json.RawMessage
	if err := decodeJSON(raw, &envelope); err != nil {
		return Record{}, fmt.Errorf("record is not a JSON object: %w", err)
	}

	if _, ok := envelope["fields"]; ok {
		return normalizeNova(raw)
	}

	fields := make(map[string]any, len(envelope))
	for key, value := range envelope {
		var v any
		if err := decodeJSON(value, &v); err != nil {
			return Record{}, fmt.Errorf("failed to decode attribute %q: %w", key, err)
		}
		fields[key] = v
	}

	id := stringify(fields["id"])
	if id == "" {
		return Record{}, errors.New("record has no id")
	}
	return Record{ID: id, Fields: fields}, nil
}

func normalizeNova(raw json.RawMessage) (Record, error) {
	var res novaResource
	if err := decodeJSON(raw, &res); err != nil {
		return Record{}, fmt.Errorf("failed to decode resource: %w", err)
	}

	fields := make(map[string]any, len(res.Fields))
	for _, f := range res.Fields {
		if f.Attribute == "" {
			continue
		}
		// Relationship fields carry the related record's id separately from its display value
		if f.BelongsToID != nil {
			fields[f.Attribute] = f.BelongsToID
			fields[f.Attribute+"_label"] = f.Value
			continue
		}
		fields[f.Attribute] = f.Value
	}

	id := novaID(res.ID)
	if id == "" {
		id = stringify(fields["id"])
	}
	if id == "" {
		return Record{}, errors.New("record has no id")
	}
	fields["id"] = id
	return Record{ID: id, Fields: fields}, nil
}

// novaID reads either {"value": 12} or a bare scalar
func novaID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var wrapped struct {
		Value any `json:"value"`
	}
	if err := decodeJSON(raw, &wrapped); err == nil && wrapped.Value != nil {
		return stringify(wrapped.Value)
	}
	var scalar any
	if err := decodeJSON(raw, &scalar); err == nil {
		return stringify(scalar)
	}
	return ""
}

// String returns the first non-empty value among keys
func (r Record) String(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(stringify(r.Fields[key])); v != "" {
			return v
		}
	}
	return ""
}

// Int returns the first value among keys that parses as an integer
func (r Record) Int(keys ...string) int {
	for _, key := range keys {
		s := r.String(key)
		if s == "" {
			continue
		}
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f)
		}
	}
	return 0
}

func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case map[string]any:
		// Nested {"value": ...} wrappers appear on some Nova fields
		if inner, ok := val["value"]; ok {
			return stringify(inner)
		}
		return ""
	default:
		return fmt.Sprint(val)
	}
}
