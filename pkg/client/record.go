package client

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is one instrument reference entry. The server decides the field set
// and it may differ slightly between pages, so fields are kept as an open
// key/value mapping. Key order as sent by the server is preserved because the
// CSV sink derives its header from the first-seen order of fields.
type Record struct {
	fields map[string]any
	keys   []string
}

// NewRecord creates an empty record.
func NewRecord() Record {
	return Record{fields: make(map[string]any)}
}

// Set stores a field value, preserving first-insertion order of keys.
func (r *Record) Set(key string, value any) {
	if r.fields == nil {
		r.fields = make(map[string]any)
	}
	if _, ok := r.fields[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.fields[key] = value
}

// Get returns a field value and whether it is present.
func (r Record) Get(key string) (any, bool) {
	v, ok := r.fields[key]
	return v, ok
}

// Keys returns the field names in first-seen order.
func (r Record) Keys() []string {
	return r.keys
}

// Len returns the number of fields.
func (r Record) Len() int {
	return len(r.fields)
}

// UnmarshalJSON decodes a JSON object into the record. Numbers are kept as
// json.Number so large integers survive the round trip to CSV unmangled.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("record must be a JSON object, got %v", tok)
	}

	r.fields = make(map[string]any)
	r.keys = nil

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode record key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("record key must be a string, got %v", keyTok)
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("decode record field %q: %w", key, err)
		}

		if _, dup := r.fields[key]; !dup {
			r.keys = append(r.keys, key)
		}
		r.fields[key] = value
	}

	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}
