package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

/*
JSONDocument holds an arbitrary JSON value. The layer storing it never
looks inside; it is kept as the raw JSON text.
*/
type JSONDocument struct {
	raw json.RawMessage
}

var nullJSON = []byte("null")

func NewJSONDocument(v any) (JSONDocument, error) {
	var (
		err error
		b   []byte
	)

	if b, err = json.Marshal(v); err != nil {
		return JSONDocument{}, fmt.Errorf("error marshaling JSON document: %w", err)
	}

	return JSONDocument{raw: b}, nil
}

/*
ParseJSONDocument validates s as JSON and wraps it. An empty string
is a null document.
*/
func ParseJSONDocument(s string) (JSONDocument, error) {
	if s == "" {
		return JSONDocument{}, nil
	}

	if !json.Valid([]byte(s)) {
		return JSONDocument{}, fmt.Errorf("invalid JSON document")
	}

	return JSONDocument{raw: json.RawMessage(s)}, nil
}

func (d JSONDocument) IsNull() bool {
	trimmed := bytes.TrimSpace(d.raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, nullJSON)
}

// String returns the JSON text, or an empty string for a null document.
func (d JSONDocument) String() string {
	if d.IsNull() {
		return ""
	}

	return string(d.raw)
}

func (d JSONDocument) Decode(dest any) error {
	if d.IsNull() {
		return json.Unmarshal(nullJSON, dest)
	}

	return json.Unmarshal(d.raw, dest)
}

func (d JSONDocument) MarshalJSON() ([]byte, error) {
	if d.IsNull() {
		return nullJSON, nil
	}

	return d.raw, nil
}

func (d *JSONDocument) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), nullJSON) {
		d.raw = nil
		return nil
	}

	d.raw = append(json.RawMessage{}, b...)
	return nil
}
