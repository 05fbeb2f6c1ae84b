// Package jsonutil handles lenient JSON decoding for API payloads.
package jsonutil

import "encoding/json"

// FlexibleBytes converts a json.RawMessage holding either a JSON string
// (CSV text, or JSON embedded in a string) or an inline JSON value (an
// array of row objects) into raw bytes for parsing. Returns nil for
// null or empty input.
func FlexibleBytes(raw json.RawMessage) ([]byte, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return []byte(s), nil
	}

	return []byte(raw), nil
}
