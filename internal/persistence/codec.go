package persistence

import "github.com/goccy/go-json"

// All engine values are JSON-shaped (trigger payloads, node outputs), so
// the stores serialize with JSON rather than gob. goccy/go-json keeps the
// hot path cheap without changing encoding semantics.

// encodeValue serializes v for storage. nil stays nil.
func encodeValue(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// decodeInto deserializes data into a concrete target. Empty input leaves
// the target untouched.
func decodeInto(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// decodeValue deserializes data produced by encodeValue. Empty input
// decodes to nil.
func decodeValue(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
