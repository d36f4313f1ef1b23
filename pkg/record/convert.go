package record

import "encoding/json"

// Decode converts a schema-free record into a typed structure by
// re-marshaling through JSON. Slow but safe: field names drive the mapping,
// exactly as they would over the wire.
func Decode[T any](r Record) (T, error) {
	var target T
	b, err := json.Marshal(r)
	if err != nil {
		return target, err
	}
	err = json.Unmarshal(b, &target)
	return target, err
}

// Encode converts a typed structure into a schema-free record.
func Encode(v any) (Record, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var r Record
	err = json.Unmarshal(b, &r)
	return r, err
}
