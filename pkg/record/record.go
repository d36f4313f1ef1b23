// Package record defines the schema-free Record type shared by every layer of
// the WealthOS store, along with the sentinel errors of the storage contract.
package record

import "errors"

var (
	// ErrNotFound is returned when a requested record id does not exist in its collection.
	ErrNotFound = errors.New("record not found")
	// ErrWrite is returned when the persistence layer rejected a write.
	ErrWrite = errors.New("write failed")
	// ErrValidation is returned for malformed payloads or reserved collection names.
	ErrValidation = errors.New("validation failed")
)

// FieldID is the one field every record must carry.
const FieldID = "id"

// FieldCreatedAt and FieldUpdatedAt are maintained by the store on every write.
const (
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// Record is one schema-free entity instance: an open mapping of field name to
// JSON-representable value. The store guarantees a unique string "id" per
// collection; every other field is by convention between the modules that
// read and write the collection.
type Record map[string]any

// ID returns the record's id field, or "" if it is absent or not a string.
func (r Record) ID() string {
	id, _ := r[FieldID].(string)
	return id
}

// String returns the named field as a string, or "" if absent or another type.
func (r Record) String(field string) string {
	s, _ := r[field].(string)
	return s
}

// Bool returns the named field as a bool, or false if absent or another type.
func (r Record) Bool(field string) bool {
	b, _ := r[field].(bool)
	return b
}

// Has reports whether the field is present, regardless of its value.
func (r Record) Has(field string) bool {
	_, ok := r[field]
	return ok
}

// Clone returns a shallow copy. Field values are shared; callers that mutate
// nested structures must copy those themselves.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Merge returns a new record with every top-level key of patch laid over r.
// Untouched keys of r survive. The id and createdAt fields of r are kept even
// if the patch names them, so a merge can never re-identify a record.
func (r Record) Merge(patch Record) Record {
	out := r.Clone()
	if out == nil {
		out = Record{}
	}
	for k, v := range patch {
		if k == FieldID || k == FieldCreatedAt {
			continue
		}
		out[k] = v
	}
	return out
}

// Predicate filters records during a list. A nil Predicate matches everything.
type Predicate func(Record) bool
