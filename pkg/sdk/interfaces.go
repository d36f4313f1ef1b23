// Package sdk provides the client-side library for the WealthOS store HTTP
// API, plus the segregated interfaces both the remote client and in-process
// wrappers satisfy.
package sdk

import (
	"github.com/wealthos-dev/wealthos-store/pkg/record"
	"github.com/wealthos-dev/wealthos-store/pkg/schema"
)

// RecordReader defines the read verbs over named collections.
type RecordReader interface {
	// Collections lists every non-reserved collection name.
	Collections() ([]string, error)
	// List returns a collection, optionally filtered by field equality.
	List(name string, filter map[string]string) ([]record.Record, error)
	// Get returns one record by id.
	Get(name, id string) (record.Record, error)
}

// RecordWriter defines the mutating verbs over named collections.
type RecordWriter interface {
	Create(name string, fields record.Record) (record.Record, error)
	Update(name, id string, patch record.Record) (record.Record, error)
	Delete(name, id string) error
}

// AuditReader queries the audit trail by target record id.
type AuditReader interface {
	AuditForRecord(id string) ([]schema.AuditEvent, error)
}

// Admin covers the privileged surface. Calls fail without an admin token.
type Admin interface {
	SeedReset() error
}

// WealthStore is the complete client contract.
type WealthStore interface {
	RecordReader
	RecordWriter
	AuditReader
	Admin
}
