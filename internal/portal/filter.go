// Package portal enforces the trust boundary between internal staff data and
// what an external client identity may see: the client-safe record filter,
// the internal-field denylist, locale fallback, and the session model gating
// scope resolution.
package portal

import "github.com/wealthos-dev/wealthos-store/pkg/record"

// ClientSafeFilter describes one portal request's visibility constraints.
// It is transient, constructed per request, never persisted.
type ClientSafeFilter struct {
	// SharedToPortal requires sharedToPortal == true or clientSafePublished == true.
	SharedToPortal bool
	// Published requires published == true or statusKey == "published".
	Published bool
	// HouseholdID, when set, must match a record's householdId if the record has one.
	HouseholdID string
	// ClientID, when set, must match a record's clientId if the record has one.
	ClientID string
}

// internalFields is the fixed denylist stripped before any record crosses the
// portal boundary.
var internalFields = []string{
	"internalNotes",
	"staffComments",
	"adminFlags",
	"complianceNotes",
	"riskNotes",
	"auditInternal",
	"costBasis",
	"taxLotId",
	"marginDetails",
}

// EnforceClientSafe returns only the records a portal identity may see under
// the filter. A record passes only if every requested constraint holds.
//
// A record that lacks a scoping field passes that constraint. Tightening this
// permissive default to deny-on-ambiguous-scope is a pending product decision,
// not a code one.
func EnforceClientSafe(records []record.Record, f ClientSafeFilter) []record.Record {
	var out []record.Record
	for _, r := range records {
		if passes(r, f) {
			out = append(out, r)
		}
	}
	return out
}

func passes(r record.Record, f ClientSafeFilter) bool {
	if f.SharedToPortal && !r.Bool("sharedToPortal") && !r.Bool("clientSafePublished") {
		return false
	}
	if f.Published && !r.Bool("published") && r.String("statusKey") != "published" {
		return false
	}
	if f.HouseholdID != "" && r.Has("householdId") && r.String("householdId") != f.HouseholdID {
		return false
	}
	if f.ClientID != "" && r.Has("clientId") && r.String("clientId") != f.ClientID {
		return false
	}
	return true
}

// StripInternalFields returns a copy of the record with every denylisted
// field removed. Every record returned to a portal identity must pass through
// here, independent of which module loaded it.
func StripInternalFields(r record.Record) record.Record {
	out := r.Clone()
	for _, f := range internalFields {
		delete(out, f)
	}
	return out
}

// DefaultLocale is the fallback language for localized content.
const DefaultLocale = "ru"

// LocalizedBody selects the locale-specific text of a localized field, whose
// value is a mapping of locale key to text. Fallback chain: requested locale,
// then the default locale, then the empty string — a missing translation
// yields nothing rather than garbled partial content.
func LocalizedBody(r record.Record, field, locale string) string {
	m, ok := r[field].(map[string]any)
	if !ok {
		return ""
	}
	if s, ok := m[locale].(string); ok && s != "" {
		return s
	}
	if s, ok := m[DefaultLocale].(string); ok && s != "" {
		return s
	}
	return ""
}
