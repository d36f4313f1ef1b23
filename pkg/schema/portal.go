// Package schema defines universal data structures shared across the WealthOS
// platform: the audit event shape and the portal identity/session models.
package schema

import "time"

// Audit actions. Exactly one is recorded per successful store mutation.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// AuditEvent is one immutable log entry describing one mutation to one record.
// Events are append-only and ordered by At, ties broken by insertion order.
type AuditEvent struct {
	ID               string    `json:"id"`
	TargetCollection string    `json:"targetCollection"`
	TargetID         string    `json:"targetId"`
	Action           string    `json:"action"`
	ActorID          string    `json:"actorId"`
	At               time.Time `json:"at"`
	BeforeJSON       string    `json:"beforeJson,omitempty"`
	AfterJSON        string    `json:"afterJson,omitempty"`
}

// Portal user statuses.
const (
	PortalUserActive   = "active"
	PortalUserDisabled = "disabled"
)

// PortalUser is an external-client identity. Users are provisioned by staff,
// toggled active/disabled, and never hard-deleted.
type PortalUser struct {
	ID                 string `json:"id"`
	ClientID           string `json:"clientId"`
	Email              string `json:"email"`
	DisplayName        string `json:"displayName"`
	PinHash            string `json:"pinHash"`
	LanguageDefaultKey string `json:"languageDefaultKey"`
	HouseholdID        string `json:"householdId,omitempty"`
	Status             string `json:"status"`
}

// PortalSession is created at login and destroyed by expiry or explicit
// logout. Only LastSeenAt mutates after creation. The raw token is never
// stored; SessionTokenHash holds its SHA-256.
type PortalSession struct {
	ID               string    `json:"id"`
	PortalUserID     string    `json:"portalUserId"`
	SessionTokenHash string    `json:"sessionTokenHash"`
	CreatedAt        time.Time `json:"createdAt"`
	ExpiresAt        time.Time `json:"expiresAt"`
	LastSeenAt       time.Time `json:"lastSeenAt"`
}
