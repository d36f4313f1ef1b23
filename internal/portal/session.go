package portal

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wealthos-dev/wealthos-store/internal/engine"
	"github.com/wealthos-dev/wealthos-store/internal/vault"
	"github.com/wealthos-dev/wealthos-store/pkg/record"
	"github.com/wealthos-dev/wealthos-store/pkg/schema"
)

var (
	// ErrUnauthorized is returned for unknown identities, wrong PINs, revoked
	// sessions, and disabled users. Deliberately indistinct.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrSessionExpired is returned when a session's absolute expiry has passed.
	ErrSessionExpired = errors.New("session expired")
)

// SessionsCollection is the reserved container holding portal sessions.
const SessionsCollection = "_sessions"

// UsersCollection is the regular collection where portal users are provisioned.
const UsersCollection = "portalUsers"

// SessionExpiry returns an absolute expiry timestamp the given number of
// hours from now. There is no background eviction; every access path checks
// IsSessionExpired itself.
func SessionExpiry(hoursFromNow int) time.Time {
	return time.Now().UTC().Add(time.Duration(hoursFromNow) * time.Hour)
}

// IsSessionExpired reports whether the session's absolute expiry has passed.
func IsSessionExpired(s schema.PortalSession) bool {
	return !s.ExpiresAt.After(time.Now())
}

// Sessions is the portal identity service: login, per-request authentication,
// and logout. Session records live in the reserved container and only pass
// through here; user records are ordinary store records under portalUsers.
type Sessions struct {
	codec    *engine.Codec
	store    *engine.Store
	secret   []byte
	ttlHours int
	log      *slog.Logger
	mu       sync.Mutex // serializes writes to the session container
}

// NewSessions builds the session service. ttlHours bounds every session's
// absolute lifetime.
func NewSessions(codec *engine.Codec, store *engine.Store, secret []byte, ttlHours int, log *slog.Logger) *Sessions {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Sessions{codec: codec, store: store, secret: secret, ttlHours: ttlHours, log: log}
}

// Login verifies the email/PIN pair against provisioned portal users and, on
// success, persists a new session and returns its signed access token.
func (s *Sessions) Login(email, pin string) (string, schema.PortalUser, error) {
	var zero schema.PortalUser

	users, err := s.store.List(UsersCollection, func(r record.Record) bool {
		return r.String("email") == email
	})
	if err != nil || len(users) == 0 {
		return "", zero, ErrUnauthorized
	}
	user, err := record.Decode[schema.PortalUser](users[0])
	if err != nil {
		return "", zero, ErrUnauthorized
	}
	if user.Status != schema.PortalUserActive {
		return "", zero, ErrUnauthorized
	}
	if !vault.VerifyPin(pin, user.PinHash) {
		return "", zero, ErrUnauthorized
	}

	now := time.Now().UTC()
	session := schema.PortalSession{
		ID:           uuid.NewString(),
		PortalUserID: user.ID,
		CreatedAt:    now,
		ExpiresAt:    SessionExpiry(s.ttlHours),
		LastSeenAt:   now,
	}
	token, err := GenerateToken(session.ID, s.secret, time.Duration(s.ttlHours)*time.Hour)
	if err != nil {
		return "", zero, fmt.Errorf("sign access token: %w", err)
	}
	session.SessionTokenHash = vault.HashToken(token)

	if err := s.putSession(session); err != nil {
		return "", zero, err
	}
	return token, user, nil
}

// Authenticate resolves an access token to its user, enforcing signature,
// stored-session presence, token-hash match, absolute expiry, and user
// status. On success the session's lastSeenAt is refreshed best effort.
func (s *Sessions) Authenticate(token string) (schema.PortalUser, error) {
	var zero schema.PortalUser

	sessionID, err := SessionIDFromToken(token, s.secret)
	if err != nil {
		return zero, err
	}
	session, err := s.findSession(sessionID)
	if err != nil {
		return zero, err
	}
	if subtle.ConstantTimeCompare([]byte(session.SessionTokenHash), []byte(vault.HashToken(token))) != 1 {
		return zero, ErrUnauthorized
	}
	if IsSessionExpired(session) {
		return zero, ErrSessionExpired
	}

	userRec, err := s.store.Get(UsersCollection, session.PortalUserID)
	if err != nil {
		return zero, ErrUnauthorized
	}
	user, err := record.Decode[schema.PortalUser](userRec)
	if err != nil || user.Status != schema.PortalUserActive {
		return zero, ErrUnauthorized
	}

	session.LastSeenAt = time.Now().UTC()
	if err := s.putSession(session); err != nil {
		s.log.Warn("lastSeenAt refresh failed", "session", session.ID, "error", err)
	}
	return user, nil
}

// Logout destroys the session behind the token. Unknown tokens are a no-op:
// logout is idempotent from the client's point of view.
func (s *Sessions) Logout(token string) error {
	sessionID, err := SessionIDFromToken(token, s.secret)
	if err != nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.codec.Load(SessionsCollection)
	kept := records[:0]
	for _, r := range records {
		if r.ID() != sessionID {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(records) {
		return nil
	}
	return s.codec.Save(SessionsCollection, kept)
}

func (s *Sessions) findSession(id string) (schema.PortalSession, error) {
	for _, r := range s.codec.Load(SessionsCollection) {
		if r.ID() == id {
			return record.Decode[schema.PortalSession](r)
		}
	}
	return schema.PortalSession{}, ErrUnauthorized
}

// putSession inserts or replaces one session record in the reserved container.
func (s *Sessions) putSession(session schema.PortalSession) error {
	rec, err := record.Encode(session)
	if err != nil {
		return fmt.Errorf("%w: encode session: %v", record.ErrWrite, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	records := s.codec.Load(SessionsCollection)
	replaced := false
	for i, r := range records {
		if r.ID() == session.ID {
			records[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, rec)
	}
	return s.codec.Save(SessionsCollection, records)
}
