package engine

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/wealthos-dev/wealthos-store/pkg/record"
	"github.com/wealthos-dev/wealthos-store/pkg/schema"
)

// ReservedPrefix marks internal collection names (the audit trail, portal
// sessions). The public CRUD verbs reject them; their owning subsystems go
// through the Codec directly.
const ReservedPrefix = "_"

// Auditor receives one event per successful mutation, before the mutation
// returns to the caller. An Auditor error fails the mutation.
type Auditor interface {
	Record(ev schema.AuditEvent) error
}

// Store exposes get/list/create/update/delete over named collections.
// Mutations to the same collection are serialized with one mutex per name;
// mutations to different collections do not block each other. The persistence
// step is the codec's load-mutate-save, so that serialization is load-bearing.
type Store struct {
	codec *Codec
	audit Auditor
	log   *slog.Logger
	now   func() time.Time

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex

	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewStore builds a store over codec. The auditor must not be nil: the audit
// trail is on the critical path of every mutation.
func NewStore(codec *Codec, audit Auditor, log *slog.Logger) *Store {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		codec:   codec,
		audit:   audit,
		log:     log,
		now:     time.Now,
		locks:   make(map[string]*sync.Mutex),
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

func (s *Store) lock(name string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	mu, ok := s.locks[name]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[name] = mu
	}
	return mu
}

// ValidateName reports whether name is addressable through the public verbs.
// Reserved names and anything that could escape the data directory are
// rejected.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty collection name", record.ErrValidation)
	}
	if strings.HasPrefix(name, ReservedPrefix) {
		return fmt.Errorf("%w: collection %q is reserved", record.ErrValidation, name)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return fmt.Errorf("%w: collection name %q contains %q", record.ErrValidation, name, r)
		}
	}
	return nil
}

// NewID returns a fresh record id combining a time component and a random
// component (a ULID), matching the store's collision-resistance contract.
func (s *Store) NewID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}

// List loads the full collection and optionally filters it in memory.
// A collection with no container is an empty list, never an error.
func (s *Store) List(name string, pred record.Predicate) ([]record.Record, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	records := s.codec.Load(name)
	if pred == nil {
		return records, nil
	}
	var out []record.Record
	for _, r := range records {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Get returns the record with the given id, or record.ErrNotFound.
func (s *Store) Get(name, id string) (record.Record, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	for _, r := range s.codec.Load(name) {
		if r.ID() == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", record.ErrNotFound, name, id)
}

// Create stores a new record. A missing id is generated; a caller-supplied id
// must not collide. createdAt/updatedAt are set to now. On success exactly one
// audit event has been appended; on any failure nothing is persisted.
func (s *Store) Create(name string, fields record.Record, actor string) (record.Record, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	mu := s.lock(name)
	mu.Lock()
	defer mu.Unlock()

	prev := s.codec.Load(name)

	stored := fields.Clone()
	if stored == nil {
		stored = record.Record{}
	}
	if id := stored.ID(); id == "" {
		id = s.NewID()
		for containsID(prev, id) {
			id = s.NewID()
		}
		stored[record.FieldID] = id
	} else if containsID(prev, id) {
		return nil, fmt.Errorf("%w: id %q already exists in %s", record.ErrValidation, id, name)
	}

	now := s.timestamp()
	stored[record.FieldCreatedAt] = now
	stored[record.FieldUpdatedAt] = now

	next := append(append([]record.Record{}, prev...), stored)
	if err := s.codec.Save(name, next); err != nil {
		return nil, err
	}
	if err := s.appendAudit(name, stored.ID(), schema.ActionCreate, actor, nil, stored, prev); err != nil {
		return nil, err
	}
	return stored, nil
}

// Update shallow-merges patch onto the stored record: top-level keys in patch
// override, others are retained, id and createdAt are immutable. Returns the
// merged record, or record.ErrNotFound if the id is absent.
func (s *Store) Update(name, id string, patch record.Record, actor string) (record.Record, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	mu := s.lock(name)
	mu.Lock()
	defer mu.Unlock()

	prev := s.codec.Load(name)
	idx := indexOf(prev, id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s/%s", record.ErrNotFound, name, id)
	}

	before := prev[idx]
	merged := before.Merge(patch)
	merged[record.FieldUpdatedAt] = s.timestamp()

	next := append([]record.Record{}, prev...)
	next[idx] = merged
	if err := s.codec.Save(name, next); err != nil {
		return nil, err
	}
	if err := s.appendAudit(name, id, schema.ActionUpdate, actor, before, merged, prev); err != nil {
		return nil, err
	}
	return merged, nil
}

// Delete removes the record with the given id and persists the remainder.
func (s *Store) Delete(name, id, actor string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	mu := s.lock(name)
	mu.Lock()
	defer mu.Unlock()

	prev := s.codec.Load(name)
	idx := indexOf(prev, id)
	if idx < 0 {
		return fmt.Errorf("%w: %s/%s", record.ErrNotFound, name, id)
	}

	before := prev[idx]
	next := append([]record.Record{}, prev[:idx]...)
	next = append(next, prev[idx+1:]...)
	if err := s.codec.Save(name, next); err != nil {
		return err
	}
	return s.appendAudit(name, id, schema.ActionDelete, actor, before, nil, prev)
}

// Collections lists every non-reserved collection with a container on disk.
func (s *Store) Collections() ([]string, error) {
	all, err := s.codec.Collections()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, n := range all {
		if !strings.HasPrefix(n, ReservedPrefix) {
			names = append(names, n)
		}
	}
	return names, nil
}

// appendAudit records the mutation. If the append fails, the collection is
// rolled back to its previous contents so no unaudited state change survives,
// and the failure propagates to the caller.
func (s *Store) appendAudit(name, id, action, actor string, before, after record.Record, prev []record.Record) error {
	ev := schema.AuditEvent{
		ID:               uuid.NewString(),
		TargetCollection: name,
		TargetID:         id,
		Action:           action,
		ActorID:          actor,
		At:               s.now().UTC(),
	}
	if before != nil {
		ev.BeforeJSON = marshalSnapshot(before)
	}
	if after != nil {
		ev.AfterJSON = marshalSnapshot(after)
	}

	if err := s.audit.Record(ev); err != nil {
		if rbErr := s.codec.Save(name, prev); rbErr != nil {
			s.log.Error("rollback after audit failure also failed",
				"collection", name, "id", id, "error", rbErr)
		}
		return fmt.Errorf("%w: audit append for %s/%s: %v", record.ErrWrite, name, id, err)
	}
	return nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

func marshalSnapshot(r record.Record) string {
	b, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	return string(b)
}

func containsID(records []record.Record, id string) bool {
	return indexOf(records, id) >= 0
}

func indexOf(records []record.Record, id string) int {
	for i, r := range records {
		if r.ID() == id {
			return i
		}
	}
	return -1
}
