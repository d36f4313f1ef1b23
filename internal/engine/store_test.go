package engine

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/wealthos-dev/wealthos-store/pkg/record"
	"github.com/wealthos-dev/wealthos-store/pkg/schema"
)

// stubAuditor collects events in memory and can be told to fail.
type stubAuditor struct {
	mu     sync.Mutex
	events []schema.AuditEvent
	fail   error
}

func (a *stubAuditor) Record(ev schema.AuditEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail != nil {
		return a.fail
	}
	a.events = append(a.events, ev)
	return nil
}

func (a *stubAuditor) forTarget(id string) []schema.AuditEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []schema.AuditEvent
	for _, ev := range a.events {
		if ev.TargetID == id {
			out = append(out, ev)
		}
	}
	return out
}

func newTestStore(t *testing.T) (*Store, *stubAuditor) {
	t.Helper()
	codec, err := NewCodec(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}
	auditor := &stubAuditor{}
	return NewStore(codec, auditor, nil), auditor
}

func TestStore_CreateGetRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)

	created, err := s.Create("deals", record.Record{"title": "Bridge loan"}, "tester")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID() == "" {
		t.Fatal("Create did not assign an id")
	}
	if created.String(record.FieldCreatedAt) == "" || created.String(record.FieldUpdatedAt) == "" {
		t.Fatal("Create did not set timestamps")
	}

	got, err := s.Get("deals", created.ID())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got["title"] != "Bridge loan" {
		t.Errorf("Expected title to round-trip, got %v", got["title"])
	}
	if got.String(record.FieldCreatedAt) != created.String(record.FieldCreatedAt) {
		t.Errorf("createdAt changed between create and get")
	}
}

func TestStore_CreateKeepsSuppliedID(t *testing.T) {
	s, _ := newTestStore(t)

	created, err := s.Create("deals", record.Record{"id": "dl-1"}, "tester")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID() != "dl-1" {
		t.Errorf("Expected supplied id to survive, got %q", created.ID())
	}

	// A second record with the same id must be rejected, not overwritten.
	_, err = s.Create("deals", record.Record{"id": "dl-1"}, "tester")
	if !errors.Is(err, record.ErrValidation) {
		t.Errorf("Expected ErrValidation for duplicate id, got %v", err)
	}
}

func TestStore_UpdateMergePatch(t *testing.T) {
	s, _ := newTestStore(t)

	created, err := s.Create("x", record.Record{"id": "1", "a": 1, "b": 2}, "tester")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	merged, err := s.Update("x", "1", record.Record{"b": 3}, "tester")
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if merged["a"] != 1 || merged["b"] != 3 {
		t.Errorf("Merge-patch wrong: %v", merged)
	}
	if merged.String(record.FieldCreatedAt) != created.String(record.FieldCreatedAt) {
		t.Errorf("createdAt must survive updates")
	}

	// id and createdAt are immutable even when the patch names them.
	merged, err = s.Update("x", "1", record.Record{"id": "2", "createdAt": "1999-01-01T00:00:00Z"}, "tester")
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if merged.ID() != "1" {
		t.Errorf("Patch must not re-identify a record, got id %q", merged.ID())
	}
}

func TestStore_UpdateMissing(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Update("x", "nope", record.Record{"a": 1}, "tester")
	if !errors.Is(err, record.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStore_Delete(t *testing.T) {
	s, _ := newTestStore(t)

	created, _ := s.Create("x", record.Record{"a": 1}, "tester")
	if err := s.Delete("x", created.ID(), "tester"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	_, err := s.Get("x", created.ID())
	if !errors.Is(err, record.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete("x", created.ID(), "tester"); !errors.Is(err, record.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for double delete, got %v", err)
	}
}

func TestStore_ListWithPredicate(t *testing.T) {
	s, _ := newTestStore(t)

	s.Create("deals", record.Record{"statusKey": "draft"}, "tester")
	s.Create("deals", record.Record{"statusKey": "published"}, "tester")

	all, err := s.List("deals", nil)
	if err != nil || len(all) != 2 {
		t.Fatalf("Expected 2 records, got %d (err %v)", len(all), err)
	}

	published, err := s.List("deals", func(r record.Record) bool {
		return r.String("statusKey") == "published"
	})
	if err != nil || len(published) != 1 {
		t.Fatalf("Expected 1 published record, got %d (err %v)", len(published), err)
	}

	empty, err := s.List("never-written", nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("Missing collection must list as empty, got %v (err %v)", empty, err)
	}
}

func TestStore_ReservedNamesRejected(t *testing.T) {
	s, _ := newTestStore(t)

	for _, name := range []string{"_audit", "_sessions", "", "../escape", "a b"} {
		if _, err := s.Create(name, record.Record{}, "tester"); !errors.Is(err, record.ErrValidation) {
			t.Errorf("Expected ErrValidation for %q, got %v", name, err)
		}
	}
}

func TestStore_AuditCompleteness(t *testing.T) {
	s, auditor := newTestStore(t)

	created, _ := s.Create("deals", record.Record{"title": "A"}, "alice")
	s.Update("deals", created.ID(), record.Record{"title": "B"}, "bob")
	s.Delete("deals", created.ID(), "carol")

	events := auditor.forTarget(created.ID())
	if len(events) != 3 {
		t.Fatalf("Expected exactly 3 audit events, got %d", len(events))
	}
	wantActions := []string{schema.ActionCreate, schema.ActionUpdate, schema.ActionDelete}
	wantActors := []string{"alice", "bob", "carol"}
	for i, ev := range events {
		if ev.Action != wantActions[i] {
			t.Errorf("Event %d: expected action %s, got %s", i, wantActions[i], ev.Action)
		}
		if ev.ActorID != wantActors[i] {
			t.Errorf("Event %d: expected actor %s, got %s", i, wantActors[i], ev.ActorID)
		}
		if ev.TargetCollection != "deals" {
			t.Errorf("Event %d: wrong target collection %s", i, ev.TargetCollection)
		}
	}
	if events[0].AfterJSON == "" || events[0].BeforeJSON != "" {
		t.Error("Create event must carry after only")
	}
	if events[1].BeforeJSON == "" || events[1].AfterJSON == "" {
		t.Error("Update event must carry before and after")
	}
	if events[2].BeforeJSON == "" || events[2].AfterJSON != "" {
		t.Error("Delete event must carry before only")
	}
}

func TestStore_AuditFailureRollsBack(t *testing.T) {
	s, auditor := newTestStore(t)

	kept, _ := s.Create("deals", record.Record{"title": "keep"}, "tester")

	auditor.fail = errors.New("audit disk full")
	_, err := s.Create("deals", record.Record{"title": "lost"}, "tester")
	if !errors.Is(err, record.ErrWrite) {
		t.Fatalf("Expected ErrWrite when audit append fails, got %v", err)
	}

	// The failed create must leave no trace in the collection.
	auditor.fail = nil
	all, _ := s.List("deals", nil)
	if len(all) != 1 || all[0].ID() != kept.ID() {
		t.Errorf("Collection must be rolled back to pre-mutation contents, got %v", all)
	}
}

func TestStore_NewIDUnique(t *testing.T) {
	s, _ := newTestStore(t)

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := s.NewID()
		if seen[id] {
			t.Fatalf("Duplicate id generated: %s", id)
		}
		seen[id] = true
	}
}

func TestStore_ConcurrentCreates(t *testing.T) {
	s, auditor := newTestStore(t)

	const goroutines = 8
	const perGoroutine = 10

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				name := fmt.Sprintf("coll-%d", n%2)
				if _, err := s.Create(name, record.Record{"n": n, "j": j}, "tester"); err != nil {
					t.Errorf("Concurrent create failed: %v", err)
				}
			}
		}(i)
	}
	wg.Wait()

	a, _ := s.List("coll-0", nil)
	b, _ := s.List("coll-1", nil)
	if len(a)+len(b) != goroutines*perGoroutine {
		t.Errorf("Lost writes under concurrency: %d + %d", len(a), len(b))
	}

	auditor.mu.Lock()
	defer auditor.mu.Unlock()
	if len(auditor.events) != goroutines*perGoroutine {
		t.Errorf("Expected %d audit events, got %d", goroutines*perGoroutine, len(auditor.events))
	}
}
