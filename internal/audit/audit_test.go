package audit

import (
	"fmt"
	"testing"
	"time"

	"github.com/wealthos-dev/wealthos-store/internal/engine"
	"github.com/wealthos-dev/wealthos-store/pkg/schema"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	codec, err := engine.NewCodec(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}
	return NewLog(codec)
}

func event(id, targetID, action string, at time.Time) schema.AuditEvent {
	return schema.AuditEvent{
		ID:               id,
		TargetCollection: "deals",
		TargetID:         targetID,
		Action:           action,
		ActorID:          "tester",
		At:               at,
	}
}

func TestLog_AppendAndQuery(t *testing.T) {
	l := newTestLog(t)
	base := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

	l.Record(event("e1", "r1", schema.ActionCreate, base))
	l.Record(event("e2", "r2", schema.ActionCreate, base.Add(time.Minute)))
	l.Record(event("e3", "r1", schema.ActionUpdate, base.Add(2*time.Minute)))

	events, err := l.ForRecord("r1")
	if err != nil {
		t.Fatalf("ForRecord failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events for r1, got %d", len(events))
	}
	if events[0].ID != "e1" || events[1].ID != "e3" {
		t.Errorf("Expected oldest-first order [e1 e3], got [%s %s]", events[0].ID, events[1].ID)
	}

	none, err := l.ForRecord("unknown")
	if err != nil || len(none) != 0 {
		t.Errorf("Expected no events for unknown target, got %v (err %v)", none, err)
	}
}

func TestLog_ChronologicalWithTies(t *testing.T) {
	l := newTestLog(t)
	at := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

	// Same timestamp: insertion order must break the tie.
	for i := 0; i < 5; i++ {
		l.Record(event(fmt.Sprintf("e%d", i), "r1", schema.ActionUpdate, at))
	}

	events, err := l.ForRecord("r1")
	if err != nil {
		t.Fatalf("ForRecord failed: %v", err)
	}
	for i, ev := range events {
		if ev.ID != fmt.Sprintf("e%d", i) {
			t.Fatalf("Tie not broken by insertion order at %d: %s", i, ev.ID)
		}
	}
}

func TestLog_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	codec, err := engine.NewCodec(dir, nil)
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}

	l := NewLog(codec)
	at := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	if err := l.Record(event("e1", "r1", schema.ActionCreate, at)); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	codec2, _ := engine.NewCodec(dir, nil)
	events, err := NewLog(codec2).ForRecord("r1")
	if err != nil || len(events) != 1 {
		t.Fatalf("Expected 1 durable event, got %d (err %v)", len(events), err)
	}
	if !events[0].At.Equal(at) || events[0].Action != schema.ActionCreate {
		t.Errorf("Event did not round-trip: %+v", events[0])
	}
}
