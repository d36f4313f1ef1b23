// Package audit implements the append-only audit trail. Events live in the
// reserved "_audit" container and are never edited or removed by normal
// operation; retention is a policy decision left to the surrounding system.
package audit

import (
	"fmt"
	"sort"
	"sync"

	"github.com/wealthos-dev/wealthos-store/internal/engine"
	"github.com/wealthos-dev/wealthos-store/pkg/record"
	"github.com/wealthos-dev/wealthos-store/pkg/schema"
)

// Collection is the reserved container holding the audit trail.
const Collection = "_audit"

// Log is a durable, queryable history of mutations.
type Log struct {
	codec *engine.Codec
	mu    sync.Mutex // serializes appends against the audit container
}

// NewLog builds an audit log persisting through codec.
func NewLog(codec *engine.Codec) *Log {
	return &Log{codec: codec}
}

// Record appends one event to the end of the audit container. Prior events
// are never touched. A failed append surfaces as a write error so the caller
// can fail the mutation it belongs to.
func (l *Log) Record(ev schema.AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	records := l.codec.Load(Collection)
	rec, err := record.Encode(ev)
	if err != nil {
		return fmt.Errorf("%w: encode audit event: %v", record.ErrWrite, err)
	}
	return l.codec.Save(Collection, append(records, rec))
}

// ForRecord returns every event whose target id matches, oldest first.
// Ties on the timestamp keep insertion order.
func (l *Log) ForRecord(targetID string) ([]schema.AuditEvent, error) {
	var out []schema.AuditEvent
	for _, rec := range l.codec.Load(Collection) {
		ev, err := record.Decode[schema.AuditEvent](rec)
		if err != nil {
			return nil, fmt.Errorf("decode audit event: %w", err)
		}
		if ev.TargetID == targetID {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out, nil
}
