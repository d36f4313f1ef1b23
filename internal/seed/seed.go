// Package seed populates an empty store from the bundled seed dataset,
// exactly once per manager lifetime, idempotently. The dataset is a single
// JSON document whose top-level keys are collection names.
package seed

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/wealthos-dev/wealthos-store/internal/engine"
	"github.com/wealthos-dev/wealthos-store/pkg/record"
)

//go:embed seed.json
var defaultDataset []byte

// Manager owns the "has seeded" state. It is an instance, not process-global,
// so tests can construct isolated managers over isolated codecs.
type Manager struct {
	codec   *engine.Codec
	dataset []byte
	log     *slog.Logger

	mu     sync.Mutex
	seeded bool
}

// NewManager builds a manager over codec. A nil dataset means the bundled one.
func NewManager(codec *engine.Codec, dataset []byte, log *slog.Logger) *Manager {
	if dataset == nil {
		dataset = defaultDataset
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{codec: codec, dataset: dataset, log: log}
}

// EnsureSeedOnce populates the collections named in the dataset. Without
// force it is a no-op once seeding has run or when any seed collection
// already holds data. With force it re-seeds unconditionally, overwriting
// the collections the dataset names (and only those).
//
// A partial failure never marks the run as complete: the error names every
// collection that failed, and the next call retries all of them.
func (m *Manager) EnsureSeedOnce(force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.seeded && !force {
		return nil
	}

	dataset, err := m.decode()
	if err != nil {
		return err
	}

	if !force && m.anyPopulated(dataset) {
		m.seeded = true
		return nil
	}

	var failures []error
	for name, records := range dataset {
		if err := m.codec.Save(name, records); err != nil {
			failures = append(failures, fmt.Errorf("seed %s: %w", name, err))
			continue
		}
		m.log.Info("seeded collection", "collection", name, "records", len(records))
	}
	if len(failures) > 0 {
		return errors.Join(failures...)
	}
	m.seeded = true
	return nil
}

// Reset clears the has-seeded flag. Exposed to privileged callers only;
// the next EnsureSeedOnce(true) re-seeds unconditionally.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seeded = false
}

// Seeded reports whether a full seeding run has completed.
func (m *Manager) Seeded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seeded
}

func (m *Manager) decode() (map[string][]record.Record, error) {
	var dataset map[string][]record.Record
	if err := json.Unmarshal(m.dataset, &dataset); err != nil {
		return nil, fmt.Errorf("decode seed dataset: %w", err)
	}
	return dataset, nil
}

// anyPopulated reports whether any collection named in the dataset already
// holds records, meaning the store reflects real data and must not be touched.
func (m *Manager) anyPopulated(dataset map[string][]record.Record) bool {
	for name := range dataset {
		if len(m.codec.Load(name)) > 0 {
			return true
		}
	}
	return false
}
