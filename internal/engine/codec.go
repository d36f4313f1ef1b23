// Package engine implements the generic record store: the Codec mapping
// collection names to durable JSON containers, and the Store exposing the
// CRUD verbs every business module uses identically.
package engine

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/wealthos-dev/wealthos-store/pkg/record"
)

// Codec serializes collections to one JSON file per collection name and back.
// A missing or unreadable container decodes to an empty sequence so that every
// module works against an un-seeded store without special-casing; a failed
// write is always surfaced.
type Codec struct {
	dataDir string
	log     *slog.Logger
	mu      sync.Mutex // protects concurrent writes to the filesystem
}

// NewCodec initializes a codec rooted at dir, creating it if needed.
func NewCodec(dir string, log *slog.Logger) (*Codec, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Codec{dataDir: dir, log: log}, nil
}

func (c *Codec) path(name string) string {
	return filepath.Join(c.dataDir, name+".json")
}

// Load returns the decoded record sequence for the named collection.
// Absence and corruption both degrade to an empty sequence; corruption is
// logged because it means a container was lost, not merely never written.
func (c *Codec) Load(name string) []record.Record {
	content, err := os.ReadFile(c.path(name))
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Warn("collection container unreadable", "collection", name, "error", err)
		}
		return nil
	}

	var records []record.Record
	if err := json.Unmarshal(content, &records); err != nil {
		c.log.Warn("collection container corrupt", "collection", name, "error", err)
		return nil
	}
	return records
}

// Save atomically replaces the full contents of the named collection.
// The sequence is written to a temporary file first and swapped in with a
// rename, so an external reader sees either the old container or the new one,
// never a torn write.
func (c *Codec) Save(name string, records []record.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if records == nil {
		records = []record.Record{}
	}
	bytes, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode collection %s: %v", record.ErrWrite, name, err)
	}

	filePath := c.path(name)
	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, bytes, 0o644); err != nil {
		return fmt.Errorf("%w: write collection %s: %v", record.ErrWrite, name, err)
	}
	if err := os.Rename(tempPath, filePath); err != nil {
		return fmt.Errorf("%w: swap collection %s: %v", record.ErrWrite, name, err)
	}
	return nil
}

// Collections returns the names of every collection with a container on disk,
// reserved ones included.
func (c *Codec) Collections() ([]string, error) {
	files, err := os.ReadDir(c.dataDir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var names []string
	for _, f := range files {
		if n, ok := strings.CutSuffix(f.Name(), ".json"); ok {
			names = append(names, n)
		}
	}
	return names, nil
}
