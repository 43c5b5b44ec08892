// Compressed full-world snapshots, written at each day rollover.
package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/castaway/internal/agents"
	"github.com/talgya/castaway/internal/chronicle"
	"github.com/talgya/castaway/internal/world"
)

// Snapshot captures everything needed to reconstruct a world: the
// clock, the mutable resource state, every agent with its memory log,
// and the chronicle.
type Snapshot struct {
	SavedAt   time.Time                  `json:"saved_at"`
	Tick      uint64                     `json:"tick"`
	Clock     *world.Clock               `json:"clock"`
	Kinds     [][]world.ResourceKind     `json:"kinds"`
	Amounts   [][]int                    `json:"amounts"`
	Agents    []agents.State             `json:"agents"`
	Memories  map[string][]agents.Record `json:"memories"`
	Chronicle []chronicle.Event          `json:"chronicle"`
}

// WriteSnapshot writes a zstd-compressed snapshot through a temp file
// and atomic rename.
func WriteSnapshot(path string, snap *Snapshot) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}

	zw, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("zstd writer: %w", err)
	}

	if err := json.NewEncoder(zw).Encode(snap); err != nil {
		zw.Close()
		f.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("flush snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot loads a snapshot written by WriteSnapshot.
func ReadSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer zr.Close()

	var snap Snapshot
	if err := json.NewDecoder(zr).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}
