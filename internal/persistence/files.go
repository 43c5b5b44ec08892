// Package persistence provides the durable state stores: per-concern
// JSON files as the primary contract, a SQLite archive for history
// queries, and compressed full-world snapshots.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/talgya/castaway/internal/agents"
	"github.com/talgya/castaway/internal/chronicle"
	"github.com/talgya/castaway/internal/social"
	"github.com/talgya/castaway/internal/world"
)

// Files stores world state as JSON documents under one directory.
// Every write goes through a temp file and an atomic rename, so a crash
// mid-write leaves the previous version intact. A missing or corrupt
// file on load yields defaults, never an aborted boot.
type Files struct {
	dir string
	mu  sync.Mutex
}

// NewFiles creates the data directory if needed.
func NewFiles(dir string) (*Files, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Files{dir: dir}, nil
}

func (f *Files) path(name string) string {
	return filepath.Join(f.dir, name)
}

func (f *Files) writeJSON(name string, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writeLocked(name, v)
}

func (f *Files) writeLocked(name string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	tmp := f.path(name) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, f.path(name)); err != nil {
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

// readJSON reports whether a usable document was loaded. Corrupt files
// are logged and treated as absent.
func (f *Files) readJSON(name string, v any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readLocked(name, v)
}

func (f *Files) readLocked(name string, v any) bool {
	raw, err := os.ReadFile(f.path(name))
	if os.IsNotExist(err) {
		return false
	}
	if err != nil {
		slog.Warn("state file unreadable, using defaults", "file", name, "error", err)
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		slog.Warn("state file corrupt, using defaults", "file", name, "error", err)
		return false
	}
	return true
}

func agentFile(name string) string {
	return "npc_" + strings.ToLower(name) + ".json"
}

func memoryFile(name string) string {
	return "memory_" + strings.ToLower(name) + ".json"
}

// SaveAgentState writes one agent's persisted view.
func (f *Files) SaveAgentState(st agents.State) error {
	return f.writeJSON(agentFile(st.Name), st)
}

// LoadAgentState reports whether a persisted state exists for the name.
func (f *Files) LoadAgentState(name string) (agents.State, bool) {
	var st agents.State
	ok := f.readJSON(agentFile(name), &st)
	return st, ok
}

// SaveMemories writes an agent's full memory log. Implements
// agents.MemorySaver.
func (f *Files) SaveMemories(owner string, records []agents.Record) error {
	return f.writeJSON(memoryFile(owner), records)
}

// LoadMemories returns the persisted memory log, or nil.
func (f *Files) LoadMemories(name string) []agents.Record {
	var records []agents.Record
	if !f.readJSON(memoryFile(name), &records) {
		return nil
	}
	return records
}

// resourceDoc is the on-disk shape of the grid's mutable resource state.
// Terrain is regenerated from the seed, not persisted.
type resourceDoc struct {
	Size    int                    `json:"size"`
	Kinds   [][]world.ResourceKind `json:"kinds"`
	Amounts [][]int                `json:"amounts"`
}

// SaveResources writes the grid's deposit kinds and amounts.
func (f *Files) SaveResources(g *world.Grid) error {
	return f.writeJSON("resources.json", resourceDoc{
		Size:    g.Size,
		Kinds:   g.Kind,
		Amounts: g.Amount,
	})
}

// LoadResources applies persisted deposit state onto a freshly generated
// grid. A size mismatch discards the file: the terrain underneath it no
// longer exists.
func (f *Files) LoadResources(g *world.Grid) bool {
	var doc resourceDoc
	if !f.readJSON("resources.json", &doc) {
		return false
	}
	if doc.Size != g.Size || len(doc.Kinds) != g.Size || len(doc.Amounts) != g.Size {
		slog.Warn("resource file does not match world size, regenerating", "file_size", doc.Size, "world_size", g.Size)
		return false
	}
	g.Kind = doc.Kinds
	g.Amount = doc.Amounts
	return true
}

// SaveClock writes the world clock.
func (f *Files) SaveClock(c *world.Clock) error {
	return f.writeJSON("world_state.json", c)
}

// LoadClock returns the persisted clock, or nil.
func (f *Files) LoadClock() *world.Clock {
	var c world.Clock
	if !f.readJSON("world_state.json", &c) {
		return nil
	}
	return &c
}

// SaveChronicle writes the full event log. Implements chronicle.Saver.
func (f *Files) SaveChronicle(events []chronicle.Event) error {
	return f.writeJSON("chronicle.json", events)
}

// LoadChronicle returns the persisted event log, or nil.
func (f *Files) LoadChronicle() []chronicle.Event {
	var events []chronicle.Event
	if !f.readJSON("chronicle.json", &events) {
		return nil
	}
	return events
}

// AppendConversation appends one utterance to the durable conversation
// log. Implements social.DialogSaver.
func (f *Files) AppendConversation(u social.Utterance) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var log []social.Utterance
	f.readLocked("conversations.json", &log)
	log = append(log, u)
	return f.writeLocked("conversations.json", log)
}

// LoadConversations returns the persisted conversation log, or nil.
func (f *Files) LoadConversations() []social.Utterance {
	var log []social.Utterance
	if !f.readJSON("conversations.json", &log) {
		return nil
	}
	return log
}
