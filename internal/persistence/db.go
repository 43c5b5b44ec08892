// SQLite archive: an append-only secondary store for chronicle events
// and dialogue, kept for history queries that outlive the rolling
// in-memory windows. The JSON files remain the source of truth for
// world state.
package persistence

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/castaway/internal/chronicle"
	"github.com/talgya/castaway/internal/social"
)

// Archive wraps a SQLite connection.
type Archive struct {
	conn *sqlx.DB
}

// OpenArchive opens or creates the archive database at the given path.
func OpenArchive(path string) (*Archive, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	a := &Archive{conn: conn}
	if err := a.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate archive: %w", err)
	}
	return a, nil
}

// Close closes the database connection.
func (a *Archive) Close() error {
	return a.conn.Close()
}

func (a *Archive) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id TEXT NOT NULL,
		timestamp REAL NOT NULL,
		agent TEXT NOT NULL,
		action TEXT NOT NULL,
		x REAL NOT NULL,
		y REAL NOT NULL,
		details TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS dialogue (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp REAL NOT NULL,
		speaker TEXT NOT NULL,
		listener TEXT NOT NULL,
		message TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_agent ON events(agent);
	CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_dialogue_speaker ON dialogue(speaker);
	`
	_, err := a.conn.Exec(schema)
	return err
}

// ArchiveEvent appends one chronicle event.
func (a *Archive) ArchiveEvent(ev chronicle.Event) error {
	_, err := a.conn.Exec(
		"INSERT INTO events (event_id, timestamp, agent, action, x, y, details) VALUES (?, ?, ?, ?, ?, ?, ?)",
		ev.ID, ev.Timestamp, ev.Agent, ev.Action, ev.X, ev.Y, ev.Details,
	)
	return err
}

// ArchiveUtterance appends one dialogue line.
func (a *Archive) ArchiveUtterance(u social.Utterance) error {
	_, err := a.conn.Exec(
		"INSERT INTO dialogue (timestamp, speaker, listener, message) VALUES (?, ?, ?, ?)",
		u.Timestamp, u.From, u.To, u.Message,
	)
	return err
}

// archivedEvent carries db tags for sqlx scanning.
type archivedEvent struct {
	EventID   string  `db:"event_id"`
	Timestamp float64 `db:"timestamp"`
	Agent     string  `db:"agent"`
	Action    string  `db:"action"`
	X         float64 `db:"x"`
	Y         float64 `db:"y"`
	Details   string  `db:"details"`
}

// RecentEvents returns the most recent limit archived events, oldest
// first.
func (a *Archive) RecentEvents(limit int) ([]chronicle.Event, error) {
	var rows []archivedEvent
	err := a.conn.Select(&rows,
		"SELECT event_id, timestamp, agent, action, x, y, details FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}

	events := make([]chronicle.Event, len(rows))
	for i, r := range rows {
		events[len(rows)-1-i] = chronicle.Event{
			ID:        r.EventID,
			Timestamp: r.Timestamp,
			Agent:     r.Agent,
			Action:    r.Action,
			X:         r.X,
			Y:         r.Y,
			Details:   r.Details,
		}
	}
	return events, nil
}

// AgentEvents returns the most recent limit events for one agent,
// oldest first.
func (a *Archive) AgentEvents(agent string, limit int) ([]chronicle.Event, error) {
	var rows []archivedEvent
	err := a.conn.Select(&rows,
		"SELECT event_id, timestamp, agent, action, x, y, details FROM events WHERE agent = ? ORDER BY id DESC LIMIT ?",
		agent, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select agent events: %w", err)
	}

	events := make([]chronicle.Event, len(rows))
	for i, r := range rows {
		events[len(rows)-1-i] = chronicle.Event{
			ID:        r.EventID,
			Timestamp: r.Timestamp,
			Agent:     r.Agent,
			Action:    r.Action,
			X:         r.X,
			Y:         r.Y,
			Details:   r.Details,
		}
	}
	return events, nil
}

// SaveMeta stores a key-value pair in world metadata.
func (a *Archive) SaveMeta(key, value string) error {
	_, err := a.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (a *Archive) GetMeta(key string) (string, error) {
	var value string
	err := a.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}
