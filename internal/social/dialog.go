// Global dialogue registry: a rolling log of utterances and
// speaker→listener communication events, consumed by observers.
package social

import (
	"log/slog"
	"sync"
	"time"
)

const (
	maxConversations  = 20
	maxCommunications = 50
	recentWindow      = 60 * time.Second
)

// Utterance is one line of speech between two named agents.
type Utterance struct {
	Timestamp float64 `json:"timestamp"`
	From      string  `json:"npc1"`
	To        string  `json:"npc2"`
	Message   string  `json:"message"`
}

// CommEvent records that one agent heard another.
type CommEvent struct {
	Timestamp float64 `json:"timestamp"`
	Speaker   string  `json:"speaker"`
	Listener  string  `json:"listener"`
	Message   string  `json:"message"`
	Volume    string  `json:"volume"`
}

// DialogSaver appends an utterance to the durable conversation log.
type DialogSaver interface {
	AppendConversation(u Utterance) error
}

// DialogLog keeps the rolling in-memory windows and feeds the saver.
// Appends are safe for concurrent writers.
type DialogLog struct {
	mu             sync.Mutex
	conversations  []Utterance
	communications []CommEvent
	saver          DialogSaver
	now            func() float64
}

// NewDialogLog creates an empty registry. A nil saver disables
// persistence.
func NewDialogLog(saver DialogSaver) *DialogLog {
	return &DialogLog{
		saver: saver,
		now:   func() float64 { return float64(time.Now().UnixNano()) / 1e9 },
	}
}

// AddConversation records one utterance, evicting the oldest beyond the
// rolling cap.
func (d *DialogLog) AddConversation(from, to, message string) {
	u := Utterance{Timestamp: d.now(), From: from, To: to, Message: message}

	d.mu.Lock()
	d.conversations = append(d.conversations, u)
	if len(d.conversations) > maxConversations {
		d.conversations = d.conversations[1:]
	}
	saver := d.saver
	d.mu.Unlock()

	if saver != nil {
		if err := saver.AppendConversation(u); err != nil {
			slog.Error("conversation log save failed", "error", err)
		}
	}
}

// AddCommunication records that listener heard speaker.
func (d *DialogLog) AddCommunication(speaker, listener, message, volume string) {
	ev := CommEvent{Timestamp: d.now(), Speaker: speaker, Listener: listener, Message: message, Volume: volume}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.communications = append(d.communications, ev)
	if len(d.communications) > maxCommunications {
		d.communications = d.communications[1:]
	}
}

// RecentConversations returns utterances from the last minute.
func (d *DialogLog) RecentConversations() []Utterance {
	d.mu.Lock()
	defer d.mu.Unlock()

	cutoff := d.now() - recentWindow.Seconds()
	var out []Utterance
	for _, u := range d.conversations {
		if u.Timestamp >= cutoff {
			out = append(out, u)
		}
	}
	return out
}

// RecentCommunications returns the most recent limit events.
func (d *DialogLog) RecentCommunications(limit int) []CommEvent {
	d.mu.Lock()
	defer d.mu.Unlock()

	start := 0
	if len(d.communications) > limit {
		start = len(d.communications) - limit
	}
	out := make([]CommEvent, len(d.communications)-start)
	copy(out, d.communications[start:])
	return out
}
