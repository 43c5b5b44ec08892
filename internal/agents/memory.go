// Agent memory stream: an append-only scored log of experiences.
// Records are scored at retrieval time by relevance, recency, and
// importance; a reflection pass periodically distills the important ones.
package agents

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"
)

// MemoryKind classifies a record.
type MemoryKind string

const (
	MemObservation   MemoryKind = "observation"
	MemAction        MemoryKind = "action"
	MemCommunication MemoryKind = "communication"
	MemState         MemoryKind = "state"
)

// Record is one immutable memory. Timestamp is wall-clock seconds.
type Record struct {
	Timestamp  float64    `json:"timestamp"`
	Content    string     `json:"content"`
	Kind       MemoryKind `json:"type"`
	Importance int        `json:"importance"`
}

// MemorySaver persists an agent's full memory log.
type MemorySaver interface {
	SaveMemories(owner string, records []Record) error
}

// Summarizer produces a free-text response for a role; an empty string
// means no utterance was produced.
type Summarizer interface {
	Converse(role, prompt string) string
}

// Retrieval scoring weights. Recency decays with exp(-λ·age).
const (
	relevanceWeight  = 0.4
	recencyWeight    = 0.3
	importanceWeight = 0.3
	recencyLambda    = 0.001
)

// Reflection trigger thresholds.
const (
	ReflectImportanceThreshold = 7
	ReflectCountThreshold      = 5
)

// Stream is one agent's memory log. Observation-kind records are never
// retained: they exist only as transient decision context.
type Stream struct {
	owner   string
	records []Record
	saver   MemorySaver
	now     func() float64
}

// NewStream creates an empty stream for the named owner. A nil saver
// keeps the stream in memory only.
func NewStream(owner string, saver MemorySaver) *Stream {
	return &Stream{
		owner: owner,
		saver: saver,
		now:   func() float64 { return float64(time.Now().UnixNano()) / 1e9 },
	}
}

// Restore replaces the log with previously persisted records.
func (s *Stream) Restore(records []Record) {
	s.records = records
}

// Len returns the number of retained records.
func (s *Stream) Len() int { return len(s.records) }

// Records returns a copy of the retained log.
func (s *Stream) Records() []Record {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Add appends a record with the current timestamp. Observations are
// dropped rather than retained. The log is persisted after every append.
func (s *Stream) Add(content string, kind MemoryKind, importance int) {
	if kind == MemObservation {
		return
	}
	s.records = append(s.records, Record{
		Timestamp:  s.now(),
		Content:    content,
		Kind:       kind,
		Importance: importance,
	})
	if s.saver != nil {
		if err := s.saver.SaveMemories(s.owner, s.records); err != nil {
			slog.Error("memory save failed", "owner", s.owner, "error", err)
		}
	}
}

// Retrieve scores every record against the query and returns the contents
// of the top limit records, best first. Ties keep their original order.
// Pure read, no side effects.
func (s *Stream) Retrieve(query string, limit int) []string {
	if limit <= 0 || len(s.records) == 0 {
		return nil
	}

	tokens := strings.Fields(query)
	now := s.now()

	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, len(s.records))
	for i, rec := range s.records {
		hits := 0
		for _, tok := range tokens {
			if strings.Contains(rec.Content, tok) {
				hits++
			}
		}
		relevance := float64(hits) / float64(len(tokens)+1)
		recency := math.Exp(-recencyLambda * (now - rec.Timestamp))
		importance := float64(rec.Importance) / 10

		ranked[i] = scored{
			idx:   i,
			score: relevanceWeight*relevance + recencyWeight*recency + importanceWeight*importance,
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if limit > len(ranked) {
		limit = len(ranked)
	}
	out := make([]string, limit)
	for i := 0; i < limit; i++ {
		out[i] = s.records[ranked[i].idx].Content
	}
	return out
}

// Reflect checks whether enough high-importance records have accumulated
// and, if so, asks the oracle to summarize the most recent of them. A
// non-empty summary is appended as a State record with importance 8.
// Failures are absorbed: an empty summary leaves the stream untouched.
func (s *Stream) Reflect(oracle Summarizer) string {
	var high []Record
	for _, rec := range s.records {
		if rec.Importance >= ReflectImportanceThreshold {
			high = append(high, rec)
		}
	}
	if len(high) < ReflectCountThreshold {
		return ""
	}

	recent := high[len(high)-ReflectCountThreshold:]
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s.\nThese are some of your recent important memories:\n", s.owner)
	for _, rec := range recent {
		fmt.Fprintf(&b, "- %s\n", rec.Content)
	}
	b.WriteString("\nReflect on them: summarize the pattern or lesson in one short statement.")

	summary := oracle.Converse(s.owner, b.String())
	if summary == "" {
		slog.Warn("reflection produced no summary", "owner", s.owner)
		return ""
	}

	s.Add("Reflection: "+summary, MemState, 8)
	return summary
}
