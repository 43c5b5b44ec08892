// Package social provides the pairwise conversation state machine and
// the global dialogue registry.
package social

import (
	"github.com/google/uuid"

	"github.com/talgya/castaway/internal/agents"
)

// Session is an active conversation between two agents, one designated
// initiator. It exists exactly while both members are flagged as in
// conversation.
type Session struct {
	ID          string
	Initiator   string
	Responder   string
	StartedTick uint64
}

// Registry resolves agent names to agents. Implemented by the simulation.
type Registry interface {
	Lookup(name string) *agents.Agent
}

// Coordinator owns all conversation sessions and enforces the
// at-most-one-session-per-agent invariant. All transitions are driven by
// the owning agent's tick; start and end update both sides in the same
// logical step.
type Coordinator struct {
	sessions map[string]*Session // agent name → session (two keys per session)
}

// NewCoordinator creates an empty coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{sessions: make(map[string]*Session)}
}

// SessionOf returns the session the named agent belongs to, or nil.
func (c *Coordinator) SessionOf(name string) *Session {
	return c.sessions[name]
}

// Eligible reports whether an agent can enter a new conversation.
func (c *Coordinator) Eligible(a *agents.Agent) bool {
	return !a.Dead && !a.InConversation && a.ConvoCooldown == 0 && c.sessions[a.Name] == nil
}

// Start opens a session between initiator and target. Fails (returns
// nil) if either party is already in one. Both agents' conversation
// flags flip symmetrically before this returns.
func (c *Coordinator) Start(initiator, target *agents.Agent, tick uint64) *Session {
	if c.sessions[initiator.Name] != nil || c.sessions[target.Name] != nil {
		return nil
	}
	if initiator.InConversation || target.InConversation {
		return nil
	}

	s := &Session{
		ID:          uuid.NewString(),
		Initiator:   initiator.Name,
		Responder:   target.Name,
		StartedTick: tick,
	}
	c.sessions[initiator.Name] = s
	c.sessions[target.Name] = s

	initiator.InConversation = true
	initiator.Partner = target.Name
	initiator.Initiator = true
	initiator.SessionID = s.ID

	target.InConversation = true
	target.Partner = initiator.Name
	target.Initiator = false
	target.SessionID = s.ID

	return s
}

// End destroys the agent's session and imposes cooldowns: the ending
// agent waits longer than the partner. Both sides are reset in the same
// logical step; a missing partner (already dead) still resets the ender.
func (c *Coordinator) End(a *agents.Agent, reg Registry, enderCooldown, partnerCooldown int) {
	s := c.sessions[a.Name]
	if s == nil {
		return
	}

	partnerName := s.Initiator
	if partnerName == a.Name {
		partnerName = s.Responder
	}

	delete(c.sessions, a.Name)
	delete(c.sessions, partnerName)

	if partner := reg.Lookup(partnerName); partner != nil {
		partner.InConversation = false
		partner.Partner = ""
		partner.Initiator = false
		partner.SessionID = ""
		partner.ConvoCooldown = partnerCooldown
	}

	a.InConversation = false
	a.Partner = ""
	a.Initiator = false
	a.SessionID = ""
	a.ConvoCooldown = enderCooldown

	a.Memory.Add("Ended a conversation", agents.MemAction, 5)
}

// ActiveSessions returns the number of live sessions.
func (c *Coordinator) ActiveSessions() int {
	return len(c.sessions) / 2
}
