package social

import (
	"testing"

	"github.com/talgya/castaway/internal/agents"
)

type mapRegistry map[string]*agents.Agent

func (m mapRegistry) Lookup(name string) *agents.Agent { return m[name] }

func testAgent(name string) *agents.Agent {
	return agents.New(name, 5, 5, nil, agents.NewStream(name, nil))
}

func TestStartFlipsBothSides(t *testing.T) {
	c := NewCoordinator()
	a, b := testAgent("Kai"), testAgent("Elara")

	s := c.Start(a, b, 10)
	if s == nil {
		t.Fatal("Start returned nil for two free agents")
	}
	if !a.InConversation || !b.InConversation {
		t.Error("conversation flags not set on both sides")
	}
	if a.Partner != "Elara" || b.Partner != "Kai" {
		t.Errorf("partners = %q/%q", a.Partner, b.Partner)
	}
	if !a.Initiator || b.Initiator {
		t.Error("initiator flag wrong")
	}
	if a.SessionID != s.ID || b.SessionID != s.ID {
		t.Error("session IDs diverge")
	}
	if c.ActiveSessions() != 1 {
		t.Errorf("ActiveSessions = %d, want 1", c.ActiveSessions())
	}
}

func TestStartRejectsBusyAgents(t *testing.T) {
	c := NewCoordinator()
	a, b, d := testAgent("Kai"), testAgent("Elara"), testAgent("Jax")

	if c.Start(a, b, 1) == nil {
		t.Fatal("first session failed")
	}
	if c.Start(d, b, 2) != nil {
		t.Error("second session accepted a busy responder")
	}
	if c.Start(a, d, 2) != nil {
		t.Error("second session accepted a busy initiator")
	}
	if d.InConversation {
		t.Error("rejected start mutated the third agent")
	}
}

func TestEndImposesAsymmetricCooldowns(t *testing.T) {
	c := NewCoordinator()
	a, b := testAgent("Kai"), testAgent("Elara")
	reg := mapRegistry{"Kai": a, "Elara": b}

	c.Start(a, b, 1)
	c.End(a, reg, 50, 30)

	if a.InConversation || b.InConversation {
		t.Error("conversation flags survive End")
	}
	if a.ConvoCooldown != 50 || b.ConvoCooldown != 30 {
		t.Errorf("cooldowns = %d/%d, want 50/30", a.ConvoCooldown, b.ConvoCooldown)
	}
	if a.Partner != "" || b.Partner != "" || a.SessionID != "" || b.SessionID != "" {
		t.Error("session residue after End")
	}
	if c.ActiveSessions() != 0 {
		t.Errorf("ActiveSessions = %d, want 0", c.ActiveSessions())
	}
}

func TestEndByResponder(t *testing.T) {
	c := NewCoordinator()
	a, b := testAgent("Kai"), testAgent("Elara")
	reg := mapRegistry{"Kai": a, "Elara": b}

	c.Start(a, b, 1)
	c.End(b, reg, 50, 30)

	if b.ConvoCooldown != 50 || a.ConvoCooldown != 30 {
		t.Errorf("cooldowns = %d/%d, want ender 50 / partner 30", b.ConvoCooldown, a.ConvoCooldown)
	}
}

func TestEndWithoutSessionIsNoOp(t *testing.T) {
	c := NewCoordinator()
	a := testAgent("Kai")
	c.End(a, mapRegistry{}, 50, 30)
	if a.ConvoCooldown != 0 {
		t.Error("End without a session imposed a cooldown")
	}
}

func TestEligible(t *testing.T) {
	c := NewCoordinator()
	a := testAgent("Kai")

	if !c.Eligible(a) {
		t.Error("free agent not eligible")
	}
	a.ConvoCooldown = 5
	if c.Eligible(a) {
		t.Error("cooling-down agent eligible")
	}
	a.ConvoCooldown = 0
	a.Dead = true
	if c.Eligible(a) {
		t.Error("dead agent eligible")
	}
}

func TestDialogLogRollingCaps(t *testing.T) {
	d := NewDialogLog(nil)
	d.now = func() float64 { return 100 }

	for i := 0; i < maxConversations+5; i++ {
		d.AddConversation("Kai", "Elara", "hello")
	}
	if got := len(d.conversations); got != maxConversations {
		t.Errorf("conversations = %d, want cap %d", got, maxConversations)
	}

	for i := 0; i < maxCommunications+5; i++ {
		d.AddCommunication("Kai", "Elara", "hello", "normal")
	}
	if got := len(d.communications); got != maxCommunications {
		t.Errorf("communications = %d, want cap %d", got, maxCommunications)
	}
}

func TestRecentConversationsWindow(t *testing.T) {
	d := NewDialogLog(nil)
	clock := 0.0
	d.now = func() float64 { return clock }

	clock = 10
	d.AddConversation("Kai", "Elara", "old")
	clock = 100
	d.AddConversation("Elara", "Kai", "new")

	got := d.RecentConversations()
	if len(got) != 1 || got[0].Message != "new" {
		t.Errorf("RecentConversations = %+v, want only the fresh line", got)
	}
}

func TestRecentCommunicationsLimit(t *testing.T) {
	d := NewDialogLog(nil)
	d.now = func() float64 { return 1 }
	for i := 0; i < 10; i++ {
		d.AddCommunication("Kai", "Elara", "hi", "loud")
	}
	if got := len(d.RecentCommunications(3)); got != 3 {
		t.Errorf("RecentCommunications(3) returned %d", got)
	}
}
