// Conversation flow: greeting, initiation, continuation, and speech
// delivery. Only the initiator ever drives a conversation forward; the
// other side responds reactively, so every conversation terminates from
// one side.
package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/talgya/castaway/internal/agents"
	"github.com/talgya/castaway/internal/config"
)

// interact considers conversation transitions for one agent this tick.
func (s *Simulation) interact(a *agents.Agent, tick uint64) {
	if a.InConversation {
		if !a.Initiator {
			return
		}
		if s.rng.Float64() < s.Cfg.EndProbability {
			s.endConversation(a)
			return
		}
		if tick-a.LastInteractTick >= s.Cfg.ContinueIntervalTicks {
			a.LastInteractTick = tick
			s.continueConversation(a)
		}
		return
	}

	if a.ConvoCooldown > 0 {
		return
	}

	var eligible []*agents.Agent
	for _, name := range a.NearbyAgents {
		other := s.index[name]
		if other != nil && s.Convo.Eligible(other) {
			eligible = append(eligible, other)
		}
	}
	if len(eligible) == 0 {
		return
	}

	// The very first encounter forces a greeting; afterwards initiation
	// is interval-gated with a randomized gap.
	if a.FirstMeeting {
		a.FirstMeeting = false
		a.LastInteractTick = tick
		s.greet(a, eligible[0], tick)
		return
	}

	if a.NextInteractGap == 0 {
		a.NextInteractGap = s.randomInteractGap()
	}
	if tick-a.LastInteractTick < a.NextInteractGap {
		return
	}

	target := eligible[s.rng.Intn(len(eligible))]
	a.LastInteractTick = tick
	a.NextInteractGap = s.randomInteractGap()
	s.startConversation(a, target, tick)
}

func (s *Simulation) randomInteractGap() uint64 {
	span := s.Cfg.InteractMaxTicks - s.Cfg.InteractMinTicks
	if span == 0 {
		return s.Cfg.InteractMinTicks
	}
	return s.Cfg.InteractMinTicks + uint64(s.rng.Int63n(int64(span)))
}

// greet opens a first-meeting conversation with a fixed greeting; the
// target answers through the oracle.
func (s *Simulation) greet(a, target *agents.Agent, tick uint64) {
	if s.Convo.Start(a, target, tick) == nil {
		return
	}

	greeting := fmt.Sprintf("Hello, %s!", target.Name)
	s.speak(a, greeting, "normal")

	prompt := fmt.Sprintf("You are %s, meeting %s for the first time on the island.\n%s says to you: %q\nAnswer naturally, in one or two sentences.",
		target.Name, a.Name, a.Name, greeting)
	if reply := s.Oracle.Converse(target.Name, prompt); reply != "" {
		s.speak(target, reply, "normal")
		s.Dialog.AddConversation(target.Name, a.Name, reply)
	}
}

// startConversation opens a session with an oracle-generated opening
// line delivered to the partner.
func (s *Simulation) startConversation(a, target *agents.Agent, tick uint64) {
	if s.Convo.Start(a, target, tick) == nil {
		return
	}

	recent := a.Memory.Retrieve("conversation", 3)
	prompt := fmt.Sprintf("You are %s, stranded on an island, talking with %s.\nEarlier exchanges: %s\nSay one natural line to open the conversation.",
		a.Name, target.Name, strings.Join(recent, "; "))

	opening := s.Oracle.Converse(a.Name, prompt)
	if opening == "" {
		return // no utterance produced; the session stays open
	}
	s.speak(a, opening, "normal")
	s.respond(target, a.Name, opening)
}

// continueConversation produces a follow-up line. Initiator only.
func (s *Simulation) continueConversation(a *agents.Agent) {
	partner := s.index[a.Partner]
	if partner == nil || partner.Dead {
		s.endConversation(a)
		return
	}

	recent := a.Memory.Retrieve("conversation", 5)
	prompt := fmt.Sprintf("You are %s, mid-conversation with %s.\nEarlier exchanges: %s\nContinue naturally with one line.",
		a.Name, partner.Name, strings.Join(recent, "; "))

	line := s.Oracle.Converse(a.Name, prompt)
	if line == "" {
		return
	}
	s.speak(a, line, "normal")
	s.respond(partner, a.Name, line)
}

// respond generates the reactive reply of a conversation partner.
// Replies are spoken aloud but never trigger another reply directly;
// continuation is the initiator's job.
func (s *Simulation) respond(a *agents.Agent, speakerName, message string) {
	if a.Dead {
		return
	}

	recent := a.Memory.Retrieve(speakerName+" conversation", 3)
	prompt := fmt.Sprintf("You are %s, talking with %s.\n%s says to you: %q\nEarlier exchanges: %s\nRespond naturally with one line.",
		a.Name, speakerName, speakerName, message, strings.Join(recent, "; "))

	reply := s.Oracle.Converse(a.Name, prompt)
	if reply == "" {
		return
	}
	s.speak(a, reply, "normal")
	s.Dialog.AddConversation(a.Name, speakerName, reply)
}

// endConversation tears the session down and wanders the ender away
// from the partner.
func (s *Simulation) endConversation(a *agents.Agent) {
	if partner := s.index[a.Partner]; partner != nil {
		dx, dy := a.X-partner.X, a.Y-partner.Y
		dist := math.Max(0.001, math.Hypot(dx, dy))
		away := 3 + s.rng.Float64()*2
		a.TargetX, a.TargetY = s.Grid.Clamp(a.X+dx/dist*away, a.Y+dy/dist*away)
	}
	s.Convo.End(a, s, s.Cfg.EnderCooldownTicks, s.Cfg.PartnerCooldownTicks)
}

// speak broadcasts an utterance to every audible agent. Each hearer
// records a Communication memory and the exchange is logged to the
// dialogue registry. Under the global policy the whole roster hears,
// regardless of distance; under the ranged policy only sensed agents
// within the volume's range do.
func (s *Simulation) speak(a *agents.Agent, message, volume string) {
	if a.Dead {
		return
	}

	a.SpendEnergy(s.Cfg.TalkEnergyCost)
	a.Memory.Add(fmt.Sprintf("I said: %s (volume: %s)", message, volume), agents.MemCommunication, 7)
	s.Chron.Add(a.Name, "talk", a.X, a.Y, fmt.Sprintf("said: %s (volume: %s)", message, volume))

	if s.Cfg.AudibilityModel == config.AudibilityGlobal {
		for _, hearer := range s.Agents {
			if hearer == a || hearer.Dead {
				continue
			}
			s.hear(hearer, a, message, volume)
		}
		return
	}

	for _, name := range a.NearbyAgents {
		hearer := s.index[name]
		if hearer == nil || !s.canHear(hearer, a, volume) {
			continue
		}
		s.hear(hearer, a, message, volume)
	}
}

// canHear applies the ranged audibility gate.
func (s *Simulation) canHear(listener, speaker *agents.Agent, volume string) bool {
	if listener.Dead {
		return false
	}
	limit := s.Cfg.NormalRange
	if volume == "loud" {
		limit = s.Cfg.LoudRange
	}
	return listener.DistanceTo(speaker) <= limit
}

// hear records the received utterance on the listener's side.
func (s *Simulation) hear(listener, speaker *agents.Agent, message, volume string) {
	importance := 5
	if volume == "loud" {
		importance = 6
	}
	listener.Memory.Add(fmt.Sprintf("Heard %s say: %s (distance: %.1f, volume: %s)",
		speaker.Name, message, listener.DistanceTo(speaker), volume), agents.MemCommunication, importance)

	s.Dialog.AddConversation(speaker.Name, listener.Name, message)
	s.Dialog.AddCommunication(speaker.Name, listener.Name, message, volume)
}
