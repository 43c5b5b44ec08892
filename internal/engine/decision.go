// Oracle decision cycle: context assembly, action dispatch, and
// movement with water avoidance.
package engine

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/talgya/castaway/internal/agents"
	"github.com/talgya/castaway/internal/config"
	"github.com/talgya/castaway/internal/oracle"
	"github.com/talgya/castaway/internal/world"
)

// decide asks the oracle for the agent's next action once the decision
// cooldown has elapsed. Between decisions, and during conversations,
// agents idle.
func (s *Simulation) decide(a *agents.Agent, tick uint64) oracle.Action {
	if a.InConversation {
		return oracle.IdleAction()
	}
	if tick-a.LastDecisionTick < s.Cfg.DecisionCooldownTicks {
		return oracle.IdleAction()
	}
	a.LastDecisionTick = tick

	act := s.Oracle.Decide(a.Name, s.decisionContext(a))
	slog.Debug("decision", "agent", a.Name, "action", act.Kind.String(), "details", act.Details)
	return act
}

// decisionContext assembles the world as the agent currently perceives
// it: clock, vitals, surroundings, inventory, and the most relevant
// memories.
func (s *Simulation) decisionContext(a *agents.Agent) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s, stranded on a small island.\n", a.Name)
	fmt.Fprintf(&b, "Time: %s\n", s.Clock)
	fmt.Fprintf(&b, "Position: (%.1f, %.1f). Energy: %.0f/100.", a.X, a.Y, a.Energy)
	if s.Cfg.VitalsModel == config.VitalsDual {
		fmt.Fprintf(&b, " Health: %.0f/100.", a.Health)
	}
	b.WriteString("\n")

	if len(a.NearbyAgents) > 0 {
		fmt.Fprintf(&b, "People nearby: %s\n", strings.Join(a.NearbyAgents, ", "))
	} else {
		b.WriteString("Nobody is nearby.\n")
	}

	if len(a.NearbyDeposits) > 0 {
		b.WriteString("Resources nearby:\n")
		for _, dep := range a.NearbyDeposits {
			fmt.Fprintf(&b, "  - %s at (%d, %d), %d left\n", dep.Kind, dep.X, dep.Y, dep.Amount)
		}
	} else {
		b.WriteString("No resources in sight.\n")
	}

	b.WriteString("Carrying:")
	carrying := false
	for _, item := range []agents.Item{agents.ItemWater, agents.ItemFish, agents.ItemFruit, agents.ItemWood, agents.ItemScrap} {
		if n := a.Inventory[item]; n > 0 {
			fmt.Fprintf(&b, " %d %s", n, item)
			carrying = true
		}
	}
	if !carrying {
		b.WriteString(" nothing")
	}
	b.WriteString("\n")

	if recalled := a.Memory.Retrieve("decision", 5); len(recalled) > 0 {
		b.WriteString("You remember:\n")
		for _, m := range recalled {
			fmt.Fprintf(&b, "  - %s\n", m)
		}
	}

	b.WriteString("What do you do next?")
	return b.String()
}

// execute dispatches one action. Malformed or impossible actions degrade
// to a memory entry, never to a stopped simulation.
func (s *Simulation) execute(a *agents.Agent, act oracle.Action) {
	switch act.Kind {
	case oracle.ActIdle, oracle.ActRest:
		// nothing to do; passive recovery is handled by consume actions

	case oracle.ActMove:
		s.executeMove(a, act)

	case oracle.ActGather:
		s.executeGather(a, act)

	case oracle.ActEat:
		if err := s.Econ.Eat(a); err != nil {
			slog.Error("eat failed", "agent", a.Name, "error", err)
		}

	case oracle.ActDrink:
		if err := s.Econ.Drink(a); err != nil {
			slog.Error("drink failed", "agent", a.Name, "error", err)
		}

	case oracle.ActTalk:
		s.executeTalk(a, act)

	case oracle.ActGive:
		s.executeGive(a, act)

	case oracle.ActReflect:
		if summary := a.Memory.Reflect(s.Oracle); summary != "" {
			s.Chron.Add(a.Name, "reflect", a.X, a.Y, summary)
		}

	default:
		slog.Warn("unrecognized action", "agent", a.Name, "kind", act.Kind)
	}
}

func (s *Simulation) executeMove(a *agents.Agent, act oracle.Action) {
	if !act.HasCoord {
		a.Memory.Add("Wanted to move somewhere but couldn't settle on a destination", agents.MemAction, 3)
		return
	}
	a.TargetX, a.TargetY = s.Grid.Clamp(act.X, act.Y)
	a.Memory.Add(fmt.Sprintf("Decided to head to (%.0f, %.0f): %s",
		a.TargetX, a.TargetY, act.Details), agents.MemAction, 4)
}

// executeGather dispatches a gather. A coordinate target behaves like a
// move first, so agents walk toward distant deposits; the actual gather
// happens only when a sensed deposit lies within one cell of the
// target. A kind target gathers from the first matching sensed deposit.
func (s *Simulation) executeGather(a *agents.Agent, act oracle.Action) {
	if act.HasCoord {
		a.TargetX, a.TargetY = s.Grid.Clamp(act.X, act.Y)
		a.Memory.Add(fmt.Sprintf("Decided to head to (%.0f, %.0f): %s",
			a.TargetX, a.TargetY, act.Details), agents.MemAction, 4)
		for i, dep := range a.NearbyDeposits {
			if math.Abs(float64(dep.X)-act.X) <= 1 && math.Abs(float64(dep.Y)-act.Y) <= 1 {
				s.gatherDeposit(a, a.NearbyDeposits[i])
				return
			}
		}
		return
	}

	if act.Target != "" {
		for i, dep := range a.NearbyDeposits {
			if dep.Kind == act.Target {
				s.gatherDeposit(a, a.NearbyDeposits[i])
				return
			}
		}
	}
	a.Memory.Add("Wanted to gather, but there is nothing like that here", agents.MemAction, 4)
}

func (s *Simulation) gatherDeposit(a *agents.Agent, sensed agents.Sensed) {
	dep := world.Deposit{
		Kind:   world.ResourceKind(sensed.Kind),
		X:      sensed.X,
		Y:      sensed.Y,
		Amount: sensed.Amount,
	}
	if err := s.Econ.Gather(a, s.Grid, dep); err != nil {
		slog.Error("gather failed", "agent", a.Name, "error", err)
	}
}

// executeTalk speaks the action's line aloud when the named target is
// nearby. Speech is a broadcast to every audible agent; sessions are
// opened by the interact step, never here.
func (s *Simulation) executeTalk(a *agents.Agent, act oracle.Action) {
	if act.Target == "" || act.Details == "" {
		return
	}

	found := false
	for _, name := range a.NearbyAgents {
		if name == act.Target {
			found = true
			break
		}
	}
	if !found {
		a.Memory.Add(fmt.Sprintf("Wanted to talk to %s, but they're not around", act.Target), agents.MemAction, 4)
		return
	}

	volume := act.Volume
	if volume == "" {
		volume = "normal"
	}
	s.speak(a, act.Details, volume)
}

// executeGive parses the action's "item,amount" payload and runs the
// transfer. Unparseable payloads degrade to a memory entry.
func (s *Simulation) executeGive(a *agents.Agent, act oracle.Action) {
	to := s.index[act.Target]
	if to == nil {
		a.Memory.Add(fmt.Sprintf("Wanted to give something to %s, but they don't exist", act.Target), agents.MemAction, 4)
		return
	}

	parts := strings.SplitN(act.Details, ",", 2)
	if len(parts) != 2 {
		a.Memory.Add("Wanted to give something away but couldn't decide what", agents.MemAction, 4)
		return
	}
	item := strings.TrimSpace(parts[0])
	amount, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || amount <= 0 {
		a.Memory.Add(fmt.Sprintf("Meant to hand over %s, but the amount made no sense", item), agents.MemAction, 4)
		return
	}

	if err := s.Econ.Give(a, to, agents.Item(item), amount); err != nil {
		slog.Error("give failed", "agent", a.Name, "error", err)
	}
}

// move advances the agent one step toward its target, refusing to enter
// water. When the direct step is blocked it tries an axis-aligned detour
// along the larger displacement axis first, then the other; if both are
// blocked the agent stays put this tick. Conversations pin agents in
// place.
func (s *Simulation) move(a *agents.Agent) {
	if a.InConversation {
		return
	}

	dx, dy := a.TargetX-a.X, a.TargetY-a.Y
	dist := math.Hypot(dx, dy)
	if dist < 1e-6 {
		return
	}

	step := a.Speed / float64(s.Cfg.TickRate)
	if step > dist {
		step = dist
	}
	nx := a.X + dx/dist*step
	ny := a.Y + dy/dist*step

	switch {
	case s.walkableAt(nx, ny):
		// direct step is fine
	case math.Abs(dx) >= math.Abs(dy) && s.walkableAt(nx, a.Y):
		ny = a.Y
	case s.walkableAt(a.X, ny):
		nx = a.X
	case s.walkableAt(nx, a.Y):
		ny = a.Y
	default:
		return // boxed in by water this tick
	}

	a.X, a.Y = nx, ny
	a.SpendEnergy(s.Cfg.MoveEnergyCost)

	if math.Hypot(a.TargetX-a.X, a.TargetY-a.Y) < 1e-6 {
		a.Memory.Add(fmt.Sprintf("Arrived at (%.0f, %.0f)", a.X, a.Y), agents.MemAction, 2)
	}
}

func (s *Simulation) walkableAt(x, y float64) bool {
	return s.Grid.Walkable(int(x), int(y))
}
