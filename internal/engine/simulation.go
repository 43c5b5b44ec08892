// Simulation ties the island systems together and runs every living
// agent's decision cycle once per tick.
package engine

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/talgya/castaway/internal/agents"
	"github.com/talgya/castaway/internal/chronicle"
	"github.com/talgya/castaway/internal/config"
	"github.com/talgya/castaway/internal/economy"
	"github.com/talgya/castaway/internal/oracle"
	"github.com/talgya/castaway/internal/social"
	"github.com/talgya/castaway/internal/world"
)

// Oracle is the external decision/dialogue service as the simulation
// sees it: both operations absorb their own failures.
type Oracle interface {
	Decide(role, prompt string) oracle.Action
	Converse(role, prompt string) string
}

// Store persists mutated world and agent state.
type Store interface {
	economy.Store
	SaveClock(c *world.Clock) error
}

// Simulation holds the complete world state. All agents are owned here;
// every other component refers to them by name through Lookup.
type Simulation struct {
	Cfg   *config.Config
	Grid  *world.Grid
	Clock *world.Clock

	Agents []*agents.Agent // stable insertion order
	index  map[string]*agents.Agent

	Oracle Oracle
	Convo  *social.Coordinator
	Dialog *social.DialogLog
	Chron  *chronicle.Chronicle
	Econ   *economy.Exchange
	Store  Store

	// OnDay runs after each day rollover (snapshots, archival).
	OnDay func(day int)

	mu       sync.RWMutex
	rng      *rand.Rand
	LastTick uint64
}

// NewSimulation wires the systems together.
func NewSimulation(cfg *config.Config, grid *world.Grid, clock *world.Clock,
	ag []*agents.Agent, orc Oracle, chron *chronicle.Chronicle,
	dialog *social.DialogLog, store Store, seed int64) *Simulation {

	index := make(map[string]*agents.Agent, len(ag))
	for _, a := range ag {
		index[a.Name] = a
	}

	restores := make(map[agents.Item]float64, len(cfg.Restores))
	for k, v := range cfg.Restores {
		restores[agents.Item(k)] = v
	}

	return &Simulation{
		Cfg:    cfg,
		Grid:   grid,
		Clock:  clock,
		Agents: ag,
		index:  index,
		Oracle: orc,
		Convo:  social.NewCoordinator(),
		Dialog: dialog,
		Chron:  chron,
		Econ: &economy.Exchange{
			Chron:            chron,
			Store:            store,
			GatherEnergyCost: cfg.GatherEnergyCost,
			Restores:         restores,
		},
		Store: store,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// Lookup resolves an agent by name. Implements social.Registry.
func (s *Simulation) Lookup(name string) *agents.Agent {
	return s.index[name]
}

// Step advances the world by one tick: every living agent runs
// sense → interact → decide → execute → move → integrate in insertion
// order, then the clock advances.
func (s *Simulation) Step(tick uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.LastTick = tick

	for _, a := range s.Agents {
		if a.Dead {
			continue
		}
		s.sense(a)
		s.interact(a, tick)
		act := s.decide(a, tick)
		s.execute(a, act)
		s.move(a)
		s.integrate(a)
	}

	if s.Clock.Advance(s.Cfg.HoursPerTick) {
		s.dailyRollover()
	}
}

// sense recomputes the agent's nearby-agent and nearby-deposit caches.
// Full recompute each tick.
func (s *Simulation) sense(a *agents.Agent) {
	a.NearbyAgents = a.NearbyAgents[:0]
	for _, other := range s.Agents {
		if other == a || other.Dead {
			continue
		}
		if a.DistanceTo(other) < s.Cfg.LoudRange {
			a.NearbyAgents = append(a.NearbyAgents, other.Name)
		}
	}

	a.NearbyDeposits = a.NearbyDeposits[:0]
	for _, dep := range s.Grid.NearbyDeposits(a.X, a.Y, 3) {
		a.NearbyDeposits = append(a.NearbyDeposits, agents.Sensed{
			Kind:   string(dep.Kind),
			X:      dep.X,
			Y:      dep.Y,
			Amount: dep.Amount,
		})
	}
}

// integrate applies passive decay, the death check, persistence, and the
// reflection roll.
func (s *Simulation) integrate(a *agents.Agent) {
	a.SpendEnergy(s.Cfg.PassiveDecay)

	if s.Cfg.VitalsModel == config.VitalsDual && a.Energy < s.Cfg.LowEnergyThreshold {
		a.Health -= s.Cfg.HealthDrain
		if a.Health < 0 {
			a.Health = 0
		}
	}

	fatal := a.Energy <= 0
	if s.Cfg.VitalsModel == config.VitalsDual {
		fatal = a.Health <= 0
	}
	if fatal {
		s.die(a)
		return
	}

	if a.ConvoCooldown > 0 {
		a.ConvoCooldown--
	}

	// Wandering pace varies tick to tick.
	a.Speed = 1.5 + s.rng.Float64()*1.5

	if err := s.Store.SaveAgentState(a.Snapshot()); err != nil {
		slog.Error("agent save failed", "agent", a.Name, "error", err)
	}

	if s.rng.Float64() < s.Cfg.ReflectionChance {
		if summary := a.Memory.Reflect(s.Oracle); summary != "" {
			s.Chron.Add(a.Name, "reflect", a.X, a.Y, summary)
		}
	}
}

// die marks the terminal transition. The session, if any, is torn down
// first so the partner is not left bound to a corpse.
func (s *Simulation) die(a *agents.Agent) {
	if a.InConversation {
		s.Convo.End(a, s, 0, s.Cfg.PartnerCooldownTicks)
	}
	a.Dead = true
	a.Memory.Add("Died of exhaustion", agents.MemState, 10)
	s.Chron.Add(a.Name, "death", a.X, a.Y, "died of exhaustion")
	if err := s.Store.SaveAgentState(a.Snapshot()); err != nil {
		slog.Error("agent save failed", "agent", a.Name, "error", err)
	}
}

// dailyRollover regenerates depleted deposits, re-rolls the weather,
// advances the season, and persists clock and resource state.
func (s *Simulation) dailyRollover() {
	restocked := s.Grid.RefreshDepleted(s.rng, s.Cfg.RegenProbability)
	s.Clock.Weather = world.RollWeather(s.rng)
	s.Clock.AdvanceSeason(s.Cfg.SeasonLengthDays)

	slog.Info("new day",
		"day", s.Clock.Day,
		"season", world.SeasonName(s.Clock.Season),
		"weather", s.Clock.Weather,
		"restocked", restocked,
		"alive", s.aliveCount(),
	)

	if err := s.Store.SaveResources(s.Grid); err != nil {
		slog.Error("resource save failed", "error", err)
	}
	if err := s.Store.SaveClock(s.Clock); err != nil {
		slog.Error("clock save failed", "error", err)
	}
	if s.OnDay != nil {
		s.OnDay(s.Clock.Day)
	}
}

func (s *Simulation) aliveCount() int {
	alive := 0
	for _, a := range s.Agents {
		if !a.Dead {
			alive++
		}
	}
	return alive
}

// Status is a read-only summary for observers.
type Status struct {
	Tick          uint64 `json:"tick"`
	Clock         string `json:"clock"`
	Day           int    `json:"day"`
	Weather       string `json:"weather"`
	Season        string `json:"season"`
	Alive         int    `json:"alive"`
	Conversations int    `json:"conversations"`
	Events        int    `json:"events"`
}

// CurrentStatus snapshots the world summary.
func (s *Simulation) CurrentStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		Tick:          s.LastTick,
		Clock:         s.Clock.String(),
		Day:           s.Clock.Day,
		Weather:       s.Clock.Weather,
		Season:        world.SeasonName(s.Clock.Season),
		Alive:         s.aliveCount(),
		Conversations: s.Convo.ActiveSessions(),
		Events:        s.Chron.Len(),
	}
}

// AgentView is a read-only snapshot of one agent for observers.
type AgentView struct {
	agents.State
	Partner string `json:"partner,omitempty"`
	Talking bool   `json:"talking"`
}

// AgentViews snapshots every agent.
func (s *Simulation) AgentViews() []AgentView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	views := make([]AgentView, len(s.Agents))
	for i, a := range s.Agents {
		views[i] = AgentView{
			State:   a.Snapshot(),
			Partner: a.Partner,
			Talking: a.InConversation,
		}
	}
	return views
}

// AgentView snapshots one agent by name.
func (s *Simulation) AgentView(name string) (AgentView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a := s.index[name]
	if a == nil {
		return AgentView{}, fmt.Errorf("no such agent %q", name)
	}
	return AgentView{State: a.Snapshot(), Partner: a.Partner, Talking: a.InConversation}, nil
}

// AgentMemories returns a copy of the named agent's memory log.
func (s *Simulation) AgentMemories(name string) ([]agents.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a := s.index[name]
	if a == nil {
		return nil, fmt.Errorf("no such agent %q", name)
	}
	return a.Memory.Records(), nil
}

// MapView is a read-only copy of the island for renderers.
type MapView struct {
	Size     int               `json:"size"`
	Terrain  [][]world.Terrain `json:"terrain"`
	Deposits []world.Deposit   `json:"deposits"`
}

// CurrentMap snapshots the terrain and every non-empty deposit.
func (s *Simulation) CurrentMap() MapView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	terrain := make([][]world.Terrain, s.Grid.Size)
	for x := range s.Grid.Terrain {
		terrain[x] = make([]world.Terrain, s.Grid.Size)
		copy(terrain[x], s.Grid.Terrain[x])
	}
	center := float64(s.Grid.Size) / 2
	return MapView{
		Size:     s.Grid.Size,
		Terrain:  terrain,
		Deposits: s.Grid.NearbyDeposits(center, center, s.Grid.Size),
	}
}

// TriggerReflection forces a reflection pass for the named agent.
// Used by the admin command surface.
func (s *Simulation) TriggerReflection(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.index[name]
	if a == nil {
		return "", fmt.Errorf("no such agent %q", name)
	}
	if a.Dead {
		return "", fmt.Errorf("%s is dead", name)
	}
	summary := a.Memory.Reflect(s.Oracle)
	if summary != "" {
		s.Chron.Add(a.Name, "reflect", a.X, a.Y, summary)
	}
	return summary, nil
}
