// Package agents provides the agent data model and the per-agent scored
// memory stream.
package agents

import (
	"math"
)

// Item enumerates carryable inventory items.
type Item string

const (
	ItemWater Item = "water"
	ItemFish  Item = "fish"
	ItemFruit Item = "fruit"
	ItemWood  Item = "wood"
	ItemScrap Item = "scrap"
)

// KnownItem reports whether s names an inventory item.
func KnownItem(s string) bool {
	switch Item(s) {
	case ItemWater, ItemFish, ItemFruit, ItemWood, ItemScrap:
		return true
	}
	return false
}

// Agent is an autonomous inhabitant of the island. Position is
// continuous; the world owns all agents and other components refer to
// them by name through the registry, never by stored pointer.
type Agent struct {
	Name string `json:"name"`

	// Position and movement.
	X                float64 `json:"x"`
	Y                float64 `json:"y"`
	TargetX, TargetY float64 `json:"-"`
	Speed            float64 `json:"-"`

	// Vitals. Health is only drained under the dual vitals policy.
	Energy float64 `json:"energy"`
	Health float64 `json:"health"`
	Dead   bool    `json:"is_dead"`

	// Inventory, bounded per item by Capacity.
	Inventory map[Item]int `json:"inventory"`
	Capacity  map[Item]int `json:"-"`

	// Conversation state. Partner is a name, not a pointer.
	InConversation bool   `json:"-"`
	Partner        string `json:"-"`
	Initiator      bool   `json:"-"`
	ConvoCooldown  int    `json:"-"`
	FirstMeeting   bool   `json:"-"`
	SessionID      string `json:"-"`

	// Cooldown bookkeeping, in ticks.
	LastDecisionTick uint64 `json:"-"`
	LastInteractTick uint64 `json:"-"`
	NextInteractGap  uint64 `json:"-"`

	// Sense caches, recomputed every tick.
	NearbyAgents   []string `json:"-"`
	NearbyDeposits []Sensed `json:"-"`

	Memory *Stream `json:"-"`
}

// Sensed mirrors world.Deposit without importing the world package.
type Sensed struct {
	Kind   string
	X, Y   int
	Amount int
}

// New creates a living agent at the given position with empty inventory.
func New(name string, x, y float64, capacity map[Item]int, mem *Stream) *Agent {
	a := &Agent{
		Name:         name,
		X:            x,
		Y:            y,
		TargetX:      x,
		TargetY:      y,
		Speed:        1.5,
		Energy:       100,
		Health:       100,
		Inventory:    make(map[Item]int),
		Capacity:     capacity,
		FirstMeeting: true,
		Memory:       mem,
	}
	return a
}

// DistanceTo returns the euclidean distance to another agent.
func (a *Agent) DistanceTo(other *Agent) float64 {
	return math.Hypot(a.X-other.X, a.Y-other.Y)
}

// SpendEnergy lowers energy, clamped at zero.
func (a *Agent) SpendEnergy(amount float64) {
	a.Energy = math.Max(0, a.Energy-amount)
}

// RestoreEnergy raises energy, clamped at 100.
func (a *Agent) RestoreEnergy(amount float64) {
	a.Energy = math.Min(100, a.Energy+amount)
}

// Headroom returns how many more units of item the agent can carry.
func (a *Agent) Headroom(item Item) int {
	return a.Capacity[item] - a.Inventory[item]
}

// State is the persisted view of an agent.
type State struct {
	Name      string       `json:"name"`
	X         float64      `json:"x"`
	Y         float64      `json:"y"`
	Energy    float64      `json:"energy"`
	Health    float64      `json:"health"`
	Inventory map[Item]int `json:"inventory"`
	Dead      bool         `json:"is_dead"`
}

// Snapshot captures the persisted fields.
func (a *Agent) Snapshot() State {
	inv := make(map[Item]int, len(a.Inventory))
	for k, v := range a.Inventory {
		inv[k] = v
	}
	return State{
		Name:      a.Name,
		X:         a.X,
		Y:         a.Y,
		Energy:    a.Energy,
		Health:    a.Health,
		Inventory: inv,
		Dead:      a.Dead,
	}
}

// Restore applies a persisted state, keeping capacity and memory intact.
func (a *Agent) Restore(s State) {
	a.X, a.Y = s.X, s.Y
	a.TargetX, a.TargetY = s.X, s.Y
	a.Energy = s.Energy
	a.Health = s.Health
	a.Dead = s.Dead
	if s.Inventory != nil {
		a.Inventory = s.Inventory
	}
}
