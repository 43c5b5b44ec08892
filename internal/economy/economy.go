// Package economy implements the resource economy: gathering from world
// deposits, consuming from inventory, and giving between agents.
//
// Every operation preserves 0 <= inventory <= capacity. Requests beyond
// the clamp are partially fulfilled and the shortfall is always explained
// in the acting agent's memory.
package economy

import (
	"fmt"

	"github.com/talgya/castaway/internal/agents"
	"github.com/talgya/castaway/internal/chronicle"
	"github.com/talgya/castaway/internal/world"
)

// GiveRange is the maximum distance between two agents for a transfer.
const GiveRange = 0.5

// yield maps a deposit kind to the carried item, the per-gather amount,
// and a display name for memories and events.
var yield = map[world.ResourceKind]struct {
	Item   agents.Item
	Amount int
	Name   string
}{
	world.ResourceFreshwater: {agents.ItemWater, 5, "freshwater spring"},
	world.ResourceFish:       {agents.ItemFish, 2, "fish shoal"},
	world.ResourceFruit:      {agents.ItemFruit, 4, "fruit tree"},
	world.ResourceTree:       {agents.ItemWood, 3, "tree"},
	world.ResourceWreckage:   {agents.ItemScrap, 3, "wreckage"},
}

// Yield returns the item and per-gather amount for a deposit kind.
func Yield(kind world.ResourceKind) (agents.Item, int, bool) {
	y, ok := yield[kind]
	return y.Item, y.Amount, ok
}

// Store persists mutated state after an operation.
type Store interface {
	SaveAgentState(state agents.State) error
	SaveResources(g *world.Grid) error
}

// Exchange executes economy operations against shared state.
type Exchange struct {
	Chron *chronicle.Chronicle
	Store Store

	GatherEnergyCost float64
	Restores         map[agents.Item]float64 // item → energy restored per unit consumed
}

// Gather takes from a deposit into the agent's inventory. The amount is
// clamped to min(per-gather yield, cell stock, remaining capacity); a
// clamp to zero records a capacity-exhaustion memory and mutates nothing.
func (e *Exchange) Gather(a *agents.Agent, g *world.Grid, dep world.Deposit) error {
	if a.Dead {
		return nil
	}
	y, ok := yield[dep.Kind]
	if !ok {
		a.Memory.Add(fmt.Sprintf("Tried to gather from an unknown deposit (%s)", dep.Kind), agents.MemAction, 4)
		return nil
	}

	cell := g.Amount[dep.X][dep.Y]
	taken := min(y.Amount, cell, a.Headroom(y.Item))
	if taken <= 0 {
		a.Memory.Add(fmt.Sprintf("Wanted to gather from the %s, but can't carry more %s (limit %d)",
			y.Name, y.Item, a.Capacity[y.Item]), agents.MemAction, 7)
		return nil
	}

	a.Inventory[y.Item] += taken
	g.Amount[dep.X][dep.Y] = cell - taken
	a.SpendEnergy(e.GatherEnergyCost)

	a.Memory.Add(fmt.Sprintf("Gathered from the %s: %d %s, %d left in the deposit",
		y.Name, taken, y.Item, g.Amount[dep.X][dep.Y]), agents.MemAction, 7)
	e.Chron.Add(a.Name, "gather", a.X, a.Y,
		fmt.Sprintf("gathered %d %s from the %s", taken, y.Item, y.Name))

	if err := e.Store.SaveResources(g); err != nil {
		return fmt.Errorf("save resources after gather: %w", err)
	}
	return nil
}

// Eat consumes one unit of food, preferring fruit over fish. An empty
// larder records a "nothing to consume" memory and mutates nothing.
func (e *Exchange) Eat(a *agents.Agent) error {
	if a.Dead {
		return nil
	}
	item := agents.ItemFruit
	if a.Inventory[item] == 0 {
		item = agents.ItemFish
	}
	if a.Inventory[item] == 0 {
		a.Memory.Add("Wanted to eat, but there is no fish or fruit left", agents.MemAction, 6)
		e.Chron.Add(a.Name, "eat-attempt", a.X, a.Y, "nothing edible left")
		return nil
	}
	return e.consume(a, item, "eat")
}

// Drink consumes one unit of water.
func (e *Exchange) Drink(a *agents.Agent) error {
	if a.Dead {
		return nil
	}
	if a.Inventory[agents.ItemWater] == 0 {
		a.Memory.Add("Wanted to drink, but there is no water left", agents.MemAction, 6)
		e.Chron.Add(a.Name, "drink-attempt", a.X, a.Y, "no water left")
		return nil
	}
	return e.consume(a, agents.ItemWater, "drink")
}

func (e *Exchange) consume(a *agents.Agent, item agents.Item, action string) error {
	restore := e.Restores[item]
	a.Inventory[item]--
	a.RestoreEnergy(restore)

	a.Memory.Add(fmt.Sprintf("Consumed 1 %s, energy back up to %.0f. %d %s left",
		item, a.Energy, a.Inventory[item], item), agents.MemAction, 7)
	e.Chron.Add(a.Name, action, a.X, a.Y,
		fmt.Sprintf("consumed 1 %s, energy +%.0f", item, restore))

	if err := e.Store.SaveAgentState(a.Snapshot()); err != nil {
		return fmt.Errorf("save agent after consume: %w", err)
	}
	return nil
}

// Give transfers items between two co-located living agents. The amount
// is clamped to min(requested, giver stock, receiver headroom); a clamp
// to zero records a failure memory on the initiator and mutates nothing.
func (e *Exchange) Give(from, to *agents.Agent, item agents.Item, amount int) error {
	if from.Dead || to.Dead {
		return nil
	}
	if !agents.KnownItem(string(item)) {
		from.Memory.Add(fmt.Sprintf("Can't give away an unknown thing: %s", item), agents.MemAction, 5)
		return nil
	}
	if from.DistanceTo(to) > GiveRange {
		from.Memory.Add(fmt.Sprintf("Tried to give %s some %s, but we're not in the same spot",
			to.Name, item), agents.MemAction, 5)
		return nil
	}

	moved := min(amount, from.Inventory[item], to.Headroom(item))
	if moved <= 0 {
		from.Memory.Add(fmt.Sprintf("Tried to give %s %d %s, but I'm out or they can't carry more",
			to.Name, amount, item), agents.MemAction, 5)
		return nil
	}

	from.Inventory[item] -= moved
	to.Inventory[item] += moved

	note := ""
	if moved < amount {
		note = fmt.Sprintf(" (wanted to give %d, but that was all that fit)", amount)
	}
	from.Memory.Add(fmt.Sprintf("Gave %s %d %s, %d left for me%s",
		to.Name, moved, item, from.Inventory[item], note), agents.MemCommunication, 7)
	to.Memory.Add(fmt.Sprintf("Received %d %s from %s, now carrying %d",
		moved, item, from.Name, to.Inventory[item]), agents.MemCommunication, 7)
	e.Chron.Add(from.Name, "give", from.X, from.Y,
		fmt.Sprintf("gave %s %d %s", to.Name, moved, item))

	if err := e.Store.SaveAgentState(from.Snapshot()); err != nil {
		return fmt.Errorf("save giver after give: %w", err)
	}
	if err := e.Store.SaveAgentState(to.Snapshot()); err != nil {
		return fmt.Errorf("save receiver after give: %w", err)
	}
	return nil
}
