package engine

import (
	"strings"
	"testing"

	"github.com/talgya/castaway/internal/agents"
	"github.com/talgya/castaway/internal/chronicle"
	"github.com/talgya/castaway/internal/config"
	"github.com/talgya/castaway/internal/oracle"
	"github.com/talgya/castaway/internal/social"
	"github.com/talgya/castaway/internal/world"
)

type nopStore struct{}

func (nopStore) SaveAgentState(agents.State) error { return nil }
func (nopStore) SaveResources(*world.Grid) error   { return nil }
func (nopStore) SaveClock(*world.Clock) error      { return nil }

// scriptOracle returns queued actions and a fixed conversational reply.
type scriptOracle struct {
	actions       []oracle.Action
	reply         string
	decideCalls   int
	converseCalls int
}

func (o *scriptOracle) Decide(role, prompt string) oracle.Action {
	o.decideCalls++
	if len(o.actions) == 0 {
		return oracle.IdleAction()
	}
	a := o.actions[0]
	o.actions = o.actions[1:]
	return a
}

func (o *scriptOracle) Converse(role, prompt string) string {
	o.converseCalls++
	return o.reply
}

func grassGrid(size int) *world.Grid {
	g := world.NewGrid(size)
	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			g.Terrain[x][y] = world.TerrainGrass
		}
	}
	return g
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.ReflectionChance = 0 // keep the oracle out of integrate
	cfg.EndProbability = 0
	return cfg
}

func newAgent(cfg *config.Config, name string, x, y float64) *agents.Agent {
	caps := make(map[agents.Item]int, len(cfg.Capacities))
	for k, v := range cfg.Capacities {
		caps[agents.Item(k)] = v
	}
	return agents.New(name, x, y, caps, agents.NewStream(name, nil))
}

func newTestSim(cfg *config.Config, g *world.Grid, orc Oracle, cast ...*agents.Agent) *Simulation {
	return NewSimulation(cfg, g, world.NewClock(), cast, orc,
		chronicle.New(nil), social.NewDialogLog(nil), nopStore{}, 1)
}

func TestDecideRespectsCooldown(t *testing.T) {
	cfg := testConfig()
	orc := &scriptOracle{}
	a := newAgent(cfg, "Kai", 5, 5)
	s := newTestSim(cfg, grassGrid(10), orc, a)

	if act := s.decide(a, 100); act.Kind != oracle.ActIdle {
		t.Errorf("decide before cooldown = %+v, want idle", act)
	}
	if orc.decideCalls != 0 {
		t.Error("oracle consulted before the cooldown elapsed")
	}

	if s.decide(a, cfg.DecisionCooldownTicks); orc.decideCalls != 1 {
		t.Errorf("decide calls = %d, want 1 once the cooldown elapsed", orc.decideCalls)
	}
	if a.LastDecisionTick != cfg.DecisionCooldownTicks {
		t.Errorf("LastDecisionTick = %d", a.LastDecisionTick)
	}
}

func TestDecideIdlesDuringConversation(t *testing.T) {
	cfg := testConfig()
	orc := &scriptOracle{}
	a := newAgent(cfg, "Kai", 5, 5)
	a.InConversation = true
	s := newTestSim(cfg, grassGrid(10), orc, a)

	if act := s.decide(a, 10*cfg.DecisionCooldownTicks); act.Kind != oracle.ActIdle {
		t.Error("talking agent did not idle")
	}
	if orc.decideCalls != 0 {
		t.Error("oracle consulted mid-conversation")
	}
}

func TestExecuteGatherByCoordinate(t *testing.T) {
	cfg := testConfig()
	g := grassGrid(10)
	g.Kind[5][5] = world.ResourceFreshwater
	g.Amount[5][5] = 8

	a := newAgent(cfg, "Kai", 5.2, 5.3)
	s := newTestSim(cfg, g, &scriptOracle{}, a)
	s.sense(a)

	s.execute(a, oracle.Action{Kind: oracle.ActGather, X: 5, Y: 5, HasCoord: true})

	if a.Inventory[agents.ItemWater] != 5 {
		t.Errorf("water = %d, want yield 5", a.Inventory[agents.ItemWater])
	}
	if g.Amount[5][5] != 3 {
		t.Errorf("deposit = %d, want 3", g.Amount[5][5])
	}
}

func TestExecuteGatherFarCoordinateMovesToward(t *testing.T) {
	cfg := testConfig()
	g := grassGrid(10)
	g.Kind[9][9] = world.ResourceFruit
	g.Amount[9][9] = 4

	a := newAgent(cfg, "Kai", 1, 1)
	s := newTestSim(cfg, g, &scriptOracle{}, a)
	s.sense(a)

	s.execute(a, oracle.Action{Kind: oracle.ActGather, X: 9, Y: 9, HasCoord: true, Details: "fruit run"})

	if a.TargetX != 9 || a.TargetY != 9 {
		t.Errorf("movement target = (%v, %v), want (9, 9)", a.TargetX, a.TargetY)
	}
	if a.Inventory[agents.ItemFruit] != 0 {
		t.Error("gathered from a deposit outside the sense window")
	}
	records := a.Memory.Records()
	if len(records) != 1 || !strings.Contains(records[0].Content, "head to (9, 9)") {
		t.Error("far gather did not record the movement intent")
	}
}

func TestExecuteGatherByKind(t *testing.T) {
	cfg := testConfig()
	g := grassGrid(10)
	g.Kind[6][5] = world.ResourceFruit
	g.Amount[6][5] = 4

	a := newAgent(cfg, "Kai", 5, 5)
	s := newTestSim(cfg, g, &scriptOracle{}, a)
	s.sense(a)

	s.execute(a, oracle.Action{Kind: oracle.ActGather, Target: "fruit"})

	if a.Inventory[agents.ItemFruit] != 4 {
		t.Errorf("fruit = %d, want 4", a.Inventory[agents.ItemFruit])
	}
}

func TestExecuteGatherNothingThere(t *testing.T) {
	cfg := testConfig()
	a := newAgent(cfg, "Kai", 5, 5)
	s := newTestSim(cfg, grassGrid(10), &scriptOracle{}, a)
	s.sense(a)

	s.execute(a, oracle.Action{Kind: oracle.ActGather, Target: "fish"})

	records := a.Memory.Records()
	if len(records) != 1 || !strings.Contains(records[0].Content, "nothing like that") {
		t.Error("missing-deposit gather not recorded in memory")
	}
}

func TestExecuteMoveSetsTarget(t *testing.T) {
	cfg := testConfig()
	a := newAgent(cfg, "Kai", 5, 5)
	s := newTestSim(cfg, grassGrid(10), &scriptOracle{}, a)

	s.execute(a, oracle.Action{Kind: oracle.ActMove, X: 40, Y: -3, HasCoord: true, Details: "exploring"})

	if a.TargetX != 9 || a.TargetY != 0 {
		t.Errorf("target = (%v, %v), want clamped (9, 0)", a.TargetX, a.TargetY)
	}
}

func TestExecuteGiveParsesDetails(t *testing.T) {
	cfg := testConfig()
	a := newAgent(cfg, "Kai", 5, 5)
	b := newAgent(cfg, "Elara", 5.1, 5)
	a.Inventory[agents.ItemWater] = 3
	s := newTestSim(cfg, grassGrid(10), &scriptOracle{}, a, b)

	s.execute(a, oracle.Action{Kind: oracle.ActGive, Target: "Elara", Details: "water,2"})

	if a.Inventory[agents.ItemWater] != 1 || b.Inventory[agents.ItemWater] != 2 {
		t.Errorf("after give: %d/%d, want 1/2",
			a.Inventory[agents.ItemWater], b.Inventory[agents.ItemWater])
	}
}

func TestExecuteGiveMalformedDetails(t *testing.T) {
	cfg := testConfig()
	a := newAgent(cfg, "Kai", 5, 5)
	b := newAgent(cfg, "Elara", 5.1, 5)
	a.Inventory[agents.ItemWater] = 3
	s := newTestSim(cfg, grassGrid(10), &scriptOracle{}, a, b)

	s.execute(a, oracle.Action{Kind: oracle.ActGive, Target: "Elara", Details: "some water please"})

	if a.Inventory[agents.ItemWater] != 3 {
		t.Error("malformed give moved items")
	}
	records := a.Memory.Records()
	if len(records) == 0 {
		t.Error("malformed give left no memory")
	}
}

func TestMoveStepsTowardTarget(t *testing.T) {
	cfg := testConfig()
	a := newAgent(cfg, "Kai", 5, 5)
	a.Speed = 2
	a.TargetX, a.TargetY = 8, 5
	s := newTestSim(cfg, grassGrid(10), &scriptOracle{}, a)

	s.move(a)

	if a.X <= 5 || a.X > 5.21 {
		t.Errorf("X = %v, want one 0.2 step toward the target", a.X)
	}
	if a.Energy >= 100 {
		t.Error("movement cost not charged")
	}
}

func TestMoveDetoursAroundWater(t *testing.T) {
	cfg := testConfig()
	g := grassGrid(10)
	g.Terrain[3][2] = world.TerrainWater

	a := newAgent(cfg, "Kai", 2.9, 2.5)
	a.Speed = 2
	a.TargetX, a.TargetY = 5.9, 4.5
	s := newTestSim(cfg, g, &scriptOracle{}, a)

	s.move(a)

	if int(a.X) == 3 {
		t.Fatalf("agent entered water tile at X = %v", a.X)
	}
	if a.Y <= 2.5 {
		t.Errorf("Y = %v, want detour progress along the smaller axis", a.Y)
	}
}

func TestMoveBoxedInByWater(t *testing.T) {
	cfg := testConfig()
	g := world.NewGrid(5) // all water
	g.Terrain[2][2] = world.TerrainGrass

	a := newAgent(cfg, "Kai", 2.9, 2.9)
	a.Speed = 2
	a.TargetX, a.TargetY = 4.5, 4.5
	s := newTestSim(cfg, g, &scriptOracle{}, a)

	x, y := a.X, a.Y
	s.move(a)

	if a.X != x || a.Y != y {
		t.Errorf("boxed-in agent moved to (%v, %v)", a.X, a.Y)
	}
}

func TestMovePinnedDuringConversation(t *testing.T) {
	cfg := testConfig()
	a := newAgent(cfg, "Kai", 5, 5)
	a.InConversation = true
	a.TargetX = 8
	s := newTestSim(cfg, grassGrid(10), &scriptOracle{}, a)

	s.move(a)
	if a.X != 5 {
		t.Error("talking agent moved")
	}
}

func TestIntegrateDeathIsTerminal(t *testing.T) {
	cfg := testConfig()
	orc := &scriptOracle{}
	a := newAgent(cfg, "Kai", 5, 5)
	a.Energy = 0.005
	s := newTestSim(cfg, grassGrid(10), orc, a)

	s.integrate(a)

	if !a.Dead {
		t.Fatal("agent with exhausted energy still alive")
	}
	records := a.Memory.Records()
	if len(records) == 0 || records[len(records)-1].Content != "Died of exhaustion" {
		t.Error("death not recorded in memory")
	}

	// Dead agents take no further part in the cycle.
	before := orc.decideCalls
	s.Step(cfg.DecisionCooldownTicks * 2)
	if orc.decideCalls != before {
		t.Error("dead agent consulted the oracle")
	}
	if !a.Dead {
		t.Error("death was not terminal")
	}
}

func TestDualVitalsDrainHealth(t *testing.T) {
	cfg := testConfig()
	cfg.VitalsModel = config.VitalsDual
	a := newAgent(cfg, "Kai", 5, 5)
	a.Energy = 10 // below the low-energy threshold
	s := newTestSim(cfg, grassGrid(10), &scriptOracle{}, a)

	s.integrate(a)

	if a.Dead {
		t.Fatal("dual-model agent died with health remaining")
	}
	if a.Health >= 100 {
		t.Errorf("health = %v, want drained", a.Health)
	}
}

func TestDeathEndsConversation(t *testing.T) {
	cfg := testConfig()
	a := newAgent(cfg, "Kai", 5, 5)
	b := newAgent(cfg, "Elara", 5.2, 5)
	s := newTestSim(cfg, grassGrid(10), &scriptOracle{}, a, b)

	if s.Convo.Start(a, b, 1) == nil {
		t.Fatal("session failed to start")
	}
	a.Energy = 0.001
	s.integrate(a)

	if b.InConversation || b.Partner != "" {
		t.Error("partner still bound to a dead agent")
	}
	if b.ConvoCooldown != cfg.PartnerCooldownTicks {
		t.Errorf("partner cooldown = %d, want %d", b.ConvoCooldown, cfg.PartnerCooldownTicks)
	}
}

func TestFirstMeetingForcesGreeting(t *testing.T) {
	cfg := testConfig()
	orc := &scriptOracle{reply: "Oh, hello!"}
	a := newAgent(cfg, "Kai", 5, 5)
	b := newAgent(cfg, "Elara", 6, 5)
	s := newTestSim(cfg, grassGrid(10), orc, a, b)

	s.sense(a)
	s.interact(a, 1)

	if !a.InConversation || !b.InConversation {
		t.Fatal("first meeting did not open a conversation")
	}
	if a.FirstMeeting {
		t.Error("first-meeting flag survives the greeting")
	}
	if orc.converseCalls == 0 {
		t.Error("partner never asked to answer the greeting")
	}

	heard := false
	for _, rec := range b.Memory.Records() {
		if strings.Contains(rec.Content, "Heard Kai say") {
			heard = true
		}
	}
	if !heard {
		t.Error("greeting never reached the partner's memory")
	}
}

func TestInteractRespectsCooldown(t *testing.T) {
	cfg := testConfig()
	a := newAgent(cfg, "Kai", 5, 5)
	b := newAgent(cfg, "Elara", 6, 5)
	a.ConvoCooldown = 10
	s := newTestSim(cfg, grassGrid(10), &scriptOracle{reply: "hi"}, a, b)

	s.sense(a)
	s.interact(a, 1)

	if a.InConversation {
		t.Error("cooling-down agent started a conversation")
	}
}

func TestSpeakOutOfRangeNotHeard(t *testing.T) {
	cfg := testConfig()
	a := newAgent(cfg, "Kai", 5, 5)
	b := newAgent(cfg, "Elara", 5+cfg.NormalRange+1, 5) // inside loud, outside normal
	s := newTestSim(cfg, grassGrid(30), &scriptOracle{}, a, b)

	s.sense(a)
	s.speak(a, "anyone there?", "normal")

	for _, rec := range b.Memory.Records() {
		if strings.Contains(rec.Content, "Heard") {
			t.Fatal("normal speech heard beyond its range")
		}
	}

	s.speak(a, "HELLO!", "loud")
	heard := false
	for _, rec := range b.Memory.Records() {
		if strings.Contains(rec.Content, "Heard Kai say") {
			heard = true
		}
	}
	if !heard {
		t.Error("loud speech not heard inside the loud range")
	}
}

func TestGlobalAudibility(t *testing.T) {
	cfg := testConfig()
	cfg.AudibilityModel = config.AudibilityGlobal
	a := newAgent(cfg, "Kai", 1, 1)
	b := newAgent(cfg, "Elara", 28, 28) // well past any hearing range
	s := newTestSim(cfg, grassGrid(30), &scriptOracle{}, a, b)

	s.sense(a)
	if len(a.NearbyAgents) != 0 {
		t.Fatal("far agent unexpectedly sensed")
	}
	s.speak(a, "island meeting!", "normal")

	heard := false
	for _, rec := range b.Memory.Records() {
		if strings.Contains(rec.Content, "Heard Kai say") {
			heard = true
		}
	}
	if !heard {
		t.Error("global audibility did not reach an agent beyond the sense radius")
	}
}

func TestTalkBroadcastsToBusyTarget(t *testing.T) {
	cfg := testConfig()
	a := newAgent(cfg, "Kai", 5, 5)
	b := newAgent(cfg, "Elara", 6, 5)
	c := newAgent(cfg, "Jax", 6, 6)
	s := newTestSim(cfg, grassGrid(10), &scriptOracle{}, a, b, c)
	if s.Convo.Start(b, c, 0) == nil {
		t.Fatal("could not pair Elara and Jax")
	}

	s.sense(a)
	s.execute(a, oracle.Action{Kind: oracle.ActTalk, Target: "Elara", Details: "Found fresh water!"})

	heard := false
	for _, rec := range b.Memory.Records() {
		if strings.Contains(rec.Content, "Heard Kai say: Found fresh water!") {
			heard = true
		}
	}
	if !heard {
		t.Error("utterance to a busy target was dropped instead of broadcast")
	}
	if a.InConversation {
		t.Error("talk opened a session outside the interact step")
	}
	if b.Partner != "Jax" || c.Partner != "Elara" {
		t.Error("talk disturbed the existing session")
	}
}

func TestTalkRequiresDetails(t *testing.T) {
	cfg := testConfig()
	a := newAgent(cfg, "Kai", 5, 5)
	b := newAgent(cfg, "Elara", 6, 5)
	s := newTestSim(cfg, grassGrid(10), &scriptOracle{}, a, b)

	s.sense(a)
	s.execute(a, oracle.Action{Kind: oracle.ActTalk, Target: "Elara"})

	if len(a.Memory.Records()) != 0 || len(b.Memory.Records()) != 0 {
		t.Error("talk without details produced speech")
	}
	if a.Energy != 100 {
		t.Error("talk without details cost energy")
	}
}

func TestStepAdvancesClockAndRollsDay(t *testing.T) {
	cfg := testConfig()
	a := newAgent(cfg, "Kai", 5, 5)
	s := newTestSim(cfg, grassGrid(10), &scriptOracle{}, a)
	s.Clock.Time = 23.99

	var rolledTo int
	s.OnDay = func(day int) { rolledTo = day }

	s.Step(1)

	if s.Clock.Day != 2 {
		t.Errorf("Day = %d, want 2", s.Clock.Day)
	}
	if rolledTo != 2 {
		t.Errorf("OnDay called with %d, want 2", rolledTo)
	}
}

func TestCurrentStatus(t *testing.T) {
	cfg := testConfig()
	a := newAgent(cfg, "Kai", 5, 5)
	s := newTestSim(cfg, grassGrid(10), &scriptOracle{}, a)
	s.Step(7)

	st := s.CurrentStatus()
	if st.Tick != 7 || st.Alive != 1 {
		t.Errorf("status = %+v", st)
	}
}

func TestAgentViewUnknownName(t *testing.T) {
	cfg := testConfig()
	s := newTestSim(cfg, grassGrid(10), &scriptOracle{}, newAgent(cfg, "Kai", 5, 5))
	if _, err := s.AgentView("Nobody"); err == nil {
		t.Error("unknown agent name accepted")
	}
}
