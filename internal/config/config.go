// Package config loads simulation tuning from a YAML file with
// hard-coded defaults for every knob.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Vitals policies. The energy model kills an agent the moment energy
// reaches zero. The dual model drains health while energy is low and
// only zero health is fatal.
const (
	VitalsEnergy = "energy"
	VitalsDual   = "dual"
)

// Audibility policies for speech.
const (
	AudibilityRanged = "ranged" // distance/volume gated
	AudibilityGlobal = "global" // everyone hears everything
)

// Config holds all simulation tuning.
type Config struct {
	WorldSize    int    `yaml:"world_size"`
	Seed         int64  `yaml:"seed"`
	TickRate     int    `yaml:"tick_rate"`      // ticks per real second
	HoursPerTick float64 `yaml:"hours_per_tick"` // sim-hours advanced each tick
	DataDir      string `yaml:"data_dir"`

	VitalsModel        string  `yaml:"vitals_model"`
	AudibilityModel    string  `yaml:"audibility_model"`
	PassiveDecay       float64 `yaml:"passive_decay"`
	LowEnergyThreshold float64 `yaml:"low_energy_threshold"`
	HealthDrain        float64 `yaml:"health_drain"`

	NormalRange float64 `yaml:"normal_range"` // normal speech radius
	LoudRange   float64 `yaml:"loud_range"`   // shouting radius, also the sense radius

	DecisionCooldownTicks uint64  `yaml:"decision_cooldown_ticks"`
	InteractMinTicks      uint64  `yaml:"interact_min_ticks"`
	InteractMaxTicks      uint64  `yaml:"interact_max_ticks"`
	ContinueIntervalTicks uint64  `yaml:"continue_interval_ticks"`
	EndProbability        float64 `yaml:"end_probability"` // per-tick chance an active conversation ends
	EnderCooldownTicks    int     `yaml:"ender_cooldown_ticks"`
	PartnerCooldownTicks  int     `yaml:"partner_cooldown_ticks"`
	ReflectionChance      float64 `yaml:"reflection_chance"`

	Capacities map[string]int     `yaml:"capacities"` // item → max carried
	Restores   map[string]float64 `yaml:"restores"`   // item → energy restored on consume

	GatherEnergyCost float64 `yaml:"gather_energy_cost"`
	TalkEnergyCost   float64 `yaml:"talk_energy_cost"`
	MoveEnergyCost   float64 `yaml:"move_energy_cost"`

	RegenProbability float64 `yaml:"regen_probability"` // daily restock chance per depleted cell
	SeasonLengthDays int     `yaml:"season_length_days"`

	Agents []AgentSeed `yaml:"agents"`

	Oracle OracleConfig `yaml:"oracle"`
	API    APIConfig    `yaml:"api"`
}

// AgentSeed describes an agent's starting identity and position.
type AgentSeed struct {
	Name string  `yaml:"name"`
	X    float64 `yaml:"x"`
	Y    float64 `yaml:"y"`
}

// OracleConfig tunes the external decision/dialogue service.
type OracleConfig struct {
	BaseURL            string  `yaml:"base_url"`
	Model              string  `yaml:"model"`
	MinIntervalSeconds float64 `yaml:"min_interval_seconds"` // global gap between any two calls
	ThinkDelayMinMs    int     `yaml:"think_delay_min_ms"`
	ThinkDelayMaxMs    int     `yaml:"think_delay_max_ms"`
}

// APIConfig tunes the HTTP observer API.
type APIConfig struct {
	Port int `yaml:"port"`
}

// Default returns the built-in tuning, matching the reference island setup.
func Default() *Config {
	return &Config{
		WorldSize:    30,
		Seed:         42,
		TickRate:     10,
		HoursPerTick: 0.02,
		DataDir:      "data",

		VitalsModel:        VitalsEnergy,
		AudibilityModel:    AudibilityRanged,
		PassiveDecay:       0.01,
		LowEnergyThreshold: 30,
		HealthDrain:        0.05,

		NormalRange: 10,
		LoudRange:   15,

		DecisionCooldownTicks: 144,
		InteractMinTicks:      200,
		InteractMaxTicks:      400,
		ContinueIntervalTicks: 50,
		EndProbability:        0.01,
		EnderCooldownTicks:    50,
		PartnerCooldownTicks:  30,
		ReflectionChance:      0.1,

		Capacities: map[string]int{
			"water": 7,
			"fish":  4,
			"fruit": 5,
			"wood":  6,
			"scrap": 3,
		},
		Restores: map[string]float64{
			"water": 30,
			"fish":  25,
			"fruit": 20,
		},

		GatherEnergyCost: 5,
		TalkEnergyCost:   2,
		MoveEnergyCost:   0.02,

		RegenProbability: 0.03,
		SeasonLengthDays: 30,

		Agents: []AgentSeed{
			{Name: "Kai", X: 13, Y: 13},
			{Name: "Elara", X: 14, Y: 15},
			{Name: "Jax", X: 15, Y: 14},
		},

		Oracle: OracleConfig{
			BaseURL:            "",
			Model:              "gpt-4o-mini",
			MinIntervalSeconds: 10,
			ThinkDelayMinMs:    1000,
			ThinkDelayMaxMs:    3000,
		},
		API: APIConfig{
			Port: 8080,
		},
	}
}

// Load reads tuning from the given YAML path. A missing file yields the
// defaults; a file that exists but fails to parse is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Info("no config file, using defaults", "path", path)
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}
