// Structured action decoding: the service's JSON payload is validated
// against a schema and parsed into a tagged Action value. Any failure
// collapses to the rest default; unrecognized tags never propagate.
package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Kind tags an action variant.
type Kind uint8

const (
	ActIdle Kind = iota
	ActRest
	ActMove
	ActGather
	ActEat
	ActDrink
	ActTalk
	ActGive
	ActReflect
)

var kindNames = map[string]Kind{
	"idle":    ActIdle,
	"rest":    ActRest,
	"move":    ActMove,
	"gather":  ActGather,
	"eat":     ActEat,
	"drink":   ActDrink,
	"talk":    ActTalk,
	"give":    ActGive,
	"reflect": ActReflect,
}

func (k Kind) String() string {
	for name, kind := range kindNames {
		if kind == k {
			return name
		}
	}
	return "idle"
}

// Action is the decoded decision. Exactly one target form is populated:
// a coordinate (HasCoord) for move/gather, a name or resource-kind
// string for talk/give/gather, or none.
type Action struct {
	Kind     Kind
	X, Y     float64
	HasCoord bool
	Target   string
	Details  string
	Volume   string
}

// DefaultAction is the documented fallback for every failure path.
func DefaultAction() Action {
	return Action{Kind: ActRest, Details: "resting for a moment"}
}

// IdleAction is the no-op used between decision cooldowns.
func IdleAction() Action {
	return Action{Kind: ActIdle, Details: "no action"}
}

// actionSchema constrains the raw payload before parsing.
const actionSchema = `{
	"type": "object",
	"required": ["action"],
	"properties": {
		"action": {
			"type": "string",
			"enum": ["move", "gather", "eat", "drink", "give", "talk", "reflect", "rest", "idle"]
		},
		"target": {
			"oneOf": [
				{"type": "null"},
				{"type": "string"},
				{
					"type": "object",
					"required": ["x", "y"],
					"properties": {
						"x": {"type": "number"},
						"y": {"type": "number"}
					}
				}
			]
		},
		"details": {"type": ["string", "null"]},
		"volume": {"type": ["string", "null"], "enum": ["normal", "loud", null]}
	}
}`

var compiledSchema = jsonschema.MustCompileString("action.json", actionSchema)

// payload mirrors the wire shape; target is deferred because it can be
// null, a string, or a coordinate object.
type payload struct {
	Action  string          `json:"action"`
	Target  json.RawMessage `json:"target"`
	Details string          `json:"details"`
	Volume  *string         `json:"volume"`
}

// ParseAction strictly decodes a JSON action payload.
func ParseAction(raw string) (Action, error) {
	var generic any
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return Action{}, fmt.Errorf("action payload is not JSON: %w", err)
	}
	if err := compiledSchema.Validate(generic); err != nil {
		return Action{}, fmt.Errorf("action payload rejected: %w", err)
	}

	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Action{}, fmt.Errorf("decode action: %w", err)
	}

	kind, ok := kindNames[strings.ToLower(p.Action)]
	if !ok {
		return Action{}, fmt.Errorf("unknown action %q", p.Action)
	}

	a := Action{Kind: kind, Details: p.Details, Volume: "normal"}
	if p.Volume != nil {
		a.Volume = *p.Volume
	}

	if len(p.Target) > 0 && string(p.Target) != "null" {
		var coord struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		}
		if err := json.Unmarshal(p.Target, &coord); err == nil && p.Target[0] == '{' {
			a.X, a.Y = coord.X, coord.Y
			a.HasCoord = true
		} else {
			var name string
			if err := json.Unmarshal(p.Target, &name); err == nil {
				a.Target = name
			}
		}
	}
	return a, nil
}
