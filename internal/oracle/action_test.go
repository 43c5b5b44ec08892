package oracle

import "testing"

func TestParseActionCoordinateTarget(t *testing.T) {
	a, err := ParseAction(`{"action": "move", "target": {"x": 10.5, "y": 7.2}, "details": "heading northeast", "volume": null}`)
	if err != nil {
		t.Fatal(err)
	}
	if a.Kind != ActMove || !a.HasCoord || a.X != 10.5 || a.Y != 7.2 {
		t.Errorf("parsed %+v, want move to (10.5, 7.2)", a)
	}
	if a.Target != "" {
		t.Errorf("coordinate target also set name %q", a.Target)
	}
}

func TestParseActionNamedTarget(t *testing.T) {
	a, err := ParseAction(`{"action": "talk", "target": "Elara", "details": "hello there", "volume": "loud"}`)
	if err != nil {
		t.Fatal(err)
	}
	if a.Kind != ActTalk || a.Target != "Elara" || a.HasCoord {
		t.Errorf("parsed %+v, want talk to Elara", a)
	}
	if a.Volume != "loud" {
		t.Errorf("volume = %q, want loud", a.Volume)
	}
}

func TestParseActionNullTargetAndDefaultVolume(t *testing.T) {
	a, err := ParseAction(`{"action": "rest", "target": null, "details": "tired"}`)
	if err != nil {
		t.Fatal(err)
	}
	if a.Kind != ActRest || a.HasCoord || a.Target != "" {
		t.Errorf("parsed %+v, want plain rest", a)
	}
	if a.Volume != "normal" {
		t.Errorf("volume = %q, want normal default", a.Volume)
	}
}

func TestParseActionGivePayload(t *testing.T) {
	a, err := ParseAction(`{"action": "give", "target": "Jax", "details": "water,2", "volume": null}`)
	if err != nil {
		t.Fatal(err)
	}
	if a.Kind != ActGive || a.Target != "Jax" || a.Details != "water,2" {
		t.Errorf("parsed %+v", a)
	}
}

func TestParseActionRejectsUnknownAction(t *testing.T) {
	if _, err := ParseAction(`{"action": "fly", "target": null}`); err == nil {
		t.Error("unknown action accepted")
	}
}

func TestParseActionRejectsNonJSON(t *testing.T) {
	if _, err := ParseAction("I think I will rest now"); err == nil {
		t.Error("prose accepted as action")
	}
}

func TestParseActionRejectsMissingAction(t *testing.T) {
	if _, err := ParseAction(`{"target": "Elara"}`); err == nil {
		t.Error("payload without action field accepted")
	}
}

func TestParseActionCaseInsensitiveKind(t *testing.T) {
	// Schema enumerates lowercase; case folding applies to the map
	// lookup only, so uppercase is rejected at validation.
	if _, err := ParseAction(`{"action": "MOVE", "target": null}`); err == nil {
		t.Error("uppercase action passed schema validation")
	}
}

func TestDefaults(t *testing.T) {
	if d := DefaultAction(); d.Kind != ActRest {
		t.Errorf("DefaultAction kind = %v, want rest", d.Kind)
	}
	if i := IdleAction(); i.Kind != ActIdle {
		t.Errorf("IdleAction kind = %v, want idle", i.Kind)
	}
}

func TestKindString(t *testing.T) {
	if ActGather.String() != "gather" {
		t.Errorf("ActGather.String() = %q", ActGather.String())
	}
	if Kind(200).String() != "idle" {
		t.Errorf("unknown kind String() = %q, want idle fallback", Kind(200).String())
	}
}
