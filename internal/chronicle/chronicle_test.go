package chronicle

import "testing"

func TestAddRoundsLocation(t *testing.T) {
	c := New(nil)
	ev := c.Add("Kai", "gather", 3.14159, 2.71828, "fruit")

	if ev.X != 3.1 || ev.Y != 2.7 {
		t.Errorf("location = (%v, %v), want rounded to one decimal", ev.X, ev.Y)
	}
	if ev.ID == "" {
		t.Error("event missing ID")
	}
}

func TestObserversSeeEveryEvent(t *testing.T) {
	c := New(nil)
	var seen []Event
	c.Observe(func(ev Event) { seen = append(seen, ev) })

	c.Add("Kai", "talk", 1, 1, "hello")
	c.Add("Elara", "gather", 2, 2, "water")

	if len(seen) != 2 || seen[1].Agent != "Elara" {
		t.Errorf("observer saw %+v", seen)
	}
}

func TestRecentReturnsTail(t *testing.T) {
	c := New(nil)
	for _, action := range []string{"a", "b", "c", "d"} {
		c.Add("Kai", action, 0, 0, "")
	}

	got := c.Recent(2)
	if len(got) != 2 || got[0].Action != "c" || got[1].Action != "d" {
		t.Errorf("Recent(2) = %+v", got)
	}
	if c.Len() != 4 {
		t.Errorf("Len = %d", c.Len())
	}
}

func TestRestoreReplacesLog(t *testing.T) {
	c := New(nil)
	c.Add("Kai", "x", 0, 0, "")
	c.Restore([]Event{{ID: "1", Action: "restored"}})

	if c.Len() != 1 || c.Recent(1)[0].Action != "restored" {
		t.Error("restore did not replace the log")
	}
}

type countingSaver struct{ calls int }

func (s *countingSaver) SaveChronicle([]Event) error { s.calls++; return nil }

func TestSaverInvokedPerAppend(t *testing.T) {
	saver := &countingSaver{}
	c := New(saver)
	c.Add("Kai", "a", 0, 0, "")
	c.Add("Kai", "b", 0, 0, "")

	if saver.calls != 2 {
		t.Errorf("saver calls = %d, want 2", saver.calls)
	}
}
