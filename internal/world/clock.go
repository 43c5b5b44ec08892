// World clock: simulated time of day, day counter, season, and weather.
package world

import (
	"fmt"
	"math/rand"
)

// Season indices cycle spring → summer → autumn → winter.
const (
	SeasonSpring = 0
	SeasonSummer = 1
	SeasonAutumn = 2
	SeasonWinter = 3
)

var seasonNames = [4]string{"spring", "summer", "autumn", "winter"}

// SeasonName returns a human-readable season name.
func SeasonName(season uint8) string {
	return seasonNames[season%4]
}

// Weather categories, re-rolled once per day with fixed weights.
var weatherWeights = []struct {
	Name   string
	Weight int
}{
	{"clear", 50},
	{"cloudy", 25},
	{"rain", 15},
	{"storm", 10},
}

// RollWeather draws a weather category from the fixed distribution.
func RollWeather(rng *rand.Rand) string {
	total := 0
	for _, w := range weatherWeights {
		total += w.Weight
	}
	roll := rng.Intn(total)
	for _, w := range weatherWeights {
		if roll < w.Weight {
			return w.Name
		}
		roll -= w.Weight
	}
	return weatherWeights[0].Name
}

// Clock tracks the simulated calendar. Time wraps modulo 24; crossing
// midnight increments Day.
type Clock struct {
	Day     int     `json:"day"`
	Time    float64 `json:"time"`
	Season  uint8   `json:"season"`
	Weather string  `json:"weather"`
}

// NewClock starts at noon on day one, spring, clear skies.
func NewClock() *Clock {
	return &Clock{Day: 1, Time: 12.0, Season: SeasonSpring, Weather: "clear"}
}

// Advance moves time forward by delta hours. Returns true when the day
// rolled over; the caller is responsible for daily effects (resource
// regeneration, weather re-roll).
func (c *Clock) Advance(delta float64) bool {
	c.Time += delta
	if c.Time >= 24 {
		c.Time -= 24
		c.Day++
		return true
	}
	return false
}

// AdvanceSeason recomputes the season for the current day.
func (c *Clock) AdvanceSeason(seasonLengthDays int) {
	if seasonLengthDays <= 0 {
		return
	}
	c.Season = uint8(((c.Day - 1) / seasonLengthDays) % 4)
}

// String renders the clock for prompts and logs, e.g.
// "Day 3, 08:24, spring, rain".
func (c *Clock) String() string {
	hour := int(c.Time)
	minute := int((c.Time - float64(hour)) * 60)
	return fmt.Sprintf("Day %d, %02d:%02d, %s, %s",
		c.Day, hour, minute, SeasonName(c.Season), c.Weather)
}
