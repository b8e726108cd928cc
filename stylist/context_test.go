package stylist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeContextArchetypes(t *testing.T) {
	cases := []struct {
		event     string
		name      string
		formality float64
		rules     []Rule
	}{
		{"Wedding Reception", "wedding", 8, []Rule{RuleModesty}},
		{"office formal meeting", "office", 7, []Rule{RuleOfficeConservative}},
		{"birthday party!", "party", 5, nil},
		{"dinner date", "date", 6, nil},
		{"morning run", "gym", 1, nil},
		{"temple visit", "temple", 5, []Rule{RuleModesty}},
		{"chill at home", "home", 1, nil},
		{"funeral service", "funeral", 6, []Rule{RuleModesty, RuleAvoidWhite}},
		{"Diwali with family", "family", 5, []Rule{RuleModesty}},
		{"errands", EventCasualDaily, 3, nil},
		{"", EventCasualDaily, 3, nil},
		{"networking", EventCasualDaily, 3, nil},
	}
	for _, c := range cases {
		t.Run(c.event, func(t *testing.T) {
			ctx := NormalizeContext(EventInput{Event: c.event})
			assert.Equal(t, c.name, ctx.Event)
			assert.Equal(t, c.formality, ctx.FormalityTarget)
			assert.Equal(t, c.rules, ctx.Rules)
		})
	}
}

func TestNormalizeContextWeatherDefaults(t *testing.T) {
	ctx := NormalizeContext(EventInput{Event: "casual"})
	assert.Equal(t, 25.0, ctx.Temperature)
	assert.Equal(t, 0.0, ctx.RainProbability)
	assert.False(t, ctx.Raining)
	assert.True(t, ctx.Indoor)
	assert.Equal(t, SeasonTransitional, ctx.Season)
	assert.Equal(t, TimeAny, ctx.TimeOfDay)
}

func TestNormalizeContextSeasons(t *testing.T) {
	cases := []struct {
		weather Weather
		season  Season
		raining bool
	}{
		{Weather{Temperature: 32}, SeasonSummer, false},
		{Weather{Temperature: 8}, SeasonWinter, false},
		{Weather{Temperature: 20}, SeasonTransitional, false},
		{Weather{Temperature: 20, RainProbability: 0.45}, SeasonTransitional, true},
		{Weather{Temperature: 32, RainProbability: 0.7}, SeasonMonsoon, true},
		{Weather{Temperature: 20, Condition: "Light Drizzle"}, SeasonMonsoon, true},
		{Weather{Temperature: 20, RainProbability: 3}, SeasonMonsoon, true},
	}
	for _, c := range cases {
		ctx := NormalizeContext(EventInput{Weather: &c.weather})
		assert.Equal(t, c.season, ctx.Season, "%+v", c.weather)
		assert.Equal(t, c.raining, ctx.Raining, "%+v", c.weather)
		assert.LessOrEqual(t, ctx.RainProbability, 1.0)
		assert.Equal(t, ctx.RainProbability > 0.5, ctx.HasRule(RuleMonsoonProtection))
	}
}

func TestNormalizeContextTimeAndHints(t *testing.T) {
	at := func(h int) time.Time { return time.Date(2026, 3, 1, h, 0, 0, 0, time.UTC) }
	assert.Equal(t, TimeMorning, NormalizeContext(EventInput{Time: at(8)}).TimeOfDay)
	assert.Equal(t, TimeAfternoon, NormalizeContext(EventInput{Time: at(14)}).TimeOfDay)
	assert.Equal(t, TimeEvening, NormalizeContext(EventInput{Time: at(19)}).TimeOfDay)
	assert.Equal(t, TimeNight, NormalizeContext(EventInput{Time: at(23)}).TimeOfDay)
	assert.Equal(t, TimeNight, NormalizeContext(EventInput{Time: at(3)}).TimeOfDay)

	ctx := NormalizeContext(EventInput{Event: "dinner in a dress with a jacket"})
	assert.Equal(t, []Slot{SlotLayer, SlotOnePiece}, ctx.RequiredSlots)
}

func TestNormalizeContextDoesNotShareRules(t *testing.T) {
	a := NormalizeContext(EventInput{Event: "wedding", Weather: &Weather{RainProbability: 0.9}})
	b := NormalizeContext(EventInput{Event: "wedding"})
	assert.Equal(t, []Rule{RuleModesty, RuleMonsoonProtection}, a.Rules)
	assert.Equal(t, []Rule{RuleModesty}, b.Rules)
}
