package stylist

import (
	"slices"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	defaultTemperature = 25.0

	rainyThreshold   = 0.4
	monsoonThreshold = 0.5
	rainyCondition   = 0.6

	winterBelow = 15.0
	summerAbove = 28.0

	EventCasualDaily = "casual_daily"
)

// Weather is the optional weather signal of a request.
type Weather struct {
	Temperature     float64 `json:"temperature"`
	Condition       string  `json:"condition"`
	RainProbability float64 `json:"rain_probability"`
	Indoor          bool    `json:"indoor"`
}

// EventInput is the raw, free-form request the normalizer turns into a Context.
type EventInput struct {
	Event      string    `json:"event"`
	Weather    *Weather  `json:"weather,omitempty"`
	Time       time.Time `json:"time"`
	Location   string    `json:"location,omitempty"`
	GenderHint string    `json:"gender_hint,omitempty"`
}

type archetype struct {
	name      string
	keywords  []string
	formality float64
	mood      string
	rules     []Rule
}

// Order matters: the first archetype with a matching keyword wins.
var archetypes = []archetype{
	{"wedding", []string{"wedding", "marriage", "reception", "sangeet", "engagement"}, 8, "festive", []Rule{RuleModesty}},
	{"office", []string{"office", "work", "meeting", "interview", "business", "conference", "presentation"}, 7, "professional", []Rule{RuleOfficeConservative}},
	{"party", []string{"party", "club", "night out", "birthday", "concert"}, 5, "playful", nil},
	{"date", []string{"date", "dinner", "romantic", "anniversary"}, 6, "romantic", nil},
	{"gym", []string{"gym", "workout", "run", "yoga", "sport", "training"}, 1, "energetic", nil},
	{"temple", []string{"temple", "pooja", "puja", "church", "mosque", "gurudwara", "prayer", "religious"}, 5, "reverent", []Rule{RuleModesty}},
	{"home", []string{"home", "relax", "lounge", "chill", "sleep"}, 1, "relaxed", nil},
	{"funeral", []string{"funeral", "cremation", "memorial", "condolence"}, 6, "somber", []Rule{RuleModesty, RuleAvoidWhite}},
	{"family", []string{"family", "relatives", "festival", "diwali", "eid"}, 5, "warm", []Rule{RuleModesty}},
}

var casualDaily = archetype{EventCasualDaily, nil, 3, "easygoing", nil}

var slotHints = map[string]Slot{
	"blazer":   SlotLayer,
	"jacket":   SlotLayer,
	"coat":     SlotLayer,
	"cardigan": SlotLayer,
	"dress":    SlotOnePiece,
	"saree":    SlotOnePiece,
	"jumpsuit": SlotOnePiece,
	"gown":     SlotOnePiece,
}

var rainWords = []string{"rain", "drizzle", "shower", "storm", "thunder"}

// NormalizeContext derives the situational context from a raw request. It is
// a pure function of its input.
func NormalizeContext(in EventInput) Context {
	text := normalizeText(in.Event)
	arch := matchArchetype(text)

	w := Weather{Temperature: defaultTemperature, Condition: "clear", Indoor: true}
	if in.Weather != nil {
		w = *in.Weather
	}
	rain := clamp(w.RainProbability, 0, 1)
	condition := normalizeText(w.Condition)
	for _, word := range rainWords {
		if strings.Contains(condition, word) {
			rain = max(rain, rainyCondition)
			break
		}
	}

	ctx := Context{
		Event:           arch.name,
		FormalityTarget: arch.formality,
		Season:          deriveSeason(w.Temperature, rain),
		Temperature:     w.Temperature,
		RainProbability: rain,
		Raining:         rain > rainyThreshold,
		Indoor:          w.Indoor,
		TimeOfDay:       timeBucket(in.Time),
		Mood:            arch.mood,
		Rules:           slices.Clone(arch.rules),
		RequiredSlots:   requiredSlots(text),
	}
	if rain > monsoonThreshold {
		ctx.Rules = append(ctx.Rules, RuleMonsoonProtection)
	}
	return ctx
}

func deriveSeason(temp, rain float64) Season {
	switch {
	case rain > monsoonThreshold:
		return SeasonMonsoon
	case temp < winterBelow:
		return SeasonWinter
	case temp > summerAbove:
		return SeasonSummer
	default:
		return SeasonTransitional
	}
}

func timeBucket(t time.Time) TimeOfDay {
	if t.IsZero() {
		return TimeAny
	}
	switch h := t.Hour(); {
	case h >= 5 && h <= 11:
		return TimeMorning
	case h >= 12 && h <= 16:
		return TimeAfternoon
	case h >= 17 && h <= 20:
		return TimeEvening
	default:
		return TimeNight
	}
}

// normalizeText lower-cases s and collapses every run of non-letters into a
// single space, with a space on both ends so keywords can be matched whole.
func normalizeText(s string) string {
	lower := cases.Lower(language.Und).String(s)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return " " + strings.Join(words, " ") + " "
}

func matchArchetype(text string) archetype {
	for _, a := range archetypes {
		for _, kw := range a.keywords {
			if strings.Contains(text, " "+kw+" ") {
				return a
			}
		}
	}
	return casualDaily
}

func requiredSlots(text string) []Slot {
	var out []Slot
	for _, word := range strings.Fields(text) {
		if slot, ok := slotHints[word]; ok && !slices.Contains(out, slot) {
			out = append(out, slot)
		}
	}
	slices.Sort(out)
	return out
}
