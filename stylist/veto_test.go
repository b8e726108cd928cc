package stylist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVetoGarment(t *testing.T) {
	cfg := DefaultConfig()
	casual := NormalizeContext(EventInput{Event: "casual", Weather: warm(25)})
	rainy := NormalizeContext(EventInput{Event: "casual", Weather: &Weather{Temperature: 25, RainProbability: 0.8}})
	temple := NormalizeContext(EventInput{Event: "temple", Weather: warm(25)})
	funeral := NormalizeContext(EventInput{Event: "funeral", Weather: warm(25)})
	office := NormalizeContext(EventInput{Event: "office", Weather: warm(25)})
	wedding := NormalizeContext(EventInput{Event: "wedding", Weather: warm(25)})

	cases := []struct {
		name    string
		g       Garment
		ctx     Context
		profile UserProfile
		want    VetoReason
	}{
		{"active basic passes", garment("a", SlotTop), casual, UserProfile{}, ""},
		{"laundry", garment("a", SlotTop, availability(AvailabilityLaundry)), casual, UserProfile{}, VetoUnavailable},
		{"donated", garment("a", SlotTop, availability(AvailabilityDonated)), casual, UserProfile{}, VetoUnavailable},
		{"off season", garment("a", SlotTop, func(g *Garment) { g.SeasonScores = allSeasons(0.2) }), casual, UserProfile{}, VetoOffSeason},
		{"suede in rain", garment("a", SlotShoes, fabric("Suede")), rainy, UserProfile{}, VetoDelicateRain},
		{"raw silk in rain", garment("a", SlotTop, fabric("raw silk")), rainy, UserProfile{}, VetoDelicateRain},
		{"suede when dry", garment("a", SlotShoes, fabric("suede")), casual, UserProfile{}, ""},
		{"shorts at temple", garment("a", SlotBottom, subtype("denim shorts"), formality(3, 5)), temple, UserProfile{}, VetoModesty},
		{"crop top at temple", garment("a", SlotTop, subtype("crop top"), formality(3, 5)), temple, UserProfile{}, VetoModesty},
		{"shorts casual", garment("a", SlotBottom, subtype("shorts")), casual, UserProfile{}, ""},
		{"shorts high modesty profile", garment("a", SlotBottom, subtype("shorts")), casual, UserProfile{ModestyLevel: 9}, VetoModesty},
		{"white at funeral", garment("a", SlotTop, colors(white), formality(5, 7)), funeral, UserProfile{}, VetoWhiteHeavy},
		{"white accent at funeral", garment("a", SlotTop, colors(black, white), formality(5, 7)), funeral, UserProfile{}, ""},
		{"graphic at office", garment("a", SlotTop, pattern(PatternGraphic), formality(5, 8)), office, UserProfile{}, VetoOfficeLoud},
		{"neon at office", garment("a", SlotTop, colors(neon), formality(5, 8)), office, UserProfile{}, VetoOfficeLoud},
		{"too casual for office", garment("a", SlotTop, formality(1, 3)), office, UserProfile{}, VetoUnderdressed},
		{"accessory exempt", garment("a", SlotAccessory, formality(0, 1)), office, UserProfile{}, ""},
		{"graphic at wedding", garment("a", SlotTop, pattern(PatternGraphic), formality(6, 9)), wedding, UserProfile{}, VetoFormalLoud},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			reason, ok := VetoGarment(c.g, c.ctx, c.profile, cfg)
			assert.Equal(t, c.want, reason)
			assert.Equal(t, c.want == "", ok)
		})
	}
}

func TestVetoPair(t *testing.T) {
	striped := garment("top", SlotTop, pattern(PatternStripe))
	checked := garment("bottom", SlotBottom, pattern(PatternCheck))
	plain := garment("plain", SlotBottom)

	reason, ok := VetoPair(striped, checked, UserProfile{})
	assert.False(t, ok)
	assert.Equal(t, VetoDoubleLoud, reason)

	_, ok = VetoPair(striped, plain, UserProfile{})
	assert.True(t, ok)

	_, ok = VetoPair(striped, checked, UserProfile{StyleTags: []string{"Eclectic"}})
	assert.True(t, ok)

	unsetTop := garment("top", SlotTop, pattern(""))
	unsetBottom := garment("bottom", SlotBottom, pattern(""))
	_, ok = VetoPair(unsetTop, unsetBottom, UserProfile{})
	assert.True(t, ok)
	_, ok = VetoPair(striped, unsetBottom, UserProfile{})
	assert.True(t, ok)
}
