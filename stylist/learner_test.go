package stylist

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allSignals = []Signal{SignalWorn, SignalLiked, SignalSaved, SignalFavorited, SignalDisliked, SignalSkipped, SignalDeleted}

func weightList(w Weights) []float64 {
	return []float64{w.Formality, w.Season, w.Body, w.Palette, w.Style, w.Recency, w.Repetition}
}

func TestLearnMovesWeights(t *testing.T) {
	ctx := NormalizeContext(EventInput{Event: "casual", Weather: warm(30)})
	in := Interaction{Signal: SignalFavorited, Garments: basicWardrobe(), Context: &ctx, At: fixedNow}
	p := UserProfile{UserID: "u1", Weights: DefaultWeights()}

	out, err := Learn(p, in, DefaultConfig())
	require.NoError(t, err)

	// formality fit of the basic wardrobe at target 3: 0.75, 0.75, 0.5
	assert.InDelta(t, 1+0.06*0.5*(2.0/3), out.Weights.Formality, 1e-9)
	assert.InDelta(t, 1+0.06*0.5*0.9, out.Weights.Season, 1e-9)
	assert.InDelta(t, 1+0.06*0.5*1, out.Weights.Recency, 1e-9)
	assert.Equal(t, 1.0, out.Weights.Repetition)
	assert.Equal(t, 1, out.InteractionCount)
	assert.Equal(t, DefaultWeights(), p.Weights)
}

func TestLearnWithoutGarments(t *testing.T) {
	out, err := Learn(UserProfile{}, Interaction{Signal: SignalDisliked}, DefaultConfig())
	require.NoError(t, err)
	for _, w := range weightList(out.Weights) {
		assert.InDelta(t, 1-0.05*0.5*0.5, w, 1e-9)
	}
}

func TestLearnUnknownSignal(t *testing.T) {
	_, err := Learn(UserProfile{}, Interaction{Signal: "shrugged"}, DefaultConfig())
	assert.ErrorIs(t, err, ErrUnknownSignal)
	assert.False(t, Signal("shrugged").Valid())
	assert.True(t, SignalWorn.Valid())
}

func TestLearnDoesNotAliasInput(t *testing.T) {
	p := UserProfile{BestColors: []int{1, 2}, AvoidColors: []int{3}, StyleTags: []string{"classic"}}
	out, err := Learn(p, Interaction{Signal: SignalLiked}, DefaultConfig())
	require.NoError(t, err)

	out.BestColors[0] = 99
	out.StyleTags[0] = "punk"
	assert.Equal(t, []int{1, 2}, p.BestColors)
	assert.Equal(t, []string{"classic"}, p.StyleTags)
}

func TestLearnMonotoneAndBounded(t *testing.T) {
	r := rand.New(rand.NewPCG(5, 6))
	cfg := DefaultConfig()
	ctx := NormalizeContext(EventInput{Event: "office", Weather: warm(12)})

	for range 50 {
		p := UserProfile{Weights: Weights{
			Formality:  0.5 + 1.5*r.Float64(),
			Season:     0.5 + 1.5*r.Float64(),
			Body:       0.5 + 1.5*r.Float64(),
			Palette:    0.5 + 1.5*r.Float64(),
			Style:      0.5 + 1.5*r.Float64(),
			Recency:    0.5 + 1.5*r.Float64(),
			Repetition: 0.5 + 1.5*r.Float64(),
		}}
		signal := allSignals[r.IntN(len(allSignals))]
		positive := signalDeltas[signal] > 0
		in := Interaction{Signal: signal, Garments: randomWardrobe(r, r.IntN(4)), Context: &ctx, At: fixedNow}

		for range 300 {
			next, err := Learn(p, in, cfg)
			require.NoError(t, err)
			before, after := weightList(p.Weights), weightList(next.Weights)
			for i := range before {
				if positive {
					assert.GreaterOrEqual(t, after[i], before[i])
				} else {
					assert.LessOrEqual(t, after[i], before[i])
				}
				assert.GreaterOrEqual(t, after[i], WeightFloor)
				assert.LessOrEqual(t, after[i], WeightCeiling)
			}
			p = next
		}
	}
}

func TestLearnNarrowBandKeepsDirection(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Learner.MinWeight = 1.0
	cfg.Learner.MaxWeight = 1.5
	ctx := NormalizeContext(EventInput{Event: "office", Weather: warm(12)})
	p := UserProfile{Weights: Weights{
		Formality:  0.7,
		Season:     1.9,
		Body:       1.2,
		Palette:    0.7,
		Style:      1.9,
		Recency:    1.2,
		Repetition: 1.2,
	}}

	for _, signal := range allSignals {
		t.Run(string(signal), func(t *testing.T) {
			in := Interaction{Signal: signal, Garments: basicWardrobe(), Context: &ctx, At: fixedNow}
			out, err := Learn(p, in, cfg)
			require.NoError(t, err)

			before, after := weightList(p.Weights), weightList(out.Weights)
			for i := range before {
				if signalDeltas[signal] > 0 {
					assert.GreaterOrEqual(t, after[i], before[i])
					assert.LessOrEqual(t, after[i], max(before[i], cfg.Learner.MaxWeight))
				} else {
					assert.LessOrEqual(t, after[i], before[i])
					assert.GreaterOrEqual(t, after[i], min(before[i], cfg.Learner.MinWeight))
				}
			}
		})
	}

	// outside the band the weight holds rather than jumping to the edge
	out, err := Learn(p, Interaction{Signal: SignalDisliked}, cfg)
	require.NoError(t, err)
	assert.Equal(t, 0.7, out.Weights.Formality)
	assert.Less(t, out.Weights.Season, 1.9)
	out, err = Learn(p, Interaction{Signal: SignalLiked}, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1.9, out.Weights.Season)
	assert.Greater(t, out.Weights.Formality, 0.7)
}
