package stylist

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultModestyLevel = 5

// Request is one recommendation call: a wardrobe snapshot, the profile and
// the raw event description.
type Request struct {
	Wardrobe []Garment   `json:"wardrobe"`
	Profile  UserProfile `json:"profile"`
	Event    EventInput  `json:"event"`
	Limit    int         `json:"limit"`
}

// Result is the outcome of one request. An empty Outfits with tier none is
// a valid answer.
type Result struct {
	ID       string            `json:"id"`
	Context  Context           `json:"context"`
	Tier     Tier              `json:"tier"`
	Outfits  []OutfitCandidate `json:"outfits"`
	Vetoed   []Veto            `json:"vetoed,omitempty"`
	Rejected []*GarmentError   `json:"rejected,omitempty"`
}

// Recommender runs the full pipeline. It holds no per-request state and is
// safe for concurrent use.
type Recommender struct {
	cfg       Config
	explainer *Explainer
	logger    zerolog.Logger
	now       func() time.Time
	newID     func() string
}

type Option func(*Recommender)

func WithExplainer(e *Explainer) Option {
	return func(r *Recommender) { r.explainer = e }
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *Recommender) { r.logger = l }
}

// WithClock fixes the time used for recency scoring.
func WithClock(now func() time.Time) Option {
	return func(r *Recommender) { r.now = now }
}

func WithIDGenerator(fn func() string) Option {
	return func(r *Recommender) { r.newID = fn }
}

func NewRecommender(cfg Config, opts ...Option) *Recommender {
	r := &Recommender{
		cfg:    cfg.Normalize(),
		logger: zerolog.Nop(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Recommender) Config() Config {
	return r.cfg
}

// Recommend runs normalize, veto, retrieve, assemble, diversify, gate and
// explain. It is total: bad garments are rejected, not fatal.
func (r *Recommender) Recommend(ctx context.Context, req Request) Result {
	res := Result{ID: r.newID()}
	profile := withProfileDefaults(req.Profile)

	wardrobe := make([]Garment, 0, len(req.Wardrobe))
	byID := make(map[string]Garment, len(req.Wardrobe))
	for _, g := range req.Wardrobe {
		if err := ValidateGarment(g); err != nil {
			var gerr *GarmentError
			if !errors.As(err, &gerr) {
				gerr = &GarmentError{GarmentID: g.ID, Reason: err.Error()}
			}
			res.Rejected = append(res.Rejected, gerr)
			continue
		}
		if _, dup := byID[g.ID]; dup {
			res.Rejected = append(res.Rejected, &GarmentError{GarmentID: g.ID, Reason: "duplicate id"})
			continue
		}
		byID[g.ID] = g
		wardrobe = append(wardrobe, g)
	}

	res.Context = NormalizeContext(req.Event)
	pools, vetoed := Retrieve(wardrobe, res.Context, profile, r.now(), r.cfg)
	res.Vetoed = vetoed

	cands := Assemble(pools, res.Context, profile, r.cfg)
	limit := req.Limit
	if limit <= 0 {
		limit = r.cfg.ResultCount
	}
	gate := ApplyConfidenceGate(Diversify(cands, limit, r.cfg), r.cfg)
	res.Tier = gate.Tier
	res.Outfits = r.explain(ctx, gate.Outfits, res.Context, profile, byID)

	r.logger.Debug().
		Str("request_id", res.ID).
		Str("event", res.Context.Event).
		Int("wardrobe", len(req.Wardrobe)).
		Int("rejected", len(res.Rejected)).
		Int("vetoed", len(res.Vetoed)).
		Int("pool", pools.Size()).
		Int("candidates", len(cands)).
		Str("tier", string(res.Tier)).
		Int("outfits", len(res.Outfits)).
		Msg("recommendation computed")
	return res
}

func (r *Recommender) explain(ctx context.Context, outfits []OutfitCandidate, sc Context, p UserProfile, byID map[string]Garment) []OutfitCandidate {
	if r.explainer != nil {
		return r.explainer.ExplainAll(ctx, outfits, sc, p, byID)
	}
	out := make([]OutfitCandidate, len(outfits))
	for i, o := range outfits {
		o.Explanation = TemplateExplanation(o, sc, p, byID)
		out[i] = o
	}
	return out
}

func withProfileDefaults(p UserProfile) UserProfile {
	if p.ModestyLevel <= 0 {
		p.ModestyLevel = defaultModestyLevel
	}
	p.Weights = effectiveWeights(p.Weights)
	return p
}
