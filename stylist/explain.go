package stylist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// TextGenerator produces free-text explanations. Implementations may call
// a remote model; the explainer bounds every call.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

var (
	errNoProvider  = errors.New("no text provider")
	errRateLimited = errors.New("explanation rate limit reached")
	errEmptyReply  = errors.New("empty reply from text provider")
)

// Explainer attaches explanations to outfits. Without a provider, or when the
// provider fails in any way, it falls back to deterministic templates.
type Explainer struct {
	gen     TextGenerator
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[string]
	timeout time.Duration
	logger  zerolog.Logger
}

// NewLimiter builds the token bucket shared by one explainer.
func NewLimiter(cfg ExplainerConfig) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(cfg.RefillPerSec), cfg.Capacity)
}

// NewExplainer wires a provider behind the given limiter. gen may be nil for
// template-only explanations; a nil limiter is built from cfg.
func NewExplainer(gen TextGenerator, limiter *rate.Limiter, cfg ExplainerConfig, logger zerolog.Logger) *Explainer {
	cfg = Config{Explainer: cfg}.Normalize().Explainer
	if limiter == nil {
		limiter = NewLimiter(cfg)
	}
	failures := cfg.BreakerFailures
	breaker := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "explainer",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("text provider breaker changed state")
		},
	})
	return &Explainer{
		gen:     gen,
		limiter: limiter,
		breaker: breaker,
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// ExplainAll returns a copy of outfits with explanations filled in. All
// outfits are explained concurrently; it never fails.
func (e *Explainer) ExplainAll(ctx context.Context, outfits []OutfitCandidate, sc Context, p UserProfile, byID map[string]Garment) []OutfitCandidate {
	out := make([]OutfitCandidate, len(outfits))
	copy(out, outfits)

	var g errgroup.Group
	for i := range out {
		g.Go(func() error {
			out[i].Explanation = e.Explain(ctx, out[i], sc, p, byID)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Explain returns provider text when available, else the template.
func (e *Explainer) Explain(ctx context.Context, o OutfitCandidate, sc Context, p UserProfile, byID map[string]Garment) string {
	fallback := TemplateExplanation(o, sc, p, byID)
	if e == nil {
		return fallback
	}
	text, err := e.generate(ctx, buildPrompt(o, sc, byID, fallback))
	if err != nil {
		e.logger.Debug().Err(err).Strs("garments", o.GarmentIDs).Msg("using template explanation")
		return fallback
	}
	return text
}

func (e *Explainer) generate(ctx context.Context, prompt string) (string, error) {
	if e.gen == nil {
		return "", errNoProvider
	}
	if !e.limiter.Allow() {
		return "", errRateLimited
	}
	return e.breaker.Execute(func() (string, error) {
		ctx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		type reply struct {
			text string
			err  error
		}
		done := make(chan reply, 1)
		go func() {
			defer func() {
				if p := recover(); p != nil {
					done <- reply{err: fmt.Errorf("text provider panic: %v", p)}
				}
			}()
			text, err := e.gen.Generate(ctx, prompt)
			done <- reply{text, err}
		}()

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case r := <-done:
			if r.err != nil {
				return "", r.err
			}
			text := strings.TrimSpace(r.text)
			if text == "" {
				return "", errEmptyReply
			}
			return text, nil
		}
	})
}

// TemplateExplanation is the deterministic explanation of an outfit.
func TemplateExplanation(o OutfitCandidate, sc Context, p UserProfile, byID map[string]Garment) string {
	parts := []string{fmt.Sprintf("%s for %s, %s.", tonePhrase(sc.FormalityTarget), eventLabel(sc.Event), weatherPhrase(sc))}
	for _, id := range o.GarmentIDs {
		if g, ok := byID[id]; ok && intersects(paletteIDs(g), p.BestColors) {
			parts = append(parts, "The colours flatter your palette.")
			break
		}
	}
	if o.SubScores.ColorHarmony >= 0.8 {
		parts = append(parts, "The colours work well together.")
	}
	return strings.Join(parts, " ")
}

func tonePhrase(target float64) string {
	switch {
	case target >= 7:
		return "A polished look"
	case target >= 4:
		return "A smart-casual look"
	default:
		return "A relaxed look"
	}
}

func weatherPhrase(sc Context) string {
	switch {
	case sc.Raining:
		return "in practical fabrics that handle the rain"
	case sc.Temperature < 15:
		return "with warm layers for the cold"
	case sc.Temperature > 28:
		return "in breathable pieces for the heat"
	default:
		return "suited to the mild weather"
	}
}

func eventLabel(event string) string {
	if event == "" || event == EventCasualDaily {
		return "your day"
	}
	return "the " + strings.ReplaceAll(event, "_", " ")
}

func buildPrompt(o OutfitCandidate, sc Context, byID map[string]Garment, fallback string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write one or two friendly sentences explaining why this outfit suits %s (%.0f°C, %s).\n", eventLabel(sc.Event), sc.Temperature, sc.Season)
	for _, id := range o.GarmentIDs {
		g, ok := byID[id]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s %s, %s\n", g.Slot, g.Fabric, g.Subtype, g.Pattern)
	}
	fmt.Fprintf(&b, "Stay close to this summary: %s\n", fallback)
	return b.String()
}
