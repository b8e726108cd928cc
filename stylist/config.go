package stylist

import "time"

// Hard upper bounds. Configuration may lower these but never raise them.
const (
	MaxPoolSize       = 200
	MaxComboFanout    = 5
	MaxResults        = 20
	WeightFloor       = 0.5
	WeightCeiling     = 2.0
	FormalityScaleMax = 10.0
)

// Config holds every tunable of the pipeline. Zero values are replaced by
// defaults in Normalize.
type Config struct {
	PoolSize           int     `koanf:"pool_size"`
	ShoesPerCombo      int     `koanf:"shoes_per_combo"`
	LayersPerCombo     int     `koanf:"layers_per_combo"`
	ResultCount        int     `koanf:"result_count"`
	SeasonFloor        float64 `koanf:"season_floor"`
	DelicateRain       float64 `koanf:"delicate_rain"`
	FormalityTolerance float64 `koanf:"formality_tolerance"`
	HighFormality      float64 `koanf:"high_formality"`
	LayeringTemp       float64 `koanf:"layering_temp"`
	RecentWearDays     int     `koanf:"recent_wear_days"`

	MMRLambda float64 `koanf:"mmr_lambda"`
	ReuseCap  int     `koanf:"reuse_cap"`

	Gate GateConfig `koanf:"gate"`

	Learner LearnerConfig `koanf:"learner"`

	Explainer ExplainerConfig `koanf:"explainer"`
}

// GateConfig holds the confidence tiers.
type GateConfig struct {
	High     float64 `koanf:"high"`
	Mid      float64 `koanf:"mid"`
	Low      float64 `koanf:"low"`
	MinCount int     `koanf:"min_count"`
}

// LearnerConfig holds the learning rate and the weight band.
type LearnerConfig struct {
	LearningRate float64 `koanf:"learning_rate"`
	MinWeight    float64 `koanf:"min_weight"`
	MaxWeight    float64 `koanf:"max_weight"`
}

// ExplainerConfig sizes the token bucket guarding the text provider.
type ExplainerConfig struct {
	Capacity        int           `koanf:"capacity"`
	RefillPerSec    float64       `koanf:"refill_per_sec"`
	Timeout         time.Duration `koanf:"timeout"`
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerCooldown time.Duration `koanf:"breaker_cooldown"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		PoolSize:           60,
		ShoesPerCombo:      3,
		LayersPerCombo:     3,
		ResultCount:        5,
		SeasonFloor:        0.4,
		DelicateRain:       0.4,
		FormalityTolerance: 2,
		HighFormality:      7,
		LayeringTemp:       18,
		RecentWearDays:     3,
		MMRLambda:          0.3,
		ReuseCap:           2,
		Gate: GateConfig{
			High:     0.75,
			Mid:      0.60,
			Low:      0.45,
			MinCount: 3,
		},
		Learner: LearnerConfig{
			LearningRate: 0.5,
			MinWeight:    WeightFloor,
			MaxWeight:    WeightCeiling,
		},
		Explainer: ExplainerConfig{
			Capacity:        5,
			RefillPerSec:    0.5,
			Timeout:         3 * time.Second,
			BreakerFailures: 5,
			BreakerCooldown: 30 * time.Second,
		},
	}
}

// Normalize fills zero fields with defaults and clamps the hard caps.
func (c Config) Normalize() Config {
	d := DefaultConfig()
	if c.PoolSize <= 0 {
		c.PoolSize = d.PoolSize
	}
	c.PoolSize = min(c.PoolSize, MaxPoolSize)
	if c.ShoesPerCombo <= 0 {
		c.ShoesPerCombo = d.ShoesPerCombo
	}
	c.ShoesPerCombo = min(c.ShoesPerCombo, MaxComboFanout)
	if c.LayersPerCombo <= 0 {
		c.LayersPerCombo = d.LayersPerCombo
	}
	c.LayersPerCombo = min(c.LayersPerCombo, MaxComboFanout)
	if c.ResultCount <= 0 {
		c.ResultCount = d.ResultCount
	}
	c.ResultCount = min(c.ResultCount, MaxResults)
	if c.SeasonFloor <= 0 {
		c.SeasonFloor = d.SeasonFloor
	}
	if c.DelicateRain <= 0 {
		c.DelicateRain = d.DelicateRain
	}
	if c.FormalityTolerance <= 0 {
		c.FormalityTolerance = d.FormalityTolerance
	}
	if c.HighFormality <= 0 {
		c.HighFormality = d.HighFormality
	}
	if c.LayeringTemp == 0 {
		c.LayeringTemp = d.LayeringTemp
	}
	if c.RecentWearDays <= 0 {
		c.RecentWearDays = d.RecentWearDays
	}
	if c.MMRLambda <= 0 {
		c.MMRLambda = d.MMRLambda
	}
	if c.ReuseCap <= 0 {
		c.ReuseCap = d.ReuseCap
	}
	if c.Gate.High <= 0 {
		c.Gate.High = d.Gate.High
	}
	if c.Gate.Mid <= 0 {
		c.Gate.Mid = d.Gate.Mid
	}
	if c.Gate.Low <= 0 {
		c.Gate.Low = d.Gate.Low
	}
	if c.Gate.MinCount <= 0 {
		c.Gate.MinCount = d.Gate.MinCount
	}
	if c.Learner.LearningRate <= 0 {
		c.Learner.LearningRate = d.Learner.LearningRate
	}
	c.Learner.MinWeight = clamp(c.Learner.MinWeight, WeightFloor, WeightCeiling)
	if c.Learner.MaxWeight <= 0 || c.Learner.MaxWeight > WeightCeiling {
		c.Learner.MaxWeight = d.Learner.MaxWeight
	}
	if c.Learner.MaxWeight < c.Learner.MinWeight {
		c.Learner.MaxWeight = c.Learner.MinWeight
	}
	if c.Explainer.Capacity <= 0 {
		c.Explainer.Capacity = d.Explainer.Capacity
	}
	if c.Explainer.RefillPerSec <= 0 {
		c.Explainer.RefillPerSec = d.Explainer.RefillPerSec
	}
	if c.Explainer.Timeout <= 0 {
		c.Explainer.Timeout = d.Explainer.Timeout
	}
	if c.Explainer.BreakerFailures == 0 {
		c.Explainer.BreakerFailures = d.Explainer.BreakerFailures
	}
	if c.Explainer.BreakerCooldown <= 0 {
		c.Explainer.BreakerCooldown = d.Explainer.BreakerCooldown
	}
	return c
}
