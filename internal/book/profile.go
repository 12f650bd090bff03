// Package book holds per-sportsbook execution profiles.
package book

import "fmt"

// LiquidityTier classifies how deep a book's markets run
type LiquidityTier string

const (
	LiquidityHigh   LiquidityTier = "high"
	LiquidityMedium LiquidityTier = "medium"
	LiquidityLow    LiquidityTier = "low"
)

// Risk returns a [0,1] risk contribution for the tier
func (t LiquidityTier) Risk() float64 {
	switch t {
	case LiquidityHigh:
		return 0.1
	case LiquidityLow:
		return 0.8
	default:
		return 0.4
	}
}

// Profile holds one sportsbook's execution parameters. Profiles are
// immutable during a scan; hot reload swaps the whole registry snapshot.
type Profile struct {
	Name                  string        `mapstructure:"name" json:"name" validate:"required"`
	BidAskSpread          float64       `mapstructure:"bid_ask_spread" json:"bid_ask_spread" validate:"gte=0,lt=1"`
	SlippageFactor        float64       `mapstructure:"slippage_factor" json:"slippage_factor" validate:"gte=0,lt=1"`
	MinStake              float64       `mapstructure:"min_stake" json:"min_stake" validate:"gte=0"`
	MaxStake              float64       `mapstructure:"max_stake" json:"max_stake" validate:"gte=0"`
	ExecutionDelaySeconds float64       `mapstructure:"execution_delay_seconds" json:"execution_delay_seconds" validate:"gte=0"`
	ReliabilityScore      float64       `mapstructure:"reliability_score" json:"reliability_score" validate:"gte=0,lte=1"`
	LiquidityTier         LiquidityTier `mapstructure:"liquidity_tier" json:"liquidity_tier" validate:"required,liquiditytier"`
	ImpactThreshold       float64       `mapstructure:"market_impact_threshold" json:"market_impact_threshold" validate:"gte=0"`
	StressSpreadScale     float64       `mapstructure:"stress_spread_scale" json:"stress_spread_scale" validate:"gte=1"`
}

// Validate checks the profile invariants
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile name is required")
	}
	if p.BidAskSpread < 0 || p.BidAskSpread >= 1 {
		return fmt.Errorf("bid_ask_spread must be in [0, 1): %g", p.BidAskSpread)
	}
	if p.SlippageFactor < 0 || p.SlippageFactor >= 1 {
		return fmt.Errorf("slippage_factor must be in [0, 1): %g", p.SlippageFactor)
	}
	if p.MinStake > p.MaxStake {
		return fmt.Errorf("min_stake %g exceeds max_stake %g", p.MinStake, p.MaxStake)
	}
	if p.ReliabilityScore < 0 || p.ReliabilityScore > 1 {
		return fmt.Errorf("reliability_score must be in [0, 1]: %g", p.ReliabilityScore)
	}
	switch p.LiquidityTier {
	case LiquidityHigh, LiquidityMedium, LiquidityLow:
	default:
		return fmt.Errorf("unknown liquidity tier %q", p.LiquidityTier)
	}
	return nil
}

// ClampStake bounds a requested stake to the book's limits
func (p *Profile) ClampStake(stake float64) float64 {
	if stake < p.MinStake {
		return p.MinStake
	}
	if p.MaxStake > 0 && stake > p.MaxStake {
		return p.MaxStake
	}
	return stake
}

// DefaultProfile returns the documented fallback for unknown books:
// medium tier with moderate spread and slippage. New books appear over
// time, so lookups never fail.
func DefaultProfile(name string) Profile {
	return Profile{
		Name:                  name,
		BidAskSpread:          0.02,
		SlippageFactor:        0.01,
		MinStake:              1,
		MaxStake:              1000,
		ExecutionDelaySeconds: 5,
		ReliabilityScore:      0.8,
		LiquidityTier:         LiquidityMedium,
		ImpactThreshold:       500,
		StressSpreadScale:     1.5,
	}
}
