/*
settings.go - Static settings provider

PURPOSE:
  Holds the per-caisse-type penalty rules and per-contract-type support
  bounds, either built in code or loaded from a JSON document kept by the
  administration.

JSON FORMAT:
  {
    "penalty_rules": {
      "standard": {"tolerance_days": 3, "threshold_days": 4, "per_day_rate_percent": "1"}
    },
    "support_bounds": {
      "individual": {"min": "5000", "max": "200000"}
    }
  }
*/
package caisse

import (
	"encoding/json"
	"fmt"

	"github.com/warp/caisse-engine/engine"
)

// StaticSettings is an in-memory Settings implementation.
type StaticSettings struct {
	Rules  map[string]engine.PenaltyRules
	Bounds map[string]engine.SupportBounds
}

var _ Settings = (*StaticSettings)(nil)

// DefaultSettings returns the fund's standard configuration: 3-day
// tolerance, penalties from day 4 at 1%/day, and individual advance bounds
// of 5,000 - 200,000.
func DefaultSettings() *StaticSettings {
	return &StaticSettings{
		Rules: map[string]engine.PenaltyRules{
			CaisseStandard: engine.DefaultPenaltyRules(1),
			CaisseScolaire: engine.DefaultPenaltyRules(1),
			// Open contracts have no fixed target to rate against.
			CaisseLibre: engine.DefaultPenaltyRules(0),
		},
		Bounds: map[string]engine.SupportBounds{
			ContractIndividual: {Min: engine.NewAmount(5000), Max: engine.NewAmount(200000)},
			ContractGroup:      {Min: engine.NewAmount(10000), Max: engine.NewAmount(500000)},
		},
	}
}

func (s *StaticSettings) PenaltyRules(caisseType string) (engine.PenaltyRules, bool) {
	r, ok := s.Rules[caisseType]
	return r, ok
}

func (s *StaticSettings) SupportBounds(contractType string) (engine.SupportBounds, bool) {
	b, ok := s.Bounds[contractType]
	return b, ok
}

// =============================================================================
// JSON LOADING
// =============================================================================

type settingsJSON struct {
	PenaltyRules map[string]struct {
		ToleranceDays     int    `json:"tolerance_days"`
		ThresholdDays     int    `json:"threshold_days"`
		PerDayRatePercent string `json:"per_day_rate_percent"`
	} `json:"penalty_rules"`
	SupportBounds map[string]struct {
		Min string `json:"min"`
		Max string `json:"max"`
	} `json:"support_bounds"`
}

// SettingsFromJSON parses a settings document into a StaticSettings.
func SettingsFromJSON(data []byte) (*StaticSettings, error) {
	var doc settingsJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	out := &StaticSettings{
		Rules:  make(map[string]engine.PenaltyRules),
		Bounds: make(map[string]engine.SupportBounds),
	}
	for name, r := range doc.PenaltyRules {
		out.Rules[name] = engine.PenaltyRules{
			ToleranceDays:        r.ToleranceDays,
			PenaltyThresholdDays: r.ThresholdDays,
			PerDayRatePercent:    engine.MustParseDecimal(r.PerDayRatePercent),
		}
	}
	for name, b := range doc.SupportBounds {
		out.Bounds[name] = engine.SupportBounds{
			Min: engine.Amount{Value: engine.MustParseDecimal(b.Min), Currency: engine.DefaultCurrency},
			Max: engine.Amount{Value: engine.MustParseDecimal(b.Max), Currency: engine.DefaultCurrency},
		}
	}
	return out, nil
}
