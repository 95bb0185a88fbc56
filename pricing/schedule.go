package pricing

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Tier is one row of a program's rate table. UpToAcres is the *inclusive*
// cumulative-acreage upper bound for the tier; a zero bound marks the
// open-ended final tier. The rate applied to a field is selected by the
// running total of acreage priced before that field, so business-rule
// changes (inclusive vs exclusive bounds, extra brackets) live here and not
// in the engine.
type Tier struct {
	UpToAcres   float64 `yaml:"up_to_acres"`
	RatePerAcre Amount  `yaml:"rate_per_acre"`
}

// Fees enumerates the named flat fees of the program.
type Fees struct {
	// SprayerSetup is added to the annual total when the program includes
	// spraying; REMOTE_ONLY quotes always carry a zero sprayer fee.
	SprayerSetup Amount `yaml:"sprayer_setup"`
	// Onboarding is a one-time first-year charge; zero when unset.
	Onboarding Amount `yaml:"onboarding"`
}

// Schedule is the externally loaded pricing configuration: an ordered tier
// table per program plus the flat fee table. It is validated once at
// startup; the engine never mutates it.
type Schedule struct {
	Programs map[Program][]Tier `yaml:"programs"`
	Fees     Fees               `yaml:"fees"`
}

// UnmarshalYAML lets schedules spell amounts as plain scalars ("7.00").
func (a *Amount) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("amount must be a scalar")
	}
	parsed, err := ParseAmount(value.Value)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Validate checks the schedule for the faults that must stop the service
// before it prices anything: unknown or missing programs, empty or unsorted
// tier tables, a bounded final tier, negative rates or fees.
func (s *Schedule) Validate() error {
	if s == nil {
		return configurationErrorf("pricing schedule is not configured")
	}
	for _, program := range []Program{ProgramRemoteOnly, ProgramSprayerPlusRemote} {
		tiers, ok := s.Programs[program]
		if !ok || len(tiers) == 0 {
			return configurationErrorf("program %s: tier table is required", program)
		}
		prevBound := 0.0
		for i, tier := range tiers {
			if tier.RatePerAcre < 0 {
				return configurationErrorf("program %s tier %d: rate must not be negative", program, i)
			}
			last := i == len(tiers)-1
			if last {
				if tier.UpToAcres != 0 {
					return configurationErrorf("program %s: final tier must be open-ended (omit up_to_acres)", program)
				}
				continue
			}
			if tier.UpToAcres <= prevBound {
				return configurationErrorf("program %s tier %d: up_to_acres must increase, got %v after %v", program, i, tier.UpToAcres, prevBound)
			}
			prevBound = tier.UpToAcres
		}
	}
	for program := range s.Programs {
		if !program.valid() {
			return configurationErrorf("unknown program %q in schedule", string(program))
		}
	}
	if s.Fees.SprayerSetup < 0 {
		return configurationErrorf("fees.sprayer_setup must not be negative")
	}
	if s.Fees.Onboarding < 0 {
		return configurationErrorf("fees.onboarding must not be negative")
	}
	return nil
}

// rateAt selects the per-acre rate for a field given the cumulative acreage
// priced before it. Bounds are inclusive; the final tier catches everything.
func rateAt(tiers []Tier, cumulativeAcres float64) Amount {
	for i, tier := range tiers {
		if i == len(tiers)-1 {
			return tier.RatePerAcre
		}
		if cumulativeAcres <= tier.UpToAcres {
			return tier.RatePerAcre
		}
	}
	return 0
}
