// Package validate implements the Validator Pipeline (C3): an ordered chain
// of pure rules, each config -> (errors, warnings), aggregated without
// short-circuiting. It is grounded on two shapes from the alert-history
// service: the mixed struct-tag + hand-written business-rule validation of
// internal/config.DefaultConfigValidator, and the Result/Error/Warning
// aggregation idiom of pkg/configvalidator (types.Result, Merge).
package validate

import "github.com/four-robots/brokerctl/config"

// Error is a rule violation that fails validation.
type Error struct {
	Field   string
	Code    string
	Message string
}

// Warning is a non-fatal observation surfaced to callers (and, for
// validate_change, to pre-change subscribers).
type Warning struct {
	Field   string
	Code    string
	Message string
}

// Rule is a pure function: same config in, same (errors, warnings) out.
// Rules must not mutate cfg.
type Rule func(cfg *config.BrokerConfiguration) ([]Error, []Warning)

// namedRule pairs a Rule with a name for diagnostics/registration order.
type namedRule struct {
	name string
	fn   Rule
}
