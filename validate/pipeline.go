package validate

import (
	"github.com/four-robots/brokerctl/config"
	"github.com/four-robots/brokerctl/diff"
)

// Pipeline is an ordered chain of rules: the builtins registered by
// NewPipeline followed by any caller-added rules, run in registration
// order and aggregated without short-circuiting — every rule runs, and a
// single Error anywhere fails the whole validation.
type Pipeline struct {
	rules []namedRule
}

// NewPipeline returns a Pipeline pre-loaded with the built-in rules
// (struct-tag ranges, port conflicts, payload bounds, persistence and auth
// consistency, timeouts, log-file requirements).
func NewPipeline() *Pipeline {
	return &Pipeline{rules: builtinRules()}
}

// AddRule appends a caller-supplied rule, preserving registration order.
func (p *Pipeline) AddRule(name string, fn Rule) {
	p.rules = append(p.rules, namedRule{name: name, fn: fn})
}

// Validate runs every rule against cfg and aggregates their errors and
// warnings in registration order. A nil/empty Errors slice means cfg is
// valid; Warnings may be non-empty even when valid.
func (p *Pipeline) Validate(cfg *config.BrokerConfiguration) (errs []Error, warnings []Warning) {
	for _, r := range p.rules {
		e, w := r.fn(cfg)
		errs = append(errs, e...)
		warnings = append(warnings, w...)
	}
	return errs, warnings
}

// ValidateChange validates the candidate configuration, then layers on
// warnings about which changed fields (relative to current) are COLD —
// i.e. would require a broker restart rather than a live reload — so
// pre-change subscribers can see that context.
func (p *Pipeline) ValidateChange(current, candidate *config.BrokerConfiguration) (errs []Error, warnings []Warning) {
	errs, warnings = p.Validate(candidate)

	d := diff.Compute(current, candidate)
	for _, e := range d.Entries {
		if e.Class == config.COLD {
			warnings = append(warnings, Warning{
				Field:   e.Path,
				Code:    "requires_restart",
				Message: e.Path + " is a COLD field; applying this change requires a broker restart",
			})
		}
	}
	return errs, warnings
}
