package validate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/four-robots/brokerctl/config"
	"github.com/four-robots/brokerctl/validate"
)

func codes(errs []validate.Error) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidate_DefaultsAreValid(t *testing.T) {
	p := validate.NewPipeline()
	errs, _ := p.Validate(config.New("x"))
	assert.Empty(t, errs)
}

func TestValidate_PortBoundaries(t *testing.T) {
	p := validate.NewPipeline()

	cfg := config.New("x")
	cfg.Port = 0
	errs, _ := p.Validate(cfg)
	assert.NotEmpty(t, errs)

	cfg.Port = 65536
	errs, _ = p.Validate(cfg)
	assert.NotEmpty(t, errs)

	cfg.Port = 1
	errs, _ = p.Validate(cfg)
	assert.Empty(t, errs)

	cfg.Port = 65535
	errs, _ = p.Validate(cfg)
	assert.Empty(t, errs)
}

func TestValidate_MaxPayloadBoundaries(t *testing.T) {
	p := validate.NewPipeline()

	cfg := config.New("x")
	cfg.MaxPayload = 0
	errs, _ := p.Validate(cfg)
	assert.Contains(t, codes(errs), "payload_range")

	cfg.MaxPayload = config.MaxPayloadHardLimit + 1
	errs, _ = p.Validate(cfg)
	assert.Contains(t, codes(errs), "payload_range")

	cfg.MaxPayload = config.MaxPayloadHardLimit
	errs, _ = p.Validate(cfg)
	assert.NotContains(t, codes(errs), "payload_range")
}

func TestValidate_AuthExclusivity(t *testing.T) {
	p := validate.NewPipeline()

	cfg := config.New("x")
	cfg.Auth.Username = "u"
	cfg.Auth.Password = "p"
	errs, _ := p.Validate(cfg)
	assert.Empty(t, errs)

	cfg.Auth.Token = "t"
	errs, _ = p.Validate(cfg)
	assert.Contains(t, codes(errs), "auth_exclusivity")
}

func TestValidate_PortConflict(t *testing.T) {
	p := validate.NewPipeline()

	cfg := config.New("x")
	cfg.HTTPPort = cfg.Port
	errs, _ := p.Validate(cfg)
	assert.Contains(t, codes(errs), "port_conflict")

	cfg.HTTPPort = 0
	errs, _ = p.Validate(cfg)
	assert.NotContains(t, codes(errs), "port_conflict")
}

// TestValidateChange_COLDFieldSurfacesRestartWarning verifies that changing
// a COLD field (port) surfaces a requires_restart warning alongside an
// otherwise valid candidate configuration.
func TestValidateChange_COLDFieldSurfacesRestartWarning(t *testing.T) {
	p := validate.NewPipeline()

	current := config.New("x")
	candidate := current.DeepClone()
	candidate.Port = 4223

	errs, warnings := p.ValidateChange(current, candidate)
	require.Empty(t, errs)

	var found bool
	for _, w := range warnings {
		if w.Field == "port" && w.Code == "requires_restart" {
			found = true
		}
	}
	assert.True(t, found, "expected a requires_restart warning for the COLD port field")
}

func TestValidateChange_NoWarningsForHotOnly(t *testing.T) {
	p := validate.NewPipeline()

	current := config.New("x")
	candidate := current.DeepClone()
	candidate.Debug = !candidate.Debug

	_, warnings := p.ValidateChange(current, candidate)
	for _, w := range warnings {
		assert.NotEqual(t, "requires_restart", w.Code)
	}
}

func TestValidate_TimeoutsMustBePositive(t *testing.T) {
	p := validate.NewPipeline()

	cfg := config.New("x")
	cfg.PingInterval = 0
	cfg.WriteDeadline = -1 * time.Second
	errs, _ := p.Validate(cfg)
	assert.Contains(t, codes(errs), "timeouts")
}

func TestAddRule_RunsAfterBuiltins(t *testing.T) {
	p := validate.NewPipeline()
	p.AddRule("no_debug_in_prod", func(cfg *config.BrokerConfiguration) ([]validate.Error, []validate.Warning) {
		if cfg.Debug {
			return nil, []validate.Warning{{Field: "debug", Code: "custom", Message: "debug enabled"}}
		}
		return nil, nil
	})

	cfg := config.New("x")
	cfg.Debug = true
	_, warnings := p.Validate(cfg)

	require.NotEmpty(t, warnings)
	assert.Equal(t, "custom", warnings[len(warnings)-1].Code)
}
