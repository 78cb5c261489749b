package diff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/four-robots/brokerctl/config"
	"github.com/four-robots/brokerctl/diff"
)

func TestCompute_SameConfigIsEmpty(t *testing.T) {
	cfg := config.New("a")
	d := diff.Compute(cfg, cfg.DeepClone())
	assert.True(t, d.IsEmpty())
}

func TestCompute_EmptyIffEqual(t *testing.T) {
	a := config.New("a")
	b := a.DeepClone()
	b.Debug = !b.Debug

	assert.False(t, diff.Compute(a, b).IsEmpty())
	assert.False(t, a.Equal(b))

	b.Debug = a.Debug
	assert.True(t, diff.Compute(a, b).IsEmpty())
	assert.True(t, a.Equal(b))
}

// TestCompute_MultipleHotFieldsProduceOrderedEntries verifies that changing
// several HOT fields at once produces one diff entry per field, in
// schema-declaration order.
func TestCompute_MultipleHotFieldsProduceOrderedEntries(t *testing.T) {
	a := config.New("x")
	a.Port = 4222
	a.Debug = true
	a.MaxPayload = 1024

	b := a.DeepClone()
	b.Debug = false
	b.MaxPayload = 2048

	d := diff.Compute(a, b)
	require.Len(t, d.Entries, 2)
	assert.Equal(t, []string{"debug", "max_payload"}, d.Paths())

	byPath := map[string]diff.Entry{}
	for _, e := range d.Entries {
		byPath[e.Path] = e
	}
	require.Contains(t, byPath, "debug")
	require.Contains(t, byPath, "max_payload")
	assert.NotContains(t, byPath, "port")

	assert.Equal(t, true, byPath["debug"].Old)
	assert.Equal(t, false, byPath["debug"].New)
	assert.EqualValues(t, 1024, byPath["max_payload"].Old)
	assert.EqualValues(t, 2048, byPath["max_payload"].New)
}

func TestClassify(t *testing.T) {
	a := config.New("x")

	hot := a.DeepClone()
	hot.Debug = !hot.Debug
	assert.Equal(t, diff.HotOnly, diff.Compute(a, hot).Classify())

	cold := a.DeepClone()
	cold.Port = 4223
	assert.Equal(t, diff.HasCold, diff.Compute(a, cold).Classify())
	assert.True(t, diff.Compute(a, cold).HasCold())

	immutable := a.DeepClone()
	immutable.Description = "renamed"
	assert.Equal(t, diff.HasImmutable, diff.Compute(a, immutable).Classify())
	assert.True(t, diff.Compute(a, immutable).HasImmutable())
}

func TestDiffEqual(t *testing.T) {
	a := config.New("x")
	b := a.DeepClone()
	b.Debug = !b.Debug

	d1 := diff.Compute(a, b)
	d2 := diff.Compute(a, b)
	assert.True(t, d1.Equal(d2))

	c := b.DeepClone()
	c.Trace = !c.Trace
	d3 := diff.Compute(a, c)
	assert.False(t, d1.Equal(d3))
}

func TestOrdering_IsDeterministicAndLexicographic(t *testing.T) {
	a := config.New("x")
	b := a.DeepClone()
	b.Trace = !b.Trace
	b.Debug = !b.Debug
	b.Port = 5555

	d := diff.Compute(a, b)
	paths := d.Paths()
	require.Len(t, paths, 3)
	// canonical schema order: debug < port < trace
	assert.Equal(t, []string{"debug", "port", "trace"}, paths)
}
