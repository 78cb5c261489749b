package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/four-robots/brokerctl/config"
)

func TestNew_AppliesDefaults(t *testing.T) {
	cfg := config.New("test broker")

	require.NotEqual(t, "", cfg.ID.String())
	assert.Equal(t, "test broker", cfg.Description)
	assert.Equal(t, 4222, cfg.Port)
	assert.Equal(t, 0, cfg.HTTPPort)
	assert.EqualValues(t, 1<<20, cfg.MaxPayload)
	assert.EqualValues(t, -1, cfg.Persistence.MaxMemory)
}

func TestDeepClone_IsIndependent(t *testing.T) {
	cfg := config.New("original")
	cfg.Cluster.Routes = []string{"nats://a:6222"}

	clone := cfg.DeepClone()
	clone.Port = 9999
	clone.Cluster.Routes[0] = "nats://b:6222"
	clone.Cluster.Routes = append(clone.Cluster.Routes, "nats://c:6222")

	assert.Equal(t, 4222, cfg.Port)
	assert.Equal(t, []string{"nats://a:6222"}, cfg.Cluster.Routes)
	assert.Equal(t, []string{"nats://b:6222", "nats://c:6222"}, clone.Cluster.Routes)
}

func TestEqual_FieldByField(t *testing.T) {
	cfg := config.New("a")
	clone := cfg.DeepClone()
	assert.True(t, cfg.Equal(clone))

	clone.Debug = !clone.Debug
	assert.False(t, cfg.Equal(clone))
}

func TestEqual_OrderSensitiveForSequences(t *testing.T) {
	cfg := config.New("a")
	cfg.Cluster.Routes = []string{"nats://a:6222", "nats://b:6222"}
	other := cfg.DeepClone()
	other.Cluster.Routes = []string{"nats://b:6222", "nats://a:6222"}

	assert.False(t, cfg.Equal(other))
}

func TestEqual_NilHandling(t *testing.T) {
	var a, b *config.BrokerConfiguration
	assert.True(t, a.Equal(b))

	cfg := config.New("x")
	assert.False(t, cfg.Equal(nil))
}

func TestClassOf_MatchesSpecExamples(t *testing.T) {
	assert.Equal(t, config.COLD, config.ClassOf("port"))
	assert.Equal(t, config.HOT, config.ClassOf("debug"))
	assert.Equal(t, config.HOT, config.ClassOf("trace"))
	assert.Equal(t, config.HOT, config.ClassOf("logging.log_file"))
	assert.Equal(t, config.HOT, config.ClassOf("max_payload"))
	assert.Equal(t, config.IMMUTABLE, config.ClassOf("id"))
}

func TestFields_CanonicalOrderIsStable(t *testing.T) {
	first := config.Fields()
	second := config.Fields()
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Path, second[i].Path)
	}
}

func TestNew_TimestampIsUTC(t *testing.T) {
	cfg := config.New("x")
	assert.Equal(t, time.UTC, cfg.CreatedAt.Location())
}
