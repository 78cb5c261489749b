package changebus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/four-robots/brokerctl/changebus"
	"github.com/four-robots/brokerctl/config"
)

func TestFirePreChange_NoSubscribersNotCancelled(t *testing.T) {
	bus := changebus.New(nil)
	cancelled, reason := bus.FirePreChange(config.New("a"), config.New("b"))
	assert.False(t, cancelled)
	assert.Empty(t, reason)
}

func TestFirePreChange_OrderPreservedAndFirstCancellationWins(t *testing.T) {
	bus := changebus.New(nil)
	var order []int

	bus.Subscribe(func(current, candidate *config.BrokerConfiguration) string {
		order = append(order, 1)
		return "first reason"
	})
	bus.Subscribe(func(current, candidate *config.BrokerConfiguration) string {
		order = append(order, 2)
		return "second reason"
	})
	bus.Subscribe(func(current, candidate *config.BrokerConfiguration) string {
		order = append(order, 3)
		return ""
	})

	cancelled, reason := bus.FirePreChange(config.New("a"), config.New("b"))
	assert.True(t, cancelled)
	assert.Equal(t, "first reason", reason)
	assert.Equal(t, []int{1, 2, 3}, order, "all subscribers must still be invoked after cancellation")
}

func TestFirePreChange_PanicTreatedAsCancellation(t *testing.T) {
	bus := changebus.New(nil)
	bus.Subscribe(func(current, candidate *config.BrokerConfiguration) string {
		panic("policy violation")
	})

	cancelled, reason := bus.FirePreChange(config.New("a"), config.New("b"))
	assert.True(t, cancelled)
	assert.Equal(t, "policy violation", reason)
}

func TestRegistration_CloseRemovesSubscriber(t *testing.T) {
	bus := changebus.New(nil)
	var called bool
	reg := bus.Subscribe(func(current, candidate *config.BrokerConfiguration) string {
		called = true
		return ""
	})
	reg.Close()

	bus.FirePreChange(config.New("a"), config.New("b"))
	assert.False(t, called)
}

func TestFirePostChange_FailuresAreSwallowed(t *testing.T) {
	bus := changebus.New(nil)
	var secondCalled bool

	bus.SubscribePost(func(old, new *config.BrokerConfiguration, versionID int64) error {
		panic("boom")
	})
	bus.SubscribePost(func(old, new *config.BrokerConfiguration, versionID int64) error {
		secondCalled = true
		return nil
	})

	require.NotPanics(t, func() {
		bus.FirePostChange(config.New("a"), config.New("b"), 2)
	})
	assert.True(t, secondCalled)
}
