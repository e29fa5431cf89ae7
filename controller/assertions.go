package controller

import (
	"sync"
	"testing"

	"github.com/calvinmclean/automated-garden/garden-scheduler/pkg/action"
	"github.com/stretchr/testify/assert"
)

type assertionData struct {
	sync.Mutex

	waterActions   []action.WaterMessage
	stopActions    int
	stopAllActions int
	lightActions   []action.LightMessage
}

// AssertWaterActions is used to check that all expected WaterMessages were received, then reset recorded info.
// EventIDs are generated by the scheduler, so only the number of them is compared
func (c *Controller) AssertWaterActions(t *testing.T, expected ...action.WaterMessage) {
	t.Helper()

	c.assertionData.Lock()
	defer c.assertionData.Unlock()

	actual := make([]action.WaterMessage, 0, len(c.assertionData.waterActions))
	for _, msg := range c.assertionData.waterActions {
		assert.NotEmpty(t, msg.EventID)
		msg.EventID = ""
		actual = append(actual, msg)
	}
	if expected == nil {
		expected = []action.WaterMessage{}
	}
	assert.Equal(t, expected, actual)
	c.assertionData.waterActions = []action.WaterMessage{}
}

// AssertStopActions is used to check that the expected number of StopActions were received, then reset recorded info
func (c *Controller) AssertStopActions(t *testing.T, expected int) {
	t.Helper()

	c.assertionData.Lock()
	assert.Equal(t, expected, c.assertionData.stopActions)
	c.assertionData.stopActions = 0
	c.assertionData.Unlock()
}

// AssertStopAllActions is used to check that the expected number of StopAllActions were received, then reset recorded info
func (c *Controller) AssertStopAllActions(t *testing.T, expected int) {
	t.Helper()

	c.assertionData.Lock()
	assert.Equal(t, expected, c.assertionData.stopAllActions)
	c.assertionData.stopAllActions = 0
	c.assertionData.Unlock()
}

// AssertLightActions is used to check that all expected LightMessages were received, then reset recorded info
func (c *Controller) AssertLightActions(t *testing.T, expected ...action.LightMessage) {
	t.Helper()

	c.assertionData.Lock()
	if expected == nil {
		expected = []action.LightMessage{}
	}
	actual := c.assertionData.lightActions
	if actual == nil {
		actual = []action.LightMessage{}
	}
	assert.Equal(t, expected, actual)
	c.assertionData.lightActions = []action.LightMessage{}
	c.assertionData.Unlock()
}
