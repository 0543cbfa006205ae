package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsCollector_AverageLatency(t *testing.T) {
	mc := NewMetricsCollector()
	mc.AddOperationLatency("UpdatePost", 10*time.Millisecond)
	mc.AddOperationLatency("UpdatePost", 30*time.Millisecond)
	mc.AddOperationLatency("VoteOnPost", 5*time.Millisecond)

	snap := mc.Snapshot()
	assert.Equal(t, 20*time.Millisecond, snap.AverageLatency["UpdatePost"])
	assert.Equal(t, 5*time.Millisecond, snap.AverageLatency["VoteOnPost"])
	assert.NotContains(t, snap.AverageLatency, "Login")
}

func TestMetricsCollector_LatencyStateStaysSmall(t *testing.T) {
	mc := NewMetricsCollector()
	for i := 0; i < 10000; i++ {
		mc.RecordAction("MarkPostAsRead", time.Microsecond)
	}

	assert.Len(t, mc.operationTimes, 1)
	assert.Equal(t, int64(10000), mc.operationTimes["MarkPostAsRead"].count)
	snap := mc.Snapshot()
	assert.Equal(t, uint64(10000), snap.Actions)
	assert.Equal(t, time.Microsecond, snap.AverageLatency["MarkPostAsRead"])
}
