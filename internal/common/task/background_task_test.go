package task

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackgroundTaskManager(t *testing.T) {
	registry := prometheus.NewRegistry()
	manager := NewBackgroundTaskManagerWithRegisterer("test_", registry)

	var runs, failingRuns int32
	manager.Register(func() error {
		atomic.AddInt32(&runs, 1)
		return nil
	}, 5*time.Millisecond, "poll")
	manager.Register(func() error {
		atomic.AddInt32(&failingRuns, 1)
		return errors.New("boom")
	}, 5*time.Millisecond, "flaky")

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&runs) >= 3 && atomic.LoadInt32(&failingRuns) >= 3
	}, 5*time.Second, time.Millisecond)

	timedOut := manager.StopAll(time.Second)
	assert.False(t, timedOut)

	stopped := atomic.LoadInt32(&runs)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, atomic.LoadInt32(&runs))

	failures, err := registry.Gather()
	require.NoError(t, err)
	var found bool
	for _, family := range failures {
		if family.GetName() == "test_flaky_failures_total" {
			found = true
			assert.GreaterOrEqual(t, family.GetMetric()[0].GetCounter().GetValue(), float64(3))
		}
	}
	assert.True(t, found)
	count, err := testutil.GatherAndCount(registry, "test_poll_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
