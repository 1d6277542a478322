package job

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "5.0", ProcKey(5, 0))
	assert.Equal(t, "05.-1", ClusterKey(5))
	assert.True(t, IsJobKey("5.0"))
	assert.False(t, IsJobKey(ClusterKey(5)))
	assert.False(t, IsJobKey(HeaderKey))
	assert.False(t, IsJobKey(""))
	assert.True(t, IsClusterKey("012.-1"))
	assert.False(t, IsClusterKey(HeaderKey))
	assert.False(t, IsClusterKey("12.0"))
}

func TestParseKey(t *testing.T) {
	tests := map[string]struct {
		key     string
		cluster int
		proc    int
		ok      bool
	}{
		"proc":          {key: "12.3", cluster: 12, proc: 3, ok: true},
		"cluster":       {key: "012.-1", cluster: 12, proc: -1, ok: true},
		"header":        {key: "0.0", cluster: 0, proc: 0, ok: true},
		"no dot":        {key: "12"},
		"empty cluster": {key: ".3"},
		"bad proc":      {key: "12.x"},
		"too negative":  {key: "12.-2"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			cluster, proc, ok := ParseKey(tc.key)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.cluster, cluster)
			assert.Equal(t, tc.proc, proc)
		})
	}
}
