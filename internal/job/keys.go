package job

import (
	"fmt"
	"strconv"
	"strings"
)

// HeaderKey identifies the job queue header ad.
const HeaderKey = "0.0"

// ProcKey is the key of proc within cluster, "<cluster>.<proc>".
func ProcKey(cluster, proc int) string {
	return fmt.Sprintf("%d.%d", cluster, proc)
}

// ClusterKey is the key of a cluster ad, "0<cluster>.-1".
func ClusterKey(cluster int) string {
	return fmt.Sprintf("0%d.-1", cluster)
}

// IsJobKey reports whether key names a proc. Keys beginning with '0' are the header or a cluster.
func IsJobKey(key string) bool {
	return key != "" && key[0] != '0'
}

// IsClusterKey reports whether key names a cluster ad.
func IsClusterKey(key string) bool {
	return key != HeaderKey && strings.HasPrefix(key, "0") && strings.HasSuffix(key, ".-1")
}

// ParseKey splits a proc or cluster key into its cluster and proc ids.
func ParseKey(key string) (cluster int, proc int, ok bool) {
	dot := strings.IndexByte(key, '.')
	if dot <= 0 {
		return 0, 0, false
	}
	c, err := strconv.Atoi(key[:dot])
	if err != nil || c < 0 {
		return 0, 0, false
	}
	p, err := strconv.Atoi(key[dot+1:])
	if err != nil || p < -1 {
		return 0, 0, false
	}
	return c, p, true
}
