package submission

import (
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
)

// OwnerlessClusters remembers the owner of a cluster whose jobs reported an owner before
// any submission name was known. Entries are consumed when the cluster resolves a
// submission and otherwise expire after the configured ttl.
type OwnerlessClusters struct {
	entries *cache.Cache
}

// NewOwnerlessClusters creates the table. A non-positive ttl keeps entries until consumed.
// Expired entries are purged by Purge rather than a background janitor.
func NewOwnerlessClusters(ttl time.Duration) *OwnerlessClusters {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &OwnerlessClusters{entries: cache.New(ttl, 0)}
}

func (o *OwnerlessClusters) Put(cluster int, owner string) {
	o.entries.SetDefault(strconv.Itoa(cluster), owner)
}

func (o *OwnerlessClusters) Peek(cluster int) (string, bool) {
	v, ok := o.entries.Get(strconv.Itoa(cluster))
	if !ok {
		return "", false
	}
	return v.(string), true
}

// Take returns and erases the owner stashed for cluster.
func (o *OwnerlessClusters) Take(cluster int) (string, bool) {
	owner, ok := o.Peek(cluster)
	if ok {
		o.entries.Delete(strconv.Itoa(cluster))
	}
	return owner, ok
}

func (o *OwnerlessClusters) Purge() {
	o.entries.DeleteExpired()
}

func (o *OwnerlessClusters) Len() int {
	return o.entries.ItemCount()
}
