package job

import (
	log "github.com/sirupsen/logrus"
)

// ClusterJobImpl is the live backing of a cluster ad. Its ad is the chain parent of the ads
// of every proc in the cluster, and it is destroy ready only when no proc refers to it.
type ClusterJobImpl struct {
	LiveJobImpl
	procs map[*LiveJobImpl]struct{}
}

func NewClusterJobImpl(key string) *ClusterJobImpl {
	c := &ClusterJobImpl{
		LiveJobImpl: *NewLiveJobImpl(key, nil),
		procs:       map[*LiveJobImpl]struct{}{},
	}
	return c
}

// Refs is the number of procs whose ads are chained to the cluster ad.
func (c *ClusterJobImpl) Refs() int {
	return len(c.procs)
}

// DestroyReady ignores the cluster's own status: a cluster lives as long as its procs do.
func (c *ClusterJobImpl) DestroyReady() bool {
	return len(c.procs) == 0
}

func (c *ClusterJobImpl) attach(proc *LiveJobImpl) {
	c.procs[proc] = struct{}{}
}

func (c *ClusterJobImpl) detach(proc *LiveJobImpl) {
	delete(c.procs, proc)
}

// eachProcJob calls fn for every proc of the cluster that is bound to a Job.
func (c *ClusterJobImpl) eachProcJob(fn func(j *Job)) {
	for proc := range c.procs {
		if proc.job != nil {
			fn(proc.job)
		}
	}
}

func (c *ClusterJobImpl) release() {
	if c.released {
		return
	}
	if len(c.procs) > 0 {
		log.Errorf("releasing cluster %s with %d procs still chained to it", c.key, len(c.procs))
		for proc := range c.procs {
			proc.ad.Unchain()
			proc.cluster = nil
		}
		c.procs = map[*LiveJobImpl]struct{}{}
	}
	c.LiveJobImpl.release()
}
