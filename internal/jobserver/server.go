// Package jobserver keeps the live and historical view of every job known to a schedd: it
// consumes the job queue log, indexes the history files and answers queries over both.
package jobserver

import (
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/cqnkjsx/htcondor/internal/common/logging"
	"github.com/cqnkjsx/htcondor/internal/common/schederrors"
	"github.com/cqnkjsx/htcondor/internal/history"
	"github.com/cqnkjsx/htcondor/internal/job"
	"github.com/cqnkjsx/htcondor/internal/submission"
)

// Server owns every Job and the submission registry. All access goes through mu, which
// serialises queue log ops, history entries, background tasks and queries exactly as a
// single dispatch loop would.
type Server struct {
	mu        sync.Mutex
	jobs      *JobDb
	registry  *submission.Registry
	adReader  *history.AdReader
	publisher submission.Publisher
	// cluster keys whose ad was destroyed while procs still referred to it
	pendingClusters map[string]struct{}
}

func NewServer(registry *submission.Registry, adReader *history.AdReader, publisher submission.Publisher) (*Server, error) {
	jobs, err := NewJobDb()
	if err != nil {
		return nil, err
	}
	return &Server{
		jobs:            jobs,
		registry:        registry,
		adReader:        adReader,
		publisher:       publisher,
		pendingClusters: map[string]struct{}{},
	}, nil
}

// NewClassAd creates the live backing for key. Cluster keys get a ClusterJobImpl; proc keys
// get a LiveJobImpl chained to their cluster's ad.
func (s *Server) NewClassAd(key, _, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key == job.HeaderKey {
		return nil
	}
	cluster, _, ok := job.ParseKey(key)
	if !ok {
		return &schederrors.ErrInvalidArgument{Name: "key", Value: key, Message: "expected <cluster>.<proc>"}
	}

	j := s.jobs.Get(key)
	if j != nil && j.Live() != nil {
		return &schederrors.ErrAlreadyExists{Type: "job", Value: key}
	}
	if j == nil {
		j = job.New(key, s.registry)
	}

	if job.IsClusterKey(key) {
		delete(s.pendingClusters, key)
		j.AttachLive(job.NewClusterJobImpl(key))
	} else {
		j.AttachLive(job.NewLiveJobImpl(key, s.clusterImpl(cluster)))
	}
	return s.jobs.Upsert(j)
}

// DestroyClassAd removes key from the queue. A proc is reaped when it is destroy ready; a
// cluster is reaped once its last proc has gone.
func (s *Server) DestroyClassAd(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key == job.HeaderKey {
		return nil
	}
	j := s.jobs.Get(key)
	if j == nil {
		return &schederrors.ErrNotFound{Type: "job", Value: key}
	}
	if !j.IsProc() {
		s.pendingClusters[key] = struct{}{}
		return s.reapCluster(j.ClusterId())
	}
	if j.Destroy() {
		if err := s.reap(j); err != nil {
			return err
		}
	} else if j.Live() != nil {
		log.Warnf("job '%s' left the queue in status %s; keeping it live", key, j.Status())
	}
	return s.reapCluster(j.ClusterId())
}

func (s *Server) SetAttribute(key, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key == job.HeaderKey {
		return nil
	}
	j := s.jobs.Get(key)
	if j == nil {
		return &schederrors.ErrNotFound{Type: "job", Value: key}
	}
	j.Set(name, value)
	return nil
}

func (s *Server) DeleteAttribute(key, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if key == job.HeaderKey {
		return nil
	}
	j := s.jobs.Get(key)
	if j == nil {
		return &schederrors.ErrNotFound{Type: "job", Value: key}
	}
	j.Remove(name)
	return nil
}

// Reset drops the live half of every job ahead of a queue log replay. Jobs known from
// history survive as historical-only jobs.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.jobs.All()
	// procs first, so that no cluster is released with procs chained to it
	for _, procsFirst := range []bool{true, false} {
		for _, j := range all {
			if j.IsProc() != procsFirst {
				continue
			}
			if !j.DetachLive() {
				if err := s.jobs.Delete(j.Key()); err != nil {
					logging.WithStacktrace(log.WithField("job", j.Key()), err).Error("unable to delete job")
				}
			}
		}
	}
	s.pendingClusters = map[string]struct{}{}
	log.Infof("reset live state; %d jobs remain from history", s.jobs.Len())
}

// AddHistoryEntry attaches a history record to its job, creating a historical-only job when
// the job is not in the queue.
func (s *Server) AddHistoryEntry(entry history.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := job.ProcKey(entry.Cluster, entry.Proc)
	j := s.jobs.Get(key)
	if j == nil {
		j = job.New(key, s.registry)
		if err := s.jobs.Upsert(j); err != nil {
			return err
		}
	}
	j.AttachHistory(job.NewHistoryJobImpl(entry, s.adReader))
	return s.reapCluster(entry.Cluster)
}

// Sweep drops idle submissions and expired ownerless entries.
func (s *Server) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dropped := s.registry.Sweep(); len(dropped) > 0 {
		log.Infof("dropped %d idle submissions: %v", len(dropped), dropped)
	}
}

// Publish pushes the current submission snapshots to the configured publisher.
func (s *Server) Publish() error {
	if s.publisher == nil {
		return nil
	}
	snapshots := s.ListSubmissions()
	return errors.WithMessage(s.publisher.Publish(snapshots), "publishing submissions")
}

func (s *Server) clusterImpl(cluster int) *job.ClusterJobImpl {
	c := s.jobs.Get(job.ClusterKey(cluster))
	if c == nil {
		log.Warnf("no cluster ad for cluster %d; proc will not inherit cluster attributes", cluster)
		return nil
	}
	impl, ok := c.Live().(*job.ClusterJobImpl)
	if !ok {
		return nil
	}
	return impl
}

func (s *Server) reap(j *job.Job) error {
	j.Release()
	return s.jobs.Delete(j.Key())
}

// reapCluster reaps the cluster's job if its destroy was requested and no proc refers to it.
func (s *Server) reapCluster(cluster int) error {
	key := job.ClusterKey(cluster)
	if _, pending := s.pendingClusters[key]; !pending {
		return nil
	}
	c := s.jobs.Get(key)
	if c == nil {
		delete(s.pendingClusters, key)
		return nil
	}
	if !c.Destroy() {
		return nil
	}
	delete(s.pendingClusters, key)
	log.Debugf("reaping cluster %d", cluster)
	return s.reap(c)
}
