package jobserver

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/cqnkjsx/htcondor/internal/classad"
	"github.com/cqnkjsx/htcondor/internal/common/schederrors"
	"github.com/cqnkjsx/htcondor/internal/job"
	"github.com/cqnkjsx/htcondor/internal/jobattr"
	"github.com/cqnkjsx/htcondor/internal/submission"
)

// JobView is a point-in-time description of a job, safe to use outside the server lock.
type JobView struct {
	Key        string
	State      job.State
	Status     jobattr.Status
	Submission string
	Owner      string
	Live       bool
	Historical bool
}

// Stats counts the jobs per state and the entries of the submission tables.
type Stats struct {
	Jobs        map[job.State]int
	Submissions int
	Ownerless   int
}

func (s *Server) GetJob(key string) (JobView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.lookup(key)
	if err != nil {
		return JobView{}, err
	}
	return viewOf(j), nil
}

// GetFullAd returns a flattened copy of the job's ad. For a job known only from history the
// ad is read back from the history log.
func (s *Server) GetFullAd(key string) (*classad.ClassAd, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.lookup(key)
	if err != nil {
		return nil, err
	}
	return j.FullAd().Flatten(), nil
}

func (s *Server) GetSummary(key string) (*classad.ClassAd, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, err := s.lookup(key)
	if err != nil {
		return nil, err
	}
	return j.Summary().Flatten(), nil
}

// ListSummaries returns the summaries of every proc counted in the named submission, or of
// every proc when name is empty, ordered by key.
func (s *Server) ListSummaries(name string) ([]*classad.ClassAd, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name != "" {
		if _, ok := s.registry.Get(name); !ok {
			return nil, &schederrors.ErrNotFound{Type: "submission", Value: name}
		}
	}
	var summaries []*classad.ClassAd
	for _, j := range s.jobs.All() {
		if !j.IsProc() {
			continue
		}
		if name != "" && (j.Submission() == nil || j.Submission().Name() != name) {
			continue
		}
		summaries = append(summaries, j.Summary().Flatten())
	}
	return summaries, nil
}

func (s *Server) ListSubmissions() []submission.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.List()
}

func (s *Server) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{
		Jobs:        map[job.State]int{},
		Submissions: s.registry.Len(),
		Ownerless:   s.registry.Ownerless().Len(),
	}
	for _, j := range s.jobs.All() {
		stats.Jobs[j.State()]++
	}
	return stats
}

// States returns the states present in the stats in ascending order.
func (st Stats) States() []job.State {
	states := maps.Keys(st.Jobs)
	slices.Sort(states)
	return states
}

func (s *Server) lookup(key string) (*job.Job, error) {
	if _, _, ok := job.ParseKey(key); !ok {
		return nil, &schederrors.ErrInvalidArgument{Name: "key", Value: key, Message: "expected <cluster>.<proc>"}
	}
	j := s.jobs.Get(key)
	if j == nil {
		return nil, &schederrors.ErrNotFound{Type: "job", Value: key}
	}
	return j, nil
}

func viewOf(j *job.Job) JobView {
	v := JobView{
		Key:        j.Key(),
		State:      j.State(),
		Status:     j.Status(),
		Live:       j.Live() != nil,
		Historical: j.History() != nil,
	}
	if sub := j.Submission(); sub != nil {
		v.Submission = sub.Name()
		v.Owner = sub.Owner()
	}
	return v
}

// Launchable returns a flattened ad, keyed by job, for every idle live proc whose ad names
// a command.
func (s *Server) Launchable() map[string]*classad.ClassAd {
	s.mu.Lock()
	defer s.mu.Unlock()

	launchable := map[string]*classad.ClassAd{}
	for _, j := range s.jobs.All() {
		if !j.IsProc() || j.Live() == nil || j.Status() != jobattr.Idle {
			continue
		}
		ad := j.Live().FullAd().Flatten()
		if cmd, ok := ad.LookupString(jobattr.Cmd); ok && cmd != "" {
			launchable[j.Key()] = ad
		}
	}
	return launchable
}

// StatusOf returns the status of a live job, and false for a job with no live half.
func (s *Server) StatusOf(key string) (jobattr.Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j := s.jobs.Get(key)
	if j == nil || j.Live() == nil {
		return 0, false
	}
	return j.Status(), true
}
