package submission

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/cqnkjsx/htcondor/internal/jobattr"
)

// Object is the accounting bucket shared by every job claiming the same submission name.
// It keeps one count per job status; a job contributes to exactly one bucket at a time.
type Object struct {
	name       string
	owner      string
	counts     map[jobattr.Status]int
	lastChange time.Time
	now        func() time.Time
}

func newObject(name string, now func() time.Time) *Object {
	return &Object{
		name:       name,
		counts:     map[jobattr.Status]int{},
		lastChange: now(),
		now:        now,
	}
}

func (s *Object) Name() string {
	return s.name
}

// Owner is empty until some job referencing the submission reports one.
func (s *Object) Owner() string {
	return s.owner
}

// SetOwner records the owner the first time a non-empty value is seen. Later calls are ignored.
func (s *Object) SetOwner(owner string) {
	if s.owner != "" || owner == "" {
		return
	}
	s.owner = owner
	s.lastChange = s.now()
}

func (s *Object) Increment(status jobattr.Status) {
	if !status.Valid() {
		log.Errorf("submission %s: refusing to count job with invalid status %d", s.name, status)
		return
	}
	s.counts[status]++
	s.lastChange = s.now()
}

// Decrement removes a job from the bucket for status. Underflow indicates an accounting bug
// elsewhere; the count is clamped at zero.
func (s *Object) Decrement(status jobattr.Status) {
	if s.counts[status] <= 0 {
		log.Errorf("submission %s: count for status %s would go negative; clamping to zero", s.name, status)
		s.counts[status] = 0
		return
	}
	s.counts[status]--
	s.lastChange = s.now()
}

func (s *Object) Count(status jobattr.Status) int {
	return s.counts[status]
}

// LiveCount is the number of counted jobs that have not reached a terminal status.
func (s *Object) LiveCount() int {
	live := 0
	for status, n := range s.counts {
		if !status.Terminal() {
			live += n
		}
	}
	return live
}

// Total counts every job in every bucket, terminal ones included.
func (s *Object) Total() int {
	total := 0
	for _, n := range s.counts {
		total += n
	}
	return total
}

func (s *Object) LastChange() time.Time {
	return s.lastChange
}

// Snapshot is a point in time copy of a submission's accounting.
type Snapshot struct {
	Name       string
	Owner      string
	Counts     map[jobattr.Status]int
	Live       int
	LastChange time.Time
}

func (s *Object) Snapshot() Snapshot {
	counts := make(map[jobattr.Status]int, len(jobattr.AllStatuses))
	for _, status := range jobattr.AllStatuses {
		counts[status] = s.counts[status]
	}
	return Snapshot{
		Name:       s.name,
		Owner:      s.owner,
		Counts:     counts,
		Live:       s.LiveCount(),
		LastChange: s.lastChange,
	}
}
