package submission

import (
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Registry maps submission names to their accounting objects. It is owned by the
// process that drives the job lifecycle and is not safe for concurrent use.
type Registry struct {
	submissions   map[string]*Object
	ownerless     *OwnerlessClusters
	idleRetention time.Duration
	now           func() time.Time
}

type Option func(r *Registry)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// WithIdleRetention sets how long a submission with no jobs at all is kept before Sweep drops it.
// Zero keeps idle submissions forever.
func WithIdleRetention(d time.Duration) Option {
	return func(r *Registry) {
		r.idleRetention = d
	}
}

func NewRegistry(ownerless *OwnerlessClusters, opts ...Option) *Registry {
	r := &Registry{
		submissions: map[string]*Object{},
		ownerless:   ownerless,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) Ownerless() *OwnerlessClusters {
	return r.ownerless
}

// Resolve returns the submission called name, creating it on first reference.
// Names are case-sensitive. A non-empty ownerHint sets the owner if none is known yet.
func (r *Registry) Resolve(name string, ownerHint string) *Object {
	s, ok := r.submissions[name]
	if !ok {
		s = newObject(name, r.now)
		r.submissions[name] = s
		log.Debugf("created submission %s", name)
	}
	s.SetOwner(ownerHint)
	return s
}

func (r *Registry) Get(name string) (*Object, bool) {
	s, ok := r.submissions[name]
	return s, ok
}

func (r *Registry) Len() int {
	return len(r.submissions)
}

// List returns snapshots of every submission, sorted by name.
func (r *Registry) List() []Snapshot {
	names := maps.Keys(r.submissions)
	slices.Sort(names)
	result := make([]Snapshot, 0, len(names))
	for _, name := range names {
		result = append(result, r.submissions[name].Snapshot())
	}
	return result
}

// Sweep drops submissions that have counted no job for longer than the idle retention
// and purges expired ownerless entries. It returns the names of the dropped submissions.
func (r *Registry) Sweep() []string {
	r.ownerless.Purge()
	if r.idleRetention <= 0 {
		return nil
	}
	cutoff := r.now().Add(-r.idleRetention)
	var dropped []string
	for name, s := range r.submissions {
		if s.Total() == 0 && s.LastChange().Before(cutoff) {
			delete(r.submissions, name)
			dropped = append(dropped, name)
		}
	}
	slices.Sort(dropped)
	if len(dropped) > 0 {
		log.Infof("dropped %d idle submissions", len(dropped))
	}
	return dropped
}
