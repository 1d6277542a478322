package job

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/cqnkjsx/htcondor/internal/classad"
	"github.com/cqnkjsx/htcondor/internal/jobattr"
)

// LiveImpl is the in-memory backing of a job: a plain proc or a cluster.
type LiveImpl interface {
	Key() string
	Status() jobattr.Status
	Get(name string) (classad.Attribute, bool)
	// Set applies text to the attribute and reports whether it was applied.
	Set(name, text string) bool
	Remove(name string)
	FullAd() *classad.ClassAd
	Summary() *classad.ClassAd
	DestroyReady() bool

	bind(j *Job)
	release()
}

// LiveJobImpl backs a job with a live ad, chained to its cluster's ad when it has one.
type LiveJobImpl struct {
	key     string
	job     *Job
	ad      *classad.ClassAd
	cluster *ClusterJobImpl

	summary    *classad.ClassAd
	summaryGen uint64
	released   bool
}

// NewLiveJobImpl creates the live backing for key. A non-nil cluster becomes the chain
// parent of the new ad and counts it as one of its procs.
func NewLiveJobImpl(key string, cluster *ClusterJobImpl) *LiveJobImpl {
	l := &LiveJobImpl{
		key: key,
		ad:  classad.NewClassAd(),
	}
	if cluster != nil {
		if err := l.ad.ChainTo(cluster.ad); err != nil {
			// a fresh ad cannot be an ancestor of the cluster ad
			panic(err)
		}
		l.cluster = cluster
		cluster.attach(l)
	}
	log.Debugf("LiveJobImpl created for '%s'", key)
	return l
}

func (l *LiveJobImpl) Key() string {
	return l.key
}

func (l *LiveJobImpl) bind(j *Job) {
	l.job = j
}

// Cluster returns the cluster whose ad this job's ad is chained to, if any.
func (l *LiveJobImpl) Cluster() *ClusterJobImpl {
	return l.cluster
}

// Status reads JobStatus through the chain; an ad without one reports StatusMin.
func (l *LiveJobImpl) Status() jobattr.Status {
	status, ok := l.ad.LookupInteger(jobattr.JobStatus)
	if !ok {
		return jobattr.StatusMin
	}
	return jobattr.Status(status)
}

func (l *LiveJobImpl) Get(name string) (classad.Attribute, bool) {
	return classad.NewAttributeView(l.ad).Get(name)
}

// Set parses text, stores the evaluated result and keeps the job's submission accounting in
// step: a status change moves the job between buckets, a submission name resolves the
// job's submission and an owner either sets the submission owner or, while no
// submission is known, is parked in the ownerless table for the cluster.
// Text that does not parse is logged and nothing changes.
func (l *LiveJobImpl) Set(name, text string) bool {
	expr, err := classad.Normalize(text)
	if err != nil {
		log.WithError(err).Warnf("error parsing %s[%s] = %s, skipping", l.key, name, text)
		return false
	}
	if !classad.IsValidAttributeName(name) {
		log.Warnf("invalid attribute name %q for %s, skipping", name, l.key)
		return false
	}

	isStatus := strings.EqualFold(name, jobattr.JobStatus)
	if isStatus && l.job != nil {
		l.job.SetStatus(l.Status())
		l.job.DecrementSubmission()
	}
	l.ad.Insert(name, expr)
	if isStatus && l.job != nil {
		l.job.SetStatus(l.Status())
		l.job.IncrementSubmission()
	}

	if l.job == nil {
		return true
	}
	switch {
	case strings.EqualFold(name, jobattr.Submission):
		if submission, ok := l.ad.LookupString(jobattr.Submission); ok {
			l.job.SetSubmission(submission)
		}
	case strings.EqualFold(name, jobattr.Owner):
		if owner, ok := l.ad.LookupString(jobattr.Owner); ok {
			l.job.setOwner(owner)
		}
	}
	return true
}

// Remove deletes a local attribute. The ad is unchained for the delete and chained back to
// the same parent afterwards.
func (l *LiveJobImpl) Remove(name string) {
	isStatus := strings.EqualFold(name, jobattr.JobStatus)
	if isStatus && l.job != nil {
		l.job.DecrementSubmission()
	}
	parent := l.ad.Unchain()
	l.ad.Delete(name)
	if parent != nil {
		if err := l.ad.ChainTo(parent); err != nil {
			log.WithError(err).Errorf("unable to rechain %s after removing %s", l.key, name)
		}
	}
	if isStatus && l.job != nil {
		l.job.SetStatus(l.Status())
		l.job.IncrementSubmission()
	}
}

// FullAd returns the live ad itself. Callers must not modify it except through Set and Remove.
func (l *LiveJobImpl) FullAd() *classad.ClassAd {
	return l.ad
}

// Summary returns the projection of the ad onto the live summary attributes. The
// projection is rebuilt only after the ad or its cluster ad changes.
func (l *LiveJobImpl) Summary() *classad.ClassAd {
	gen := l.ad.Generation()
	if l.summary != nil && l.summaryGen == gen {
		return l.summary
	}
	summary := classad.NewClassAd()
	view := classad.NewAttributeView(summary)
	for _, name := range jobattr.LiveSummary {
		a, ok := l.Get(name)
		if !ok {
			continue
		}
		switch a.Type {
		case classad.IntegerType, classad.FloatType:
			if err := view.SetAttribute(name, a); err != nil {
				log.WithError(err).Warnf("summary of %s", l.key)
			}
		default:
			// expressions are summarised as their text
			summary.AssignString(name, a.Value)
		}
	}
	l.summary = summary
	l.summaryGen = gen
	return summary
}

// DestroyReady is true once the job has completed or been removed.
func (l *LiveJobImpl) DestroyReady() bool {
	return l.Status().Terminal()
}

func (l *LiveJobImpl) release() {
	if l.released {
		return
	}
	l.released = true
	l.ad.Unchain()
	l.summary = nil
	if l.cluster != nil {
		l.cluster.detach(l)
		l.cluster = nil
	}
	log.Debugf("LiveJobImpl destroyed: key '%s'", l.key)
}
