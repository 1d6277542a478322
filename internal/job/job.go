package job

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/cqnkjsx/htcondor/internal/classad"
	"github.com/cqnkjsx/htcondor/internal/history"
	"github.com/cqnkjsx/htcondor/internal/jobattr"
	"github.com/cqnkjsx/htcondor/internal/submission"
)

type State int

const (
	// Unattached is the state of a Job before its first impl is attached.
	Unattached State = iota
	LiveOnly
	HistoricalOnly
	LiveAndHistorical
	// DestroyPending is a live-only job whose live impl is destroy ready.
	DestroyPending
	Destroyed
)

func (s State) String() string {
	switch s {
	case Unattached:
		return "Unattached"
	case LiveOnly:
		return "LiveOnly"
	case HistoricalOnly:
		return "HistoricalOnly"
	case LiveAndHistorical:
		return "LiveAndHistorical"
	case DestroyPending:
		return "DestroyPending"
	case Destroyed:
		return "Destroyed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Job ties a stable key to the live and historical impls currently backing it, and
// accounts for the job in its submission.
//
// A Job holds at most one outstanding increment on its submission: the bucket it was
// counted in is remembered so that the matching decrement always hits the same bucket.
type Job struct {
	key     string
	cluster int
	isProc  bool

	status     jobattr.Status
	live       LiveImpl
	history    *HistoryJobImpl
	submission *submission.Object
	registry   *submission.Registry

	counted       bool
	countedStatus jobattr.Status
	destroyed     bool
	// ownerGrouped is set while the submission is the owner fallback, not a named one
	ownerGrouped bool
}

func New(key string, registry *submission.Registry) *Job {
	cluster, _, _ := ParseKey(key)
	log.Debugf("Job created for '%s'", key)
	return &Job{
		key:      key,
		cluster:  cluster,
		isProc:   IsJobKey(key),
		registry: registry,
	}
}

func (j *Job) Key() string {
	return j.key
}

func (j *Job) ClusterId() int {
	return j.cluster
}

// IsProc is false for cluster and header jobs.
func (j *Job) IsProc() bool {
	return j.isProc
}

// Status is the last status reported by the authoritative impl. A live impl takes
// precedence over a historical one.
func (j *Job) Status() jobattr.Status {
	return j.status
}

func (j *Job) SetStatus(status jobattr.Status) {
	j.status = status
}

func (j *Job) Submission() *submission.Object {
	return j.submission
}

func (j *Job) Live() LiveImpl {
	return j.live
}

func (j *Job) History() *HistoryJobImpl {
	return j.history
}

func (j *Job) State() State {
	switch {
	case j.destroyed:
		return Destroyed
	case j.live != nil && j.history != nil:
		return LiveAndHistorical
	case j.live != nil:
		if j.live.DestroyReady() {
			return DestroyPending
		}
		return LiveOnly
	case j.history != nil:
		return HistoricalOnly
	}
	return Unattached
}

// AttachLive makes impl the live backing of the job. If the job was known from history,
// the live status supersedes the historical one and the job is re-counted accordingly.
func (j *Job) AttachLive(impl LiveImpl) {
	impl.bind(j)
	if j.live != nil && j.live != impl {
		log.Warnf("replacing live impl of job '%s'", j.key)
		j.live.release()
	}
	j.live = impl

	if j.history != nil {
		j.SetStatus(j.history.Status())
		j.DecrementSubmission()
	}
	j.SetStatus(impl.Status())

	if j.submission == nil {
		if name, ok := impl.FullAd().LookupString(jobattr.Submission); ok {
			j.SetSubmission(name)
			return
		}
		if j.resolveOwnerSubmission() {
			return
		}
	}
	j.IncrementSubmission()
}

// AttachHistory makes impl the historical backing of the job, resolving the submission from
// the history entry if none is known yet. The live half, if any, is retired when it is
// already destroy ready.
func (j *Job) AttachHistory(impl *HistoryJobImpl) {
	if j.history != nil {
		log.Debugf("replacing history impl of job '%s'", j.key)
	}
	j.history = impl
	if j.live == nil {
		j.SetStatus(impl.Status())
	}
	if j.submission == nil {
		j.SetSubmission(impl.SubmissionId())
	}
	j.Destroy()
}

// Destroy reports whether the job can be reaped. A destroy-ready live impl backed by a
// historical one is freed instead, leaving the history authoritative, and Destroy returns
// false. Jobs known only from history are never reaped.
func (j *Job) Destroy() bool {
	liveReady := j.live != nil && j.live.DestroyReady()
	if j.history != nil && liveReady {
		j.retireLive()
		return false
	}
	return liveReady
}

// DetachLive frees the live impl whatever its status. A job backed by history falls back to
// it and DetachLive returns true; any other job is released.
func (j *Job) DetachLive() bool {
	if j.history == nil {
		j.Release()
		return false
	}
	if j.live != nil {
		j.retireLive()
	}
	return true
}

// retireLive hands authority to the history impl, moving the job's count to the
// historical status bucket.
func (j *Job) retireLive() {
	j.live.release()
	j.live = nil
	if j.counted && j.countedStatus != j.history.Status() {
		j.DecrementSubmission()
		j.SetStatus(j.history.Status())
		j.IncrementSubmission()
	}
	j.SetStatus(j.history.Status())
}

// Release tears the job down once it has been reaped: its submission count is returned and
// the live impl, if any, is freed.
func (j *Job) Release() {
	if j.destroyed {
		return
	}
	if j.submission != nil && j.submission.Owner() == "" {
		log.WithField("submission", j.submission.Name()).Errorf("job '%s' finalized while its submission has no owner", j.key)
	}
	j.DecrementSubmission()
	if j.live != nil {
		j.live.release()
		j.live = nil
	}
	j.destroyed = true
	log.Debugf("Job destroyed: '%s'", j.key)
}

// Set applies an attribute update to the live impl. Jobs known only from history are immutable.
func (j *Job) Set(name, text string) {
	if j.live != nil {
		j.live.Set(name, text)
	}
}

func (j *Job) Remove(name string) {
	if j.live != nil {
		j.live.Remove(name)
	}
}

// FullAd returns the live ad when there is one, and otherwise reconstructs the ad from
// history. The live ad is shared and must not be modified by the caller.
func (j *Job) FullAd() *classad.ClassAd {
	switch {
	case j.live != nil:
		return j.live.FullAd()
	case j.history != nil:
		return j.history.FullAd()
	}
	return classad.NewClassAd()
}

func (j *Job) Summary() *classad.ClassAd {
	switch {
	case j.live != nil:
		return j.live.Summary()
	case j.history != nil:
		return j.history.Summary()
	}
	return classad.NewClassAd()
}

// IncrementSubmission counts the job in the bucket of its current status. It is a no-op
// without a submission or when the job is already counted.
func (j *Job) IncrementSubmission() {
	if j.submission == nil || j.counted || !j.isProc {
		return
	}
	if !j.status.Valid() {
		log.Errorf("job '%s' has invalid status %d; not counted", j.key, j.status)
		return
	}
	j.submission.Increment(j.status)
	j.counted = true
	j.countedStatus = j.status
}

// DecrementSubmission returns the job's outstanding count, if it has one.
func (j *Job) DecrementSubmission() {
	if j.submission == nil || !j.counted {
		return
	}
	j.submission.Decrement(j.countedStatus)
	j.counted = false
}

// SetSubmission resolves the named submission for the job and counts the job in it. The
// owner comes from the ownerless table entry for the cluster when there is one, else
// from the job's own ad or history entry. For a cluster job the submission is handed on
// to every proc of the cluster that has none or is only grouped by owner.
func (j *Job) SetSubmission(name string) {
	j.setSubmission(name, false)
}

func (j *Job) setSubmission(name string, ownerGrouped bool) {
	if name == "" {
		return
	}
	if !j.isProc {
		if c, ok := j.live.(*ClusterJobImpl); ok {
			c.eachProcJob(func(proc *Job) {
				if proc.submission == nil || proc.ownerGrouped {
					proc.setSubmission(name, ownerGrouped)
				}
			})
		}
		return
	}
	if j.submission != nil {
		if j.submission.Name() == name {
			j.ownerGrouped = j.ownerGrouped && ownerGrouped
			return
		}
		log.Infof("job '%s' moves from submission %s to %s", j.key, j.submission.Name(), name)
		j.DecrementSubmission()
	}
	j.ownerGrouped = ownerGrouped

	owner, ok := j.registry.Ownerless().Take(j.cluster)
	if !ok {
		owner = j.ownerHint()
		if owner == "" {
			log.Debugf("unable to resolve owner for job '%s' and cluster '%d'", j.key, j.cluster)
		}
	}
	j.submission = j.registry.Resolve(name, owner)
	j.IncrementSubmission()
}

func (j *Job) ownerHint() string {
	if j.live != nil {
		if owner, ok := j.live.FullAd().LookupString(jobattr.Owner); ok {
			return owner
		}
	}
	if j.history != nil {
		return j.history.Entry().Owner
	}
	return ""
}

// resolveOwnerSubmission groups a proc whose ad names no submission under its owner and
// cluster, as history does for such jobs. It reports whether a submission was resolved.
func (j *Job) resolveOwnerSubmission() bool {
	if !j.isProc || j.submission != nil {
		return false
	}
	owner := j.ownerHint()
	if owner == "" {
		owner, _ = j.registry.Ownerless().Peek(j.cluster)
	}
	if owner == "" {
		return false
	}
	j.setSubmission(history.OwnerSubmission(owner, j.cluster), true)
	return true
}

// setOwner records an owner reported by the live ad. Until the job has a submission the
// owner is parked in the ownerless table under the job's cluster, and procs that still
// have no submission are grouped by owner. A cluster whose procs all have a submission
// hands the owner straight to them.
func (j *Job) setOwner(owner string) {
	if j.submission != nil {
		j.submission.SetOwner(owner)
		return
	}
	c, isCluster := j.live.(*ClusterJobImpl)
	if isCluster && c.Refs() > 0 {
		pending := false
		c.eachProcJob(func(proc *Job) {
			if proc.submission != nil {
				proc.submission.SetOwner(owner)
			} else {
				pending = true
			}
		})
		if !pending {
			return
		}
	}
	log.Debugf("no submission yet for '%s'; deferring owner %s for cluster %d", j.key, owner, j.cluster)
	j.registry.Ownerless().Put(j.cluster, owner)
	if isCluster {
		c.eachProcJob(func(proc *Job) {
			proc.resolveOwnerSubmission()
		})
		return
	}
	j.resolveOwnerSubmission()
}
