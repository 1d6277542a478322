package supervisor

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/cqnkjsx/htcondor/internal/classad"
	"github.com/cqnkjsx/htcondor/internal/common/logging"
	"github.com/cqnkjsx/htcondor/internal/jobattr"
)

// Updater applies attribute updates to a job, as the queue log would.
type Updater interface {
	SetAttribute(key, name, value string) error
}

// Tracker binds supervised runs to job keys. A job is started at most once; when its
// process exits the exit is written back to the job, which then completes.
type Tracker struct {
	supervisor Supervisor
	updater    Updater
	now        func() time.Time

	mu      sync.Mutex
	runs    map[string]Run
	started map[string]struct{}
	wg      sync.WaitGroup
}

func NewTracker(supervisor Supervisor, updater Updater) *Tracker {
	return &Tracker{
		supervisor: supervisor,
		updater:    updater,
		now:        time.Now,
		runs:       map[string]Run{},
		started:    map[string]struct{}{},
	}
}

// Launch starts the job's command unless the job was started before, marks the job
// running and reports its exit in the background. The returned bool is false when the job
// had already been started. A job that fails to start is held with the failure as its
// hold reason and may be launched again once released.
func (t *Tracker) Launch(ctx context.Context, key string, ad *classad.ClassAd) (Run, bool, error) {
	t.mu.Lock()
	if _, ok := t.started[key]; ok {
		t.mu.Unlock()
		return Run{}, false, nil
	}
	t.started[key] = struct{}{}
	t.mu.Unlock()

	run, err := t.supervisor.Start(key, ad)
	if err != nil {
		t.mu.Lock()
		delete(t.started, key)
		t.mu.Unlock()
		t.set(key, jobattr.HoldReason, strconv.Quote("unable to start job: "+err.Error()))
		t.set(key, jobattr.JobStatus, strconv.Itoa(int(jobattr.Held)))
		return Run{}, false, err
	}
	t.mu.Lock()
	t.runs[key] = run
	t.mu.Unlock()

	t.set(key, jobattr.JobStatus, strconv.Itoa(int(jobattr.Running)))

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		status, err := t.supervisor.Wait(ctx, run.Pid)
		t.mu.Lock()
		delete(t.runs, key)
		t.mu.Unlock()
		if err != nil {
			logging.WithStacktrace(log.WithField("job", key), err).Warn("lost track of job process")
			return
		}
		t.report(key, status)
	}()
	return run, true, nil
}

// Remove asks the job's process to terminate.
func (t *Tracker) Remove(key string) error {
	t.mu.Lock()
	run, ok := t.runs[key]
	t.mu.Unlock()
	if !ok {
		return errors.Wrapf(ErrUnknownProcess, "job %s has no running process", key)
	}
	return t.supervisor.Signal(run.Pid, Terminate)
}

// Stop terminates the job's process and kills it if it is still running after grace.
func (t *Tracker) Stop(key string, grace time.Duration) error {
	if err := t.Remove(key); err != nil {
		return err
	}
	if grace <= 0 {
		return nil
	}
	time.AfterFunc(grace, func() {
		t.mu.Lock()
		run, ok := t.runs[key]
		t.mu.Unlock()
		if !ok {
			return
		}
		log.Warnf("job %s did not exit within %s; killing pid %d", key, grace, run.Pid)
		if err := t.supervisor.Signal(run.Pid, Kill); err != nil {
			log.WithError(err).Warnf("unable to kill job %s", key)
		}
	})
	return nil
}

// Running reports whether the job has a run in progress.
func (t *Tracker) Running(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.runs[key]
	return ok
}

// Runs returns the runs still in progress ordered by job key.
func (t *Tracker) Runs() []Run {
	t.mu.Lock()
	defer t.mu.Unlock()
	keys := maps.Keys(t.runs)
	slices.Sort(keys)
	runs := make([]Run, 0, len(keys))
	for _, key := range keys {
		runs = append(runs, t.runs[key])
	}
	return runs
}

// Wait blocks until every launched run has been reported.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

// report writes the exit attributes first and the status last, so the job changes
// accounting bucket with its exit already recorded.
func (t *Tracker) report(key string, status ExitStatus) {
	log.Infof("job %s exited with code %d (signaled %t)", key, status.Code, status.Signaled)
	t.set(key, jobattr.ExitBySignal, strconv.FormatBool(status.Signaled))
	if status.Signaled {
		t.set(key, jobattr.ExitSignal, strconv.Itoa(status.Signal))
	} else {
		t.set(key, jobattr.ExitCode, strconv.Itoa(status.Code))
	}
	t.set(key, jobattr.CompletionDate, strconv.FormatInt(t.now().Unix(), 10))
	t.set(key, jobattr.JobStatus, strconv.Itoa(int(jobattr.Completed)))
}

func (t *Tracker) set(key, name, value string) {
	if err := t.updater.SetAttribute(key, name, value); err != nil {
		log.WithError(err).Warnf("unable to set %s on job %s", name, key)
	}
}
