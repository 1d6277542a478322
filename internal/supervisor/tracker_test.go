package supervisor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cqnkjsx/htcondor/internal/classad"
	"github.com/cqnkjsx/htcondor/internal/jobattr"
)

type fakeSupervisor struct {
	mu       sync.Mutex
	nextPid  int
	exits    map[int]chan ExitStatus
	signals  []string
	startErr error
}

func newFakeSupervisor() *fakeSupervisor {
	return &fakeSupervisor{nextPid: 100, exits: map[int]chan ExitStatus{}}
}

func (f *fakeSupervisor) Start(key string, _ *classad.ClassAd) (Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return Run{}, f.startErr
	}
	f.nextPid++
	f.exits[f.nextPid] = make(chan ExitStatus, 1)
	return Run{RunId: uuid.New(), Key: key, Pid: f.nextPid, Started: time.Now()}, nil
}

func (f *fakeSupervisor) Signal(pid int, sig Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals = append(f.signals, fmt.Sprintf("%d:%s", pid, sig))
	return nil
}

func (f *fakeSupervisor) Wait(ctx context.Context, pid int) (ExitStatus, error) {
	f.mu.Lock()
	exit := f.exits[pid]
	f.mu.Unlock()
	select {
	case <-ctx.Done():
		return ExitStatus{}, ctx.Err()
	case status := <-exit:
		return status, nil
	}
}

func (f *fakeSupervisor) exit(pid int, status ExitStatus) {
	f.mu.Lock()
	exit := f.exits[pid]
	f.mu.Unlock()
	exit <- status
}

type recordingUpdater struct {
	mu      sync.Mutex
	updates []string
}

func (u *recordingUpdater) SetAttribute(key, name, value string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.updates = append(u.updates, fmt.Sprintf("%s %s=%s", key, name, value))
	return nil
}

func (u *recordingUpdater) recorded() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string{}, u.updates...)
}

func newTestTracker() (*Tracker, *fakeSupervisor, *recordingUpdater) {
	sup := newFakeSupervisor()
	updater := &recordingUpdater{}
	tracker := NewTracker(sup, updater)
	tracker.now = func() time.Time { return time.Unix(1700000000, 0) }
	return tracker, sup, updater
}

func TestTracker_ReportsExit(t *testing.T) {
	tracker, sup, updater := newTestTracker()

	run, launched, err := tracker.Launch(context.Background(), "5.0", classad.NewClassAd())
	require.NoError(t, err)
	assert.True(t, launched)
	assert.NotEqual(t, uuid.Nil, run.RunId)
	assert.Equal(t, []Run{run}, tracker.Runs())

	sup.exit(run.Pid, ExitStatus{Code: 3})
	tracker.Wait()

	assert.Equal(t, []string{
		"5.0 JobStatus=2",
		"5.0 ExitBySignal=false",
		"5.0 ExitCode=3",
		"5.0 CompletionDate=1700000000",
		fmt.Sprintf("5.0 JobStatus=%d", jobattr.Completed),
	}, updater.recorded())
	assert.Empty(t, tracker.Runs())
}

func TestTracker_ReportsSignal(t *testing.T) {
	tracker, sup, updater := newTestTracker()
	run, _, err := tracker.Launch(context.Background(), "5.1", classad.NewClassAd())
	require.NoError(t, err)

	require.NoError(t, tracker.Remove("5.1"))
	assert.Equal(t, []string{fmt.Sprintf("%d:Terminate", run.Pid)}, sup.signals)

	sup.exit(run.Pid, ExitStatus{Code: -1, Signaled: true, Signal: 15})
	tracker.Wait()
	assert.Contains(t, updater.recorded(), "5.1 ExitSignal=15")
	assert.NotContains(t, updater.recorded(), "5.1 ExitCode=-1")

	assert.ErrorIs(t, tracker.Remove("5.1"), ErrUnknownProcess)
}

func TestTracker_LaunchesOnce(t *testing.T) {
	tracker, sup, _ := newTestTracker()
	run, launched, err := tracker.Launch(context.Background(), "5.0", classad.NewClassAd())
	require.NoError(t, err)
	require.True(t, launched)

	_, launched, err = tracker.Launch(context.Background(), "5.0", classad.NewClassAd())
	require.NoError(t, err)
	assert.False(t, launched)

	sup.exit(run.Pid, ExitStatus{})
	tracker.Wait()
}

func TestTracker_StartFailure(t *testing.T) {
	tracker, sup, updater := newTestTracker()
	sup.startErr = ErrNoCommand
	_, launched, err := tracker.Launch(context.Background(), "5.0", classad.NewClassAd())
	assert.ErrorIs(t, err, ErrNoCommand)
	assert.False(t, launched)
	assert.False(t, tracker.Running("5.0"))
	assert.Equal(t, []string{
		fmt.Sprintf("5.0 %s=%q", jobattr.HoldReason, "unable to start job: "+err.Error()),
		fmt.Sprintf("5.0 %s=%d", jobattr.JobStatus, jobattr.Held),
	}, updater.recorded())

	// once released the job can be launched again
	sup.startErr = nil
	run, launched, err := tracker.Launch(context.Background(), "5.0", classad.NewClassAd())
	require.NoError(t, err)
	assert.True(t, launched)
	sup.exit(run.Pid, ExitStatus{Code: 0})
	tracker.Wait()
}

func TestTracker_CancelledWaitReportsNothing(t *testing.T) {
	tracker, _, updater := newTestTracker()
	ctx, cancel := context.WithCancel(context.Background())
	_, _, err := tracker.Launch(ctx, "5.0", classad.NewClassAd())
	require.NoError(t, err)
	cancel()
	tracker.Wait()
	assert.Equal(t, []string{"5.0 JobStatus=2"}, updater.recorded())
}

func (f *fakeSupervisor) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.signals...)
}

func TestTracker_StopKillsAfterGrace(t *testing.T) {
	tracker, sup, _ := newTestTracker()
	run, _, err := tracker.Launch(context.Background(), "5.0", classad.NewClassAd())
	require.NoError(t, err)
	require.True(t, tracker.Running("5.0"))

	require.NoError(t, tracker.Stop("5.0", 10*time.Millisecond))
	assert.Eventually(t, func() bool {
		return len(sup.sent()) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{
		fmt.Sprintf("%d:Terminate", run.Pid),
		fmt.Sprintf("%d:Kill", run.Pid),
	}, sup.sent())

	sup.exit(run.Pid, ExitStatus{Code: -1, Signaled: true, Signal: 9})
	tracker.Wait()
	assert.False(t, tracker.Running("5.0"))
}

func TestTracker_StopUnknownJob(t *testing.T) {
	tracker, _, _ := newTestTracker()
	assert.ErrorIs(t, tracker.Stop("7.0", time.Second), ErrUnknownProcess)
}
