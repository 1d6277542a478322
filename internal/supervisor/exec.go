package supervisor

import (
	"context"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/cqnkjsx/htcondor/internal/classad"
)

type process struct {
	cmd    *exec.Cmd
	done   chan struct{}
	status ExitStatus
	err    error
}

// ExecSupervisor runs job commands as local child processes.
type ExecSupervisor struct {
	mu    sync.Mutex
	procs map[int]*process
}

func NewExecSupervisor() *ExecSupervisor {
	return &ExecSupervisor{procs: map[int]*process{}}
}

func (s *ExecSupervisor) Start(key string, ad *classad.ClassAd) (Run, error) {
	path, args, dir, err := Command(ad)
	if err != nil {
		return Run{}, errors.WithMessagef(err, "job %s", key)
	}
	cmd := exec.Command(path, args...)
	cmd.Dir = dir
	if err := cmd.Start(); err != nil {
		return Run{}, errors.Wrapf(err, "starting %s for job %s", path, key)
	}

	p := &process{cmd: cmd, done: make(chan struct{})}
	run := Run{RunId: uuid.New(), Key: key, Pid: cmd.Process.Pid, Started: time.Now()}
	s.mu.Lock()
	s.procs[run.Pid] = p
	s.mu.Unlock()

	go func() {
		defer close(p.done)
		err := cmd.Wait()
		p.status = exitStatusOf(cmd)
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			p.err = errors.WithStack(err)
		}
	}()
	log.Infof("started %s for job %s as pid %d (run %s)", path, key, run.Pid, run.RunId)
	return run, nil
}

func exitStatusOf(cmd *exec.Cmd) ExitStatus {
	state := cmd.ProcessState
	if state == nil {
		return ExitStatus{Code: -1}
	}
	status := ExitStatus{Code: state.ExitCode()}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		status.Signaled = true
		status.Signal = int(ws.Signal())
	}
	return status
}

func (s *ExecSupervisor) Signal(pid int, sig Signal) error {
	p, err := s.lookup(pid)
	if err != nil {
		return err
	}
	var osSignal syscall.Signal
	switch sig {
	case Terminate:
		osSignal = syscall.SIGTERM
	case Kill:
		osSignal = syscall.SIGKILL
	case Suspend:
		osSignal = syscall.SIGSTOP
	case Continue:
		osSignal = syscall.SIGCONT
	default:
		return errors.Errorf("unsupported signal %s", sig)
	}
	return errors.WithStack(p.cmd.Process.Signal(osSignal))
}

// Wait blocks until the process exits or ctx is done. Once the exit has been collected the
// pid is forgotten.
func (s *ExecSupervisor) Wait(ctx context.Context, pid int) (ExitStatus, error) {
	p, err := s.lookup(pid)
	if err != nil {
		return ExitStatus{}, err
	}
	select {
	case <-ctx.Done():
		return ExitStatus{}, errors.WithStack(ctx.Err())
	case <-p.done:
	}
	s.mu.Lock()
	delete(s.procs, pid)
	s.mu.Unlock()
	return p.status, p.err
}

func (s *ExecSupervisor) lookup(pid int) (*process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.procs[pid]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownProcess, "pid %d", pid)
	}
	return p, nil
}
