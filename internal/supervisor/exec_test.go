package supervisor

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cqnkjsx/htcondor/internal/classad"
	"github.com/cqnkjsx/htcondor/internal/jobattr"
)

func shellAd(script string) *classad.ClassAd {
	ad := classad.NewClassAd()
	ad.AssignString(jobattr.Cmd, "/bin/sh")
	ad.AssignString(jobattr.Arguments, "-c '"+script+"'")
	return ad
}

func TestExecSupervisor_ExitCode(t *testing.T) {
	s := NewExecSupervisor()
	run, err := s.Start("5.0", shellAd("exit 3"))
	require.NoError(t, err)
	assert.Greater(t, run.Pid, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	status, err := s.Wait(ctx, run.Pid)
	require.NoError(t, err)
	assert.Equal(t, ExitStatus{Code: 3}, status)

	_, err = s.Wait(ctx, run.Pid)
	assert.ErrorIs(t, err, ErrUnknownProcess)
}

func TestExecSupervisor_Kill(t *testing.T) {
	s := NewExecSupervisor()
	run, err := s.Start("5.1", shellAd("sleep 30"))
	require.NoError(t, err)
	require.NoError(t, s.Signal(run.Pid, Kill))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	status, err := s.Wait(ctx, run.Pid)
	require.NoError(t, err)
	assert.Equal(t, ExitStatus{Code: -1, Signaled: true, Signal: int(syscall.SIGKILL)}, status)
}

func TestExecSupervisor_Errors(t *testing.T) {
	s := NewExecSupervisor()
	_, err := s.Start("5.0", classad.NewClassAd())
	assert.ErrorIs(t, err, ErrNoCommand)

	ad := classad.NewClassAd()
	ad.AssignString(jobattr.Cmd, "/nonexistent/binary")
	_, err = s.Start("5.0", ad)
	assert.Error(t, err)

	assert.ErrorIs(t, s.Signal(12345678, Terminate), ErrUnknownProcess)
}
