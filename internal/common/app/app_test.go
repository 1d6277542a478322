package app

import (
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCreateContextWithShutdown_Cancel(t *testing.T) {
	ctx, cancel := CreateContextWithShutdown()
	assert.NoError(t, ctx.Err())
	cancel()
	<-ctx.Done()
}

func TestCreateContextWithShutdown_Signal(t *testing.T) {
	ctx, cancel := CreateContextWithShutdown()
	defer cancel()
	assert.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context was not cancelled by SIGTERM")
	}
}
