package health

import (
	"sync/atomic"

	"github.com/pkg/errors"
)

// Checker reports whether a component is healthy. A nil error means healthy.
type Checker interface {
	Check() error
}

// StartupCompleteChecker fails until MarkComplete has been called.
type StartupCompleteChecker struct {
	complete atomic.Value
}

func NewStartupCompleteChecker() *StartupCompleteChecker {
	c := &StartupCompleteChecker{}
	c.complete.Store(false)
	return c
}

func (c *StartupCompleteChecker) MarkComplete() {
	c.complete.Store(true)
}

func (c *StartupCompleteChecker) Check() error {
	if c.complete.Load().(bool) {
		return nil
	}
	return errors.New("startup is not complete")
}

// FuncChecker adapts a function to a Checker.
type FuncChecker func() error

func (f FuncChecker) Check() error {
	return f()
}
