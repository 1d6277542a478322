package logging

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Stacktrace is the field holding the stack trace of a logged error.
const Stacktrace = "stacktrace"

// Implemented by errors created or wrapped by pkg/errors.
type stackTracer interface {
	StackTrace() errors.StackTrace
}

type causer interface {
	Cause() error
}

// WithStacktrace adds err to entry, together with the first stack trace recorded along
// its cause chain.
func WithStacktrace(entry *log.Entry, err error) *log.Entry {
	entry = entry.WithError(err)
	if stack := ExtractStack(err); stack != nil {
		entry = entry.WithField(Stacktrace, stack)
	}
	return entry
}

// ExtractStack returns the outermost stack trace in err's cause chain, or nil if none
// was recorded.
func ExtractStack(err error) errors.StackTrace {
	for err != nil {
		if st, ok := err.(stackTracer); ok {
			return st.StackTrace()
		}
		c, ok := err.(causer)
		if !ok {
			return nil
		}
		err = c.Cause()
	}
	return nil
}
