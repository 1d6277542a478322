package jobserver

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/cqnkjsx/htcondor/internal/common/logging"
	"github.com/cqnkjsx/htcondor/internal/jobattr"
	"github.com/cqnkjsx/htcondor/internal/supervisor"
)

// Launcher starts idle jobs under a supervisor and stops those removed while running.
// Exits flow back into the server through the tracker.
type Launcher struct {
	server      *Server
	tracker     *supervisor.Tracker
	gracePeriod time.Duration
	// jobs already asked to stop
	stopping map[string]struct{}
}

func NewLauncher(server *Server, sup supervisor.Supervisor, gracePeriod time.Duration) *Launcher {
	return &Launcher{
		server:      server,
		tracker:     supervisor.NewTracker(sup, server),
		gracePeriod: gracePeriod,
		stopping:    map[string]struct{}{},
	}
}

// Reconcile launches every launchable job once and stops runs whose job was removed or has
// left the queue. It never returns an error for a single job.
func (l *Launcher) Reconcile(ctx context.Context) error {
	launchable := l.server.Launchable()
	keys := maps.Keys(launchable)
	slices.Sort(keys)
	for _, key := range keys {
		_, launched, err := l.tracker.Launch(ctx, key, launchable[key])
		if err != nil {
			logging.WithStacktrace(log.WithField("job", key), err).Warn("unable to launch job")
			continue
		}
		if launched {
			log.Debugf("launched job %s", key)
		}
	}

	running := map[string]struct{}{}
	for _, run := range l.tracker.Runs() {
		running[run.Key] = struct{}{}
		if _, ok := l.stopping[run.Key]; ok {
			continue
		}
		status, live := l.server.StatusOf(run.Key)
		if live && status != jobattr.Removed {
			continue
		}
		l.stopping[run.Key] = struct{}{}
		log.Infof("stopping job %s (pid %d)", run.Key, run.Pid)
		if err := l.tracker.Stop(run.Key, l.gracePeriod); err != nil {
			log.WithError(err).Warnf("unable to stop job %s", run.Key)
		}
	}
	for key := range l.stopping {
		if _, ok := running[key]; !ok {
			delete(l.stopping, key)
		}
	}
	return nil
}

// Tracker exposes the runs in progress.
func (l *Launcher) Tracker() *supervisor.Tracker {
	return l.tracker
}
