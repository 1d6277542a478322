// Package jobserverapp assembles a job server from its configuration and runs it.
package jobserverapp

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cqnkjsx/htcondor/internal/common"
	"github.com/cqnkjsx/htcondor/internal/common/app"
	"github.com/cqnkjsx/htcondor/internal/common/health"
	"github.com/cqnkjsx/htcondor/internal/common/stringinterner"
	"github.com/cqnkjsx/htcondor/internal/common/task"
	"github.com/cqnkjsx/htcondor/internal/history"
	"github.com/cqnkjsx/htcondor/internal/jobserver"
	"github.com/cqnkjsx/htcondor/internal/jobserver/configuration"
	"github.com/cqnkjsx/htcondor/internal/jobserver/metrics"
	"github.com/cqnkjsx/htcondor/internal/queuelog"
	"github.com/cqnkjsx/htcondor/internal/submission"
	"github.com/cqnkjsx/htcondor/internal/supervisor"
)

const taskShutdownTimeout = 5 * time.Second

// atomic.Value cannot hold a nil interface
type errorHolder struct {
	err error
}

// Run sets up a job server and runs it until a SIGTERM is received.
func Run(config configuration.JobServerConfig) error {
	log.SetLevel(config.Logging.Level)
	ctx, cancel := app.CreateContextWithShutdown()
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	//////////////////////////////////////////////////////////////////////////
	// Health checks and metrics
	//////////////////////////////////////////////////////////////////////////
	mux := http.NewServeMux()
	startupCompleteCheck := health.NewStartupCompleteChecker()
	healthChecks := health.NewMultiChecker(startupCompleteCheck)
	health.SetupHttpMux(mux, healthChecks)
	shutdownHttpServer := common.ServeMetrics(config.MetricsPort, mux)
	defer shutdownHttpServer()

	//////////////////////////////////////////////////////////////////////////
	// Publication
	//////////////////////////////////////////////////////////////////////////
	var publisher submission.Publisher
	if config.Redis.Enabled {
		redisClient, err := config.Redis.Connection.Connect()
		if err != nil {
			return err
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.WithError(errors.WithStack(err)).Warnf("Redis client didn't close down cleanly")
			}
		}()
		publisher = submission.NewRedisPublisher(redisClient)
	}

	//////////////////////////////////////////////////////////////////////////
	// Job server
	//////////////////////////////////////////////////////////////////////////
	registry := submission.NewRegistry(
		submission.NewOwnerlessClusters(config.Submissions.OwnerlessTtl),
		submission.WithIdleRetention(config.Submissions.IdleRetention),
	)
	server, err := jobserver.NewServer(registry, history.NewAdReader(config.History.MaxRecordBytes), publisher)
	if err != nil {
		return err
	}
	metrics.ExposeDataMetrics(server)

	queueLog := queuelog.NewReader(config.QueueLog.Path, server)
	historyProcessor := history.NewProcessor(
		config.History.Dir,
		history.NewScanner(stringinterner.New(config.History.InternCacheSize)),
		server,
	)

	//////////////////////////////////////////////////////////////////////////
	// Background tasks
	//////////////////////////////////////////////////////////////////////////
	taskManager := task.NewBackgroundTaskManager(metrics.MetricPrefix)
	taskManager.Register(historyProcessor.Poll, config.History.PollInterval, "history_poll")
	var queueLogErr atomic.Value
	queueLogErr.Store(errorHolder{})
	healthChecks.Add(health.FuncChecker(func() error {
		return queueLogErr.Load().(errorHolder).err
	}))
	taskManager.Register(func() error {
		n, err := queueLog.Poll()
		queueLogErr.Store(errorHolder{err: err})
		if err != nil {
			return err
		}
		if n > 0 {
			log.Debugf("applied %d queue log ops", n)
		}
		startupCompleteCheck.MarkComplete()
		return nil
	}, config.QueueLog.PollInterval, "queue_log_poll")
	taskManager.Register(func() error {
		server.Sweep()
		return nil
	}, config.Submissions.SweepInterval, "sweep")
	if publisher != nil {
		taskManager.Register(server.Publish, config.Redis.PublishInterval, "publish")
	}

	var launcher *jobserver.Launcher
	if config.Supervisor.Enabled {
		launcher = jobserver.NewLauncher(server, supervisor.NewExecSupervisor(), config.Supervisor.KillGracePeriod)
		taskManager.Register(func() error {
			return launcher.Reconcile(ctx)
		}, config.QueueLog.PollInterval, "launch")
	}
	log.Infof("job server started on %s (history %s)", config.QueueLog.Path, config.History.Dir)

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down job server")
		if timedOut := taskManager.StopAll(taskShutdownTimeout); timedOut {
			log.Warnf("background tasks did not stop within %s", taskShutdownTimeout)
		}
		if launcher != nil {
			launcher.Tracker().Wait()
		}
		return nil
	})
	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
