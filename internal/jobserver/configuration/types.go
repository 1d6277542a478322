package configuration

import (
	"time"

	log "github.com/sirupsen/logrus"

	commonconfig "github.com/cqnkjsx/htcondor/internal/common/config"
)

type JobServerConfig struct {
	// Port on which prometheus metrics are served
	MetricsPort uint16 `validate:"required"`
	Logging     LoggingConfig
	QueueLog    QueueLogConfig
	History     HistoryConfig
	Submissions SubmissionsConfig
	Redis       RedisPublishConfig
	Supervisor  SupervisorConfig
}

type LoggingConfig struct {
	Level log.Level
}

type QueueLogConfig struct {
	// Path of the job queue transaction log
	Path         string        `validate:"required"`
	PollInterval time.Duration `validate:"required"`
}

type HistoryConfig struct {
	// Directory holding the history log and its rotations
	Dir          string        `validate:"required"`
	PollInterval time.Duration `validate:"required"`
	// Upper bound on the bytes read back for a single history record. Zero means unbounded.
	MaxRecordBytes int64 `validate:"gte=0"`
	// Maximum number of strings shared between history index entries
	InternCacheSize uint32 `validate:"required"`
}

type SubmissionsConfig struct {
	// How long an owner may wait in the ownerless table for its submission
	OwnerlessTtl  time.Duration
	SweepInterval time.Duration `validate:"required"`
	// How long a submission with no jobs is kept. Zero keeps submissions forever.
	IdleRetention time.Duration
}

type RedisPublishConfig struct {
	Enabled bool
	// Checked only when Enabled is set
	Connection      commonconfig.RedisConfig `validate:"-"`
	PublishInterval time.Duration
}

type SupervisorConfig struct {
	// If true, jobs whose ads carry a Cmd are started locally as they enter the queue
	Enabled bool
	// Grace period between the terminate and kill signals when a job is removed
	KillGracePeriod time.Duration
}
