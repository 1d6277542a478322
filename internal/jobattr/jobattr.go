// Package jobattr holds the attribute names shared with external job ad producers and
// consumers, and the job status codes carried in the JobStatus attribute.
package jobattr

import "fmt"

const (
	ClusterId            = "ClusterId"
	ProcId               = "ProcId"
	GlobalJobId          = "GlobalJobId"
	QDate                = "QDate"
	EnteredCurrentStatus = "EnteredCurrentStatus"
	JobStatus            = "JobStatus"
	Cmd                  = "Cmd"
	Args                 = "Args"
	Arguments            = "Arguments"
	ReleaseReason        = "ReleaseReason"
	HoldReason           = "HoldReason"
	Owner                = "Owner"
	Submission           = "Submission"
	ExitCode             = "ExitCode"
	ExitBySignal         = "ExitBySignal"
	ExitSignal           = "ExitSignal"
	CompletionDate       = "CompletionDate"
	Iwd                  = "Iwd"

	// JobAdError is the single attribute of an ad synthesised when a history record cannot be read.
	JobAdError = "JOB_AD_ERROR"
)

// LiveSummary is the projection served for jobs backed by a live ad.
var LiveSummary = []string{
	ClusterId,
	ProcId,
	GlobalJobId,
	QDate,
	EnteredCurrentStatus,
	JobStatus,
	Cmd,
	Args,
	Arguments,
	ReleaseReason,
	HoldReason,
}

// HistorySummary is the projection served from a history index entry.
var HistorySummary = append(append([]string{}, LiveSummary...), Submission, Owner)

type Status int

const (
	Unknown            Status = 0
	Idle               Status = 1
	Running            Status = 2
	Removed            Status = 3
	Completed          Status = 4
	Held               Status = 5
	TransferringOutput Status = 6
	Suspended          Status = 7

	StatusMin = Idle
	StatusMax = Suspended
)

// AllStatuses lists the valid statuses in code order.
var AllStatuses = []Status{Idle, Running, Removed, Completed, Held, TransferringOutput, Suspended}

func (s Status) Valid() bool {
	return s >= StatusMin && s <= StatusMax
}

// Terminal reports whether a job in this status is finished and no longer counted as live.
func (s Status) Terminal() bool {
	return s == Completed || s == Removed
}

func (s Status) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Running:
		return "RUNNING"
	case Removed:
		return "REMOVED"
	case Completed:
		return "COMPLETED"
	case Held:
		return "HELD"
	case TransferringOutput:
		return "TRANSFERRING_OUTPUT"
	case Suspended:
		return "SUSPENDED"
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(s))
}
