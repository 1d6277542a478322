package history

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/cqnkjsx/htcondor/internal/classad"
	"github.com/cqnkjsx/htcondor/internal/common/stringinterner"
	"github.com/cqnkjsx/htcondor/internal/jobattr"
)

// ErrNotAJob is returned by EntryFromAd for records lacking a cluster or proc id.
var ErrNotAJob = errors.New("history record has no ClusterId/ProcId")

// Entry is the compact index kept in memory for every job found in a history log.
// File and Offset locate the full record.
type Entry struct {
	Cluster              int
	Proc                 int
	GlobalJobId          string
	QDate                int64
	EnteredCurrentStatus int64
	Status               jobattr.Status
	Submission           string
	Owner                string
	Cmd                  string
	Args                 string
	Arguments            string
	ReleaseReason        string
	HoldReason           string

	File   string
	Offset int64
}

// EntryFromAd builds the index entry for a record read from file at offset.
// A record without a Submission attribute is grouped under "<Owner>#<ClusterId>".
func EntryFromAd(ad *classad.ClassAd, file string, offset int64, interner *stringinterner.StringInterner) (Entry, error) {
	cluster, ok := ad.LookupInteger(jobattr.ClusterId)
	if !ok {
		return Entry{}, errors.WithStack(ErrNotAJob)
	}
	proc, ok := ad.LookupInteger(jobattr.ProcId)
	if !ok {
		return Entry{}, errors.WithStack(ErrNotAJob)
	}
	e := Entry{
		Cluster: int(cluster),
		Proc:    int(proc),
		File:    file,
		Offset:  offset,
	}
	e.QDate, _ = ad.LookupInteger(jobattr.QDate)
	e.EnteredCurrentStatus, _ = ad.LookupInteger(jobattr.EnteredCurrentStatus)
	if status, ok := ad.LookupInteger(jobattr.JobStatus); ok {
		e.Status = jobattr.Status(status)
	}
	e.GlobalJobId, _ = ad.LookupString(jobattr.GlobalJobId)
	e.Owner, _ = ad.LookupString(jobattr.Owner)
	e.Submission, _ = ad.LookupString(jobattr.Submission)
	e.Cmd, _ = ad.LookupString(jobattr.Cmd)
	e.Args, _ = ad.LookupString(jobattr.Args)
	e.Arguments, _ = ad.LookupString(jobattr.Arguments)
	e.ReleaseReason, _ = ad.LookupString(jobattr.ReleaseReason)
	e.HoldReason, _ = ad.LookupString(jobattr.HoldReason)
	if e.Submission == "" {
		e.Submission = OwnerSubmission(e.Owner, e.Cluster)
	}
	if interner != nil {
		e.Owner = interner.Intern(e.Owner)
		e.Submission = interner.Intern(e.Submission)
		e.Cmd = interner.Intern(e.Cmd)
		e.File = interner.Intern(e.File)
	}
	return e, nil
}

// OwnerSubmission names the submission of a job whose ad carries no Submission
// attribute: its owner and cluster.
func OwnerSubmission(owner string, cluster int) string {
	return fmt.Sprintf("%s#%d", owner, cluster)
}

// Summary projects the entry onto the summary attributes. Optional strings are omitted when empty.
func (e Entry) Summary() *classad.ClassAd {
	ad := classad.NewClassAd()
	ad.AssignString(jobattr.GlobalJobId, e.GlobalJobId)
	ad.AssignInt(jobattr.ClusterId, int64(e.Cluster))
	ad.AssignInt(jobattr.ProcId, int64(e.Proc))
	ad.AssignInt(jobattr.QDate, e.QDate)
	ad.AssignInt(jobattr.JobStatus, int64(e.Status))
	ad.AssignInt(jobattr.EnteredCurrentStatus, e.EnteredCurrentStatus)
	ad.AssignString(jobattr.Submission, e.Submission)
	ad.AssignString(jobattr.Owner, e.Owner)
	ad.AssignString(jobattr.Cmd, e.Cmd)
	optional := []struct {
		name  string
		value string
	}{
		{jobattr.Args, e.Args},
		{jobattr.Arguments, e.Arguments},
		{jobattr.ReleaseReason, e.ReleaseReason},
		{jobattr.HoldReason, e.HoldReason},
	}
	for _, o := range optional {
		if o.value != "" {
			ad.AssignString(o.name, o.value)
		}
	}
	return ad
}
