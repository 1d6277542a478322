package job

import (
	log "github.com/sirupsen/logrus"

	"github.com/cqnkjsx/htcondor/internal/classad"
	"github.com/cqnkjsx/htcondor/internal/history"
	"github.com/cqnkjsx/htcondor/internal/jobattr"
)

// HistoryJobImpl backs a finished job with its history index entry. The full ad is read
// back from the history log on every request; the summary comes from the entry alone.
type HistoryJobImpl struct {
	entry  history.Entry
	reader *history.AdReader
}

func NewHistoryJobImpl(entry history.Entry, reader *history.AdReader) *HistoryJobImpl {
	log.Debugf("HistoryJobImpl created for '%d.%d'", entry.Cluster, entry.Proc)
	return &HistoryJobImpl{entry: entry, reader: reader}
}

func (h *HistoryJobImpl) Key() string {
	return ProcKey(h.entry.Cluster, h.entry.Proc)
}

func (h *HistoryJobImpl) Entry() history.Entry {
	return h.entry
}

func (h *HistoryJobImpl) Status() jobattr.Status {
	return h.entry.Status
}

func (h *HistoryJobImpl) Cluster() int {
	return h.entry.Cluster
}

func (h *HistoryJobImpl) SubmissionId() string {
	return h.entry.Submission
}

func (h *HistoryJobImpl) Summary() *classad.ClassAd {
	return h.entry.Summary()
}

// FullAd reconstructs the job's ad from the history log. It never fails; a record that
// cannot be read produces an ad with a single JOB_AD_ERROR attribute.
func (h *HistoryJobImpl) FullAd() *classad.ClassAd {
	ad := h.reader.ReadAd(h.Key(), h.entry.File, h.entry.Offset)
	if _, failed := ad.LookupLocal(jobattr.JobAdError); failed {
		return ad
	}
	if _, ok := ad.Lookup(jobattr.Submission); !ok && h.entry.Submission != "" {
		ad.AssignString(jobattr.Submission, h.entry.Submission)
	}
	return ad
}
