package submission

import (
	"strconv"
	"time"

	"github.com/go-redis/redis"
	"github.com/pkg/errors"

	"github.com/cqnkjsx/htcondor/internal/jobattr"
)

const (
	submissionKeyPrefix = "Submission:"
	submissionIndexKey  = "Submissions"

	ownerField      = "owner"
	liveField       = "live"
	lastChangeField = "lastChange"
)

// Publisher makes submission accounting visible outside the process.
type Publisher interface {
	Publish(snapshots []Snapshot) error
}

// RedisPublisher stores one hash per submission plus a set indexing the published names.
// Submissions missing from a publish are removed.
type RedisPublisher struct {
	db redis.UniversalClient
}

func NewRedisPublisher(db redis.UniversalClient) *RedisPublisher {
	return &RedisPublisher{db: db}
}

func (r *RedisPublisher) Publish(snapshots []Snapshot) error {
	previous, err := r.db.SMembers(submissionIndexKey).Result()
	if err != nil {
		return errors.WithStack(err)
	}
	current := make(map[string]bool, len(snapshots))

	pipe := r.db.TxPipeline()
	for _, s := range snapshots {
		current[s.Name] = true
		fields := map[string]interface{}{
			ownerField:      s.Owner,
			liveField:       s.Live,
			lastChangeField: s.LastChange.Unix(),
		}
		for status, n := range s.Counts {
			fields[status.String()] = n
		}
		pipe.HMSet(submissionKeyPrefix+s.Name, fields)
		pipe.SAdd(submissionIndexKey, s.Name)
	}
	for _, name := range previous {
		if !current[name] {
			pipe.Del(submissionKeyPrefix + name)
			pipe.SRem(submissionIndexKey, name)
		}
	}
	_, err = pipe.Exec()
	return errors.WithStack(err)
}

// Get reads back a published submission. It returns nil if the submission is not published.
func (r *RedisPublisher) Get(name string) (*Snapshot, error) {
	fields, err := r.db.HGetAll(submissionKeyPrefix + name).Result()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	s := &Snapshot{
		Name:   name,
		Owner:  fields[ownerField],
		Counts: map[jobattr.Status]int{},
	}
	if s.Live, err = strconv.Atoi(fields[liveField]); err != nil {
		return nil, errors.Wrapf(err, "submission %s: bad %s field", name, liveField)
	}
	unix, err := strconv.ParseInt(fields[lastChangeField], 10, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "submission %s: bad %s field", name, lastChangeField)
	}
	s.LastChange = time.Unix(unix, 0)
	for _, status := range jobattr.AllStatuses {
		v, ok := fields[status.String()]
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.Wrapf(err, "submission %s: bad %s field", name, status)
		}
		s.Counts[status] = n
	}
	return s, nil
}

// Published lists the names currently published.
func (r *RedisPublisher) Published() ([]string, error) {
	names, err := r.db.SMembers(submissionIndexKey).Result()
	return names, errors.WithStack(err)
}
