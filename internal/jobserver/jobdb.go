package jobserver

import (
	"fmt"

	"github.com/hashicorp/go-memdb"
	"github.com/pkg/errors"

	"github.com/cqnkjsx/htcondor/internal/job"
)

const (
	jobsTable    = "jobs"
	idIndex      = "id"      // index for looking up jobs by key
	clusterIndex = "cluster" // index for looking up the cluster ad and procs of a cluster
)

// jobRecord is the row stored for each job. Key and Cluster never change for a given Job,
// so the row can be shared between transactions while the Job itself is mutated in place
// under the server lock.
type jobRecord struct {
	Key     string
	Cluster int
	Job     *job.Job
}

// JobDb indexes the jobs known to the server by key and by cluster.
// JobDb is implemented on top of https://github.com/hashicorp/go-memdb which is a simple in-memory database built on
// immutable radix trees.
type JobDb struct {
	db *memdb.MemDB
}

func NewJobDb() (*JobDb, error) {
	db, err := memdb.NewMemDB(jobDbSchema())
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &JobDb{db: db}, nil
}

// Upsert stores j, replacing any job with the same key.
func (d *JobDb) Upsert(j *job.Job) error {
	txn := d.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert(jobsTable, &jobRecord{Key: j.Key(), Cluster: j.ClusterId(), Job: j}); err != nil {
		return errors.WithStack(err)
	}
	txn.Commit()
	return nil
}

// Get returns the job with the given key or nil if no such job exists.
func (d *JobDb) Get(key string) *job.Job {
	txn := d.db.Txn(false)
	obj, err := txn.First(jobsTable, idIndex, key)
	if err != nil || obj == nil {
		return nil
	}
	return obj.(*jobRecord).Job
}

// Delete removes the job with the given key. Keys that are not in the database are ignored.
func (d *JobDb) Delete(key string) error {
	txn := d.db.Txn(true)
	defer txn.Abort()
	obj, err := txn.First(jobsTable, idIndex, key)
	if err != nil {
		return errors.WithStack(err)
	}
	if obj == nil {
		return nil
	}
	if err := txn.Delete(jobsTable, obj); err != nil {
		return errors.WithStack(err)
	}
	txn.Commit()
	return nil
}

// Cluster returns every job of the cluster, the cluster ad's job included, ordered by key.
func (d *JobDb) Cluster(cluster int) []*job.Job {
	txn := d.db.Txn(false)
	iter, err := txn.Get(jobsTable, clusterIndex, cluster)
	if err != nil {
		panic(fmt.Sprintf("cluster index lookup: %v", err))
	}
	return collect(iter)
}

// All returns every job ordered by key.
func (d *JobDb) All() []*job.Job {
	txn := d.db.Txn(false)
	iter, err := txn.Get(jobsTable, idIndex)
	if err != nil {
		panic(fmt.Sprintf("id index scan: %v", err))
	}
	return collect(iter)
}

func (d *JobDb) Len() int {
	return len(d.All())
}

func collect(iter memdb.ResultIterator) []*job.Job {
	result := make([]*job.Job, 0)
	for obj := iter.Next(); obj != nil; obj = iter.Next() {
		result = append(result, obj.(*jobRecord).Job)
	}
	return result
}

// jobDbSchema creates the database schema.
// This is a simple schema consisting of a single "jobs" table with indexes for fast lookups
func jobDbSchema() *memdb.DBSchema {
	indexes := make(map[string]*memdb.IndexSchema)
	indexes[idIndex] = &memdb.IndexSchema{
		Name:    idIndex, // lookup by primary key
		Unique:  true,
		Indexer: &memdb.StringFieldIndex{Field: "Key"},
	}
	indexes[clusterIndex] = &memdb.IndexSchema{
		Name:    clusterIndex,
		Unique:  false,
		Indexer: &memdb.IntFieldIndex{Field: "Cluster"},
	}
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			jobsTable: {
				Name:    jobsTable,
				Indexes: indexes,
			},
		},
	}
}
