package recorder

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// JobState is the lifecycle of an asynchronous save.
type JobState string

const (
	JobQueued  JobState = "queued"
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobFailed  JobState = "failed"
)

const (
	jobTTL             = time.Hour
	jobCleanupInterval = 10 * time.Minute
)

// Job is a snapshot of one asynchronous save.
type Job struct {
	ID         string      `json:"id"`
	Request    SaveRequest `json:"request"`
	State      JobState    `json:"state"`
	Recording  *Recording  `json:"recording,omitempty"`
	Error      string      `json:"error,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	FinishedAt time.Time   `json:"finished_at,omitzero"`
}

// jobTable keeps finished jobs around for jobTTL.
type jobTable struct {
	c *cache.Cache
}

func newJobTable() *jobTable {
	return &jobTable{c: cache.New(jobTTL, jobCleanupInterval)}
}

func (t *jobTable) put(j Job) {
	t.c.Set(j.ID, j, cache.DefaultExpiration)
}

func (t *jobTable) get(id string) (Job, bool) {
	v, ok := t.c.Get(id)
	if !ok {
		return Job{}, false
	}
	return v.(Job), true
}

func (t *jobTable) update(id string, fn func(*Job)) {
	j, ok := t.get(id)
	if !ok {
		return
	}
	fn(&j)
	t.put(j)
}
