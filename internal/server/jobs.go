package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ivlev/seqcrop/internal/export"
)

var errBusy = errors.New("an export is running")

type JobStatus string

const (
	JobRunning  JobStatus = "running"
	JobDone     JobStatus = "done"
	JobFailed   JobStatus = "failed"
	JobCanceled JobStatus = "canceled"
)

// Job is the public view of one export.
type Job struct {
	ID       string         `json:"id"`
	Kind     string         `json:"kind"`
	Status   JobStatus      `json:"status"`
	Done     int            `json:"done"`
	Total    int            `json:"total"`
	Started  time.Time      `json:"started"`
	Result   *export.Result `json:"result,omitempty"`
	Error    string         `json:"error,omitempty"`
	cancel   context.CancelFunc
	finished chan struct{}
}

type jobs struct {
	mu   sync.Mutex
	byID map[string]*Job
}

func newJobs() *jobs {
	return &jobs{byID: make(map[string]*Job)}
}

func (js *jobs) add(j *Job) {
	js.mu.Lock()
	defer js.mu.Unlock()
	js.byID[j.ID] = j
}

// get returns a copy that is safe to serialise.
func (js *jobs) get(id string) (Job, bool) {
	js.mu.Lock()
	defer js.mu.Unlock()
	j, ok := js.byID[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

func (js *jobs) update(id string, fn func(*Job)) {
	js.mu.Lock()
	defer js.mu.Unlock()
	if j, ok := js.byID[id]; ok {
		fn(j)
	}
}

func (js *jobs) running() bool {
	js.mu.Lock()
	defer js.mu.Unlock()
	for _, j := range js.byID {
		if j.Status == JobRunning {
			return true
		}
	}
	return false
}

func (js *jobs) cancel(id string) bool {
	js.mu.Lock()
	defer js.mu.Unlock()
	j, ok := js.byID[id]
	if ok && j.cancel != nil {
		j.cancel()
	}
	return ok
}

func (js *jobs) cancelAll() {
	js.mu.Lock()
	defer js.mu.Unlock()
	for _, j := range js.byID {
		if j.cancel != nil {
			j.cancel()
		}
	}
}
