package worker

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/xid"
)

// ErrJobNotFound is returned when an operation needs a Job that is not scheduled
var ErrJobNotFound = errors.New("job not found")

// Registry owns every scheduled Job. Jobs are stored by value and all access is serialized,
// so it is safe to use from the tick loop and from on-demand scheduling at the same time
type Registry struct {
	mu   sync.Mutex
	jobs map[JobKey]Job
	seq  uint64
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{jobs: map[JobKey]Job{}}
}

// Upsert stores the Job, replacing and cancelling any Job with the same key
func (r *Registry) Upsert(job Job) Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.upsert(job)
}

func (r *Registry) upsert(job Job) Job {
	r.seq++
	job.seq = r.seq
	r.jobs[job.JobKey] = job
	return job
}

// Cancel removes a Job. It returns false if there was no Job for the key
func (r *Registry) Cancel(target xid.ID, kind JobKind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := JobKey{target, kind}
	_, ok := r.jobs[key]
	delete(r.jobs, key)
	return ok
}

// CancelTarget removes every Job for the target and returns how many were removed
func (r *Registry) CancelTarget(target xid.ID) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for key := range r.jobs {
		if key.Target == target {
			delete(r.jobs, key)
			count++
		}
	}
	return count
}

// Clear removes every Job
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = map[JobKey]Job{}
}

// Get returns the Job for the key
func (r *Registry) Get(target xid.ID, kind JobKind) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[JobKey{target, kind}]
	return job, ok
}

// NextFireTime returns when the Job for the key fires next, or nil if it is not scheduled
func (r *Registry) NextFireTime(target xid.ID, kind JobKind) *time.Time {
	job, ok := r.Get(target, kind)
	if !ok {
		return nil
	}
	return &job.NextFire
}

// Upcoming returns up to n fire times for the Job with the key
func (r *Registry) Upcoming(target xid.ID, kind JobKind, n int) []time.Time {
	job, ok := r.Get(target, kind)
	if !ok {
		return nil
	}
	return job.Upcoming(n)
}

// ListDue returns every Job that should have fired by now in ascending fire time order
func (r *Registry) ListDue(now time.Time) []Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	due := []Job{}
	for _, job := range r.jobs {
		if !job.NextFire.After(now) {
			due = append(due, job)
		}
	}
	sortJobs(due)
	return due
}

// Jobs returns all Jobs in ascending fire time order
func (r *Registry) Jobs() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	jobs := make([]Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, job)
	}
	sortJobs(jobs)
	return jobs
}

// Len is the number of scheduled Jobs
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// Complete is called after a Job from ListDue has run. A recurring Job is replaced by its next occurrence
// and a one-time Job is removed. Nothing changes if the Job was cancelled or replaced while it ran.
// It returns the stored Job and true if the Job is still scheduled
func (r *Registry) Complete(job Job, now time.Time) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.jobs[job.JobKey]
	if !ok || current.seq != job.seq {
		return Job{}, false
	}

	if !job.Kind.Recurring() {
		delete(r.jobs, job.JobKey)
		return Job{}, false
	}
	return r.upsert(job.Next(now)), true
}

// Delay pushes the Job for the key back by d using DelayJob
func (r *Registry) Delay(target xid.ID, kind JobKind, d time.Duration) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[JobKey{target, kind}]
	if !ok {
		return Job{}, fmt.Errorf("unable to delay %s/%s: %w", kind, target, ErrJobNotFound)
	}
	return r.upsert(DelayJob(job, d)), nil
}

// ScheduleAdhocLightOn creates a one-time ON for the Garden at t. If the regular ON would fire first
// it is delayed by a day so the light is not turned on early. It returns true if the regular ON was delayed
func (r *Registry) ScheduleAdhocLightOn(gardenID xid.ID, t time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.upsert(newOneTimeJob(gardenID, JobKindAdhocLightOn, t))

	on, ok := r.jobs[JobKey{gardenID, JobKindLightOn}]
	if !ok || !on.NextFire.Before(t) {
		return false
	}
	r.upsert(DelayJob(on, lightingInterval))
	return true
}

func sortJobs(jobs []Job) {
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].NextFire.Equal(jobs[j].NextFire) {
			return jobs[i].seq < jobs[j].seq
		}
		return jobs[i].NextFire.Before(jobs[j].NextFire)
	})
}
