package app

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var ErrUnknownJob = errors.New("unknown job")

// JobInfo describes a registered background job.
type JobInfo struct {
	Name    string     `json:"name"`
	Spec    string     `json:"spec"`
	Running bool       `json:"running"`
	LastRun *time.Time `json:"last_run,omitempty"`
	Prev    *time.Time `json:"prev,omitempty"`
	Next    *time.Time `json:"next,omitempty"`
}

type job struct {
	name    string
	spec    string
	fn      func()
	entryID cron.EntryID
	running bool
	lastRun time.Time
}

// jobRegistry keeps named cron jobs so they can be listed and triggered on
// demand. A job never runs twice at the same time.
type jobRegistry struct {
	mu   sync.Mutex
	jobs map[string]*job
}

func newJobRegistry() *jobRegistry {
	return &jobRegistry{jobs: map[string]*job{}}
}

func (r *jobRegistry) add(c *cron.Cron, name, spec string, fn func()) error {
	j := &job{name: name, spec: spec, fn: fn}
	id, err := c.AddFunc(spec, func() { r.run(j) })
	if err != nil {
		return errors.Wrapf(err, "schedule %s", name)
	}
	j.entryID = id
	r.mu.Lock()
	r.jobs[name] = j
	r.mu.Unlock()
	return nil
}

func (r *jobRegistry) run(j *job) bool {
	r.mu.Lock()
	if j.running {
		r.mu.Unlock()
		zap.L().Debug("job still running, skipped", zap.String("job", j.name))
		return false
	}
	j.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		j.running = false
		j.lastRun = time.Now()
		r.mu.Unlock()
	}()
	j.fn()
	return true
}

func (r *jobRegistry) list(c *cron.Cron) []JobInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]JobInfo, 0, len(r.jobs))
	for _, j := range r.jobs {
		info := JobInfo{Name: j.name, Spec: j.spec, Running: j.running}
		if !j.lastRun.IsZero() {
			last := j.lastRun
			info.LastRun = &last
		}
		if c != nil {
			entry := c.Entry(j.entryID)
			if !entry.Prev.IsZero() {
				info.Prev = &entry.Prev
			}
			if !entry.Next.IsZero() {
				info.Next = &entry.Next
			}
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}

func (r *jobRegistry) get(name string) (*job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[name]
	return j, ok
}

// Jobs lists the registered background jobs.
func (a *Application) Jobs() []JobInfo {
	if a.jobs == nil {
		return []JobInfo{}
	}
	return a.jobs.list(a.sched)
}

// RunJobNow runs a registered job in the background. It reports false when
// the job is already running.
func (a *Application) RunJobNow(name string) (bool, error) {
	if a.jobs == nil {
		return false, errors.Wrap(ErrUnknownJob, name)
	}
	j, ok := a.jobs.get(name)
	if !ok {
		return false, errors.Wrap(ErrUnknownJob, name)
	}
	a.jobs.mu.Lock()
	busy := j.running
	a.jobs.mu.Unlock()
	if busy {
		return false, nil
	}
	go a.jobs.run(j)
	return true, nil
}
