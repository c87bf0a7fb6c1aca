package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/rwexport/pkg/img"
)

// Job is one file to convert. Load is called on a worker goroutine.
type Job struct {
	Name string
	Load func() ([]byte, error)
}

// Result is the outcome of one job.
type Result struct {
	Name    string
	Outputs []string
	Err     error
}

// Report collects job results. It is safe for concurrent use.
type Report struct {
	mu      sync.Mutex
	results []Result
}

func (r *Report) add(res Result) {
	r.mu.Lock()
	r.results = append(r.results, res)
	r.mu.Unlock()
}

// Results returns all results sorted by job name.
func (r *Report) Results() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]Result(nil), r.results...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Failed returns the failed results sorted by job name.
func (r *Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results() {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Counts returns the number of converted and failed jobs.
func (r *Report) Counts() (ok, failed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.results {
		if res.Err != nil {
			failed++
		} else {
			ok++
		}
	}
	return ok, failed
}

// Batch runs jobs on up to Options.Workers goroutines. A failed job is
// logged and recorded; it never stops the others. Cancelling ctx skips the
// jobs that have not started yet; they are recorded with the context error.
func (c *Converter) Batch(ctx context.Context, jobs []Job) *Report {
	report := &Report{}

	workers := c.opts.Workers
	if workers < 1 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			report.add(Result{Name: job.Name, Err: err})
			continue
		}
		job := job
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				report.add(Result{Name: job.Name, Err: err})
				return nil
			}
			res := c.run(job)
			report.add(res)
			return nil
		})
	}
	_ = g.Wait()

	ok, failed := report.Counts()
	c.log.Info("batch finished", zap.Int("converted", ok), zap.Int("failed", failed))
	return report
}

func (c *Converter) run(job Job) Result {
	res := Result{Name: job.Name}
	data, err := job.Load()
	if err != nil {
		res.Err = fmt.Errorf("%w: %w", ErrIO, err)
	} else {
		res.Outputs, res.Err = c.Convert(job.Name, data)
	}

	if res.Err != nil {
		c.log.Error("conversion failed",
			zap.String("file", job.Name),
			zap.String("kind", Kind(res.Err)),
			zap.Error(res.Err),
		)
	} else {
		c.log.Info("converted",
			zap.String("file", job.Name),
			zap.Strings("outputs", res.Outputs),
		)
	}
	return res
}

// Convertible reports whether name has a model or texture dictionary extension.
func Convertible(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ExtModel, ExtTextures:
		return true
	}
	return false
}

// DirJobs lists the convertible files directly inside dir.
func DirJobs(dir string) ([]Job, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	var jobs []Job
	for _, e := range entries {
		if e.IsDir() || !Convertible(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		jobs = append(jobs, Job{
			Name: e.Name(),
			Load: func() ([]byte, error) { return os.ReadFile(path) },
		})
	}
	return jobs, nil
}

// ArchiveJobs lists the convertible entries of an IMG archive.
func ArchiveJobs(a *img.Archive) []Job {
	var jobs []Job
	for _, name := range a.List() {
		if !Convertible(name) {
			continue
		}
		jobs = append(jobs, Job{
			Name: name,
			Load: func() ([]byte, error) { return a.Read(name) },
		})
	}
	return jobs
}
