package downloader

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/airbusgeo/landsat-acquirer/common"
	"github.com/airbusgeo/landsat-acquirer/service/log"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultConcurrency = 5
	DefaultTaskTimeout = 60 * time.Second
)

// Fetcher transfers the asset of a task and returns the local path of the file
type Fetcher interface {
	Fetch(ctx context.Context, task common.FetchTask) (string, error)
}

// PostProcessor transforms a fetched file and returns the paths of the outputs
type PostProcessor interface {
	Process(ctx context.Context, path string) ([]string, error)
}

// TaskResult is the outcome of a single task
type TaskResult struct {
	Task     common.FetchTask `json:"task"`
	Status   common.Status    `json:"status"`
	Path     string           `json:"path,omitempty"`
	Outputs  []string         `json:"outputs,omitempty"`
	Bytes    int64            `json:"bytes,omitempty"`
	Duration time.Duration    `json:"duration"`
	Err      error            `json:"-"`
	Error    string           `json:"error,omitempty"`
}

// BatchResult aggregates the outcome of all the tasks of a batch, in dispatch order
type BatchResult struct {
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Results   []TaskResult `json:"results"`
}

// Errors returns the errors of the failed tasks
func (b BatchResult) Errors() []error {
	var errs []error
	for _, r := range b.Results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errs
}

// Outputs returns the outputs of the succeeded tasks
func (b BatchResult) Outputs() []string {
	var outputs []string
	for _, r := range b.Results {
		if r.Status == common.StatusDONE {
			outputs = append(outputs, r.Outputs...)
		}
	}
	return outputs
}

// Coordinator runs fetch tasks with bounded concurrency.
// A failing task does not interrupt the others.
type Coordinator struct {
	Fetcher Fetcher
	// Processor is optional
	Processor   PostProcessor
	Concurrency int
	TaskTimeout time.Duration
}

func (c *Coordinator) concurrency() int {
	if c.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return c.Concurrency
}

func (c *Coordinator) taskTimeout() time.Duration {
	if c.TaskTimeout <= 0 {
		return DefaultTaskTimeout
	}
	return c.TaskTimeout
}

// FetchAll runs all the tasks and returns when every one of them is completed
func (c *Coordinator) FetchAll(ctx context.Context, tasks []common.FetchTask) BatchResult {
	results := make([]TaskResult, len(tasks))
	for i, task := range tasks {
		results[i] = TaskResult{Task: task, Status: common.StatusNEW}
	}

	var g errgroup.Group
	g.SetLimit(c.concurrency())
	log.Logger(ctx).Sugar().Infof("fetching %d assets (%d in parallel)", len(tasks), c.concurrency())
	for i := range tasks {
		i := i
		results[i].Status = common.StatusPENDING
		g.Go(func() error {
			results[i] = c.run(ctx, tasks[i])
			return nil
		})
	}
	_ = g.Wait()

	batch := BatchResult{Results: results}
	for _, r := range results {
		if r.Status == common.StatusDONE {
			batch.Succeeded++
		} else {
			batch.Failed++
		}
	}
	log.Logger(ctx).Sugar().Infof("%d assets fetched, %d failed", batch.Succeeded, batch.Failed)
	return batch
}

func (c *Coordinator) run(ctx context.Context, task common.FetchTask) (res TaskResult) {
	res = TaskResult{Task: task, Status: common.StatusPENDING}
	ctx = log.With(ctx, "url", task.URL)
	ctx, cancel := context.WithTimeout(ctx, c.taskTimeout())
	defer cancel()

	fetchActive.Inc()
	start := time.Now()
	defer func() {
		fetchActive.Dec()
		res.Duration = time.Since(start)
		fetchDuration.Observe(res.Duration.Seconds())
		fetchTotal.WithLabelValues(res.Status.String()).Inc()
		if res.Err != nil {
			res.Error = res.Err.Error()
			log.Logger(ctx).Warn("fetch task failed", zap.Error(res.Err))
		}
	}()

	path, err := c.Fetcher.Fetch(ctx, task)
	if err != nil {
		res.Status, res.Err = common.StatusFAILED, fmt.Errorf("run.%w", err)
		return res
	}
	res.Path = path
	if fi, err := os.Stat(path); err == nil {
		res.Bytes = fi.Size()
		fetchBytes.Add(float64(res.Bytes))
	}

	if c.Processor != nil {
		outputs, err := c.Processor.Process(ctx, path)
		if err != nil {
			res.Status, res.Err = common.StatusFAILED, fmt.Errorf("run.%w", err)
			return res
		}
		res.Outputs = outputs
	}
	res.Status = common.StatusDONE
	return res
}
