package engine

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/mediaops/adpipe/internal/metrics"
	"github.com/mediaops/adpipe/internal/platform"
	"github.com/mediaops/adpipe/internal/source"
)

// Task represents a single transfer: download one source file to a local
// scratch path, then upload it to the platform's video library.
type Task struct {
	File     source.File
	DestPath string
}

// Result represents the outcome of a transfer task.
type Result struct {
	Task        Task
	Video       platform.Video
	Err         error
	RateLimited bool
	index       int // Internal: used to maintain result order
}

// Downloader fetches a source file to a local path.
type Downloader interface {
	Download(ctx context.Context, file source.File, dest string) error
}

// Uploader pushes a local video file into the platform's library under the
// given display name.
type Uploader interface {
	UploadVideo(ctx context.Context, path, name string) (platform.Video, error)
}

// Pool manages concurrent transfers using a worker pool pattern.
type Pool struct {
	source  Downloader
	target  Uploader
	workers int
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewPool creates a new transfer pool with the specified number of worker
// goroutines.
func NewPool(src Downloader, target Uploader, workers int, m *metrics.Metrics, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if m == nil {
		m = metrics.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		source:  src,
		target:  target,
		workers: workers,
		metrics: m,
		logger:  logger,
	}
}

// Execute submits a batch of tasks to the pool and waits for all to complete.
// The returned results maintain the same order as the input tasks.
// If the context is cancelled, all workers stop processing immediately.
func (p *Pool) Execute(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return []Result{}
	}

	tasksChan := make(chan taskWithIndex, len(tasks))
	resultsChan := make(chan Result, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go p.worker(ctx, tasksChan, resultsChan, &wg)
	}

	go func() {
		for i, task := range tasks {
			select {
			case tasksChan <- taskWithIndex{task: task, index: i}:
			case <-ctx.Done():
			}
		}
		close(tasksChan)
	}()

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	results := make([]Result, 0, len(tasks))
	for result := range resultsChan {
		results = append(results, result)
	}

	// Sort results by their original index to maintain order
	sort.Slice(results, func(i, j int) bool {
		return results[i].index < results[j].index
	})

	return results
}

// taskWithIndex pairs a Task with its original index for ordering results.
type taskWithIndex struct {
	task  Task
	index int
}

// worker processes tasks from the tasks channel and sends results to the
// results channel.
func (p *Pool) worker(ctx context.Context, tasksChan <-chan taskWithIndex, resultsChan chan<- Result, wg *sync.WaitGroup) {
	defer wg.Done()

	for t := range tasksChan {
		select {
		case <-ctx.Done():
			resultsChan <- Result{Task: t.task, Err: ctx.Err(), index: t.index}
			return
		default:
		}

		resultsChan <- p.transfer(ctx, t)
	}
}

// transfer executes one download-then-upload task. The scratch file is
// removed once the upload attempt finishes, whatever the outcome.
func (p *Pool) transfer(ctx context.Context, t taskWithIndex) Result {
	result := Result{Task: t.task, index: t.index}
	start := time.Now()

	if err := p.source.Download(ctx, t.task.File, t.task.DestPath); err != nil {
		result.Err = err
		p.metrics.FilesFailedTotal.WithLabelValues("download").Inc()
		p.logger.Error("download failed", "path", t.task.File.Path, "error", err)
		return result
	}

	video, err := p.target.UploadVideo(ctx, t.task.DestPath, t.task.File.Name)
	if removeErr := os.Remove(t.task.DestPath); removeErr != nil {
		p.logger.Warn("failed to remove scratch file", "path", t.task.DestPath, "error", removeErr)
	}
	if err != nil {
		result.Err = err
		if platform.IsRateLimit(err) {
			result.RateLimited = true
			p.metrics.RateLimitHitsTotal.Inc()
			p.logger.Warn("upload rate limited", "name", t.task.File.Name)
		} else {
			p.metrics.FilesFailedTotal.WithLabelValues("upload").Inc()
			p.logger.Error("upload failed", "name", t.task.File.Name, "error", err)
		}
		return result
	}

	result.Video = video
	p.metrics.FilesUploadedTotal.Inc()
	p.metrics.UploadDurationSeconds.Observe(time.Since(start).Seconds())
	p.logger.Info("file uploaded", "name", t.task.File.Name, "video", video.ID, "duration", time.Since(start))
	return result
}
