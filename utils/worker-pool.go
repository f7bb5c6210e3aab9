package utils

import (
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tj/go-spin"
	"go.uber.org/zap"
)

// WorkerPool manages a pool of goroutines for parallel processing
type WorkerPool[J, R any] struct {
	NumWorkers int
	JobQueue   chan J
	Results    chan R
	wg         sync.WaitGroup
	started    bool
	mu         sync.Mutex
}

// NewWorkerPool creates a new worker pool with specified number of workers
func NewWorkerPool[J, R any](numWorkers int, jobBufferSize int, resultBufferSize int) *WorkerPool[J, R] {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	return &WorkerPool[J, R]{
		NumWorkers: numWorkers,
		JobQueue:   make(chan J, jobBufferSize),
		Results:    make(chan R, resultBufferSize),
	}
}

// StartWorkers starts the worker goroutines with the given work function
func (wp *WorkerPool[J, R]) StartWorkers(workFunc func(J) R) {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.started {
		return
	}

	wp.started = true
	wp.wg.Add(wp.NumWorkers)

	for i := 0; i < wp.NumWorkers; i++ {
		go wp.worker(workFunc)
	}
}

func (wp *WorkerPool[J, R]) worker(workFunc func(J) R) {
	defer wp.wg.Done()

	for job := range wp.JobQueue {
		wp.Results <- workFunc(job)
	}
}

// SubmitJob adds a job to the job queue
func (wp *WorkerPool[J, R]) SubmitJob(job J) {
	wp.JobQueue <- job
}

// Wait closes the job queue and blocks until every worker has returned.
func (wp *WorkerPool[J, R]) Wait() {
	close(wp.JobQueue)
	wp.wg.Wait()
	close(wp.Results)
}

// ProgressTracker tracks progress of concurrent operations. When Out is
// nil nothing is rendered.
type ProgressTracker struct {
	Total     int64
	Processed int64
	StartTime time.Time
	Name      string
	Out       io.Writer

	mu      sync.Mutex
	spinner *spin.Spinner
}

func NewProgressTracker(total int64, name string, out io.Writer) *ProgressTracker {
	return &ProgressTracker{
		Total:     total,
		StartTime: time.Now(),
		Name:      name,
		Out:       out,
		spinner:   spin.New(),
	}
}

// Increment increments the processed count atomically
func (pt *ProgressTracker) Increment() {
	processed := atomic.AddInt64(&pt.Processed, 1)
	if pt.Out == nil {
		return
	}

	// render every 100 items and at completion
	if processed%100 != 0 && processed != pt.Total {
		return
	}

	elapsed := time.Since(pt.StartTime)
	rate := float64(processed) / elapsed.Seconds()
	percentage := float64(processed) / float64(pt.Total) * 100

	pt.mu.Lock()
	defer pt.mu.Unlock()
	fmt.Fprintf(pt.Out, "\r%s %s: %d/%d (%.1f%%) - %.1f items/sec",
		pt.spinner.Next(), pt.Name, processed, pt.Total, percentage, rate)
	if processed == pt.Total {
		fmt.Fprintln(pt.Out)
	}
}

// GetProgress returns the current progress
func (pt *ProgressTracker) GetProgress() (int64, int64, float64) {
	processed := atomic.LoadInt64(&pt.Processed)
	if pt.Total == 0 {
		return processed, 0, 100
	}
	percentage := float64(processed) / float64(pt.Total) * 100
	return processed, pt.Total, percentage
}

// ParallelProcessor provides utilities for parallel processing
type ParallelProcessor struct {
	NumWorkers int
	Progress   io.Writer
	Logger     *zap.Logger
}

func NewParallelProcessor(numWorkers int, progress io.Writer, logger *zap.Logger) *ParallelProcessor {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ParallelProcessor{
		NumWorkers: numWorkers,
		Progress:   progress,
		Logger:     logger,
	}
}

type indexed[T any] struct {
	index int
	value T
}

// ProcessBatch runs workFunc over items on the processor's workers and
// returns the results in item order, whatever order the workers finish in.
func ProcessBatch[J, R any](pp *ParallelProcessor, items []J, workFunc func(J) R, progressName string) []R {
	if len(items) == 0 {
		return []R{}
	}

	tracker := NewProgressTracker(int64(len(items)), progressName, pp.Progress)
	wp := NewWorkerPool[indexed[J], indexed[R]](pp.NumWorkers, len(items), len(items))

	wp.StartWorkers(func(job indexed[J]) indexed[R] {
		result := workFunc(job.value)
		tracker.Increment()
		return indexed[R]{index: job.index, value: result}
	})

	for i, item := range items {
		wp.SubmitJob(indexed[J]{index: i, value: item})
	}
	wp.Wait()

	// single collection point
	results := make([]R, len(items))
	for res := range wp.Results {
		results[res.index] = res.value
	}

	pp.Logger.Debug("batch completed",
		zap.String("batch", progressName),
		zap.Int("items", len(items)),
		zap.Int("workers", pp.NumWorkers),
		zap.Duration("elapsed", time.Since(tracker.StartTime)))
	return results
}
