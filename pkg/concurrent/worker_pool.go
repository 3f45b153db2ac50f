package concurrent

import (
	"context"
	"sync"
)

type JobFunc[T any, G any] func(ctx context.Context, job T) G

// Job. payload tagged with its position in the submitted batch.
type Job[T any] struct {
	Index   int
	Payload T
}

type Result[G any] struct {
	Index int
	Value G
}

// WorkerPool. fixed number of goroutines consuming a job queue. results arrive in completion order,
// use Result.Index to put them back in submission order.
type WorkerPool[T any, G any] struct {
	numWorkers int
	jobQueue   chan Job[T]
	results    chan Result[G]
	wg         sync.WaitGroup
}

func NewWorkerPool[T any, G any](numWorkers, jobQueueSize int) *WorkerPool[T, G] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &WorkerPool[T, G]{
		numWorkers: numWorkers,
		jobQueue:   make(chan Job[T], jobQueueSize),
		results:    make(chan Result[G], jobQueueSize),
	}
}

func (wp *WorkerPool[T, G]) worker(ctx context.Context, jobFunc JobFunc[T, G]) {
	defer wp.wg.Done()
	for job := range wp.jobQueue {
		res := jobFunc(ctx, job.Payload)
		wp.results <- Result[G]{Index: job.Index, Value: res}
	}
}

func (wp *WorkerPool[T, G]) Start(ctx context.Context, jobFunc JobFunc[T, G]) {
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, jobFunc)
	}
}

// Wait. blocks until every worker has returned, then closes the result channel. call Close first.
func (wp *WorkerPool[T, G]) Wait() {
	wp.wg.Wait()
	close(wp.results)
}

func (wp *WorkerPool[T, G]) AddJob(index int, job T) {
	wp.jobQueue <- Job[T]{Index: index, Payload: job}
}

func (wp *WorkerPool[T, G]) CollectResults() <-chan Result[G] {
	return wp.results
}

func (wp *WorkerPool[T, G]) Close() {
	close(wp.jobQueue)
}

// Map. runs jobFunc over every job on numWorkers goroutines and returns the results in input order.
func Map[T any, G any](ctx context.Context, numWorkers int, jobs []T, jobFunc JobFunc[T, G]) []G {
	wp := NewWorkerPool[T, G](numWorkers, len(jobs))
	wp.Start(ctx, jobFunc)
	for i, job := range jobs {
		wp.AddJob(i, job)
	}
	wp.Close()
	wp.Wait()

	out := make([]G, len(jobs))
	for res := range wp.CollectResults() {
		out[res.Index] = res.Value
	}
	return out
}
