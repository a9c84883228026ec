package recognition

import (
	"context"
	"runtime"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// WorkerPool bounds the number of concurrent recognition passes. Haar
// detection and the CNN forward pass are CPU-heavy; without a bound a
// burst of camera frames and upload requests would thrash the host.
type WorkerPool struct {
	service     *Service
	jobs        chan *recognizeJob
	workerCount int

	activeJobs      int
	activeJobsMutex sync.Mutex

	shutdown chan struct{}
}

type recognizeJob struct {
	ctx      context.Context
	input    interface{}
	source   string
	resultCh chan *recognizeResult // individual result channel per job
}

type recognizeResult struct {
	result *Result
	err    error
}

// NewWorkerPool starts a pool sized to 75% of the available CPUs, with
// a floor of two workers.
func NewWorkerPool(service *Service) *WorkerPool {
	availableCPUs := runtime.NumCPU()
	workerCount := max(2, (availableCPUs*3)/4)

	log.Infof("Initializing recognition worker pool with %d workers", workerCount)

	pool := &WorkerPool{
		service:     service,
		jobs:        make(chan *recognizeJob, workerCount*2),
		workerCount: workerCount,
		shutdown:    make(chan struct{}),
	}
	pool.startWorkers()
	return pool
}

func (p *WorkerPool) startWorkers() {
	for i := 0; i < p.workerCount; i++ {
		go func(workerID int) {
			log.Debugf("Worker %d started", workerID)

			for {
				select {
				case job, ok := <-p.jobs:
					if !ok {
						log.Debugf("Worker %d shutting down (job channel closed)", workerID)
						return
					}

					p.activeJobsMutex.Lock()
					p.activeJobs++
					jobCount := p.activeJobs
					p.activeJobsMutex.Unlock()

					log.Debugf("Worker %d recognizing image from %s (active jobs: %d)",
						workerID, job.source, jobCount)

					startTime := time.Now()
					result, err := p.service.RecognizeFace(job.input)

					p.activeJobsMutex.Lock()
					p.activeJobs--
					p.activeJobsMutex.Unlock()

					select {
					case job.resultCh <- &recognizeResult{result: result, err: err}:
					default:
						log.Warnf("Worker %d: could not send result, channel might be closed", workerID)
					}

					log.Debugf("Worker %d completed recognition in %v", workerID, time.Since(startTime))

				case <-p.shutdown:
					log.Debugf("Worker %d received shutdown signal", workerID)
					return
				}
			}
		}(i)
	}
}

// Recognize submits a recognition job to the pool and blocks for its
// result or the context's cancellation.
func (p *WorkerPool) Recognize(ctx context.Context, input interface{}, source string) (*Result, error) {
	resultCh := make(chan *recognizeResult, 1)

	job := &recognizeJob{
		ctx:      ctx,
		input:    input,
		source:   source,
		resultCh: resultCh,
	}

	select {
	case p.jobs <- job:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-resultCh:
		return r.result, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ActiveJobCount returns the number of jobs currently being processed.
func (p *WorkerPool) ActiveJobCount() int {
	p.activeJobsMutex.Lock()
	defer p.activeJobsMutex.Unlock()
	return p.activeJobs
}

// WorkerCount returns the size of the pool.
func (p *WorkerPool) WorkerCount() int {
	return p.workerCount
}

// QueueCapacity returns the capacity of the job queue.
func (p *WorkerPool) QueueCapacity() int {
	return cap(p.jobs)
}

// Shutdown stops all workers.
func (p *WorkerPool) Shutdown() {
	close(p.shutdown)
	close(p.jobs)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
