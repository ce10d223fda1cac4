package manager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"PcapSpectra/internal/config"
	"PcapSpectra/internal/engine/analyzer"
	"PcapSpectra/internal/factory"
	"PcapSpectra/internal/model"
	_ "PcapSpectra/internal/notification"       // Registers the email writer
	_ "PcapSpectra/internal/report"             // Registers the report writer
	_ "PcapSpectra/internal/snapshot"           // Registers the gob writer
	_ "PcapSpectra/internal/storage/clickhouse" // Registers the clickhouse writer

	"github.com/google/uuid"
)

// ErrStopped is returned by Submit once Stop has been called.
var ErrStopped = errors.New("manager stopped")

const writeTimeout = 2 * time.Minute

// Job is one capture to analyze.
type Job struct {
	// ID identifies the capture; a zero ID is replaced by a random one.
	ID   uuid.UUID
	Name string
	// Open is called on a worker goroutine. A source implementing io.Closer
	// is closed after the pass.
	Open func() (model.PacketSource, error)
	// Done, when set, receives the finished capture or the failure.
	Done func(*model.Capture, error)
}

// Manager runs capture analyses on a pool of workers and hands every finished
// capture to all writers. Each analysis owns its aggregators, so jobs never
// share state.
type Manager struct {
	writers []model.Writer

	jobs       chan Job
	numWorkers int
	workerWg   sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewManager creates a Manager with the writers enabled in cfg plus any extra
// writers supplied by the caller.
func NewManager(cfg *config.Config, extra ...model.Writer) (*Manager, error) {
	writers, err := factory.CreateWriters(cfg)
	if err != nil {
		return nil, err
	}
	writers = append(writers, extra...)
	return New(writers, cfg.Engine.NumWorkers, cfg.Engine.SizeOfJobChannel), nil
}

// New creates a Manager from ready writers.
func New(writers []model.Writer, numWorkers, queueSize int) *Manager {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &Manager{
		writers:    writers,
		jobs:       make(chan Job, queueSize),
		numWorkers: numWorkers,
	}
}

// Start begins the manager's analysis workers.
func (m *Manager) Start() {
	m.workerWg.Add(m.numWorkers)
	for i := 0; i < m.numWorkers; i++ {
		go m.worker()
	}
	log.Printf("Manager started with %d workers and %d writers.", m.numWorkers, len(m.writers))
}

// Submit queues a job, blocking while the queue is full.
func (m *Manager) Submit(job Job) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.stopped {
		return ErrStopped
	}
	if job.Open == nil {
		return fmt.Errorf("%w: job '%s' has no source", model.ErrInvalidArgument, job.Name)
	}
	m.jobs <- job
	return nil
}

// Stop gracefully shuts down the manager. Queued jobs are finished first.
func (m *Manager) Stop() {
	log.Println("Manager stopping...")
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	close(m.jobs)
	m.mu.Unlock()

	log.Println("Waiting for workers to finish...")
	m.workerWg.Wait()

	for _, w := range m.writers {
		if closer, ok := w.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				log.Printf("Error closing %s writer: %v", w.Name(), err)
			}
		}
	}
	log.Println("Manager stopped.")
}

func (m *Manager) worker() {
	defer m.workerWg.Done()
	for job := range m.jobs {
		capture, err := m.run(job)
		if err != nil {
			log.Printf("Error analyzing capture '%s': %v", job.Name, err)
		}
		if job.Done != nil {
			job.Done(capture, err)
		}
	}
}

func (m *Manager) run(job Job) (*model.Capture, error) {
	source, err := job.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open source: %w", err)
	}
	if closer, ok := source.(io.Closer); ok {
		defer closer.Close()
	}

	log.Printf("Analyzing capture '%s'", job.Name)
	res, err := analyzer.Analyze(source)
	if err != nil {
		return nil, err
	}

	id := job.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	capture := &model.Capture{
		ID:         id,
		Name:       job.Name,
		AnalyzedAt: time.Now().UTC(),
		Result:     res,
	}
	m.write(capture)
	return capture, nil
}

// write fans the capture out to every writer concurrently. Writer failures
// are logged and do not fail the job.
func (m *Manager) write(capture *model.Capture) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(len(m.writers))
	for _, writer := range m.writers {
		go func(w model.Writer) {
			defer wg.Done()
			if err := w.Write(ctx, capture); err != nil {
				log.Printf("Error writing capture '%s' with %s writer: %v", capture.Name, w.Name(), err)
			}
		}(writer)
	}
	wg.Wait()
}
