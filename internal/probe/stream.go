package probe

import (
	"fmt"
	"io"
	"sync"
	"time"

	"PcapSpectra/internal/model"
)

const streamBuffer = 4096

// stream is a PacketSource fed by the subscription callback. Next fails with
// model.ErrDecodeFailure when no message arrives within the idle timeout.
type stream struct {
	records chan *model.PacketRecord
	timeout time.Duration

	// done is closed when the consumer gives up, unblocking pending pushes.
	done     chan struct{}
	doneOnce sync.Once
	// onClose runs once, right after done is closed.
	onClose func()

	mu  sync.Mutex
	err error
}

func newStream(timeout time.Duration) *stream {
	return &stream{
		records: make(chan *model.PacketRecord, streamBuffer),
		timeout: timeout,
		done:    make(chan struct{}),
	}
}

// push delivers a record, blocking while the buffer is full. It reports
// false once the consumer has given up.
func (s *stream) push(rec *model.PacketRecord) bool {
	select {
	case s.records <- rec:
		return true
	case <-s.done:
		return false
	}
}

// finish ends the stream; err, when set, is returned by Next after the
// buffered records.
func (s *stream) finish(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	close(s.records)
}

// fail aborts the stream; Next returns err from now on.
func (s *stream) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	s.Close()
}

func (s *stream) failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	return fmt.Errorf("%w: stream closed", model.ErrDecodeFailure)
}

func (s *stream) abandoned() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *stream) Next() (*model.PacketRecord, error) {
	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case rec, ok := <-s.records:
		if ok {
			return rec, nil
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	case <-s.done:
		return nil, s.failure()
	case <-timer.C:
		s.Close()
		return nil, fmt.Errorf("%w: stream idle for %s", model.ErrDecodeFailure, s.timeout)
	}
}

// Close tells the producer that nobody reads the stream any more.
func (s *stream) Close() error {
	s.doneOnce.Do(func() {
		close(s.done)
		if s.onClose != nil {
			s.onClose()
		}
	})
	return nil
}
