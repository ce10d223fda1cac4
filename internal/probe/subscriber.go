package probe

import (
	"fmt"
	"log"
	"sync"
	"time"

	"PcapSpectra/internal/config"
	"PcapSpectra/internal/model"
	"PcapSpectra/internal/wire"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// StreamHandler receives each new capture stream once, when its first message
// arrives. The source yields the capture's records until end of stream and
// should be closed by the consumer.
type StreamHandler func(id uuid.UUID, name string, source model.PacketSource)

// StreamSubscriber demultiplexes the packet subject into one PacketSource per
// capture.
type StreamSubscriber struct {
	nc      *nats.Conn
	sub     *nats.Subscription
	subject string
	timeout time.Duration
	handler StreamHandler

	mu      sync.Mutex
	streams map[uuid.UUID]*stream
	// dropped remembers captures whose consumer gave up before end of
	// stream, so their remaining messages are discarded instead of starting
	// a new analysis of a partial stream.
	dropped map[uuid.UUID]time.Time
}

// droppedRetention bounds how long a dropped capture is remembered without
// any message arriving for it.
const droppedRetention = 5 * time.Minute

// NewStreamSubscriber creates a new NATS subscriber.
func NewStreamSubscriber(cfg config.ProbeConfig) (*StreamSubscriber, error) {
	timeout, err := cfg.Timeout()
	if err != nil {
		return nil, err
	}
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)
	s := newStreamSubscriber(cfg.Subject, timeout)
	s.nc = nc
	return s, nil
}

func newStreamSubscriber(subject string, timeout time.Duration) *StreamSubscriber {
	return &StreamSubscriber{
		subject: subject,
		timeout: timeout,
		streams: make(map[uuid.UUID]*stream),
		dropped: make(map[uuid.UUID]time.Time),
	}
}

// Start subscribes to the subject and hands every new capture stream to handler.
func (s *StreamSubscriber) Start(handler StreamHandler) error {
	s.handler = handler
	sub, err := s.nc.Subscribe(s.subject, s.dispatch)
	if err != nil {
		return err
	}
	s.sub = sub
	log.Printf("Subscribed to '%s'. Waiting for capture streams...", s.subject)
	return nil
}

// Active returns the number of streams that have not reached end of stream.
func (s *StreamSubscriber) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.streams)
}

func (s *StreamSubscriber) dispatch(msg *nats.Msg) {
	id, err := uuid.Parse(msg.Header.Get(HeaderCaptureID))
	if err != nil {
		log.Printf("Warning: dropping message without a valid capture id: %v", err)
		return
	}

	eos := msg.Header.Get(HeaderEndOfStream) != ""

	s.mu.Lock()
	if _, gone := s.dropped[id]; gone {
		if eos {
			delete(s.dropped, id)
		} else {
			s.dropped[id] = time.Now()
		}
		s.mu.Unlock()
		return
	}
	st, ok := s.streams[id]
	if !ok {
		s.pruneDropped(time.Now())
		st = newStream(s.timeout)
		st.onClose = func() { s.release(id, st) }
		s.streams[id] = st
	}
	s.mu.Unlock()

	if !ok {
		name := msg.Header.Get(HeaderCaptureName)
		log.Printf("New capture stream %s ('%s')", id, name)
		go s.handler(id, name, st)
	}

	if eos {
		s.mu.Lock()
		delete(s.streams, id)
		s.mu.Unlock()

		var streamErr error
		if e := msg.Header.Get(HeaderError); e != "" {
			streamErr = fmt.Errorf("%w: producer reported: %s", model.ErrDecodeFailure, e)
		}
		st.finish(streamErr)
		return
	}

	if st.abandoned() {
		return
	}
	rec, err := wire.UnmarshalRecord(msg.Data)
	if err != nil {
		log.Printf("Error decoding record of capture %s: %v", id, err)
		st.fail(err)
		return
	}
	st.push(rec)
}

// release forgets a stream whose consumer gave up before end of stream.
func (s *StreamSubscriber) release(id uuid.UUID, st *stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streams[id] != st {
		return
	}
	delete(s.streams, id)
	s.dropped[id] = time.Now()
	log.Printf("Capture stream %s abandoned before end of stream", id)
}

// pruneDropped must be called with s.mu held.
func (s *StreamSubscriber) pruneDropped(now time.Time) {
	for id, last := range s.dropped {
		if now.Sub(last) > droppedRetention {
			delete(s.dropped, id)
		}
	}
}

// Close unsubscribes and closes the NATS connection.
func (s *StreamSubscriber) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	if s.nc != nil {
		s.nc.Close()
		log.Println("NATS connection closed.")
	}
}
