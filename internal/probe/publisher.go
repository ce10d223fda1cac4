package probe

import (
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"

	"PcapSpectra/internal/config"
	"PcapSpectra/internal/model"
	"PcapSpectra/internal/wire"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

type msgPublisher interface {
	PublishMsg(msg *nats.Msg) error
	Flush() error
}

// Publisher replays capture streams onto a NATS subject.
type Publisher struct {
	nc      *nats.Conn
	pub     msgPublisher
	subject string
}

// NewPublisher creates a new NATS publisher.
func NewPublisher(cfg config.ProbeConfig) (*Publisher, error) {
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	log.Printf("Connected to NATS server at %s", cfg.NATSURL)
	return &Publisher{nc: nc, pub: nc, subject: cfg.Subject}, nil
}

// PublishCapture sends every record of source as one message, followed by an
// end-of-stream marker. A source error is forwarded in the marker so the
// consumer fails the capture instead of analyzing a truncated stream. It
// returns the number of records sent.
func (p *Publisher) PublishCapture(id uuid.UUID, name string, source model.PacketSource) (int, error) {
	var buf []byte
	sent := 0
	var sourceErr error

	for {
		rec, err := source.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			sourceErr = err
			break
		}

		buf = wire.MarshalRecord(buf[:0], rec)
		msg := p.message(id, name)
		msg.Data = append([]byte(nil), buf...)
		if err := p.pub.PublishMsg(msg); err != nil {
			return sent, fmt.Errorf("failed to publish record %d: %w", sent, err)
		}
		sent++
	}

	eos := p.message(id, name)
	eos.Header.Set(HeaderEndOfStream, "1")
	eos.Header.Set(HeaderPacketCount, strconv.Itoa(sent))
	if sourceErr != nil {
		eos.Header.Set(HeaderError, sourceErr.Error())
	}
	if err := p.pub.PublishMsg(eos); err != nil {
		return sent, fmt.Errorf("failed to publish end of stream: %w", err)
	}
	if err := p.pub.Flush(); err != nil {
		return sent, fmt.Errorf("failed to flush: %w", err)
	}

	if sourceErr != nil {
		return sent, fmt.Errorf("%w: %v", model.ErrDecodeFailure, sourceErr)
	}
	return sent, nil
}

func (p *Publisher) message(id uuid.UUID, name string) *nats.Msg {
	msg := nats.NewMsg(p.subject)
	msg.Header.Set(HeaderCaptureID, id.String())
	msg.Header.Set(HeaderCaptureName, name)
	return msg
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		log.Println("NATS connection drained and closed.")
	}
}
