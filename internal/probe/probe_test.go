package probe

import (
	"errors"
	"io"
	"math/rand"
	"reflect"
	"sync"
	"testing"
	"time"

	"PcapSpectra/internal/engine/analyzer"
	"PcapSpectra/internal/engine/protocol"
	"PcapSpectra/internal/model"
	"PcapSpectra/internal/pcapgen"
	"PcapSpectra/internal/wire"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

type fakeConn struct {
	msgs    []*nats.Msg
	flushed bool
}

func (f *fakeConn) PublishMsg(msg *nats.Msg) error {
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeConn) Flush() error {
	f.flushed = true
	return nil
}

type sliceSource struct {
	records []*model.PacketRecord
	err     error
}

func (s *sliceSource) Next() (*model.PacketRecord, error) {
	if len(s.records) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	rec := s.records[0]
	s.records = s.records[1:]
	return rec, nil
}

func syntheticRecords(t *testing.T, n int) []*model.PacketRecord {
	t.Helper()
	start := time.Date(2024, 11, 5, 14, 0, 0, 0, time.UTC)
	specs := pcapgen.Random(rand.New(rand.NewSource(3)), n, start)
	records := make([]*model.PacketRecord, 0, n)
	for _, spec := range specs {
		data, err := pcapgen.Serialize(spec)
		if err != nil {
			t.Fatalf("Serialize failed: %v", err)
		}
		packet := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default)
		packet.Metadata().Timestamp = spec.Timestamp
		packet.Metadata().Length = len(data)
		records = append(records, protocol.ParsePacket(packet))
	}
	return records
}

func TestPublishAndSubscribe(t *testing.T) {
	records := syntheticRecords(t, 300)
	direct, err := analyzer.Analyze(&sliceSource{records: records})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	conn := &fakeConn{}
	pub := &Publisher{pub: conn, subject: "test.packets"}
	id := uuid.New()

	sent, err := pub.PublishCapture(id, "replay.pcap", &sliceSource{records: records})
	if err != nil {
		t.Fatalf("PublishCapture failed: %v", err)
	}
	if sent != 300 || len(conn.msgs) != 301 || !conn.flushed {
		t.Fatalf("Expected 300 records plus end of stream, got sent=%d msgs=%d", sent, len(conn.msgs))
	}
	last := conn.msgs[300]
	if last.Header.Get(HeaderEndOfStream) == "" || last.Header.Get(HeaderPacketCount) != "300" {
		t.Errorf("Last message is not an end-of-stream marker: %v", last.Header)
	}

	sub := newStreamSubscriber("test.packets", time.Second)
	results := make(chan *model.Result, 1)
	var gotName string
	sub.handler = func(gotID uuid.UUID, name string, source model.PacketSource) {
		if gotID != id {
			t.Errorf("Expected capture %s, got %s", id, gotID)
		}
		gotName = name
		res, err := analyzer.Analyze(source)
		if err != nil {
			t.Errorf("Analyze over stream failed: %v", err)
		}
		results <- res
	}

	for _, msg := range conn.msgs {
		sub.dispatch(msg)
	}

	select {
	case res := <-results:
		if gotName != "replay.pcap" {
			t.Errorf("Expected name replay.pcap, got %q", gotName)
		}
		if res.PacketCount != direct.PacketCount || res.TotalBytes != direct.TotalBytes {
			t.Errorf("Totals differ: stream %d/%d, direct %d/%d", res.PacketCount, res.TotalBytes, direct.PacketCount, direct.TotalBytes)
		}
		if !reflect.DeepEqual(res.Protocols, direct.Protocols) {
			t.Errorf("Protocol stats differ:\n%v\n%v", res.Protocols, direct.Protocols)
		}
		if len(res.Flows) != len(direct.Flows) {
			t.Errorf("Flow counts differ: %d vs %d", len(res.Flows), len(direct.Flows))
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Timed out waiting for the stream analysis")
	}

	if sub.Active() != 0 {
		t.Errorf("Finished stream should be removed, %d active", sub.Active())
	}
}

func TestPublishCapture_SourceError(t *testing.T) {
	conn := &fakeConn{}
	pub := &Publisher{pub: conn, subject: "test.packets"}
	source := &sliceSource{
		records: syntheticRecords(t, 2),
		err:     errors.New("pcapng block truncated"),
	}

	sent, err := pub.PublishCapture(uuid.New(), "broken.pcapng", source)
	if !errors.Is(err, model.ErrDecodeFailure) || sent != 2 {
		t.Fatalf("Expected decode failure after 2 records, got %d, %v", sent, err)
	}

	sub := newStreamSubscriber("test.packets", time.Second)
	errs := make(chan error, 1)
	sub.handler = func(id uuid.UUID, name string, source model.PacketSource) {
		_, err := analyzer.Analyze(source)
		errs <- err
	}
	for _, msg := range conn.msgs {
		sub.dispatch(msg)
	}

	select {
	case err := <-errs:
		if !errors.Is(err, model.ErrDecodeFailure) {
			t.Errorf("Expected the consumer to see a decode failure, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Timed out")
	}
}

func TestStream_IdleTimeout(t *testing.T) {
	st := newStream(20 * time.Millisecond)
	st.push(&model.PacketRecord{Length: 60})

	if rec, err := st.Next(); err != nil || rec.Length != 60 {
		t.Fatalf("Expected the buffered record, got %v, %v", rec, err)
	}
	if _, err := st.Next(); !errors.Is(err, model.ErrDecodeFailure) {
		t.Fatalf("Expected an idle timeout, got %v", err)
	}
	if !st.abandoned() {
		t.Errorf("Timed out stream should be abandoned")
	}
	if st.push(&model.PacketRecord{}) {
		t.Errorf("Push to an abandoned stream should report false")
	}
}

func TestStream_DrainsBeforeEOF(t *testing.T) {
	st := newStream(time.Second)
	for i := 0; i < 3; i++ {
		st.push(&model.PacketRecord{Length: i})
	}
	st.finish(nil)

	for i := 0; i < 3; i++ {
		rec, err := st.Next()
		if err != nil || rec.Length != i {
			t.Fatalf("Record %d: got %v, %v", i, rec, err)
		}
	}
	if _, err := st.Next(); err != io.EOF {
		t.Errorf("Expected io.EOF, got %v", err)
	}
}

func TestDispatch_InterleavedAndMalformed(t *testing.T) {
	sub := newStreamSubscriber("test.packets", time.Second)

	var mu sync.Mutex
	counts := make(map[uuid.UUID]uint64)
	errs := make(map[uuid.UUID]error)
	var wg sync.WaitGroup
	sub.handler = func(id uuid.UUID, name string, source model.PacketSource) {
		defer wg.Done()
		res, err := analyzer.Analyze(source)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			errs[id] = err
			return
		}
		counts[id] = res.PacketCount
	}

	a, b := uuid.New(), uuid.New()
	msg := func(id uuid.UUID, data []byte, eos bool) *nats.Msg {
		m := nats.NewMsg("test.packets")
		m.Header.Set(HeaderCaptureID, id.String())
		if eos {
			m.Header.Set(HeaderEndOfStream, "1")
		} else {
			m.Data = data
		}
		return m
	}
	record := wire.MarshalRecord(nil, &model.PacketRecord{Length: 60})

	wg.Add(2)
	sub.dispatch(msg(a, record, false))
	sub.dispatch(msg(b, record, false))
	sub.dispatch(msg(a, record, false))
	sub.dispatch(msg(b, []byte{0xff}, false))
	sub.dispatch(nats.NewMsg("test.packets")) // no capture id
	sub.dispatch(msg(a, nil, true))
	sub.dispatch(msg(b, nil, true))
	wg.Wait()

	if counts[a] != 2 {
		t.Errorf("Expected 2 packets for capture a, got %d", counts[a])
	}
	if !errors.Is(errs[b], model.ErrDecodeFailure) {
		t.Errorf("Expected capture b to fail with a decode failure, got %v", errs[b])
	}
}

func TestDispatch_AbandonedStreamIsReleased(t *testing.T) {
	sub := newStreamSubscriber("test.packets", 50*time.Millisecond)
	results := make(chan error, 2)
	sub.handler = func(id uuid.UUID, name string, source model.PacketSource) {
		_, err := analyzer.Analyze(source)
		results <- err
	}

	id := uuid.New()
	recordMsg := func() *nats.Msg {
		m := nats.NewMsg("test.packets")
		m.Header.Set(HeaderCaptureID, id.String())
		m.Data = wire.MarshalRecord(nil, &model.PacketRecord{Length: 60})
		return m
	}

	// The producer sends one record and then goes silent.
	sub.dispatch(recordMsg())
	select {
	case err := <-results:
		if !errors.Is(err, model.ErrDecodeFailure) {
			t.Fatalf("Expected an idle timeout, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Timed out waiting for the idle timeout")
	}
	if n := sub.Active(); n != 0 {
		t.Fatalf("Timed out stream should be released, %d active", n)
	}

	// Late messages of the dropped capture do not start a second analysis.
	sub.dispatch(recordMsg())
	eos := nats.NewMsg("test.packets")
	eos.Header.Set(HeaderCaptureID, id.String())
	eos.Header.Set(HeaderEndOfStream, "1")
	sub.dispatch(eos)
	if n := sub.Active(); n != 0 {
		t.Errorf("Late messages created a stream, %d active", n)
	}
	select {
	case err := <-results:
		t.Errorf("Late messages started another analysis (err=%v)", err)
	case <-time.After(100 * time.Millisecond):
	}

	// Once the end of stream is seen the ID is free again.
	sub.mu.Lock()
	remembered := len(sub.dropped)
	sub.mu.Unlock()
	if remembered != 0 {
		t.Errorf("End of stream should clear the dropped capture, %d remembered", remembered)
	}
}

func TestDispatch_MalformedRecordReleasesStream(t *testing.T) {
	sub := newStreamSubscriber("test.packets", time.Second)
	results := make(chan error, 1)
	sub.handler = func(id uuid.UUID, name string, source model.PacketSource) {
		_, err := analyzer.Analyze(source)
		results <- err
	}

	m := nats.NewMsg("test.packets")
	m.Header.Set(HeaderCaptureID, uuid.NewString())
	m.Data = []byte{0xff}
	sub.dispatch(m)

	if n := sub.Active(); n != 0 {
		t.Errorf("Failed stream should be released, %d active", n)
	}
	select {
	case err := <-results:
		if !errors.Is(err, model.ErrDecodeFailure) {
			t.Errorf("Expected a decode failure, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Timed out")
	}
}
