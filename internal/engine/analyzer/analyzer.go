package analyzer

import (
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"PcapSpectra/internal/engine/flowaggregator"
	"PcapSpectra/internal/engine/protocol"
	"PcapSpectra/internal/engine/protocolstats"
	"PcapSpectra/internal/model"
)

// Analyze consumes source to exhaustion in a single pass. Every packet counts
// towards the capture totals and time range; only packets with an IP layer are
// classified and attributed to a flow. Aggregators are created per call, so
// concurrent calls on different sources never share state.
//
// Any error from the source other than io.EOF aborts the pass and is returned
// wrapped in model.ErrDecodeFailure, with the source error still reachable
// through errors.Is. Nothing accumulated so far is returned.
func Analyze(source model.PacketSource) (*model.Result, error) {
	began := time.Now()
	flows := flowaggregator.New()
	protocols := protocolstats.New()
	res := &model.Result{}

	for {
		rec, err := source.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, model.ErrDecodeFailure) {
			return nil, fmt.Errorf("after %d packets: %w", res.PacketCount, err)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: after %d packets: %w", model.ErrDecodeFailure, res.PacketCount, err)
		}
		if rec == nil {
			continue
		}

		res.PacketCount++
		res.TotalBytes += uint64(rec.Length)
		if res.StartTime.IsZero() || rec.Timestamp.Before(res.StartTime) {
			res.StartTime = rec.Timestamp
		}
		if rec.Timestamp.After(res.EndTime) {
			res.EndTime = rec.Timestamp
		}

		if !rec.Layer.HasIP() {
			continue
		}
		label := protocol.Classify(rec)
		protocols.Observe(label, rec.Length)
		flows.Observe(rec, label)
	}

	res.Protocols = protocols.Snapshot(res.PacketCount)
	res.Flows = flows.Finalize()

	log.Printf("Analysis completed in %v: %d packets, %d bytes, %d flows, %d protocols",
		time.Since(began), res.PacketCount, res.TotalBytes, len(res.Flows), len(res.Protocols))
	return res, nil
}
