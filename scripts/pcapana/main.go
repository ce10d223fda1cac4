package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"PcapSpectra/internal/engine/protocol"
	"PcapSpectra/pkg/pcap"
)

// Prints one line per packet with the metadata and label the engine derives.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts/pcapana <capture_file>")
		os.Exit(1)
	}
	reader, err := pcap.NewReader(os.Args[1])
	if err != nil {
		log.Fatal(err)
	}
	defer reader.Close()

	for i := 1; ; i++ {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Fatalf("Packet %d: %v", i, err)
		}
		if !rec.Layer.HasIP() {
			fmt.Printf("%6d %s len=%d non-IP\n", i, rec.Timestamp.Format("15:04:05.000000"), rec.Length)
			continue
		}
		fmt.Printf("%6d %s len=%d %s:%d -> %s:%d %s (%s)\n", i,
			rec.Timestamp.Format("15:04:05.000000"), rec.Length,
			rec.SrcIP, rec.SrcPort, rec.DstIP, rec.DstPort,
			protocol.Classify(rec), rec.Layer)
	}
}
