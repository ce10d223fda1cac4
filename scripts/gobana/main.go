package main

import (
	"fmt"
	"log"
	"os"

	"PcapSpectra/internal/snapshot"
)

// Dumps a capture.gob snapshot written by the gob writer.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts/gobana <capture.gob>")
		os.Exit(1)
	}
	c, err := snapshot.ReadFile(os.Args[1])
	if err != nil {
		log.Fatalf("Unable to read snapshot: %v", err)
	}

	res := c.Result
	fmt.Printf("Capture %s (%s), analyzed %s\n", c.ID, c.Name, c.AnalyzedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Packets: %d, bytes: %d, duration: %s\n", res.PacketCount, res.TotalBytes, res.Duration())
	for _, p := range res.Protocols {
		fmt.Printf("  %-10s %8d pkts %10d bytes %6.2f%%\n", p.Protocol, p.PacketCount, p.Bytes, p.Percentage)
	}
	fmt.Printf("Flows: %d\n", len(res.Flows))
	for _, f := range res.Flows {
		fmt.Printf("  %s:%d <-> %s:%d %s pkts=%d bytes=%d start=%s end=%s\n",
			f.SrcIP, f.SrcPort, f.DstIP, f.DstPort, f.Protocol,
			f.PacketCount, f.TotalBytes,
			f.StartTime.Format("15:04:05.000"), f.EndTime.Format("15:04:05.000"))
	}
}
