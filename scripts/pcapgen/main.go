package main

import (
	"flag"
	"log"
	"math/rand"
	"os"
	"time"

	"PcapSpectra/internal/pcapgen"
)

func main() {
	outputFile := flag.String("o", "test.pcap", "Output capture file path")
	packetCount := flag.Int("c", 1000, "Number of packets to generate")
	ng := flag.Bool("ng", false, "Write pcapng instead of pcap")
	seed := flag.Int64("seed", 0, "Random seed (0 uses the current time)")
	flag.Parse()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	f, err := os.Create(*outputFile)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()

	log.Printf("Generating %d packets into %s...", *packetCount, *outputFile)
	specs := pcapgen.Random(rng, *packetCount, time.Now().UTC().Truncate(time.Second))

	write := pcapgen.WritePcap
	if *ng {
		write = pcapgen.WritePcapNg
	}
	if err := write(f, specs); err != nil {
		log.Fatalf("Failed to write packets: %v", err)
	}
	log.Printf("Successfully generated %d packets.", len(specs))
}
