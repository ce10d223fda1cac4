package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"PcapSpectra/internal/config"
	"PcapSpectra/internal/probe"
	"PcapSpectra/pkg/pcap"

	"github.com/google/uuid"
)

func main() {
	// --- Command-Line Flag Parsing ---
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	natsURL := flag.String("nats", "", "NATS server URL (overrides probe.nats_url).")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: ns-probe [-config path] [-nats url] <capture_file>...")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *natsURL != "" {
		cfg.Probe.NATSURL = *natsURL
	}

	// Initialize NATS Publisher
	pub, err := probe.NewPublisher(cfg.Probe)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer pub.Close()

	failed := 0
	for _, path := range flag.Args() {
		if err := replay(pub, path); err != nil {
			log.Printf("Error replaying '%s': %v", path, err)
			failed++
		}
	}
	if failed > 0 {
		pub.Close()
		log.Fatalf("%d of %d captures failed.", failed, flag.NArg())
	}
}

// replay publishes one capture file as a single stream.
func replay(pub *probe.Publisher, path string) error {
	reader, err := pcap.NewReader(path)
	if err != nil {
		return err
	}
	defer reader.Close()

	id := uuid.New()
	log.Printf("Publishing '%s' as capture %s...", path, id)
	sent, err := pub.PublishCapture(id, filepath.Base(path), reader)
	log.Printf("%d packets published for capture %s.", sent, id)
	return err
}
