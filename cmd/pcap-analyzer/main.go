package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"PcapSpectra/internal/config"
	"PcapSpectra/internal/engine/manager"
	"PcapSpectra/internal/model"
	"PcapSpectra/internal/report"
	"PcapSpectra/pkg/pcap"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	printReport := flag.Bool("report", true, "Print the Markdown report of each capture to stdout.")
	flag.Parse()

	// 1. Get capture file paths from command-line arguments
	if flag.NArg() < 1 {
		fmt.Println("Usage: go run ./cmd/pcap-analyzer [-config path] [-report=false] <capture_file>...")
		os.Exit(1)
	}

	// 2. Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 3. Initialize modules
	mgr, err := manager.NewManager(cfg)
	if err != nil {
		log.Fatalf("Failed to create manager: %v", err)
	}
	renderer := report.NewWriter("", cfg.Analysis)
	mgr.Start()

	// 4. Queue one job per file
	var (
		wg     sync.WaitGroup
		outMu  sync.Mutex
		failed int
	)
	for _, path := range flag.Args() {
		wg.Add(1)
		err := mgr.Submit(manager.Job{
			Name: filepath.Base(path),
			Open: func() (model.PacketSource, error) {
				log.Printf("Reading packets from '%s'...", path)
				return pcap.NewReader(path)
			},
			Done: func(c *model.Capture, err error) {
				defer wg.Done()
				outMu.Lock()
				defer outMu.Unlock()
				if err != nil {
					failed++
					return
				}
				log.Printf("Capture '%s' analyzed: id=%s, packets=%d, flows=%d",
					c.Name, c.ID, c.Result.PacketCount, len(c.Result.Flows))
				if !*printReport {
					return
				}
				md, err := renderer.Render(c)
				if err != nil {
					log.Printf("Failed to render report for '%s': %v", c.Name, err)
					return
				}
				os.Stdout.Write(md)
				fmt.Println()
			},
		})
		if err != nil {
			log.Printf("Failed to queue '%s': %v", path, err)
			outMu.Lock()
			failed++
			outMu.Unlock()
			wg.Done()
		}
	}

	// 5. Graceful shutdown
	wg.Wait()
	mgr.Stop()
	if failed > 0 {
		log.Fatalf("%d of %d captures failed.", failed, flag.NArg())
	}
	log.Println("Shutdown complete.")
}
