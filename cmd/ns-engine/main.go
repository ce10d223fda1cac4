package main

import (
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"PcapSpectra/internal/config"
	"PcapSpectra/internal/engine/manager"
	"PcapSpectra/internal/model"
	"PcapSpectra/internal/probe"

	"github.com/google/uuid"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	flag.Parse()

	log.Println("Starting ns-engine...")

	// 1. Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 2. Initialize the manager and its writers
	mgr, err := manager.NewManager(cfg)
	if err != nil {
		log.Fatalf("Failed to create manager: %v", err)
	}
	mgr.Start()

	// 3. Feed every capture stream to the manager
	sub, err := probe.NewStreamSubscriber(cfg.Probe)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	err = sub.Start(func(id uuid.UUID, name string, source model.PacketSource) {
		err := mgr.Submit(manager.Job{
			ID:   id,
			Name: name,
			Open: func() (model.PacketSource, error) { return source, nil },
		})
		if err != nil {
			log.Printf("Dropping capture stream %s: %v", id, err)
			if closer, ok := source.(io.Closer); ok {
				closer.Close()
			}
		}
	})
	if err != nil {
		log.Fatalf("Subscriber failed to start: %v", err)
	}

	// 4. Wait for a shutdown signal for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutdown signal received, stopping engine...")
	sub.Close()
	mgr.Stop()
	log.Println("Shutdown complete.")
}
