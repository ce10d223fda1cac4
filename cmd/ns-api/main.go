package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PcapSpectra/internal/api"
	"PcapSpectra/internal/config"
	"PcapSpectra/internal/model"
	"PcapSpectra/internal/snapshot"
	"PcapSpectra/internal/storage/clickhouse"
	"PcapSpectra/internal/store"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to the configuration file.")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var captures model.CaptureStore
	switch cfg.API.Source {
	case "clickhouse":
		chCfg, ok := cfg.ClickHouse()
		if !ok {
			log.Fatalf("No enabled ClickHouse writer found in config. API server cannot start.")
		}
		querier, err := clickhouse.NewQuerier(ctx, chCfg)
		if err != nil {
			log.Fatalf("Failed to create querier: %v", err)
		}
		defer querier.Close()
		captures = querier
	default:
		mem := store.NewMemory()
		reload := func() {
			loaded, err := snapshot.Load(cfg.API.SnapshotPath)
			if err != nil {
				log.Printf("Error loading snapshots from %s: %v", cfg.API.SnapshotPath, err)
				return
			}
			mem.Replace(loaded)
		}
		reload()
		log.Printf("Serving captures from snapshots in %s", cfg.API.SnapshotPath)
		if interval, _ := cfg.API.Reload(); interval > 0 {
			go func() {
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						reload()
					}
				}
			}()
		}
		captures = mem
	}

	svc := api.NewService(captures, cfg.Analysis)

	// gRPC server
	lis, err := net.Listen("tcp", cfg.API.GRPCListenAddr)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", cfg.API.GRPCListenAddr, err)
	}
	grpcServer := api.NewGRPCServer(svc)
	go func() {
		log.Printf("gRPC server listening on %s", cfg.API.GRPCListenAddr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("gRPC server failed: %v", err)
		}
	}()

	// HTTP server
	server := &http.Server{
		Addr:    cfg.API.HTTPListenAddr,
		Handler: api.NewHTTPHandler(svc),
	}
	go func() {
		log.Printf("HTTP server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", server.Addr, err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("API server shutting down...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server forced to shutdown: %v", err)
	}
	grpcServer.GracefulStop()
	log.Println("API server exited.")
}
