package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	moodsense "github.com/moodsense/moodsense"
	"github.com/moodsense/moodsense/backend"
	"github.com/moodsense/moodsense/backend/remote"
	"github.com/moodsense/moodsense/backend/static"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config (defaults apply when empty)")
		wavPath    = flag.String("wav", "", "analyze a 16-bit PCM WAV file instead of the microphone")
		backendURL = flag.String("backend-url", "", "model server base URL (built-in classifier when empty)")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "", log.LstdFlags|log.Lshortfile)

	cfg, err := moodsense.LoadConfig(*configPath)
	if err != nil {
		logger.Fatalf("Configuration error: %v", err)
	}

	metrics, shutdownMetrics, err := moodsense.InitMetrics()
	if err != nil {
		logger.Fatalf("Failed to initialize metrics: %v", err)
	}
	defer shutdownMetrics(context.Background())

	var b backend.Backend
	if *backendURL != "" {
		b = remote.New(*backendURL, cfg.WindowSamples())
	} else {
		b = static.New(cfg.WindowSamples())
	}
	defer b.Close()

	var device moodsense.Device = moodsense.Microphone{}
	if *wavPath != "" {
		device = moodsense.WAVFile{Path: *wavPath}
	}

	var journal *moodsense.Journal
	if cfg.JournalDir != "" {
		journal, err = moodsense.NewJournal(cfg.JournalDir)
		if err != nil {
			logger.Fatalf("Failed to open journal: %v", err)
		}
	}

	pipeline, err := moodsense.NewPipeline(cfg, device, b, metrics, journal, logger)
	if err != nil {
		logger.Fatalf("Failed to build pipeline: %v", err)
	}
	if err := pipeline.Start(); err != nil {
		logger.Fatalf("Failed to start pipeline: %v", err)
	}

	server := moodsense.NewServer(cfg.ListenAddr, pipeline, journal)
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatalf("State server failed: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	pipelineDone := make(chan struct{})
	go func() {
		pipeline.Wait()
		close(pipelineDone)
	}()

	select {
	case <-sig:
	case <-pipelineDone:
		// Finite source exhausted or the pipeline hit a fatal error.
	}

	if err := pipeline.Stop(); err != nil {
		logger.Printf("Error stopping pipeline: %v", err)
	}
	if err := pipeline.Err(); err != nil {
		logger.Printf("Pipeline ended with error: %v", err)
	}
	if err := server.Stop(); err != nil {
		logger.Printf("Error during server shutdown: %v", err)
	}
}
