package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"primestream/config"
	"primestream/httpServer"
	"primestream/internal/caps"
	"primestream/internal/capture"
	"primestream/internal/engine"
	"primestream/internal/metrics"
	"primestream/internal/recorder"
	"primestream/internal/storage"
	"primestream/internal/transport"
	"primestream/pkg/models"
)

func main() {
	log.Println("Starting PrimeStream server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Printf("HTTP Server: %s", cfg.HTTPAddr)
	log.Printf("Transport: %s, capture source: %s", cfg.Protocol, cfg.SourceKind)

	// Probe GPU capabilities
	probe := caps.NewStaticProbe()
	var gpu caps.GPUCaps
	if probe.GPUCount() > 0 {
		gpu, err = probe.Caps(0)
		if err != nil {
			log.Fatalf("Failed to probe GPU: %v", err)
		}
		log.Printf("GPU: %s (%d MB VRAM, NVENC=%v)", gpu.Name, gpu.VRAMTotalMB, gpu.SupportsNVENC)
	} else {
		log.Println("No GPU detected, software encoding only")
	}

	// Resolve the default stream configuration
	streamCfg := cfg.StreamConfig()
	if streamCfg.QualityPreset == "" {
		streamCfg.QualityPreset = caps.DefaultPreset(gpu)
		log.Printf("Quality preset from GPU capabilities: %s", streamCfg.QualityPreset)
	}

	// Initialize storage for recordings
	var storageBackend storage.Storage
	if cfg.RecordingEnabled {
		if cfg.StorageType == "gcs" {
			gcsStorage, err := storage.NewGCSStorage(context.Background(), cfg.GCSBucketName, cfg.GCSBaseDir)
			if err != nil {
				log.Fatalf("Failed to initialize GCS storage: %v", err)
			}
			defer gcsStorage.Close()
			storageBackend = gcsStorage
			log.Printf("Storage initialized: GCS bucket=%s, baseDir=%s", cfg.GCSBucketName, cfg.GCSBaseDir)
		} else {
			localStorage, err := storage.NewLocalStorage(cfg.StorageDir)
			if err != nil {
				log.Fatalf("Failed to initialize local storage: %v", err)
			}
			storageBackend = localStorage
			log.Printf("Storage initialized: Local directory=%s", cfg.StorageDir)
		}
	}

	// Initialize metrics
	m := metrics.New()
	log.Println("Prometheus metrics initialized")

	// Initialize the session manager
	defaults := engine.Options{
		SourceKind: capture.SourceKind(cfg.SourceKind),
		Protocol:   transport.Protocol(cfg.Protocol),
		LatencyMS:  cfg.SRTLatency,
		GPU:        gpu,
		Metrics:    m,
	}
	if storageBackend != nil {
		defaults.NewSink = func(sessionID string, codec models.VideoCodec) engine.PacketSink {
			return recorder.New(storageBackend, sessionID, codec)
		}
	}
	manager := engine.NewManager(defaults)
	log.Println("Session manager initialized")

	// Initialize HTTP server
	httpSrv := httpServer.New(manager, streamCfg)
	log.Printf("HTTP server ready to start on %s", cfg.HTTPAddr)

	// Stop all sessions cleanly on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received %s, stopping sessions...", sig)
		manager.StopAll()
		os.Exit(0)
	}()

	log.Println("PrimeStream server started successfully")
	log.Println("---")
	log.Println("API Endpoints:")
	log.Println("  GET    /api/ping")
	log.Println("  POST   /api/v1/sessions")
	log.Println("  GET    /api/v1/sessions")
	log.Println("  GET    /api/v1/sessions/:id")
	log.Println("  GET    /api/v1/sessions/:id/stats")
	log.Println("  POST   /api/v1/sessions/:id/start")
	log.Println("  POST   /api/v1/sessions/:id/stop")
	log.Println("  PATCH  /api/v1/sessions/:id/quality")
	log.Println("  DELETE /api/v1/sessions/:id")
	log.Println("  GET    /metrics")
	log.Println("---")

	// Start HTTP server (blocking)
	if err := httpSrv.Run(cfg.HTTPAddr); err != nil {
		log.Fatalf("HTTP server failed: %v", err)
	}
}
