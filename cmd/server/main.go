package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tube-transcriber/internal/acquire"
	"tube-transcriber/internal/config"
	"tube-transcriber/internal/diagnostics"
	"tube-transcriber/internal/domain"
	"tube-transcriber/internal/jobs"
	"tube-transcriber/internal/progress"
	"tube-transcriber/internal/registry"
	"tube-transcriber/internal/store"
	"tube-transcriber/internal/transcribe"
	httptransport "tube-transcriber/internal/transport/http"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	artifacts := store.New(cfg.AudioDir, cfg.TranscriptDir)
	if err := artifacts.EnsureDirs(); err != nil {
		log.Fatalf("artifact dirs: %v", err)
	}

	checker := diagnostics.NewChecker()
	report := checker.Run(cfg)
	for _, item := range report.Items {
		if item.Status == domain.DiagnosticStatusFail {
			log.Printf("[diagnostics] id=%s status=%s message=%q", item.ID, item.Status, item.Message)
		}
	}
	if report.HasFailures {
		log.Printf("[diagnostics] startup checks reported failures; jobs may not complete")
	}

	reporter := progress.NewReporter()
	defer reporter.Close()

	reg := registry.NewRegistry(reporter)
	chain := acquire.NewChain(acquire.Config{
		ToolPath:        cfg.ToolPath,
		FFmpegPath:      cfg.FFmpegPath,
		BrowserProfiles: cfg.BrowserProfiles,
	})
	client := transcribe.NewClient(cfg.APIKey, cfg.Language)

	orchestrator := jobs.NewOrchestrator(reg, chain, client, artifacts, jobs.Options{
		AcquireTimeout:    cfg.AcquireTimeout,
		TranscribeTimeout: cfg.TranscribeTimeout,
	})

	handler := httptransport.NewHandler(orchestrator, reporter, artifacts, func() domain.DiagnosticReport {
		return checker.Run(cfg)
	})

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httptransport.Routes(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[server] listening addr=%s data_dir=%s language=%s", cfg.ListenAddr, cfg.DataDir, cfg.Language)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("[server] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[server] http shutdown: %v", err)
	}
	if err := orchestrator.Shutdown(shutdownCtx); err != nil {
		log.Printf("[server] job shutdown: %v", err)
	}

	log.Println("[server] stopped")
}
