package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/merazka/telvoice/internal/audio"
	"github.com/merazka/telvoice/internal/config"
	"github.com/merazka/telvoice/internal/escalate"
	"github.com/merazka/telvoice/internal/httpapi"
	"github.com/merazka/telvoice/internal/ivr"
	"github.com/merazka/telvoice/internal/memory"
	"github.com/merazka/telvoice/internal/observability"
	"github.com/merazka/telvoice/internal/pipeline"
	"github.com/merazka/telvoice/internal/rag"
	"github.com/merazka/telvoice/internal/session"
	"github.com/merazka/telvoice/internal/sidecar"
	"github.com/merazka/telvoice/internal/tts"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	store, err := memory.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("store init failed: %v", err)
	}
	defer store.Close()
	if cfg.DatabaseURL == "" {
		log.Printf("store: in-memory (DATABASE_URL not set)")
	} else {
		log.Printf("store: postgres")
	}

	var generator rag.Generator
	if cfg.GroqAPIKey != "" {
		generator = rag.NewClient(cfg.GroqAPIKey, cfg.GroqBaseURL, cfg.GroqModel)
		log.Printf("generator: %s via %s", cfg.GroqModel, cfg.GroqBaseURL)
	} else {
		log.Printf("generator: disabled (GROQ_API_KEY not set); turns fall back to ticketing")
	}

	var synth tts.Synthesizer
	if cfg.TTSBaseURL != "" {
		synth = tts.NewHTTPSynthesizer(cfg.TTSBaseURL)
		log.Printf("tts: %s", cfg.TTSBaseURL)
	} else {
		log.Printf("tts: disabled (TTS_BASE_URL not set)")
	}

	var tickets escalate.Ticketer
	trello := escalate.NewTrelloClient(cfg.TrelloAPIKey, cfg.TrelloToken, cfg.TrelloListID)
	if trello.Configured() {
		tickets = trello
		log.Printf("ticketing: trello list %s", cfg.TrelloListID)
	} else {
		log.Printf("ticketing: disabled (trello credentials not set)")
	}

	audioStore, err := audio.NewStore(cfg.RecordingsDir)
	if err != nil {
		log.Fatalf("recordings dir init failed: %v", err)
	}

	queue := sidecar.NewQueue(cfg.SidecarWorkers, cfg.SidecarBuffer)
	queue.SetOutcomeHook(func(name, outcome string) {
		metrics.SidecarJobs.WithLabelValues(name, outcome).Inc()
	})

	sessions := session.NewStore()
	pipe := pipeline.New(sessions, store, generator, synth, tickets, audioStore, queue, metrics)
	flow := ivr.NewFlow(pipe, store, cfg.GatherTimeout, cfg.EmptyGatherLimit)

	api := httpapi.New(cfg, pipe, flow, store, synth, audioStore, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	queue.Start(runCtx)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	runCancel()
	queue.Wait()
	log.Printf("shutdown complete")
}
