package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/coldroute/coldroute/internal/bootstrap"
	"github.com/coldroute/coldroute/internal/config"
	"github.com/coldroute/coldroute/internal/metrics"
	"github.com/coldroute/coldroute/internal/scheduler"
)

// main runs the scheduler tier only: every job from §4.9 with no HTTP
// webhook/admin surface. Deployments that want to scale the API and the
// background-job tiers independently run this alongside cmd/server instead
// of running cmd/server alone; both share the same bootstrap wiring so the
// two processes can never drift on what a job does.
func main() {
	log.Println("╔══════════════════════════════════════════╗")
	log.Println("║  coldroute control plane — worker         ║")
	log.Println("╚══════════════════════════════════════════╝")

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	w, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer w.Close()

	mc := metrics.New()
	jobs := w.Jobs(mc)
	sched := scheduler.New(jobs)
	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)
	log.Printf("scheduler started, %d jobs registered", len(jobs))

	metricsSrv := startMetricsServer(mc)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down worker...")
	cancel()
	sched.Stop()

	if metricsSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("metrics server shutdown error: %v", err)
		}
	}
	log.Println("worker stopped")
}

// startMetricsServer exposes /metrics and /healthz for scraping, on a
// dedicated port separate from the API server (WORKER_METRICS_PORT, default
// 9091). It never blocks startup: a bind failure is logged and the worker
// keeps running without scrapeable metrics.
func startMetricsServer(mc *metrics.Collector) *http.Server {
	port := 9091
	if v := os.Getenv("WORKER_METRICS_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			port = p
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", mc.Handler())
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		rw.Write([]byte("ok"))
	})

	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		log.Printf("worker metrics listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	return srv
}
