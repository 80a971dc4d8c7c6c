package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coldroute/coldroute/internal/bootstrap"
	"github.com/coldroute/coldroute/internal/config"
	"github.com/coldroute/coldroute/internal/metrics"
	"github.com/coldroute/coldroute/internal/scheduler"
	"github.com/coldroute/coldroute/internal/webhook"
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from stale/stub processes occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func main() {
	log.Println("╔══════════════════════════════════════════╗")
	log.Println("║  coldroute control plane — server         ║")
	log.Println("╚══════════════════════════════════════════╝")

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := checkPortAvailable(cfg.Server.GetHost(), cfg.Server.Port); err != nil {
		log.Fatal(err)
	}

	w, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer w.Close()

	handlers := webhook.NewHandlers(w.IPRepo, w.EventRecorder(), w.ProvisionerIface(), w.NodeHealthIface())
	mc := metrics.New()
	router := webhook.NewRouter(handlers, cfg.Webhook, mc)

	jobs := w.Jobs(mc)
	sched := scheduler.New(jobs)
	schedCtx, schedCancel := context.WithCancel(context.Background())
	sched.Start(schedCtx)

	addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	log.Println("scheduler started, all jobs registered")

	<-done
	log.Println("shutting down...")

	schedCancel()
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
	log.Println("server stopped")
}
