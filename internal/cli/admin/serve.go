package admin

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/nocturne/internal/api/handlers"
	"github.com/cloo-solutions/nocturne/internal/config"
	"github.com/cloo-solutions/nocturne/internal/enrich"
	"github.com/cloo-solutions/nocturne/internal/jobs"
	"github.com/cloo-solutions/nocturne/internal/llm"
	"github.com/cloo-solutions/nocturne/internal/pipeline"
	"github.com/cloo-solutions/nocturne/internal/server"
	"github.com/cloo-solutions/nocturne/internal/service"
	"github.com/cloo-solutions/nocturne/internal/store"
	"github.com/cloo-solutions/nocturne/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the nocturne API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.HasSentry() {
		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: cfg.TracesSampleRate(),
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetString("port")
	}

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	backend, closeBackend, err := OpenBackend(ctx, cfg, !noMigrate)
	if err != nil {
		return err
	}
	defer closeBackend()

	noteStore := store.New(backend)
	stages := enrich.NewClient(newModel(cfg), enrich.WithTimeout(cfg.StageTimeout))
	noteSvc := service.NewNoteService(pipeline.NewOrchestrator(stages), noteStore)

	var repairWorker *jobs.Worker
	if cfg.RepairInterval > 0 {
		repairWorker = jobs.NewWorker("index-repair", jobs.NewRepairWorker(noteSvc), cfg.RepairInterval)
		go repairWorker.Start(ctx)
	}

	router := server.NewRouter(server.RouterConfig{
		StageHandler:  handlers.NewStageHandler(stages),
		NoteHandler:   handlers.NewNoteHandler(noteSvc),
		ActionHandler: handlers.NewActionHandler(noteSvc),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if repairWorker != nil {
		repairWorker.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// newModel returns nil without an API key so that every stage reports
// ErrModelNotConfigured instead of failing at startup.
func newModel(cfg *config.Config) enrich.Model {
	client, err := llm.NewClient(llm.Config{
		APIKey:  cfg.ModelAPIKey,
		BaseURL: cfg.ModelBaseURL,
		Model:   cfg.ModelName,
	})
	if err != nil {
		log.Printf("model: %v (stage endpoints will return 500)", err)
		return nil
	}
	log.Printf("model: using %s", cfg.ModelName)
	return client
}
