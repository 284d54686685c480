package main

import (
	"chat-relay/infrastructure/grpc/server"
	"chat-relay/infrastructure/websocket"
	"chat-relay/internal"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// Returning instead of exiting lets every defer (journal, listeners) run before the process ends.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, err
	}
	charReplacement, err := internal.CharacterRune(config.ModerationCharReplacement)
	if err != nil {
		return exitConfig, err
	}
	policy, err := runtime.ParseFanoutPolicy(config.FanoutPolicy)
	if err != nil {
		return exitConfig, err
	}

	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Journal (BadgerDB), only when enabled
	var messageRepository repositories.IMessageRepository
	if config.JournalEnabled {
		db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
			WithLoggingLevel(badger.WARNING))
		if err != nil {
			return exitRuntime, fmt.Errorf("database opening failed: %w", err)
		}
		defer func() {
			log.Info("Closing BadgerDB...")
			_ = db.Close()
		}()
		messageRepository = repositories.NewMessageRepository(db, log, config.LimitMessages)
	}

	// 3. Setup Supervision & Orchestration
	supervisor := workers.NewSupervisor(log, config.RestartInterval)
	orchestrator, err := runtime.NewOrchestrator(log, supervisor, messageRepository, runtime.Config{
		FanoutPolicy:      policy,
		BufferSize:        config.BufferSize,
		SinkTimeout:       config.SinkTimeout,
		HeartbeatInterval: config.HeartbeatInterval,
		ModerationEnabled: config.ModerationEnabled,
		CharReplacement:   charReplacement,
		HistoryLimit:      config.HistoryLimit(),
	})
	if err != nil {
		return exitConfig, fmt.Errorf("orchestrator setup failed: %w", err)
	}

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orchestratorDone := make(chan struct{})
	go func() {
		defer close(orchestratorDone)
		_ = orchestrator.Start(ctx)
	}()

	// 5. Listeners
	grpcAddress := fmt.Sprintf("%s:%d", config.Host, config.GrpcPort)
	grpcListener, err := net.Listen("tcp", grpcAddress)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", grpcAddress, err)
	}
	healthServer := server.NewHealthServer(log)

	wsConfig := websocket.DefaultConfig(config.AllowedOrigin)
	wsConfig.ConnectionBufferSize = config.ConnectionBufferSize
	wsConfig.MaxMessageBytes = config.MaxMessageBytes
	wsServer := websocket.NewServer(log, services.NewRelayService(log, orchestrator), wsConfig)
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{
		Addr:              address,
		Handler:           wsServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Use an error channel to capture Serve() issues
	errChan := make(chan error, 2)
	go func() {
		if err := healthServer.Serve(grpcListener); err != nil {
			errChan <- fmt.Errorf("gRPC health server error: %w", err)
		}
	}()
	go func() {
		log.Info("Starting relay", "address", address, "fanout_policy", policy,
			"journal", config.JournalEnabled, "moderation", config.ModerationEnabled)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("websocket server error: %w", err)
		}
	}()
	healthServer.SetServing(true)

	// 6. Wait for Stop or Error
	code := exitOK
	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case runErr = <-errChan:
		code = exitRuntime
	}

	// 7. Final Cleanup
	healthServer.SetServing(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wsServer.CloseAll()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "error", err)
	}
	healthServer.Stop(shutdownCtx)
	stop()
	orchestrator.Stop()
	<-orchestratorDone
	log.Info("Program stopped cleanly")

	return code, runErr
}
