package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gridlockgames/tictactoe-rooms/internal/config"
	"github.com/gridlockgames/tictactoe-rooms/internal/registry"
	"github.com/gridlockgames/tictactoe-rooms/internal/repository"
	"github.com/gridlockgames/tictactoe-rooms/internal/repository/storage"
	"github.com/gridlockgames/tictactoe-rooms/internal/usecase"
	"github.com/gridlockgames/tictactoe-rooms/transport/rest"
	"github.com/gridlockgames/tictactoe-rooms/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

const shutdownTimeout = 10 * time.Second

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.New(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	roomRepo := repository.NewRoomRepository(redisStorage)
	roomManager := usecase.NewRoomManager(logger, roomRepo)
	fanout := registry.New(logger)

	restServer, err := rest.New(logger, roomManager)
	if err != nil {
		return fmt.Errorf("could not build rest server: %w", err)
	}

	socketServer := websocket.New(logger, roomManager, fanout)

	router := chi.NewRouter()
	restServer.Routes(router)
	socketServer.Routes(router)

	srv := &http.Server{
		Addr:    ":" + conf.HTTPPort,
		Handler: router,
		// no write timeout, sockets stay open for the lifetime of a game
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := srv.ListenAndServe(); httpErr != nil && !errors.Is(httpErr, http.ErrServerClosed) {
			httpErrCh <- httpErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err = srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown error: %w", err)
		}

		return nil
	}
}
