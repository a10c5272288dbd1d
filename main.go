package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/billbatista/splittab/api"
	"github.com/billbatista/splittab/config"
	"github.com/billbatista/splittab/group"
	"github.com/billbatista/splittab/ledger"
	"github.com/billbatista/splittab/notify"
	"github.com/billbatista/splittab/session"
	"github.com/billbatista/splittab/storage"
	"github.com/billbatista/splittab/user"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		printErrorAndExit("loading configuration", err)
	}

	db, err := storage.Open(cfg.DatabaseURL)
	if err != nil {
		printErrorAndExit("database connection", err)
	}
	defer db.Close()

	if err := storage.RunMigrations(db); err != nil {
		printErrorAndExit("running migrations", err)
	}

	var publisher notify.Publisher = notify.LogPublisher{}
	if cfg.AMQPURL != "" {
		amqpPub, err := notify.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			printErrorAndExit("AMQP connection", err)
		}
		defer amqpPub.Close()
		publisher = amqpPub
	}

	dispatcher := notify.NewDispatcher(publisher, cfg.NotifyBufferSize)
	dispatcher.Start()
	defer dispatcher.Shutdown()

	userRepo := user.NewRepository(db)
	sessionRepo := session.NewRepository(db)
	groupRepo := group.NewRepository(db)
	ledgerRepo := ledger.NewRepository(db)

	expenseService := ledger.NewService(ledgerRepo, groupRepo, dispatcher)

	server := api.NewServer(expenseService, groupRepo, userRepo, sessionRepo)

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.Router(),
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			printErrorAndExit("http server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
}

func printErrorAndExit(msg string, e error) {
	slog.Error(msg, "error", e)
	os.Exit(1)
}
