package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rubixchain/faucet/pkg/acl"
	"github.com/rubixchain/faucet/pkg/config"
	"github.com/rubixchain/faucet/pkg/counter"
	"github.com/rubixchain/faucet/pkg/faucet"
	"github.com/rubixchain/faucet/pkg/rate"
	"github.com/rubixchain/faucet/pkg/replenish"
	"github.com/rubixchain/faucet/pkg/rubix"
	"github.com/rubixchain/faucet/pkg/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	config, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := slog.Default()
	logger.Info("-------------------faucet startup-------------------")
	defer logger.Info("-------------------faucet shutdown-------------------")

	// Step 1.
	// Initialize durable state
	db, err := store.New(config.Store.Path)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	if err := db.EnsureAccount(ctx, config.Faucet.FaucetDID); err != nil {
		panic(err)
	}

	seq, err := counter.New(config.Store.CounterPath)
	if err != nil {
		panic(err)
	}

	// Step 2.
	// Initialize rate limiter and ACL
	limiter := rate.NewLimiter(config.Rate)

	var allower faucet.Allower
	if config.ACL.Enabled {
		controller, err := acl.New(config.ACL, logger)
		if err != nil {
			panic(err)
		}
		defer controller.Close()
		allower = controller
	}

	// Step 3.
	// Setup the dispensation service by passing dependencies
	client := rubix.NewClient(config.Rubix)
	monitor := replenish.NewMonitor(config.Replenish, client, logger)

	service := faucet.NewService(
		config.Faucet,
		db,
		seq,
		client,
		allower,
		monitor,
		logger,
	)

	// Step 4.
	// Run the server
	server := &http.Server{
		Addr:    ":" + config.Faucet.Port,
		Handler: faucet.NewHandler(service, limiter),
	}

	exit := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			exit <- err
		}
	}()

	logger.Info("faucet: listening", "port", config.Faucet.Port)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("faucet: shutdown failed", "error", err)
		}
		return

	case err := <-exit:
		panic(err)
	}
}
