package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/circleapp/circle/internal/db"
	"github.com/circleapp/circle/pkg/config"
	"github.com/circleapp/circle/pkg/logging"
)

func main() {
	timeout := flag.Duration("timeout", 10*time.Minute, "overall recount deadline")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logging.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.GetLogger().Sync()

	logger := logging.GetLogger()
	logger.Info("Starting counter recount")

	database, err := db.New(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	if err := db.NewRecounter(database).Run(ctx); err != nil {
		logger.Fatal("Recount failed", zap.Error(err))
	}

	logger.Info("Recount complete", zap.Duration("elapsed", time.Since(start)))
}
