package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"PredWatch/internal/di"
	"PredWatch/internal/domain/models"
	"PredWatch/internal/usecase"
	"PredWatch/pkg/config"
)

// retrain runs one retrain cycle per ticker from the command line,
// bypassing the scheduler cadence.
func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	ticker := flag.String("ticker", "", "retrain a single ticker (default: all configured)")
	dryRun := flag.Bool("dry-run", false, "evaluate the candidate but never persist or swap")
	force := flag.Bool("force", false, "skip the comparison against the active snapshot")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	engine, cleanup, err := di.InitializeRetrain(cfg)
	if err != nil {
		log.Fatalf("initialization failed: %v", err)
	}
	defer cleanup()

	tickers := cfg.Monitor.Tickers
	if *ticker != "" {
		tickers = []string{*ticker}
	}
	opts := usecase.RetrainOptions{DryRun: *dryRun, Force: *force}

	failed := false
	for _, tk := range tickers {
		res, err := engine.Run(context.Background(), tk, opts)
		switch {
		case errors.Is(err, models.ErrRetrainRejected):
			fmt.Printf("%s: rejected (%s)\n", tk, res.Reason)
		case err != nil:
			fmt.Printf("%s: failed: %v\n", tk, err)
			failed = true
		default:
			fmt.Printf("%s: %s candidate=%s mape=%.4f r2=%.4f\n",
				tk, res.State, res.Candidate.VersionID,
				res.Candidate.Metrics.MAPE, res.Candidate.Metrics.R2)
		}
	}

	if failed {
		os.Exit(1)
	}
}
