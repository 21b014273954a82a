package main

import (
	"context"
	"fmt"
	"os"

	"ppcheck/adapters/mcmc"
	"ppcheck/adapters/postgres"
	"ppcheck/adapters/rng"
	"ppcheck/api"
	"ppcheck/app"
	"ppcheck/internal"
	"ppcheck/internal/config"
	"ppcheck/ports"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := internal.NewDefaultLogger()

	var repo ports.RunRepository
	if cfg.Database.URL != "" {
		db, err := postgres.Connect(cfg.Database.URL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.EnsureSchema(context.Background(), db); err != nil {
			return err
		}
		repo = postgres.NewRunRepository(db)
	} else {
		log.Warn("DATABASE_URL not set, runs will not be persisted")
	}

	engine := mcmc.NewEngine()
	streams := rng.NewStreamFactory()
	checks := app.NewCheckService(engine, streams, repo, log)
	crossval := app.NewCrossValService(engine, streams, log, cfg.Sampler.FoldWorkers)

	fit := ports.DefaultFitOptions(cfg.Sampler.Seed)
	fit.Warmup = cfg.Sampler.Warmup
	fit.Samples = cfg.Sampler.Samples

	server := api.NewServer(checks, crossval, repo, fit, log)
	return server.Run(cfg.Server.APIPort)
}
