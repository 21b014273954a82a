package main

import (
	"context"
	"fmt"
	"os"

	"ppcheck/adapters/postgres"
	"ppcheck/internal"
	"ppcheck/internal/config"
	"ppcheck/ui"
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
	if cfg.Database.URL == "" {
		return fmt.Errorf("report browser requires DATABASE_URL")
	}
	db, err := postgres.Connect(cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := postgres.EnsureSchema(context.Background(), db); err != nil {
		return err
	}

	log := internal.NewDefaultLogger()
	app := ui.NewApp(postgres.NewRunRepository(db), log)
	return app.Run(cfg.Server.ReportPort)
}
