package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"quizportal/internal/app"
	"quizportal/internal/config"
	"quizportal/internal/database"
	"quizportal/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	db, err := database.Open(database.LoadConfig())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	profiles, err := app.OpenProfiles(ctx, cfg, db, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer profiles.Close()

	cli := &commandLine{
		db:       db,
		accounts: repository.NewAccountRepository(db),
		profiles: profiles,
		out:      os.Stdout,
	}
	if err := cli.run(ctx, os.Args); err != nil {
		if !errors.Is(err, errHelp) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(2)
	}
}
