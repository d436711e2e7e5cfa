package main

import (
	"fmt"
	"os"
	"strconv"

	"portfolio-dashboard/internal/config"
	"portfolio-dashboard/internal/database"
	"portfolio-dashboard/internal/logging"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log := logging.Component(logging.New(cfg.Log), "migrate")

	if cfg.Database.Driver != "postgres" {
		log.Fatal().Str("driver", cfg.Database.Driver).Msg("migrations only apply to the postgres driver")
	}

	db, err := database.Initialize(cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer database.Close(db)

	migrator := database.NewMigrator(db.DB, os.Getenv("MIGRATIONS_PATH"))

	switch os.Args[1] {
	case "up":
		changed, err := migrator.Up()
		if err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
		if changed {
			log.Info().Msg("migrations completed successfully")
		} else {
			log.Info().Msg("no new migrations to run")
		}

	case "down":
		steps := 1
		if len(os.Args) > 2 {
			steps, err = strconv.Atoi(os.Args[2])
			if err != nil || steps < 1 {
				log.Fatal().Str("steps", os.Args[2]).Msg("invalid steps argument")
			}
		}
		if err := migrator.Down(steps); err != nil {
			log.Fatal().Err(err).Msg("rollback failed")
		}
		log.Info().Int("steps", steps).Msg("rolled back migrations")

	case "version":
		version, dirty, err := migrator.Version()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to get migration version")
		}
		if dirty {
			fmt.Printf("Current migration version: %d (dirty)\n", version)
		} else {
			fmt.Printf("Current migration version: %d\n", version)
		}

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: migrate <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  up                 Run all pending migrations")
	fmt.Println("  down [steps]       Rollback migrations (default: 1 step)")
	fmt.Println("  version            Show current migration version")
}
