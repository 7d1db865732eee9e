package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/poserp/accounting/internal/infrastructure/config"
	"github.com/poserp/accounting/internal/infrastructure/logger"
	"github.com/poserp/accounting/internal/infrastructure/persistence"
	"github.com/poserp/accounting/internal/infrastructure/persistence/models"
)

func main() {
	var logLevel string
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(&logger.Config{
		Level:  logLevel,
		Format: "console",
		Output: "stdout",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	switch command {
	case "up":
		if err := db.Migrate(); err != nil {
			log.Fatal("Migration failed", zap.Error(err))
		}
		log.Info("Schema migrated", zap.String("driver", cfg.Database.Driver))
	case "status":
		migrator := db.DB.Migrator()
		for _, model := range models.All() {
			fmt.Printf("%-20T exists=%v\n", model, migrator.HasTable(model))
		}
	case "import":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "import requires a JSON-lines file path")
			os.Exit(1)
		}
		report, err := importEntities(log, db, args[1])
		if err != nil {
			log.Fatal("Import failed", zap.Error(err))
		}
		fmt.Printf("imported %d entities, %d metadata rows (%d simulated)\n",
			report.Entities, report.Metadata, report.Simulated)
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: migrate [flags] <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  up      Create or update the entity store schema")
	fmt.Println("  status  Show which tables exist")
	fmt.Println("  import  Backfill entities from a JSON-lines file")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
}
