package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/appetiteclub/cocina/cmd/utils/internal/commands"
	"github.com/appetiteclub/cocina/internal/config"
	"github.com/aquamarinepk/aqm"
)

const (
	appName    = "cocina-utils"
	appVersion = "0.1.0"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := aqm.LoadConfig("COCINA", os.Args[2:])
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}

	logLevel, _ := cfg.GetString("log.level")
	if logLevel == "" {
		logLevel = "info"
	}
	logger := aqm.NewLogger(logLevel)

	settings, err := config.Load(cfg)
	if err != nil {
		log.Fatalf("Cannot load settings: %v", err)
	}

	ctx := context.Background()
	command := os.Args[1]

	switch command {
	case "show-filters":
		if err := commands.ShowFilters(ctx, settings, logger, os.Stdout); err != nil {
			log.Fatalf("❌ Show filters failed: %v", err)
		}

	case "reset-filters":
		if err := commands.ResetFilters(ctx, settings, logger); err != nil {
			log.Fatalf("❌ Reset filters failed: %v", err)
		}
		logger.Info("✅ Filters reset successfully")

	case "check-feed":
		if err := commands.CheckFeed(ctx, settings, logger, os.Stdout); err != nil {
			log.Fatalf("❌ Feed check failed: %v", err)
		}

	case "version":
		fmt.Printf("%s version %s\n", appName, appVersion)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - Cocina utility commands

Usage:
  %s <command> [options]

Commands:
  show-filters   Print the persisted delivery type filters
  reset-filters  Store the default filters (every delivery type checked)
  check-feed     Load the descriptor, poll the order feed once and print a summary
  version        Print version information
  help           Show this help message

Environment Variables:
  COCINA_STORE_DRIVER      Filter store: memory, sqlite or mongo (default: memory)
  COCINA_STORE_SQLITE_PATH SQLite file (default: cocina.db)
  COCINA_DB_MONGO_URL      MongoDB connection URL
  COCINA_FEED_DESCRIPTOR   Descriptor file or URL (default: config.json)
  COCINA_LOG_LEVEL         Log level: debug, info, warn, error (default: info)

Examples:
  COCINA_STORE_DRIVER=sqlite %s show-filters
  %s check-feed

`, appName, appName, appName, appName)
}
