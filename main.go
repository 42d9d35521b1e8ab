package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"sync"
	"syscall"

	"github.com/agrodata/plantio/internal/api"
	"github.com/agrodata/plantio/internal/config"
	"github.com/agrodata/plantio/internal/db"
	"github.com/agrodata/plantio/internal/version"
)

var (
	listen     = flag.String("listen", ":8080", "Listen address")
	dbPath     = flag.String("db", "", "Path to the sqlite database (overrides config)")
	configPath = flag.String("config", "", "Path to a JSON config file")
)

func main() {
	flag.Parse()

	cfg := config.Empty()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	path := cfg.GetDBPath()
	if *dbPath != "" {
		path = *dbPath
	}

	// Subcommands run without starting the server. "serve" (or no
	// subcommand) starts the HTTP service.
	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "serve":
		case "migrate":
			db.RunMigrateCommand(args[1:], path)
			return
		case "version":
			fmt.Printf("plantio %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
			return
		default:
			log.Fatalf("unknown command %q (expected serve, migrate, or version)", args[0])
		}
	}

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	database, err := db.NewDB(path)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(api.ServerConfig{
		Address: *listen,
		DB:      database,
		Config:  cfg,
	})

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Start(ctx); err != nil {
			log.Printf("server error: %v", err)
		}
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
