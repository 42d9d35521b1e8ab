package db

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
)

// RunMigrateCommand handles the 'migrate' subcommand dispatching.
func RunMigrateCommand(args []string, dbPath string) {
	if len(args) < 1 {
		PrintMigrateHelp()
		os.Exit(1)
	}

	action := args[0]

	migrationsFS, err := MigrationsFS()
	if err != nil {
		log.Fatalf("Failed to get migrations filesystem: %v", err)
	}

	// Open database connection without running schema initialization
	// (migrations will manage the schema)
	database, err := OpenDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	switch action {
	case "up":
		handleMigrateUp(database, migrationsFS)

	case "down":
		handleMigrateDown(database, migrationsFS)

	case "status":
		handleMigrateStatus(database, migrationsFS)

	case "version":
		if len(args) < 2 {
			log.Fatal("Usage: plantio migrate version <version_number>")
		}
		handleMigrateTo(database, migrationsFS, args[1])

	case "force":
		if len(args) < 2 {
			log.Fatal("Usage: plantio migrate force <version_number>")
		}
		handleMigrateForce(database, migrationsFS, args[1])

	case "help":
		PrintMigrateHelp()

	default:
		fmt.Printf("Unknown migrate action: %s\n\n", action)
		PrintMigrateHelp()
		os.Exit(1)
	}
}

func handleMigrateUp(database *DB, migrationsFS fs.FS) {
	log.Printf("Running migrations...")
	if err := database.MigrateUp(migrationsFS); err != nil {
		log.Fatalf("Migration up failed: %v", err)
	}
	log.Println("All migrations applied successfully")
}

func handleMigrateDown(database *DB, migrationsFS fs.FS) {
	log.Printf("Rolling back most recent migration...")
	if err := database.MigrateDown(migrationsFS); err != nil {
		log.Fatalf("Migration down failed: %v", err)
	}
	log.Println("Rollback complete")
}

func handleMigrateStatus(database *DB, migrationsFS fs.FS) {
	version, dirty, err := database.MigrateVersion(migrationsFS)
	if err != nil {
		log.Fatalf("Failed to get migration status: %v", err)
	}
	fmt.Printf("Current version: %d\n", version)
	fmt.Printf("Dirty: %v\n", dirty)
}

func handleMigrateTo(database *DB, migrationsFS fs.FS, versionArg string) {
	version, err := strconv.ParseUint(versionArg, 10, 32)
	if err != nil {
		log.Fatalf("Invalid version number %q: %v", versionArg, err)
	}
	if err := database.MigrateTo(migrationsFS, uint(version)); err != nil {
		log.Fatalf("Migration to version %d failed: %v", version, err)
	}
	log.Printf("Migrated to version %d", version)
}

func handleMigrateForce(database *DB, migrationsFS fs.FS, versionArg string) {
	version, err := strconv.Atoi(versionArg)
	if err != nil {
		log.Fatalf("Invalid version number %q: %v", versionArg, err)
	}
	if err := database.MigrateForce(migrationsFS, version); err != nil {
		log.Fatalf("Force migration failed: %v", err)
	}
	log.Printf("Forced version to %d", version)
}

// PrintMigrateHelp prints usage for the migrate subcommand.
func PrintMigrateHelp() {
	fmt.Println(`Usage: plantio migrate <action>

Actions:
  up                 Apply all pending migrations
  down               Roll back the most recent migration
  status             Show current migration version and dirty state
  version <n>        Migrate up or down to version n
  force <n>          Force the recorded version to n (recovery only)
  help               Show this help`)
}
