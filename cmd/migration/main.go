package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/19722009abc/HelpyBot/internal/config"
	"github.com/19722009abc/HelpyBot/pkg/db"
	"github.com/19722009abc/HelpyBot/pkg/db/migrations"
)

func main() {
	// Define command-line flags
	createCmd := flag.NewFlagSet("create", flag.ExitOnError)
	migrateCmd := flag.NewFlagSet("migrate", flag.ExitOnError)
	statusCmd := flag.NewFlagSet("status", flag.ExitOnError)

	// Create command options
	migrationsDir := createCmd.String("dir", "pkg/db/migrations/sql", "Directory to store migrations")

	// Migrate and status options; the database defaults to the configured path
	migrateDB := migrateCmd.String("db", "", "Path to SQLite database")
	migrateDir := migrateCmd.String("dir", "", "Directory containing migrations (defaults to the embedded schema)")
	statusDB := statusCmd.String("db", "", "Path to SQLite database")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "create":
		createCmd.Parse(os.Args[2:])
		if createCmd.NArg() < 1 {
			fmt.Println("Error: Missing migration description")
			createCmd.Usage()
			os.Exit(1)
		}
		err = createNewMigration(*migrationsDir, createCmd.Arg(0))

	case "migrate":
		migrateCmd.Parse(os.Args[2:])
		err = applyMigrations(*migrateDB, *migrateDir)

	case "status":
		statusCmd.Parse(os.Args[2:])
		err = showStatus(*statusDB)

	case "help":
		printUsage()

	default:
		fmt.Printf("Error: Unknown command '%s'\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/migration create DESCRIPTION  - Create a new migration")
	fmt.Println("  go run ./cmd/migration migrate             - Apply pending migrations")
	fmt.Println("  go run ./cmd/migration status              - List migrations and whether they ran")
	fmt.Println("  go run ./cmd/migration help                - Show this help")
	fmt.Println("\nExamples:")
	fmt.Println("  go run ./cmd/migration create \"add daily shop history\"")
	fmt.Println("  go run ./cmd/migration migrate -db data/helpybot.db")
}

func databasePath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return "", err
	}
	return cfg.DatabasePath, nil
}

func createNewMigration(dir, description string) error {
	filePath, err := migrations.CreateMigration(dir, description, time.Now())
	if err != nil {
		return fmt.Errorf("creating migration: %w", err)
	}

	fmt.Printf("Created migration file: %s\n", filePath)
	fmt.Println("Edit this file to add your database schema changes.")
	return nil
}

func applyMigrations(dbFlag, dir string) error {
	path, err := databasePath(dbFlag)
	if err != nil {
		return err
	}
	conn, err := db.Open(path)
	if err != nil {
		return err
	}
	defer conn.Close()

	var source fs.FS = migrations.Schema()
	if dir != "" {
		source = os.DirFS(dir)
	}
	if err := migrations.NewMigrator(conn, source).MigrateUp(context.Background()); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	fmt.Println("Migrations applied successfully!")
	return nil
}

func showStatus(dbFlag string) error {
	path, err := databasePath(dbFlag)
	if err != nil {
		return err
	}
	conn, err := db.Open(path)
	if err != nil {
		return err
	}
	defer conn.Close()

	all, applied, err := migrations.NewMigrator(conn, migrations.Schema()).Status(context.Background())
	if err != nil {
		return err
	}
	for _, m := range all {
		mark := "pending"
		if applied[m.Version] {
			mark = "applied"
		}
		fmt.Printf("%s  %-8s %s\n", m.Version, mark, m.Description)
	}
	return nil
}
