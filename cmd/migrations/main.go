package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"

	_ "github.com/lib/pq"

	"github.com/vncsmyrnk/ballot/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/ballot/internal/config"
)

// Usage: migrations [db flags] <migration name | up>
//
// "up" applies every up migration; any other name runs the matching file,
// e.g. "create_ballot.down".
func main() {
	config.LoadDotEnv()

	fs := flag.NewFlagSet("migrations", flag.ExitOnError)
	pg := config.PostgresFlags(fs)
	fs.Parse(os.Args[1:])

	if fs.NArg() < 1 {
		log.Fatal("a migration name is required.")
	}
	migrationName := fs.Arg(0)

	db, err := sql.Open("postgres", pg.ConnString())
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	ctx := context.Background()
	if migrationName == "up" {
		if err := postgres.ApplyUpMigrations(ctx, db); err != nil {
			log.Fatal(err)
		}
		log.Println("Up migrations executed successfully.")
		return
	}

	name, content, err := postgres.MigrationContent(migrationName)
	if err != nil {
		log.Fatal(err)
	}

	if _, err := db.ExecContext(ctx, string(content)); err != nil {
		log.Fatalf("Failed to execute SQL file: %v", err)
	}

	log.Printf("Migration file %s executed successfully.", name)
}
