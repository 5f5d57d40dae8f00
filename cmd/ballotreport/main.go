package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/vncsmyrnk/ballot/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/ballot/internal/config"
	"github.com/vncsmyrnk/ballot/internal/core/domain"
	"github.com/vncsmyrnk/ballot/internal/core/services"
)

// ballotreport prints a JSON turnout and standings report for one ballot,
// or for every stored ballot when -ballot is omitted.
func main() {
	config.LoadDotEnv()

	fs := flag.NewFlagSet("ballotreport", flag.ExitOnError)
	pg := config.PostgresFlags(fs)
	ballotFlag := fs.String("ballot", "", "Ballot id to report on")
	fs.Parse(os.Args[1:])

	db, err := sql.Open("postgres", pg.ConnString())
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal(err)
	}

	reportService := services.NewReportService(postgres.NewSnapshotRepository(db))

	// Use a timeout for the job execution to prevent it from hanging indefinitely
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var reports []domain.Report
	if *ballotFlag != "" {
		id, err := uuid.Parse(*ballotFlag)
		if err != nil {
			log.Fatalf("Invalid ballot id: %v", err)
		}
		r, err := reportService.Report(ctx, id)
		if err != nil {
			log.Fatalf("Error building report: %v", err)
		}
		reports = append(reports, r)
	} else {
		reports, err = reportService.ReportAll(ctx)
		if err != nil {
			log.Fatalf("Error building reports: %v", err)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(reports); err != nil {
		log.Fatal(err)
	}
	log.Printf("Reported %d ballot(s).", len(reports))
}
