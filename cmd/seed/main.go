// Command seed imports agencies and contacts from CSV exports into
// PostgreSQL. Imports are idempotent: rows are keyed by their source
// identifier and re-running the seeder skips what already exists.
// Contacts whose agency reference does not resolve are attached to a
// synthetic "Unknown Agency" so no contact is dropped.
package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"agencydesk/internal/platform/logger"
	"agencydesk/internal/platform/postgres"
)

const orphanAgencyID = "orphan-agency"

func main() {
	var (
		agenciesPath = flag.String("agencies", "", "path to the agencies CSV export")
		contactsPath = flag.String("contacts", "", "path to the contacts CSV export")
		schemaPath   = flag.String("apply-schema", "", "apply the given schema file before seeding")
	)
	flag.Parse()

	log := logger.New()

	db, err := postgres.Open(os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Error("postgres connection failed", "error", err.Error())
		os.Exit(1)
	}
	if db == nil {
		log.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if *schemaPath != "" {
		if err := applySchema(ctx, db, *schemaPath); err != nil {
			log.Error("schema apply failed", "path", *schemaPath, "error", err.Error())
			os.Exit(1)
		}
		log.Info("schema applied", "path", *schemaPath)
	}

	if *agenciesPath != "" {
		n, err := seedAgencies(ctx, db, *agenciesPath)
		if err != nil {
			log.Error("agency import failed", "path", *agenciesPath, "error", err.Error())
			os.Exit(1)
		}
		log.Info("agencies imported", "rows", n)
	}

	if err := ensureOrphanAgency(ctx, db); err != nil {
		log.Error("orphan agency setup failed", "error", err.Error())
		os.Exit(1)
	}

	if *contactsPath != "" {
		n, orphaned, err := seedContacts(ctx, db, *contactsPath)
		if err != nil {
			log.Error("contact import failed", "path", *contactsPath, "error", err.Error())
			os.Exit(1)
		}
		log.Info("contacts imported", "rows", n, "orphaned", orphaned)
	}
}

func applySchema(ctx context.Context, db *sql.DB, path string) error {
	ddl, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, string(ddl))
	return err
}

// csvRows streams records from a headered CSV, yielding each row as a
// column-name map. Ragged rows are tolerated.
func csvRows(path string, fn func(row map[string]string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	for {
		record, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}

func seedAgencies(ctx context.Context, db *sql.DB, path string) (int, error) {
	const insert = `
		INSERT INTO agencies (original_id, name, state, type, website)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''))
		ON CONFLICT (original_id) DO NOTHING
	`
	n := 0
	err := csvRows(path, func(row map[string]string) error {
		if row["id"] == "" || row["name"] == "" {
			return nil
		}
		if _, err := db.ExecContext(ctx, insert,
			row["id"], row["name"], row["state"], row["type"], row["website"]); err != nil {
			return fmt.Errorf("insert agency %q: %w", row["id"], err)
		}
		n++
		return nil
	})
	return n, err
}

func ensureOrphanAgency(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO agencies (original_id, name, state)
		VALUES ($1, 'Unknown Agency', 'NA')
		ON CONFLICT (original_id) DO NOTHING
	`, orphanAgencyID)
	return err
}

func seedContacts(ctx context.Context, db *sql.DB, path string) (int, int, error) {
	agencyIDs, err := loadAgencyIDs(ctx, db)
	if err != nil {
		return 0, 0, err
	}
	orphan, ok := agencyIDs[orphanAgencyID]
	if !ok {
		return 0, 0, fmt.Errorf("orphan agency missing")
	}

	const insert = `
		INSERT INTO contacts (original_id, first_name, last_name, title, email, phone, agency_id)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7)
		ON CONFLICT (original_id) DO NOTHING
	`
	n, orphaned := 0, 0
	err = csvRows(path, func(row map[string]string) error {
		if row["id"] == "" || row["first_name"] == "" {
			return nil
		}

		agencyID, ok := agencyIDs[row["agency_id"]]
		if !ok {
			agencyID = orphan
			orphaned++
		}

		if _, err := db.ExecContext(ctx, insert,
			row["id"], row["first_name"], row["last_name"],
			row["title"], row["email"], row["phone"], agencyID); err != nil {
			return fmt.Errorf("insert contact %q: %w", row["id"], err)
		}
		n++
		return nil
	})
	return n, orphaned, err
}

// loadAgencyIDs maps source identifiers to the generated agency ids.
func loadAgencyIDs(ctx context.Context, db *sql.DB) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT original_id, id FROM agencies WHERE original_id IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var originalID, id string
		if err := rows.Scan(&originalID, &id); err != nil {
			return nil, err
		}
		out[originalID] = id
	}
	return out, rows.Err()
}
