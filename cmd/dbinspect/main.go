// Package main provides a read-only inspection tool for the PhotoKeep
// metadata store. It prints per-user quota accounting and flags rows whose
// stored consumed counter drifted from the blob references on record.
//
//	STORAGE_PATH=~/photokeep go run ./cmd/dbinspect
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/photokeepapp/photokeep-server/internal/domain"
	"github.com/photokeepapp/photokeep-server/internal/logger"
	"github.com/photokeepapp/photokeep-server/internal/store/sqlite"
)

func main() {
	base := os.Getenv("STORAGE_PATH")
	if base == "" {
		base = os.ExpandEnv("$HOME/photokeep")
	}

	dbPath := filepath.Join(base, "db", "photokeep.db")

	quiet := logger.New(logger.Config{Writer: io.Discard})
	st, err := sqlite.Open(dbPath, quiet.Logger)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer st.Close()

	ctx := context.Background()

	fmt.Println("=== Store Inspection ===")
	fmt.Println()

	users, err := st.ListUsers(ctx)
	if err != nil {
		log.Fatalf("Failed to list users: %v", err)
	}

	photos, err := st.ListAllPhotos(ctx)
	if err != nil {
		log.Fatalf("Failed to list photos: %v", err)
	}

	photosByUser := make(map[string]int)
	byStatus := make(map[domain.ProcessingStatus]int)
	fingerprints := make(map[string]bool)
	for _, p := range photos {
		photosByUser[p.UserID]++
		byStatus[p.Status]++
		fingerprints[p.Fingerprint] = true
	}

	drifted := 0
	for _, u := range users {
		computed, err := st.ComputeUserConsumed(ctx, u.ID)
		if err != nil {
			log.Printf("Error computing consumed bytes for %s: %v", u.ID, err)
			continue
		}

		fmt.Printf("User: %s\n", u.Username)
		fmt.Printf("  ID: %s\n", u.ID)
		fmt.Printf("  Photos: %d\n", photosByUser[u.ID])
		fmt.Printf("  Quota: %d / %d bytes\n", u.QuotaConsumed, u.QuotaLimit)
		if computed != u.QuotaConsumed {
			drifted++
			fmt.Printf("  DRIFT: stored consumed %d, references total %d\n", u.QuotaConsumed, computed)
		}
		fmt.Println()
	}

	fmt.Println("=== Summary ===")
	fmt.Printf("Total users: %d\n", len(users))
	fmt.Printf("Total photos: %d\n", len(photos))
	fmt.Printf("Distinct blobs referenced: %d\n", len(fingerprints))
	for status, n := range byStatus {
		fmt.Printf("Photos %s: %d\n", status, n)
	}
	fmt.Printf("Users with drifted counters: %d\n", drifted)
	if drifted > 0 {
		fmt.Println("The reconciliation sweeper corrects drifted counters on its next pass.")
	}
}
