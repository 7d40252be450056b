// Package main provides a tool to provision users without the HTTP API.
//
// A fresh install has no users, so the first account is created here:
//
//	STORAGE_PATH=~/photokeep go run ./cmd/seed -username alice -email alice@example.com
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/photokeepapp/photokeep-server/internal/logger"
	"github.com/photokeepapp/photokeep-server/internal/service"
	"github.com/photokeepapp/photokeep-server/internal/store/sqlite"
)

func main() {
	username := flag.String("username", "", "Username for the new account (required)")
	email := flag.String("email", "", "Email for the new account")
	quota := flag.Int64("quota", 0, "Quota limit in bytes (0 uses the 10GiB default)")
	storagePath := flag.String("storage-path", "", "Root storage directory (defaults to $STORAGE_PATH)")
	flag.Parse()

	if *username == "" {
		flag.Usage()
		os.Exit(2)
	}

	base := *storagePath
	if base == "" {
		base = os.Getenv("STORAGE_PATH")
	}
	if base == "" {
		log.Fatal("No storage path: set -storage-path or STORAGE_PATH")
	}

	dbDir := filepath.Join(base, "db")
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	quiet := logger.New(logger.Config{Writer: io.Discard})
	st, err := sqlite.Open(filepath.Join(dbDir, "photokeep.db"), quiet.Logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	users := service.NewUserService(st, quiet, 10<<30)

	user, err := users.Create(context.Background(), *username, *email, *quota)
	if err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	fmt.Printf("Created user %s\n", user.Username)
	fmt.Printf("  ID:          %s\n", user.ID)
	fmt.Printf("  Quota limit: %d bytes\n", user.QuotaLimit)
}
