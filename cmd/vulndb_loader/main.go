package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/netposture/netposture/internal/adapters/storage"
)

func main() {
	seedFile := flag.String("seed-file", "./configs/vuln_seed.json", "Path to vulnerability seed JSON file")
	dbPath := flag.String("db-path", "./data/netposture.db", "Path to vulnerability database")
	flag.Parse()

	log.Println("=== Vulnerability Seed Loader ===")
	log.Printf("Seed file: %s", *seedFile)
	log.Printf("Database: %s", *dbPath)

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	store, err := storage.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	loader := storage.NewSeedLoader(store, nil)

	loaded, err := loader.LoadFromFile(ctx, *seedFile)
	if err != nil {
		log.Fatalf("Failed to load seed data: %v", err)
	}

	total, _ := store.CountRecords(ctx)
	log.Printf("✓ Loaded %d records, database now contains %d", loaded, total)
}
