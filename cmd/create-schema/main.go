package main

import (
	"context"
	"log"

	"tess-backend/config"
	"tess-backend/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Dossier.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, repository.DossierSchemaSQL); err != nil {
		log.Fatalf("Failed to create dossiers table: %v", err)
	}
	log.Println("✓ Created dossiers table")

	if _, err := pool.Exec(ctx, repository.SourceSchemaSQL); err != nil {
		log.Fatalf("Failed to create tax_sources table: %v", err)
	}
	log.Println("✓ Created tax_sources table with Dutch full text index")

	log.Println("\n✅ Schema created successfully!")
}
