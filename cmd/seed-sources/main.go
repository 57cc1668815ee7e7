package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"tess-backend/config"
	"tess-backend/repository"
	"tess-backend/sources"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		file    string
		targets []string
	)

	cmd := &cobra.Command{
		Use:          "seed-sources",
		Short:        "Load legislation and case law into the search backends",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			config.LoadDotEnv()
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			catalog := sources.DefaultCatalog()
			if file != "" {
				catalog, err = sources.LoadCatalogFile(file)
				if err != nil {
					return err
				}
			}
			docs := catalog.Documents()
			log.Printf("Loaded %d sources", len(docs))

			for _, target := range targets {
				switch strings.ToLower(strings.TrimSpace(target)) {
				case "postgres":
					if err := seedPostgres(cmd.Context(), cfg.Dossier.DatabaseURL, catalog); err != nil {
						return err
					}
				case "meili":
					retriever := sources.NewMeiliRetriever(cfg.Sources.MeiliURL, cfg.Sources.MeiliAPIKey)
					if err := retriever.IndexDocuments(docs); err != nil {
						return err
					}
					log.Printf("✓ Queued %d sources for Meilisearch indexing", len(docs))
				default:
					return fmt.Errorf("unknown target %q (want postgres or meili)", target)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with legislation and case_law lists (default: built-in samples)")
	cmd.Flags().StringSliceVarP(&targets, "target", "t", []string{"postgres"}, "backends to seed: postgres, meili")
	return cmd
}

func seedPostgres(ctx context.Context, connString string, catalog *sources.Catalog) error {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	n, err := repository.NewSourceRepository(pool).Upsert(ctx, catalog.Documents())
	if err != nil {
		return err
	}
	log.Printf("✓ Upserted %d sources into tax_sources", n)
	return nil
}
