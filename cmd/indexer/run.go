package main

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/store"
	"github.com/spf13/cobra"
)

func newReindexCmd(configPath *string) *cobra.Command {
	var batchSize, parallelBatches, parallelUpserts int

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Recompute every TF-IDF posting and exit",
		Example: `  indexer reindex
  indexer reindex --batch-size 200 --parallel-upserts 100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer d.close()

			opts := indexer.OptionsFromConfig(d.cfg.Indexer)
			override(&opts, cmd, batchSize, parallelBatches, parallelUpserts)
			stats, err := d.pipeline.Reindex(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return printJSON(stats)
		},
	}
	addRunFlags(cmd, &batchSize, &parallelBatches, &parallelUpserts)
	return cmd
}

func newEmbedCmd(configPath *string) *cobra.Command {
	var batchSize, parallelBatches, parallelUpserts int

	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Embed every crawled page into the vector store and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer d.close()
			if d.vectors == nil {
				return errors.New("vector indexing is disabled (set vector.enabled)")
			}

			opts := indexer.OptionsFromConfig(d.cfg.Indexer)
			override(&opts, cmd, batchSize, parallelBatches, parallelUpserts)
			stats, err := d.vectors.IndexVectors(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return printJSON(stats)
		},
	}
	addRunFlags(cmd, &batchSize, &parallelBatches, &parallelUpserts)
	return cmd
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the metadata schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			s, err := store.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer s.Close()
			cmd.Println("schema is up to date")
			return nil
		},
	}
}

func addRunFlags(cmd *cobra.Command, batchSize, parallelBatches, parallelUpserts *int) {
	cmd.Flags().IntVar(batchSize, "batch-size", 0, "documents per batch (default from config)")
	cmd.Flags().IntVar(parallelBatches, "parallel-batches", 0, "batches read concurrently (default from config)")
	cmd.Flags().IntVar(parallelUpserts, "parallel-upserts", 0, "concurrent upserts (default from config)")
}

func override(opts *indexer.Options, cmd *cobra.Command, batchSize, parallelBatches, parallelUpserts int) {
	if cmd.Flags().Changed("batch-size") {
		opts.BatchSize = batchSize
	}
	if cmd.Flags().Changed("parallel-batches") {
		opts.ParallelBatches = parallelBatches
	}
	if cmd.Flags().Changed("parallel-upserts") {
		opts.ParallelUpserts = parallelUpserts
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
