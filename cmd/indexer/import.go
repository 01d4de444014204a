package main

import (
	"io"
	"os"

	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/events"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/ingestion/ingester"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/internal/store"
	"github.com/Adithya-Monish-Kumar-K/tfidf-search/pkg/kafka"
	"github.com/spf13/cobra"
)

func newImportCmd(configPath *string) *cobra.Command {
	var reindex bool

	cmd := &cobra.Command{
		Use:   "import [file.jsonl]",
		Short: "Load crawled pages from a JSON-lines file",
		Long: `import stores one page per line, replacing pages with the same URL.
Each line is {"url", "title", "description", "content", "status_code", "links"}.
With no file, pages are read from stdin.`,
		Example: `  indexer import pages.jsonl
  crawler export | indexer import --reindex`,
		Args: cobra.MaximumNArgs(1),
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

			var in io.Reader = os.Stdin
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			var requests events.Publisher
			if reindex && cfg.Kafka.Enabled {
				p := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.ReindexRequests, false)
				defer p.Close()
				requests = p
			}
			summary, err := ingester.New(s, requests, "indexer-import").Import(cmd.Context(), in, reindex)
			if err != nil {
				return err
			}
			if reindex && !summary.ReindexRequested {
				cmd.PrintErrln("no reindex request published; run 'indexer reindex' to refresh postings")
			}
			return printJSON(summary)
		},
	}
	cmd.Flags().BoolVar(&reindex, "reindex", false, "publish a reindex request after the import (requires kafka)")
	return cmd
}
