package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"cloud.google.com/go/storage"
	"github.com/spf13/cobra"

	"github.com/Lllllllleong/pdfvault/internal/blob"
	"github.com/Lllllllleong/pdfvault/internal/config"
	"github.com/Lllllllleong/pdfvault/internal/extract"
	"github.com/Lllllllleong/pdfvault/internal/metadata"
	"github.com/Lllllllleong/pdfvault/internal/server"
	"github.com/Lllllllleong/pdfvault/internal/services"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "pdfvault",
		Short:         "PDF storage, derivation and text-extraction service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to TOML config file")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newSweepCmd(&configPath))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	})
	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			stores, err := buildStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer stores.close()

			extractor := extract.New()
			ingestor := services.NewIngestor(stores.meta, stores.blobs, extractor, cfg.PreviewLength, cfg.StoreTimeout())
			deriver := services.NewDeriver(stores.meta, stores.blobs, extractor, cfg.PreviewLength, cfg.StoreTimeout())
			catalog := services.NewCatalog(stores.meta, stores.blobs, extractor, cfg.StoreTimeout())

			if cfg.Sweep.Enabled {
				sweeper := services.NewSweeper(stores.meta, stores.blobs, cfg.SweepGracePeriod(), cfg.Sweep.DeletesPerSec, cfg.StoreTimeout())
				go sweeper.Run(ctx, cfg.SweepInterval())
			}

			srv := server.New(cfg.ListenAddr, ingestor, deriver, catalog, cfg.CORSOrigins)
			return srv.ListenAndServe(ctx)
		},
	}
}

func newSweepCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one reconciliation pass removing orphaned blobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			stores, err := buildStores(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer stores.close()

			sweeper := services.NewSweeper(stores.meta, stores.blobs, cfg.SweepGracePeriod(), cfg.Sweep.DeletesPerSec, cfg.StoreTimeout())
			removed, err := sweeper.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("removed %d orphaned blob(s)\n", removed)
			return nil
		},
	}
}

type storeSet struct {
	meta    metadata.Store
	blobs   blob.Store
	closers []func() error
}

func (s *storeSet) close() {
	for _, c := range s.closers {
		if err := c(); err != nil {
			slog.Warn("Failed to close store.", "error", err)
		}
	}
}

func buildStores(ctx context.Context, cfg *config.Config) (*storeSet, error) {
	set := &storeSet{}

	switch cfg.Blob.Backend {
	case "fs":
		store, err := blob.NewFSStore(cfg.BlobDir())
		if err != nil {
			return nil, err
		}
		set.blobs = store
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create Storage client: %w", err)
		}
		set.closers = append(set.closers, client.Close)
		store, err := blob.NewGCSStore(client, cfg.Blob.Bucket, cfg.Blob.Prefix)
		if err != nil {
			return nil, err
		}
		set.blobs = store
	}

	switch cfg.Metadata.Backend {
	case "file":
		store, err := metadata.NewFileStore(cfg.MetadataPath())
		if err != nil {
			return nil, err
		}
		set.meta = store
	case "sqlite":
		store, err := metadata.NewSQLiteStore(cfg.MetadataPath())
		if err != nil {
			return nil, err
		}
		set.closers = append(set.closers, store.Close)
		set.meta = store
	case "firestore":
		client, err := metadata.NewFirestoreClient(ctx, cfg.Metadata.ProjectID)
		if err != nil {
			return nil, err
		}
		set.closers = append(set.closers, client.Close)
		set.meta = metadata.NewFirestoreStore(client, cfg.Metadata.Collection)
	}

	return set, nil
}
