package main

import (
	"context"
	"fmt"
	"time"

	"github.com/2beens/notesbox/internal/config"
	notesBox "github.com/2beens/notesbox/internal/notes_box"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var backfillDryRun bool

// backfillCmd normalizes legacy note documents
var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Backfill missing fields on stored notes",
	Long: `Walks all note documents in insertion order, renumbers serials from 1
and fills in the title, note, important, category and tags fields where missing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.StorageBackend != config.StorageMongo {
			return fmt.Errorf("backfill works on the mongo backend only, got: %s", cfg.StorageBackend)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Minute)
		defer cancel()

		client, closeFn, err := connectMongo(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		store := notesBox.NewMongoLegacyStore(client, cfg.MongoDBName, cfg.MongoCollection)
		result, err := notesBox.Backfill(ctx, store, backfillDryRun)
		if err != nil {
			return err
		}

		log.Infof("backfill done, scanned: %d, updated: %d, dry run: %t", result.Scanned, result.Updated, backfillDryRun)
		return nil
	},
}

func init() {
	backfillCmd.Flags().BoolVar(&backfillDryRun, "dry-run", false, "only report the planned updates")
	rootCmd.AddCommand(backfillCmd)
}
