package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/2beens/notesbox/internal/backup"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	targetFile   = "file"
	targetMinio  = "minio"
	targetGDrive = "gdrive"
)

var (
	backupTarget string
	backupFormat string
	backupDir    string
)

// backupCmd takes a snapshot of all notes
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Store a snapshot of all notes",
	Long: `Writes all notes, in list order, to a timestamped JSON or YAML snapshot
in a local directory, an S3 compatible bucket or a Google Drive folder.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()

		sink, err := newSink(ctx)
		if err != nil {
			return fmt.Errorf("create %s sink: %w", backupTarget, err)
		}

		repo, closeFn, err := openNotesRepo(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		service, err := backup.NewService(repo, sink, backupFormat)
		if err != nil {
			return err
		}

		location, err := service.Run(ctx)
		if err != nil {
			return err
		}

		log.Printf("backup done: %s", location)
		return nil
	},
}

func newSink(ctx context.Context) (backup.Sink, error) {
	switch backupTarget {
	case targetFile:
		dir := backupDir
		if dir == "" {
			dir = cfg.BackupDir
		}
		return backup.NewFileSink(dir)
	case targetMinio:
		return backup.NewMinioSink(ctx, backup.MinioSinkParams{
			Endpoint:  cfg.BackupS3Endpoint,
			AccessKey: os.Getenv("NOTES_S3_ACCESS_KEY"),
			SecretKey: os.Getenv("NOTES_S3_SECRET_KEY"),
			Bucket:    cfg.BackupS3Bucket,
			Prefix:    cfg.BackupS3Prefix,
		})
	case targetGDrive:
		credentialsPath := os.Getenv("NOTES_GDRIVE_CREDENTIALS")
		if credentialsPath == "" {
			return nil, fmt.Errorf("google drive credentials not set, use NOTES_GDRIVE_CREDENTIALS")
		}
		credentials, err := os.ReadFile(credentialsPath)
		if err != nil {
			return nil, fmt.Errorf("read google drive credentials: %w", err)
		}
		return backup.NewGoogleDriveSink(ctx, credentials)
	}
	return nil, fmt.Errorf("unknown backup target: %s", backupTarget)
}

func init() {
	backupCmd.Flags().StringVar(&backupTarget, "target", targetFile, "where to store the snapshot [file | minio | gdrive]")
	backupCmd.Flags().StringVar(&backupFormat, "format", backup.FormatJSON, "snapshot format [json | yaml]")
	backupCmd.Flags().StringVar(&backupDir, "dir", "", "local backups dir for the file target, defaults to the one from config")
	rootCmd.AddCommand(backupCmd)
}
