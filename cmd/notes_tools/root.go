package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/2beens/notesbox/internal/config"
	"github.com/2beens/notesbox/internal/db"
	"github.com/2beens/notesbox/internal/logging"
	notesBox "github.com/2beens/notesbox/internal/notes_box"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	env        string
	configPath string
	dotEnvPath string
	logLevel   string

	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "notes_tools",
	Short: "Maintenance tools for the notes service",
	Long: `notes_tools works directly against the notes storage:
it normalizes legacy note documents and takes snapshot backups.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(dotEnvPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", dotEnvPath, err)
		}

		var err error
		cfg, err = config.Load(env, configPath)
		if err != nil {
			return err
		}

		if logLevel == "" {
			logLevel = cfg.LogLevel
		}
		logging.Setup(logging.LoggerSetupParams{
			LogToStdout:      true,
			LogLevel:         logLevel,
			Environment:      cfg.Environment,
			SentryEnabled:    cfg.SentryEnabled,
			SentryDSN:        os.Getenv("SENTRY_DSN"),
			SentryServerName: "notes-tools",
		})
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment [prod | production | dev | development | ddev | dockerdev ]")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./config.toml", "path for the TOML config file")
	rootCmd.PersistentFlags().StringVar(&dotEnvPath, "dotenv", ".env", "path for the .env file with secrets (optional)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level, defaults to the one from config")
}

func connectMongo(ctx context.Context) (*mongo.Client, func(), error) {
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		return nil, nil, fmt.Errorf("MONGO_URI not found in environment variables")
	}

	client, err := db.NewMongoClient(ctx, db.NewMongoClientParams{
		URI: mongoURI,
		TLS: cfg.MongoTLS,
	})
	if err != nil {
		return nil, nil, err
	}

	return client, func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			log.Errorf("disconnect mongo: %s", err)
		}
	}, nil
}

// openNotesRepo connects to the configured storage backend
func openNotesRepo(ctx context.Context) (notesBox.NotesRepo, func(), error) {
	switch cfg.StorageBackend {
	case config.StorageMongo:
		client, closeFn, err := connectMongo(ctx)
		if err != nil {
			return nil, nil, err
		}
		repo, err := notesBox.NewMongoRepo(ctx, client, cfg.MongoDBName, cfg.MongoCollection)
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		return repo, closeFn, nil
	case config.StoragePostgres:
		dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
			DBHost: cfg.PostgresHost,
			DBPort: cfg.PostgresPort,
			DBName: cfg.PostgresDBName,
		})
		if err != nil {
			return nil, nil, err
		}
		return notesBox.NewPsqlRepo(dbPool), dbPool.Close, nil
	}
	return nil, nil, fmt.Errorf("unsupported storage backend: %s", cfg.StorageBackend)
}
