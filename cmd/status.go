package cmd

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/qaforge/casegen/db"
	"github.com/qaforge/casegen/internal/config"
	"github.com/qaforge/casegen/internal/vectorstore"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the indexed test case corpus",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// runStatus only needs the database, so it skips model initialization and
// works even when no AI backend is reachable.
func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	store := vectorstore.New(pool, logger)

	exists, err := store.CollectionExists(ctx, cfg.CollectionName)
	if err != nil {
		return fmt.Errorf("checking collection: %w", err)
	}

	fmt.Printf("Collection: %s\n", cfg.CollectionName)
	if !exists {
		fmt.Println("Status: not created (run 'casegen ingest' first)")
		return nil
	}

	count, err := store.Count(ctx, cfg.CollectionName)
	if err != nil {
		return fmt.Errorf("counting entries: %w", err)
	}

	fmt.Println("Status: ready")
	fmt.Printf("Indexed test cases: %d\n", count)
	fmt.Printf("Embedder: %s (%d dimensions)\n", cfg.EmbedderModel, cfg.EmbedderDimension)
	return nil
}
