package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
)

var ingestFile string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Index existing test cases from a CSV file",
	Long: `Reads test cases from a CSV file and indexes them into the vector
collection. The file must carry the exact header:

  ID,Title,Module,Pre-conditions,Steps,Expected Result

Re-running ingest with the same IDs updates the existing entries instead
of duplicating them.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "CSV file to ingest (required)")
	_ = ingestCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := newLogger()

	// One ingestion at a time per machine. Concurrent runs would interleave
	// their batches and break the all-or-nothing property per run.
	lock := flock.New(filepath.Join(os.TempDir(), "casegen-ingest.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring ingest lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another ingestion is already running")
	}
	defer func() { _ = lock.Unlock() }()

	f, err := os.Open(ingestFile)
	if err != nil {
		return fmt.Errorf("opening %s: %w", ingestFile, err)
	}
	defer func() { _ = f.Close() }()

	a, err := setupApp(ctx, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	count, err := a.Ingest.Run(ctx, f)
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", ingestFile, err)
	}

	fmt.Printf("Indexed %d test cases into collection %q.\n", count, a.Config.CollectionName)
	return nil
}
