package cmd

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
)

//go:embed insurance_test_cases.csv
var sampleCSV []byte

var (
	sampleOutput string
	sampleForce  bool
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Write a sample insurance test case CSV",
	Long: `Writes a small sample corpus of insurance test cases in the exact
format 'casegen ingest' expects. Useful for trying the tool before
exporting your own test suite.`,
	RunE: runSample,
}

func init() {
	sampleCmd.Flags().StringVarP(&sampleOutput, "output", "o", "insurance_test_cases.csv", "destination file")
	sampleCmd.Flags().BoolVar(&sampleForce, "force", false, "overwrite the destination if it exists")
	rootCmd.AddCommand(sampleCmd)
}

func runSample(_ *cobra.Command, _ []string) error {
	if !sampleForce {
		if _, err := os.Stat(sampleOutput); err == nil {
			return fmt.Errorf("%s already exists, use --force to overwrite", sampleOutput)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("checking %s: %w", sampleOutput, err)
		}
	}

	if err := os.WriteFile(sampleOutput, sampleCSV, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", sampleOutput, err)
	}

	fmt.Printf("Wrote sample corpus to %s. Next: casegen ingest --file %s\n", sampleOutput, sampleOutput)
	return nil
}
