package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/qaforge/casegen/internal/testgen"
)

var (
	generateRaw    bool
	generateOutput string
)

var generateCmd = &cobra.Command{
	Use:   "generate [user story]",
	Short: "Generate test cases for a new user story",
	Long: `Embeds the user story, retrieves the most similar existing test
cases, and asks the model to draft new positive, negative, and edge
cases in the same format.

The result renders as formatted markdown when stdout is a terminal;
use --raw for plain output or --output to write it to a file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().BoolVar(&generateRaw, "raw", false, "print raw markdown without terminal rendering")
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "write the generated suite to a file")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := newLogger()

	story := strings.Join(args, " ")

	a, err := setupApp(ctx, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	suite, err := a.TestGen.Generate(ctx, story)
	if err != nil {
		switch {
		case errors.Is(err, testgen.ErrEmptyQuery):
			return fmt.Errorf("the user story must not be empty")
		case errors.Is(err, testgen.ErrRetrievalUnavailable):
			return fmt.Errorf("context retrieval failed, run 'casegen ingest' first and check the database: %w", err)
		default:
			return err
		}
	}

	for _, c := range suite.Retrieved {
		logger.Debug("context case", "id", c.DocID, "score", c.Score)
	}

	if generateOutput != "" {
		if err := os.WriteFile(generateOutput, []byte(suite.Output+"\n"), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", generateOutput, err)
		}
		fmt.Printf("Wrote generated suite to %s (%d context cases used).\n", generateOutput, len(suite.Retrieved))
		return nil
	}

	if generateRaw || !stdoutIsTerminal() {
		fmt.Println(suite.Output)
		return nil
	}

	rendered, err := renderMarkdown(suite.Output)
	if err != nil {
		// Rendering is cosmetic; fall back to the raw suite.
		fmt.Println(suite.Output)
		return nil
	}
	fmt.Print(rendered)
	return nil
}

func renderMarkdown(md string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return r.Render(md)
}

func stdoutIsTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
