package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/florenceboettger/ghpr-tools/internal/corpus"
	"github.com/florenceboettger/ghpr-tools/internal/crawl"
	"github.com/florenceboettger/ghpr-tools/internal/dataset"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset [flags] SRC_DIR DST_FILE",
	Short: "Render a crawled corpus into a tabular dataset",
	Long: `Render a corpus crawled with 'ghpr crawl' into one table: a row per
issue, joined with the pull request whose description closes it, the
pull's diff attributed to per-section columns, and issue-only rows for
the issues no pull closes.

The output format follows the destination extension: .sqlite, .sqlite3
and .db write an SQLite database, anything else writes CSV. An
existing destination is overwritten.

Examples:
  ghpr dataset repos dataset.csv
  ghpr dataset --limit-rows 1000 repos sample.csv
  ghpr dataset repos dataset.sqlite

  # Join externally computed topic probabilities by row order
  ghpr dataset --topics-file topics.csv repos dataset.csv`,
	Args: cobra.ExactArgs(2),
	RunE: runDataset,
}

// Flags for dataset.
var (
	datasetLimitRows  int
	datasetStartDate  string
	datasetEndDate    string
	datasetTopicsFile string
)

func init() {
	datasetCmd.Flags().IntVarP(
		&datasetLimitRows, "limit-rows", "l", 0, "Stop after writing this many rows (0 for no limit)")
	datasetCmd.Flags().StringVarP(
		&datasetStartDate, "start-date", "e", "2000-01-01", "Only keep items created on or after this date (YYYY-MM-DD)")
	datasetCmd.Flags().StringVarP(
		&datasetEndDate, "end-date", "E", "2050-01-01", "Only keep items created on or before this date (YYYY-MM-DD)")
	datasetCmd.Flags().StringVar(
		&datasetTopicsFile, "topics-file", "", "CSV of per-pull topic probabilities to join by row order")

	rootCmd.AddCommand(datasetCmd)
}

func runDataset(cmd *cobra.Command, args []string) error {
	if _, err := configStore(); err != nil {
		return err
	}

	limitRows := intSetting(cmd, "limit-rows", "dataset.limit_rows", datasetLimitRows)
	startDate := stringSetting(cmd, "start-date", "dataset.start_date", datasetStartDate)
	endDate := stringSetting(cmd, "end-date", "dataset.end_date", datasetEndDate)
	topicsFile := stringSetting(cmd, "topics-file", "dataset.topics_file", datasetTopicsFile)

	window, err := crawl.ParseWindow(startDate, endDate)
	if err != nil {
		return err
	}

	builder := dataset.NewBuilder(corpus.NewStore(args[0]))
	if names := cfg.GetStringSlice("dataset.sections"); len(names) > 0 {
		builder.SetSections(dataset.SectionsFromNames(names))
	}

	sink, err := openSink(args[1])
	if err != nil {
		return err
	}
	runErr := builder.Run(sink, dataset.Options{
		Window:     window,
		LimitRows:  limitRows,
		TopicsFile: topicsFile,
	})
	if closeErr := sink.Close(); runErr == nil {
		runErr = closeErr
	}
	if runErr != nil {
		return fmt.Errorf("dataset build failed: %w", runErr)
	}
	return nil
}

// openSink picks the sink from the destination extension: .sqlite,
// .sqlite3 and .db open an SQLite database, everything else writes CSV.
func openSink(path string) (dataset.Sink, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sqlite", ".sqlite3", ".db":
		return dataset.NewSQLiteSink(path)
	default:
		return dataset.NewCSVSink(path)
	}
}
