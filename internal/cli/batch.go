package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/diligentia/internal/orchestrator"
	"github.com/ppiankov/diligentia/internal/render"
	"github.com/ppiankov/diligentia/internal/search"
	"github.com/ppiankov/diligentia/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	batchMode    string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Run diligence on many entities from a file",
	Long: `Batch investigates every entity listed in a file, several at a time,
and writes one JSON and one Markdown report per entity.

The file is either a YAML list of entities (name, kind, website, sector,
jurisdiction) or plain text with one "kind:name" or bare company name per
line.

Examples:
  diligentia batch watchlist.txt
  diligentia batch portfolio.yaml --concurrency 4 --output-dir ./reports`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "entities investigated at once (default from config)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./diligentia-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for the batch")
	batchCmd.Flags().StringVar(&batchMode, "mode", "balanced", "search mode (fast, balanced, thorough)")
	batchCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if noFooter {
		cfg.Output.IncludeFooter = false
	}
	if concurrency <= 0 {
		concurrency = cfg.Concurrency.BatchWorkers
	}
	logger := newLogger(cfg)

	mode, err := search.ParseMode(batchMode)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(context.Background())
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n\n", batchTimeout)

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	orch, st, err := orchestrator.NewFromConfig(cfg, mode, logger)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	processor := worker.NewBatchProcessor(orch, concurrency)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	renderer := render.NewRenderer(cfg.Output.IncludeFooter)
	successCount, failureCount, disengageCount := 0, 0, 0
	for _, result := range results {
		if result.Report == nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Entity.Name, result.Error)
			continue
		}

		slug := sanitizeFilename(result.Entity.Name)
		if err := writeReport(renderer, result.Report, filepath.Join(outputDir, slug+".json"), filepath.Join(outputDir, slug+".md")); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Entity.Name, err)
			continue
		}
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v (partial report written)\n", result.Entity.Name, result.Error)
			continue
		}

		successCount++
		s := result.Report.Synthesis
		if s.ShouldDisengage {
			disengageCount++
		}
		fmt.Fprintf(os.Stderr, "✓ %s: %s (risk %s, tier %s)\n", result.Entity.Name, s.Verdict, s.OverallRisk, result.Report.Job.Tier)
	}

	fmt.Fprintf(os.Stderr, "\n  Total:      %d entities\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:    %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:   %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Disengage:  %d\n", disengageCount)
	fmt.Fprintf(os.Stderr, "  Output:     %s\n\n", outputDir)
	return nil
}

var unsafeFilename = regexp.MustCompile(`[^a-z0-9._-]+`)

// sanitizeFilename turns an entity name into a safe file stem
func sanitizeFilename(s string) string {
	s = unsafeFilename.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	s = strings.Trim(s, "-.")
	if s == "" {
		s = "entity"
	}
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}
