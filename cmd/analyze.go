package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/daideguchi/dental-ai-counseling-system/internal/api"
	"github.com/daideguchi/dental-ai-counseling-system/internal/config"
	"github.com/daideguchi/dental-ai-counseling-system/internal/pipeline"
	"github.com/daideguchi/dental-ai-counseling-system/internal/store"
	"github.com/daideguchi/dental-ai-counseling-system/internal/worker"
)

var (
	analyzeConfigPath string
	analyzeNoAI       bool
	analyzePretty     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <transcript>...",
	Short: "Analyze transcript files and append results to the session log",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(analyzeConfigPath)
	if err != nil {
		return err
	}

	var ai pipeline.AIClient
	if !analyzeNoAI {
		ai = api.NewClient(cfg.AI)
	}

	processor := pipeline.New(cfg, ai)
	sessions := store.NewJSONLWriter(cfg.Store.JSONLPath)
	batch := worker.NewBatch(processor, cfg.Worker, ai != nil, sessions)

	results, err := batch.Run(ctx, args)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return fmt.Errorf("no transcript produced a result")
	}

	enc := json.NewEncoder(os.Stdout)
	if analyzePretty {
		enc.SetIndent("", "  ")
	}
	for _, res := range results {
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}
	return nil
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeConfigPath, "config", "c", "", "YAML config file overriding defaults")
	analyzeCmd.Flags().BoolVar(&analyzeNoAI, "no-ai", false, "skip Gemini calls, rule-based analysis only")
	analyzeCmd.Flags().BoolVar(&analyzePretty, "pretty", false, "indent JSON output")
	rootCmd.AddCommand(analyzeCmd)
}
